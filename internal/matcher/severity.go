package matcher

import (
	"strings"

	"github.com/dshills/buildmarkers/internal/marker"
)

// Severity is a configured or captured severity.
type Severity string

const (
	// SeverityIgnore is the result of an unrecognised severity string.
	SeverityIgnore Severity = "ignore"
	// SeverityInfo is informational.
	SeverityInfo Severity = "info"
	// SeverityWarning is a warning.
	SeverityWarning Severity = "warning"
	// SeverityError is an error.
	SeverityError Severity = "error"
)

// ParseSeverity maps error, warning/warn and info (in any case) to their
// severities and everything else to SeverityIgnore.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError
	case "warning", "warn":
		return SeverityWarning
	case "info":
		return SeverityInfo
	default:
		return SeverityIgnore
	}
}

// parseCapturedSeverity extends ParseSeverity with the single-letter forms
// E, W and I and with hint and note, both of which become info.
func parseCapturedSeverity(s string) Severity {
	result := ParseSeverity(s)
	if result != SeverityIgnore {
		return result
	}
	switch {
	case s == "E":
		return SeverityError
	case s == "W":
		return SeverityWarning
	case s == "I":
		return SeverityInfo
	case strings.EqualFold(s, "hint"), strings.EqualFold(s, "note"):
		return SeverityInfo
	}
	return SeverityIgnore
}

// ToMarker converts s to a marker severity. Ignore becomes a hint.
func (s Severity) ToMarker() marker.Severity {
	switch s {
	case SeverityError:
		return marker.SeverityError
	case SeverityWarning:
		return marker.SeverityWarning
	case SeverityInfo:
		return marker.SeverityInfo
	default:
		return marker.SeverityHint
	}
}
