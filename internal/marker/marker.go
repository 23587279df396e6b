// Package marker defines resolved diagnostics and the sink they are delivered to.
package marker

import (
	"strconv"
	"strings"
)

// Severity is the severity of a resolved marker. Higher values are more severe.
type Severity int

const (
	// SeverityHint is the lowest severity.
	SeverityHint Severity = 1
	// SeverityInfo is informational.
	SeverityInfo Severity = 2
	// SeverityWarning is a warning.
	SeverityWarning Severity = 4
	// SeverityError is an error.
	SeverityError Severity = 8
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityHint:
		return "hint"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MaxColumn is the end column used when only a line is known; it covers
// the whole line for any line length.
const MaxColumn = 1<<31 - 1

// Data is a resolved diagnostic without its owner and resource.
// Line and column numbers are 1-based; the whole-file span is (0,0,0,0).
type Data struct {
	Severity    Severity `json:"severity"`
	StartLine   int      `json:"startLine"`
	StartColumn int      `json:"startColumn"`
	EndLine     int      `json:"endLine"`
	EndColumn   int      `json:"endColumn"`
	Message     string   `json:"message"`
	Code        string   `json:"code,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// Key identifies markers that are considered the same diagnostic.
//
// The message is not part of the key: some tools repeat a diagnostic with a
// truncated message, and the longer message is kept (see Set).
type Key struct {
	Source      string
	Code        string
	Severity    Severity
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Key returns the dedup key of d.
func (d Data) Key() Key {
	return Key{
		Source:      d.Source,
		Code:        d.Code,
		Severity:    d.Severity,
		StartLine:   d.StartLine,
		StartColumn: d.StartColumn,
		EndLine:     d.EndLine,
		EndColumn:   d.EndColumn,
	}
}

// String formats d the way compilers print diagnostics.
func (d Data) String() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(d.StartLine))
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(d.StartColumn))
	sb.WriteString(": ")
	sb.WriteString(d.Severity.String())
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	if d.Code != "" {
		sb.WriteString(" (")
		sb.WriteString(d.Code)
		sb.WriteByte(')')
	}
	if d.Source != "" {
		sb.WriteString(" [")
		sb.WriteString(d.Source)
		sb.WriteByte(']')
	}
	return sb.String()
}

// Marker is Data bound to an owner and a resource.
type Marker struct {
	Data
	Owner    string `json:"owner"`
	Resource string `json:"resource"`
}

// Set is an insertion-ordered collection of markers deduplicated by Key.
// When two markers share a key the one with the longer message wins.
type Set struct {
	index map[Key]int
	items []Data
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{index: make(map[Key]int)}
}

// Add records d, replacing a stored marker with the same key only when d's
// message is strictly longer.
func (s *Set) Add(d Data) {
	key := d.Key()
	if i, ok := s.index[key]; ok {
		if len(s.items[i].Message) < len(d.Message) {
			s.items[i] = d
		}
		return
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, d)
}

// Len returns the number of distinct markers.
func (s *Set) Len() int {
	return len(s.items)
}

// Items returns a copy of the markers in insertion order.
func (s *Set) Items() []Data {
	out := make([]Data, len(s.items))
	copy(out, s.items)
	return out
}
