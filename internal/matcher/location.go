package matcher

import (
	"strconv"
	"strings"

	"github.com/dshills/buildmarkers/internal/marker"
)

// locationPattern accepts line, line,col and line,col,endLine,endCol.
var locationPattern = MustCompileRegexp(`^\d+(?:,\d+(?:,\d+,\d+)?)?$`)

type span struct {
	startLine, startColumn, endLine, endColumn int
}

// resolveSpan resolves the span of d. It returns false when no usable
// location was captured.
func (d *problemData) resolveSpan() (span, bool) {
	if d.kind == KindFile {
		return span{}, true
	}
	if d.location.set && d.location.value != "" {
		return parseLocation(d.location.value)
	}
	if !d.line.set || d.line.value == "" {
		return span{}, false
	}

	startLine, err := strconv.Atoi(strings.TrimSpace(d.line.value))
	if err != nil {
		return span{}, false
	}
	startColumn, hasStartColumn := optionalInt(d.character)
	endLine, _ := optionalInt(d.endLine)
	endColumn, hasEndColumn := optionalInt(d.endCharacter)
	return createSpan(startLine, startColumn, hasStartColumn, endLine, endColumn, hasEndColumn), true
}

func optionalInt(f field) (int, bool) {
	if !f.set || f.value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(f.value))
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseLocation(value string) (span, bool) {
	if ok, err := locationPattern.MatchString(value); err != nil || !ok {
		return span{}, false
	}
	parts := strings.Split(value, ",")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return span{}, false
		}
		nums[i] = n
	}
	switch len(nums) {
	case 1:
		return createSpan(nums[0], 0, false, 0, 0, false), true
	case 2:
		return createSpan(nums[0], nums[1], true, 0, 0, false), true
	case 4:
		return createSpan(nums[0], nums[1], true, nums[2], nums[3], true), true
	}
	return span{}, false
}

// createSpan fills in the missing ends. A line without a column covers the
// whole line.
func createSpan(startLine, startColumn int, hasStartColumn bool, endLine, endColumn int, hasEndColumn bool) span {
	switch {
	case hasStartColumn && hasEndColumn:
		if endLine == 0 {
			endLine = startLine
		}
		return span{startLine, startColumn, endLine, endColumn}
	case hasStartColumn:
		return span{startLine, startColumn, startLine, startColumn}
	default:
		return span{startLine, 1, startLine, marker.MaxColumn}
	}
}

// markerSeverity resolves the captured severity, falling back to the
// matcher default and then to error.
func (d *problemData) markerSeverity(m *ProblemMatcher) marker.Severity {
	var result Severity
	if d.severity.set {
		if s := parseCapturedSeverity(d.severity.value); s != SeverityIgnore {
			result = s
		}
	}
	if result == "" {
		result = m.Severity
		if result == "" {
			result = SeverityError
		}
	}
	return result.ToMarker()
}
