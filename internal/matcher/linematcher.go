package matcher

import (
	"fmt"

	"github.com/dshills/buildmarkers/internal/logging"
	"github.com/dshills/buildmarkers/internal/marker"
)

// ProblemMatch is a marker found in the output, before its file name is
// resolved to a resource.
type ProblemMatch struct {
	Matcher *ProblemMatcher
	File    string
	Marker  marker.Data
}

// HandleResult is the outcome of offering a window of lines to a matcher.
type HandleResult struct {
	// Match is nil when the window did not produce a marker.
	Match *ProblemMatch

	// Continue asks the caller to route following lines to Next.
	Continue bool
}

// LineMatcher matches a fixed number of consecutive lines.
type LineMatcher interface {
	// MatchLength is the number of lines Handle expects.
	MatchLength() int

	// Handle matches a window of exactly MatchLength lines.
	Handle(window []string) HandleResult

	// Next matches a single line after Handle asked to continue. A nil result
	// ends the loop.
	Next(line string) *ProblemMatch

	// Matcher returns the configuration the line matcher was built from.
	Matcher() *ProblemMatcher
}

// NewLineMatcher returns the line matcher for m.
func NewLineMatcher(m *ProblemMatcher, log *logging.Logger) LineMatcher {
	if log == nil {
		log = logging.Nop()
	}
	base := lineMatcherBase{matcher: m, log: log}
	if m.MultiLine || len(m.Patterns) > 1 {
		return &multiLineMatcher{lineMatcherBase: base}
	}
	return &singleLineMatcher{lineMatcherBase: base}
}

type lineMatcherBase struct {
	matcher *ProblemMatcher
	log     *logging.Logger
}

func (b *lineMatcherBase) Matcher() *ProblemMatcher {
	return b.matcher
}

// markerMatch converts filled data into a match, or nil if the file,
// location or message is missing.
func (b *lineMatcherBase) markerMatch(d *problemData) *ProblemMatch {
	loc, hasLocation := d.resolveSpan()
	if !d.file.set || d.file.value == "" || !hasLocation || !d.message.set || d.message.value == "" {
		b.log.Debug("discarding incomplete match: file=%q message=%q location=%v", d.file.value, d.message.value, hasLocation)
		return nil
	}

	data := marker.Data{
		Severity:    d.markerSeverity(b.matcher),
		StartLine:   loc.startLine,
		StartColumn: loc.startColumn,
		EndLine:     loc.endLine,
		EndColumn:   loc.endColumn,
		Message:     d.message.value,
		Source:      b.matcher.Source,
	}
	if d.code.set {
		data.Code = d.code.value
	}
	return &ProblemMatch{Matcher: b.matcher, File: d.file.value, Marker: data}
}

type singleLineMatcher struct {
	lineMatcherBase
}

func (m *singleLineMatcher) MatchLength() int {
	return 1
}

func (m *singleLineMatcher) Handle(window []string) HandleResult {
	if len(window) != 1 {
		panic(fmt.Sprintf("matcher: single-line matcher given %d lines", len(window)))
	}
	pattern := m.matcher.Patterns[0]
	c, ok := exec(pattern.Regexp, window[0])
	if !ok {
		return HandleResult{}
	}
	data := problemData{kind: pattern.Kind}
	data.fill(pattern, c)
	return HandleResult{Match: m.markerMatch(&data)}
}

func (m *singleLineMatcher) Next(string) *ProblemMatch {
	return nil
}

type multiLineMatcher struct {
	lineMatcherBase

	// data holds the captures of the stages before a looping last stage.
	data *problemData
}

func (m *multiLineMatcher) MatchLength() int {
	return len(m.matcher.Patterns)
}

func (m *multiLineMatcher) Handle(window []string) HandleResult {
	patterns := m.matcher.Patterns
	if len(window) != len(patterns) {
		panic(fmt.Sprintf("matcher: %d-line matcher given %d lines", len(patterns), len(window)))
	}

	data := problemData{kind: patterns[0].Kind}
	last := len(patterns) - 1
	loop := patterns[last].Loop
	for i, pattern := range patterns {
		c, ok := exec(pattern.Regexp, window[i])
		if !ok {
			m.data = nil
			return HandleResult{}
		}
		if i == last && loop {
			retained := data
			m.data = &retained
		}
		data.fill(pattern, c)
	}
	if !loop {
		m.data = nil
	}
	return HandleResult{Match: m.markerMatch(&data), Continue: loop}
}

func (m *multiLineMatcher) Next(line string) *ProblemMatch {
	if m.data == nil {
		return nil
	}
	pattern := m.matcher.Patterns[len(m.matcher.Patterns)-1]
	c, ok := exec(pattern.Regexp, line)
	if !ok {
		m.data = nil
		return nil
	}
	data := *m.data
	data.fill(pattern, c)
	return m.markerMatch(&data)
}
