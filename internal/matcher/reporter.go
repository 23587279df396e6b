package matcher

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/buildmarkers/internal/logging"
)

// ValidationState is the worst problem reported while compiling configuration.
type ValidationState int

const (
	// StateOK means nothing was reported.
	StateOK ValidationState = iota
	// StateInfo means only informational messages were reported.
	StateInfo
	// StateWarning means at least one warning was reported.
	StateWarning
	// StateError means at least one error was reported.
	StateError
	// StateFatal means a fatal problem was reported.
	StateFatal
)

// String returns the state name.
func (s ValidationState) String() string {
	switch s {
	case StateOK:
		return "ok"
	case StateInfo:
		return "info"
	case StateWarning:
		return "warning"
	case StateError:
		return "error"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Reporter receives configuration problems found by the parsers.
type Reporter interface {
	Info(message string)
	Warn(message string)
	Error(message string)
	Fatal(message string)
}

// Report is one message received by a BagReporter.
type Report struct {
	State   ValidationState
	Message string
}

// BagReporter keeps every report and the worst state seen.
type BagReporter struct {
	mu      sync.Mutex
	reports []Report
	state   ValidationState
}

// NewBagReporter creates an empty BagReporter.
func NewBagReporter() *BagReporter {
	return &BagReporter{}
}

func (b *BagReporter) add(state ValidationState, msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports = append(b.reports, Report{State: state, Message: msg})
	if state > b.state {
		b.state = state
	}
}

// Info implements Reporter.
func (b *BagReporter) Info(msg string) { b.add(StateInfo, msg) }

// Warn implements Reporter.
func (b *BagReporter) Warn(msg string) { b.add(StateWarning, msg) }

// Error implements Reporter.
func (b *BagReporter) Error(msg string) { b.add(StateError, msg) }

// Fatal implements Reporter.
func (b *BagReporter) Fatal(msg string) { b.add(StateFatal, msg) }

// State returns the worst state reported so far.
func (b *BagReporter) State() ValidationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOK reports whether nothing worse than info was reported.
func (b *BagReporter) IsOK() bool {
	return b.State() <= StateInfo
}

// Reports returns a copy of the collected reports.
func (b *BagReporter) Reports() []Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Report, len(b.reports))
	copy(out, b.reports)
	return out
}

// Messages returns the messages reported at or above state.
func (b *BagReporter) Messages(state ValidationState) []string {
	var out []string
	for _, r := range b.Reports() {
		if r.State >= state {
			out = append(out, r.Message)
		}
	}
	return out
}

// LogReporter forwards reports to a logger.
type LogReporter struct {
	Log *logging.Logger
}

// Info implements Reporter.
func (r LogReporter) Info(msg string) { r.Log.Info("%s", msg) }

// Warn implements Reporter.
func (r LogReporter) Warn(msg string) { r.Log.Warn("%s", msg) }

// Error implements Reporter.
func (r LogReporter) Error(msg string) { r.Log.Error("%s", msg) }

// Fatal implements Reporter.
func (r LogReporter) Fatal(msg string) { r.Log.Error("fatal: %s", msg) }

// MultiReporter fans reports out to several reporters.
type MultiReporter []Reporter

// Info implements Reporter.
func (m MultiReporter) Info(msg string) {
	for _, r := range m {
		r.Info(msg)
	}
}

// Warn implements Reporter.
func (m MultiReporter) Warn(msg string) {
	for _, r := range m {
		r.Warn(msg)
	}
}

// Error implements Reporter.
func (m MultiReporter) Error(msg string) {
	for _, r := range m {
		r.Error(msg)
	}
}

// Fatal implements Reporter.
func (m MultiReporter) Fatal(msg string) {
	for _, r := range m {
		r.Fatal(msg)
	}
}

// nopReporter discards everything.
type nopReporter struct{}

func (nopReporter) Info(string)  {}
func (nopReporter) Warn(string)  {}
func (nopReporter) Error(string) {}
func (nopReporter) Fatal(string) {}

// parserBase formats messages for a Reporter.
type parserBase struct {
	reporter Reporter
}

func newParserBase(r Reporter) parserBase {
	if r == nil {
		r = nopReporter{}
	}
	return parserBase{reporter: r}
}

func (p parserBase) infof(format string, args ...any) {
	p.reporter.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (p parserBase) warnf(format string, args ...any) {
	p.reporter.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (p parserBase) errorf(format string, args ...any) {
	p.reporter.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
