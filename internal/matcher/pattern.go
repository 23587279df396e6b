package matcher

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// ProblemLocationKind says whether a match points at a whole file or at a
// location inside it.
type ProblemLocationKind int

const (
	// KindUnset means the pattern did not specify a kind.
	KindUnset ProblemLocationKind = iota
	// KindFile means the problem covers the whole file.
	KindFile
	// KindLocation means the problem has a line (and maybe column) span.
	KindLocation
)

// String returns the configuration spelling of k.
func (k ProblemLocationKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindLocation:
		return "location"
	default:
		return ""
	}
}

// ParseProblemLocationKind parses "file" or "location" case-insensitively.
func ParseProblemLocationKind(s string) (ProblemLocationKind, bool) {
	switch strings.ToLower(s) {
	case "file":
		return KindFile, true
	case "location":
		return KindLocation, true
	default:
		return KindUnset, false
	}
}

// FileLocationKind says how a captured file name becomes a resource.
type FileLocationKind int

const (
	// FileLocationUnset means no file location was configured.
	FileLocationUnset FileLocationKind = iota
	// FileLocationAbsolute uses the captured path as is.
	FileLocationAbsolute
	// FileLocationRelative joins the captured path onto the matcher's prefix.
	FileLocationRelative
	// FileLocationAutoDetect is accepted in configuration but cannot be resolved.
	FileLocationAutoDetect
)

// String returns the configuration spelling of k.
func (k FileLocationKind) String() string {
	switch k {
	case FileLocationAbsolute:
		return "absolute"
	case FileLocationRelative:
		return "relative"
	case FileLocationAutoDetect:
		return "autodetect"
	default:
		return ""
	}
}

// ParseFileLocationKind parses a file location keyword case-insensitively.
func ParseFileLocationKind(s string) (FileLocationKind, bool) {
	switch strings.ToLower(s) {
	case "absolute":
		return FileLocationAbsolute, true
	case "relative":
		return FileLocationRelative, true
	case "autodetect":
		return FileLocationAutoDetect, true
	default:
		return FileLocationUnset, false
	}
}

// ApplyTo is the document scope a matcher is meant for. It is parsed and
// carried but not used to filter matches.
type ApplyTo int

const (
	// ApplyToAllDocuments applies to every document.
	ApplyToAllDocuments ApplyTo = iota
	// ApplyToOpenDocuments applies to documents open in the editor.
	ApplyToOpenDocuments
	// ApplyToClosedDocuments applies to documents not open in the editor.
	ApplyToClosedDocuments
)

// String returns the configuration spelling of a.
func (a ApplyTo) String() string {
	switch a {
	case ApplyToOpenDocuments:
		return "openDocuments"
	case ApplyToClosedDocuments:
		return "closedDocuments"
	default:
		return "allDocuments"
	}
}

// ParseApplyTo parses an applyTo keyword case-insensitively.
func ParseApplyTo(s string) (ApplyTo, bool) {
	switch strings.ToLower(s) {
	case "alldocuments":
		return ApplyToAllDocuments, true
	case "opendocuments":
		return ApplyToOpenDocuments, true
	case "closeddocuments":
		return ApplyToClosedDocuments, true
	default:
		return ApplyToAllDocuments, false
	}
}

// Group is an optional 1-based capture group index; group 0 is the whole match.
type Group struct {
	index int
	set   bool
}

// Capture returns the Group for capture group i.
func Capture(i int) Group {
	return Group{index: i, set: true}
}

// Index returns the group index and whether it is set.
func (g Group) Index() (int, bool) {
	return g.index, g.set
}

// IsSet reports whether the group is configured.
func (g Group) IsSet() bool {
	return g.set
}

// Groups maps problem fields to capture groups.
type Groups struct {
	File         Group
	Message      Group
	Location     Group
	Line         Group
	Character    Group
	EndLine      Group
	EndCharacter Group
	Code         Group
	Severity     Group
}

// ProblemPattern is one compiled matching stage.
type ProblemPattern struct {
	Regexp *regexp2.Regexp

	// Kind is only meaningful on the first stage of a matcher.
	Kind ProblemLocationKind

	Groups

	// Loop is only honoured on the last stage of a multi-line matcher.
	Loop bool
}

// NamedPattern is a registered pattern or pattern sequence.
type NamedPattern struct {
	Name      string
	Label     string
	Patterns  []*ProblemPattern
	MultiLine bool
}

// WatchingPattern detects the beginning or end of background activity.
type WatchingPattern struct {
	Regexp *regexp2.Regexp

	// File optionally names the group holding the file the activity concerns.
	File Group
}

// WatchingMatcher brackets the activity of a background task.
type WatchingMatcher struct {
	ActiveOnStart bool
	BeginsPattern WatchingPattern
	EndsPattern   WatchingPattern
}

// ProblemMatcher is a compiled, immutable problem matcher.
type ProblemMatcher struct {
	Name  string
	Label string

	// Owner is the marker bucket this matcher reports into.
	Owner string

	// Source is the display label copied onto each marker.
	Source string

	ApplyTo      ApplyTo
	FileLocation FileLocationKind

	// FilePrefix is joined with relative file names. It may contain
	// ${workspaceFolder} and other variables.
	FilePrefix string

	Patterns []*ProblemPattern

	// MultiLine selects the multi-line matcher even for a single stage.
	MultiLine bool

	// Severity is the default severity; empty means error.
	Severity Severity

	Watching *WatchingMatcher
}

// Clone returns a copy of m that can be modified without affecting m.
// Compiled patterns are shared because they are immutable.
func (m *ProblemMatcher) Clone() *ProblemMatcher {
	c := *m
	c.Patterns = append([]*ProblemPattern(nil), m.Patterns...)
	if m.Watching != nil {
		w := *m.Watching
		c.Watching = &w
	}
	return &c
}

// MatchLength returns the number of raw lines the matcher needs.
func (m *ProblemMatcher) MatchLength() int {
	return len(m.Patterns)
}
