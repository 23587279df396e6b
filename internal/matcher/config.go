package matcher

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// PatternConfig is the declarative form of one pattern stage. Group fields
// are 1-based capture group indices; 0 selects the whole match.
type PatternConfig struct {
	Regexp    string `json:"regexp"`
	Kind      string `json:"kind,omitempty"`
	File      *int   `json:"file,omitempty"`
	Location  *int   `json:"location,omitempty"`
	Line      *int   `json:"line,omitempty"`
	Column    *int   `json:"column,omitempty"`
	EndLine   *int   `json:"endLine,omitempty"`
	EndColumn *int   `json:"endColumn,omitempty"`
	Severity  *int   `json:"severity,omitempty"`
	Code      *int   `json:"code,omitempty"`
	Message   *int   `json:"message,omitempty"`
	Loop      *bool  `json:"loop,omitempty"`
}

// NamedPatternConfig is a named single pattern, or a named multi-line
// pattern when Patterns is non-nil.
type NamedPatternConfig struct {
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`

	PatternConfig

	Patterns []PatternConfig `json:"patterns,omitempty"`
}

// IsMultiLine reports whether c describes a pattern sequence.
func (c NamedPatternConfig) IsMultiLine() bool {
	return c.Patterns != nil
}

// PatternRef is the pattern property of a matcher: a "$name" reference,
// a single pattern, or a pattern sequence.
type PatternRef struct {
	Ref    string
	Single *PatternConfig
	Multi  []PatternConfig

	isRef bool
}

// RefPattern returns a PatternRef naming a registered pattern.
func RefPattern(name string) *PatternRef {
	return &PatternRef{Ref: name, isRef: true}
}

// IsRef reports whether r is a string reference.
func (r PatternRef) IsRef() bool {
	return r.isRef
}

// UnmarshalJSON accepts a string, an object or an array.
func (r *PatternRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty pattern")
	}
	*r = PatternRef{}
	switch data[0] {
	case '"':
		r.isRef = true
		return json.Unmarshal(data, &r.Ref)
	case '[':
		r.Multi = []PatternConfig{}
		return json.Unmarshal(data, &r.Multi)
	case '{':
		r.Single = &PatternConfig{}
		return json.Unmarshal(data, r.Single)
	default:
		return fmt.Errorf("pattern must be a string, object or array, got %s", data)
	}
}

// MarshalJSON writes r back in the form it was read.
func (r PatternRef) MarshalJSON() ([]byte, error) {
	switch {
	case r.isRef:
		return json.Marshal(r.Ref)
	case r.Multi != nil:
		return json.Marshal(r.Multi)
	default:
		return json.Marshal(r.Single)
	}
}

// FileLocationConfig is either a keyword or a keyword array such as
// ["relative", "/some/prefix"].
type FileLocationConfig struct {
	Values  []string
	IsArray bool
}

// UnmarshalJSON accepts a string or an array of strings.
func (f *FileLocationConfig) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = FileLocationConfig{}
	if len(data) > 0 && data[0] == '[' {
		f.IsArray = true
		return json.Unmarshal(data, &f.Values)
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("fileLocation must be a string or an array of strings: %w", err)
	}
	f.Values = []string{s}
	return nil
}

// MarshalJSON writes f back in the form it was read.
func (f FileLocationConfig) MarshalJSON() ([]byte, error) {
	if f.IsArray || len(f.Values) != 1 {
		return json.Marshal(f.Values)
	}
	return json.Marshal(f.Values[0])
}

// WatchingPatternConfig is a regexp string or {regexp, file}.
type WatchingPatternConfig struct {
	Regexp string `json:"regexp"`
	File   *int   `json:"file,omitempty"`
}

// UnmarshalJSON accepts a string or an object.
func (w *WatchingPatternConfig) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*w = WatchingPatternConfig{}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &w.Regexp)
	}
	type plain WatchingPatternConfig
	return json.Unmarshal(data, (*plain)(w))
}

// BackgroundConfig describes background task begin/end detection.
type BackgroundConfig struct {
	ActiveOnStart *bool                  `json:"activeOnStart,omitempty"`
	BeginsPattern *WatchingPatternConfig `json:"beginsPattern,omitempty"`
	EndsPattern   *WatchingPatternConfig `json:"endsPattern,omitempty"`
}

// MatcherConfig is the declarative form of a problem matcher.
type MatcherConfig struct {
	Name  string `json:"name,omitempty"`
	Label string `json:"label,omitempty"`

	// Base names a registered matcher ("$name") to inherit from.
	Base string `json:"base,omitempty"`

	Owner        *string             `json:"owner,omitempty"`
	Source       *string             `json:"source,omitempty"`
	ApplyTo      *string             `json:"applyTo,omitempty"`
	Severity     *string             `json:"severity,omitempty"`
	FileLocation *FileLocationConfig `json:"fileLocation,omitempty"`
	Pattern      *PatternRef         `json:"pattern,omitempty"`

	WatchedTaskBeginsRegExp string            `json:"watchedTaskBeginsRegExp,omitempty"`
	WatchedTaskEndsRegExp   string            `json:"watchedTaskEndsRegExp,omitempty"`
	Background              *BackgroundConfig `json:"background,omitempty"`
	Watching                *BackgroundConfig `json:"watching,omitempty"`
}

// Contribution is a file contributing named patterns and matchers.
type Contribution struct {
	ProblemPatterns []NamedPatternConfig `json:"problemPatterns,omitempty"`
	ProblemMatchers []MatcherConfig      `json:"problemMatchers,omitempty"`
}

// describe names c for configuration error messages.
func (c MatcherConfig) describe() string {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%+v", c)
	}
	return string(data)
}
