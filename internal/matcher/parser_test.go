package matcher

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupIndex(t *testing.T, g Group) int {
	t.Helper()
	i, ok := g.Index()
	require.True(t, ok, "group not set")
	return i
}

func TestPatternParser_Defaults(t *testing.T) {
	t.Run("line defaults", func(t *testing.T) {
		p := NewPatternParser(nil).Parse(PatternConfig{Regexp: `^(.*)$`})
		require.NotNil(t, p)
		assert.Equal(t, KindLocation, p.Kind)
		assert.Equal(t, 1, groupIndex(t, p.File))
		assert.Equal(t, 2, groupIndex(t, p.Line))
		assert.Equal(t, 3, groupIndex(t, p.Character))
		assert.Equal(t, 0, groupIndex(t, p.Message))
		assert.False(t, p.Location.IsSet())
	})

	t.Run("location defaults", func(t *testing.T) {
		p := NewPatternParser(nil).Parse(PatternConfig{Regexp: `^(.*)$`, Location: intp(2)})
		require.NotNil(t, p)
		assert.Equal(t, 1, groupIndex(t, p.File))
		assert.Equal(t, 0, groupIndex(t, p.Message))
		assert.False(t, p.Line.IsSet())
		assert.False(t, p.Character.IsSet())
	})

	t.Run("file kind defaults", func(t *testing.T) {
		p := NewPatternParser(nil).Parse(PatternConfig{Regexp: `^(.*)$`, Kind: "FILE"})
		require.NotNil(t, p)
		assert.Equal(t, KindFile, p.Kind)
		assert.False(t, p.Line.IsSet())
	})

	t.Run("explicit groups win", func(t *testing.T) {
		p := NewPatternParser(nil).Parse(PatternConfig{Regexp: `^(.*)$`, File: intp(4), Column: intp(7), EndColumn: intp(8)})
		require.NotNil(t, p)
		assert.Equal(t, 4, groupIndex(t, p.File))
		assert.Equal(t, 7, groupIndex(t, p.Character))
		assert.Equal(t, 8, groupIndex(t, p.EndCharacter))
	})
}

func TestPatternParser_InvalidRegexp(t *testing.T) {
	bag := NewBagReporter()
	assert.Nil(t, NewPatternParser(bag).Parse(PatternConfig{Regexp: `(`}))
	assert.Equal(t, StateError, bag.State())
	require.Len(t, bag.Messages(StateError), 1)
	assert.Contains(t, bag.Messages(StateError)[0], "not a valid regular expression")
}

func TestPatternParser_MultiLine(t *testing.T) {
	t.Run("loop only on last stage", func(t *testing.T) {
		bag := NewBagReporter()
		ps := NewPatternParser(bag).ParseMultiLine([]PatternConfig{
			{Regexp: `^(.*)$`, File: intp(1), Loop: boolp(true)},
			{Regexp: `^(\d+) (.*)$`, Line: intp(1), Message: intp(2), Loop: boolp(true)},
		})
		require.Len(t, ps, 2)
		assert.False(t, ps[0].Loop)
		assert.True(t, ps[1].Loop)
		assert.Equal(t, KindLocation, ps[0].Kind)
		assert.Equal(t, StateWarning, bag.State())
	})

	t.Run("no defaults are applied", func(t *testing.T) {
		bag := NewBagReporter()
		ps := NewPatternParser(bag).ParseMultiLine([]PatternConfig{
			{Regexp: `^(.*)$`, File: intp(1)},
			{Regexp: `^(.*)$`, Message: intp(1)},
		})
		assert.Nil(t, ps)
		assert.Equal(t, StateError, bag.State())
	})

	t.Run("missing file", func(t *testing.T) {
		bag := NewBagReporter()
		ps := NewPatternParser(bag).ParseMultiLine([]PatternConfig{
			{Regexp: `^(.*)$`, Kind: "file", Message: intp(1)},
		})
		assert.Nil(t, ps)
		assert.Equal(t, StateError, bag.State())
	})

	t.Run("kind on later stage", func(t *testing.T) {
		bag := NewBagReporter()
		ps := NewPatternParser(bag).ParseMultiLine([]PatternConfig{
			{Regexp: `^(.*)$`, File: intp(1)},
			{Regexp: `^(\d+) (.*)$`, Kind: "file", Line: intp(1), Message: intp(2)},
		})
		assert.Len(t, ps, 2)
		assert.Equal(t, StateError, bag.State())
	})

	t.Run("empty", func(t *testing.T) {
		bag := NewBagReporter()
		assert.Nil(t, NewPatternParser(bag).ParseMultiLine(nil))
		assert.Equal(t, StateError, bag.State())
	})
}

func TestPatternParser_ParseNamed(t *testing.T) {
	var cfg NamedPatternConfig
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "stylish",
		"patterns": [
			{"regexp": "^(\\S.*)$", "file": 1},
			{"regexp": "^\\s+(\\d+):(\\d+)\\s+(.*)$", "line": 1, "column": 2, "message": 3, "loop": true}
		]
	}`), &cfg))

	named := NewPatternParser(nil).ParseNamed(cfg)
	require.NotNil(t, named)
	assert.Equal(t, "stylish", named.Label)
	assert.True(t, named.MultiLine)
	assert.Len(t, named.Patterns, 2)

	bag := NewBagReporter()
	assert.Nil(t, NewPatternParser(bag).ParseNamed(NamedPatternConfig{PatternConfig: PatternConfig{Regexp: "x"}}))
	assert.Equal(t, StateError, bag.State())
}

func parseMatcherJSON(t *testing.T, reg *Registry, src string) (*ProblemMatcher, *BagReporter) {
	t.Helper()
	var cfg MatcherConfig
	require.NoError(t, json.Unmarshal([]byte(src), &cfg))
	bag := NewBagReporter()
	return NewMatcherParser(reg, bag).Parse(cfg), bag
}

func TestMatcherParser_FileLocation(t *testing.T) {
	tests := []struct {
		name     string
		location string
		kind     FileLocationKind
		prefix   string
	}{
		{"missing", ``, FileLocationRelative, WorkspaceFolderVariable},
		{"relative", `"fileLocation": "relative",`, FileLocationRelative, WorkspaceFolderVariable},
		{"autodetect", `"fileLocation": "autoDetect",`, FileLocationAutoDetect, WorkspaceFolderVariable},
		{"absolute", `"fileLocation": "absolute",`, FileLocationAbsolute, ""},
		{"absolute array", `"fileLocation": ["absolute"],`, FileLocationAbsolute, ""},
		{"relative with prefix", `"fileLocation": ["relative", "/src"],`, FileLocationRelative, "/src"},
		{"autodetect with prefix", `"fileLocation": ["autodetect", "${cwd}"],`, FileLocationAutoDetect, "${cwd}"},
		{"bad keyword", `"fileLocation": "sideways",`, FileLocationUnset, ""},
		{"relative without prefix", `"fileLocation": ["relative"],`, FileLocationUnset, ""},
		{"absolute with prefix", `"fileLocation": ["absolute", "/x"],`, FileLocationUnset, ""},
	}

	reg := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, bag := parseMatcherJSON(t, reg, `{`+tt.location+` "owner": "o", "pattern": "$go"}`)
			if tt.kind == FileLocationUnset {
				assert.Nil(t, m)
				assert.Equal(t, StateError, bag.State())
				return
			}
			require.NotNil(t, m, "reports: %v", bag.Messages(StateInfo))
			assert.Equal(t, tt.kind, m.FileLocation)
			assert.Equal(t, tt.prefix, m.FilePrefix)
		})
	}
}

func TestMatcherParser_Fields(t *testing.T) {
	reg := NewRegistry()

	m, bag := parseMatcherJSON(t, reg, `{
		"name": "lint",
		"source": "lint",
		"applyTo": "openDocuments",
		"severity": "warning",
		"pattern": {"regexp": "^(\\S+):(\\d+):(\\d+): (.*)$", "message": 4}
	}`)
	require.NotNil(t, m, "reports: %v", bag.Messages(StateInfo))
	assert.True(t, bag.IsOK())
	assert.Equal(t, "lint", m.Name)
	assert.Equal(t, "lint", m.Label)
	assert.NotEmpty(t, m.Owner)
	assert.Equal(t, ApplyToOpenDocuments, m.ApplyTo)
	assert.Equal(t, SeverityWarning, m.Severity)
	assert.False(t, m.MultiLine)
	require.Len(t, m.Patterns, 1)
	assert.Equal(t, 4, groupIndex(t, m.Patterns[0].Message))

	other, _ := parseMatcherJSON(t, reg, `{"pattern": "$go"}`)
	require.NotNil(t, other)
	assert.NotEqual(t, m.Owner, other.Owner)
	assert.Equal(t, ApplyToAllDocuments, other.ApplyTo)
}

func TestMatcherParser_UnknownSeverity(t *testing.T) {
	m, bag := parseMatcherJSON(t, NewRegistry(), `{"owner": "o", "severity": "loud", "pattern": "$go"}`)
	require.NotNil(t, m)
	assert.Equal(t, SeverityError, m.Severity)
	assert.Equal(t, StateInfo, bag.State())
}

func TestMatcherParser_PatternReferences(t *testing.T) {
	reg := NewRegistry()

	m, _ := parseMatcherJSON(t, reg, `{"owner": "o", "pattern": "$eslint-stylish"}`)
	require.NotNil(t, m)
	assert.True(t, m.MultiLine)
	assert.Len(t, m.Patterns, 2)

	for _, ref := range []string{`"$nope"`, `""`, `"go"`} {
		m, bag := parseMatcherJSON(t, reg, `{"owner": "o", "pattern": `+ref+`}`)
		assert.Nil(t, m, ref)
		assert.Equal(t, StateError, bag.State(), ref)
	}

	m, bag := parseMatcherJSON(t, reg, `{"owner": "o"}`)
	assert.Nil(t, m)
	assert.Equal(t, StateError, bag.State())
}

func TestMatcherParser_Base(t *testing.T) {
	reg := NewRegistry()
	base, ok := reg.Matcher("go")
	require.True(t, ok)

	m, bag := parseMatcherJSON(t, reg, `{"base": "$go", "owner": "mine", "fileLocation": "absolute"}`)
	require.NotNil(t, m, "reports: %v", bag.Messages(StateInfo))
	assert.Equal(t, "mine", m.Owner)
	assert.Equal(t, FileLocationAbsolute, m.FileLocation)
	assert.Equal(t, base.Source, m.Source)
	assert.Equal(t, base.Patterns, m.Patterns)

	// The registered matcher is unchanged.
	assert.Equal(t, "go", base.Owner)
	assert.Equal(t, FileLocationRelative, base.FileLocation)

	m, bag = parseMatcherJSON(t, reg, `{"base": "$missing"}`)
	assert.Nil(t, m)
	assert.Equal(t, StateError, bag.State())

	m, bag = parseMatcherJSON(t, reg, `{"base": "go", "owner": "o", "pattern": "$go"}`)
	assert.Nil(t, m)
	assert.Equal(t, StateError, bag.State())
}

func TestMatcherParser_Watching(t *testing.T) {
	reg := NewRegistry()

	t.Run("background", func(t *testing.T) {
		m, bag := parseMatcherJSON(t, reg, `{
			"owner": "o",
			"pattern": "$go",
			"background": {
				"activeOnStart": true,
				"beginsPattern": "^Starting",
				"endsPattern": {"regexp": "^Done (\\S+)", "file": 0}
			}
		}`)
		require.NotNil(t, m, "reports: %v", bag.Messages(StateInfo))
		require.NotNil(t, m.Watching)
		assert.True(t, m.Watching.ActiveOnStart)
		assert.Equal(t, 1, groupIndex(t, m.Watching.BeginsPattern.File))
		assert.Equal(t, 1, groupIndex(t, m.Watching.EndsPattern.File))
	})

	t.Run("watching alias with file group", func(t *testing.T) {
		m, _ := parseMatcherJSON(t, reg, `{
			"owner": "o",
			"pattern": "$go",
			"watching": {
				"beginsPattern": {"regexp": "^change in (\\S+) at (\\S+)", "file": 2},
				"endsPattern": "^idle"
			}
		}`)
		require.NotNil(t, m)
		require.NotNil(t, m.Watching)
		assert.False(t, m.Watching.ActiveOnStart)
		assert.Equal(t, 2, groupIndex(t, m.Watching.BeginsPattern.File))
	})

	t.Run("legacy", func(t *testing.T) {
		m, _ := parseMatcherJSON(t, reg, `{
			"owner": "o",
			"pattern": "$go",
			"watchedTaskBeginsRegExp": "^begin",
			"watchedTaskEndsRegExp": "^end"
		}`)
		require.NotNil(t, m)
		require.NotNil(t, m.Watching)
		assert.False(t, m.Watching.BeginsPattern.File.IsSet())
	})

	t.Run("half a pair", func(t *testing.T) {
		m, bag := parseMatcherJSON(t, reg, `{
			"owner": "o",
			"pattern": "$go",
			"background": {"beginsPattern": "^begin"}
		}`)
		require.NotNil(t, m)
		assert.Nil(t, m.Watching)
		assert.Equal(t, StateError, bag.State())
	})
}
