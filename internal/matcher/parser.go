package matcher

import (
	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
)

// WorkspaceFolderVariable is the prefix given to relative matchers that do
// not name one.
const WorkspaceFolderVariable = "${workspaceFolder}"

// PatternParser compiles pattern configurations into ProblemPatterns.
type PatternParser struct {
	parserBase
}

// NewPatternParser creates a parser reporting to r. A nil r discards reports.
func NewPatternParser(r Reporter) *PatternParser {
	return &PatternParser{parserBase: newParserBase(r)}
}

// Parse compiles a single pattern, applying the default capture groups.
// It returns nil if the pattern is invalid.
func (p *PatternParser) Parse(cfg PatternConfig) *ProblemPattern {
	result := p.createSingle(cfg, true)
	if result == nil {
		return nil
	}
	if result.Kind == KindUnset {
		result.Kind = KindLocation
	}
	if !p.validate([]*ProblemPattern{result}) {
		return nil
	}
	return result
}

// ParseMultiLine compiles a pattern sequence. Loop is cleared on every stage
// but the last. It returns nil if the sequence is invalid.
func (p *PatternParser) ParseMultiLine(cfgs []PatternConfig) []*ProblemPattern {
	if len(cfgs) == 0 {
		p.errorf("The problem pattern is invalid. A multi-line pattern must have at least one element.")
		return nil
	}

	result := make([]*ProblemPattern, 0, len(cfgs))
	for i, cfg := range cfgs {
		pattern := p.createSingle(cfg, false)
		if pattern == nil {
			return nil
		}
		if i < len(cfgs)-1 && pattern.Loop {
			pattern.Loop = false
			p.warnf("The loop property is only supported on the last line matcher.")
		}
		result = append(result, pattern)
	}
	if result[0].Kind == KindUnset {
		result[0].Kind = KindLocation
	}
	if !p.validate(result) {
		return nil
	}
	return result
}

// ParseNamed compiles a named single or multi-line pattern.
func (p *PatternParser) ParseNamed(cfg NamedPatternConfig) *NamedPattern {
	if cfg.Name == "" {
		p.errorf("The problem pattern is missing a name.")
		return nil
	}
	label := cfg.Label
	if label == "" {
		label = cfg.Name
	}

	if cfg.IsMultiLine() {
		patterns := p.ParseMultiLine(cfg.Patterns)
		if patterns == nil {
			return nil
		}
		return &NamedPattern{Name: cfg.Name, Label: label, Patterns: patterns, MultiLine: true}
	}

	pattern := p.Parse(cfg.PatternConfig)
	if pattern == nil {
		return nil
	}
	return &NamedPattern{Name: cfg.Name, Label: label, Patterns: []*ProblemPattern{pattern}}
}

func (p *PatternParser) createSingle(cfg PatternConfig, setDefaults bool) *ProblemPattern {
	re, err := CompileRegexp(cfg.Regexp)
	if err != nil {
		p.errorf("Error: The string %s is not a valid regular expression: %v", cfg.Regexp, err)
		return nil
	}

	result := &ProblemPattern{Regexp: re}
	if cfg.Kind != "" {
		kind, ok := ParseProblemLocationKind(cfg.Kind)
		if !ok {
			p.warnf("Unknown problem location kind %q. Valid values are file and location.", cfg.Kind)
		}
		result.Kind = kind
	}

	copyGroup(&result.File, cfg.File)
	copyGroup(&result.Location, cfg.Location)
	copyGroup(&result.Line, cfg.Line)
	copyGroup(&result.Character, cfg.Column)
	copyGroup(&result.EndLine, cfg.EndLine)
	copyGroup(&result.EndCharacter, cfg.EndColumn)
	copyGroup(&result.Severity, cfg.Severity)
	copyGroup(&result.Code, cfg.Code)
	copyGroup(&result.Message, cfg.Message)
	if cfg.Loop != nil {
		result.Loop = *cfg.Loop
	}

	if setDefaults {
		if result.Location.IsSet() || result.Kind == KindFile {
			defaultGroup(&result.File, 1)
			defaultGroup(&result.Message, 0)
		} else {
			defaultGroup(&result.File, 1)
			defaultGroup(&result.Line, 2)
			defaultGroup(&result.Character, 3)
			defaultGroup(&result.Message, 0)
		}
	}
	return result
}

func copyGroup(dst *Group, src *int) {
	if src != nil {
		*dst = Capture(*src)
	}
}

func defaultGroup(dst *Group, index int) {
	if !dst.IsSet() {
		*dst = Capture(index)
	}
}

// validate checks that the stages together capture a file and a message,
// plus a line or location unless the first stage has kind file.
func (p *PatternParser) validate(patterns []*ProblemPattern) bool {
	var file, message, location, line bool
	kind := patterns[0].Kind
	if kind == KindUnset {
		kind = KindLocation
	}

	for i, pattern := range patterns {
		if i != 0 && pattern.Kind != KindUnset {
			p.errorf("The problem pattern is invalid. The kind property must be provided only in the first element.")
		}
		file = file || pattern.File.IsSet()
		message = message || pattern.Message.IsSet()
		location = location || pattern.Location.IsSet()
		line = line || pattern.Line.IsSet()
	}

	if !file || !message {
		p.errorf("The problem pattern is invalid. It must have at least have a file and a message.")
		return false
	}
	if kind == KindLocation && !location && !line {
		p.errorf(`The problem pattern is invalid. It must either have kind: "file" or have a line or location match group.`)
		return false
	}
	return true
}

// MatcherParser compiles matcher configurations, resolving "$name"
// references against a Registry.
type MatcherParser struct {
	parserBase
	registry *Registry
}

// NewMatcherParser creates a parser that resolves references in registry
// and reports to r.
func NewMatcherParser(registry *Registry, r Reporter) *MatcherParser {
	return &MatcherParser{parserBase: newParserBase(r), registry: registry}
}

// Parse compiles cfg. It returns nil if the configuration does not describe
// a usable matcher.
func (p *MatcherParser) Parse(cfg MatcherConfig) *ProblemMatcher {
	result := p.create(cfg)
	if !p.checkValid(cfg, result) {
		return nil
	}
	p.addWatching(cfg, result)
	return result
}

func (p *MatcherParser) checkValid(cfg MatcherConfig, m *ProblemMatcher) bool {
	switch {
	case m == nil:
		p.errorf("Error: the description can't be converted into a problem matcher:\n%s", cfg.describe())
	case len(m.Patterns) == 0:
		p.errorf("Error: the description doesn't define a valid problem pattern:\n%s", cfg.describe())
	case m.Owner == "":
		p.errorf("Error: the description doesn't define an owner:\n%s", cfg.describe())
	case m.FileLocation == FileLocationUnset:
		p.errorf("Error: the description doesn't define a file location:\n%s", cfg.describe())
	default:
		return true
	}
	return false
}

func (p *MatcherParser) create(cfg MatcherConfig) *ProblemMatcher {
	owner := uuid.NewString()
	if cfg.Owner != nil {
		owner = *cfg.Owner
	}
	var source string
	if cfg.Source != nil {
		source = *cfg.Source
	}
	applyTo := ApplyToAllDocuments
	if cfg.ApplyTo != nil {
		applyTo, _ = ParseApplyTo(*cfg.ApplyTo)
	}

	fileLocation, filePrefix := p.fileLocation(cfg.FileLocation)

	var patterns []*ProblemPattern
	var multiLine bool
	if cfg.Pattern != nil {
		patterns, multiLine = p.createPattern(*cfg.Pattern)
	}

	var severity Severity
	if cfg.Severity != nil && *cfg.Severity != "" {
		severity = ParseSeverity(*cfg.Severity)
		if severity == SeverityIgnore {
			p.infof("Info: unknown severity %s. Valid values are error, warning and info.", *cfg.Severity)
			severity = SeverityError
		}
	}

	var result *ProblemMatcher
	if cfg.Base != "" {
		if len(cfg.Base) > 1 && cfg.Base[0] == '$' {
			base, ok := p.registry.Matcher(cfg.Base[1:])
			if !ok {
				p.errorf("Error: the base problem matcher %s doesn't exist.", cfg.Base)
			} else {
				result = base.Clone()
				if cfg.Owner != nil {
					result.Owner = owner
				}
				if cfg.Source != nil {
					result.Source = source
				}
				if cfg.FileLocation != nil && fileLocation != FileLocationUnset {
					result.FileLocation = fileLocation
					result.FilePrefix = filePrefix
				}
				if cfg.Pattern != nil && patterns != nil {
					result.Patterns = patterns
					result.MultiLine = multiLine
				}
				if cfg.Severity != nil && severity != "" {
					result.Severity = severity
				}
				if cfg.ApplyTo != nil {
					result.ApplyTo = applyTo
				}
			}
		} else {
			p.errorf("Error: the base %s is not a valid problem matcher reference.", cfg.Base)
		}
	} else if fileLocation != FileLocationUnset && patterns != nil {
		result = &ProblemMatcher{
			Owner:        owner,
			Source:       source,
			ApplyTo:      applyTo,
			FileLocation: fileLocation,
			FilePrefix:   filePrefix,
			Patterns:     patterns,
			MultiLine:    multiLine,
			Severity:     severity,
		}
	}

	if result != nil && cfg.Name != "" {
		result.Name = cfg.Name
		result.Label = cfg.Label
		if result.Label == "" {
			result.Label = cfg.Name
		}
	}
	return result
}

func (p *MatcherParser) fileLocation(cfg *FileLocationConfig) (FileLocationKind, string) {
	if cfg == nil {
		return FileLocationRelative, WorkspaceFolderVariable
	}

	if !cfg.IsArray {
		if len(cfg.Values) == 0 {
			return FileLocationUnset, ""
		}
		kind, ok := ParseFileLocationKind(cfg.Values[0])
		if !ok {
			return FileLocationUnset, ""
		}
		if kind == FileLocationRelative || kind == FileLocationAutoDetect {
			return kind, WorkspaceFolderVariable
		}
		return kind, ""
	}

	if len(cfg.Values) == 0 {
		return FileLocationUnset, ""
	}
	kind, _ := ParseFileLocationKind(cfg.Values[0])
	switch {
	case len(cfg.Values) == 1 && kind == FileLocationAbsolute:
		return kind, ""
	case len(cfg.Values) == 2 && (kind == FileLocationRelative || kind == FileLocationAutoDetect) && cfg.Values[1] != "":
		return kind, cfg.Values[1]
	}
	return FileLocationUnset, ""
}

func (p *MatcherParser) createPattern(ref PatternRef) ([]*ProblemPattern, bool) {
	switch {
	case ref.IsRef():
		name := ref.Ref
		if len(name) > 1 && name[0] == '$' {
			named, ok := p.registry.Pattern(name[1:])
			if !ok {
				p.errorf("Error: Pattern %s doesn't exist.", name)
				return nil, false
			}
			return named.Patterns, named.MultiLine
		}
		if name == "" {
			p.errorf("Error: The pattern property refers to an empty identifier.")
		} else {
			p.errorf("Error: The pattern property %s is not a valid pattern variable name.", name)
		}
		return nil, false
	case ref.Multi != nil:
		patterns := NewPatternParser(p.reporter).ParseMultiLine(ref.Multi)
		return patterns, patterns != nil
	case ref.Single != nil:
		pattern := NewPatternParser(p.reporter).Parse(*ref.Single)
		if pattern == nil {
			return nil, false
		}
		return []*ProblemPattern{pattern}, false
	}
	return nil, false
}

func (p *MatcherParser) addWatching(cfg MatcherConfig, m *ProblemMatcher) {
	if cfg.WatchedTaskBeginsRegExp != "" && cfg.WatchedTaskEndsRegExp != "" {
		begins := p.compile(cfg.WatchedTaskBeginsRegExp)
		ends := p.compile(cfg.WatchedTaskEndsRegExp)
		if begins != nil && ends != nil {
			m.Watching = &WatchingMatcher{
				BeginsPattern: WatchingPattern{Regexp: begins},
				EndsPattern:   WatchingPattern{Regexp: ends},
			}
			return
		}
	}

	background := cfg.Background
	if background == nil {
		background = cfg.Watching
	}
	if background == nil {
		return
	}

	begins := p.createWatchingPattern(background.BeginsPattern)
	ends := p.createWatchingPattern(background.EndsPattern)
	if begins != nil && ends != nil {
		m.Watching = &WatchingMatcher{
			ActiveOnStart: background.ActiveOnStart != nil && *background.ActiveOnStart,
			BeginsPattern: *begins,
			EndsPattern:   *ends,
		}
		return
	}
	if begins != nil || ends != nil {
		p.errorf("A problem matcher must define both a begin pattern and an end pattern for watching.")
	}
}

func (p *MatcherParser) createWatchingPattern(cfg *WatchingPatternConfig) *WatchingPattern {
	if cfg == nil {
		return nil
	}
	re := p.compile(cfg.Regexp)
	if re == nil {
		return nil
	}
	file := Capture(1)
	if cfg.File != nil && *cfg.File != 0 {
		file = Capture(*cfg.File)
	}
	return &WatchingPattern{Regexp: re, File: file}
}

func (p *MatcherParser) compile(src string) *regexp2.Regexp {
	re, err := CompileRegexp(src)
	if err != nil {
		p.errorf("Error: The string %s is not a valid regular expression: %v", src, err)
		return nil
	}
	return re
}
