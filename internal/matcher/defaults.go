package matcher

// Built-in patterns and matchers for common compilers and linters.

const (
	// locationGroup matches the (line), (line,col) and (line,col,endLine,endCol)
	// forms used by Microsoft tools.
	locationGroup = `(\d+|\d+,\d+|\d+,\d+,\d+,\d+)`
)

func single(name string, p *ProblemPattern) *NamedPattern {
	return &NamedPattern{Name: name, Label: name, Patterns: []*ProblemPattern{p}}
}

func multi(name string, ps ...*ProblemPattern) *NamedPattern {
	return &NamedPattern{Name: name, Label: name, Patterns: ps, MultiLine: true}
}

func msLocationPattern(codePrefix string) *ProblemPattern {
	return &ProblemPattern{
		Regexp: MustCompileRegexp(`^(\S.*)\(` + locationGroup + `\):\s+(error|warning|info)\s+(` + codePrefix + `\d+)\s*:\s*(.*)$`),
		Kind:   KindLocation,
		Groups: Groups{File: Capture(1), Location: Capture(2), Severity: Capture(3), Code: Capture(4), Message: Capture(5)},
	}
}

func defaultPatterns() []*NamedPattern {
	return []*NamedPattern{
		single("msCompile", &ProblemPattern{
			Regexp: MustCompileRegexp(`^(?:\s*\d+>)?(\S.*)\(` + locationGroup + `\)\s*:\s+((?:fatal +)?error|warning|info)\s+(\w+\d+)\s*:\s*(.*)$`),
			Kind:   KindLocation,
			Groups: Groups{File: Capture(1), Location: Capture(2), Severity: Capture(3), Code: Capture(4), Message: Capture(5)},
		}),
		single("gulp-tsc", &ProblemPattern{
			Regexp: MustCompileRegexp(`^([^\s].*)\(` + locationGroup + `\):\s+(\d+)\s+(.*)$`),
			Kind:   KindLocation,
			Groups: Groups{File: Capture(1), Location: Capture(2), Code: Capture(3), Message: Capture(4)},
		}),
		single("cpp", msLocationPattern("C")),
		single("csc", msLocationPattern("CS")),
		single("vb", msLocationPattern("BC")),
		single("lessCompile", &ProblemPattern{
			Regexp: MustCompileRegexp(`^\s*(.*) in file (.*) line no. (\d+)$`),
			Kind:   KindLocation,
			Groups: Groups{Message: Capture(1), File: Capture(2), Line: Capture(3)},
		}),
		single("jshint", &ProblemPattern{
			Regexp: MustCompileRegexp(`^(.*):\s+line\s+(\d+),\s+col\s+(\d+),\s(.+?)(?:\s+\((\w)(\d+)\))?$`),
			Kind:   KindLocation,
			Groups: Groups{File: Capture(1), Line: Capture(2), Character: Capture(3), Message: Capture(4), Severity: Capture(5), Code: Capture(6)},
		}),
		multi("jshint-stylish",
			&ProblemPattern{
				Regexp: MustCompileRegexp(`^(.+)$`),
				Kind:   KindLocation,
				Groups: Groups{File: Capture(1)},
			},
			&ProblemPattern{
				Regexp: MustCompileRegexp(`^\s+line\s+(\d+)\s+col\s+(\d+)\s+(.+?)(?:\s+\((\w)(\d+)\))?$`),
				Groups: Groups{Line: Capture(1), Character: Capture(2), Message: Capture(3), Severity: Capture(4), Code: Capture(5)},
				Loop:   true,
			},
		),
		single("eslint-compact", &ProblemPattern{
			Regexp: MustCompileRegexp(`^(.+):\sline\s(\d+),\scol\s(\d+),\s(Error|Warning|Info)\s-\s(.+)\s\((.+)\)$`),
			Kind:   KindLocation,
			Groups: Groups{File: Capture(1), Line: Capture(2), Character: Capture(3), Severity: Capture(4), Message: Capture(5), Code: Capture(6)},
		}),
		multi("eslint-stylish",
			&ProblemPattern{
				Regexp: MustCompileRegexp(`^((?:[a-zA-Z]:)*[./\\]+.*?)$`),
				Kind:   KindLocation,
				Groups: Groups{File: Capture(1)},
			},
			&ProblemPattern{
				Regexp: MustCompileRegexp(`^\s+(\d+):(\d+)\s+(error|warning|info)\s+(.+?)(?:\s\s+(.*))?$`),
				Groups: Groups{Line: Capture(1), Character: Capture(2), Severity: Capture(3), Message: Capture(4), Code: Capture(5)},
				Loop:   true,
			},
		),
		single("go", &ProblemPattern{
			Regexp: MustCompileRegexp(`^([^:]*: )?((.:)?[^:]*):(\d+)(:(\d+))?: (.*)$`),
			Kind:   KindLocation,
			Groups: Groups{File: Capture(2), Line: Capture(4), Character: Capture(6), Message: Capture(7)},
		}),
		single("gcc", &ProblemPattern{
			Regexp: MustCompileRegexp(`^(.+?):(\d+):(\d+):\s*(?:fatal\s+)?(error|warning|note):\s*(.+)$`),
			Kind:   KindLocation,
			Groups: Groups{File: Capture(1), Line: Capture(2), Character: Capture(3), Severity: Capture(4), Message: Capture(5)},
		}),
		single("tsc", &ProblemPattern{
			Regexp: MustCompileRegexp(`^(.+?)\((\d+),(\d+)\):\s*(error|warning|info)\s+(TS\d+)\s*:\s*(.+)$`),
			Kind:   KindLocation,
			Groups: Groups{File: Capture(1), Line: Capture(2), Character: Capture(3), Severity: Capture(4), Code: Capture(5), Message: Capture(6)},
		}),
		// pylint message ids start with a category letter; E and W map
		// directly, the rest fall back to the matcher severity.
		single("pylint", &ProblemPattern{
			Regexp: MustCompileRegexp(`^(.+?):(\d+):(\d+): ((\w)\d+): (.+)$`),
			Kind:   KindLocation,
			Groups: Groups{File: Capture(1), Line: Capture(2), Character: Capture(3), Code: Capture(4), Severity: Capture(5), Message: Capture(6)},
		}),
		multi("rustc",
			&ProblemPattern{
				Regexp: MustCompileRegexp(`^(error|warning)(?:\[(\w+)\])?: (.*)$`),
				Kind:   KindLocation,
				Groups: Groups{Severity: Capture(1), Code: Capture(2), Message: Capture(3)},
			},
			&ProblemPattern{
				Regexp: MustCompileRegexp(`^\s*-->\s*(.+):(\d+):(\d+)$`),
				Groups: Groups{File: Capture(1), Line: Capture(2), Character: Capture(3)},
			},
		),
	}
}

// defaultMatchers builds the built-in matchers from the patterns in
// patterns, skipping any whose pattern is missing.
func defaultMatchers(patterns map[string]*NamedPattern) []*ProblemMatcher {
	defs := []struct {
		name     string
		owner    string
		source   string
		location FileLocationKind
		prefix   string
		severity Severity
	}{
		{"msCompile", "msCompile", "cpp", FileLocationAbsolute, "", ""},
		{"lessCompile", "lessCompile", "less", FileLocationAbsolute, "", SeverityError},
		{"gulp-tsc", "typescript", "ts", FileLocationRelative, "${cwd}", ""},
		{"jshint", "jshint", "jshint", FileLocationAbsolute, "", ""},
		{"jshint-stylish", "jshint", "jshint", FileLocationAbsolute, "", ""},
		{"eslint-compact", "eslint", "eslint", FileLocationAbsolute, "", ""},
		{"eslint-stylish", "eslint", "eslint", FileLocationAbsolute, "", ""},
		{"go", "go", "go", FileLocationRelative, WorkspaceFolderVariable, ""},
		{"gcc", "gcc", "gcc", FileLocationRelative, WorkspaceFolderVariable, ""},
		{"tsc", "typescript", "ts", FileLocationRelative, WorkspaceFolderVariable, ""},
		{"pylint", "pylint", "pylint", FileLocationRelative, WorkspaceFolderVariable, SeverityWarning},
		{"rustc", "rustc", "rustc", FileLocationRelative, WorkspaceFolderVariable, ""},
	}

	result := make([]*ProblemMatcher, 0, len(defs))
	for _, d := range defs {
		p, ok := patterns[d.name]
		if !ok {
			continue
		}
		result = append(result, &ProblemMatcher{
			Name:         d.name,
			Label:        d.name,
			Owner:        d.owner,
			Source:       d.source,
			ApplyTo:      ApplyToAllDocuments,
			FileLocation: d.location,
			FilePrefix:   d.prefix,
			Patterns:     p.Patterns,
			MultiLine:    p.MultiLine,
			Severity:     d.severity,
		})
	}
	return result
}
