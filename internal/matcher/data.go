package matcher

import (
	"runtime"
	"strings"
)

// lineSeparator joins message captures from successive stages.
var lineSeparator = func() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}()

type field struct {
	value string
	set   bool
}

// problemData accumulates raw captures across the stages of one match.
// It is a value type; assigning it clones it.
type problemData struct {
	kind         ProblemLocationKind
	file         field
	location     field
	line         field
	character    field
	endLine      field
	endCharacter field
	message      field
	severity     field
	code         field
}

// fill records the captures of one stage. Message captures are appended to
// any earlier message; every other field keeps its first value.
func (d *problemData) fill(p *ProblemPattern, c captures) {
	fillField(&d.file, p.File, c, true)
	appendField(&d.message, p.Message, c)
	fillField(&d.code, p.Code, c, true)
	fillField(&d.severity, p.Severity, c, true)
	fillField(&d.location, p.Location, c, true)
	fillField(&d.line, p.Line, c, false)
	fillField(&d.character, p.Character, c, false)
	fillField(&d.endLine, p.EndLine, c, false)
	fillField(&d.endCharacter, p.EndCharacter, c, false)
}

func fillField(f *field, g Group, c captures, trim bool) {
	if f.set {
		return
	}
	v, ok := c.get(g)
	if !ok {
		return
	}
	if trim {
		v = strings.Trim(v, " ")
	}
	*f = field{value: v, set: true}
}

func appendField(f *field, g Group, c captures) {
	if !f.set {
		fillField(f, g, c, true)
		return
	}
	v, ok := c.get(g)
	if !ok {
		return
	}
	f.value += lineSeparator + strings.Trim(v, " ")
}
