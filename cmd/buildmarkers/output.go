package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/dshills/buildmarkers/internal/marker"
)

// styles holds the color formatters for text output.
type styles struct {
	resource *color.Color
	position *color.Color
	errorSev *color.Color
	warnSev  *color.Color
	infoSev  *color.Color
	hintSev  *color.Color
	meta     *color.Color
	removed  *color.Color
}

func newStyles(enabled bool) *styles {
	s := &styles{
		resource: color.New(color.Bold, color.Underline),
		position: color.New(color.Faint),
		errorSev: color.New(color.FgRed, color.Bold),
		warnSev:  color.New(color.FgYellow, color.Bold),
		infoSev:  color.New(color.FgBlue),
		hintSev:  color.New(color.FgCyan),
		meta:     color.New(color.FgHiBlack),
		removed:  color.New(color.FgGreen),
	}
	if !enabled {
		for _, c := range []*color.Color{s.resource, s.position, s.errorSev, s.warnSev, s.infoSev, s.hintSev, s.meta, s.removed} {
			c.DisableColor()
		}
	}
	return s
}

func (s *styles) severity(sev marker.Severity) *color.Color {
	switch sev {
	case marker.SeverityError:
		return s.errorSev
	case marker.SeverityWarning:
		return s.warnSev
	case marker.SeverityInfo:
		return s.infoSev
	default:
		return s.hintSev
	}
}

// colorEnabled decides whether out gets colored output for the --color mode.
func colorEnabled(mode string, out io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		f, ok := out.(*os.File)
		return ok && isTerminal(f) && os.Getenv("NO_COLOR") == "", nil
	default:
		return false, fmt.Errorf("invalid color mode %q (must be auto, always, or never)", mode)
	}
}

// printer writes markers in one of the output formats.
type printer struct {
	out    io.Writer
	format string
	styles *styles
}

func newPrinter(out io.Writer, format string, colored bool) (*printer, error) {
	switch format {
	case "text", "json":
	default:
		return nil, fmt.Errorf("unknown format %q (must be text or json)", format)
	}
	return &printer{out: out, format: format, styles: newStyles(colored)}, nil
}

// report is the JSON document written after each run.
type report struct {
	Run      int             `json:"run"`
	Markers  []marker.Marker `json:"markers"`
	Summary  marker.Summary  `json:"summary"`
	Matches  int             `json:"matches"`
	Duration string          `json:"duration"`
}

// printRun writes every marker of the sink followed by a summary.
func (p *printer) printRun(r report) error {
	if r.Markers == nil {
		r.Markers = []marker.Marker{}
	}
	if p.format == "json" {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	current := ""
	for _, m := range r.Markers {
		if m.Resource != current {
			if current != "" {
				fmt.Fprintln(p.out)
			}
			current = m.Resource
			p.styles.resource.Fprintln(p.out, displayResource(m.Resource))
		}
		p.printMarker(m.Data)
	}
	if len(r.Markers) > 0 {
		fmt.Fprintln(p.out)
	}
	fmt.Fprintln(p.out, summaryLine(r.Summary))
	return nil
}

func (p *printer) printMarker(d marker.Data) {
	fmt.Fprint(p.out, "  ")
	p.styles.position.Fprintf(p.out, "%d:%d", d.StartLine, d.StartColumn)
	fmt.Fprint(p.out, "  ")
	p.styles.severity(d.Severity).Fprintf(p.out, "%-7s", d.Severity)
	fmt.Fprint(p.out, "  ", d.Message)
	var meta []string
	if d.Code != "" {
		meta = append(meta, d.Code)
	}
	if d.Source != "" {
		meta = append(meta, d.Source)
	}
	if len(meta) > 0 {
		p.styles.meta.Fprintf(p.out, "  [%s]", strings.Join(meta, " "))
	}
	fmt.Fprintln(p.out)
}

// printChange writes one sink mutation. JSON output only carries runs.
func (p *printer) printChange(c marker.Change) {
	if p.format != "text" {
		return
	}
	switch c.Kind {
	case marker.ChangeRemove:
		p.styles.removed.Fprintf(p.out, "- %s\n", displayResource(c.Resource))
	case marker.ChangeSet:
		fmt.Fprintf(p.out, "~ %s (%d)\n", displayResource(c.Resource), len(c.Markers))
	}
}

func displayResource(resource string) string {
	return strings.TrimPrefix(resource, "file://")
}

func summaryLine(s marker.Summary) string {
	if s.Total() == 0 {
		return "no problems"
	}
	parts := []string{plural(s.Errors, "error"), plural(s.Warnings, "warning")}
	if s.Infos > 0 {
		parts = append(parts, plural(s.Infos, "info"))
	}
	if s.Hints > 0 {
		parts = append(parts, plural(s.Hints, "hint"))
	}
	return fmt.Sprintf("%s in %s", strings.Join(parts, ", "), plural(s.Resources, "file"))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
