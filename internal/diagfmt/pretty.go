package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"mendes/internal/diag"
	"mendes/internal/source"
)

// palette holds the colors of one Pretty call. Each color is switched on or
// off explicitly so the output does not depend on the global color.NoColor.
type palette struct {
	err, warn, info *color.Color
	gutter          *color.Color
	bold            *color.Color
	help            *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		gutter: color.New(color.FgBlue, color.Bold),
		bold:   color.New(color.Bold),
		help:   color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.gutter, p.bold, p.help} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevWarning:
		return p.warn
	case diag.SevInfo:
		return p.info
	default:
		return p.err
	}
}

// label is one underlined span of a diagnostic.
type label struct {
	span    source.Span
	msg     string
	primary bool
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
//
//	error[ET001]: type mismatch
//	 --> main.mds:2:9
//	  |
//	2 |     let y: int = "s"
//	  |                  ^^^ expected `int`
//	  = help: ...
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	pal := newPalette(opts.Color)
	var sb strings.Builder
	for i, d := range bag.Items() {
		if i > 0 {
			sb.WriteByte('\n')
		}
		renderOne(&sb, &d, fs, opts, pal)
	}
	if n := bag.Dropped(); n > 0 {
		fmt.Fprintf(&sb, "\n%s: %d more diagnostics were not shown\n", pal.bold.Sprint("note"), n)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func renderOne(sb *strings.Builder, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, pal palette) {
	sevColor := pal.severity(d.Severity)
	sb.WriteString(sevColor.Sprintf("%s[%s]", d.Severity.Keyword(), d.Code.ID()))
	sb.WriteString(pal.bold.Sprintf(": %s", d.Message))
	sb.WriteByte('\n')

	labels := []label{{span: d.Primary, msg: d.Label, primary: true}}
	var looseNotes []string
	if opts.ShowNotes {
		for _, n := range d.Notes {
			if fs.Get(n.Span.File) == nil || n.Span == source.NoSpan {
				looseNotes = append(looseNotes, n.Msg)
				continue
			}
			labels = append(labels, label{span: n.Span, msg: n.Msg})
		}
		looseNotes = append(looseNotes, d.Remarks...)
	}

	width := gutterWidth(labels, fs)
	pad := strings.Repeat(" ", width)
	for _, l := range labels {
		f := fs.Get(l.span.File)
		if f == nil {
			continue
		}
		start, end := fs.Resolve(l.span)
		fmt.Fprintf(sb, "%s%s %s:%d:%d\n", pad, pal.gutter.Sprint("-->"), f.FormatPath(opts.PathMode.String(), opts.BaseDir), start.Line, start.Col)

		line := f.GetLine(start.Line)
		bar := pal.gutter.Sprint("|")
		fmt.Fprintf(sb, "%s %s\n", pad, bar)
		fmt.Fprintf(sb, "%s %s %s\n", pal.gutter.Sprintf("%*d", width, start.Line), bar, clip(line, opts.Width))

		lead, marks := underline(line, start, end, l.primary)
		mark := pal.gutter
		if l.primary {
			mark = sevColor
		}
		text := marks
		if l.msg != "" {
			text += " " + l.msg
		}
		fmt.Fprintf(sb, "%s %s %s%s\n", pad, bar, lead, mark.Sprint(text))
	}

	for _, n := range looseNotes {
		fmt.Fprintf(sb, "%s %s %s\n", pad, pal.gutter.Sprint("="), pal.bold.Sprint("note:")+" "+n)
	}
	if opts.ShowFixes {
		for _, fx := range d.Fixes {
			fmt.Fprintf(sb, "%s %s %s\n", pad, pal.gutter.Sprint("="), pal.help.Sprint("help:")+" "+fx.Title)
		}
	}
}

// gutterWidth is the width of the widest line number among the labels.
func gutterWidth(labels []label, fs *source.FileSet) int {
	width := 1
	for _, l := range labels {
		if fs.Get(l.span.File) == nil {
			continue
		}
		start, _ := fs.Resolve(l.span)
		width = max(width, len(strconv.FormatUint(uint64(start.Line), 10)))
	}
	return width
}

// underline returns the indentation up to the span and the marker run below
// it. Both are measured in terminal cells so wide runes stay aligned; tabs
// are copied so the marker lines up with the source line above.
func underline(line string, start, end source.LineCol, primary bool) (lead, marks string) {
	from := min(int(start.Col)-1, len(line))
	var b strings.Builder
	offset := 0
	for _, r := range line {
		if offset >= from {
			break
		}
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
		}
		offset += utf8.RuneLen(r)
	}
	lead = b.String()

	to := len(line)
	if end.Line == start.Line {
		to = min(int(end.Col)-1, len(line))
	}
	cells := 0
	if to > offset {
		cells = runewidth.StringWidth(line[offset:to])
	}
	ch := "-"
	if primary {
		ch = "^"
	}
	return lead, strings.Repeat(ch, max(cells, 1))
}

func clip(line string, width int) string {
	if width <= 0 || runewidth.StringWidth(line) <= width {
		return line
	}
	return runewidth.Truncate(line, width, "…")
}
