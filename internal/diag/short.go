package diag

import (
	"fmt"
	"strings"

	"mendes/internal/source"
)

// FormatShortDiagnostics renders one line per diagnostic:
// `path:line:col: severity [ID]: message`. Notes follow on indented lines
// when includeNotes is set.
func FormatShortDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := range diags {
		d := &diags[i]
		fmt.Fprintf(&sb, "%s: %s [%s]: %s\n", position(fs, d.Primary), d.Severity.Keyword(), d.Code.ID(), d.Message)
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(&sb, "  %s: note: %s\n", position(fs, n.Span), n.Msg)
		}
		for _, r := range d.Remarks {
			fmt.Fprintf(&sb, "  note: %s\n", r)
		}
		for _, f := range d.Fixes {
			fmt.Fprintf(&sb, "  help: %s\n", f.Title)
		}
	}
	return sb.String()
}

func position(fs *source.FileSet, sp source.Span) string {
	if fs == nil {
		return sp.String()
	}
	f := fs.Get(sp.File)
	if f == nil {
		return sp.String()
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", f.Path, start.Line, start.Col)
}
