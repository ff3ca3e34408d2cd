package diag

import (
	"strings"

	"mendes/internal/source"
)

// Note points at a secondary span.
type Note struct {
	Span source.Span
	Msg  string
}

// Fix is a "help:" suggestion.
type Fix struct {
	Title string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Label    string   // text under the primary span
	Notes    []Note   // secondary spans
	Remarks  []string // notes without a span
	Fixes    []Fix
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithLabel(msg string) Diagnostic {
	d.Label = msg
	return d
}

// The With* methods copy before appending so that diagnostics built from
// a shared base never alias each other's slices.

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes[:len(d.Notes):len(d.Notes)], Note{Span: sp, Msg: msg})
	return d
}

func (d Diagnostic) WithRemark(msg string) Diagnostic {
	d.Remarks = append(d.Remarks[:len(d.Remarks):len(d.Remarks)], msg)
	return d
}

func (d Diagnostic) WithHelp(msg string) Diagnostic {
	d.Fixes = append(d.Fixes[:len(d.Fixes):len(d.Fixes)], Fix{Title: msg})
	return d
}

// Mentions reports whether the message names ident in backticks.
func (d Diagnostic) Mentions(ident string) bool {
	return strings.Contains(d.Message, "`"+ident+"`")
}

// key identifies duplicates: same code, severity, primary span and message.
type key struct {
	code    Code
	sev     Severity
	primary source.Span
	msg     string
}

func (d *Diagnostic) key() key {
	return key{code: d.Code, sev: d.Severity, primary: d.Primary, msg: d.Message}
}
