package diag

import "mendes/internal/source"

// Reporter receives diagnostics from a pass.
type Reporter interface {
	Report(d Diagnostic)
}

// ReportBuilder assembles one diagnostic and sends it on Emit. A nil
// builder accepts every call.
type ReportBuilder struct {
	reporter Reporter
	diag     Diagnostic
	emitted  bool
}

func NewReportBuilder(r Reporter, sev Severity, code Code, primary source.Span, msg string) *ReportBuilder {
	return &ReportBuilder{reporter: r, diag: New(sev, code, primary, msg)}
}

func ReportError(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevError, code, primary, msg)
}

func ReportWarning(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return NewReportBuilder(r, SevWarning, code, primary, msg)
}

func (b *ReportBuilder) with(edit func(Diagnostic) Diagnostic) *ReportBuilder {
	if b != nil {
		b.diag = edit(b.diag)
	}
	return b
}

func (b *ReportBuilder) WithLabel(msg string) *ReportBuilder {
	return b.with(func(d Diagnostic) Diagnostic { return d.WithLabel(msg) })
}

func (b *ReportBuilder) WithNote(sp source.Span, msg string) *ReportBuilder {
	return b.with(func(d Diagnostic) Diagnostic { return d.WithNote(sp, msg) })
}

func (b *ReportBuilder) WithRemark(msg string) *ReportBuilder {
	return b.with(func(d Diagnostic) Diagnostic { return d.WithRemark(msg) })
}

func (b *ReportBuilder) WithHelp(msg string) *ReportBuilder {
	return b.with(func(d Diagnostic) Diagnostic { return d.WithHelp(msg) })
}

// Emit reports the diagnostic; later calls do nothing.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	b.emitted = true
	if b.reporter != nil {
		b.reporter.Report(b.diag)
	}
}

// Diagnostic returns what has been built so far without emitting it.
func (b *ReportBuilder) Diagnostic() Diagnostic {
	if b == nil {
		return Diagnostic{}
	}
	return b.diag
}

// BagReporter adds to Bag, honoring its cap.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag != nil {
		r.Bag.Add(d)
	}
}

// NopReporter drops everything.
type NopReporter struct{}

func (NopReporter) Report(Diagnostic) {}
