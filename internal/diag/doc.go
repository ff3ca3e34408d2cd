// Package diag defines the diagnostic model shared by the checker, the
// ownership tracker and the driver.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error.
//   - Code: compact numeric identifier with a stable `E<cat><nnn>` form.
//   - Message: short human oriented text.
//   - Primary: the span the finding is about, optionally with a Label.
//   - Notes: secondary labeled spans (for example "value moved here").
//   - Remarks: free-text notes without a location.
//   - Fixes: suggestions; a fix without edits renders as a help line.
//
// # Emitting diagnostics
//
// Producers talk to a Reporter, usually through ReportBuilder:
//
//	diag.ReportError(r, diag.TypeMismatch, sp, msg).
//		WithLabel("incompatible types here").
//		WithNote(declSpan, "declared here").
//		Emit()
//
// BagReporter collects into a Bag, which supports sorting, deduplication
// and a cap on the number of stored items.
//
// Package diag performs no formatting or IO; rendering lives in
// internal/diagfmt.
package diag
