// Package trace is the logging layer of the mendes middle end.
//
// The driver opens a "file" span per document and a span per pass (decode,
// check, lower, validate); the checker and the lowering add one span per
// top-level declaration at LevelDetail and statement events at LevelDebug.
//
//	mendes check --trace=- --trace-level=detail app.yaml
//	mendes check --trace=run.ndjson --trace-mode=ring --trace-ring-size=512 .
//
// A Tracer travels through context.Context (WithTracer, FromContext) and the
// parent span through SpanContext, so spans opened inside errgroup workers
// still nest under the run. Stream mode writes each event immediately. Ring
// mode keeps the last N and writes them on Close. Both mode streams and also
// keeps a ring that DumpRecent prints after an internal failure.
package trace
