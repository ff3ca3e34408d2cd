package driver

import (
	"context"
	"testing"
	"time"

	"mendes/internal/source"
)

const (
	// fuzzTimeout catches decoder or checker loops on odd documents.
	fuzzTimeout  = 5 * time.Second
	maxFuzzInput = 16 << 10
)

// FuzzCheckBytes runs the whole pipeline on arbitrary documents. A file may
// fail in any stage but must never panic or hang.
func FuzzCheckBytes(f *testing.F) {
	f.Add([]byte(addDoc))
	f.Add([]byte(badDoc))
	f.Add([]byte(`{"path": "j.mds", "stmts": [{"kind": "let", "name": "x", "value": 1}]}`))
	f.Add([]byte("stmts:\n  - kind: while\n    cond: true\n    body:\n      - kind: break\n"))
	f.Add([]byte("stmts: [{kind: fn, name: f, body: [{kind: expr, value: {kind: call, callee: f}}]}]"))
	f.Add([]byte("stmts: 3"))
	f.Add([]byte(""))

	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = input[:maxFuzzInput]
		}
		ctx, cancel := context.WithTimeout(context.Background(), fuzzTimeout)
		defer cancel()

		done := make(chan *FileResult, 1)
		go func() {
			done <- CheckBytes(ctx, source.NewFileSet(), "fuzz.yaml", input, Options{Lower: true, MaxDiagnostics: 64})
		}()
		select {
		case res := <-done:
			if res == nil {
				t.Fatal("nil result")
			}
			if res.Bag == nil {
				t.Fatalf("result without a diagnostics bag for %q", truncateForLog(input, 200))
			}
		case <-ctx.Done():
			t.Fatalf("pipeline hang: %d bytes: %q", len(input), truncateForLog(input, 200))
		}
	})
}

func truncateForLog(input []byte, limit int) []byte {
	if len(input) <= limit {
		return input
	}
	return append(input[:limit:limit], "..."...)
}
