package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"mendes/internal/diag"
	"mendes/internal/source"
)

func TestJSONBasic(t *testing.T) {
	fs := source.NewFileSet()
	bag, _ := mismatch(fs)

	var buf bytes.Buffer
	opts := JSONOpts{IncludePositions: true, PathMode: PathModeBasename, IncludeNotes: true, IncludeFixes: true}
	if err := JSON(&buf, bag, fs, opts); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	if output.Count != 1 || len(output.Diagnostics) != 1 {
		t.Fatalf("count = %d, diagnostics = %d", output.Count, len(output.Diagnostics))
	}
	d := output.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "ET001" || d.Title != "Type mismatch" {
		t.Errorf("header = %+v", d)
	}
	if d.Location.File != "main.mds" || d.Location.StartLine != 1 || d.Location.StartCol != 14 || d.Location.EndCol != 18 {
		t.Errorf("location = %+v", d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location == nil || d.Notes[0].Location.StartCol != 8 {
		t.Errorf("notes = %+v", d.Notes)
	}
	if len(d.Fixes) != 1 || d.Fixes[0].Title != "convert the value" {
		t.Errorf("fixes = %+v", d.Fixes)
	}
}

func TestJSONMaxReportsDropped(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("a.mds", []byte("a b c\n"))
	bag := diag.NewBag(2)
	for i := range uint32(3) {
		bag.Add(diag.NewError(diag.TypeUnknownVariable, source.Span{File: id, Start: 2 * i, End: 2*i + 1}, "unknown"))
	}

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 1})
	if out.Count != 1 || out.Dropped != 2 {
		t.Fatalf("count = %d, dropped = %d", out.Count, out.Dropped)
	}
	if out.Diagnostics[0].Location.StartLine != 0 {
		t.Fatalf("positions should be omitted: %+v", out.Diagnostics[0].Location)
	}
	if out.Diagnostics[0].Notes != nil {
		t.Fatalf("notes should be omitted")
	}
}

func TestShort(t *testing.T) {
	fs := source.NewFileSet()
	bag, _ := mismatch(fs)

	var buf bytes.Buffer
	if err := Short(&buf, bag, fs, true); err != nil {
		t.Fatalf("Short: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if lines[0] != "main.mds:1:14: error [ET001]: mismatched types" {
		t.Fatalf("first line = %q", lines[0])
	}
	if len(lines) != 3 || lines[2] != "  help: convert the value" {
		t.Fatalf("lines = %q", lines)
	}
}
