// Package source stores the texts diagnostics point into and maps byte
// spans to lines and columns.
package source

import "fmt"

type FileID uint32

// Span is a half-open byte range [Start, End) in one file.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// NoSpan marks synthesized nodes.
var NoSpan = Span{}

func (s Span) Empty() bool { return s.Start == s.End }

func (s Span) Len() uint32 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover widens s to include other. Spans of another file leave s unchanged.
func (s Span) Cover(other Span) Span {
	if s.File == other.File {
		s.Start = min(s.Start, other.Start)
		s.End = max(s.End, other.End)
	}
	return s
}

// Ptr returns a pointer to a copy, for optional definition sites.
func (s Span) Ptr() *Span { return &s }

// LineCol is a 1-based position.
type LineCol struct {
	Line uint32
	Col  uint32
}
