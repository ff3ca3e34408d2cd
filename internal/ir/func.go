package ir

import (
	"fmt"

	"fortio.org/safecast"
)

// EntryLabel names the first block of every function.
const EntryLabel = "entry"

// Func is a lowered function. Temps and labels are numbered per function.
type Func struct {
	Name     string
	Generics []GenericParam
	Params   []Field
	Ret      Type
	Async    bool
	Blocks   []*Block
	Locals   map[string]Type

	temps  int
	labels int
}

// NewFunc creates a function holding only its entry block.
func NewFunc(name string, ret Type, async bool) *Func {
	return &Func{
		Name:   name,
		Ret:    ret,
		Async:  async,
		Blocks: []*Block{NewBlock(EntryLabel)},
		Locals: make(map[string]Type),
	}
}

func (f *Func) AddParam(name string, ty Type) {
	f.Params = append(f.Params, Field{Name: name, Type: ty})
}

// ParamIndex returns the position of the named parameter, or -1.
func (f *Func) ParamIndex(name string) int {
	for i, p := range f.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (f *Func) AddLocal(name string, ty Type) {
	f.Locals[name] = ty
}

// NewTemp hands out the next temporary id.
func (f *Func) NewTemp() uint32 {
	id, err := safecast.Conv[uint32](f.temps)
	if err != nil {
		panic(fmt.Errorf("temp counter overflow in %s: %w", f.Name, err))
	}
	f.temps++
	return id
}

// Temps is the number of temporaries allocated so far.
func (f *Func) Temps() int {
	return f.temps
}

// NewLabel returns a fresh block label with the given prefix.
func (f *Func) NewLabel(prefix string) string {
	label := fmt.Sprintf("%s_%d", prefix, f.labels)
	f.labels++
	return label
}

// Block finds a block by label.
func (f *Func) Block(label string) *Block {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

// Current is the block instructions are appended to.
func (f *Func) Current() *Block {
	return f.Blocks[len(f.Blocks)-1]
}

// StartBlock appends a new block and makes it current. An unterminated
// predecessor falls through into it.
func (f *Func) StartBlock(label string) *Block {
	if cur := f.Current(); !cur.Terminated() {
		cur.Push(Branch(label))
	}
	b := NewBlock(label)
	f.Blocks = append(f.Blocks, b)
	return b
}

// Emit appends to the current block. Code following a terminator is
// unreachable and goes into a fresh block so no block continues past its end.
func (f *Func) Emit(in Instr) {
	if f.Current().Terminated() {
		f.Blocks = append(f.Blocks, NewBlock(f.NewLabel("dead")))
	}
	f.Current().Push(in)
}

// EmitValue emits an instruction that defines a temp and returns that temp.
func (f *Func) EmitValue(in Instr) Value {
	dst, ok := in.Dst()
	if !ok {
		panic(fmt.Sprintf("ir: %s has no destination", in.Kind))
	}
	f.Emit(in)
	return Temp(dst)
}

// Terminated reports whether the current block already ends in a terminator.
func (f *Func) Terminated() bool {
	return f.Current().Terminated()
}

// Finish terminates the last block with `ret void` if it is still open.
func (f *Func) Finish() {
	if !f.Terminated() {
		f.Current().Push(Return(VoidValue))
	}
}
