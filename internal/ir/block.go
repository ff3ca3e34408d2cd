package ir

// Block is a basic block: a label and straight-line code ending in one terminator.
type Block struct {
	Label  string
	Instrs []Instr
}

func NewBlock(label string) *Block {
	return &Block{Label: label}
}

// Terminated reports whether the last instruction is a terminator.
func (b *Block) Terminated() bool {
	if b == nil || len(b.Instrs) == 0 {
		return false
	}
	return b.Instrs[len(b.Instrs)-1].IsTerminator()
}

// Terminator returns the final instruction if it ends the block.
func (b *Block) Terminator() *Instr {
	if !b.Terminated() {
		return nil
	}
	return &b.Instrs[len(b.Instrs)-1]
}

func (b *Block) Push(in Instr) {
	b.Instrs = append(b.Instrs, in)
}
