package symbols

// Scope is an unordered name -> symbol mapping.
type Scope struct {
	names map[string]*Symbol
}

func newScope() *Scope {
	return &Scope{names: make(map[string]*Symbol)}
}

// Table is a stack of scopes. The global scope at the bottom is never popped.
type Table struct {
	scopes []*Scope
}

// NewTable creates a table holding only an empty global scope.
func NewTable() *Table {
	return &Table{scopes: []*Scope{newScope()}}
}

func (t *Table) PushScope() {
	t.scopes = append(t.scopes, newScope())
}

// PopScope drops the innermost scope; popping the global scope is a no-op.
func (t *Table) PopScope() {
	if len(t.scopes) > 1 {
		t.scopes[len(t.scopes)-1] = nil
		t.scopes = t.scopes[:len(t.scopes)-1]
	}
}

// Define inserts sym into the current scope, replacing a previous symbol of
// the same name there. It returns the replaced symbol, if any.
func (t *Table) Define(sym Symbol) *Symbol {
	cur := t.scopes[len(t.scopes)-1]
	prev := cur.names[sym.Name]
	cur.names[sym.Name] = &sym
	return prev
}

// Lookup searches innermost to outermost.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i].names[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupCurrent searches only the innermost scope.
func (t *Table) LookupCurrent(name string) (*Symbol, bool) {
	sym, ok := t.scopes[len(t.scopes)-1].names[name]
	return sym, ok
}

// Depth is the number of live scopes, global included.
func (t *Table) Depth() int {
	return len(t.scopes)
}
