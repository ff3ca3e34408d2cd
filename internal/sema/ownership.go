package sema

import (
	"fmt"
	"slices"

	"mendes/internal/diag"
	"mendes/internal/source"
	"mendes/internal/types"
)

// OwnershipState is the per-variable state of the move/borrow machine.
type OwnershipState uint8

const (
	StateOwned OwnershipState = iota
	StateMoved
	StateBorrowed
	StateMutBorrowed
)

func (s OwnershipState) String() string {
	switch s {
	case StateMoved:
		return "moved"
	case StateBorrowed:
		return "borrowed"
	case StateMutBorrowed:
		return "mut-borrowed"
	default:
		return "owned"
	}
}

// OwnershipInfo tracks one variable.
//
//   - MovedAt is meaningful in StateMoved.
//   - BorrowSites holds one span per live shared borrow in StateBorrowed.
//   - MutBorrowAt is meaningful in StateMutBorrowed.
type OwnershipInfo struct {
	Name        string
	Type        types.Type
	State       OwnershipState
	Mutable     bool
	DefinedAt   source.Span
	MovedAt     source.Span
	BorrowSites []source.Span
	MutBorrowAt source.Span
}

// BorrowCount is the number of live shared borrows.
func (info *OwnershipInfo) BorrowCount() int {
	if info.State != StateBorrowed {
		return 0
	}
	return len(info.BorrowSites)
}

type heldBorrow struct {
	info *OwnershipInfo
	mut  bool
	at   source.Span
}

// exitMove is a move made by a statement that leaves the scope.
type exitMove struct {
	info  *OwnershipInfo
	prior OwnershipInfo
}

type ownershipScope struct {
	vars    map[string]*OwnershipInfo
	borrows []heldBorrow
	exits   []exitMove
}

type pendingBorrow struct {
	name string
	at   source.Span
}

// Tracker is the ownership/borrow checker. Its scope stack must move in
// lockstep with the symbol table; the checker pairs them through withScope.
type Tracker struct {
	scopes   []*ownershipScope
	reporter diag.Reporter
	inAsync  bool
	pending  []pendingBorrow
}

// NewTracker creates a tracker with a global scope that is never popped.
func NewTracker(r diag.Reporter) *Tracker {
	if r == nil {
		r = diag.NopReporter{}
	}
	return &Tracker{
		scopes:   []*ownershipScope{newOwnershipScope()},
		reporter: r,
	}
}

func newOwnershipScope() *ownershipScope {
	return &ownershipScope{vars: make(map[string]*OwnershipInfo)}
}

func (t *Tracker) PushScope() {
	t.scopes = append(t.scopes, newOwnershipScope())
}

// PopScope undoes moves recorded by MoveOnExit, releases every borrow taken
// while the scope was innermost and forgets the variables declared in it.
func (t *Tracker) PopScope() {
	if len(t.scopes) <= 1 {
		return
	}
	top := t.scopes[len(t.scopes)-1]
	for i := len(top.exits) - 1; i >= 0; i-- {
		e := top.exits[i]
		if e.info.State == StateMoved {
			*e.info = e.prior
		}
	}
	for i := len(top.borrows) - 1; i >= 0; i-- {
		release(top.borrows[i])
	}
	t.scopes[len(t.scopes)-1] = nil
	t.scopes = t.scopes[:len(t.scopes)-1]
}

func release(b heldBorrow) {
	info := b.info
	switch {
	case b.mut && info.State == StateMutBorrowed:
		info.State = StateOwned
		info.MutBorrowAt = source.Span{}
	case !b.mut && info.State == StateBorrowed:
		if idx := slices.Index(info.BorrowSites, b.at); idx >= 0 {
			info.BorrowSites = slices.Delete(info.BorrowSites, idx, idx+1)
		}
		if len(info.BorrowSites) == 0 {
			info.State = StateOwned
			info.BorrowSites = nil
		}
	}
}

// Depth is the number of live scopes, global included.
func (t *Tracker) Depth() int {
	return len(t.scopes)
}

// Define starts tracking name in the current scope as Owned.
func (t *Tracker) Define(name string, ty types.Type, mutable bool, at source.Span) {
	t.scopes[len(t.scopes)-1].vars[name] = &OwnershipInfo{
		Name:      name,
		Type:      ty,
		State:     StateOwned,
		Mutable:   mutable,
		DefinedAt: at,
	}
}

// Lookup returns the innermost tracked variable with that name.
func (t *Tracker) Lookup(name string) *OwnershipInfo {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if info, ok := t.scopes[i].vars[name]; ok {
			return info
		}
	}
	return nil
}

// MarkMoved records a move. Copy types and untracked names are ignored.
func (t *Tracker) MarkMoved(name string, at source.Span) {
	info := t.Lookup(name)
	if info == nil || info.Type.IsCopy() {
		return
	}
	info.State = StateMoved
	info.MovedAt = at
	info.BorrowSites = nil
}

// MoveOnExit records a move by a statement that leaves the current scope,
// such as return. Later code in the scope sees the variable as moved; the
// move is undone when the scope pops, since no path continues past it.
func (t *Tracker) MoveOnExit(name string, at source.Span) {
	info := t.Lookup(name)
	if info == nil || info.Type.IsCopy() || info.State == StateMoved {
		return
	}
	top := t.scopes[len(t.scopes)-1]
	top.exits = append(top.exits, exitMove{info: info, prior: *info})
	info.State = StateMoved
	info.MovedAt = at
	info.BorrowSites = nil
}

// Borrow takes a shared borrow. It reports and returns false on conflict.
func (t *Tracker) Borrow(name string, at source.Span) bool {
	info := t.Lookup(name)
	if info == nil {
		return true
	}
	switch info.State {
	case StateOwned, StateBorrowed:
		info.State = StateBorrowed
		info.BorrowSites = append(info.BorrowSites, at)
		t.hold(info, false, at)
		return true
	case StateMutBorrowed:
		diag.ReportError(t.reporter, diag.OwnMutBorrowConflict, at,
			fmt.Sprintf("cannot borrow `%s` while it is mutably borrowed", name)).
			WithLabel("attempting to borrow here").
			WithNote(info.MutBorrowAt, "mutable borrow active here").
			Emit()
	case StateMoved:
		t.reportBorrowAfterMove(info, at)
	}
	return false
}

// BorrowMut takes an exclusive borrow. It reports and returns false on conflict.
func (t *Tracker) BorrowMut(name string, at source.Span) bool {
	info := t.Lookup(name)
	if info == nil {
		return true
	}
	if !info.Mutable {
		diag.ReportError(t.reporter, diag.OwnMutBorrowConflict, at,
			fmt.Sprintf("cannot borrow `%s` mutably - not mutable", name)).
			WithLabel("attempting to borrow mutably").
			WithNote(info.DefinedAt, "defined as immutable here").
			WithHelp(fmt.Sprintf("add `mut` to the declaration: `let mut %s`", name)).
			Emit()
		return false
	}
	switch info.State {
	case StateOwned:
		info.State = StateMutBorrowed
		info.MutBorrowAt = at
		t.hold(info, true, at)
		return true
	case StateBorrowed:
		diag.ReportError(t.reporter, diag.OwnMutBorrowConflict, at,
			fmt.Sprintf("cannot borrow `%s` mutably while it is borrowed", name)).
			WithLabel("attempting to borrow mutably").
			WithNote(info.BorrowSites[0], "immutable borrow active here").
			Emit()
	case StateMutBorrowed:
		diag.ReportError(t.reporter, diag.OwnMutBorrowConflict, at,
			fmt.Sprintf("cannot borrow `%s` mutably more than once", name)).
			WithLabel("second mutable borrow").
			WithNote(info.MutBorrowAt, "first mutable borrow here").
			Emit()
	case StateMoved:
		t.reportBorrowAfterMove(info, at)
	}
	return false
}

func (t *Tracker) reportBorrowAfterMove(info *OwnershipInfo, at source.Span) {
	diag.ReportError(t.reporter, diag.OwnBorrowAfterMove, at,
		fmt.Sprintf("cannot borrow `%s` after move", info.Name)).
		WithLabel("borrow after move").
		WithNote(info.MovedAt, "value moved here").
		WithHelp("consider cloning the value or using a reference").
		Emit()
}

func (t *Tracker) hold(info *OwnershipInfo, mut bool, at source.Span) {
	top := t.scopes[len(t.scopes)-1]
	top.borrows = append(top.borrows, heldBorrow{info: info, mut: mut, at: at})
	if t.inAsync {
		t.pending = append(t.pending, pendingBorrow{name: info.Name, at: at})
	}
}

// CheckUse reports a read of a moved variable.
func (t *Tracker) CheckUse(name string, at source.Span) bool {
	info := t.Lookup(name)
	if info == nil || info.State != StateMoved {
		return true
	}
	diag.ReportError(t.reporter, diag.OwnUseAfterMove, at,
		fmt.Sprintf("use of `%s` after move", name)).
		WithLabel("use after move").
		WithNote(info.MovedAt, "value moved here").
		WithHelp("consider cloning the value or using a reference").
		Emit()
	return false
}

// EnterAsync marks the start of an async body and resets pending borrows.
func (t *Tracker) EnterAsync() {
	t.inAsync = true
	t.pending = t.pending[:0]
}

// ExitAsync marks the end of an async body and resets pending borrows.
func (t *Tracker) ExitAsync() {
	t.inAsync = false
	t.pending = t.pending[:0]
}

func (t *Tracker) InAsync() bool {
	return t.inAsync
}

// CheckAwait reports every borrow still pending at an await point, then
// clears the list.
func (t *Tracker) CheckAwait(at source.Span) {
	for _, p := range t.pending {
		diag.ReportError(t.reporter, diag.OwnBorrowAcrossAwait, p.at,
			fmt.Sprintf("reference to `%s` cannot cross await", p.name)).
			WithLabel("reference created here").
			WithNote(at, "await happens here").
			WithHelp("copy the value before await or use owned type").
			Emit()
	}
	t.pending = t.pending[:0]
}

// Reinit marks a moved variable as owned again after a plain assignment.
func (t *Tracker) Reinit(name string) {
	info := t.Lookup(name)
	if info == nil || info.State != StateMoved {
		return
	}
	info.State = StateOwned
	info.MovedAt = source.Span{}
}
