package diag

import (
	"cmp"
	"slices"
)

// Bag collects diagnostics up to an optional cap and counts the rest.
type Bag struct {
	items   []Diagnostic
	max     int
	dropped int
}

// NewBag creates a bag holding at most max items; max <= 0 means no limit.
func NewBag(max int) *Bag {
	hint := 16
	if max > 0 && max < hint {
		hint = max
	}
	return &Bag{items: make([]Diagnostic, 0, hint), max: max}
}

// Add stores d, or counts it as dropped when the bag is full.
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

func (b *Bag) Cap() int { return b.max }

// MarkDropped records n diagnostics rejected elsewhere, e.g. by the run
// whose results were cached.
func (b *Bag) MarkDropped(n int) { b.dropped += max(n, 0) }

func (b *Bag) Dropped() int { return b.dropped }

func (b *Bag) Len() int { return len(b.items) }

// Items returns the backing slice; callers must not modify it.
func (b *Bag) Items() []Diagnostic { return b.items }

func (b *Bag) atLeast(sev Severity) bool {
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= sev })
}

func (b *Bag) HasErrors() bool   { return b.atLeast(SevError) }
func (b *Bag) HasWarnings() bool { return b.atLeast(SevWarning) }

func (b *Bag) countIf(pred func(*Diagnostic) bool) int {
	n := 0
	for i := range b.items {
		if pred(&b.items[i]) {
			n++
		}
	}
	return n
}

// Count returns how many items carry code.
func (b *Bag) Count(code Code) int {
	return b.countIf(func(d *Diagnostic) bool { return d.Code == code })
}

// CountCategory counts one code family: 'T', 'O', 'I', ...
func (b *Bag) CountCategory(cat byte) int {
	return b.countIf(func(d *Diagnostic) bool { return d.Code.Category() == cat })
}

// Merge appends every item of other, growing the cap if needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if total := len(b.items) + len(other.items); b.max > 0 && total > b.max {
		b.max = total
	}
	b.items = append(b.items, other.items...)
	b.dropped += other.dropped
}

// Sort orders by file, start, end, then errors before warnings, then code.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Start, y.Primary.Start),
			cmp.Compare(x.Primary.End, y.Primary.End),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
		)
	})
}

// Dedup keeps the first of each group of identical diagnostics.
func (b *Bag) Dedup() {
	seen := make(map[key]struct{}, len(b.items))
	b.items = slices.DeleteFunc(b.items, func(d Diagnostic) bool {
		k := d.key()
		if _, dup := seen[k]; dup {
			return true
		}
		seen[k] = struct{}{}
		return false
	})
}
