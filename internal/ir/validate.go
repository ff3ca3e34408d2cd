package ir

import (
	"errors"
	"fmt"
)

// Validate checks structural invariants of every function in the module.
func Validate(m *Module) error {
	if m == nil {
		return nil
	}
	var errs []error
	seen := make(map[string]bool, len(m.Funcs))
	for _, f := range m.Funcs {
		if f == nil {
			continue
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Errorf("function %s: defined more than once", f.Name))
		}
		seen[f.Name] = true
		if err := ValidateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	for _, r := range m.Routes {
		if m.Func(r.Handler) == nil {
			errs = append(errs, fmt.Errorf("route %s %s: handler %s missing", r.Method, r.Path, r.Handler))
		}
	}
	strs := make(map[string]int, len(m.Strings))
	for i, s := range m.Strings {
		if prev, dup := strs[s]; dup {
			errs = append(errs, fmt.Errorf("string table: %q at %d duplicates %d", s, i, prev))
		}
		strs[s] = i
	}
	return errors.Join(errs...)
}

// ValidateFunc checks one function.
func ValidateFunc(f *Func) error {
	var errs []error

	// 1. entry block first
	if len(f.Blocks) == 0 || f.Blocks[0].Label != EntryLabel {
		return errors.New("missing entry block")
	}

	// 2. unique labels
	labels := make(map[string]bool, len(f.Blocks))
	for _, b := range f.Blocks {
		if labels[b.Label] {
			errs = append(errs, fmt.Errorf("%s: duplicate label", b.Label))
		}
		labels[b.Label] = true
	}

	// 3. every block ends in exactly one terminator
	if err := validateTerminators(f); err != nil {
		errs = append(errs, err)
	}

	// 4. branch targets exist
	for _, b := range f.Blocks {
		if t := b.Terminator(); t != nil {
			for _, target := range t.Targets() {
				if !labels[target] {
					errs = append(errs, fmt.Errorf("%s: branch to unknown block %s", b.Label, target))
				}
			}
		}
	}

	// 5. temps are assigned once and come from the function's counter
	if err := validateTemps(f); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateTerminators(f *Func) error {
	var errs []error
	for _, b := range f.Blocks {
		if !b.Terminated() {
			errs = append(errs, fmt.Errorf("%s: unterminated block", b.Label))
		}
		for i := 0; i < len(b.Instrs)-1; i++ {
			if b.Instrs[i].IsTerminator() {
				errs = append(errs, fmt.Errorf("%s: instruction %d follows a terminator", b.Label, i+1))
				break
			}
		}
	}
	return errors.Join(errs...)
}

func validateTemps(f *Func) error {
	var errs []error
	defined := make(map[uint32]string)
	limit := f.Temps()
	for _, b := range f.Blocks {
		for i := range b.Instrs {
			in := &b.Instrs[i]
			if dst, ok := in.Dst(); ok {
				if int(dst) >= limit {
					errs = append(errs, fmt.Errorf("%s: %%t%d was never allocated", b.Label, dst))
				}
				if prev, dup := defined[dst]; dup {
					errs = append(errs, fmt.Errorf("%s: %%t%d already defined in %s", b.Label, dst, prev))
				}
				defined[dst] = b.Label
			}
			for _, op := range in.Operands() {
				if id, ok := op.TempID(); ok && int(id) >= limit {
					errs = append(errs, fmt.Errorf("%s: use of unallocated %%t%d", b.Label, id))
				}
			}
		}
	}
	return errors.Join(errs...)
}
