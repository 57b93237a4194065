package value

import "fmt"

// Env is a lexical scope frame with a parent link. Lookups walk parent-ward.
// Define binds in the current frame (shadowing outer bindings), Assign
// updates the nearest visible binding, Get retrieves.
//
// The root frame of an interpreter holds builtins and is marked core: core
// frames are shared (never copied) by Snapshot, skipped by Flatten, and
// protected from assignment.
type Env struct {
	parent *Env
	table  map[string]Value
	core   bool
}

// NewEnv creates a frame with the given parent (nil for a root frame).
func NewEnv(parent *Env) *Env {
	return &Env{parent: parent, table: make(map[string]Value)}
}

// NewCoreEnv creates a protected root frame for builtin bindings.
func NewCoreEnv() *Env {
	e := NewEnv(nil)
	e.core = true
	return e
}

// Parent returns the enclosing frame, or nil at the root.
func (e *Env) Parent() *Env { return e.parent }

// Define binds name in the current frame, shadowing any outer binding.
func (e *Env) Define(name string, v Value) {
	e.table[name] = v
}

// Assign updates the nearest visible binding of name. Assigning a name that
// is not bound anywhere, or that resolves to a core frame, is an error.
func (e *Env) Assign(name string, v Value) error {
	for f := e; f != nil; f = f.parent {
		if _, ok := f.table[name]; ok {
			if f.core {
				return fmt.Errorf("cannot assign to builtin: %s", name)
			}
			f.table[name] = v
			return nil
		}
	}
	return fmt.Errorf("undefined variable: %s", name)
}

// Get retrieves the nearest visible binding for name.
func (e *Env) Get(name string) (Value, bool) {
	for f := e; f != nil; f = f.parent {
		if v, ok := f.table[name]; ok {
			return v, true
		}
	}
	return Nil, false
}

// Has reports whether name is bound in any visible frame.
func (e *Env) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Snapshot returns a deep copy of the frame chain. Every non-core frame's
// bindings are deep-copied so later mutation of the live chain cannot reach
// the copy; core frames are shared as-is.
func (e *Env) Snapshot() *Env {
	if e == nil {
		return nil
	}
	if e.core {
		return e
	}
	cp := &Env{parent: e.parent.Snapshot(), table: make(map[string]Value, len(e.table))}
	for k, v := range e.table {
		cp.table[k] = v.DeepCopy()
	}
	return cp
}

// Flatten collects the visible non-core bindings, innermost frame winning
// on shadowed names.
func (e *Env) Flatten() map[string]Value {
	out := make(map[string]Value)
	for f := e; f != nil; f = f.parent {
		if f.core {
			continue
		}
		for k, v := range f.table {
			if _, seen := out[k]; !seen {
				out[k] = v
			}
		}
	}
	return out
}
