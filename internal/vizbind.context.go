package internal

import (
	"maps"
	"slices"
)

// Scope is an immutable name environment for expression evaluation.
// Child scopes layer bindings over their parent; the parent is never
// modified. A root scope and its children share one program cache, so a
// scope tree must serve one render at a time.
type Scope struct {
	vars     map[string]any
	parent   *Scope
	depth    int
	programs *programCache
}

// NewScope creates a root scope. The data map is copied.
func NewScope(data map[string]any) *Scope {
	vars := make(map[string]any, len(data))
	maps.Copy(vars, data)
	return &Scope{vars: vars, programs: newProgramCache()}
}

// Child returns a new scope with bindings layered over s. The bindings map
// is copied.
func (s *Scope) Child(bindings map[string]any) *Scope {
	vars := make(map[string]any, len(bindings))
	maps.Copy(vars, bindings)
	return &Scope{vars: vars, parent: s, depth: s.depth + 1, programs: s.programs}
}

// Get resolves a name, innermost scope first
func (s *Scope) Get(name string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Has checks if a name is visible from s
func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Depth returns the number of layers above the root scope
func (s *Scope) Depth() int {
	return s.depth
}

// Env flattens the visible bindings into a new map. Inner bindings win.
func (s *Scope) Env() map[string]any {
	if s.parent == nil {
		env := make(map[string]any, len(s.vars))
		maps.Copy(env, s.vars)
		return env
	}
	env := s.parent.Env()
	maps.Copy(env, s.vars)
	return env
}

// Keys returns all visible names in sorted order.
// Implements KeyLister for suggestions.
func (s *Scope) Keys() []string {
	seen := make(map[string]struct{})
	for cur := s; cur != nil; cur = cur.parent {
		for k := range cur.vars {
			seen[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}
