package vizbind

import (
	"github.com/itsatony/go-vizbind/internal"
)

// Func represents a custom function that can be used in expressions.
type Func struct {
	// Name is the function identifier used in expressions (e.g., "double" for double(x))
	Name string
	// MinArgs is the minimum number of arguments required
	MinArgs int
	// MaxArgs is the maximum number of arguments allowed (-1 for variadic)
	MaxArgs int
	// Fn is the function implementation
	Fn func(args []any) (any, error)
}

func (f *Func) toInternal() *internal.Func {
	if f == nil {
		return nil
	}
	return &internal.Func{
		Name:    f.Name,
		MinArgs: f.MinArgs,
		MaxArgs: f.MaxArgs,
		Fn:      f.Fn,
	}
}

// HasFunc checks if a function is available to expressions.
func (e *Engine) HasFunc(name string) bool {
	return e.funcs.Has(name)
}

// Functions returns the names of every available function in sorted order.
func (e *Engine) Functions() []string {
	return e.funcs.List()
}
