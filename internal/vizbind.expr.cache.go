package internal

import (
	"reflect"
	"strings"

	"github.com/expr-lang/expr/vm"
)

// programCache holds the compiled expressions of one render. expr-lang
// specializes a program for the types of the env values it saw at compile
// time and reads names absent from a map env as nil, so a program is only
// reused while every name it references keeps its presence and type.
//
// A programCache belongs to one render and is not safe for concurrent use.
type programCache struct {
	entries  map[string]*cachedProgram
	compiles int
}

type cachedProgram struct {
	program *vm.Program
	shape   []nameShape
}

// nameShape is a referenced name as the env held it at compile time
type nameShape struct {
	name    string
	present bool
	typ     reflect.Type
}

func newProgramCache() *programCache {
	return &programCache{entries: make(map[string]*cachedProgram)}
}

// lookup returns the program for source when env still matches its shape
func (c *programCache) lookup(source string, env map[string]any) (*vm.Program, bool) {
	if c == nil {
		return nil, false
	}
	cp, ok := c.entries[source]
	if !ok {
		return nil, false
	}
	for _, s := range cp.shape {
		v, present := env[s.name]
		if present != s.present || reflect.TypeOf(v) != s.typ {
			return nil, false
		}
	}
	return cp.program, true
}

// store records program with the shape of the names it references
func (c *programCache) store(source string, program *vm.Program, names []string, env map[string]any) {
	if c == nil {
		return
	}
	c.compiles++

	shape := make([]nameShape, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] || strings.HasPrefix(name, "$") || name == memberFuncName {
			continue
		}
		seen[name] = true
		v, present := env[name]
		shape = append(shape, nameShape{name: name, present: present, typ: reflect.TypeOf(v)})
	}
	c.entries[source] = &cachedProgram{program: program, shape: shape}
}
