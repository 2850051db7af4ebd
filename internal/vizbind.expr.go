package internal

import (
	"errors"
	"reflect"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
	"go.uber.org/zap"
)

// memberFuncName is the strict member lookup that replaces a.b and a["b"].
// The leading underscores keep it out of the way of user names.
const memberFuncName = "__member"

// Evaluator compiles and runs directive expressions with expr-lang against
// a Scope. Names are checked strictly: a missing name or member is an
// UnresolvedReference instead of nil.
type Evaluator struct {
	funcs          *FuncRegistry
	logger         *zap.Logger
	maxSuggestions int
}

// NewEvaluator creates an evaluator backed by the given function registry
func NewEvaluator(funcs *FuncRegistry, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		funcs:          funcs,
		logger:         logger,
		maxSuggestions: DefaultMaxSuggestions,
	}
}

// Evaluate compiles source against the visible bindings of scope and runs it.
// Programs are reused across the scopes of one render.
func (ev *Evaluator) Evaluate(source string, scope *Scope) (any, error) {
	env := scope.Env()
	program, err := ev.compile(source, env, scope)
	if err != nil {
		return nil, err
	}

	out, err := expr.Run(program, env)
	if err != nil {
		var miss *missingMember
		if errors.As(err, &miss) {
			return nil, ev.unresolved(miss.message, miss.name, source, miss.candidates)
		}
		return nil, ev.expressionError(source, err)
	}
	return out, nil
}

func (ev *Evaluator) compile(source string, env map[string]any, scope *Scope) (*vm.Program, error) {
	if program, ok := scope.programs.lookup(source, env); ok {
		return program, nil
	}

	refs := &referenceVisitor{declared: make(map[string]bool)}
	opts := []expr.Option{
		expr.Env(env),
		expr.Patch(refs),
		expr.Function(memberFuncName, member),
	}
	for _, name := range ev.funcs.List() {
		if _, shadowed := env[name]; shadowed {
			ev.logger.Debug(LogMsgFuncShadowed, zap.String(LogFieldFunc, name))
			continue
		}
		f, _ := ev.funcs.Get(name)
		opts = append(opts, expr.Function(name, func(params ...any) (any, error) {
			return f.call(params)
		}))
	}

	program, err := expr.Compile(source, opts...)
	if err != nil {
		for _, name := range refs.names {
			if refs.declared[name] || strings.HasPrefix(name, "$") || name == memberFuncName {
				continue
			}
			if _, ok := env[name]; ok || ev.funcs.Has(name) {
				continue
			}
			return nil, ev.unresolved(ErrMsgUnresolvedName, name, source, scope.Keys())
		}
		return nil, ev.expressionError(source, err)
	}

	scope.programs.store(source, program, refs.names, env)
	return program, nil
}

func (ev *Evaluator) unresolved(message, name, source string, candidates []string) *RenderError {
	return &RenderError{
		Kind:        KindUnresolvedReference,
		Message:     message,
		Name:        name,
		Expression:  source,
		Suggestions: FindSimilarStrings(name, candidates, ev.maxSuggestions),
	}
}

func (ev *Evaluator) expressionError(source string, err error) *RenderError {
	ev.logger.Debug(LogMsgExpressionFailed,
		zap.String(LogFieldExpression, source),
		zap.Error(err))
	var re *RenderError
	if errors.As(err, &re) {
		return re
	}
	return &RenderError{
		Kind:       KindExpression,
		Message:    ErrMsgExpressionFailed,
		Expression: source,
		Cause:      err,
	}
}

// referenceVisitor records identifiers for error classification and
// rewrites member access into strict lookups.
type referenceVisitor struct {
	names    []string
	declared map[string]bool
}

// Visit implements ast.Visitor
func (v *referenceVisitor) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		v.names = append(v.names, n.Value)
	case *ast.VariableDeclaratorNode:
		v.declared[n.Name] = true
	case *ast.MemberNode:
		if n.Method || n.Optional {
			return
		}
		if _, ok := n.Property.(*ast.StringNode); !ok {
			return
		}
		ast.Patch(node, &ast.CallNode{
			Callee:    &ast.IdentifierNode{Value: memberFuncName},
			Arguments: []ast.Node{n.Node, n.Property},
		})
	}
}

// missingMember aborts a run at the first strict lookup failure
type missingMember struct {
	message    string
	name       string
	candidates []string
}

func (m *missingMember) Error() string {
	return m.message + ": " + m.name
}

func member(params ...any) (any, error) {
	name, _ := params[1].(string)
	v, miss := lookupMember(params[0], name)
	if miss != nil {
		return nil, miss
	}
	return v, nil
}

// lookupMember resolves name on maps with string keys and on structs.
// Struct fields match by name or by their mapstructure/json tag.
func lookupMember(obj any, name string) (any, *missingMember) {
	if m, ok := obj.(map[string]any); ok {
		if v, found := m[name]; found {
			return v, nil
		}
		return nil, &missingMember{message: ErrMsgUnresolvedMember, name: name, candidates: mapKeys(m)}
	}

	rv := reflect.ValueOf(obj)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			break
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() || ((rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil()) {
		return nil, &missingMember{message: ErrMsgMemberOfNil, name: name}
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if v.IsValid() {
			return v.Interface(), nil
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		return nil, &missingMember{message: ErrMsgUnresolvedMember, name: name, candidates: keys}

	case reflect.Struct:
		t := rv.Type()
		fields := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			fieldName := fieldKey(f)
			if f.Name == name || fieldName == name {
				return rv.Field(i).Interface(), nil
			}
			fields = append(fields, fieldName)
		}
		return nil, &missingMember{message: ErrMsgUnresolvedMember, name: name, candidates: fields}
	}

	return nil, &missingMember{message: ErrMsgUnresolvedMember, name: name}
}

func fieldKey(f reflect.StructField) string {
	for _, tag := range []string{"mapstructure", "json"} {
		if v, ok := f.Tag.Lookup(tag); ok {
			if name, _, _ := strings.Cut(v, ","); name != "" && name != "-" {
				return name
			}
		}
	}
	return f.Name
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
