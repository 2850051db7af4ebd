package internal

import (
	"context"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// applyBind sets the node text to the string form of the expression result.
func (r *Renderer) applyBind(n *Node, expression string, scope *Scope) error {
	v, err := r.eval.Evaluate(expression, scope)
	if err != nil {
		return err
	}
	n.Text = ValueToString(v)
	return nil
}

// applyAttr assigns attributes from "name: expr; ..." in order. A failure
// leaves the assignments made so far in place.
func (r *Renderer) applyAttr(n *Node, spec string, scope *Scope) error {
	return eachSegment(spec, func(name, expression string) error {
		v, err := r.eval.Evaluate(expression, scope)
		if err != nil {
			return err
		}
		n.SetAttr(name, ValueToString(v))
		return nil
	})
}

// applyIf detaches the node when the expression is false. The root has no
// parent and stays in place.
func (r *Renderer) applyIf(n *Node, expression string, scope *Scope) error {
	v, err := r.eval.Evaluate(expression, scope)
	if err != nil {
		return err
	}
	keep, ok := v.(bool)
	if !ok {
		return &RenderError{
			Kind:    KindInvalidDirectiveType,
			Message: ErrMsgNotBoolean,
			Type:    typeName(v),
		}
	}
	if !keep && n.Parent != nil {
		n.Detach()
		r.logger.Debug(LogMsgNodeDetached, zap.String(LogFieldTag, n.Tag))
	}
	return nil
}

// applyRepeat regenerates the node's children once per item. Each template
// child is cloned, appended, then rendered in a scope that layers the item
// keys and index over the enclosing scope.
func (r *Renderer) applyRepeat(ctx context.Context, root, n *Node, expression string, scope *Scope, depth int) error {
	v, err := r.eval.Evaluate(expression, scope)
	if err != nil {
		return err
	}
	items, ok := toSequence(v)
	if !ok {
		return &RenderError{
			Kind:    KindInvalidDirectiveType,
			Message: ErrMsgNotSequence,
			Type:    typeName(v),
		}
	}

	fragment := make([]*Node, len(n.Children))
	for i, c := range n.Children {
		fragment[i] = c.Clone()
	}
	n.RemoveChildren()

	r.logger.Debug(LogMsgRepeatStart,
		zap.String(LogFieldTag, n.Tag),
		zap.Int(LogFieldItems, len(items)),
		zap.Int(LogFieldChildren, len(fragment)))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		bindings, err := itemBindings(item)
		if err != nil {
			return err
		}
		bindings[ScopeKeyIndex] = i
		iterScope := scope.Child(bindings)

		r.logger.Debug(LogMsgRepeatIteration, zap.Int(LogFieldIndex, i))
		for _, tmpl := range fragment {
			clone := tmpl.Clone()
			n.AppendChild(clone)
			if err := r.renderNode(ctx, root, clone, iterScope, depth+1); err != nil {
				return err
			}
		}
	}

	r.logger.Debug(LogMsgRepeatEnd, zap.String(LogFieldTag, n.Tag), zap.Int(LogFieldChildren, len(n.Children)))
	return nil
}

// eachSegment walks "name: expr; name: expr" and calls fn per segment.
// Empty segments are skipped; a segment without a colon is an error.
func eachSegment(spec string, fn func(name, expression string) error) error {
	for _, segment := range strings.Split(spec, AttrSegmentSeparator) {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		name, expression, found := strings.Cut(segment, AttrKeySeparator)
		if !found {
			return &RenderError{Kind: KindExpression, Message: ErrMsgMalformedAttrSeg, Expression: strings.TrimSpace(segment)}
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return &RenderError{Kind: KindExpression, Message: ErrMsgEmptyAttrName, Expression: strings.TrimSpace(segment)}
		}
		if err := fn(name, strings.TrimSpace(expression)); err != nil {
			return err
		}
	}
	return nil
}

// toSequence accepts slices and arrays. Strings and byte slices are not
// sequences.
func toSequence(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case nil, string, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// itemBindings returns the top-level names a repeat item contributes.
// Mappings contribute their keys, structs their fields; anything else
// contributes nothing.
func itemBindings(item any) (map[string]any, error) {
	bindings := make(map[string]any)
	switch val := item.(type) {
	case map[string]any:
		for k, v := range val {
			bindings[k] = v
		}
		return bindings, nil
	case nil:
		return bindings, nil
	}

	rv := reflect.ValueOf(item)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return bindings, nil
		}
		rv = rv.Elem()
	}
	switch {
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		iter := rv.MapRange()
		for iter.Next() {
			bindings[iter.Key().String()] = iter.Value().Interface()
		}
	case rv.Kind() == reflect.Struct:
		if err := mapstructure.Decode(rv.Interface(), &bindings); err != nil {
			return nil, &RenderError{Kind: KindExpression, Message: ErrMsgInvalidItem, Cause: err}
		}
	}
	return bindings, nil
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
