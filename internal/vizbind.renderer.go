package internal

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"
)

// RendererConfig holds renderer configuration options.
type RendererConfig struct {
	MaxDepth int // Maximum element nesting depth (0 = unlimited)

	// OnDirective is called after each successfully applied directive.
	OnDirective func(d Directive)
}

// DefaultRendererConfig returns the default renderer configuration.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		MaxDepth: DefaultMaxDepth,
	}
}

// Renderer walks a document tree and resolves its directives in place.
// It holds no per-render state and is safe for concurrent use on distinct
// trees.
type Renderer struct {
	eval   *Evaluator
	config RendererConfig
	logger *zap.Logger
}

// NewRenderer creates a renderer over a frozen function registry.
func NewRenderer(funcs *FuncRegistry, config RendererConfig, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgRendererCreated)

	return &Renderer{
		eval:   NewEvaluator(funcs, logger),
		config: config,
		logger: logger,
	}
}

// Evaluator returns the expression evaluator used by the renderer
func (r *Renderer) Evaluator() *Evaluator {
	return r.eval
}

// Render resolves every directive in the tree rooted at root.
func (r *Renderer) Render(ctx context.Context, root *Node, scope *Scope) error {
	r.logger.Debug(LogMsgRenderStart, zap.Int(LogFieldNodes, root.Count()))

	if err := r.renderNode(ctx, root, root, scope, 0); err != nil {
		return err
	}

	r.logger.Debug(LogMsgRenderEnd)
	return nil
}

// renderNode runs the node's directives in order, then recurses into a
// snapshot of its children unless the node was detached or repeated.
func (r *Renderer) renderNode(ctx context.Context, root, n *Node, scope *Scope, depth int) error {
	if n.Kind != NodeElement {
		return nil
	}
	if r.config.MaxDepth > 0 && depth > r.config.MaxDepth {
		e := NewRenderError(KindMaxDepth, ErrMsgMaxDepthExceeded)
		e.Tag = n.Tag
		return e
	}

	repeated := false
	for _, d := range directiveOrder {
		expression, ok := n.RemoveAttr(d.Attr())
		if !ok {
			continue
		}
		if expression == "" {
			r.logger.Debug(LogMsgEmptyDirective, zap.String(LogFieldDirective, d.String()))
			continue
		}

		if err := r.apply(ctx, d, root, n, expression, scope, depth); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return err
			}
			return asRenderError(err, KindExpression, ErrMsgExpressionFailed).
				withDirective(d.Attr(), expression, n.Tag)
		}

		r.logger.Debug(LogMsgDirectiveApplied,
			zap.String(LogFieldDirective, d.String()),
			zap.String(LogFieldTag, n.Tag),
			zap.Int(LogFieldDepth, depth))
		if r.config.OnDirective != nil {
			r.config.OnDirective(d)
		}

		if !n.Attached(root) {
			return nil
		}
		if d == DirectiveRepeat {
			repeated = true
		}
	}
	if repeated {
		return nil
	}

	for _, child := range slices.Clone(n.Children) {
		if err := r.renderNode(ctx, root, child, scope, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) apply(ctx context.Context, d Directive, root, n *Node, expression string, scope *Scope, depth int) error {
	switch d {
	case DirectiveBind:
		return r.applyBind(n, expression, scope)
	case DirectiveAttr:
		return r.applyAttr(n, expression, scope)
	case DirectiveIf:
		return r.applyIf(n, expression, scope)
	case DirectiveRepeat:
		return r.applyRepeat(ctx, root, n, expression, scope, depth)
	default:
		return nil
	}
}
