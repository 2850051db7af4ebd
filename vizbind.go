// Package vizbind renders data-driven SVG templates.
//
// A template is an ordinary XML/SVG document whose elements carry directive
// attributes. Each directive holds an expression that is evaluated against
// the data passed to Render:
//
//	<svg>
//	  <text data-bind="'Challenger: ' + team.name"/>
//	  <rect data-attr="width: score * 10; fill: team.color"/>
//	  <g data-if="showLegend">...</g>
//	  <g data-repeat="teams"><text data-attr="y: 20 + index" data-bind="name"/></g>
//	</svg>
//
// # Basic Usage
//
//	engine := vizbind.MustNew()
//	svg, err := engine.Render(ctx, template, map[string]any{
//	    "team": map[string]any{"name": "Red Star FC"},
//	})
//
// # Directives
//
// Directives run per element in a fixed order: data-bind, data-attr, data-if,
// data-repeat. Each directive attribute is removed from the output.
//
// data-bind sets the element text to the expression result.
//
// data-attr assigns attributes from "name: expression" pairs separated by
// semicolons.
//
// data-if removes the element (and its tail text) when the expression is
// false. The result must be a boolean.
//
// data-repeat evaluates to a sequence and repeats the element's children once
// per item. Mapping items expose their keys as names and every iteration
// binds "index".
//
// data-style is reserved and passes through untouched.
//
// # Expressions
//
// Expressions use the expr-lang syntax (github.com/expr-lang/expr): literals,
// arithmetic, comparisons, "and"/"or"/"not", member access and function calls.
// Names that do not resolve fail the render with an UnresolvedReference error
// that suggests similar names.
//
// Built-in functions: percentage, round, capitalize, uppercase, truncate,
// abbreviate_name. Register more with WithFunc.
//
// # Configuration
//
//	engine, _ := vizbind.New(
//	    vizbind.WithLogger(logger),
//	    vizbind.WithMaxDepth(64),
//	    vizbind.WithStorage(vizbind.NewMemoryStorage()),
//	    vizbind.WithResultCache(vizbind.NewMemoryResultCache(vizbind.DefaultResultCacheConfig())),
//	)
package vizbind
