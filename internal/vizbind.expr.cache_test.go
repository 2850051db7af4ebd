package internal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_ProgramsReusedAcrossRepeat(t *testing.T) {
	teams := make([]any, 0, 5)
	for _, name := range []string{"Ajax", "PSV", "AZ", "Twente", "Utrecht"} {
		teams = append(teams, map[string]any{"name": name, "score": 3})
	}

	root := parseString(t, `<svg><g data-repeat="teams"><text data-bind="name"/><rect data-attr="width: score * 10"/></g></svg>`)
	scope := NewScope(map[string]any{"teams": teams})
	r := newTestRenderer(t, DefaultRendererConfig())
	require.NoError(t, r.Render(context.Background(), root, scope))

	out := serializeString(t, root)
	assert.Contains(t, out, `<text>Utrecht</text><rect width="30"/>`)
	assert.Equal(t, 3, scope.programs.compiles)
}

func TestEvaluator_ProgramShapeChanges(t *testing.T) {
	ev := newTestEvaluator(t)
	root := NewScope(map[string]any{"title": "league", "x": 1.234})

	t.Run("same types reuse the program", func(t *testing.T) {
		got, err := ev.Evaluate("score * 2", root.Child(map[string]any{"score": 1}))
		require.NoError(t, err)
		assert.Equal(t, 2, got)

		got, err = ev.Evaluate("score * 2", root.Child(map[string]any{"score": 3}))
		require.NoError(t, err)
		assert.Equal(t, 6, got)
		assert.Equal(t, 1, root.programs.compiles)
	})

	t.Run("a new type recompiles", func(t *testing.T) {
		got, err := ev.Evaluate("score * 2", root.Child(map[string]any{"score": 1.5}))
		require.NoError(t, err)
		assert.Equal(t, 3.0, got)
		assert.Equal(t, 2, root.programs.compiles)
	})

	t.Run("a missing name stays unresolved", func(t *testing.T) {
		_, err := ev.Evaluate("score * 2", root.Child(map[string]any{"points": 1}))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnresolvedReference))

		var re *RenderError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "score", re.Name)
	})

	t.Run("missing members are checked on every run", func(t *testing.T) {
		got, err := ev.Evaluate("team.name", root.Child(map[string]any{"team": map[string]any{"name": "Ajax"}}))
		require.NoError(t, err)
		assert.Equal(t, "Ajax", got)

		_, err = ev.Evaluate("team.name", root.Child(map[string]any{"team": map[string]any{"nick": "Godenzonen"}}))
		require.Error(t, err)
		var re *RenderError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, KindUnresolvedReference, re.Kind)
		assert.Equal(t, "name", re.Name)
	})

	t.Run("a shadowing binding replaces the builtin", func(t *testing.T) {
		got, err := ev.Evaluate("round(x)", root)
		require.NoError(t, err)
		assert.Equal(t, "1.23", got)

		got, err = ev.Evaluate("round(x)", root.Child(map[string]any{"round": func(v float64) string { return "custom" }}))
		require.NoError(t, err)
		assert.Equal(t, "custom", got)
	})

	t.Run("separate roots do not share programs", func(t *testing.T) {
		other := NewScope(map[string]any{"title": "cup"})
		_, err := ev.Evaluate("title", other)
		require.NoError(t, err)
		assert.Equal(t, 1, other.programs.compiles)
	})
}
