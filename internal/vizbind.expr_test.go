package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	return NewEvaluator(builtinRegistry(t), nil)
}

type testPlayer struct {
	Name   string `json:"name"`
	Age    int    `mapstructure:"age"`
	secret string
}

func TestEvaluator_Evaluate(t *testing.T) {
	ev := newTestEvaluator(t)
	scope := NewScope(map[string]any{
		"a":    10,
		"b":    20,
		"team": map[string]any{"name": "Red Star FC", "isChampion": false, "score": 0.5},
		"teams": []any{
			map[string]any{"name": "Red Star FC"},
			map[string]any{"name": "Paris FC"},
		},
		"player": testPlayer{Name: "John Doe", Age: 30},
		"labels": map[string]string{"home": "Home"},
	})

	tests := []struct {
		name     string
		expr     string
		expected any
	}{
		{"arithmetic", "a + b", 30},
		{"product", "a * b", 200},
		{"string literal", "'test'", "test"},
		{"double quoted", `"test"`, "test"},
		{"member", "team.name", "Red Star FC"},
		{"bracket member", `team["name"]`, "Red Star FC"},
		{"concatenation", "'Challenger: ' + team.name", "Challenger: Red Star FC"},
		{"not", "not team.isChampion", true},
		{"comparison", "a < b and b >= 20", true},
		{"index", "teams[1].name", "Paris FC"},
		{"sequence literal", "[1, 2]", []any{1, 2}},
		{"struct tag", "player.name", "John Doe"},
		{"struct field", "player.Name", "John Doe"},
		{"mapstructure tag", "player.age + 1", 31},
		{"typed map", "labels.home", "Home"},
		{"function", "uppercase(team.name)", "RED STAR FC"},
		{"percentage", "percentage(team.score)", "50.00%"},
		{"round overrides builtin", "round(1.005, 2)", "1.00"},
		{"positional default", "abbreviate_name(player.name, false)", "J. Doe"},
		{"nested calls", "truncate(capitalize('paris saint-germain'), 5)", "Paris..."},
		{"optional chaining", "team?.missing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Evaluate(tt.expr, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEvaluator_UnresolvedReference(t *testing.T) {
	ev := newTestEvaluator(t)
	scope := NewScope(map[string]any{
		"team":   map[string]any{"color": "blue", "name": "PSG"},
		"player": testPlayer{Name: "John"},
		"empty":  nil,
	})

	tests := []struct {
		name    string
		expr    string
		missing string
		message string
	}{
		{"missing name", "teem.color", "teem", ErrMsgUnresolvedName},
		{"missing name in arithmetic", "unknown + 1", "unknown", ErrMsgUnresolvedName},
		{"missing member", "team.border", "border", ErrMsgUnresolvedMember},
		{"missing nested member", "team.border.width", "border", ErrMsgUnresolvedMember},
		{"missing struct field", "player.nickname", "nickname", ErrMsgUnresolvedMember},
		{"unexported field", "player.secret", "secret", ErrMsgUnresolvedMember},
		{"member of nil", "empty.x", "x", ErrMsgMemberOfNil},
		{"unknown function", "shout(team.name)", "shout", ErrMsgUnresolvedName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ev.Evaluate(tt.expr, scope)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnresolvedReference))

			var re *RenderError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.missing, re.Name)
			assert.Equal(t, tt.message, re.Message)
			assert.Equal(t, tt.expr, re.Expression)
		})
	}
}

func TestEvaluator_Suggestions(t *testing.T) {
	ev := newTestEvaluator(t)
	scope := NewScope(map[string]any{
		"team":  map[string]any{"color": "blue"},
		"teams": []any{},
	})

	_, err := ev.Evaluate("taem", scope)
	var re *RenderError
	require.True(t, errors.As(err, &re))
	assert.Contains(t, re.Suggestions, "team")
	assert.Contains(t, err.Error(), "Did you mean")

	_, err = ev.Evaluate("team.colour", scope)
	require.True(t, errors.As(err, &re))
	assert.Equal(t, []string{"color"}, re.Suggestions)
}

func TestEvaluator_ExpressionErrors(t *testing.T) {
	ev := newTestEvaluator(t)
	scope := NewScope(map[string]any{"team": map[string]any{"name": "PSG"}, "n": 3})

	tests := []struct {
		name string
		expr string
	}{
		{"syntax", "team.name +"},
		{"function type error", "capitalize(n)"},
		{"function arg count", "truncate('abc')"},
		{"index out of range", "[1][5]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ev.Evaluate(tt.expr, scope)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrExpression))
			assert.False(t, errors.Is(err, ErrUnresolvedReference))
		})
	}
}

func TestEvaluator_ContextFunctionsFirst(t *testing.T) {
	ev := newTestEvaluator(t)
	scope := NewScope(map[string]any{
		"shout":     func(s string) string { return s + "!" },
		"uppercase": func(s string) string { return "custom:" + s },
	})

	got, err := ev.Evaluate("shout('hi')", scope)
	require.NoError(t, err)
	assert.Equal(t, "hi!", got)

	got, err = ev.Evaluate("uppercase('hi')", scope)
	require.NoError(t, err)
	assert.Equal(t, "custom:hi", got)
}

func TestEvaluator_ParseProps(t *testing.T) {
	ev := newTestEvaluator(t)
	scope := NewScope(map[string]any{
		"a":      10,
		"b":      20,
		"player": map[string]any{"name": "John", "age": 30},
	})

	t.Run("evaluates every segment", func(t *testing.T) {
		props, err := ev.ParseProps("x: a + b; y: a * b ; z: 'test'; empty: '' ; spaced :  42", scope)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"x": 30, "y": 200, "z": "test", "empty": "", "spaced": 42}, props)
	})

	t.Run("nested members", func(t *testing.T) {
		props, err := ev.ParseProps("player_name: player.name; age_next_year: player.age + 1", scope)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"player_name": "John", "age_next_year": 31}, props)
	})

	t.Run("empty", func(t *testing.T) {
		props, err := ev.ParseProps("", scope)
		require.NoError(t, err)
		assert.Empty(t, props)
	})

	t.Run("missing reference", func(t *testing.T) {
		_, err := ev.ParseProps("x: nope", scope)
		assert.True(t, errors.Is(err, ErrUnresolvedReference))
	})

	t.Run("malformed segment", func(t *testing.T) {
		_, err := ev.ParseProps("x a", scope)
		assert.True(t, errors.Is(err, ErrExpression))
	})
}
