package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uratmangun/ai-custodial-wallet/schema"
)

func TestNilSchemaAcceptsAnything(t *testing.T) {
	var s *schema.Schema
	require.NoError(t, s.Validate(map[string]any{"anything": "goes"}))
}

func TestRequired(t *testing.T) {
	s := schema.MustCompile(map[string]any{
		"type":     "object",
		"required": []any{"name", "age"},
	})

	err := s.Validate(map[string]any{"name": "Alice"})
	require.ErrorIs(t, err, schema.ErrInvalid)
	assert.Contains(t, err.Error(), `"age"`)

	require.NoError(t, s.Validate(map[string]any{"name": "Alice", "age": 30}))
}

func TestPropertyTypes(t *testing.T) {
	s := schema.MustCompile(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":  map[string]any{"type": "string"},
			"age":   map[string]any{"type": "integer", "minimum": 0},
			"score": map[string]any{"type": "number", "maximum": 1},
			"tags":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	})

	require.NoError(t, s.Validate(map[string]any{"name": "Bob", "age": 25, "score": 0.5, "tags": []string{"a"}}))

	for name, doc := range map[string]map[string]any{
		"wrong type":     {"name": 123},
		"not integer":    {"age": 2.5},
		"below minimum":  {"age": -1},
		"above maximum":  {"score": 1.5},
		"bad array item": {"tags": []any{"a", 1}},
	} {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, s.Validate(doc), schema.ErrInvalid)
		})
	}
}

func TestAdditionalProperties(t *testing.T) {
	s := schema.MustCompile(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
		"additionalProperties": false,
	})

	err := s.Validate(map[string]any{"name": "ok", "extra": "bad", "another": 1})
	require.ErrorIs(t, err, schema.ErrInvalid)
	assert.Contains(t, err.Error(), "another, extra")

	require.NoError(t, s.Validate(map[string]any{"name": "ok"}))
}

func TestPatternAndLength(t *testing.T) {
	s := schema.MustCompile(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"publicKey": map[string]any{"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$"},
			"label":     map[string]any{"type": "string", "minLength": 1, "maxLength": 4},
		},
	})

	require.NoError(t, s.Validate(map[string]any{"publicKey": "0x" + "ab12cd34ef" + "ab12cd34ef" + "ab12cd34ef" + "ab12cd34ef"}))
	require.ErrorIs(t, s.Validate(map[string]any{"publicKey": "0xAAA"}), schema.ErrInvalid)
	require.ErrorIs(t, s.Validate(map[string]any{"label": ""}), schema.ErrInvalid)
	require.ErrorIs(t, s.Validate(map[string]any{"label": "toolong"}), schema.ErrInvalid)
}

func TestEnum(t *testing.T) {
	s := schema.MustCompile(map[string]any{
		"properties": map[string]any{
			"kind": map[string]any{"enum": []any{"hot", "cold"}},
		},
	})
	require.NoError(t, s.Validate(map[string]any{"kind": "hot"}))
	require.ErrorIs(t, s.Validate(map[string]any{"kind": "warm"}), schema.ErrInvalid)
}

func TestCompileRejectsBadPattern(t *testing.T) {
	_, err := schema.Compile(map[string]any{
		"properties": map[string]any{
			"x": map[string]any{"pattern": "("},
		},
	})
	require.Error(t, err)

	assert.Panics(t, func() {
		schema.MustCompile(map[string]any{"pattern": 5})
	})
}
