package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Clone(t *testing.T) {
	nested := map[string]any{"a": 1}
	s := State{"k": "v", "nested": nested}

	c := s.Clone()
	c["k"] = "changed"
	c["new"] = true

	assert.Equal(t, "v", s["k"])
	assert.NotContains(t, s, "new")
	c["nested"].(map[string]any)["a"] = 2
	assert.Equal(t, 2, nested["a"], "clone is shallow")
}

func TestState_CloneNil(t *testing.T) {
	var s State
	c := s.Clone()
	require.NotNil(t, c)
	assert.Empty(t, c)
}

func TestState_Merge(t *testing.T) {
	s := State{"a": 1, "cfg": map[string]any{"x": 1}}
	s.Merge(State{"a": 2, "cfg": map[string]any{"y": 2}, "b": 3})

	assert.Equal(t, State{"a": 2, "cfg": map[string]any{"y": 2}, "b": 3}, s)

	s.Merge(nil)
	assert.Len(t, s, 3)
}

func TestState_String(t *testing.T) {
	s := State{"src": "x = 1", "none": nil, "num": 4}

	got, err := s.String("src")
	require.NoError(t, err)
	assert.Equal(t, "x = 1", got)

	got, err = s.String("missing")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	got, err = s.String("none")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = s.String("num")
	assert.ErrorIs(t, err, ErrInvalidState)
}
