package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestDefinitionsNormalize(t *testing.T) {
	t.Parallel()

	t.Run("string", func(t *testing.T) {
		t.Parallel()
		d := DefinitionsFromString("main.version=1.2.3")
		assert.Equal(t, []string{"main.version=1.2.3"}, d.Normalize())
	})

	t.Run("list keeps declaration order", func(t *testing.T) {
		t.Parallel()
		d := DefinitionsFromList([]string{"b=2", "a=1"})
		assert.Equal(t, []string{"b=2", "a=1"}, d.Normalize())
	})

	t.Run("map sorts keys and emits bare keys for nil values", func(t *testing.T) {
		t.Parallel()
		one, two := "1", "2"
		d := DefinitionsFromMap(map[string]*string{"a": &one, "c": nil, "b": &two})
		assert.Equal(t, []string{"a=1", "b=2", "c"}, d.Normalize())
	})

	t.Run("zero value", func(t *testing.T) {
		t.Parallel()
		var d Definitions
		assert.True(t, d.IsZero())
		assert.Nil(t, d.Normalize())
	})
}

func TestDefinitionsFromCty(t *testing.T) {
	t.Parallel()

	t.Run("null is no definitions", func(t *testing.T) {
		t.Parallel()
		d, err := DefinitionsFromCty(cty.NullVal(cty.String))
		require.NoError(t, err)
		assert.True(t, d.IsZero())
	})

	t.Run("string", func(t *testing.T) {
		t.Parallel()
		d, err := DefinitionsFromCty(cty.StringVal("x=y"))
		require.NoError(t, err)
		assert.Equal(t, []string{"x=y"}, d.Normalize())
	})

	t.Run("tuple of strings", func(t *testing.T) {
		t.Parallel()
		d, err := DefinitionsFromCty(cty.TupleVal([]cty.Value{
			cty.StringVal("b=2"), cty.StringVal("a=1"),
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"b=2", "a=1"}, d.Normalize())
	})

	t.Run("object with null value", func(t *testing.T) {
		t.Parallel()
		d, err := DefinitionsFromCty(cty.ObjectVal(map[string]cty.Value{
			"a": cty.StringVal("1"),
			"c": cty.NullVal(cty.String),
			"b": cty.StringVal("2"),
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"a=1", "b=2", "c"}, d.Normalize())
	})

	t.Run("rejects non-string list element", func(t *testing.T) {
		t.Parallel()
		_, err := DefinitionsFromCty(cty.TupleVal([]cty.Value{cty.NumberIntVal(1)}))
		require.Error(t, err)
	})

	t.Run("rejects non-string map value", func(t *testing.T) {
		t.Parallel()
		_, err := DefinitionsFromCty(cty.ObjectVal(map[string]cty.Value{
			"a": cty.True,
		}))
		require.Error(t, err)
	})

	t.Run("rejects scalar non-string", func(t *testing.T) {
		t.Parallel()
		_, err := DefinitionsFromCty(cty.NumberIntVal(7))
		require.Error(t, err)
	})
}
