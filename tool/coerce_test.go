//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coerceSchema() *Schema {
	return &Schema{
		Type:     "object",
		Required: []string{"name"},
		Properties: map[string]*Schema{
			"name":    {Type: "string"},
			"count":   {Type: "integer"},
			"ratio":   {Type: "number"},
			"enabled": {Type: "boolean"},
			"tags":    {Type: "array", Items: &Schema{Type: "string"}},
		},
	}
}

func TestCoerceRequiredMissing(t *testing.T) {
	_, err := Coerce(map[string]any{"count": 1}, coerceSchema())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestCoerceStringToNumber(t *testing.T) {
	out, err := Coerce(map[string]any{
		"name":  "x",
		"count": "42",
		"ratio": "0.5",
	}, coerceSchema())
	require.NoError(t, err)
	assert.Equal(t, 42, out["count"])
	assert.Equal(t, 0.5, out["ratio"])
}

func TestCoerceFloatToInteger(t *testing.T) {
	// JSON decoding always yields float64 for numbers.
	out, err := Coerce(map[string]any{"name": "x", "count": float64(7)}, coerceSchema())
	require.NoError(t, err)
	assert.Equal(t, 7, out["count"])
}

func TestCoerceBooleanFromString(t *testing.T) {
	out, err := Coerce(map[string]any{"name": "x", "enabled": "true"}, coerceSchema())
	require.NoError(t, err)
	assert.Equal(t, true, out["enabled"])
}

func TestCoerceUnknownKeysPassThrough(t *testing.T) {
	out, err := Coerce(map[string]any{"name": "x", "extra": "kept"}, coerceSchema())
	require.NoError(t, err)
	assert.Equal(t, "kept", out["extra"])
}

func TestCoerceDoesNotMutateInput(t *testing.T) {
	in := map[string]any{"name": "x", "count": "3"}
	_, err := Coerce(in, coerceSchema())
	require.NoError(t, err)
	assert.Equal(t, "3", in["count"])
}

func TestCoerceArrayItems(t *testing.T) {
	out, err := Coerce(map[string]any{
		"name": "x",
		"tags": []any{"a", "b"},
	}, coerceSchema())
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, out["tags"])
}

// Coercing a value that already matches its schema leaf type returns it
// unchanged, for every leaf type.
func TestCoerceRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	schema := coerceSchema()
	properties.Property("string round-trips", prop.ForAll(
		func(s string) bool {
			out, err := Coerce(map[string]any{"name": s}, schema)
			return err == nil && out["name"] == s
		},
		gen.AnyString(),
	))
	properties.Property("integer round-trips", prop.ForAll(
		func(n int) bool {
			out, err := Coerce(map[string]any{"name": "x", "count": n}, schema)
			return err == nil && out["count"] == n
		},
		gen.Int(),
	))
	properties.Property("number round-trips", prop.ForAll(
		func(f float64) bool {
			out, err := Coerce(map[string]any{"name": "x", "ratio": f}, schema)
			return err == nil && out["ratio"] == f
		},
		gen.Float64Range(-1e9, 1e9),
	))
	properties.Property("boolean round-trips", prop.ForAll(
		func(b bool) bool {
			out, err := Coerce(map[string]any{"name": "x", "enabled": b}, schema)
			return err == nil && out["enabled"] == b
		},
		gen.Bool(),
	))
	properties.TestingRun(t)
}
