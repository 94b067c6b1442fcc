//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"fmt"
	"strconv"
	"strings"
)

// Coerce validates args against schema and converts leaf values to the
// declared types: string arguments are parsed into integer/number/boolean
// leaves, scalar arguments are stringified into string leaves. Nested
// objects and arrays are walked recursively. Keys without a schema entry
// pass through untouched. The input map is not mutated.
func Coerce(args map[string]any, schema *Schema) (map[string]any, error) {
	if args == nil {
		args = map[string]any{}
	}
	if schema == nil {
		return args, nil
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return nil, fmt.Errorf("required key %q missing", key)
		}
	}
	out := make(map[string]any, len(args))
	for key, value := range args {
		prop, ok := schema.Properties[key]
		if !ok {
			out[key] = value
			continue
		}
		coerced, err := coerceValue(value, prop)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		out[key] = coerced
	}
	return out, nil
}

func coerceValue(value any, schema *Schema) (any, error) {
	if value == nil || schema == nil {
		return value, nil
	}
	switch schema.Type {
	case "object":
		m, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", value)
		}
		return Coerce(m, schema)
	case "array":
		items, ok := value.([]any)
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", value)
		}
		out := make([]any, len(items))
		for i, item := range items {
			coerced, err := coerceValue(item, schema.Items)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = coerced
		}
		return out, nil
	case "string":
		return coerceString(value)
	case "integer":
		return coerceInteger(value)
	case "number":
		return coerceNumber(value)
	case "boolean":
		return coerceBoolean(value)
	default:
		return value, nil
	}
}

func coerceString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		// JSON numbers decode as float64; render integers without a dot.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", value)
	}
}

func coerceInteger(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as integer", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", value)
	}
}

func coerceNumber(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as number", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", value)
	}
}

func coerceBoolean(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("cannot parse %q as boolean", v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", value)
	}
}
