//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Registry maps tool names to their implementations. It is populated at
// startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	tools map[string]CallableTool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]CallableTool)}
}

// Register adds a tool. Registering a duplicate name is an error.
func (r *Registry) Register(t CallableTool) error {
	decl := t.Declaration()
	if decl == nil || decl.Name == "" {
		return fmt.Errorf("tool declaration must carry a name")
	}
	if _, exists := r.tools[decl.Name]; exists {
		return fmt.Errorf("tool %q already registered", decl.Name)
	}
	r.tools[decl.Name] = t
	r.order = append(r.order, decl.Name)
	return nil
}

// MustRegister registers tools and panics on conflict. Used during startup
// wiring where a duplicate name is a programming error.
func (r *Registry) MustRegister(tools ...CallableTool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (CallableTool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Declarations returns all declarations in registration order.
func (r *Registry) Declarations() []*Declaration {
	out := make([]*Declaration, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Declaration())
	}
	return out
}

// Tools returns a name-keyed view suitable for model.Request.Tools.
func (r *Registry) Tools() map[string]Tool {
	out := make(map[string]Tool, len(r.tools))
	for name, t := range r.tools {
		out[name] = t
	}
	return out
}

// Dispatch parses rawArgs, coerces them against the tool's input schema and
// invokes the tool body. An empty or blank argument string is treated as {}.
// Coercion failures surface as *ParameterError; anything raised by the body
// is wrapped as *ExecutionError.
func (r *Registry) Dispatch(ctx context.Context, name string, rawArgs []byte) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", NewExecutionError(name, "tool not found", nil)
	}

	var args map[string]any
	if trimmed := strings.TrimSpace(string(rawArgs)); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
			return "", NewParameterError(name, "arguments are not valid JSON", err)
		}
	}
	coerced, err := Coerce(args, t.Declaration().InputSchema)
	if err != nil {
		return "", NewParameterError(name, err.Error(), nil)
	}

	result, err := t.Call(ctx, coerced)
	if err != nil {
		var pe *ParameterError
		var ee *ExecutionError
		if errors.As(err, &pe) || errors.As(err, &ee) {
			return "", err
		}
		return "", NewExecutionError(name, err.Error(), err)
	}
	return result, nil
}
