//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package function provides a tool implementation backed by a plain Go
// function, used for the built-in tool catalog and for tests.
package function

import (
	"context"

	"github.com/wangchen7722/eflycode-cli-sub001/tool"
)

// Handler is the function signature wrapped by Tool. Arguments arrive
// already coerced against the declared schema.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool implements tool.CallableTool for a single function.
type Tool struct {
	decl *tool.Declaration
	fn   Handler
}

// Option configures a Tool.
type Option func(*tool.Declaration)

// WithDescription sets the description of the function tool.
func WithDescription(description string) Option {
	return func(d *tool.Declaration) {
		d.Description = description
	}
}

// WithPermission sets the permission class of the function tool.
func WithPermission(p tool.Permission) Option {
	return func(d *tool.Declaration) {
		d.Permission = p
	}
}

// WithSchema sets the input schema of the function tool.
func WithSchema(s *tool.Schema) Option {
	return func(d *tool.Declaration) {
		d.InputSchema = s
	}
}

// New creates a function tool with the given name and handler.
func New(name string, fn Handler, opts ...Option) *Tool {
	decl := &tool.Declaration{
		Name:       name,
		Type:       tool.TypeFunction,
		Permission: tool.PermissionRead,
		InputSchema: &tool.Schema{
			Type: "object",
		},
	}
	for _, opt := range opts {
		opt(decl)
	}
	return &Tool{decl: decl, fn: fn}
}

// Declaration returns the tool's declaration information.
func (t *Tool) Declaration() *tool.Declaration {
	return t.decl
}

// Call executes the wrapped function.
func (t *Tool) Call(ctx context.Context, args map[string]any) (string, error) {
	return t.fn(ctx, args)
}
