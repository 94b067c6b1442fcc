//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package tool provides tool interfaces and implementations for the agent system.
package tool

import (
	"context"
)

// TypeFunction is the only tool type currently advertised to models.
const TypeFunction = "function"

// Permission classifies the workspace impact of a tool.
type Permission string

// Permission constants.
const (
	PermissionRead   Permission = "read"
	PermissionEdit   Permission = "edit"
	PermissionDelete Permission = "delete"
)

// Tool is the minimal interface every tool implements.
type Tool interface {
	// Declaration returns the metadata describing the tool.
	Declaration() *Declaration
}

// CallableTool defines the interface for tools that support calling operations.
// Arguments arrive already coerced against the declared input schema. The
// returned string is opaque to the core and shown to the model verbatim.
type CallableTool interface {
	// Call calls the tool with the provided context and arguments.
	Call(ctx context.Context, args map[string]any) (string, error)

	Tool
}

// Declaration describes the metadata of a tool, such as its name, description, and expected arguments.
type Declaration struct {
	// Name is the unique identifier of the tool
	Name string `json:"name"`

	// Type is the tool type advertised to the model, normally "function".
	Type string `json:"type"`

	// Permission classifies the tool's workspace impact.
	Permission Permission `json:"permission,omitempty"`

	// Description explains the tool's purpose and functionality
	Description string `json:"description"`

	// InputSchema defines the expected input for the tool in JSON schema format.
	InputSchema *Schema `json:"inputSchema"`
}

// Schema represents the structure of JSON Schema used for defining arguments and responses.
// It follows the JSON Schema standard, supporting various types, properties, and validation rules.
// This structure is used both to advertise a tool's parameters to the model
// and to coerce incoming argument values before dispatch.
type Schema struct {
	//  Type Specifies the data type (e.g., "object", "array", "string", "number")
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of the arguments, each with its own schema
	Properties map[string]*Schema `json:"properties,omitempty"`
	// For array types, defines the schema of items in the array
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties: Controls whether properties not defined in Properties are allowed
	AdditionalProperties any `json:"additionalProperties,omitempty"`
}
