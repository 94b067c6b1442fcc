//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package tool

import "fmt"

// ParameterError reports that argument coercion failed or a required key was
// missing. The run loop converts it to a string and feeds it back to the
// model as the tool result.
type ParameterError struct {
	Tool    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ParameterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tool %s: invalid parameters: %s: %v", e.Tool, e.Message, e.Cause)
	}
	return fmt.Sprintf("tool %s: invalid parameters: %s", e.Tool, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ParameterError) Unwrap() error { return e.Cause }

// NewParameterError creates a ParameterError.
func NewParameterError(tool, message string, cause error) *ParameterError {
	return &ParameterError{Tool: tool, Message: message, Cause: cause}
}

// ExecutionError reports that a tool body or its subprocess failed. Any
// non-ParameterError failure raised by a tool body is wrapped into one.
type ExecutionError struct {
	Tool    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tool %s: execution failed: %s: %v", e.Tool, e.Message, e.Cause)
	}
	return fmt.Sprintf("tool %s: execution failed: %s", e.Tool, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error { return e.Cause }

// NewExecutionError creates an ExecutionError.
func NewExecutionError(tool, message string, cause error) *ExecutionError {
	return &ExecutionError{Tool: tool, Message: message, Cause: cause}
}
