//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package model

import (
	"time"
)

// Error type constants for ResponseError.Type field.
const (
	ErrorTypeStreamError = "stream_error"
	ErrorTypeAPIError    = "api_error"
	ErrorTypeFlowError   = "flow_error"
)

// Object type constants for Response.Object field.
const (
	// ObjectTypeError is the object type for error responses.
	ObjectTypeError = "error"
	// ObjectTypeChatCompletion is the object type for complete responses.
	ObjectTypeChatCompletion = "chat.completion"
	// ObjectTypeChatCompletionChunk is the object type for streamed chunks.
	ObjectTypeChatCompletionChunk = "chat.completion.chunk"
)

// Choice represents a single completion choice.
type Choice struct {
	// Index is the index of the choice.
	Index int `json:"index"`

	// Message is the message content.
	Message Message `json:"message,omitempty"`

	// Delta is the delta message content for streamed chunks.
	Delta Message `json:"delta,omitempty"`

	// FinishReason is the reason the choice was finished.
	// "stop", "length", "tool_calls", "content_filter", etc.
	FinishReason *string `json:"finish_reason,omitempty"`
}

// Usage represents token usage information.
type Usage struct {
	// PromptTokens is the number of tokens in the prompt.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion.
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens in the response.
	TotalTokens int `json:"total_tokens"`
}

// Add accumulates another usage struct into u.
func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Response is the response from the model. A streamed chunk is a Response
// with IsPartial set and a sparse Choices[0].Delta; the terminal element of
// a stream carries Done, the accumulated message, and usage.
//
// The Error field represents API-level errors that occur after successful
// communication with the model service; function-level errors returned by
// Call/Stream indicate failures that prevent communication entirely.
type Response struct {
	// ID is the unique identifier for this response.
	ID string `json:"id"`

	// Object describes the type of object returned (e.g., "chat.completion").
	Object string `json:"object"`

	// Created is the Unix timestamp when the response was created.
	Created int64 `json:"created"`

	// Model is the model used to generate the response.
	Model string `json:"model"`

	// Choices contains the completion choices.
	Choices []Choice `json:"choices"`

	// Usage contains token usage information (may be nil for streaming responses).
	Usage *Usage `json:"usage,omitempty"`

	// Error contains API-level error information if the request failed.
	Error *ResponseError `json:"error,omitempty"`

	// Timestamp when this response chunk was received (for streaming).
	Timestamp time.Time `json:"timestamp"`

	// Done indicates that no further chunks follow.
	Done bool `json:"done"`

	// IsPartial indicates if this is a partial response.
	IsPartial bool `json:"is_partial"`
}

// Clone creates a deep copy of the response.
func (rsp *Response) Clone() *Response {
	if rsp == nil {
		return nil
	}
	clone := *rsp
	clone.Choices = make([]Choice, len(rsp.Choices))
	copy(clone.Choices, rsp.Choices)
	if rsp.Usage != nil {
		clone.Usage = &Usage{
			PromptTokens:     rsp.Usage.PromptTokens,
			CompletionTokens: rsp.Usage.CompletionTokens,
			TotalTokens:      rsp.Usage.TotalTokens,
		}
	}
	if rsp.Error != nil {
		clone.Error = &ResponseError{
			Message: rsp.Error.Message,
			Type:    rsp.Error.Type,
			Code:    rsp.Error.Code,
		}
	}
	return &clone
}

// Message returns the first choice's message, or the zero Message when the
// response carries no choices.
func (rsp *Response) FirstMessage() Message {
	if rsp == nil || len(rsp.Choices) == 0 {
		return Message{}
	}
	return rsp.Choices[0].Message
}

// HasToolCalls checks if the response requests any tool calls.
func (rsp *Response) HasToolCalls() bool {
	return rsp != nil && len(rsp.Choices) > 0 && len(rsp.Choices[0].Message.ToolCalls) > 0
}

// FirstToolCall returns the first tool call of the first choice and whether
// one is present.
func (rsp *Response) FirstToolCall() (ToolCall, bool) {
	if !rsp.HasToolCalls() {
		return ToolCall{}, false
	}
	return rsp.Choices[0].Message.ToolCalls[0], true
}

// IsFinalResponse checks if the Response terminates a stream.
func (rsp *Response) IsFinalResponse() bool {
	if rsp == nil {
		return true
	}
	if rsp.IsPartial {
		return false
	}
	return rsp.Done && (len(rsp.Choices) > 0 || rsp.Error != nil)
}

// NewErrorResponse wraps an error into a terminal Response.
func NewErrorResponse(errType, message string) *Response {
	return &Response{
		Object:    ObjectTypeError,
		Timestamp: time.Now(),
		Done:      true,
		Error: &ResponseError{
			Type:    errType,
			Message: message,
		},
	}
}

// ResponseError represents an error response from the API.
type ResponseError struct {
	// Message is the error message.
	Message string `json:"message"`

	// Type is the type of error.
	Type string `json:"type"`

	// Code is the error code.
	Code *string `json:"code,omitempty"`
}
