//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package model provides interfaces for working with LLMs.
package model

import "context"

// Info contains basic information about a model.
type Info struct {
	// Name is the name of the model.
	Name string
}

// Capabilities describes what a provider implementation supports. The run
// loop consults it before choosing the streaming path.
type Capabilities struct {
	SupportsStreaming bool
	SupportsTools     bool
}

// Model is the provider interface the core consumes. The wire protocol
// behind it is not mandated; an OpenAI-compatible HTTP implementation is the
// expected default but any implementation of this interface is valid.
type Model interface {
	// Info returns basic information about the model.
	Info() Info

	// Capabilities returns the provider capability descriptor.
	Capabilities() Capabilities

	// Call performs a non-streaming completion.
	Call(ctx context.Context, req *Request) (*Response, error)

	// Stream performs a streaming completion. The returned channel yields
	// partial responses in arrival order and is closed after the terminal
	// element. Stream must be treated as the only producer of the channel.
	Stream(ctx context.Context, req *Request) (<-chan *Response, error)
}
