//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package advisor wraps provider calls in an onion of request and response
// interceptors. Advisors declare the phases they care about through the
// capability interfaces; the chain skips phases an advisor does not
// implement.
package advisor

import (
	"context"

	"github.com/wangchen7722/eflycode-cli-sub001/model"
)

// CallHandler is the innermost non-stream provider call.
type CallHandler func(ctx context.Context, req *model.Request) (*model.Response, error)

// StreamHandler is the innermost streaming provider call.
type StreamHandler func(ctx context.Context, req *model.Request) (<-chan *model.Response, error)

// Advisor is the base capability every advisor carries.
type Advisor interface {
	Name() string
}

// CallInterceptor sees non-stream requests and responses.
type CallInterceptor interface {
	Advisor
	// BeforeCall may rewrite the outbound request.
	BeforeCall(ctx context.Context, req *model.Request) (*model.Request, error)
	// AfterCall sees the original request and may rewrite the response.
	AfterCall(ctx context.Context, req *model.Request, rsp *model.Response) (*model.Response, error)
}

// StreamInterceptor sees streaming requests and every chunk.
type StreamInterceptor interface {
	Advisor
	// BeforeStream may rewrite the outbound request. It runs once per stream.
	BeforeStream(ctx context.Context, req *model.Request) (*model.Request, error)
	// OnChunk may suppress a chunk (return nothing), pass it through, or
	// expand it into several synthetic chunks.
	OnChunk(ctx context.Context, req *model.Request, chunk *model.Response) ([]*model.Response, error)
}

// CallRecoverer may turn a failed non-stream call into a response.
type CallRecoverer interface {
	Advisor
	// OnCallError returns a recovery response and true, or false to let the
	// error keep propagating.
	OnCallError(ctx context.Context, req *model.Request, callErr error) (*model.Response, bool)
}

// StreamRecoverer may turn a failed stream start into a replacement stream.
type StreamRecoverer interface {
	Advisor
	OnStreamError(ctx context.Context, req *model.Request, streamErr error) (<-chan *model.Response, bool)
}
