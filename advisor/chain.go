//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package advisor

import (
	"context"

	"github.com/wangchen7722/eflycode-cli-sub001/model"
)

// Chain composes advisors around a final handler. Before phases run in list
// order, after and error phases in reverse.
type Chain struct {
	advisors []Advisor
}

// NewChain builds a chain. Order matters: the first advisor is outermost.
func NewChain(advisors ...Advisor) *Chain {
	return &Chain{advisors: advisors}
}

// Append adds advisors to the inside of the chain.
func (c *Chain) Append(advisors ...Advisor) {
	c.advisors = append(c.advisors, advisors...)
}

// Call runs the non-stream onion around final.
func (c *Chain) Call(ctx context.Context, req *model.Request, final CallHandler) (*model.Response, error) {
	var err error
	for _, a := range c.advisors {
		if ci, ok := a.(CallInterceptor); ok {
			if req, err = ci.BeforeCall(ctx, req); err != nil {
				return nil, err
			}
		}
	}

	rsp, err := final(ctx, req)
	if err != nil {
		rsp, err = c.recoverCall(ctx, req, err)
		if err != nil {
			return nil, err
		}
	}

	for i := len(c.advisors) - 1; i >= 0; i-- {
		if ci, ok := c.advisors[i].(CallInterceptor); ok {
			if rsp, err = ci.AfterCall(ctx, req, rsp); err != nil {
				return nil, err
			}
		}
	}
	return rsp, nil
}

// recoverCall walks the recoverers innermost-first. The first one that
// returns a response short-circuits; otherwise the error propagates.
func (c *Chain) recoverCall(ctx context.Context, req *model.Request, callErr error) (*model.Response, error) {
	for i := len(c.advisors) - 1; i >= 0; i-- {
		if cr, ok := c.advisors[i].(CallRecoverer); ok {
			if rsp, handled := cr.OnCallError(ctx, req, callErr); handled {
				return rsp, nil
			}
		}
	}
	return nil, callErr
}

// Stream runs the streaming onion around final. Each chunk of the inner
// stream passes through every OnChunk innermost-first before it reaches the
// returned channel.
func (c *Chain) Stream(ctx context.Context, req *model.Request, final StreamHandler) (<-chan *model.Response, error) {
	var err error
	for _, a := range c.advisors {
		if si, ok := a.(StreamInterceptor); ok {
			if req, err = si.BeforeStream(ctx, req); err != nil {
				return nil, err
			}
		}
	}

	inner, err := final(ctx, req)
	if err != nil {
		inner, err = c.recoverStream(ctx, req, err)
		if err != nil {
			return nil, err
		}
	}

	out := make(chan *model.Response)
	go func() {
		defer close(out)
		for chunk := range inner {
			for _, transformed := range c.transformChunk(ctx, req, chunk) {
				select {
				case out <- transformed:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// transformChunk folds one chunk through the interceptors innermost-first.
// An interceptor that returns no chunks suppresses the input; one that
// returns several fans it out, and each fan-out chunk continues through the
// remaining interceptors.
func (c *Chain) transformChunk(ctx context.Context, req *model.Request, chunk *model.Response) []*model.Response {
	current := []*model.Response{chunk}
	for i := len(c.advisors) - 1; i >= 0; i-- {
		si, ok := c.advisors[i].(StreamInterceptor)
		if !ok {
			continue
		}
		var next []*model.Response
		for _, ch := range current {
			transformed, err := si.OnChunk(ctx, req, ch)
			if err != nil {
				next = append(next, model.NewErrorResponse(model.ErrorTypeFlowError, err.Error()))
				continue
			}
			next = append(next, transformed...)
		}
		current = next
	}
	return current
}

func (c *Chain) recoverStream(ctx context.Context, req *model.Request, streamErr error) (<-chan *model.Response, error) {
	for i := len(c.advisors) - 1; i >= 0; i-- {
		if sr, ok := c.advisors[i].(StreamRecoverer); ok {
			if ch, handled := sr.OnStreamError(ctx, req, streamErr); handled {
				return ch, nil
			}
		}
	}
	return nil, streamErr
}
