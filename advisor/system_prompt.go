//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package advisor

import (
	"context"

	"github.com/wangchen7722/eflycode-cli-sub001/log"
	"github.com/wangchen7722/eflycode-cli-sub001/model"
	"github.com/wangchen7722/eflycode-cli-sub001/prompt"
)

// SystemPrompt injects the role system prompt at index 0 of every request
// that does not already open with a system message.
type SystemPrompt struct {
	library   *prompt.Library
	role      string
	workspace string
}

// NewSystemPrompt builds the advisor for a role and workspace.
func NewSystemPrompt(library *prompt.Library, role, workspace string) *SystemPrompt {
	return &SystemPrompt{library: library, role: role, workspace: workspace}
}

// Name implements Advisor.
func (s *SystemPrompt) Name() string {
	return "system_prompt"
}

// BeforeCall implements CallInterceptor.
func (s *SystemPrompt) BeforeCall(_ context.Context, req *model.Request) (*model.Request, error) {
	return s.inject(req), nil
}

// AfterCall implements CallInterceptor.
func (s *SystemPrompt) AfterCall(_ context.Context, _ *model.Request, rsp *model.Response) (*model.Response, error) {
	return rsp, nil
}

// BeforeStream implements StreamInterceptor.
func (s *SystemPrompt) BeforeStream(_ context.Context, req *model.Request) (*model.Request, error) {
	return s.inject(req), nil
}

// OnChunk implements StreamInterceptor.
func (s *SystemPrompt) OnChunk(_ context.Context, _ *model.Request, chunk *model.Response) ([]*model.Response, error) {
	return []*model.Response{chunk}, nil
}

func (s *SystemPrompt) inject(req *model.Request) *model.Request {
	if len(req.Messages) > 0 && req.Messages[0].Role == model.RoleSystem {
		return req
	}
	rendered, err := s.library.Render(s.role, s.workspace)
	if err != nil {
		log.Warnf("render system prompt: %v", err)
		return req
	}
	out := req.Clone()
	out.Messages = append([]model.Message{model.NewSystemMessage(rendered)}, out.Messages...)
	return out
}
