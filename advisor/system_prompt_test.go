//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package advisor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangchen7722/eflycode-cli-sub001/model"
	"github.com/wangchen7722/eflycode-cli-sub001/prompt"
)

func newSystemPrompt(t *testing.T) *SystemPrompt {
	t.Helper()
	lib, err := prompt.NewLibrary()
	require.NoError(t, err)
	return NewSystemPrompt(lib, prompt.DefaultRole, "/tmp/workspace")
}

func TestSystemPromptInjectsAtFront(t *testing.T) {
	s := newSystemPrompt(t)
	req, err := s.BeforeCall(context.Background(), &model.Request{
		Messages: []model.Message{model.NewUserMessage("question")},
	})
	require.NoError(t, err)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, model.RoleSystem, req.Messages[0].Role)
	assert.NotEmpty(t, req.Messages[0].Content)
	assert.Contains(t, req.Messages[0].Content, "/tmp/workspace")
	assert.Equal(t, "question", req.Messages[1].Content)
}

func TestSystemPromptSkipsWhenAlreadyPresent(t *testing.T) {
	s := newSystemPrompt(t)
	in := &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage("existing"),
			model.NewUserMessage("question"),
		},
	}
	req, err := s.BeforeCall(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "existing", req.Messages[0].Content)
}

func TestSystemPromptDoesNotMutateOriginal(t *testing.T) {
	s := newSystemPrompt(t)
	in := &model.Request{Messages: []model.Message{model.NewUserMessage("q")}}
	_, err := s.BeforeStream(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, in.Messages, 1)
}

func TestSystemPromptChunksPassThrough(t *testing.T) {
	s := newSystemPrompt(t)
	chunk := &model.Response{IsPartial: true}
	out, err := s.OnChunk(context.Background(), nil, chunk)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, chunk, out[0])
}
