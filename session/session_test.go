//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangchen7722/eflycode-cli-sub001/compaction"
	"github.com/wangchen7722/eflycode-cli-sub001/model"
)

func TestSessionAppendAndCopy(t *testing.T) {
	s := New()
	s.AddMessage(model.NewUserMessage("hello"))
	s.AddMessage(model.NewAssistantMessage("hi"))

	msgs := s.Messages()
	require.Len(t, msgs, 2)

	// Mutating the returned slice must not touch the log.
	msgs[0].Content = "changed"
	assert.Equal(t, "hello", s.Messages()[0].Content)
}

func TestSessionInitialQuestionSetOnce(t *testing.T) {
	s := New()
	s.AddMessage(model.NewSystemMessage("prompt"))
	assert.Empty(t, s.InitialQuestion())

	s.AddMessage(model.NewUserMessage("   "))
	assert.Empty(t, s.InitialQuestion(), "blank user content must not set the question")

	s.AddMessage(model.NewUserMessage("first question"))
	s.AddMessage(model.NewUserMessage("second question"))
	assert.Equal(t, "first question", s.InitialQuestion())
}

func TestSessionClear(t *testing.T) {
	s := New()
	s.AddMessage(model.NewUserMessage("q"))
	s.Clear()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.InitialQuestion())
}

func TestSessionGetContextWithoutStrategy(t *testing.T) {
	s := New()
	s.AddMessage(model.NewUserMessage("q"))
	req, err := s.GetContext(context.Background(), "gpt-4o", 1000)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", req.Model)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "q", req.Messages[0].Content)
}

type recordingStrategy struct {
	got *compaction.Request
}

func (r *recordingStrategy) Manage(_ context.Context, req *compaction.Request) ([]model.Message, error) {
	r.got = req
	return []model.Message{model.NewSystemMessage("compacted")}, nil
}

func TestSessionGetContextUsesStrategy(t *testing.T) {
	strategy := &recordingStrategy{}
	s := New(WithStrategy(strategy))
	s.AddMessage(model.NewUserMessage("the question"))

	req, err := s.GetContext(context.Background(), "gpt-4o", 500)
	require.NoError(t, err)
	require.NotNil(t, strategy.got)
	assert.Equal(t, "the question", strategy.got.InitialQuestion)
	assert.Equal(t, 500, strategy.got.MaxContextLength)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "compacted", req.Messages[0].Content)
}

func TestSessionWithID(t *testing.T) {
	s := New(WithID("fixed"))
	assert.Equal(t, "fixed", s.ID())
}
