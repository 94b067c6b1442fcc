//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package session stores the conversation log for one agent session and
// produces provider requests from it.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/wangchen7722/eflycode-cli-sub001/compaction"
	"github.com/wangchen7722/eflycode-cli-sub001/model"
)

// Option configures a session.
type Option func(*Session)

// WithStrategy installs a compaction strategy. Without one, GetContext
// returns the raw message list.
func WithStrategy(s compaction.Strategy) Option {
	return func(sess *Session) {
		sess.strategy = s
	}
}

// WithID overrides the generated session identifier.
func WithID(id string) Option {
	return func(sess *Session) {
		sess.id = id
	}
}

// Session is the append-only conversation log. Messages are only appended
// during a run; Clear resets the log between tasks.
type Session struct {
	mu sync.RWMutex

	id              string
	messages        []model.Message
	initialQuestion string
	strategy        compaction.Strategy
}

// New creates an empty session with a fresh identifier.
func New(opts ...Option) *Session {
	s := &Session{id: uuid.New().String()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// AddMessage appends a message to the log. The first user message with
// non-empty content is recorded as the initial question; later user messages
// never overwrite it.
func (s *Session) AddMessage(msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if s.initialQuestion == "" && msg.Role == model.RoleUser && strings.TrimSpace(msg.Content) != "" {
		s.initialQuestion = msg.Content
	}
}

// Messages returns a copy of the conversation log.
func (s *Session) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the log.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// InitialQuestion returns the first recorded user question, empty when none.
func (s *Session) InitialQuestion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialQuestion
}

// Clear empties the log and forgets the initial question.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.initialQuestion = ""
}

// GetContext builds a provider request from the log. The compaction strategy
// runs only when one is configured; the log itself is never modified.
func (s *Session) GetContext(ctx context.Context, modelName string, maxContextLength int) (*model.Request, error) {
	msgs := s.Messages()
	if s.strategy != nil {
		managed, err := s.strategy.Manage(ctx, &compaction.Request{
			Messages:         msgs,
			ModelName:        modelName,
			MaxContextLength: maxContextLength,
			InitialQuestion:  s.InitialQuestion(),
		})
		if err != nil {
			return nil, err
		}
		msgs = managed
	}
	return &model.Request{
		Model:    modelName,
		Messages: msgs,
	}, nil
}
