//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package compaction keeps conversations inside the model context window.
// Strategies are pure over their input: they return a new message slice and
// never mutate the one passed in.
package compaction

import (
	"context"

	"github.com/wangchen7722/eflycode-cli-sub001/model"
)

// Markers prefix the synthetic system messages a strategy may insert. The UI
// and tests recognize compacted context by these prefixes.
const (
	InitialQuestionMarker = "[User's initial question] "
	SummaryMarker         = "[Conversation summary] "
)

// Request carries everything a strategy may need to decide whether and how
// to compact.
type Request struct {
	Messages         []model.Message
	ModelName        string
	MaxContextLength int
	// InitialQuestion is the first non-empty user message of the session,
	// empty when none was recorded.
	InitialQuestion string
}

// Strategy reduces a message list so it fits the context window.
type Strategy interface {
	Manage(ctx context.Context, req *Request) ([]model.Message, error)
}

// contains reports whether any message in msgs carries exactly content.
func contains(msgs []model.Message, content string) bool {
	for _, m := range msgs {
		if m.Content == content {
			return true
		}
	}
	return false
}

// cloneMessages copies a message slice so callers can append freely.
func cloneMessages(msgs []model.Message) []model.Message {
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return out
}
