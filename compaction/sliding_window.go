//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package compaction

import (
	"context"

	"github.com/wangchen7722/eflycode-cli-sub001/model"
)

// defaultWindowSize is the sliding window size used when none is configured.
const defaultWindowSize = 20

// SlidingWindow keeps only the most recent messages. When the initial user
// question falls outside the window it is re-anchored as a synthetic system
// message at the front.
type SlidingWindow struct {
	WindowSize int
}

// NewSlidingWindow returns a sliding window strategy. A non-positive size
// falls back to the default.
func NewSlidingWindow(windowSize int) *SlidingWindow {
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	return &SlidingWindow{WindowSize: windowSize}
}

// Manage implements Strategy.
func (s *SlidingWindow) Manage(_ context.Context, req *Request) ([]model.Message, error) {
	msgs := req.Messages
	if len(msgs) <= s.WindowSize {
		return cloneMessages(msgs), nil
	}
	tail := cloneMessages(msgs[len(msgs)-s.WindowSize:])
	if req.InitialQuestion == "" || contains(tail, req.InitialQuestion) {
		return tail, nil
	}
	anchored := make([]model.Message, 0, len(tail)+1)
	anchored = append(anchored, model.NewSystemMessage(InitialQuestionMarker+req.InitialQuestion))
	anchored = append(anchored, tail...)
	return anchored, nil
}
