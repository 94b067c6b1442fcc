//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package compaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/wangchen7722/eflycode-cli-sub001/log"
	"github.com/wangchen7722/eflycode-cli-sub001/model"
	"github.com/wangchen7722/eflycode-cli-sub001/tokenizer"
)

const (
	// defaultThresholdRatio triggers summarization when the token estimate
	// reaches this fraction of the context window. The boundary is inclusive.
	defaultThresholdRatio = 0.8
	// defaultKeepRecent is how many trailing messages survive verbatim.
	defaultKeepRecent = 10

	summaryInstruction = "Summarize the following conversation between a user and a coding " +
		"assistant in one concise paragraph. Preserve the user's goal, the decisions made, " +
		"file paths touched and any unresolved problems."
)

// Summary condenses the conversation prefix into a single system message once
// the token estimate crosses the threshold. The summary is produced by a
// dedicated provider call; when that call fails the original messages are
// returned untouched.
type Summary struct {
	ThresholdRatio float64
	KeepRecent     int
	// SummaryModel overrides the model name for the summarization call.
	// Empty uses the request's model.
	SummaryModel string

	provider  model.Model
	estimator *tokenizer.Estimator
}

// SummaryOption configures the summary strategy.
type SummaryOption func(*Summary)

// WithThresholdRatio sets the compression trigger ratio, default 0.8.
func WithThresholdRatio(r float64) SummaryOption {
	return func(s *Summary) {
		if r > 0 {
			s.ThresholdRatio = r
		}
	}
}

// WithKeepRecent sets how many trailing messages are kept verbatim, default 10.
func WithKeepRecent(n int) SummaryOption {
	return func(s *Summary) {
		if n > 0 {
			s.KeepRecent = n
		}
	}
}

// WithSummaryModel routes the summarization call to a different model.
func WithSummaryModel(name string) SummaryOption {
	return func(s *Summary) {
		s.SummaryModel = name
	}
}

// NewSummary returns a summary strategy backed by the given provider.
func NewSummary(provider model.Model, estimator *tokenizer.Estimator, opts ...SummaryOption) *Summary {
	s := &Summary{
		ThresholdRatio: defaultThresholdRatio,
		KeepRecent:     defaultKeepRecent,
		provider:       provider,
		estimator:      estimator,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Manage implements Strategy.
func (s *Summary) Manage(ctx context.Context, req *Request) ([]model.Message, error) {
	msgs := req.Messages
	if req.MaxContextLength <= 0 || len(msgs) <= s.KeepRecent {
		return cloneMessages(msgs), nil
	}
	count, err := s.estimator.CountMessages(req.ModelName, msgs)
	if err != nil {
		log.Warnf("token estimate failed, keeping full context: %v", err)
		return cloneMessages(msgs), nil
	}
	threshold := int(s.ThresholdRatio * float64(req.MaxContextLength))
	if count < threshold {
		return cloneMessages(msgs), nil
	}

	prefix := msgs[:len(msgs)-s.KeepRecent]
	tail := msgs[len(msgs)-s.KeepRecent:]
	summary, err := s.summarize(ctx, req.ModelName, prefix)
	if err != nil {
		log.Warnf("conversation summary failed, keeping full context: %v", err)
		return cloneMessages(msgs), nil
	}

	out := make([]model.Message, 0, len(tail)+1)
	out = append(out, model.NewSystemMessage(SummaryMarker+summary))
	out = append(out, tail...)
	return out, nil
}

// summarize runs the dedicated summarization request over the prefix.
func (s *Summary) summarize(ctx context.Context, modelName string, prefix []model.Message) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("no summary provider configured")
	}
	name := modelName
	if s.SummaryModel != "" {
		name = s.SummaryModel
	}
	var transcript strings.Builder
	for _, m := range prefix {
		transcript.WriteString(string(m.Role))
		transcript.WriteString(": ")
		transcript.WriteString(m.Content)
		transcript.WriteString("\n")
	}
	rsp, err := s.provider.Call(ctx, &model.Request{
		Model: name,
		Messages: []model.Message{
			model.NewSystemMessage(summaryInstruction),
			model.NewUserMessage(transcript.String()),
		},
	})
	if err != nil {
		return "", err
	}
	if rsp.Error != nil {
		return "", fmt.Errorf("summary call: %s", rsp.Error.Message)
	}
	content := strings.TrimSpace(rsp.FirstMessage().Content)
	if content == "" {
		return "", fmt.Errorf("summary call returned no content")
	}
	return content, nil
}
