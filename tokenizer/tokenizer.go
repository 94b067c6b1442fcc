//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package tokenizer provides tiktoken-based token estimation for messages.
// Counts are estimates sufficient for context-window threshold comparisons,
// not a bit-exact reproduction of the provider's tokenization.
package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/wangchen7722/eflycode-cli-sub001/model"
)

// messageFramingTokens approximates the per-message framing overhead the
// provider adds around each chat message.
const messageFramingTokens = 4

// Estimator counts tokens per message. Codecs are cached per encoding so
// repeated counts for the same model family stay cheap.
type Estimator struct {
	mu     sync.Mutex
	codecs map[tokenizer.Encoding]tokenizer.Codec
}

// New creates an Estimator with an empty codec cache.
func New() *Estimator {
	return &Estimator{codecs: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

// codecFor resolves the codec for a model name, falling back to cl100k_base
// when the model is unknown to the tiktoken tables.
func (e *Estimator) codecFor(modelName string) (tokenizer.Codec, error) {
	encoding := encodingForModel(modelName)

	e.mu.Lock()
	defer e.mu.Unlock()
	if codec, ok := e.codecs[encoding]; ok {
		return codec, nil
	}
	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("get codec for %s: %w", encoding, err)
	}
	e.codecs[encoding] = codec
	return codec, nil
}

// encodingForModel maps a model name to an encoding name. Unknown models
// use cl100k_base for broad compatibility.
func encodingForModel(modelName string) tokenizer.Encoding {
	name := strings.ToLower(modelName)
	switch {
	case strings.HasPrefix(name, "gpt-4o"), strings.HasPrefix(name, "gpt-4.1"),
		strings.HasPrefix(name, "o1"), strings.HasPrefix(name, "o3"),
		strings.HasPrefix(name, "gpt-5"):
		return tokenizer.O200kBase
	default:
		return tokenizer.Cl100kBase
	}
}

// CountMessage returns the token count for a single message: role, content,
// every tool-call name and arguments string, and the tool-call ID reference.
func (e *Estimator) CountMessage(modelName string, msg model.Message) (int, error) {
	codec, err := e.codecFor(modelName)
	if err != nil {
		return 0, err
	}

	total, err := countText(codec, msg.Role.String())
	if err != nil {
		return 0, err
	}
	if msg.Content != "" {
		n, err := countText(codec, msg.Content)
		if err != nil {
			return 0, err
		}
		total += n
	}
	if msg.ToolID != "" {
		n, err := countText(codec, msg.ToolID)
		if err != nil {
			return 0, err
		}
		total += n
	}
	for _, tc := range msg.ToolCalls {
		n, err := countText(codec, tc.Function.Name)
		if err != nil {
			return 0, err
		}
		total += n
		if len(tc.Function.Arguments) > 0 {
			n, err := countText(codec, string(tc.Function.Arguments))
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total, nil
}

// CountMessages sums per-message counts and adds the framing overhead for
// each message.
func (e *Estimator) CountMessages(modelName string, messages []model.Message) (int, error) {
	total := 0
	for i, msg := range messages {
		n, err := e.CountMessage(modelName, msg)
		if err != nil {
			return 0, fmt.Errorf("count message %d: %w", i, err)
		}
		total += n + messageFramingTokens
	}
	return total, nil
}

func countText(codec tokenizer.Codec, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	toks, _, err := codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode failed: %w", err)
	}
	return len(toks), nil
}
