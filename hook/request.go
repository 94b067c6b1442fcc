//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package hook

import (
	"encoding/json"
	"fmt"

	"github.com/wangchen7722/eflycode-cli-sub001/log"
	"github.com/wangchen7722/eflycode-cli-sub001/model"
)

// KeyLLMRequest is the hookSpecificOutput key a BeforeModel hook uses to
// replace the outbound request.
const KeyLLMRequest = "llm_request"

// KeyTools is the hookSpecificOutput key a BeforeToolSelection hook uses to
// filter the advertised tool names.
const KeyTools = "tools"

// validRoles guards replacement messages against made-up roles.
var validRoles = map[model.Role]bool{
	model.RoleSystem:    true,
	model.RoleUser:      true,
	model.RoleAssistant: true,
	model.RoleTool:      true,
}

// DecodeRequest turns the llm_request value a hook returned into a typed
// request. Individual malformed messages are skipped with a warning; the
// decode fails only when no valid message remains.
func DecodeRequest(raw any) (*model.Request, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode llm_request: %w", err)
	}
	var loose struct {
		Model    string            `json:"model"`
		Messages []json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &loose); err != nil {
		return nil, fmt.Errorf("decode llm_request: %w", err)
	}

	req := &model.Request{Model: loose.Model}
	for i, rawMsg := range loose.Messages {
		var msg model.Message
		if err := json.Unmarshal(rawMsg, &msg); err != nil {
			log.Warnf("llm_request message %d is malformed, skipping: %v", i, err)
			continue
		}
		if !validRoles[msg.Role] {
			log.Warnf("llm_request message %d has unknown role %q, skipping", i, msg.Role)
			continue
		}
		req.Messages = append(req.Messages, msg)
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("llm_request contains no valid messages")
	}
	return req, nil
}

// DecodeToolFilter turns the tools value a hook returned into the list of
// tool names to keep. Non-string entries are dropped with a warning.
func DecodeToolFilter(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		if names, ok := raw.([]string); ok {
			return names, nil
		}
		return nil, fmt.Errorf("tools filter is not a list")
	}
	names := make([]string, 0, len(items))
	for i, item := range items {
		name, ok := item.(string)
		if !ok {
			log.Warnf("tools filter entry %d is not a string, skipping", i)
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
