//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package stream folds provider chunk sequences back into complete assistant
// messages while emitting UI events as the pieces arrive.
package stream

import (
	"encoding/json"
	"time"

	"github.com/wangchen7722/eflycode-cli-sub001/event"
	"github.com/wangchen7722/eflycode-cli-sub001/model"
)

// Assembler folds one stream. It guarantees exactly one message.start and
// one message.stop per stream, at most one tool.call.start per tool-call
// index, and tool.call.ready only at stream end.
type Assembler struct {
	bus *event.Bus

	started      bool
	finished     bool
	fullContent  string
	calls        map[int]*model.ToolCall
	order        []int
	announced    map[int]bool
	finishReason *string
	usage        *model.Usage
	responseID   string
	modelName    string
}

// NewAssembler creates an assembler publishing to bus. A nil bus assembles
// silently, which the tests use.
func NewAssembler(bus *event.Bus) *Assembler {
	return &Assembler{
		bus:       bus,
		calls:     make(map[int]*model.ToolCall),
		announced: make(map[int]bool),
	}
}

// Feed folds one chunk into the accumulated state.
func (a *Assembler) Feed(chunk *model.Response) {
	if chunk == nil || a.finished {
		return
	}
	if !a.started {
		a.started = true
		a.emit(event.MessageStart, nil)
	}
	if chunk.ID != "" {
		a.responseID = chunk.ID
	}
	if chunk.Model != "" {
		a.modelName = chunk.Model
	}
	if chunk.Usage != nil {
		if a.usage == nil {
			a.usage = &model.Usage{}
		}
		a.usage.Add(chunk.Usage)
	}
	if len(chunk.Choices) == 0 {
		return
	}
	choice := chunk.Choices[0]
	if choice.Delta.Content != "" {
		a.fullContent += choice.Delta.Content
		a.emit(event.MessageDelta, map[string]any{"delta": choice.Delta.Content})
	}
	for _, tc := range choice.Delta.ToolCalls {
		a.foldToolCall(tc)
	}
	if choice.FinishReason != nil {
		a.finishReason = choice.FinishReason
	}
}

// foldToolCall merges one tool-call delta. The first fragment carrying a
// name announces the call; later fragments only extend the arguments.
func (a *Assembler) foldToolCall(tc model.ToolCall) {
	idx := 0
	if tc.Index != nil {
		idx = *tc.Index
	}
	accum, ok := a.calls[idx]
	if !ok {
		clone := tc
		clone.Index = &idx
		a.calls[idx] = &clone
		a.order = append(a.order, idx)
		accum = &clone
	} else {
		if tc.ID != "" && accum.ID == "" {
			accum.ID = tc.ID
		}
		if tc.Type != "" && accum.Type == "" {
			accum.Type = tc.Type
		}
		if tc.Function.Name != "" && accum.Function.Name == "" {
			accum.Function.Name = tc.Function.Name
		}
		if len(tc.Function.Arguments) > 0 {
			accum.Function.Arguments = append(accum.Function.Arguments, tc.Function.Arguments...)
		}
	}
	if accum.Function.Name != "" && !a.announced[idx] {
		a.announced[idx] = true
		a.emit(event.ToolCallStart, map[string]any{
			"tool_name":    accum.Function.Name,
			"tool_call_id": accum.ID,
		})
	}
}

// Merge folds the provider's terminal stream element into the accumulated
// state. Providers put usage, the finish reason and the fully accumulated
// tool calls, including IDs synthesized when the wire omits them, only on
// that element, never on the partial chunks.
func (a *Assembler) Merge(terminal *model.Response) {
	if terminal == nil || a.finished {
		return
	}
	if terminal.ID != "" {
		a.responseID = terminal.ID
	}
	if terminal.Model != "" {
		a.modelName = terminal.Model
	}
	if terminal.Usage != nil {
		// The terminal element carries the authoritative totals.
		u := *terminal.Usage
		a.usage = &u
	}
	if len(terminal.Choices) == 0 {
		return
	}
	choice := terminal.Choices[0]
	if choice.FinishReason != nil {
		a.finishReason = choice.FinishReason
	}
	for i, tc := range choice.Message.ToolCalls {
		idx := i
		if tc.Index != nil {
			idx = *tc.Index
		}
		accum, ok := a.calls[idx]
		if !ok {
			// A call the deltas never carried; adopt it whole.
			clone := tc
			clone.Index = &idx
			a.calls[idx] = &clone
			a.order = append(a.order, idx)
			continue
		}
		if tc.ID != "" && accum.ID == "" {
			accum.ID = tc.ID
		}
	}
}

// Message returns the assistant message assembled so far.
func (a *Assembler) Message() model.Message {
	msg := model.NewAssistantMessage(a.fullContent)
	for _, idx := range a.order {
		msg.ToolCalls = append(msg.ToolCalls, *a.calls[idx])
	}
	return msg
}

// Finish flushes the stream: one tool.call.ready per accumulated call, then
// message.stop carrying the reconstructed non-stream response. Calling
// Finish more than once returns the same response without re-emitting.
func (a *Assembler) Finish() *model.Response {
	final := a.reconstruct()
	if a.finished {
		return final
	}
	a.finished = true
	for _, idx := range a.order {
		call := a.calls[idx]
		var args any
		if len(call.Function.Arguments) > 0 {
			if err := json.Unmarshal(call.Function.Arguments, &args); err != nil {
				args = string(call.Function.Arguments)
			}
		}
		a.emit(event.ToolCallReady, map[string]any{
			"tool_name":    call.Function.Name,
			"tool_call_id": call.ID,
			"arguments":    args,
		})
	}
	a.emit(event.MessageStop, final)
	return final
}

// reconstruct builds the non-stream response equivalent of the stream.
func (a *Assembler) reconstruct() *model.Response {
	return &model.Response{
		ID:        a.responseID,
		Object:    model.ObjectTypeChatCompletion,
		Created:   time.Now().Unix(),
		Model:     a.modelName,
		Timestamp: time.Now(),
		Done:      true,
		Usage:     a.usage,
		Choices: []model.Choice{{
			Message:      a.Message(),
			FinishReason: a.finishReason,
		}},
	}
}

func (a *Assembler) emit(name string, data any) {
	if a.bus == nil {
		return
	}
	a.bus.Emit(name, data)
}
