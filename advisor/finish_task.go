//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package advisor

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"sync"
	"time"

	"github.com/wangchen7722/eflycode-cli-sub001/model"
	"github.com/wangchen7722/eflycode-cli-sub001/tool"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/finish"
)

// deltaChunkSize bounds each synthetic text delta produced when a streamed
// finish_task call is rewritten into plain assistant text.
const deltaChunkSize = 20

// finishReasonStop replaces the provider's tool_calls finish reason once the
// terminator has been rewritten into text.
const finishReasonStop = "stop"

// FinishTask guarantees the terminator tool is advertised and rewrites its
// invocation into plain assistant text. For streams it buffers the
// incrementally arriving arguments per request until they parse as JSON,
// suppressing the tool-call deltas and emitting the decoded content as
// synthetic text deltas instead.
type FinishTask struct {
	tool tool.CallableTool

	mu     sync.Mutex
	states map[uint64]*finishState
}

type finishState struct {
	// active is set once a finish_task tool-call delta has been observed.
	active bool
	// emitted is set once the buffered arguments parsed and the content
	// deltas went out.
	emitted bool
	buf     []byte
}

type finishArgs struct {
	Content string `json:"content"`
}

// NewFinishTask builds the advisor.
func NewFinishTask() *FinishTask {
	return &FinishTask{
		tool:   finish.NewTool(),
		states: make(map[uint64]*finishState),
	}
}

// Name implements Advisor.
func (f *FinishTask) Name() string {
	return "finish_task"
}

// BeforeCall implements CallInterceptor.
func (f *FinishTask) BeforeCall(_ context.Context, req *model.Request) (*model.Request, error) {
	return f.advertise(req), nil
}

// AfterCall implements CallInterceptor. A non-stream response whose sole
// tool-call is the terminator becomes a plain assistant message carrying the
// decoded content argument.
func (f *FinishTask) AfterCall(_ context.Context, _ *model.Request, rsp *model.Response) (*model.Response, error) {
	if rsp == nil || len(rsp.Choices) == 0 {
		return rsp, nil
	}
	msg := rsp.Choices[0].Message
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Function.Name != finish.ToolName {
		return rsp, nil
	}
	var args finishArgs
	if err := json.Unmarshal(msg.ToolCalls[0].Function.Arguments, &args); err != nil {
		return rsp, nil
	}
	out := rsp.Clone()
	reason := finishReasonStop
	out.Choices[0].Message = model.NewAssistantMessage(args.Content)
	out.Choices[0].FinishReason = &reason
	return out, nil
}

// BeforeStream implements StreamInterceptor.
func (f *FinishTask) BeforeStream(_ context.Context, req *model.Request) (*model.Request, error) {
	return f.advertise(req), nil
}

// OnChunk implements StreamInterceptor.
func (f *FinishTask) OnChunk(_ context.Context, req *model.Request, chunk *model.Response) ([]*model.Response, error) {
	if chunk == nil {
		return nil, nil
	}
	key := hashRequest(req)
	st := f.state(key)
	if len(chunk.Choices) == 0 {
		if chunk.Done {
			f.drop(key)
		}
		return []*model.Response{chunk}, nil
	}

	choice := chunk.Choices[0]
	terminator := st.active
	for _, tc := range choice.Delta.ToolCalls {
		if tc.Function.Name == finish.ToolName {
			terminator = true
		}
	}
	if !terminator {
		return []*model.Response{chunk}, nil
	}

	st.active = true
	var out []*model.Response
	for _, tc := range choice.Delta.ToolCalls {
		st.buf = append(st.buf, tc.Function.Arguments...)
	}
	if !st.emitted {
		var args finishArgs
		if err := json.Unmarshal(st.buf, &args); err == nil {
			st.emitted = true
			out = append(out, syntheticDeltas(chunk, args.Content)...)
		}
	}
	if choice.FinishReason != nil {
		final := chunk.Clone()
		reason := finishReasonStop
		final.Choices[0].FinishReason = &reason
		final.Choices[0].Delta.ToolCalls = nil
		final.Choices[0].Message.ToolCalls = nil
		out = append(out, final)
		f.drop(key)
	}
	return out, nil
}

// advertise ensures the terminator tool is in the request's tool map.
func (f *FinishTask) advertise(req *model.Request) *model.Request {
	if _, ok := req.Tools[finish.ToolName]; ok {
		return req
	}
	out := req.Clone()
	if out.Tools == nil {
		out.Tools = make(map[string]tool.Tool, 1)
	}
	out.Tools[finish.ToolName] = f.tool
	return out
}

func (f *FinishTask) state(key uint64) *finishState {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.states[key]
	if !ok {
		st = &finishState{}
		f.states[key] = st
	}
	return st
}

func (f *FinishTask) drop(key uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, key)
}

// syntheticDeltas splits content into bounded text delta chunks shaped like
// the stream they replace.
func syntheticDeltas(template *model.Response, content string) []*model.Response {
	var out []*model.Response
	runes := []rune(content)
	for start := 0; start < len(runes); start += deltaChunkSize {
		end := start + deltaChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, &model.Response{
			ID:        template.ID,
			Object:    model.ObjectTypeChatCompletionChunk,
			Created:   template.Created,
			Model:     template.Model,
			Timestamp: time.Now(),
			IsPartial: true,
			Choices: []model.Choice{{
				Delta: model.Message{
					Role:    model.RoleAssistant,
					Content: string(runes[start:end]),
				},
			}},
		})
	}
	return out
}

// hashRequest keys the per-request stream state on the outbound messages.
func hashRequest(req *model.Request) uint64 {
	h := fnv.New64a()
	if req == nil {
		return h.Sum64()
	}
	h.Write([]byte(req.Model))
	for _, m := range req.Messages {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
		h.Write([]byte(m.ToolID))
		for _, tc := range m.ToolCalls {
			h.Write([]byte(tc.Function.Name))
			h.Write(tc.Function.Arguments)
		}
	}
	return h.Sum64()
}
