//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangchen7722/eflycode-cli-sub001/agent"
	"github.com/wangchen7722/eflycode-cli-sub001/event"
	"github.com/wangchen7722/eflycode-cli-sub001/hook"
	"github.com/wangchen7722/eflycode-cli-sub001/model"
	"github.com/wangchen7722/eflycode-cli-sub001/session"
	"github.com/wangchen7722/eflycode-cli-sub001/tool"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/finish"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/function"
)

// fakeModel replays a scripted response sequence. When the script runs out it
// serves repeat, letting tests simulate a model that never stops calling
// tools.
type fakeModel struct {
	mu      sync.Mutex
	script  []*model.Response
	repeat  *model.Response
	callErr error
	// block, when set, parks Call until the channel is closed or the context
	// is cancelled.
	block chan struct{}
}

func (m *fakeModel) Info() model.Info { return model.Info{Name: "fake"} }

func (m *fakeModel) Capabilities() model.Capabilities {
	return model.Capabilities{SupportsStreaming: true, SupportsTools: true}
}

func (m *fakeModel) next() *model.Response {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.script) > 0 {
		rsp := m.script[0]
		m.script = m.script[1:]
		return rsp
	}
	return m.repeat
}

func (m *fakeModel) Call(ctx context.Context, _ *model.Request) (*model.Response, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.callErr != nil {
		return nil, m.callErr
	}
	rsp := m.next()
	if rsp == nil {
		return nil, errors.New("fake model script exhausted")
	}
	return rsp, nil
}

func (m *fakeModel) Stream(ctx context.Context, req *model.Request) (<-chan *model.Response, error) {
	rsp, err := m.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(chan *model.Response, 16)
	go func() {
		defer close(out)
		msg := rsp.FirstMessage()
		runes := []rune(msg.Content)
		for start := 0; start < len(runes); start += 3 {
			end := start + 3
			if end > len(runes) {
				end = len(runes)
			}
			out <- &model.Response{
				IsPartial: true,
				Choices: []model.Choice{{
					Delta: model.Message{Role: model.RoleAssistant, Content: string(runes[start:end])},
				}},
			}
		}
		for i, tc := range msg.ToolCalls {
			idx := i
			tc.Index = &idx
			out <- &model.Response{
				IsPartial: true,
				Choices: []model.Choice{{
					Delta: model.Message{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{tc}},
				}},
			}
		}
		out <- rsp
	}()
	return out, nil
}

func textResponse(content string) *model.Response {
	return &model.Response{
		Done:    true,
		Usage:   &model.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		Choices: []model.Choice{{Message: model.NewAssistantMessage(content)}},
	}
}

func toolCallResponse(id, name, args string) *model.Response {
	msg := model.NewAssistantMessage("")
	msg.ToolCalls = []model.ToolCall{{
		ID:   id,
		Type: "function",
		Function: model.FunctionDefinitionParam{
			Name:      name,
			Arguments: json.RawMessage(args),
		},
	}}
	return &model.Response{
		Done:    true,
		Usage:   &model.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		Choices: []model.Choice{{Message: msg}},
	}
}

// harness wires a fake model into a full loop with an event recorder.
type harness struct {
	loop *Loop
	bus  *event.Bus

	mu     sync.Mutex
	events []string
}

var recordedEvents = []string{
	event.TaskStart, event.TaskStop, event.TaskError,
	event.MessageStart, event.MessageDelta, event.MessageStop,
	event.ToolCall, event.ToolResult, event.ToolError,
	event.AgentError, event.Notification,
}

func newHarness(t *testing.T, provider model.Model, agentOpts []agent.Option, loopOpts ...LoopOption) *harness {
	t.Helper()
	bus, err := event.NewBus()
	require.NoError(t, err)

	h := &harness{bus: bus}
	for _, name := range recordedEvents {
		h.bus.Subscribe(name, func(e *event.Event) {
			h.mu.Lock()
			h.events = append(h.events, e.Name)
			h.mu.Unlock()
		})
	}

	registry := tool.NewRegistry()
	registry.MustRegister(function.New("echo", func(_ context.Context, args map[string]any) (string, error) {
		return fmt.Sprintf("%v", args["text"]), nil
	}, function.WithSchema(&tool.Schema{
		Type:       "object",
		Required:   []string{"text"},
		Properties: map[string]*tool.Schema{"text": {Type: "string"}},
	})))

	a := agent.New(provider, bus, session.New(), registry, agentOpts...)
	opts := append([]LoopOption{WithStream(false), WithDeltaSpacing(time.Millisecond)}, loopOpts...)
	h.loop = NewLoop(a, bus, opts...)
	return h
}

// drained closes the bus and returns every recorded event name in order.
func (h *harness) drained() []string {
	h.bus.Close(true, 2*time.Second)
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func (h *harness) count(name string) int {
	n := 0
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.events {
		if e == name {
			n++
		}
	}
	return n
}

func run(t *testing.T, h *harness, input string) *TaskConversation {
	t.Helper()
	conv, err := h.loop.Run(context.Background(), NewCancelToken(nil), input)
	require.NoError(t, err)
	return conv
}

func TestLoopPureChat(t *testing.T) {
	m := &fakeModel{script: []*model.Response{textResponse("Hello! How can I help?")}}
	h := newHarness(t, m, nil)

	conv := run(t, h, "hi")
	assert.Equal(t, "Hello! How can I help?", conv.Result)
	assert.Equal(t, 1, conv.Statistics.Iterations)
	assert.Zero(t, conv.Statistics.ToolCallsCount)
	assert.Equal(t, 15, conv.Statistics.Usage.TotalTokens)

	order := h.drained()
	assert.Equal(t, []string{
		event.TaskStart,
		event.MessageStart,
		event.MessageStop,
		event.TaskStop,
	}, order)
}

func TestLoopToolRoundTrip(t *testing.T) {
	m := &fakeModel{script: []*model.Response{
		toolCallResponse("call_1", "echo", `{"text":"ping"}`),
		toolCallResponse("call_2", finish.ToolName, `{"content":"The answer is ping"}`),
	}}
	h := newHarness(t, m, nil)

	conv := run(t, h, "say ping")
	assert.Equal(t, "The answer is ping", conv.Result)
	assert.Equal(t, 2, conv.Statistics.Iterations)
	assert.Equal(t, 1, conv.Statistics.ToolCallsCount)

	// user, assistant+call, tool result, feedback user, assistant+finish,
	// empty tool message for the terminator.
	require.Len(t, conv.Messages, 6)
	assert.Equal(t, "say ping", conv.Messages[0].Content)
	assert.Equal(t, "echo", conv.Messages[1].ToolCalls[0].Function.Name)
	assert.Equal(t, model.RoleTool, conv.Messages[2].Role)
	assert.Equal(t, "ping", conv.Messages[2].Content)
	assert.Equal(t, "The tool echo produced: ping\nPlease continue.", conv.Messages[3].Content)
	assert.Equal(t, finish.ToolName, conv.Messages[4].ToolCalls[0].Function.Name)
	assert.Equal(t, model.RoleTool, conv.Messages[5].Role)
	assert.Empty(t, conv.Messages[5].Content)

	h.drained()
	assert.Equal(t, 1, h.count(event.ToolCall))
	assert.Equal(t, 1, h.count(event.ToolResult))
	assert.Equal(t, 1, h.count(event.TaskStop))
}

func TestLoopFinishTaskPacedDeltas(t *testing.T) {
	content := "0123456789012345678901234567890123456789-tail"
	m := &fakeModel{script: []*model.Response{
		toolCallResponse("call_1", finish.ToolName, fmt.Sprintf(`{"content":%q}`, content)),
	}}
	h := newHarness(t, m, nil)

	conv := run(t, h, "finish now")
	assert.Equal(t, content, conv.Result)

	h.drained()
	// 45 runes paced out as 20+20+5.
	assert.Equal(t, 3, h.count(event.MessageDelta))
}

func TestLoopToolFailureFeedsBack(t *testing.T) {
	m := &fakeModel{script: []*model.Response{
		toolCallResponse("call_1", "echo", `{not json`),
		toolCallResponse("call_2", finish.ToolName, `{"content":"gave up"}`),
	}}
	h := newHarness(t, m, nil)

	conv := run(t, h, "break it")
	assert.Equal(t, "gave up", conv.Result)
	assert.Zero(t, conv.Statistics.ToolCallsCount, "failed dispatches are not counted")
	assert.Equal(t, model.RoleTool, conv.Messages[2].Role)
	assert.Contains(t, conv.Messages[2].Content, "echo")

	h.drained()
	assert.Equal(t, 1, h.count(event.ToolError))
}

func TestLoopBeforeToolBlock(t *testing.T) {
	groups := map[hook.EventName][]hook.Group{
		hook.EventBeforeTool: {{
			Matcher: "echo",
			Hooks:   []hook.Hook{{Name: "guard", Command: `echo "dangerous command refused" >&2; exit 2`}},
		}},
	}
	pipeline := hook.NewPipeline(groups, hook.WithWorkspaceDir(t.TempDir()))
	m := &fakeModel{script: []*model.Response{
		toolCallResponse("call_1", "echo", `{"text":"rm everything"}`),
		toolCallResponse("call_2", finish.ToolName, `{"content":"stopped"}`),
	}}
	h := newHarness(t, m, []agent.Option{agent.WithHooks(pipeline)})

	conv := run(t, h, "do something risky")
	assert.Equal(t, "stopped", conv.Result)
	assert.Zero(t, conv.Statistics.ToolCallsCount)
	assert.Contains(t, conv.Messages[2].Content, "dangerous command refused",
		"the hook's message is what the model sees as the tool result")
}

func TestLoopBeforeAgentBlock(t *testing.T) {
	groups := map[hook.EventName][]hook.Group{
		hook.EventBeforeAgent: {{
			Hooks: []hook.Hook{{Name: "gate", Command: `echo '{"decision":"block","systemMessage":"not now"}'`}},
		}},
	}
	pipeline := hook.NewPipeline(groups, hook.WithWorkspaceDir(t.TempDir()))
	m := &fakeModel{script: []*model.Response{textResponse("never reached")}}
	h := newHarness(t, m, nil, WithLoopHooks(pipeline))

	conv := run(t, h, "hi")
	assert.Equal(t, "not now", conv.Result)
	assert.Zero(t, conv.Statistics.Iterations)
}

func TestLoopIterationCap(t *testing.T) {
	m := &fakeModel{repeat: toolCallResponse("call_n", "echo", `{"text":"again"}`)}
	h := newHarness(t, m, nil, WithMaxIterations(3))

	conv := run(t, h, "loop forever")
	assert.Equal(t, resultMaxIterations, conv.Result)
	assert.Equal(t, 3, conv.Statistics.Iterations)
	assert.Equal(t, 3, conv.Statistics.ToolCallsCount)
}

func TestLoopCancelledToken(t *testing.T) {
	m := &fakeModel{script: []*model.Response{textResponse("never")}}
	h := newHarness(t, m, nil)

	token := NewCancelToken(nil)
	token.Cancel()
	conv, err := h.loop.Run(context.Background(), token, "hi")
	require.NoError(t, err)
	assert.Equal(t, resultCancelled, conv.Result)
	assert.Zero(t, conv.Statistics.Iterations)
}

func TestLoopFatalModelError(t *testing.T) {
	m := &fakeModel{callErr: errors.New("provider exploded")}
	h := newHarness(t, m, nil)

	_, err := h.loop.Run(context.Background(), NewCancelToken(nil), "hi")
	require.Error(t, err)

	h.drained()
	assert.Equal(t, 1, h.count(event.AgentError))
	assert.Equal(t, 1, h.count(event.TaskError))
	assert.Zero(t, h.count(event.TaskStop))
}

func TestLoopStreamingChat(t *testing.T) {
	m := &fakeModel{script: []*model.Response{textResponse("Hello world")}}
	h := newHarness(t, m, nil, WithStream(true))

	conv := run(t, h, "hi")
	assert.Equal(t, "Hello world", conv.Result)
	assert.Equal(t, 1, conv.Statistics.Iterations)
	assert.Equal(t, 15, conv.Statistics.Usage.TotalTokens,
		"usage rides the terminal stream element, not the deltas")

	h.drained()
	assert.Equal(t, 1, h.count(event.MessageStart))
	assert.Equal(t, 4, h.count(event.MessageDelta), "11 runes in 3-rune chunks")
	assert.Equal(t, 1, h.count(event.MessageStop))
}

func TestLoopStreamingToolRoundTripAccruesUsage(t *testing.T) {
	m := &fakeModel{script: []*model.Response{
		toolCallResponse("call_1", "echo", `{"text":"ping"}`),
		toolCallResponse("call_2", finish.ToolName, `{"content":"done"}`),
	}}
	h := newHarness(t, m, nil, WithStream(true))

	conv := run(t, h, "say ping")
	assert.Equal(t, "done", conv.Result)
	assert.Equal(t, 1, conv.Statistics.ToolCallsCount)
	assert.Equal(t, 30, conv.Statistics.Usage.TotalTokens, "both model calls counted")
	assert.Equal(t, "call_1", conv.Messages[1].ToolCalls[0].ID,
		"tool-call IDs survive stream reassembly")

	h.drained()
	assert.Equal(t, 1, h.count(event.ToolCall))
	assert.Equal(t, 1, h.count(event.ToolResult))
}
