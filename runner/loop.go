//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package runner drives the agent: the run loop alternates model calls and
// tool executions for one task, and the controller schedules one task at a
// time from UI events.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wangchen7722/eflycode-cli-sub001/agent"
	"github.com/wangchen7722/eflycode-cli-sub001/event"
	"github.com/wangchen7722/eflycode-cli-sub001/hook"
	"github.com/wangchen7722/eflycode-cli-sub001/log"
	"github.com/wangchen7722/eflycode-cli-sub001/model"
	"github.com/wangchen7722/eflycode-cli-sub001/tool"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/finish"
)

const (
	// defaultMaxIterations caps model/tool round trips per task.
	defaultMaxIterations = 50

	// finishDeltaSize and finishDeltaSpacing pace the synthetic deltas the
	// loop emits for a finish_task content argument.
	finishDeltaSize    = 20
	finishDeltaSpacing = 50 * time.Millisecond

	// resultCancelled and friends are the task.stop result strings.
	resultCancelled     = "cancelled"
	resultMaxIterations = "max iterations reached"
)

// TaskStatistics accumulates per-task counters.
type TaskStatistics struct {
	// Iterations counts run-loop turns.
	Iterations int `json:"iterations"`
	// ToolCallsCount counts successfully dispatched tools, excluding the
	// finish_task terminator.
	ToolCallsCount int `json:"tool_calls_count"`
	// Usage sums the provider usage of every model call.
	Usage model.Usage `json:"usage"`
}

// TaskConversation is the outcome of one task.
type TaskConversation struct {
	Messages   []model.Message `json:"messages"`
	Result     string          `json:"result"`
	Statistics TaskStatistics  `json:"statistics"`
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMaxIterations overrides the iteration cap, default 50.
func WithMaxIterations(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// WithStream selects streaming or non-streaming model calls, default
// streaming.
func WithStream(stream bool) LoopOption {
	return func(l *Loop) {
		l.stream = stream
	}
}

// WithLoopHooks installs the pipeline fired around the whole task.
func WithLoopHooks(hooks *hook.Pipeline) LoopOption {
	return func(l *Loop) {
		l.hooks = hooks
	}
}

// WithDeltaSpacing overrides the synthetic delta pacing, used by tests.
func WithDeltaSpacing(d time.Duration) LoopOption {
	return func(l *Loop) {
		l.deltaSpacing = d
	}
}

// Loop runs one task to completion.
type Loop struct {
	agent *agent.Agent
	bus   *event.Bus
	hooks *hook.Pipeline

	maxIterations int
	stream        bool
	deltaSpacing  time.Duration
}

// NewLoop builds a run loop over an agent.
func NewLoop(a *agent.Agent, bus *event.Bus, opts ...LoopOption) *Loop {
	l := &Loop{
		agent:         a,
		bus:           bus,
		maxIterations: defaultMaxIterations,
		stream:        true,
		deltaSpacing:  finishDeltaSpacing,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.hooks == nil {
		l.hooks = hook.NewPipeline(nil, hook.WithEnabled(false))
	}
	return l
}

// Run executes one task for the given user input. It always emits
// agent.task.start first and exactly one of agent.task.stop or
// agent.task.error last.
func (l *Loop) Run(ctx context.Context, cancel *CancelToken, userInput string) (*TaskConversation, error) {
	conv := &TaskConversation{}
	l.bus.Emit(event.TaskStart, map[string]any{"user_input": userInput})

	before := l.hooks.Fire(ctx, hook.EventBeforeAgent, map[string]any{"user_input": userInput})
	if before.Blocked() {
		return l.stop(ctx, conv, before.SystemMessage())
	}

	input := userInput
	for conv.Statistics.Iterations < l.maxIterations {
		if cancel.Cancelled() || ctx.Err() != nil {
			return l.stop(ctx, conv, resultCancelled)
		}
		rsp, err := l.callAgent(ctx, input)
		conv.Statistics.Iterations++
		if err != nil {
			if cancel.Cancelled() || errors.Is(err, context.Canceled) {
				return l.stop(ctx, conv, resultCancelled)
			}
			l.bus.Emit(event.TaskError, map[string]any{"error": err.Error()})
			conv.Messages = l.agent.Session().Messages()
			return conv, err
		}
		if rsp.Usage != nil {
			conv.Statistics.Usage.Add(rsp.Usage)
		}

		msg := rsp.FirstMessage()
		if len(msg.ToolCalls) == 0 {
			return l.stop(ctx, conv, msg.Content)
		}
		call := msg.ToolCalls[0]
		if call.Function.Name == finish.ToolName {
			return l.finishTask(ctx, conv, call)
		}

		result, dispatched, err := l.executeTool(ctx, call)
		if err != nil {
			l.bus.Emit(event.TaskError, map[string]any{"error": err.Error()})
			conv.Messages = l.agent.Session().Messages()
			return conv, err
		}
		if dispatched {
			conv.Statistics.ToolCallsCount++
		}
		l.agent.Session().AddMessage(model.NewToolMessage(call.ID, result))
		input = fmt.Sprintf("The tool %s produced: %s\nPlease continue.", call.Function.Name, result)
	}
	return l.stop(ctx, conv, resultMaxIterations)
}

func (l *Loop) callAgent(ctx context.Context, input string) (*model.Response, error) {
	if l.stream {
		return l.agent.Stream(ctx, input)
	}
	return l.agent.Chat(ctx, input)
}

// executeTool dispatches one tool call. Parameter and execution errors are
// turned into the result string the model sees; anything else is fatal. The
// bool reports whether the dispatch succeeded.
func (l *Loop) executeTool(ctx context.Context, call model.ToolCall) (string, bool, error) {
	result, err := l.agent.ExecuteTool(ctx, call)
	if err == nil {
		return result, true, nil
	}
	var pe *tool.ParameterError
	var ee *tool.ExecutionError
	if errors.As(err, &pe) || errors.As(err, &ee) {
		log.Warnf("tool %s failed: %v", call.Function.Name, err)
		return err.Error(), false, nil
	}
	return "", false, err
}

// finishTask handles the terminator call: an empty tool message keeps the
// adjacency invariant, then the content argument is streamed as paced
// synthetic deltas before the task stops.
func (l *Loop) finishTask(ctx context.Context, conv *TaskConversation, call model.ToolCall) (*TaskConversation, error) {
	l.agent.Session().AddMessage(model.NewToolMessage(call.ID, ""))

	var args struct {
		Content string `json:"content"`
	}
	if len(call.Function.Arguments) > 0 {
		if err := json.Unmarshal(call.Function.Arguments, &args); err != nil {
			log.Warnf("finish_task arguments did not parse: %v", err)
		}
	}
	runes := []rune(args.Content)
	for start := 0; start < len(runes); start += finishDeltaSize {
		end := start + finishDeltaSize
		if end > len(runes) {
			end = len(runes)
		}
		l.bus.Emit(event.MessageDelta, map[string]any{"delta": string(runes[start:end])})
		if end < len(runes) {
			time.Sleep(l.deltaSpacing)
		}
	}
	l.bus.Emit(event.MessageStop, nil)
	return l.stop(ctx, conv, args.Content)
}

// stop finalizes the conversation and emits task.stop.
func (l *Loop) stop(ctx context.Context, conv *TaskConversation, result string) (*TaskConversation, error) {
	conv.Result = result
	conv.Messages = l.agent.Session().Messages()
	l.hooks.Fire(ctx, hook.EventAfterAgent, map[string]any{"result": result})
	l.bus.Emit(event.TaskStop, map[string]any{
		"result":     result,
		"statistics": conv.Statistics,
	})
	return conv, nil
}
