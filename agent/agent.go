//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package agent ties the provider, session, tools, advisors and hooks into
// one conversational unit. The run loop in the runner package drives it.
package agent

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/wangchen7722/eflycode-cli-sub001/advisor"
	"github.com/wangchen7722/eflycode-cli-sub001/event"
	"github.com/wangchen7722/eflycode-cli-sub001/hook"
	"github.com/wangchen7722/eflycode-cli-sub001/log"
	"github.com/wangchen7722/eflycode-cli-sub001/model"
	"github.com/wangchen7722/eflycode-cli-sub001/session"
	"github.com/wangchen7722/eflycode-cli-sub001/stream"
	"github.com/wangchen7722/eflycode-cli-sub001/telemetry/trace"
	"github.com/wangchen7722/eflycode-cli-sub001/tool"
)

// Option configures an Agent.
type Option func(*Agent)

// WithMaxContextLength sets the context window budget in tokens.
func WithMaxContextLength(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxContextLength = n
		}
	}
}

// WithAdvisors sets the advisor chain wrapped around every provider call.
func WithAdvisors(chain *advisor.Chain) Option {
	return func(a *Agent) {
		a.chain = chain
	}
}

// WithHooks installs the hook pipeline.
func WithHooks(hooks *hook.Pipeline) Option {
	return func(a *Agent) {
		a.hooks = hooks
	}
}

// defaultMaxContextLength is used when the model entry does not set one.
const defaultMaxContextLength = 128000

// Agent is one conversational agent bound to a session.
type Agent struct {
	provider model.Model
	bus      *event.Bus
	session  *session.Session
	registry *tool.Registry
	chain    *advisor.Chain
	hooks    *hook.Pipeline

	maxContextLength int
}

// New assembles an agent. A nil advisor chain or hook pipeline degrades to
// pass-through behavior.
func New(provider model.Model, bus *event.Bus, sess *session.Session, registry *tool.Registry, opts ...Option) *Agent {
	a := &Agent{
		provider:         provider,
		bus:              bus,
		session:          sess,
		registry:         registry,
		chain:            advisor.NewChain(),
		maxContextLength: defaultMaxContextLength,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.hooks == nil {
		a.hooks = hook.NewPipeline(nil, hook.WithEnabled(false))
	}
	return a
}

// Session returns the agent's session.
func (a *Agent) Session() *session.Session {
	return a.session
}

// Registry returns the agent's tool registry.
func (a *Agent) Registry() *tool.Registry {
	return a.registry
}

// Chat performs one non-stream model call. A non-empty text is appended as a
// user message first; the assistant response is appended before returning.
func (a *Agent) Chat(ctx context.Context, text string) (*model.Response, error) {
	req, err := a.prepareRequest(ctx, text)
	if err != nil {
		return nil, err
	}

	ctx, span := trace.Tracer.Start(ctx, trace.SpanNameChat,
		oteltrace.WithAttributes(attribute.String("model", req.Model)))
	defer span.End()

	a.bus.Emit(event.MessageStart, nil)
	rsp, err := a.chain.Call(ctx, req, a.provider.Call)
	if err != nil {
		a.emitError(err)
		return nil, err
	}
	if rsp.Error != nil {
		err := fmt.Errorf("model call: %s", rsp.Error.Message)
		a.emitError(err)
		return nil, err
	}
	a.fireAfterModel(ctx, rsp)
	a.session.AddMessage(rsp.FirstMessage())
	a.bus.Emit(event.MessageStop, rsp)
	return rsp, nil
}

// Stream performs one streaming model call. Chunks are folded through the
// stream assembler, which publishes the UI events; the reconstructed
// response is appended to the session and returned.
func (a *Agent) Stream(ctx context.Context, text string) (*model.Response, error) {
	req, err := a.prepareRequest(ctx, text)
	if err != nil {
		return nil, err
	}
	req.Stream = true

	ctx, span := trace.Tracer.Start(ctx, trace.SpanNameChat,
		oteltrace.WithAttributes(attribute.String("model", req.Model)))
	defer span.End()

	ch, err := a.chain.Stream(ctx, req, a.provider.Stream)
	if err != nil {
		a.emitError(err)
		return nil, err
	}
	assembler := stream.NewAssembler(a.bus)
	for chunk := range ch {
		if err := ctx.Err(); err != nil {
			// Cancelled mid-stream: discard the remaining chunks.
			return nil, err
		}
		if chunk.Error != nil {
			err := fmt.Errorf("model stream: %s", chunk.Error.Message)
			a.emitError(err)
			return nil, err
		}
		if chunk.IsPartial {
			assembler.Feed(chunk)
		} else {
			// The terminal element carries usage, the finish reason and the
			// synthesized tool-call IDs.
			assembler.Merge(chunk)
		}
	}
	final := assembler.Finish()
	a.fireAfterModel(ctx, final)
	a.session.AddMessage(final.FirstMessage())
	return final, nil
}

// prepareRequest builds the outbound request: session context, tool
// advertisement, then the BeforeToolSelection and BeforeModel hooks.
func (a *Agent) prepareRequest(ctx context.Context, text string) (*model.Request, error) {
	if text != "" {
		a.session.AddMessage(model.NewUserMessage(text))
	}
	a.hooks.Fire(ctx, hook.EventPreCompress, map[string]any{
		"message_count": a.session.Len(),
	})
	req, err := a.session.GetContext(ctx, a.provider.Info().Name, a.maxContextLength)
	if err != nil {
		return nil, err
	}
	req.Tools = a.registry.Tools()
	a.filterTools(ctx, req)
	return a.fireBeforeModel(ctx, req)
}

// filterTools applies the BeforeToolSelection hook's tools filter.
func (a *Agent) filterTools(ctx context.Context, req *model.Request) {
	result := a.hooks.Fire(ctx, hook.EventBeforeToolSelection, map[string]any{
		"tools": a.registry.Names(),
	})
	raw, ok := result.HookSpecificOutput[hook.KeyTools]
	if !ok {
		return
	}
	names, err := hook.DecodeToolFilter(raw)
	if err != nil {
		log.Warnf("ignoring tool filter from hook: %v", err)
		return
	}
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	for name := range req.Tools {
		if !keep[name] {
			delete(req.Tools, name)
		}
	}
}

// fireBeforeModel runs the BeforeModel hook, honoring a blocking decision
// and an llm_request replacement.
func (a *Agent) fireBeforeModel(ctx context.Context, req *model.Request) (*model.Request, error) {
	result := a.hooks.Fire(ctx, hook.EventBeforeModel, map[string]any{
		"llm_request": req,
	})
	if result.Blocked() {
		return nil, fmt.Errorf("model call blocked by hook: %s", result.SystemMessage())
	}
	raw, ok := result.HookSpecificOutput[hook.KeyLLMRequest]
	if !ok {
		return req, nil
	}
	replacement, err := hook.DecodeRequest(raw)
	if err != nil {
		log.Warnf("ignoring llm_request replacement from hook: %v", err)
		return req, nil
	}
	if replacement.Model == "" {
		replacement.Model = req.Model
	}
	replacement.GenerationConfig = req.GenerationConfig
	replacement.Tools = req.Tools
	return replacement, nil
}

// emitError publishes agent.error for provider failures. Cancellation is not
// reported; the run loop turns it into a cancelled task.
func (a *Agent) emitError(err error) {
	a.bus.Emit(event.AgentError, map[string]any{"error": err.Error()})
}

func (a *Agent) fireAfterModel(ctx context.Context, rsp *model.Response) {
	a.hooks.Fire(ctx, hook.EventAfterModel, map[string]any{
		"llm_response": rsp,
	})
}

// ExecuteTool dispatches one tool call through the registry with the
// BeforeTool and AfterTool hooks around it. A blocking hook decision fails
// the call with an ExecutionError carrying the hook's message.
func (a *Agent) ExecuteTool(ctx context.Context, call model.ToolCall) (string, error) {
	name := call.Function.Name
	ctx, span := trace.Tracer.Start(ctx, trace.SpanNamePrefixExecuteTool+" "+name,
		oteltrace.WithAttributes(attribute.String("tool", name)))
	defer span.End()

	before := a.hooks.FireTool(ctx, hook.EventBeforeTool, name, map[string]any{
		"tool_input": string(call.Function.Arguments),
	})
	if before.Blocked() {
		err := tool.NewExecutionError(name, before.SystemMessage(), nil)
		a.bus.Emit(event.ToolError, map[string]any{
			"tool_name":    name,
			"tool_call_id": call.ID,
			"error":        err.Error(),
		})
		return "", err
	}

	a.bus.Emit(event.ToolCall, map[string]any{
		"tool_name":    name,
		"tool_call_id": call.ID,
		"arguments":    string(call.Function.Arguments),
	})
	result, err := a.registry.Dispatch(ctx, name, call.Function.Arguments)
	if err != nil {
		a.bus.Emit(event.ToolError, map[string]any{
			"tool_name":    name,
			"tool_call_id": call.ID,
			"error":        err.Error(),
		})
		return "", err
	}

	a.hooks.FireTool(ctx, hook.EventAfterTool, name, map[string]any{
		"tool_input":  string(call.Function.Arguments),
		"tool_result": result,
	})
	a.bus.Emit(event.ToolResult, map[string]any{
		"tool_name":    name,
		"tool_call_id": call.ID,
		"result":       result,
	})
	return result, nil
}
