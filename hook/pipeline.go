//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package hook

import (
	"context"
	"sync"
	"time"
)

// Option configures a pipeline.
type Option func(*Pipeline)

// WithEnabled toggles the pipeline. Disabled pipelines return a neutral
// result for every event without running anything.
func WithEnabled(enabled bool) Option {
	return func(p *Pipeline) {
		p.enabled = enabled
	}
}

// WithSessionID sets the session identifier exported to hooks.
func WithSessionID(id string) Option {
	return func(p *Pipeline) {
		p.sessionID = id
	}
}

// WithProjectDir sets the project directory exported to hooks.
func WithProjectDir(dir string) Option {
	return func(p *Pipeline) {
		p.projectDir = dir
	}
}

// WithWorkspaceDir sets the directory hooks run in.
func WithWorkspaceDir(dir string) Option {
	return func(p *Pipeline) {
		p.workspaceDir = dir
	}
}

// WithVersion sets the CLI version exported to hooks.
func WithVersion(v string) Option {
	return func(p *Pipeline) {
		p.version = v
	}
}

// Pipeline holds the hook groups per event and fires them.
type Pipeline struct {
	groups  map[EventName][]Group
	enabled bool

	sessionID    string
	projectDir   string
	workspaceDir string
	version      string
}

// NewPipeline builds a pipeline from the configured groups.
func NewPipeline(groups map[EventName][]Group, opts ...Option) *Pipeline {
	p := &Pipeline{
		groups:       groups,
		enabled:      true,
		projectDir:   ".",
		workspaceDir: ".",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fire runs every applicable hook for the event and folds their results.
// The fields map carries the event-specific payload entries.
func (p *Pipeline) Fire(ctx context.Context, event EventName, fields map[string]any) *Result {
	return p.fire(ctx, event, "", fields)
}

// FireTool is Fire for BeforeTool and AfterTool, narrowing groups and hooks
// to those whose matcher accepts the tool name.
func (p *Pipeline) FireTool(ctx context.Context, event EventName, toolName string, fields map[string]any) *Result {
	return p.fire(ctx, event, toolName, fields)
}

func (p *Pipeline) fire(ctx context.Context, event EventName, toolName string, fields map[string]any) *Result {
	result := NeutralResult()
	if !p.enabled {
		return result
	}
	groups := p.groups[event]
	if len(groups) == 0 {
		return result
	}

	payload := p.basePayload(event)
	for k, v := range fields {
		payload[k] = v
	}
	if toolName != "" {
		payload["tool_name"] = toolName
	}

	for i := range groups {
		group := &groups[i]
		if toolName != "" && !matchTool(group.Matcher, toolName) {
			continue
		}
		hooks := make([]*Hook, 0, len(group.Hooks))
		for j := range group.Hooks {
			h := &group.Hooks[j]
			if toolName != "" && !matchTool(h.Matcher, toolName) {
				continue
			}
			hooks = append(hooks, h)
		}
		if len(hooks) == 0 {
			continue
		}
		if group.Sequential {
			p.runSequential(ctx, hooks, payload, result)
		} else {
			p.runParallel(ctx, hooks, payload, result)
		}
	}
	return result
}

// runSequential runs hooks in declaration order. Each hook's specific output
// is folded into the payload the next hook receives.
func (p *Pipeline) runSequential(ctx context.Context, hooks []*Hook, payload map[string]any, result *Result) {
	current := payload
	for _, h := range hooks {
		exec := p.runHook(ctx, h, current)
		result.merge(exec)
		if exec.Output != nil && len(exec.Output.HookSpecificOutput) > 0 {
			next := make(map[string]any, len(current)+len(exec.Output.HookSpecificOutput))
			for k, v := range current {
				next[k] = v
			}
			for k, v := range exec.Output.HookSpecificOutput {
				next[k] = v
			}
			current = next
		}
	}
}

// runParallel runs every hook concurrently and merges results in declaration
// order so aggregation stays deterministic.
func (p *Pipeline) runParallel(ctx context.Context, hooks []*Hook, payload map[string]any, result *Result) {
	results := make([]*ExecResult, len(hooks))
	var wg sync.WaitGroup
	for i, h := range hooks {
		wg.Add(1)
		go func(i int, h *Hook) {
			defer wg.Done()
			results[i] = p.runHook(ctx, h, payload)
		}(i, h)
	}
	wg.Wait()
	for _, exec := range results {
		result.merge(exec)
	}
}

// basePayload builds the common stdin fields every hook receives.
func (p *Pipeline) basePayload(event EventName) map[string]any {
	return map[string]any{
		"session_id":      p.sessionID,
		"hook_event_name": string(event),
		"cwd":             p.projectDir,
		"workspace_dir":   p.workspaceDir,
		"timestamp":       time.Now().Unix(),
	}
}
