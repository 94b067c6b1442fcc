//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package hook runs user-configured external commands at agent lifecycle
// points. Hooks receive a JSON payload on stdin and may steer the agent
// through their exit code and a JSON document on stdout.
package hook

import "time"

// EventName identifies a lifecycle point hooks can attach to.
type EventName string

const (
	EventSessionStart        EventName = "SessionStart"
	EventSessionEnd          EventName = "SessionEnd"
	EventBeforeAgent         EventName = "BeforeAgent"
	EventAfterAgent          EventName = "AfterAgent"
	EventBeforeModel         EventName = "BeforeModel"
	EventAfterModel          EventName = "AfterModel"
	EventBeforeToolSelection EventName = "BeforeToolSelection"
	EventBeforeTool          EventName = "BeforeTool"
	EventAfterTool           EventName = "AfterTool"
	EventPreCompress         EventName = "PreCompress"
	EventNotification        EventName = "Notification"
)

// Decision values a hook may return, ordered by priority. Block beats deny,
// deny beats ask, ask beats allow.
const (
	DecisionBlock = "block"
	DecisionDeny  = "deny"
	DecisionAsk   = "ask"
	DecisionAllow = "allow"
)

// decisionRank orders decisions for aggregation. Unknown decisions rank
// lowest so they never override a recognized one.
func decisionRank(d string) int {
	switch d {
	case DecisionBlock:
		return 4
	case DecisionDeny:
		return 3
	case DecisionAsk:
		return 2
	case DecisionAllow:
		return 1
	default:
		return 0
	}
}

// defaultTimeout bounds one hook subprocess when the hook does not set its
// own timeout.
const defaultTimeout = 60 * time.Second

// Hook is one configured external command.
type Hook struct {
	// Name labels the hook in logs.
	Name string `toml:"name"`
	// Command is the shell command line to run.
	Command string `toml:"command"`
	// Timeout in milliseconds, 0 uses the default of 60 000.
	Timeout int64 `toml:"timeout"`
	// Matcher narrows tool events to matching tool names. Empty or "*"
	// matches everything.
	Matcher string `toml:"matcher"`
}

// timeout returns the effective subprocess timeout.
func (h *Hook) timeout() time.Duration {
	if h.Timeout > 0 {
		return time.Duration(h.Timeout) * time.Millisecond
	}
	return defaultTimeout
}

// Group is an ordered batch of hooks sharing a matcher. Sequential groups
// feed each hook's output into the next hook's input; parallel groups run
// their hooks concurrently.
type Group struct {
	Matcher    string `toml:"matcher"`
	Sequential bool   `toml:"sequential"`
	Hooks      []Hook `toml:"hooks"`
}

// Output is the JSON document a hook may print to stdout. All fields are
// optional; an unparsable stdout is treated as a bare system message.
type Output struct {
	Decision           string         `json:"decision,omitempty"`
	Continue           *bool          `json:"continue,omitempty"`
	SystemMessage      string         `json:"systemMessage,omitempty"`
	HookSpecificOutput map[string]any `json:"hookSpecificOutput,omitempty"`
}

// ExecResult records one hook subprocess run.
type ExecResult struct {
	HookName string
	ExitCode int
	Stdout   string
	Stderr   string
	Output   *Output
}

// Blocking reports whether the hook asked to block via its exit code.
func (r *ExecResult) Blocking() bool {
	return r.ExitCode == 2
}

// Result is the fold of every hook that ran for one event.
type Result struct {
	// Continue is false when any hook blocked or returned continue=false.
	Continue bool
	// Decision is the highest-priority decision any hook returned, empty
	// when none decided.
	Decision string
	// SystemMessages collects hook messages and the stderr of blocking hooks.
	SystemMessages []string
	// HookSpecificOutput merges per-hook outputs, later hooks overriding
	// earlier ones on identical top-level keys.
	HookSpecificOutput map[string]any
}

// NeutralResult is the result of firing an event with no applicable hooks.
func NeutralResult() *Result {
	return &Result{Continue: true}
}

// merge folds one execution result into the aggregate.
func (r *Result) merge(exec *ExecResult) {
	if exec == nil {
		return
	}
	if exec.Blocking() {
		r.Continue = false
		if exec.Stderr != "" {
			r.SystemMessages = append(r.SystemMessages, exec.Stderr)
		}
	}
	out := exec.Output
	if out == nil {
		return
	}
	if out.Continue != nil && !*out.Continue {
		r.Continue = false
	}
	if decisionRank(out.Decision) > decisionRank(r.Decision) {
		r.Decision = out.Decision
	}
	if out.SystemMessage != "" {
		r.SystemMessages = append(r.SystemMessages, out.SystemMessage)
	}
	if len(out.HookSpecificOutput) > 0 {
		if r.HookSpecificOutput == nil {
			r.HookSpecificOutput = make(map[string]any, len(out.HookSpecificOutput))
		}
		for k, v := range out.HookSpecificOutput {
			r.HookSpecificOutput[k] = v
		}
	}
}

// SystemMessage joins the collected messages into one user-visible string.
func (r *Result) SystemMessage() string {
	switch len(r.SystemMessages) {
	case 0:
		return ""
	case 1:
		return r.SystemMessages[0]
	}
	joined := r.SystemMessages[0]
	for _, m := range r.SystemMessages[1:] {
		joined += "\n" + m
	}
	return joined
}

// Blocked reports whether the fold forbids the guarded action.
func (r *Result) Blocked() bool {
	return !r.Continue || r.Decision == DecisionBlock || r.Decision == DecisionDeny
}
