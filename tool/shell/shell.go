//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package shell provides a command execution tool confined to a working
// directory and an allow list of program names.
package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/wangchen7722/eflycode-cli-sub001/tool"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/function"
)

const (
	// defaultTimeout bounds a single command run.
	defaultTimeout = 60 * time.Second
	// maxOutputBytes truncates captured stdout and stderr separately.
	maxOutputBytes = 64 * 1024
)

// defaultAllowedCommands is the conservative allow list used when the caller
// does not supply one.
var defaultAllowedCommands = []string{
	"ls", "cat", "head", "tail", "grep", "find", "wc", "sort", "uniq",
	"diff", "echo", "pwd", "which", "env",
	"git", "go", "make", "python3", "node", "npm", "cargo",
}

// Option is a functional option for configuring the shell tool.
type Option func(*shellTool)

// WithWorkDir sets the working directory commands run in, default is the
// current directory.
func WithWorkDir(dir string) Option {
	return func(s *shellTool) {
		s.workDir = dir
	}
}

// WithAllowedCommands replaces the default command allow list.
func WithAllowedCommands(cmds []string) Option {
	return func(s *shellTool) {
		s.allowed = cmds
	}
}

// WithTimeout sets the per-command timeout, default is 60 seconds.
func WithTimeout(d time.Duration) Option {
	return func(s *shellTool) {
		s.timeout = d
	}
}

type shellTool struct {
	workDir string
	allowed []string
	timeout time.Duration
}

// executeCommandResponse represents the output from the execute command operation.
type executeCommandResponse struct {
	Command   string `json:"command"`
	WorkDir   string `json:"work_dir"`
	ExitCode  int    `json:"exit_code"`
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
	Truncated bool   `json:"truncated,omitempty"`
	Message   string `json:"message"`
}

// NewTool returns the execute_command tool.
func NewTool(opts ...Option) tool.CallableTool {
	s := &shellTool{
		workDir: ".",
		allowed: defaultAllowedCommands,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if abs, err := filepath.Abs(s.workDir); err == nil {
		s.workDir = abs
	}
	return function.New(
		"execute_command",
		s.execute,
		function.WithPermission(tool.PermissionEdit),
		function.WithDescription("Runs a shell command in the workspace directory and returns its "+
			"exit code, stdout and stderr. Only commands whose program name is on the configured "+
			"allow list may run. Output is truncated to 64KiB per stream and the command is killed "+
			"after the configured timeout, default 60 seconds."),
		function.WithSchema(&tool.Schema{
			Type:     "object",
			Required: []string{"command"},
			Properties: map[string]*tool.Schema{
				"command": {
					Type:        "string",
					Description: "The shell command line to execute.",
				},
			},
		}),
	)
}

func (s *shellTool) execute(ctx context.Context, args map[string]any) (string, error) {
	command, _ := args["command"].(string)
	command = strings.TrimSpace(command)
	if command == "" {
		return "", fmt.Errorf("command cannot be empty")
	}
	if err := s.checkAllowed(command); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = s.workDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	rsp := &executeCommandResponse{
		Command: command,
		WorkDir: s.workDir,
	}
	rsp.Stdout, rsp.Truncated = truncate(stdout.Bytes())
	var errTruncated bool
	rsp.Stderr, errTruncated = truncate(stderr.Bytes())
	rsp.Truncated = rsp.Truncated || errTruncated

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		rsp.ExitCode = 124
		rsp.Message = fmt.Sprintf("Command timed out after %s", s.timeout)
	case runErr != nil:
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			rsp.ExitCode = exitErr.ExitCode()
			rsp.Message = fmt.Sprintf("Command exited with code %d", rsp.ExitCode)
		} else {
			return "", fmt.Errorf("running command: %w", runErr)
		}
	default:
		rsp.Message = "Command completed successfully"
	}
	return marshalResult(rsp)
}

// checkAllowed verifies the first program name of the command line against
// the allow list. Pipelines and command lists are checked per segment.
func (s *shellTool) checkAllowed(command string) error {
	for _, segment := range splitSegments(command) {
		fields := strings.Fields(segment)
		if len(fields) == 0 {
			continue
		}
		program := filepath.Base(fields[0])
		if !s.isAllowed(program) {
			return fmt.Errorf("command '%s' is not on the allow list", program)
		}
	}
	return nil
}

func (s *shellTool) isAllowed(program string) bool {
	for _, a := range s.allowed {
		if a == program {
			return true
		}
	}
	return false
}

// splitSegments breaks a command line at shell pipe and list operators so
// every program in a pipeline is validated.
func splitSegments(command string) []string {
	replacer := strings.NewReplacer("&&", "\n", "||", "\n", "|", "\n", ";", "\n")
	return strings.Split(replacer.Replace(command), "\n")
}

func truncate(b []byte) (string, bool) {
	if len(b) <= maxOutputBytes {
		return string(b), false
	}
	return string(b[:maxOutputBytes]) + "\n... output truncated ...", true
}

func marshalResult(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}
