//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/wangchen7722/eflycode-cli-sub001/log"
)

// Environment variable names exported to hook subprocesses. The same names
// may appear as ${EFLYCODE_*} placeholders inside the command string and are
// expanded before the shell sees it.
const (
	EnvProjectDir   = "EFLYCODE_PROJECT_DIR"
	EnvWorkspaceDir = "EFLYCODE_WORKSPACE_DIR"
	EnvCLIVersion   = "EFLYCODE_CLI_VERSION"
	EnvSessionID    = "EFLYCODE_SESSION_ID"
)

// runHook executes one hook command with the payload on stdin and parses its
// stdout. The returned ExecResult is never nil.
func (p *Pipeline) runHook(ctx context.Context, h *Hook, payload map[string]any) *ExecResult {
	result := &ExecResult{HookName: h.Name}

	input, err := json.Marshal(payload)
	if err != nil {
		result.ExitCode = 1
		result.Stderr = fmt.Sprintf("marshal hook payload: %v", err)
		return result
	}

	env := map[string]string{
		EnvProjectDir:   p.projectDir,
		EnvWorkspaceDir: p.workspaceDir,
		EnvCLIVersion:   p.version,
		EnvSessionID:    p.sessionID,
	}
	command := expandPlaceholders(h.Command, env)

	runCtx, cancel := context.WithTimeout(ctx, h.timeout())
	defer cancel()
	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = p.workspaceDir
	cmd.Stdin = bytes.NewReader(input)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		log.Warnf("hook %s timed out after %s", h.Name, h.timeout())
		result.ExitCode = 124
		result.Stderr = "timeout"
		return result
	}
	result.Stdout = strings.TrimSpace(stdout.String())
	result.Stderr = strings.TrimSpace(stderr.String())
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = 1
			if result.Stderr == "" {
				result.Stderr = runErr.Error()
			}
		}
	}
	if result.ExitCode != 0 && !result.Blocking() {
		log.Warnf("hook %s exited with code %d: %s", h.Name, result.ExitCode, result.Stderr)
	}
	result.Output = parseOutput(result.Stdout)
	return result
}

// parseOutput decodes the hook's stdout. Stdout that is not a JSON object is
// kept as a bare system message rather than discarded.
func parseOutput(stdout string) *Output {
	if stdout == "" {
		return nil
	}
	var out Output
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		return &Output{SystemMessage: stdout}
	}
	return &out
}

// expandPlaceholders substitutes ${NAME} references for the exported hook
// environment. Unknown placeholders are left untouched for the shell.
func expandPlaceholders(command string, env map[string]string) string {
	for k, v := range env {
		command = strings.ReplaceAll(command, "${"+k+"}", v)
	}
	return command
}
