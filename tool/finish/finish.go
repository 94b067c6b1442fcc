//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package finish declares the task completion tool. Invoking it signals the
// run loop to end the turn; the tool body itself never runs as part of a
// normal turn.
package finish

import (
	"context"

	"github.com/wangchen7722/eflycode-cli-sub001/tool"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/function"
)

// ToolName is the name the run loop matches to terminate a task.
const ToolName = "finish_task"

// NewTool returns the finish_task tool declaration. The handler is a no-op
// because the run loop intercepts the call before dispatch.
func NewTool() tool.CallableTool {
	return function.New(
		ToolName,
		func(_ context.Context, args map[string]any) (string, error) {
			content, _ := args["content"].(string)
			return content, nil
		},
		function.WithPermission(tool.PermissionRead),
		function.WithDescription("Marks the task as finished. Call this tool exactly once, as the "+
			"last action of the task, with the complete final answer for the user in the 'content' "+
			"parameter. Do not call any other tool after this one."),
		function.WithSchema(&tool.Schema{
			Type:     "object",
			Required: []string{"content"},
			Properties: map[string]*tool.Schema{
				"content": {
					Type:        "string",
					Description: "The final answer to present to the user.",
				},
			},
		}),
	)
}
