//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package file

import (
	"context"
	"fmt"
	"os"

	"github.com/wangchen7722/eflycode-cli-sub001/tool"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/function"
)

// deleteFileResponse represents the output from the delete file operation.
type deleteFileResponse struct {
	BaseDirectory string `json:"base_directory"`
	Path          string `json:"path"`
	Message       string `json:"message"`
}

// deleteFile removes a single file. Directories are rejected so a model
// cannot wipe a subtree in one call.
func (f *fileToolSet) deleteFile(_ context.Context, args map[string]any) (string, error) {
	path := stringArg(args, "path")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	targetPath, err := f.resolvePath(path)
	if err != nil {
		return "", err
	}
	stat, err := os.Stat(targetPath)
	if err != nil {
		return "", fmt.Errorf("accessing file '%s': %w", path, err)
	}
	if stat.IsDir() {
		return "", fmt.Errorf("path '%s' is a directory, only files can be deleted", path)
	}
	if err := os.Remove(targetPath); err != nil {
		return "", fmt.Errorf("deleting file '%s': %w", path, err)
	}
	return marshalResult(&deleteFileResponse{
		BaseDirectory: f.baseDir,
		Path:          path,
		Message:       fmt.Sprintf("Deleted %s", path),
	})
}

// deleteFileTool returns a callable tool for deleting a file.
func (f *fileToolSet) deleteFileTool() tool.CallableTool {
	return function.New(
		"delete_file",
		f.deleteFile,
		function.WithPermission(tool.PermissionDelete),
		function.WithDescription("Deletes a single file. Directories cannot be deleted with this tool. "+
			"The 'path' parameter is relative to the base directory."),
		function.WithSchema(&tool.Schema{
			Type:     "object",
			Required: []string{"path"},
			Properties: map[string]*tool.Schema{
				"path": {
					Type:        "string",
					Description: "The relative path from the base directory to delete.",
				},
			},
		}),
	)
}
