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
	"path/filepath"

	"github.com/wangchen7722/eflycode-cli-sub001/tool"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/function"
)

// moveFileResponse represents the output from the move file operation.
type moveFileResponse struct {
	BaseDirectory string `json:"base_directory"`
	Source        string `json:"source"`
	Destination   string `json:"destination"`
	Message       string `json:"message"`
}

// moveFile renames a file or directory within the base directory.
func (f *fileToolSet) moveFile(_ context.Context, args map[string]any) (string, error) {
	source := stringArg(args, "source")
	destination := stringArg(args, "destination")
	if source == "" {
		return "", fmt.Errorf("source cannot be empty")
	}
	if destination == "" {
		return "", fmt.Errorf("destination cannot be empty")
	}
	sourcePath, err := f.resolvePath(source)
	if err != nil {
		return "", err
	}
	destPath, err := f.resolvePath(destination)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return "", fmt.Errorf("accessing source '%s': %w", source, err)
	}
	if _, err := os.Stat(destPath); err == nil {
		return "", fmt.Errorf("destination '%s' already exists", destination)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), f.createDirMode); err != nil {
		return "", fmt.Errorf("creating parent directories for '%s': %w", destination, err)
	}
	if err := os.Rename(sourcePath, destPath); err != nil {
		return "", fmt.Errorf("moving '%s' to '%s': %w", source, destination, err)
	}
	return marshalResult(&moveFileResponse{
		BaseDirectory: f.baseDir,
		Source:        source,
		Destination:   destination,
		Message:       fmt.Sprintf("Moved %s to %s", source, destination),
	})
}

// moveFileTool returns a callable tool for moving or renaming entries.
func (f *fileToolSet) moveFileTool() tool.CallableTool {
	return function.New(
		"move_file",
		f.moveFile,
		function.WithPermission(tool.PermissionEdit),
		function.WithDescription("Moves or renames a file or directory inside the base directory. "+
			"Fails when the destination already exists. Missing parent directories of the "+
			"destination are created. Both parameters are relative to the base directory."),
		function.WithSchema(&tool.Schema{
			Type:     "object",
			Required: []string{"source", "destination"},
			Properties: map[string]*tool.Schema{
				"source": {
					Type:        "string",
					Description: "The relative path to move from.",
				},
				"destination": {
					Type:        "string",
					Description: "The relative path to move to.",
				},
			},
		}),
	)
}
