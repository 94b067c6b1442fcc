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
	"strings"

	"github.com/wangchen7722/eflycode-cli-sub001/tool"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/function"
)

// saveFileResponse represents the output from the save file operation.
type saveFileResponse struct {
	BaseDirectory string `json:"base_directory"`
	Path          string `json:"path"`
	Size          int    `json:"size"`
	Created       bool   `json:"created"`
	Message       string `json:"message"`
}

// saveFile writes contents to a file, creating parent directories as needed.
func (f *fileToolSet) saveFile(_ context.Context, args map[string]any) (string, error) {
	path := stringArg(args, "path")
	contents := stringArg(args, "contents")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	targetPath, err := f.resolvePath(path)
	if err != nil {
		return "", err
	}
	_, statErr := os.Stat(targetPath)
	created := os.IsNotExist(statErr)
	if err := os.MkdirAll(filepath.Dir(targetPath), f.createDirMode); err != nil {
		return "", fmt.Errorf("creating parent directories for '%s': %w", path, err)
	}
	if err := os.WriteFile(targetPath, []byte(contents), f.createFileMode); err != nil {
		return "", fmt.Errorf("writing file '%s': %w", path, err)
	}
	verb := "Updated"
	if created {
		verb = "Created"
	}
	return marshalResult(&saveFileResponse{
		BaseDirectory: f.baseDir,
		Path:          path,
		Size:          len(contents),
		Created:       created,
		Message:       fmt.Sprintf("%s %s (%d bytes)", verb, path, len(contents)),
	})
}

// replaceContentResponse represents the output from the replace content operation.
type replaceContentResponse struct {
	BaseDirectory string `json:"base_directory"`
	Path          string `json:"path"`
	Replacements  int    `json:"replacements"`
	Message       string `json:"message"`
}

// replaceContent replaces occurrences of old_string with new_string in a file.
func (f *fileToolSet) replaceContent(_ context.Context, args map[string]any) (string, error) {
	path := stringArg(args, "path")
	oldString := stringArg(args, "old_string")
	newString := stringArg(args, "new_string")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if oldString == "" {
		return "", fmt.Errorf("old_string cannot be empty")
	}
	one, err := f.readOne(path)
	if err != nil {
		return "", err
	}
	count := strings.Count(one.Contents, oldString)
	if count == 0 {
		return "", fmt.Errorf("old_string not found in '%s'", path)
	}
	targetPath, err := f.resolvePath(path)
	if err != nil {
		return "", err
	}
	updated := strings.ReplaceAll(one.Contents, oldString, newString)
	if err := os.WriteFile(targetPath, []byte(updated), f.createFileMode); err != nil {
		return "", fmt.Errorf("writing file '%s': %w", path, err)
	}
	return marshalResult(&replaceContentResponse{
		BaseDirectory: f.baseDir,
		Path:          path,
		Replacements:  count,
		Message:       fmt.Sprintf("Replaced %d occurrences in %s", count, path),
	})
}

// saveFileTool returns a callable tool for writing a file.
func (f *fileToolSet) saveFileTool() tool.CallableTool {
	return function.New(
		"save_file",
		f.saveFile,
		function.WithPermission(tool.PermissionEdit),
		function.WithDescription("Writes the given contents to a file, creating it and any missing "+
			"parent directories if necessary, or overwriting it if it already exists. "+
			"The 'path' parameter is relative to the base directory."),
		function.WithSchema(&tool.Schema{
			Type:     "object",
			Required: []string{"path", "contents"},
			Properties: map[string]*tool.Schema{
				"path": {
					Type:        "string",
					Description: "The relative path from the base directory to write.",
				},
				"contents": {
					Type:        "string",
					Description: "The full contents to write to the file.",
				},
			},
		}),
	)
}

// replaceContentTool returns a callable tool for in-place string replacement.
func (f *fileToolSet) replaceContentTool() tool.CallableTool {
	return function.New(
		"replace_content",
		f.replaceContent,
		function.WithPermission(tool.PermissionEdit),
		function.WithDescription("Replaces every occurrence of 'old_string' with 'new_string' in a "+
			"file and reports how many replacements were made. Fails when 'old_string' does not "+
			"appear in the file. The 'path' parameter is relative to the base directory."),
		function.WithSchema(&tool.Schema{
			Type:     "object",
			Required: []string{"path", "old_string", "new_string"},
			Properties: map[string]*tool.Schema{
				"path": {
					Type:        "string",
					Description: "The relative path from the base directory to edit.",
				},
				"old_string": {
					Type:        "string",
					Description: "The exact text to replace.",
				},
				"new_string": {
					Type:        "string",
					Description: "The replacement text.",
				},
			},
		}),
	)
}
