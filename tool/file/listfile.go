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

// listFileResponse represents the output from the list file operation.
type listFileResponse struct {
	BaseDirectory string   `json:"base_directory"`
	Path          string   `json:"path"`
	Files         []string `json:"files"`
	Folders       []string `json:"folders"`
	Message       string   `json:"message"`
}

// listFile performs the list file operation.
func (f *fileToolSet) listFile(_ context.Context, args map[string]any) (string, error) {
	path := stringArg(args, "path")
	rsp := &listFileResponse{
		BaseDirectory: f.baseDir,
		Path:          path,
	}
	targetPath, err := f.resolvePath(path)
	if err != nil {
		return "", err
	}
	stat, err := os.Stat(targetPath)
	if err != nil {
		return "", fmt.Errorf("accessing path '%s': %w", path, err)
	}
	if !stat.IsDir() {
		return "", fmt.Errorf("path '%s' is a file, not a directory", path)
	}
	entries, err := os.ReadDir(targetPath)
	if err != nil {
		return "", fmt.Errorf("reading directory '%s': %w", path, err)
	}
	for _, entry := range entries {
		rel := filepath.Join(path, entry.Name())
		if f.ignored(rel, entry.IsDir()) {
			continue
		}
		if entry.IsDir() {
			rsp.Folders = append(rsp.Folders, entry.Name())
		} else {
			rsp.Files = append(rsp.Files, entry.Name())
		}
	}
	if path == "" {
		rsp.Message = fmt.Sprintf("Found %d files and %d folders in base directory", len(rsp.Files), len(rsp.Folders))
	} else {
		rsp.Message = fmt.Sprintf("Found %d files and %d folders in %s", len(rsp.Files), len(rsp.Folders), path)
	}
	return marshalResult(rsp)
}

// listFileTool returns a callable tool for listing directory contents.
func (f *fileToolSet) listFileTool() tool.CallableTool {
	return function.New(
		"list_file",
		f.listFile,
		function.WithPermission(tool.PermissionRead),
		function.WithDescription("Lists the files and folders directly inside a directory. "+
			"The 'path' parameter is relative to the base directory; empty lists the base directory itself. "+
			"Entries excluded by the workspace ignore files are omitted."),
		function.WithSchema(&tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"path": {
					Type:        "string",
					Description: "The relative path from the base directory to list.",
				},
			},
		}),
	)
}
