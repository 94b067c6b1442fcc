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

// readFileResponse represents the output from the read file operation.
type readFileResponse struct {
	BaseDirectory string `json:"base_directory"`
	Path          string `json:"path"`
	Contents      string `json:"contents"`
	Size          int64  `json:"size"`
	Message       string `json:"message"`
}

// readOne reads a single file into a response struct.
func (f *fileToolSet) readOne(path string) (*readFileResponse, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}
	targetPath, err := f.resolvePath(path)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(targetPath)
	if err != nil {
		return nil, fmt.Errorf("accessing file '%s': %w", path, err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("path '%s' is a directory, not a file", path)
	}
	if stat.Size() > f.maxFileSize {
		return nil, fmt.Errorf("file '%s' is %d bytes, larger than the %d byte limit", path, stat.Size(), f.maxFileSize)
	}
	contents, err := os.ReadFile(targetPath)
	if err != nil {
		return nil, fmt.Errorf("reading file '%s': %w", path, err)
	}
	return &readFileResponse{
		BaseDirectory: f.baseDir,
		Path:          path,
		Contents:      string(contents),
		Size:          stat.Size(),
		Message:       fmt.Sprintf("Read %d bytes from %s", stat.Size(), path),
	}, nil
}

// readFile performs the read file operation.
func (f *fileToolSet) readFile(_ context.Context, args map[string]any) (string, error) {
	rsp, err := f.readOne(stringArg(args, "path"))
	if err != nil {
		return "", err
	}
	return marshalResult(rsp)
}

// readMultipleFilesResponse represents the output from the read multiple files operation.
type readMultipleFilesResponse struct {
	BaseDirectory string             `json:"base_directory"`
	Files         []readFileResponse `json:"files"`
	Errors        []string           `json:"errors,omitempty"`
	Message       string             `json:"message"`
}

// readMultipleFiles reads several files in one call; per-file failures are
// collected rather than failing the whole batch.
func (f *fileToolSet) readMultipleFiles(_ context.Context, args map[string]any) (string, error) {
	paths := stringSliceArg(args, "paths")
	if len(paths) == 0 {
		return "", fmt.Errorf("paths cannot be empty")
	}
	rsp := &readMultipleFilesResponse{BaseDirectory: f.baseDir}
	for _, p := range paths {
		one, err := f.readOne(p)
		if err != nil {
			rsp.Errors = append(rsp.Errors, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		rsp.Files = append(rsp.Files, *one)
	}
	rsp.Message = fmt.Sprintf("Read %d of %d files", len(rsp.Files), len(paths))
	return marshalResult(rsp)
}

// readFileTool returns a callable tool for reading a single file.
func (f *fileToolSet) readFileTool() tool.CallableTool {
	return function.New(
		"read_file",
		f.readFile,
		function.WithPermission(tool.PermissionRead),
		function.WithDescription("Reads the contents of a single file. The 'path' parameter is "+
			"relative to the base directory. Files larger than the configured size limit are rejected."),
		function.WithSchema(&tool.Schema{
			Type:     "object",
			Required: []string{"path"},
			Properties: map[string]*tool.Schema{
				"path": {
					Type:        "string",
					Description: "The relative path from the base directory to read.",
				},
			},
		}),
	)
}

// readMultipleFilesTool returns a callable tool for reading several files.
func (f *fileToolSet) readMultipleFilesTool() tool.CallableTool {
	return function.New(
		"read_multiple_files",
		f.readMultipleFiles,
		function.WithPermission(tool.PermissionRead),
		function.WithDescription("Reads the contents of multiple files in one call. The 'paths' "+
			"parameter is a list of paths relative to the base directory. Unreadable files are "+
			"reported individually without failing the batch."),
		function.WithSchema(&tool.Schema{
			Type:     "object",
			Required: []string{"paths"},
			Properties: map[string]*tool.Schema{
				"paths": {
					Type:        "array",
					Description: "The relative paths from the base directory to read.",
					Items:       &tool.Schema{Type: "string"},
				},
			},
		}),
	)
}
