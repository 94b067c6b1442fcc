//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package file provides file operation tools for the coding agent. The
// toolset covers listing, reading, glob search, content search, writing,
// replacing, deleting, moving and directory trees, all confined to a base
// directory and filtered through the workspace ignore files.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wangchen7722/eflycode-cli-sub001/internal/ignore"
	"github.com/wangchen7722/eflycode-cli-sub001/tool"
)

const (
	// defaultBaseDir is the default base directory for file operations.
	defaultBaseDir = "."
	// defaultCreateDirMode is the default permission mode for directory (0755: rwxr-xr-x).
	defaultCreateDirMode = os.FileMode(0755)
	// defaultCreateFileMode is the default permission mode for file (0644: rw-r--r--).
	defaultCreateFileMode = os.FileMode(0644)
	// defaultMaxFileSize is the default maximum file size to read, which is 1MB.
	defaultMaxFileSize = 1024 * 1024
)

// Option is a functional option for configuring the file tool set.
type Option func(*fileToolSet)

// WithBaseDir sets the base directory for file operations, default is the current directory.
func WithBaseDir(baseDir string) Option {
	return func(f *fileToolSet) {
		f.baseDir = baseDir
	}
}

// WithIgnoreMatcher installs the workspace ignore matcher used by listing,
// search and tree operations.
func WithIgnoreMatcher(m *ignore.Matcher) Option {
	return func(f *fileToolSet) {
		f.ignores = m
	}
}

// WithSaveFileEnabled enables or disables the save file functionality, default is true.
func WithSaveFileEnabled(e bool) Option {
	return func(f *fileToolSet) {
		f.saveFileEnabled = e
	}
}

// WithDeleteFileEnabled enables or disables the delete file functionality, default is true.
func WithDeleteFileEnabled(e bool) Option {
	return func(f *fileToolSet) {
		f.deleteFileEnabled = e
	}
}

// WithMoveFileEnabled enables or disables the move file functionality, default is true.
func WithMoveFileEnabled(e bool) Option {
	return func(f *fileToolSet) {
		f.moveFileEnabled = e
	}
}

// WithMaxFileSize sets the maximum file size to read, default is 1MB.
func WithMaxFileSize(s int64) Option {
	return func(f *fileToolSet) {
		f.maxFileSize = s
	}
}

// fileToolSet bundles the file tools sharing a base directory.
type fileToolSet struct {
	baseDir           string
	ignores           *ignore.Matcher
	saveFileEnabled   bool
	deleteFileEnabled bool
	moveFileEnabled   bool
	createDirMode     os.FileMode
	createFileMode    os.FileMode
	maxFileSize       int64
}

// NewToolSet returns the enabled file tools.
func NewToolSet(opts ...Option) []tool.CallableTool {
	f := &fileToolSet{
		baseDir:           defaultBaseDir,
		saveFileEnabled:   true,
		deleteFileEnabled: true,
		moveFileEnabled:   true,
		createDirMode:     defaultCreateDirMode,
		createFileMode:    defaultCreateFileMode,
		maxFileSize:       defaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if abs, err := filepath.Abs(f.baseDir); err == nil {
		f.baseDir = abs
	}

	tools := []tool.CallableTool{
		f.listFileTool(),
		f.readFileTool(),
		f.readMultipleFilesTool(),
		f.searchFileTool(),
		f.searchContentTool(),
		f.directoryTreeTool(),
	}
	if f.saveFileEnabled {
		tools = append(tools, f.saveFileTool(), f.replaceContentTool())
	}
	if f.deleteFileEnabled {
		tools = append(tools, f.deleteFileTool())
	}
	if f.moveFileEnabled {
		tools = append(tools, f.moveFileTool())
	}
	return tools
}

// resolvePath joins relPath onto the base directory and rejects escapes.
func (f *fileToolSet) resolvePath(relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return "", fmt.Errorf("path '%s' must be relative to the base directory", relPath)
	}
	target := filepath.Clean(filepath.Join(f.baseDir, relPath))
	if target != f.baseDir && !strings.HasPrefix(target, f.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path '%s' escapes the base directory", relPath)
	}
	return target, nil
}

// ignored reports whether the base-relative path is excluded by the
// workspace ignore files.
func (f *fileToolSet) ignored(relPath string, isDir bool) bool {
	if f.ignores == nil || relPath == "" || relPath == "." {
		return false
	}
	return f.ignores.IgnoredOrUnder(relPath, isDir)
}

// marshalResult renders a response struct as the opaque tool result string.
func marshalResult(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

// argument accessors: arguments arrive coerced against the schema, so the
// type assertions here only guard against absent optional keys.

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]any, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
