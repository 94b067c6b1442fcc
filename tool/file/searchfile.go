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
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wangchen7722/eflycode-cli-sub001/tool"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/function"
)

// searchFileResponse represents the output from the search file operation.
type searchFileResponse struct {
	BaseDirectory string   `json:"base_directory"`
	Path          string   `json:"path"`
	Pattern       string   `json:"pattern"`
	Files         []string `json:"files"`
	Folders       []string `json:"folders"`
	Message       string   `json:"message"`
}

// searchFile performs the search file operation.
func (f *fileToolSet) searchFile(_ context.Context, args map[string]any) (string, error) {
	path := stringArg(args, "path")
	pattern := stringArg(args, "pattern")
	caseSensitive := boolArg(args, "case_sensitive")
	if pattern == "" {
		return "", fmt.Errorf("pattern cannot be empty")
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
		return "", fmt.Errorf("target path '%s' is a file, not a directory", path)
	}

	rsp := &searchFileResponse{
		BaseDirectory: f.baseDir,
		Path:          path,
		Pattern:       pattern,
	}
	matchPattern := pattern
	if !caseSensitive {
		matchPattern = strings.ToLower(matchPattern)
	}
	err = filepath.WalkDir(targetPath, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Skip unreadable entries rather than aborting the walk.
			return nil
		}
		if p == targetPath {
			return nil
		}
		rel, err := filepath.Rel(targetPath, p)
		if err != nil {
			return nil
		}
		baseRel, err := filepath.Rel(f.baseDir, p)
		if err != nil {
			return nil
		}
		if f.ignored(baseRel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		candidate := filepath.ToSlash(rel)
		if !caseSensitive {
			candidate = strings.ToLower(candidate)
		}
		ok, _ := doublestar.Match(matchPattern, candidate)
		if !ok {
			return nil
		}
		relative := filepath.Join(path, rel)
		if d.IsDir() {
			rsp.Folders = append(rsp.Folders, relative)
		} else {
			rsp.Files = append(rsp.Files, relative)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("searching '%s': %w", path, err)
	}
	rsp.Message = fmt.Sprintf("Found %d files and %d folders matching pattern '%s' in %s",
		len(rsp.Files), len(rsp.Folders), pattern, targetPath)
	return marshalResult(rsp)
}

// searchFileTool returns a callable tool for searching files by glob pattern.
func (f *fileToolSet) searchFileTool() tool.CallableTool {
	return function.New(
		"search_file",
		f.searchFile,
		function.WithPermission(tool.PermissionRead),
		function.WithDescription("Searches for files and folders matching the given glob pattern "+
			"in a specified directory, and returns separate lists for files and folders. "+
			"The 'path' parameter is relative to the base directory; empty searches the base directory. "+
			"Supports both recursive ('**') and non-recursive ('*') glob patterns. "+
			"The 'case_sensitive' parameter controls whether pattern matching is case sensitive, false by default. "+
			"Pattern examples: '*.txt', 'file*.csv', 'subdir/*.go', '**/*.go', '*data*'."),
		function.WithSchema(&tool.Schema{
			Type:     "object",
			Required: []string{"pattern"},
			Properties: map[string]*tool.Schema{
				"path": {
					Type:        "string",
					Description: "The relative path from the base directory to search in.",
				},
				"pattern": {
					Type:        "string",
					Description: "The glob pattern to search for.",
				},
				"case_sensitive": {
					Type:        "boolean",
					Description: "Whether pattern matching should be case sensitive.",
				},
			},
		}),
	)
}
