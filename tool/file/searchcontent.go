//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package file

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/wangchen7722/eflycode-cli-sub001/tool"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/function"
)

// maxContentMatches caps how many matching lines one search returns.
const maxContentMatches = 200

// contentMatch is one matching line.
type contentMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// searchContentResponse represents the output from the search content operation.
type searchContentResponse struct {
	BaseDirectory string         `json:"base_directory"`
	Path          string         `json:"path"`
	Pattern       string         `json:"pattern"`
	Matches       []contentMatch `json:"matches"`
	Truncated     bool           `json:"truncated,omitempty"`
	Message       string         `json:"message"`
}

// searchContent greps file contents under a directory with a regular expression.
func (f *fileToolSet) searchContent(_ context.Context, args map[string]any) (string, error) {
	path := stringArg(args, "path")
	pattern := stringArg(args, "pattern")
	if pattern == "" {
		return "", fmt.Errorf("pattern cannot be empty")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern '%s': %w", pattern, err)
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

	rsp := &searchContentResponse{
		BaseDirectory: f.baseDir,
		Path:          path,
		Pattern:       pattern,
	}
	err = filepath.WalkDir(targetPath, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		baseRel, relErr := filepath.Rel(f.baseDir, p)
		if relErr != nil {
			return nil
		}
		if f.ignored(baseRel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > f.maxFileSize {
			return nil
		}
		f.grepFile(p, baseRel, re, rsp)
		if rsp.Truncated {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("searching '%s': %w", path, err)
	}
	rsp.Message = fmt.Sprintf("Found %d matching lines for pattern '%s'", len(rsp.Matches), pattern)
	if rsp.Truncated {
		rsp.Message += fmt.Sprintf(" (truncated at %d)", maxContentMatches)
	}
	return marshalResult(rsp)
}

func (f *fileToolSet) grepFile(fullPath, relPath string, re *regexp.Regexp, rsp *searchContentResponse) {
	file, err := os.Open(fullPath)
	if err != nil {
		return
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		rsp.Matches = append(rsp.Matches, contentMatch{
			Path: filepath.ToSlash(relPath),
			Line: lineNo,
			Text: line,
		})
		if len(rsp.Matches) >= maxContentMatches {
			rsp.Truncated = true
			return
		}
	}
}

// searchContentTool returns a callable tool for grepping file contents.
func (f *fileToolSet) searchContentTool() tool.CallableTool {
	return function.New(
		"search_content",
		f.searchContent,
		function.WithPermission(tool.PermissionRead),
		function.WithDescription("Searches file contents under a directory with a Go regular "+
			"expression and returns matching lines with their file path and line number. "+
			"The 'path' parameter is relative to the base directory; empty searches the whole base "+
			"directory. Binary-sized files and ignored paths are skipped; results are capped."),
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
					Description: "The regular expression to search for.",
				},
			},
		}),
	)
}
