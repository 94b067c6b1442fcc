//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangchen7722/eflycode-cli-sub001/internal/ignore"
	"github.com/wangchen7722/eflycode-cli-sub001/tool"
)

// toolsByName builds the toolset over a fresh workspace and indexes it.
func toolsByName(t *testing.T, opts ...Option) (string, map[string]tool.CallableTool) {
	t.Helper()
	dir := t.TempDir()
	tools := NewToolSet(append([]Option{WithBaseDir(dir)}, opts...)...)
	byName := make(map[string]tool.CallableTool, len(tools))
	for _, ct := range tools {
		byName[ct.Declaration().Name] = ct
	}
	return dir, byName
}

func mustCall(t *testing.T, ct tool.CallableTool, args map[string]any) map[string]any {
	t.Helper()
	out, err := ct.Call(context.Background(), args)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	return decoded
}

func seed(t *testing.T, dir, rel, contents string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestToolSetCatalog(t *testing.T) {
	_, tools := toolsByName(t)
	for _, name := range []string{
		"list_file", "read_file", "read_multiple_files", "search_file",
		"search_content", "directory_tree", "save_file", "replace_content",
		"delete_file", "move_file",
	} {
		_, ok := tools[name]
		assert.True(t, ok, "missing tool %s", name)
	}

	_, disabled := toolsByName(t, WithSaveFileEnabled(false), WithDeleteFileEnabled(false), WithMoveFileEnabled(false))
	for _, name := range []string{"save_file", "replace_content", "delete_file", "move_file"} {
		_, ok := disabled[name]
		assert.False(t, ok, "tool %s should be disabled", name)
	}
}

func TestListFile(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "a.txt", "x")
	seed(t, dir, "sub/b.txt", "y")

	rsp := mustCall(t, tools["list_file"], map[string]any{"path": ""})
	assert.ElementsMatch(t, []any{"a.txt"}, rsp["files"])
	assert.ElementsMatch(t, []any{"sub"}, rsp["folders"])
}

func TestListFileRejectsFiles(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "a.txt", "x")
	_, err := tools["list_file"].Call(context.Background(), map[string]any{"path": "a.txt"})
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "hello.txt", "hello world")

	rsp := mustCall(t, tools["read_file"], map[string]any{"path": "hello.txt"})
	assert.Equal(t, "hello world", rsp["contents"])
	assert.Equal(t, float64(11), rsp["size"])
}

func TestReadFileSizeLimit(t *testing.T) {
	dir, tools := toolsByName(t, WithMaxFileSize(4))
	seed(t, dir, "big.txt", "too large")
	_, err := tools["read_file"].Call(context.Background(), map[string]any{"path": "big.txt"})
	assert.Error(t, err)
}

func TestReadMultipleFilesCollectsErrors(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "ok.txt", "fine")

	rsp := mustCall(t, tools["read_multiple_files"], map[string]any{
		"paths": []any{"ok.txt", "missing.txt"},
	})
	files := rsp["files"].([]any)
	require.Len(t, files, 1)
	errs := rsp["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "missing.txt")
}

func TestPathEscapesRejected(t *testing.T) {
	_, tools := toolsByName(t)
	for _, path := range []string{"../outside.txt", "/etc/passwd"} {
		_, err := tools["read_file"].Call(context.Background(), map[string]any{"path": path})
		assert.Error(t, err, "path %s must be rejected", path)
	}
}

func TestSearchFileGlob(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "main.go", "package main")
	seed(t, dir, "pkg/util.go", "package pkg")
	seed(t, dir, "README.md", "docs")

	rsp := mustCall(t, tools["search_file"], map[string]any{"pattern": "**/*.go"})
	assert.ElementsMatch(t, []any{"main.go", filepath.Join("pkg", "util.go")}, rsp["files"])
}

func TestSearchFileCaseInsensitiveByDefault(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "README.md", "docs")

	rsp := mustCall(t, tools["search_file"], map[string]any{"pattern": "readme*"})
	assert.ElementsMatch(t, []any{"README.md"}, rsp["files"])

	rsp = mustCall(t, tools["search_file"], map[string]any{"pattern": "readme*", "case_sensitive": true})
	assert.Empty(t, rsp["files"])
}

func TestSearchContent(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "a.go", "func main() {\n\tprintln(\"hi\")\n}\n")
	seed(t, dir, "b.go", "package other\n")

	rsp := mustCall(t, tools["search_content"], map[string]any{"pattern": `func \w+\(`})
	matches := rsp["matches"].([]any)
	require.Len(t, matches, 1)
	first := matches[0].(map[string]any)
	assert.Equal(t, "a.go", first["path"])
	assert.Equal(t, float64(1), first["line"])
}

func TestSaveFileCreatesParents(t *testing.T) {
	dir, tools := toolsByName(t)
	rsp := mustCall(t, tools["save_file"], map[string]any{
		"path":     "deep/nested/new.txt",
		"contents": "payload",
	})
	assert.Equal(t, true, rsp["created"])

	data, err := os.ReadFile(filepath.Join(dir, "deep/nested/new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	rsp = mustCall(t, tools["save_file"], map[string]any{
		"path":     "deep/nested/new.txt",
		"contents": "updated",
	})
	assert.Equal(t, false, rsp["created"])
}

func TestReplaceContent(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "code.go", "old old old")

	rsp := mustCall(t, tools["replace_content"], map[string]any{
		"path":       "code.go",
		"old_string": "old",
		"new_string": "new",
	})
	assert.Equal(t, float64(3), rsp["replacements"])

	data, err := os.ReadFile(filepath.Join(dir, "code.go"))
	require.NoError(t, err)
	assert.Equal(t, "new new new", string(data))
}

func TestReplaceContentMissingOldString(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "code.go", "something else")
	_, err := tools["replace_content"].Call(context.Background(), map[string]any{
		"path":       "code.go",
		"old_string": "absent",
		"new_string": "x",
	})
	assert.Error(t, err)
}

func TestDeleteFile(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "doomed.txt", "x")

	mustCall(t, tools["delete_file"], map[string]any{"path": "doomed.txt"})
	_, err := os.Stat(filepath.Join(dir, "doomed.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteFileRejectsDirectories(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "keep/inner.txt", "x")
	_, err := tools["delete_file"].Call(context.Background(), map[string]any{"path": "keep"})
	assert.Error(t, err)
}

func TestMoveFile(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "src.txt", "cargo")

	mustCall(t, tools["move_file"], map[string]any{
		"source":      "src.txt",
		"destination": "moved/dst.txt",
	})
	data, err := os.ReadFile(filepath.Join(dir, "moved/dst.txt"))
	require.NoError(t, err)
	assert.Equal(t, "cargo", string(data))
	_, err = os.Stat(filepath.Join(dir, "src.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestMoveFileRejectsExistingDestination(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "src.txt", "a")
	seed(t, dir, "dst.txt", "b")
	_, err := tools["move_file"].Call(context.Background(), map[string]any{
		"source":      "src.txt",
		"destination": "dst.txt",
	})
	assert.Error(t, err)
}

func TestDirectoryTree(t *testing.T) {
	dir, tools := toolsByName(t)
	seed(t, dir, "a.txt", "x")
	seed(t, dir, "sub/b.txt", "y")

	rsp := mustCall(t, tools["directory_tree"], map[string]any{})
	tree := rsp["tree"].(map[string]any)
	children := tree["children"].([]any)
	var names []string
	for _, c := range children {
		names = append(names, c.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{"a.txt", "sub"}, names)
}

func TestIgnoreFiltering(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "kept.txt", "x")
	seed(t, dir, "secret/hidden.txt", "y")
	seed(t, dir, "app.log", "z")

	matcher := ignore.NewMatcher([]string{"secret/", "*.log"})
	tools := NewToolSet(WithBaseDir(dir), WithIgnoreMatcher(matcher))
	byName := make(map[string]tool.CallableTool, len(tools))
	for _, ct := range tools {
		byName[ct.Declaration().Name] = ct
	}

	rsp := mustCall(t, byName["list_file"], map[string]any{"path": ""})
	assert.ElementsMatch(t, []any{"kept.txt"}, rsp["files"])
	assert.Empty(t, rsp["folders"])

	rsp = mustCall(t, byName["search_file"], map[string]any{"pattern": "**/*"})
	assert.ElementsMatch(t, []any{"kept.txt"}, rsp["files"])
}
