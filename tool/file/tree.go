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
	"sort"

	"github.com/wangchen7722/eflycode-cli-sub001/tool"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/function"
)

// defaultTreeDepth bounds directory_tree recursion when the caller does not
// pass max_depth.
const defaultTreeDepth = 5

// treeNode is one entry in the rendered directory tree.
type treeNode struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Children []*treeNode `json:"children,omitempty"`
}

// directoryTreeResponse represents the output from the directory tree operation.
type directoryTreeResponse struct {
	BaseDirectory string    `json:"base_directory"`
	Path          string    `json:"path"`
	MaxDepth      int       `json:"max_depth"`
	Tree          *treeNode `json:"tree"`
	Message       string    `json:"message"`
}

// directoryTree renders the directory hierarchy rooted at path.
func (f *fileToolSet) directoryTree(_ context.Context, args map[string]any) (string, error) {
	path := stringArg(args, "path")
	maxDepth := defaultTreeDepth
	if v, ok := args["max_depth"].(float64); ok && int(v) > 0 {
		maxDepth = int(v)
	} else if v, ok := args["max_depth"].(int); ok && v > 0 {
		maxDepth = v
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
	name := path
	if name == "" {
		name = filepath.Base(f.baseDir)
	}
	root := &treeNode{Name: name, Type: "directory"}
	count := f.buildTree(targetPath, path, root, maxDepth)
	return marshalResult(&directoryTreeResponse{
		BaseDirectory: f.baseDir,
		Path:          path,
		MaxDepth:      maxDepth,
		Tree:          root,
		Message:       fmt.Sprintf("Rendered %d entries up to depth %d", count, maxDepth),
	})
}

// buildTree fills node with the children of dir, recursing up to depth levels.
// It returns the number of entries added.
func (f *fileToolSet) buildTree(dir, rel string, node *treeNode, depth int) int {
	if depth <= 0 {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	count := 0
	for _, entry := range entries {
		childRel := filepath.Join(rel, entry.Name())
		if f.ignored(childRel, entry.IsDir()) {
			continue
		}
		child := &treeNode{Name: entry.Name(), Type: "file"}
		count++
		if entry.IsDir() {
			child.Type = "directory"
			count += f.buildTree(filepath.Join(dir, entry.Name()), childRel, child, depth-1)
		}
		node.Children = append(node.Children, child)
	}
	return count
}

// directoryTreeTool returns a callable tool for rendering directory trees.
func (f *fileToolSet) directoryTreeTool() tool.CallableTool {
	return function.New(
		"directory_tree",
		f.directoryTree,
		function.WithPermission(tool.PermissionRead),
		function.WithDescription("Renders the directory hierarchy under a path as a nested tree of "+
			"files and folders, honouring the workspace ignore files. The 'path' parameter is "+
			"relative to the base directory; empty renders the base directory. The optional "+
			"'max_depth' parameter bounds recursion, default 5."),
		function.WithSchema(&tool.Schema{
			Type: "object",
			Properties: map[string]*tool.Schema{
				"path": {
					Type:        "string",
					Description: "The relative path from the base directory to render.",
				},
				"max_depth": {
					Type:        "integer",
					Description: "The maximum depth to recurse into, default 5.",
				},
			},
		}),
	)
}
