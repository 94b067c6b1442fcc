//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package ignore implements gitignore-style path filtering for tools that
// traverse the workspace. Patterns come from .eflycodeignore and .gitignore;
// later rules win, "!" negates, "**" is supported and a trailing "/" limits
// a rule to directories.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFilenames are the files consulted in the workspace root, in load
// order. Rules from later files override earlier ones.
var IgnoreFilenames = []string{".gitignore", ".eflycodeignore"}

type rule struct {
	pattern  string
	negate   bool
	dirOnly  bool
	anchored bool
}

// Matcher answers whether a workspace-relative path is ignored.
type Matcher struct {
	rules []rule
}

// Load reads the ignore files present under root. Missing files are fine;
// an empty matcher ignores nothing.
func Load(root string) (*Matcher, error) {
	m := &Matcher{}
	for _, name := range IgnoreFilenames {
		f, err := os.Open(filepath.Join(root, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			m.addLine(scanner.Text())
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewMatcher builds a matcher from raw pattern lines, mainly for tests.
func NewMatcher(lines []string) *Matcher {
	m := &Matcher{}
	for _, line := range lines {
		m.addLine(line)
	}
	return m
}

func (m *Matcher) addLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	r := rule{}
	if strings.HasPrefix(line, "!") {
		r.negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		r.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	// A leading slash anchors to the root; otherwise the pattern matches at
	// any depth, same as git.
	if strings.HasPrefix(line, "/") {
		r.anchored = true
		line = line[1:]
	}
	r.pattern = line
	m.rules = append(m.rules, r)
}

// Ignored reports whether the slash-separated relative path is excluded.
// isDir must reflect whether the path names a directory.
func (m *Matcher) Ignored(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		if matchRule(r, relPath) {
			ignored = !r.negate
		}
	}
	return ignored
}

// IgnoredOrUnder reports whether the path itself or any of its ancestors is
// an ignored directory, which is what directory walks need.
func (m *Matcher) IgnoredOrUnder(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	if m.Ignored(relPath, isDir) {
		return true
	}
	parts := strings.Split(relPath, "/")
	for i := 1; i < len(parts); i++ {
		if m.Ignored(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return false
}

func matchRule(r rule, relPath string) bool {
	// Anchored patterns match against the path from the root only.
	if r.anchored {
		ok, _ := doublestar.Match(r.pattern, relPath)
		return ok
	}
	// Bare names without a separator match at any depth.
	if !strings.Contains(r.pattern, "/") {
		if ok, _ := doublestar.Match(r.pattern, filepath.Base(relPath)); ok {
			return true
		}
		ok, _ := doublestar.Match("**/"+r.pattern, relPath)
		return ok
	}
	ok, _ := doublestar.Match(r.pattern, relPath)
	return ok
}
