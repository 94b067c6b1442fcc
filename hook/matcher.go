//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package hook

import (
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

// matchTool reports whether a matcher accepts a tool name. The matcher is
// tried as an anchored regular expression first and as a glob second, so
// plain names and patterns like "file_*" both work. Empty and "*" accept
// every name.
func matchTool(matcher, toolName string) bool {
	if matcher == "" || matcher == "*" {
		return true
	}
	if re, err := regexp.Compile("^(?:" + matcher + ")$"); err == nil {
		if re.MatchString(toolName) {
			return true
		}
	}
	ok, err := doublestar.Match(matcher, toolName)
	return err == nil && ok
}
