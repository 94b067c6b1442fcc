//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package finish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclaration(t *testing.T) {
	ft := NewTool()
	decl := ft.Declaration()
	assert.Equal(t, ToolName, decl.Name)
	require.NotNil(t, decl.InputSchema)
	assert.Equal(t, []string{"content"}, decl.InputSchema.Required)
}

func TestCallEchoesContent(t *testing.T) {
	ft := NewTool()
	out, err := ft.Call(context.Background(), map[string]any{"content": "final answer"})
	require.NoError(t, err)
	assert.Equal(t, "final answer", out)
}
