//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package prompt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDefaultRole(t *testing.T) {
	lib, err := NewLibrary()
	require.NoError(t, err)

	out, err := lib.Render(DefaultRole, "/work/project")
	require.NoError(t, err)
	assert.Contains(t, out, "/work/project")
	assert.Contains(t, out, time.Now().Format("2006-01-02"))
	assert.Contains(t, out, "finish_task")
}

func TestRenderUnknownRoleFallsBack(t *testing.T) {
	lib, err := NewLibrary()
	require.NoError(t, err)

	fallback, err := lib.Render("no-such-role", "/w")
	require.NoError(t, err)
	direct, err := lib.Render(DefaultRole, "/w")
	require.NoError(t, err)
	assert.Equal(t, direct, fallback)
}

func TestRenderEmptyRoleUsesDefault(t *testing.T) {
	lib, err := NewLibrary()
	require.NoError(t, err)
	out, err := lib.Render("", "/w")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
