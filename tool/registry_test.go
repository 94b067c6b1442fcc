//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package tool_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangchen7722/eflycode-cli-sub001/tool"
	"github.com/wangchen7722/eflycode-cli-sub001/tool/function"
)

func echoTool() tool.CallableTool {
	return function.New("echo", func(_ context.Context, args map[string]any) (string, error) {
		return fmt.Sprintf("%v", args["text"]), nil
	}, function.WithSchema(&tool.Schema{
		Type:     "object",
		Required: []string{"text"},
		Properties: map[string]*tool.Schema{
			"text": {Type: "string"},
		},
	}))
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := tool.NewRegistry()
	require.NoError(t, r.Register(echoTool()))
	got, ok := r.Get("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", got.Declaration().Name)
	assert.Equal(t, []string{"echo"}, r.Names())

	err := r.Register(echoTool())
	assert.Error(t, err, "duplicate registration must fail")
}

func TestRegistryDispatch(t *testing.T) {
	r := tool.NewRegistry()
	r.MustRegister(echoTool())

	out, err := r.Dispatch(context.Background(), "echo", []byte(`{"text":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestRegistryDispatchEmptyArguments(t *testing.T) {
	noArgs := function.New("ping", func(context.Context, map[string]any) (string, error) {
		return "pong", nil
	})
	r := tool.NewRegistry()
	r.MustRegister(noArgs)

	for _, raw := range [][]byte{nil, []byte(""), []byte("   ")} {
		out, err := r.Dispatch(context.Background(), "ping", raw)
		require.NoError(t, err)
		assert.Equal(t, "pong", out)
	}
}

func TestRegistryDispatchBadJSON(t *testing.T) {
	r := tool.NewRegistry()
	r.MustRegister(echoTool())

	_, err := r.Dispatch(context.Background(), "echo", []byte(`{not json`))
	var pe *tool.ParameterError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "echo", pe.Tool)
}

func TestRegistryDispatchMissingRequired(t *testing.T) {
	r := tool.NewRegistry()
	r.MustRegister(echoTool())

	_, err := r.Dispatch(context.Background(), "echo", []byte(`{}`))
	var pe *tool.ParameterError
	require.ErrorAs(t, err, &pe)
}

func TestRegistryDispatchUnknownTool(t *testing.T) {
	r := tool.NewRegistry()
	_, err := r.Dispatch(context.Background(), "nope", nil)
	var ee *tool.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "nope", ee.Tool)
}

func TestRegistryDispatchWrapsToolFailure(t *testing.T) {
	boom := errors.New("boom")
	failing := function.New("fail", func(context.Context, map[string]any) (string, error) {
		return "", boom
	})
	r := tool.NewRegistry()
	r.MustRegister(failing)

	_, err := r.Dispatch(context.Background(), "fail", nil)
	var ee *tool.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.ErrorIs(t, err, boom)
}

func TestRegistryTools(t *testing.T) {
	r := tool.NewRegistry()
	r.MustRegister(echoTool())
	tools := r.Tools()
	require.Len(t, tools, 1)
	_, ok := tools["echo"]
	assert.True(t, ok)
}
