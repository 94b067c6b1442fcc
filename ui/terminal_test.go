//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangchen7722/eflycode-cli-sub001/event"
	"github.com/wangchen7722/eflycode-cli-sub001/model"
)

func newTestTerminal(t *testing.T) (*event.Bus, *bytes.Buffer) {
	t.Helper()
	bus, err := event.NewBus()
	require.NoError(t, err)

	var out bytes.Buffer
	term := NewTerminal(bus, WithInput(strings.NewReader("")), WithOutput(&out))
	term.Start()
	return bus, &out
}

func response(content string) *model.Response {
	return &model.Response{
		Done:    true,
		Choices: []model.Choice{{Message: model.NewAssistantMessage(content)}},
	}
}

func TestTerminalRendersCompletedMessage(t *testing.T) {
	bus, out := newTestTerminal(t)

	// No deltas before the stop, the way non-stream turns arrive.
	bus.Emit(event.MessageStart, nil)
	bus.Emit(event.MessageStop, response("the full answer"))
	bus.Close(true, 2*time.Second)

	assert.Contains(t, out.String(), "the full answer")
}

func TestTerminalDoesNotRepeatStreamedContent(t *testing.T) {
	bus, out := newTestTerminal(t)

	bus.Emit(event.MessageStart, nil)
	bus.Emit(event.MessageDelta, map[string]any{"delta": "streamed answer"})
	bus.Emit(event.MessageStop, response("streamed answer"))
	bus.Close(true, 2*time.Second)

	assert.Equal(t, 1, strings.Count(out.String(), "streamed answer"))
}

func TestTerminalResetsPerMessage(t *testing.T) {
	bus, out := newTestTerminal(t)

	bus.Emit(event.MessageStart, nil)
	bus.Emit(event.MessageDelta, map[string]any{"delta": "first"})
	bus.Emit(event.MessageStop, response("first"))
	bus.Emit(event.MessageStart, nil)
	bus.Emit(event.MessageStop, response("second"))
	bus.Close(true, 2*time.Second)

	assert.Equal(t, 1, strings.Count(out.String(), "first"))
	assert.Contains(t, out.String(), "second", "a later non-stream message still renders")
}
