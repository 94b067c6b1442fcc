//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package ui renders agent events on a terminal and feeds user input back
// onto the bus. It publishes exactly two event kinds:
// ui.user_input_received and ui.stop_app.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/wangchen7722/eflycode-cli-sub001/event"
	"github.com/wangchen7722/eflycode-cli-sub001/model"
)

// Terminal is the interactive console adapter.
type Terminal struct {
	bus *event.Bus
	in  io.Reader
	out io.Writer

	// streamed tracks whether the current message arrived as deltas. All
	// agent events are delivered on the bus dispatcher goroutine, so no
	// locking is needed.
	streamed bool

	subs []*event.Subscription
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithInput overrides stdin, used by tests.
func WithInput(r io.Reader) Option {
	return func(t *Terminal) {
		t.in = r
	}
}

// WithOutput overrides stdout, used by tests.
func WithOutput(w io.Writer) Option {
	return func(t *Terminal) {
		t.out = w
	}
}

// NewTerminal builds the adapter over the bus.
func NewTerminal(bus *event.Bus, opts ...Option) *Terminal {
	t := &Terminal{
		bus: bus,
		in:  os.Stdin,
		out: os.Stdout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start subscribes to the agent events and launches the input reader and
// the signal handler.
func (t *Terminal) Start() {
	t.subscribe(event.TaskStart, func(e *event.Event) {
		fmt.Fprintln(t.out)
	})
	t.subscribe(event.MessageStart, func(e *event.Event) {
		t.streamed = false
	})
	t.subscribe(event.MessageDelta, func(e *event.Event) {
		if data, ok := e.Data.(map[string]any); ok {
			if delta, ok := data["delta"].(string); ok {
				t.streamed = true
				fmt.Fprint(t.out, delta)
			}
		}
	})
	t.subscribe(event.MessageStop, func(e *event.Event) {
		// Non-stream turns publish no deltas; render the completed message.
		if rsp, ok := e.Data.(*model.Response); ok && !t.streamed {
			fmt.Fprint(t.out, rsp.FirstMessage().Content)
		}
		fmt.Fprintln(t.out)
	})
	t.subscribe(event.ToolCallStart, func(e *event.Event) {
		if data, ok := e.Data.(map[string]any); ok {
			fmt.Fprintf(t.out, "\n> running %v ...\n", data["tool_name"])
		}
	})
	t.subscribe(event.ToolError, func(e *event.Event) {
		if data, ok := e.Data.(map[string]any); ok {
			fmt.Fprintf(t.out, "\n> tool %v failed: %v\n", data["tool_name"], data["error"])
		}
	})
	t.subscribe(event.TaskStop, func(e *event.Event) {
		fmt.Fprint(t.out, "\n> ")
	})
	t.subscribe(event.TaskError, func(e *event.Event) {
		if data, ok := e.Data.(map[string]any); ok {
			fmt.Fprintf(t.out, "\ntask failed: %v\n> ", data["error"])
		}
	})
	t.subscribe(event.Notification, func(e *event.Event) {
		if data, ok := e.Data.(map[string]any); ok {
			fmt.Fprintf(t.out, "\n%v\n", data["message"])
		}
	})

	go t.readInput()
	go t.watchSignals()
	fmt.Fprint(t.out, "> ")
}

func (t *Terminal) subscribe(name string, h event.Handler) {
	t.subs = append(t.subs, t.bus.Subscribe(name, h))
}

// readInput forwards stdin lines as user input events. Lines "exit" and
// "quit" stop the application.
func (t *Terminal) readInput() {
	scanner := bufio.NewScanner(t.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(t.out, "> ")
			continue
		}
		if line == "exit" || line == "quit" {
			t.bus.Emit(event.StopApp, nil)
			return
		}
		t.bus.Emit(event.UserInputReceived, map[string]any{"text": line})
	}
	// Stdin closed; shut down.
	t.bus.Emit(event.StopApp, nil)
}

// watchSignals turns Ctrl-C into ui.stop_app.
func (t *Terminal) watchSignals() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Fprintln(t.out, "\ninterrupted, shutting down")
	t.bus.Emit(event.StopApp, nil)
}
