//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

// Package event provides the publish/subscribe bus that decouples the agent
// runtime from the UI.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event names emitted by the core.
const (
	TaskStart = "agent.task.start"
	TaskStop  = "agent.task.stop"
	TaskError = "agent.task.error"

	MessageStart = "agent.message.start"
	MessageDelta = "agent.message.delta"
	MessageStop  = "agent.message.stop"

	ToolCallStart = "agent.tool.call.start"
	ToolCallReady = "agent.tool.call.ready"
	ToolCall      = "agent.tool.call"
	ToolResult    = "agent.tool.result"
	ToolError     = "agent.tool.error"

	AgentError = "agent.error"

	Notification = "agent.notification"
)

// Event names published by the UI adapter.
const (
	UserInputReceived = "ui.user_input_received"
	StopApp           = "ui.stop_app"
)

// Event is one published occurrence on the bus.
type Event struct {
	// Name is the event name, e.g. "agent.message.delta".
	Name string `json:"name"`

	// Data is the event payload; nil for signal-only events.
	Data any `json:"data,omitempty"`

	// ID is the unique identifier of the event.
	ID string `json:"id"`

	// Timestamp is when the event was published.
	Timestamp time.Time `json:"timestamp"`
}

// New creates an Event with a generated ID and current timestamp.
func New(name string, data any) *Event {
	return &Event{
		Name:      name,
		Data:      data,
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
	}
}
