//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"sync"
	"time"

	"github.com/wangchen7722/eflycode-cli-sub001/event"
	"github.com/wangchen7722/eflycode-cli-sub001/hook"
	"github.com/wangchen7722/eflycode-cli-sub001/log"
)

// State is the controller lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateInterrupting
	StateStopping
	StateStopped
)

const (
	// workerDrainTimeout bounds how long shutdown waits for the current job.
	workerDrainTimeout = 2 * time.Second
	// busDrainTimeout bounds how long shutdown waits for the event bus.
	busDrainTimeout = 2 * time.Second
)

// busyMessage is published when input arrives while a task is running.
const busyMessage = "busy, please wait for the current task to finish"

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithControllerHooks installs the pipeline for session lifecycle events.
func WithControllerHooks(hooks *hook.Pipeline) ControllerOption {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// Controller owns the task state machine. It subscribes to the UI events and
// runs at most one agent job at a time on its own worker goroutine.
type Controller struct {
	loop  *Loop
	bus   *event.Bus
	hooks *hook.Pipeline

	mu     sync.Mutex
	state  State
	token  *CancelToken
	worker chan struct{}

	done chan struct{}
	once sync.Once
}

// NewController wires the controller to the bus. Run tasks start arriving
// once Start is called.
func NewController(loop *Loop, bus *event.Bus, opts ...ControllerOption) *Controller {
	c := &Controller{
		loop: loop,
		bus:  bus,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.hooks == nil {
		c.hooks = hook.NewPipeline(nil, hook.WithEnabled(false))
	}
	return c
}

// Start subscribes to the UI events and fires SessionStart.
func (c *Controller) Start(ctx context.Context) {
	c.hooks.Fire(ctx, hook.EventSessionStart, nil)
	c.bus.Subscribe(event.UserInputReceived, func(e *event.Event) {
		text, _ := payloadText(e.Data)
		c.onUserInput(ctx, text)
	}, event.WithThreaded())
	c.bus.Subscribe(event.StopApp, func(*event.Event) {
		c.Shutdown(ctx)
	}, event.WithThreaded())
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once shutdown completes.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Interrupt cancels the current job without shutting the controller down.
func (c *Controller) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning || c.token == nil {
		return
	}
	c.state = StateInterrupting
	c.token.Cancel()
}

// onUserInput starts a job for the input, rejecting concurrent inputs.
func (c *Controller) onUserInput(ctx context.Context, text string) {
	if text == "" {
		return
	}
	c.mu.Lock()
	if c.state == StateStopping || c.state == StateStopped {
		c.mu.Unlock()
		return
	}
	if c.state != StateIdle {
		c.mu.Unlock()
		c.hooks.Fire(ctx, hook.EventNotification, map[string]any{"message": busyMessage})
		c.bus.Emit(event.Notification, map[string]any{"message": busyMessage})
		return
	}
	jobCtx, cancel := context.WithCancel(ctx)
	token := NewCancelToken(cancel)
	workerDone := make(chan struct{})
	c.state = StateRunning
	c.token = token
	c.worker = workerDone
	c.mu.Unlock()

	go func() {
		defer close(workerDone)
		defer cancel()
		if _, err := c.loop.Run(jobCtx, token, text); err != nil {
			log.Errorf("task failed: %v", err)
		}
		c.mu.Lock()
		if c.state == StateRunning || c.state == StateInterrupting {
			c.state = StateIdle
		}
		c.token = nil
		c.worker = nil
		c.mu.Unlock()
	}()
}

// Shutdown cancels the current job, drains the worker and the bus, and
// fires SessionEnd. It is idempotent.
func (c *Controller) Shutdown(ctx context.Context) {
	c.once.Do(func() {
		c.mu.Lock()
		c.state = StateStopping
		token := c.token
		worker := c.worker
		c.mu.Unlock()

		if token != nil {
			token.Cancel()
		}
		if worker != nil {
			select {
			case <-worker:
			case <-time.After(workerDrainTimeout):
				log.Warn("worker did not exit in time, abandoning")
			}
		}
		c.hooks.Fire(ctx, hook.EventSessionEnd, nil)
		c.bus.Close(true, busDrainTimeout)

		c.mu.Lock()
		c.state = StateStopped
		c.mu.Unlock()
		close(c.done)
	})
}

// payloadText extracts the text field from a UI input payload.
func payloadText(data any) (string, bool) {
	switch v := data.(type) {
	case string:
		return v, true
	case map[string]any:
		text, ok := v["text"].(string)
		return text, ok
	default:
		return "", false
	}
}
