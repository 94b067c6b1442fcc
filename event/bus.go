//
// Copyright (C) 2025 eflycode authors.  All rights reserved.
//
// eflycode is licensed under the Apache License Version 2.0.
//
//

package event

import (
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/wangchen7722/eflycode-cli-sub001/log"
)

const (
	// defaultQueueCapacity bounds the pending event queue.
	defaultQueueCapacity = 10000
	// defaultWorkers sizes the pool serving threaded subscribers.
	defaultWorkers = 10
)

// Handler receives a published event. Handlers must not retain the event
// past the call when subscribed threaded.
type Handler func(e *Event)

// Subscription identifies one registered handler; pass it to Unsubscribe.
type Subscription struct {
	name     string
	id       uint64
	handler  Handler
	threaded bool
}

// SubscribeOption configures a subscription.
type SubscribeOption func(*Subscription)

// WithThreaded dispatches the handler on the worker pool instead of inline
// on the dispatcher goroutine. Ordering against other threaded handlers is
// not guaranteed.
func WithThreaded() SubscribeOption {
	return func(s *Subscription) {
		s.threaded = true
	}
}

type queued struct {
	event *Event
}

// Bus is a bounded publish/subscribe dispatcher. A single goroutine drains
// the queue; per event it snapshots the subscriber list under lock and
// delivers inline handlers in subscription order and threaded handlers via
// the worker pool. Subscriber panics are logged and never propagate.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*Subscription
	nextID uint64
	closed bool

	queue chan queued
	pool  *ants.Pool

	dispatcherDone chan struct{}
	inflight       sync.WaitGroup
}

// BusOption configures a Bus.
type BusOption func(*busOptions)

type busOptions struct {
	queueCapacity int
	workers       int
}

// WithQueueCapacity overrides the pending-queue capacity.
func WithQueueCapacity(n int) BusOption {
	return func(o *busOptions) {
		o.queueCapacity = n
	}
}

// WithWorkers overrides the threaded-subscriber pool size.
func WithWorkers(n int) BusOption {
	return func(o *busOptions) {
		o.workers = n
	}
}

// NewBus creates and starts a Bus.
func NewBus(opts ...BusOption) (*Bus, error) {
	o := &busOptions{
		queueCapacity: defaultQueueCapacity,
		workers:       defaultWorkers,
	}
	for _, opt := range opts {
		opt(o)
	}
	pool, err := ants.NewPool(o.workers)
	if err != nil {
		return nil, err
	}
	b := &Bus{
		subs:           make(map[string][]*Subscription),
		queue:          make(chan queued, o.queueCapacity),
		pool:           pool,
		dispatcherDone: make(chan struct{}),
	}
	go b.dispatch()
	return b, nil
}

// Subscribe registers handler for events named name.
func (b *Bus) Subscribe(name string, handler Handler, opts ...SubscribeOption) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{name: name, id: b.nextID, handler: handler}
	for _, opt := range opts {
		opt(sub)
	}
	b.subs[name] = append(b.subs[name], sub)
	return sub
}

// Unsubscribe removes a previously registered subscription.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[sub.name]
	for i, s := range list {
		if s.id == sub.id {
			b.subs[sub.name] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Emit enqueues an event for asynchronous delivery. When the queue is full
// the event is dropped with a warning rather than blocking the publisher.
func (b *Bus) Emit(name string, data any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- queued{event: New(name, data)}:
	default:
		log.Warnf("event bus queue full, dropping event %s", name)
	}
}

// EmitSync delivers an event synchronously on the calling goroutine to all
// current subscribers, bypassing the queue. Threaded flags are ignored.
func (b *Bus) EmitSync(name string, data any) {
	e := New(name, data)
	for _, sub := range b.snapshot(name) {
		b.invoke(sub, e)
	}
}

// Close shuts the bus down. With wait true it waits up to timeout for the
// dispatcher to drain the queue and for threaded deliveries to finish;
// beyond the timeout pending work is abandoned.
func (b *Bus) Close(wait bool, timeout time.Duration) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	if wait {
		done := make(chan struct{})
		go func() {
			<-b.dispatcherDone
			b.inflight.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(timeout):
			log.Warnf("event bus close timed out after %s, abandoning pending deliveries", timeout)
		}
	}
	b.pool.Release()
}

func (b *Bus) dispatch() {
	defer close(b.dispatcherDone)
	for q := range b.queue {
		for _, sub := range b.snapshot(q.event.Name) {
			if sub.threaded {
				b.submit(sub, q.event)
			} else {
				b.invoke(sub, q.event)
			}
		}
	}
}

func (b *Bus) snapshot(name string) []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	list := b.subs[name]
	out := make([]*Subscription, len(list))
	copy(out, list)
	return out
}

func (b *Bus) submit(sub *Subscription, e *Event) {
	b.inflight.Add(1)
	err := b.pool.Submit(func() {
		defer b.inflight.Done()
		b.invoke(sub, e)
	})
	if err != nil {
		b.inflight.Done()
		log.Warnf("event bus worker submit failed for %s: %v", e.Name, err)
	}
}

func (b *Bus) invoke(sub *Subscription, e *Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("event subscriber for %s panicked: %v", e.Name, r)
		}
	}()
	sub.handler(e)
}
