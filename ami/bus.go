/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package ami

import (
	"reflect"
	"sync"

	"github.com/sufficit/go-ami/logger"
)

// Handler receives one dispatched event from the given sender (typically
// the owning *Connection).
type Handler func(sender any, event Event)

// Subscription is a scoped acquisition of one handler binding; releasing it
// removes the handler from its chain.
type Subscription interface {
	// Release removes the handler. Safe to call more than once.
	Release()
}

// handlerEntry pairs a handler with the reflected type it was registered
// for, so the consumer can tell exact-key subscribers from polymorphic
// catch-alls (handlers registered against a supertype of the event).
type handlerEntry struct {
	id      uint64
	typ     reflect.Type
	handler Handler
}

type busEvent struct {
	sender any
	event  Event
}

// Bus is a per-event-type handler registry with a single-reader queue of
// 1024 slots: Dispatch enqueues non-blockingly (when the queue is full the
// oldest queued event is dropped with a warning), one consumer goroutine
// drains it in order and invokes exact-key handlers, then polymorphic
// catch-alls.
type Bus struct {
	mu       sync.Mutex
	chains   map[string][]*handlerEntry
	nextID   uint64
	catchAll []*handlerEntry // handlers whose declared type is Event itself or another interface

	queue chan busEvent
	done  chan struct{}

	fireAllEvents bool
	log           logger.Logger

	teardown bool
}

// UnhandledEvent wraps an event that matched no handler at all when
// FireAllEvents is enabled; it is re-dispatched on the same bus under the
// key "__unhandled__", reaching handlers registered with On("__unhandled__")
// and matching catch-alls.
type UnhandledEvent struct {
	Sender any
	Event  Event
}

// NewBus returns a running event bus. Close it with Dispose when the owner
// (a Connection, or the caller of an external shared bus) is done with it.
func NewBus(log logger.Logger, fireAllEvents bool) *Bus {
	b := &Bus{
		chains:        make(map[string][]*handlerEntry),
		queue:         make(chan busEvent, 1024),
		done:          make(chan struct{}),
		fireAllEvents: fireAllEvents,
		log:           log,
	}
	go b.consume()
	return b
}

// On subscribes handler for events whose EventKey equals key. Exact-key
// chains are keyed by string; type-based catch-alls are registered with
// OnAny.
func (b *Bus) On(key string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	e := &handlerEntry{id: b.nextID, handler: handler}
	b.chains[key] = append(b.chains[key], e)

	return &subscription{bus: b, key: key, id: e.id}
}

// OnAny subscribes handler to every event whose runtime type implements
// typ (a catch-all, e.g. the base ManagerEvent interface). It is invoked
// after any exact-key handler for the same event.
func (b *Bus) OnAny(typ reflect.Type, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	e := &handlerEntry{id: b.nextID, typ: typ, handler: handler}
	b.catchAll = append(b.catchAll, e)

	return &subscription{bus: b, id: e.id, catchAll: true}
}

func (b *Bus) release(key string, id uint64, catchAll bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if catchAll {
		b.catchAll = removeEntry(b.catchAll, id)
		return
	}

	chain := removeEntry(b.chains[key], id)
	if len(chain) == 0 {
		delete(b.chains, key)
	} else {
		b.chains[key] = chain
	}
}

func removeEntry(chain []*handlerEntry, id uint64) []*handlerEntry {
	out := chain[:0]
	for _, e := range chain {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}

// Dispatch enqueues (sender, event) non-blockingly. If the bus is tearing
// down, the event is silently dropped.
func (b *Bus) Dispatch(sender any, event Event) {
	b.mu.Lock()
	down := b.teardown
	b.mu.Unlock()

	if down {
		if b.log != nil {
			b.log.Debug("ami: bus in teardown, dropping event", nil, event.EventKey())
		}
		return
	}

	select {
	case b.queue <- busEvent{sender: sender, event: event}:
	default:
		if b.log != nil {
			b.log.Warning("ami: event queue full, dropping oldest", nil, event.EventKey())
		}
		select {
		case <-b.queue:
		default:
		}
		b.queue <- busEvent{sender: sender, event: event}
	}
}

func (b *Bus) consume() {
	for {
		select {
		case be, ok := <-b.queue:
			if !ok {
				return
			}
			b.deliver(be)
		case <-b.done:
			return
		}
	}
}

func (b *Bus) deliver(be busEvent) {
	b.mu.Lock()
	chain := append([]*handlerEntry(nil), b.chains[be.event.EventKey()]...)
	catchAll := append([]*handlerEntry(nil), b.catchAll...)
	fireAll := b.fireAllEvents
	b.mu.Unlock()

	matched := false
	evType := reflect.TypeOf(be.event)

	for _, e := range chain {
		matched = true
		invokeHandler(b.log, e.handler, be)
	}

	for _, e := range catchAll {
		if e.typ != nil && evType != nil && evType.Implements(e.typ) {
			matched = true
			invokeHandler(b.log, e.handler, be)
		}
	}

	if !matched && fireAll {
		invokeHandler(b.log, func(sender any, _ Event) {
			b.Dispatch(sender, &unhandledEventWrapper{UnhandledEvent{Sender: be.sender, Event: be.event}})
		}, be)
	}
}

// unhandledEventWrapper lets UnhandledEvent ride the same Dispatch path
// (its EventKey is a reserved key no real AMI event ever produces).
type unhandledEventWrapper struct {
	UnhandledEvent
}

func (u *unhandledEventWrapper) EventKey() string { return "__unhandled__" }

func invokeHandler(log logger.Logger, h Handler, be busEvent) {
	defer func() {
		if r := recover(); r != nil && log != nil {
			log.Error("ami: event handler panicked", nil, r)
		}
	}()
	h(be.sender, be.event)
}

// Dispose stops the consumer goroutine. Subsequent Dispatch calls are
// silently dropped.
func (b *Bus) Dispose() {
	b.mu.Lock()
	if b.teardown {
		b.mu.Unlock()
		return
	}
	b.teardown = true
	b.mu.Unlock()

	close(b.done)
}

// HandlerCount returns the number of handlers currently registered for key,
// for testing the "release decrements, zero removes the key" invariant.
func (b *Bus) HandlerCount(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chains[key])
}

type subscription struct {
	bus      *Bus
	key      string
	id       uint64
	catchAll bool
	once     sync.Once
}

func (s *subscription) Release() {
	s.once.Do(func() {
		s.bus.release(s.key, s.id, s.catchAll)
	})
}
