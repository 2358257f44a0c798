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
	"context"
	"fmt"
	"sync/atomic"

	libatm "github.com/sufficit/go-ami/atomic"
	"github.com/sufficit/go-ami/logger"
)

// pendingHandler is one occupied slot in the dispatcher's slab: a callback
// invoked exactly once, either with a built Response or a failure.
type pendingHandler struct {
	resolve func(*Response, error)
}

// dispatcher correlates outbound actions with inbound responses by internal
// ActionId. The pending-handler map is a concurrent slab: insert on send,
// remove on complete, and a disconnect walks every occupied slot.
type dispatcher struct {
	tag     string
	counter uint64

	pending libatm.MapTyped[string, *pendingHandler]

	authenticated func() bool
	varDelimiter  func() byte
	write         func(frame string) error
	log           logger.Logger
}

func newDispatcher(tag string, log logger.Logger) *dispatcher {
	return &dispatcher{
		tag:     tag,
		pending: libatm.NewMapTyped[string, *pendingHandler](),
		log:     log,
	}
}

// nextInternalID allocates "<connHash>_<++counter>".
func (d *dispatcher) nextInternalID() string {
	n := atomic.AddUint64(&d.counter, 1)
	return fmt.Sprintf("%s_%d", d.tag, n)
}

// sendAsync serializes action and registers resolve to be invoked exactly
// once when a matching response arrives, the context is cancelled, or the
// connection disconnects. allowUnauthenticated permits the login/challenge
// actions through before authentication completes.
func (d *dispatcher) sendAsync(ctx context.Context, action *Action, allowUnauthenticated bool, resolve func(*Response, error)) {
	if !allowUnauthenticated && d.authenticated != nil && !d.authenticated() {
		resolve(nil, ErrorNotConnected.Error(fmt.Errorf("not authenticated")))
		return
	}

	internal := d.nextInternalID()
	caller := action.ActionID
	if caller == "" {
		caller = randomActionID()
	}

	delim := byte(',')
	if d.varDelimiter != nil {
		delim = d.varDelimiter()
	}

	done := make(chan struct{})
	var once int32

	wrapped := func(r *Response, err error) {
		if atomic.CompareAndSwapInt32(&once, 0, 1) {
			d.pending.Delete(internal)
			close(done)
			resolve(r, err)
		}
	}

	d.pending.Store(internal, &pendingHandler{resolve: wrapped})

	frame := action.serialize(internal, caller, delim)

	if d.write == nil {
		wrapped(nil, ErrorNotConnected.Error())
		return
	}

	if err := d.write(frame); err != nil {
		wrapped(nil, err)
		return
	}

	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				wrapped(nil, ErrorCancelled.Error(ctx.Err()))
			case <-done:
			}
		}()
	}
}

// send is the awaitable form: it blocks until the response arrives, the
// context is done, or the connection disconnects.
func (d *dispatcher) send(ctx context.Context, action *Action, allowUnauthenticated bool) (*Response, error) {
	result := make(chan struct{})
	var resp *Response
	var rerr error

	d.sendAsync(ctx, action, allowUnauthenticated, func(r *Response, err error) {
		resp, rerr = r, err
		close(result)
	})

	<-result
	return resp, rerr
}

// complete is invoked by the connection when a response packet arrives. It
// looks up the pending handler by the response's internal ActionId; an
// unknown internal id is logged and dropped, never crashing the reader.
func (d *dispatcher) complete(p *Packet) {
	r := buildResponse(p)

	h, ok := d.pending.Load(r.Internal)
	if !ok {
		if d.log != nil {
			d.log.Warning("ami: response for unknown ActionID", nil, r.Internal)
		}
		return
	}

	h.resolve(r, nil)
}

// failAll walks every occupied slot and resolves each with a NotConnected
// failure describing the disconnect. One failing handler must not prevent
// the others from being notified.
func (d *dispatcher) failAll(cause DisconnectCause, permanent bool) {
	err := ErrorNotConnected.Error(fmt.Errorf("Connection lost: %s, permanent:%t", cause, permanent))

	d.pending.Range(func(key string, h *pendingHandler) bool {
		func() {
			defer func() { _ = recover() }()
			h.resolve(nil, err)
		}()
		return true
	})
}
