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
	"crypto/rand"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sufficit/go-ami/logger"
)

// disposeDrainTimeout bounds the synchronous Dispose() wait for in-flight
// consumers to unwind cooperatively.
const disposeDrainTimeout = 2 * time.Second

// Connection is the facade (C8) that owns one server's socket, dispatcher,
// authenticator, liveness monitor, reconnector and internal event bus. It is
// the only type most callers interact with directly.
type Connection struct {
	params  ConnectionParameters
	builder *Builder
	log     logger.Logger
	tag     string

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu  sync.Mutex
	sck *socket

	disp  *dispatcher
	auth  *authenticator
	live  *liveness
	recon *reconnector

	internalBus *Bus
	activeBus   atomic.Pointer[Bus]

	connected atomic.Bool
	disposed  atomic.Bool
}

// NewConnection returns a facade wired for the given server parameters. It
// does not connect; call Login to start the session.
func NewConnection(ctx context.Context, params ConnectionParameters, builder *Builder, log logger.Logger) *Connection {
	if ctx == nil {
		ctx = context.Background()
	}
	if builder == nil {
		builder = NewBuilder(ctx, log)
	}

	rootCtx, cancel := context.WithCancel(ctx)

	c := &Connection{
		params:     params,
		builder:    builder,
		log:        log,
		tag:        connectionTag(),
		rootCtx:    rootCtx,
		rootCancel: cancel,
	}

	c.disp = newDispatcher(c.tag, log)
	c.disp.authenticated = c.IsAuthenticated

	c.auth = newAuthenticator(params, c.disp, log)
	c.disp.varDelimiter = c.auth.varDelimiter

	c.live = newLiveness(params.PingInterval, c.disp, log)
	c.live.onFailure = func() {
		c.handleDisconnected(OnDisconnected{Cause: CauseIdleZero, IsPermanent: false})
	}

	c.recon = newReconnector(params, log)
	c.recon.reLogin = c.connectAndLogin
	c.recon.onRestartLiveness = func() { c.live.start(c.rootCtx) }

	c.internalBus = NewBus(log, false)
	c.activeBus.Store(c.internalBus)

	c.auth.onAuthenticated = func() {
		c.connected.Store(true)
		c.live.start(c.rootCtx)
	}

	return c
}

func connectionTag() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%x", b)
}

// Login connects the socket, waits for the server banner, and runs the
// authentication flow. It blocks until login succeeds, ctx is done, or the
// connect attempt itself fails.
func (c *Connection) Login(ctx context.Context) error {
	return c.connectAndLogin(ctx)
}

// connectAndLogin is shared by the initial Login and every reconnect
// attempt: it allocates a fresh socket (never reusing a failed endpoint),
// wires its callbacks, dials, and waits for the authenticator to settle.
func (c *Connection) connectAndLogin(ctx context.Context) error {
	if c.disposed.Load() {
		return ErrorDisposed.Error()
	}

	sck := newSocket(c.params.KeepAlive, c.params.SocketEncoding)

	resultCh := make(chan error, 1)

	sck.onPacket = func(p *Packet) { c.handlePacket(p) }
	sck.onIdentified = func(banner string) {
		go func() {
			err := c.auth.onBanner(c.rootCtx)
			select {
			case resultCh <- err:
			default:
			}
		}()
	}
	sck.onDisconnected = func(ev OnDisconnected) { c.handleDisconnected(ev) }

	if err := sck.connect(ctx, c.params.Address, c.params.Port, c.params.ForceIPv4); err != nil {
		return err
	}

	c.mu.Lock()
	c.sck = sck
	c.mu.Unlock()

	c.disp.write = sck.write

	go sck.run(c.rootCtx)

	select {
	case err := <-resultCh:
		return err
	case <-ctx.Done():
		return ErrorCancelled.Error(ctx.Err())
	}
}

// handlePacket is the C1 -> {C2, C3, C4} demultiplexer: response packets go
// to the dispatcher, event packets are built then dispatched on the active bus.
func (c *Connection) handlePacket(p *Packet) {
	c.live.touch()

	switch {
	case p.IsResponse():
		c.disp.complete(p)
	case p.IsEvent():
		ev, ok := c.builder.Build(p)
		if !ok {
			return
		}
		if bus := c.activeBus.Load(); bus != nil {
			bus.Dispatch(c, ev)
		}
	}
}

func (c *Connection) handleDisconnected(ev OnDisconnected) {
	c.connected.Store(false)
	c.live.stop()
	c.disp.failAll(ev.Cause, ev.IsPermanent)
	c.recon.onDisconnected(c.rootCtx, ev)
}

// Send is the awaitable action-send operation: it blocks until a matching
// response arrives, ctx is done, or the connection disconnects.
func (c *Connection) Send(ctx context.Context, action *Action) (*Response, error) {
	if c.disposed.Load() {
		return nil, ErrorDisposed.Error()
	}
	return c.disp.send(ctx, action, false)
}

// SendAsync is the fire-and-forget form; handler (if non-nil) is invoked
// exactly once with the eventual response or failure.
func (c *Connection) SendAsync(ctx context.Context, action *Action, handler func(*Response, error)) {
	if c.disposed.Load() {
		if handler != nil {
			handler(nil, ErrorDisposed.Error())
		}
		return
	}
	c.disp.sendAsync(ctx, action, false, func(r *Response, err error) {
		if handler != nil {
			handler(r, err)
		}
	})
}

// Events returns the currently active bus (internal, unless redirected by Use).
func (c *Connection) Events() *Bus {
	return c.activeBus.Load()
}

// Use redirects dispatch to an externally-owned bus. Events continue to be
// built on the internal side but delivered through the active bus. The
// connection never destroys an external bus.
func (c *Connection) Use(external *Bus) {
	if external != nil {
		c.activeBus.Store(external)
	}
}

// UseInternal reverts dispatch to the connection's own internal bus.
func (c *Connection) UseInternal() {
	c.activeBus.Store(c.internalBus)
}

// IsConnected reports whether the connection has logged in successfully and
// has not been disconnected since.
func (c *Connection) IsConnected() bool { return c.connected.Load() }

// IsAuthenticated reports whether the authenticator has completed login.
func (c *Connection) IsAuthenticated() bool { return c.auth.isAuthenticated() }

// IsDisposed reports whether Dispose/DisposeAsync has run.
func (c *Connection) IsDisposed() bool { return c.disposed.Load() }

// Logoff sends the Logoff action and requests a permanent disconnect.
func (c *Connection) Logoff(ctx context.Context) {
	c.auth.logoff(ctx)

	c.mu.Lock()
	sck := c.sck
	c.mu.Unlock()

	if sck != nil {
		sck.close(CauseLogoff)
	}
}

// Dispose tears the connection down in strict order: reconnector, liveness
// monitor, authenticator, writer/consumer drain, internal bus teardown,
// socket close. It blocks up to disposeDrainTimeout for the drain step.
func (c *Connection) Dispose() error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil // dispose is idempotent
	}

	c.rootCancel() // stops the reconnector's retry loop and any in-flight waits

	c.live.stop()
	c.auth.setState(AuthDisconnected)

	c.mu.Lock()
	sck := c.sck
	c.mu.Unlock()

	c.disp.failAll(CauseDispose, true)
	c.internalBus.Dispose()

	if sck != nil {
		drained := make(chan struct{})
		go func() {
			sck.close(CauseDispose)
			close(drained)
		}()

		select {
		case <-drained:
		case <-time.After(disposeDrainTimeout):
		}
	}

	return nil
}

// DisposeAsync tears the connection down without blocking the caller.
func (c *Connection) DisposeAsync() {
	go func() { _ = c.Dispose() }()
}
