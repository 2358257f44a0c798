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
	"sync"
	"sync/atomic"
	"time"

	"github.com/sufficit/go-ami/duration"
	"github.com/sufficit/go-ami/logger"
)

// liveness sends an idle-triggered Ping when no inbound byte has been seen
// for the configured PingInterval. It is started by the authenticator after
// a successful login and stopped on any disconnect.
type liveness struct {
	interval time.Duration
	disp     *dispatcher
	log      logger.Logger

	lastSeen atomic.Int64 // unix nano

	onFailure func()

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newLiveness(interval duration.Duration, disp *dispatcher, log logger.Logger) *liveness {
	l := &liveness{interval: interval.Time(), disp: disp, log: log}
	l.touch()
	return l
}

// touch resets the idle clock; called on every inbound byte/packet.
func (l *liveness) touch() {
	l.lastSeen.Store(time.Now().UnixNano())
}

// start launches the idle-ping timer loop. Calling start while already
// running is a no-op.
func (l *liveness) start(parent context.Context) {
	l.mu.Lock()
	if l.cancel != nil {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel
	l.mu.Unlock()

	go l.run(ctx)
}

func (l *liveness) stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (l *liveness) run(ctx context.Context) {
	if l.interval <= 0 {
		l.interval = 10 * time.Second
	}

	ticker := time.NewTicker(l.interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			idleFor := time.Duration(time.Now().UnixNano() - l.lastSeen.Load())
			if idleFor < l.interval {
				continue
			}

			pingCtx, pingCancel := context.WithTimeout(ctx, l.interval)
			_, err := l.disp.send(pingCtx, NewAction("Ping"), false)
			pingCancel()

			if err != nil {
				if l.log != nil {
					l.log.Warning("ami: liveness ping failed", nil, err)
				}
				if l.onFailure != nil {
					l.onFailure()
				}
				return
			}

			l.touch()
		}
	}
}
