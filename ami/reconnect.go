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
	"sync/atomic"
	"time"

	"github.com/sufficit/go-ami/logger"
)

const reconnectAttemptTimeout = 30 * time.Second

// reconnector listens for disconnects and, when the connection is
// configured to KeepAlive and the cause is non-permanent, retries login
// with a two-tier backoff: FastRetries attempts at FastIntervalMs, then the
// remainder (or forever, if MaxRetries==0) at MaxIntervalMs.
type reconnector struct {
	params ConnectionParameters
	log    logger.Logger

	running int32 // 0 = idle, 1 = a retry loop is in flight

	reLogin func(ctx context.Context) error
	onRestartLiveness func()
}

func newReconnector(params ConnectionParameters, log logger.Logger) *reconnector {
	return &reconnector{params: params, log: log}
}

// onDisconnected is the entry point invoked by the connection on every
// OnDisconnected signal. Idempotent: a second disconnect while a retry loop
// is already running does not start a second one.
func (r *reconnector) onDisconnected(parent context.Context, ev OnDisconnected) {
	if !r.params.KeepAlive || ev.IsPermanent {
		return
	}

	if !atomic.CompareAndSwapInt32(&r.running, 0, 1) {
		return
	}

	go r.retryLoop(parent)
}

func (r *reconnector) retryLoop(parent context.Context) {
	defer atomic.StoreInt32(&r.running, 0)

	fast := r.params.FastRetries
	fastDelay := r.params.FastIntervalMs.Time()
	slowDelay := r.params.MaxIntervalMs.Time()
	maxAttempts := r.params.MaxRetries // 0 == infinite, combined with fast below

	attempt := 0
	for {
		attempt++

		if maxAttempts > 0 && attempt > fast+maxAttempts {
			if r.log != nil {
				r.log.Warning("ami: reconnector giving up after exhausting retries", nil, attempt-1)
			}
			return
		}

		delay := slowDelay
		if attempt <= fast {
			delay = fastDelay
		}

		select {
		case <-parent.Done():
			return
		case <-time.After(delay):
		}

		attemptCtx, cancel := context.WithTimeout(parent, reconnectAttemptTimeout)
		err := r.reLogin(attemptCtx)
		cancel()

		if err == nil {
			if r.onRestartLiveness != nil {
				r.onRestartLiveness()
			}
			return
		}

		if r.log != nil {
			r.log.Warning("ami: reconnect attempt failed", nil, err)
		}

		if parent.Err() != nil {
			return
		}
	}
}
