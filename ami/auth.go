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
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sufficit/go-ami/logger"
)

// AuthState is one state of the authenticator's state machine.
type AuthState uint8

const (
	AuthDisconnected AuthState = iota
	AuthAwaitingBanner
	AuthAuthenticating
	AuthAuthenticated
)

// authenticator drives the login/logoff state machine: plaintext or MD5
// challenge/response, and the one-time post-authentication version
// discovery hook.
type authenticator struct {
	mu    sync.Mutex
	state AuthState

	params ConnectionParameters
	disp   *dispatcher
	log    logger.Logger

	versionDiscovered int32
	version           AsteriskVersion

	onAuthenticated func()
}

func newAuthenticator(params ConnectionParameters, disp *dispatcher, log logger.Logger) *authenticator {
	return &authenticator{params: params, disp: disp, log: log}
}

func (a *authenticator) setState(s AuthState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *authenticator) getState() AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *authenticator) isAuthenticated() bool {
	return a.getState() == AuthAuthenticated
}

// onBanner is invoked by the connection when C1 signals the identification
// line; it moves the state machine from Disconnected to AwaitingBanner and
// immediately starts the login flow.
func (a *authenticator) onBanner(ctx context.Context) error {
	a.setState(AuthAwaitingBanner)
	return a.login(ctx)
}

// login runs the plaintext or MD5 challenge/response flow and, on success,
// transitions to Authenticated and fires onAuthenticated exactly once per
// connection episode.
func (a *authenticator) login(ctx context.Context) error {
	a.setState(AuthAuthenticating)

	var key string

	if a.params.UseMD5Authentication {
		challenge := NewAction("Challenge")
		challenge.Set("AuthType", "MD5")

		resp, err := a.disp.send(ctx, challenge, true)
		if err != nil {
			a.setState(AuthDisconnected)
			return err
		}
		if !resp.IsSuccess() {
			a.setState(AuthDisconnected)
			return ErrorAuthenticationFailed.Error(fmt.Errorf("%s", resp.Message))
		}

		sum := md5.Sum([]byte(resp.Fields["challenge"] + a.params.Password))
		key = hex.EncodeToString(sum[:])
	}

	loginAction := NewAction("Login")
	loginAction.Set("Username", a.params.Username)
	loginAction.Set("Events", "on")

	if a.params.UseMD5Authentication {
		loginAction.Set("AuthType", "MD5")
		loginAction.Set("Key", key)
	} else {
		loginAction.Set("Secret", a.params.Password)
	}

	resp, err := a.disp.send(ctx, loginAction, true)
	if err != nil {
		a.setState(AuthDisconnected)
		return err
	}

	if !resp.IsSuccess() {
		a.setState(AuthDisconnected)
		return ErrorAuthenticationFailed.Error(fmt.Errorf("%s", resp.Message))
	}

	a.setState(AuthAuthenticated)

	if atomic.CompareAndSwapInt32(&a.versionDiscovered, 0, 1) {
		a.version = discoverVersion(ctx, a.disp)
	}

	if a.onAuthenticated != nil {
		a.onAuthenticated()
	}

	return nil
}

// logoff sends the Logoff action and reports itself disconnected
// permanently; the caller (Connection) then tears the socket down.
func (a *authenticator) logoff(ctx context.Context) {
	_, _ = a.disp.send(ctx, NewAction("Logoff"), false)
	a.setState(AuthDisconnected)
}

func (a *authenticator) varDelimiter() byte {
	a.mu.Lock()
	v := a.version
	a.mu.Unlock()
	return v.VarDelimiter()
}

// discoverVersion implements the version-discovery protocol: "core show
// version" first, falling back to "show version files" if still unknown.
func discoverVersion(ctx context.Context, disp *dispatcher) AsteriskVersion {
	cmd := NewAction("Command")
	cmd.Set("Command", "core show version")

	resp, err := disp.send(ctx, cmd, false)
	if err == nil && resp != nil {
		if v := ParseAsteriskVersion(resp.Output); v != VersionUnknown {
			return v
		}
	}

	cmd2 := NewAction("Command")
	cmd2.Set("Command", "show version files")
	resp2, err2 := disp.send(ctx, cmd2, false)
	if err2 == nil && resp2 != nil && strings.HasPrefix(resp2.Output, "File") {
		return Version10
	}

	return VersionNewer
}
