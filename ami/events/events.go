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

// Package events is a small sample catalog of typed AMI events, grounded on
// the property-binder contract in package ami. Production users register
// their own leaf types the same way: ami.Builder.Register(key, ctor).
package events

import "github.com/sufficit/go-ami/ami"

// ManagerEvent is the common supertype every catalog event here implements;
// subscribers can register a catch-all handler against it to observe every
// event in this catalog regardless of its specific leaf type.
type ManagerEvent interface {
	ami.Event
	IsManagerEvent()
}

// managerEvent is embedded by every concrete leaf type in this catalog so
// it satisfies ManagerEvent without repeating the marker method.
type managerEvent struct {
	ami.BaseEvent
}

func (managerEvent) IsManagerEvent() {}

// HangupEvent is raised when a channel is hung up.
type HangupEvent struct {
	managerEvent

	Channel       string
	Uniqueid      string
	CallerIDNum   string
	CallerIDName  string
	Cause         int
	CauseTxt      string
}

// FullyBootedEvent is raised once Asterisk has finished its startup sequence.
type FullyBootedEvent struct {
	managerEvent

	Status string
}

// PeerStatusEvent reports a SIP/PJSIP peer's registration status change.
type PeerStatusEvent struct {
	managerEvent

	Peer       string
	PeerStatus string
}

// Register installs this package's catalog into b. Call it once per Builder
// (typically right after ami.NewBuilder) to enable typed construction of
// these events instead of the ami.UnknownEvent fallback.
func Register(b *ami.Builder) {
	b.Register("hangup", func() ami.Event {
		return &HangupEvent{managerEvent: managerEvent{BaseEvent: ami.BaseEvent{Key: "hangup"}}}
	})
	b.Register("fullybooted", func() ami.Event {
		return &FullyBootedEvent{managerEvent: managerEvent{BaseEvent: ami.BaseEvent{Key: "fullybooted"}}}
	})
	b.Register("peerstatus", func() ami.Event {
		return &PeerStatusEvent{managerEvent: managerEvent{BaseEvent: ami.BaseEvent{Key: "peerstatus"}}}
	})
}
