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

package ami_test

import (
	"context"

	. "github.com/sufficit/go-ami/ami"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type testHangupEvent struct {
	BaseEvent

	Channel  string
	Cause    int
	NoAnswer bool
}

func newTestHangupEvent() Event {
	return &testHangupEvent{BaseEvent: BaseEvent{Key: "hangup"}}
}

// testPeerState is a named enum type parsed by name, the way a leaf event's
// status-style field does ("enum parses by name").
type testPeerState uint8

const (
	testPeerUnknown testPeerState = iota
	testPeerReachable
	testPeerUnreachable
	testPeerLagged
)

func (s *testPeerState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Reachable":
		*s = testPeerReachable
	case "Unreachable":
		*s = testPeerUnreachable
	case "Lagged":
		*s = testPeerLagged
	default:
		*s = testPeerUnknown
	}
	return nil
}

type testDeviceStateEvent struct {
	BaseEvent

	Device    string
	State     testPeerState
	Variables map[string]string
}

func newTestDeviceStateEvent() Event {
	return &testDeviceStateEvent{BaseEvent: BaseEvent{Key: "devicestate"}}
}

var _ = Describe("EventKeyFor / EffectiveEventKey", func() {
	It("lowercases and strips a trailing 'event' suffix", func() {
		Expect(EventKeyFor("HangupEvent")).To(Equal("hangup"))
		Expect(EventKeyFor("hangup")).To(Equal("hangup"))
		Expect(EventKeyFor("  FullyBooted  ")).To(Equal("fullybooted"))
	})

	It("computes the plain event key from a packet", func() {
		p := NewPacket()
		p.Set("Event", "HangupEvent")
		key, ok := EffectiveEventKey(p)
		Expect(ok).To(BeTrue())
		Expect(key).To(Equal("hangup"))
	})

	It("prefixes a user event's sub-type with 'user'", func() {
		p := NewPacket()
		p.Set("Event", "UserEvent")
		p.Set("UserEvent", "DoQueueStatus")
		key, ok := EffectiveEventKey(p)
		Expect(ok).To(BeTrue())
		Expect(key).To(Equal("userdoqueuestatus"))
	})

	It("reports false when there is no event header at all", func() {
		p := NewPacket()
		p.Set("Response", "Success")
		_, ok := EffectiveEventKey(p)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Builder", func() {
	It("builds a registered type and binds matching properties", func() {
		b := NewBuilder(context.Background(), nil)
		b.Register("hangup", newTestHangupEvent)

		p := NewPacket()
		p.Set("Event", "Hangup")
		p.Set("Channel", "SIP/100-1")
		p.Set("Cause", "16")
		p.Set("No-Answer", "yes")

		ev, ok := b.Build(p)
		Expect(ok).To(BeTrue())

		hu, isHangup := ev.(*testHangupEvent)
		Expect(isHangup).To(BeTrue())
		Expect(hu.Channel).To(Equal("SIP/100-1"))
		Expect(hu.Cause).To(Equal(16))
		Expect(hu.NoAnswer).To(BeTrue())
	})

	It("falls back to UnknownEvent and records the attribute map for unregistered keys", func() {
		b := NewBuilder(context.Background(), nil)

		p := NewPacket()
		p.Set("Event", "SomeNewEvent")
		p.Set("Foo", "bar")

		ev, ok := b.Build(p)
		Expect(ok).To(BeTrue())

		ue, isUnknown := ev.(*UnknownEvent)
		Expect(isUnknown).To(BeTrue())
		Expect(ue.Key).To(Equal("somenew"))
		Expect(ue.Attributes["foo"]).To(Equal("bar"))

		Expect(b.UnknownEvents()).To(ContainElement("somenew"))
	})

	It("sets the split ActionId on a ResponseEvent-capable build", func() {
		b := NewBuilder(context.Background(), nil)
		b.Register("hangup", newTestHangupEvent)

		p := NewPacket()
		p.Set("Event", "Hangup")
		p.Set("ActionID", "disp_1!caller-9")

		ev, ok := b.Build(p)
		Expect(ok).To(BeTrue())

		hu := ev.(*testHangupEvent)
		Expect(hu.Internal).To(Equal("disp_1"))
		Expect(hu.Caller).To(Equal("caller-9"))
	})

	It("parses an enum-typed field by name via encoding.TextUnmarshaler", func() {
		b := NewBuilder(context.Background(), nil)
		b.Register("devicestate", newTestDeviceStateEvent)

		p := NewPacket()
		p.Set("Event", "DeviceState")
		p.Set("Device", "SIP/100")
		p.Set("State", "Reachable")

		ev, ok := b.Build(p)
		Expect(ok).To(BeTrue())

		ds := ev.(*testDeviceStateEvent)
		Expect(ds.Device).To(Equal("SIP/100"))
		Expect(ds.State).To(Equal(testPeerReachable))
	})

	It("splits a map-typed field on ';' then '='", func() {
		b := NewBuilder(context.Background(), nil)
		b.Register("devicestate", newTestDeviceStateEvent)

		p := NewPacket()
		p.Set("Event", "DeviceState")
		p.Set("Device", "SIP/100")
		p.Set("Variables", "CALLERID=Alice;CONTEXT=default")

		ev, ok := b.Build(p)
		Expect(ok).To(BeTrue())

		ds := ev.(*testDeviceStateEvent)
		Expect(ds.Variables).To(HaveKeyWithValue("CALLERID", "Alice"))
		Expect(ds.Variables).To(HaveKeyWithValue("CONTEXT", "default"))
	})

	It("ClearUnknownEvents empties the dedup set", func() {
		b := NewBuilder(context.Background(), nil)

		p := NewPacket()
		p.Set("Event", "Mystery")
		_, _ = b.Build(p)
		Expect(b.UnknownEvents()).To(ContainElement("mystery"))

		b.ClearUnknownEvents()
		Expect(b.UnknownEvents()).To(BeEmpty())
	})
})
