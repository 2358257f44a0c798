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

import "strings"

// Event is the common capability every typed event satisfies: a normalized
// EventKey used for registry lookup and dispatch.
type Event interface {
	EventKey() string
}

// ResponseEvent is implemented by events that additionally carry the split
// ActionId pair of the action that triggered them (e.g. a queue status
// entry emitted while a QueueStatus action is outstanding).
type ResponseEvent interface {
	Event
	SetActionID(internal, caller string)
}

// BaseEvent is embeddable by concrete event types; it carries the
// normalized key, the raw attribute map (for attributes the property binder
// could not match to a field), and the split ActionId pair when applicable.
type BaseEvent struct {
	Key        string
	Internal   string
	Caller     string
	Attributes map[string]string
}

func (e *BaseEvent) EventKey() string { return e.Key }

// SetActionID implements ResponseEvent.
func (e *BaseEvent) SetActionID(internal, caller string) {
	e.Internal, e.Caller = internal, caller
}

// UnknownEvent is the fallback built for any event key with no registered
// constructor. It carries the full attribute map for caller inspection.
type UnknownEvent struct {
	BaseEvent
}

// EventKeyFor normalizes a raw "Event:" (or "UserEvent:") header value:
// lowercase, trimmed, with a trailing "event" suffix stripped.
func EventKeyFor(name string) string {
	k := strings.ToLower(strings.TrimSpace(name))
	k = strings.TrimSuffix(k, "event")
	return k
}

// EffectiveEventKey computes the dispatch key for a parsed packet: for a
// plain event, EventKeyFor(event-header); for a user event (event header
// normalizing to "user", e.g. "UserEvent", and a "userevent" sub-field
// present), "user" prefixed to the normalized sub-type.
func EffectiveEventKey(p *Packet) (string, bool) {
	raw, ok := p.Get("event")
	if !ok {
		return "", false
	}

	if EventKeyFor(raw) == "user" {
		if sub, ok := p.Get("userevent"); ok {
			return "user" + strings.ToLower(strings.TrimSpace(sub)), true
		}
	}

	return EventKeyFor(raw), true
}
