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

// Package ami implements a long-lived client connection to the Asterisk
// Manager Interface: socket lifecycle, action/response correlation, typed
// event construction and dispatch, authentication, liveness probing and
// transparent reconnection.
package ami

import "strings"

// outputKey is the synthetic header assigned to the accumulated interior
// lines of a "Response: Follows ... --END COMMAND--" block.
const outputKey = "output"

// actionIDKey is the header name used to correlate actions and responses.
const actionIDKey = "actionid"

// Packet is an ordered, case-insensitive key/value mapping parsed from one
// AMI frame (a run of "Key: Value" lines terminated by a blank line).
// Packets are transient: they exist only between parse and dispatch.
type Packet struct {
	keys   []string
	values map[string]string
	output []string
}

// NewPacket returns an empty packet ready to accumulate header lines.
func NewPacket() *Packet {
	return &Packet{
		values: make(map[string]string),
	}
}

// Set stores value under the case-insensitively normalized key, preserving
// first-seen key order for Keys().
func (p *Packet) Set(key, value string) {
	k := normalizeKey(key)
	if _, ok := p.values[k]; !ok {
		p.keys = append(p.keys, k)
	}
	p.values[k] = value
}

// Get returns the value stored for key (case-insensitive) and whether it was present.
func (p *Packet) Get(key string) (string, bool) {
	v, ok := p.values[normalizeKey(key)]
	return v, ok
}

// GetDefault returns the value stored for key, or def if absent.
func (p *Packet) GetDefault(key, def string) string {
	if v, ok := p.Get(key); ok {
		return v
	}
	return def
}

// Keys returns the header keys in first-seen order.
func (p *Packet) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// AppendOutput appends one interior line of a command-output block.
func (p *Packet) AppendOutput(line string) {
	p.output = append(p.output, line)
}

// FinalizeOutput joins the accumulated output lines with LF and assigns them
// to the synthetic "output" key, per the Response: Follows framing rule.
func (p *Packet) FinalizeOutput() {
	if len(p.output) > 0 {
		p.Set(outputKey, strings.Join(p.output, "\n"))
	}
}

// IsEvent reports whether this packet carries an "event" header.
func (p *Packet) IsEvent() bool {
	_, ok := p.Get("event")
	return ok
}

// IsResponse reports whether this packet carries a "response" header.
func (p *Packet) IsResponse() bool {
	_, ok := p.Get("response")
	return ok
}

// ActionID returns the raw, unsplit ActionID header value, if present.
func (p *Packet) ActionID() (string, bool) {
	return p.Get(actionIDKey)
}

// SplitActionID splits a composite "<internal>!<caller>" ActionID into its
// two halves. If there is no '!' delimiter, internal is the whole string and
// caller is empty.
func SplitActionID(raw string) (internal string, caller string) {
	if i := strings.IndexByte(raw, '!'); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return raw, ""
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
