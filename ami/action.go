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
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
)

// Action is a typed client-to-server request frame: a stable Action name,
// an optional caller-supplied ActionId, optional Variable pairs, and zero or
// more scalar properties.
type Action struct {
	Name       string
	ActionID   string
	Variables  map[string]string
	Properties map[string]string
}

// NewAction returns an Action with the given name and empty property sets.
func NewAction(name string) *Action {
	return &Action{
		Name:       name,
		Variables:  make(map[string]string),
		Properties: make(map[string]string),
	}
}

// Set assigns a scalar property on the action (e.g. Set("Channel", "SIP/1")).
func (a *Action) Set(key, value string) *Action {
	a.Properties[key] = value
	return a
}

// SetVariable assigns one Variable: k=v pair, joined with the version's
// delimiter at serialization time.
func (a *Action) SetVariable(key, value string) *Action {
	a.Variables[key] = value
	return a
}

// randomActionID returns a 12-hex-digit random identifier, used when the
// caller supplies no ActionId of its own.
func randomActionID() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%x", b)
}

// serialize renders the action as the wire frame: "Action: Name", the
// composite ActionID, each property, the Variable line (if any), and the
// blank-line terminator. internal is the dispatcher-assigned correlation id;
// caller is the action's own ActionID (possibly empty).
func (a *Action) serialize(internal, caller string, delim byte) string {
	var b strings.Builder

	b.WriteString("Action: ")
	b.WriteString(a.Name)
	b.WriteString("\r\n")

	b.WriteString("ActionID: ")
	b.WriteString(internal)
	b.WriteString("!")
	b.WriteString(caller)
	b.WriteString("\r\n")

	keys := make([]string, 0, len(a.Properties))
	for k := range a.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(a.Properties[k])
		b.WriteString("\r\n")
	}

	if len(a.Variables) > 0 {
		vkeys := make([]string, 0, len(a.Variables))
		for k := range a.Variables {
			vkeys = append(vkeys, k)
		}
		sort.Strings(vkeys)

		var vb strings.Builder
		for i, k := range vkeys {
			if i > 0 {
				vb.WriteByte(delim)
			}
			vb.WriteString(k)
			vb.WriteByte('=')
			vb.WriteString(a.Variables[k])
		}

		b.WriteString("Variable: ")
		b.WriteString(vb.String())
		b.WriteString("\r\n")
	}

	b.WriteString("\r\n")
	return b.String()
}
