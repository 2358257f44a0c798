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

// Response is the typed reply to a sent Action: its status, an optional
// message, the split ActionId pair it correlated against, and every other
// header the server sent, preserved verbatim for leaf-specific fields.
type Response struct {
	Status   string // "Success" | "Error" | "Follows" | "Goodbye" | ...
	Message  string
	Internal string
	Caller   string
	Output   string
	Fields   map[string]string
}

// IsSuccess reports whether the response's status is "Success" or "Follows".
func (r *Response) IsSuccess() bool {
	return r.Status == "Success" || r.Status == "Follows"
}

// buildResponse converts a raw packet known to carry a "response" header
// into a typed Response, splitting its ActionID into the internal/caller pair.
func buildResponse(p *Packet) *Response {
	r := &Response{
		Status: p.GetDefault("response", ""),
		Fields: make(map[string]string),
	}

	r.Message = p.GetDefault("message", "")
	r.Output = p.GetDefault(outputKey, "")

	if raw, ok := p.ActionID(); ok {
		r.Internal, r.Caller = SplitActionID(raw)
	}

	for _, k := range p.Keys() {
		if v, ok := p.Get(k); ok {
			r.Fields[k] = v
		}
	}

	return r
}
