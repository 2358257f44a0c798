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

import "github.com/sufficit/go-ami/errors"

// Error taxonomy for the AMI client. Every failure surfaced to a caller is
// one of these codes, wrapped with errors.CodeError.Error(parent...).
const (
	ErrorNotConnected errors.CodeError = iota + errors.MinPkgAMI
	ErrorAuthenticationFailed
	ErrorTimeout
	ErrorCancelled
	ErrorProtocolParse
	ErrorResponseBuild
	ErrorDisposed
)

var isCodeError = false

// IsCodeError reports whether this package's error codes were registered
// without colliding with a previously registered range.
func IsCodeError() bool {
	return isCodeError
}

func init() {
	collides := errors.ExistInMapMessage(ErrorNotConnected)
	errors.RegisterIdFctMessage(ErrorNotConnected, getMessage)
	isCodeError = !collides && errors.ExistInMapMessage(ErrorNotConnected)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UnknownError:
		return ""
	case ErrorNotConnected:
		return "action issued while no live socket is connected"
	case ErrorAuthenticationFailed:
		return "login response carried an error"
	case ErrorTimeout:
		return "action exceeded its deadline"
	case ErrorCancelled:
		return "operation was cancelled by the caller"
	case ErrorProtocolParse:
		return "malformed packet received from the server"
	case ErrorResponseBuild:
		return "cannot construct a typed response for the action"
	case ErrorDisposed:
		return "operation attempted on a torn-down connection"
	}

	return ""
}
