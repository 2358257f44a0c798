/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

package logger

import (
	"context"
	"io"
)

// Logger is the logging facade used across this module: six leveled
// methods plus runtime level control. Every call site passes an optional
// data value (attached as a structured field) and free-form args (attached
// as a second field), mirroring the teacher library's signature so the rest
// of the module did not have to change shape when the backend did.
type Logger interface {
	// SetLevel changes the minimal level of log message that is emitted.
	SetLevel(lvl Level)

	// GetLevel returns the minimal level of log message that is emitted.
	GetLevel() Level

	// Debug adds an entry at DebugLevel.
	Debug(message string, data interface{}, args ...interface{})

	// Info adds an entry at InfoLevel.
	Info(message string, data interface{}, args ...interface{})

	// Warning adds an entry at WarnLevel.
	Warning(message string, data interface{}, args ...interface{})

	// Error adds an entry at ErrorLevel.
	Error(message string, data interface{}, args ...interface{})

	// Fatal adds an entry at FatalLevel, then terminates the process via os.Exit.
	Fatal(message string, data interface{}, args ...interface{})

	// Panic adds an entry at PanicLevel, then panics.
	Panic(message string, data interface{}, args ...interface{})
}

// New returns a Logger backed by logrus with a single stderr hook, defaulted
// to InfoLevel. ctx is accepted for call-site stability (cmd/amictl builds
// one logger per command from the command's context) but carries no state
// of its own here; the teacher's context-scoped field store has no reader
// left in this module once the rest of the logging stack was trimmed.
func New(ctx context.Context) Logger {
	return NewWithWriter(ctx, nil, false)
}

// NewWithWriter is New with an explicit stderr-hook destination and color
// setting, for tests and for callers that want to capture or redirect
// output instead of writing to the process's actual stderr.
func NewWithWriter(ctx context.Context, w io.Writer, disableColor bool) Logger {
	_ = ctx

	base := newLogrusBase()
	base.AddHook(newStderrHook(w, disableColor))

	l := &lgr{base: base}
	l.SetLevel(InfoLevel)
	return l
}
