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
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// newLogrusBase returns a *logrus.Logger with its own output disabled: all
// writing happens through hooks (see newStderrHook), matching the teacher's
// hook-driven fan-out instead of logrus's single default writer.
func newLogrusBase() *logrus.Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	base.SetLevel(logrus.TraceLevel)
	return base
}

// lgr is the concrete Logger. level is stored atomically so SetLevel can be
// called concurrently with in-flight log calls from other goroutines (the
// bus, dispatcher, reconnector and liveness loop all hold a shared Logger).
type lgr struct {
	base  *logrus.Logger
	level atomic.Uint32
}

func (l *lgr) SetLevel(lvl Level) { l.level.Store(uint32(lvl)) }
func (l *lgr) GetLevel() Level    { return Level(l.level.Load()) }

func (l *lgr) Debug(message string, data interface{}, args ...interface{}) {
	l.log(DebugLevel, message, data, args...)
}

func (l *lgr) Info(message string, data interface{}, args ...interface{}) {
	l.log(InfoLevel, message, data, args...)
}

func (l *lgr) Warning(message string, data interface{}, args ...interface{}) {
	l.log(WarnLevel, message, data, args...)
}

func (l *lgr) Error(message string, data interface{}, args ...interface{}) {
	l.log(ErrorLevel, message, data, args...)
}

func (l *lgr) Fatal(message string, data interface{}, args ...interface{}) {
	entry := l.entry(FatalLevel, message, data, args...)
	if entry == nil {
		return
	}
	entry.Fatal(message)
}

func (l *lgr) Panic(message string, data interface{}, args ...interface{}) {
	entry := l.entry(PanicLevel, message, data, args...)
	if entry == nil {
		entry = logrus.NewEntry(l.base)
	}
	entry.Panic(message)
}

// log emits at lvl if the configured level permits it; PanicLevel is the
// most severe (0), DebugLevel the least (5), NilLevel (6) disables logging.
func (l *lgr) log(lvl Level, message string, data interface{}, args ...interface{}) {
	entry := l.entry(lvl, message, data, args...)
	if entry == nil {
		return
	}

	switch lvl {
	case DebugLevel:
		entry.Debug(message)
	case InfoLevel:
		entry.Info(message)
	case WarnLevel:
		entry.Warning(message)
	default:
		entry.Error(message)
	}
}

// entry builds the logrus entry carrying the optional data value and args,
// or returns nil when lvl is filtered out by the configured level.
func (l *lgr) entry(lvl Level, _ string, data interface{}, args ...interface{}) *logrus.Entry {
	cur := l.GetLevel()
	if cur == NilLevel || lvl > cur {
		return nil
	}

	fields := logrus.Fields{}
	if data != nil {
		fields["data"] = data
	}
	if len(args) > 0 {
		fields["args"] = args
	}

	return l.base.WithFields(fields)
}
