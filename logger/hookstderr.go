/***********************************************************************************************************************
 *
 *   MIT License
 *
 *   Copyright (c) 2021 Nicolas JUHEL
 *
 *   Permission is hereby granted, free of charge, to any person obtaining a copy
 *   of this software and associated documentation files (the "Software"), to deal
 *   in the Software without restriction, including without limitation the rights
 *   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *   copies of the Software, and to permit persons to whom the Software is
 *   furnished to do so, subject to the following conditions:
 *
 *   The above copyright notice and this permission notice shall be included in all
 *   copies or substantial portions of the Software.
 *
 *   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *   SOFTWARE.
 *
 *
 **********************************************************************************************************************/

package logger

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

// stderrHook is a logrus hook writing entries to stderr (or, in tests, any
// io.Writer). It is the one hook an AMI client needs: everything else the
// teacher's logger shipped (file, syslog, stdout, generic writer hooks) has
// no caller in this module.
type stderrHook struct {
	w io.Writer
}

// newStderrHook builds the hook. When w is nil it writes to os.Stderr; when
// disableColor is set the writer is wrapped with colorable.NewNonColorable so
// ANSI escapes are stripped for non-terminal destinations (log files, CI).
func newStderrHook(w io.Writer, disableColor bool) *stderrHook {
	if w == nil {
		w = os.Stderr
	}
	if disableColor {
		w = colorable.NewNonColorable(w)
	}
	return &stderrHook{w: w}
}

func (h *stderrHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *stderrHook) Fire(entry *logrus.Entry) error {
	p, err := entry.Bytes()
	if err != nil {
		return err
	}
	_, err = h.w.Write(p)
	return err
}
