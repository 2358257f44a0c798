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

package logger_test

import (
	"bytes"
	"context"

	. "github.com/sufficit/go-ami/logger"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logger", func() {
	It("defaults to InfoLevel and writes through the stderr hook", func() {
		var buf bytes.Buffer
		log := NewWithWriter(context.Background(), &buf, true)
		Expect(log.GetLevel()).To(Equal(InfoLevel))

		log.Info("hello", nil)
		Expect(buf.String()).To(ContainSubstring("hello"))
	})

	It("suppresses Debug entries below the configured level", func() {
		var buf bytes.Buffer
		log := NewWithWriter(context.Background(), &buf, true)

		log.Debug("too verbose", nil)
		Expect(buf.String()).To(BeEmpty())

		log.SetLevel(DebugLevel)
		log.Debug("now visible", nil)
		Expect(buf.String()).To(ContainSubstring("now visible"))
	})

	It("emits nothing at all once set to NilLevel", func() {
		var buf bytes.Buffer
		log := NewWithWriter(context.Background(), &buf, true)
		log.SetLevel(NilLevel)

		log.Error("should not appear", nil)
		log.Warning("nor this", nil)
		Expect(buf.String()).To(BeEmpty())
	})

	It("attaches data and args as structured fields", func() {
		var buf bytes.Buffer
		log := NewWithWriter(context.Background(), &buf, true)

		log.Warning("ami: unregistered event key", nil, "somekey")
		Expect(buf.String()).To(ContainSubstring("somekey"))
	})
})
