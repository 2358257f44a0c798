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
	"context"
	"net"
	"strconv"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("splitHeaderLine", func() {
	It("splits at the first colon and trims surrounding space", func() {
		key, val, ok := splitHeaderLine("Event: Hangup")
		Expect(ok).To(BeTrue())
		Expect(key).To(Equal("Event"))
		Expect(val).To(Equal("Hangup"))
	})

	It("reports false for a line with no colon", func() {
		_, _, ok := splitHeaderLine("not a header")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("socket.isPermanent", func() {
	It("treats dispose/logoff/cancel as always permanent regardless of KeepAlive", func() {
		s := newSocket(true, "ASCII")
		Expect(s.isPermanent(CauseDispose)).To(BeTrue())
		Expect(s.isPermanent(CauseLogoff)).To(BeTrue())
		Expect(s.isPermanent(CauseCancelled)).To(BeTrue())
	})

	It("treats a reset/idle/unknown cause as permanent only when KeepAlive is off", func() {
		keepAlive := newSocket(true, "ASCII")
		Expect(keepAlive.isPermanent(CauseReset)).To(BeFalse())
		Expect(keepAlive.isPermanent(CauseIdleZero)).To(BeFalse())

		noKeepAlive := newSocket(false, "ASCII")
		Expect(noKeepAlive.isPermanent(CauseReset)).To(BeTrue())
		Expect(noKeepAlive.isPermanent(CauseIdleZero)).To(BeTrue())
	})
})

var _ = Describe("classifyReadError", func() {
	It("classifies a connection-reset message as CauseReset", func() {
		Expect(classifyReadError(errString("read: connection reset by peer"))).To(Equal(CauseReset))
	})

	It("classifies any other read error as CauseIdleZero", func() {
		Expect(classifyReadError(errString("EOF"))).To(Equal(CauseIdleZero))
	})
})

type errString string

func (e errString) Error() string { return string(e) }

var _ = Describe("socket end-to-end framing", func() {
	It("detects the banner, then parses a plain event packet and a Follows block", func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		defer ln.Close()

		serverDone := make(chan struct{})
		go func() {
			defer close(serverDone)
			conn, acceptErr := ln.Accept()
			if acceptErr != nil {
				return
			}
			defer conn.Close()

			_, _ = conn.Write([]byte("Asterisk Call Manager/8.0.0\r\n"))
			_, _ = conn.Write([]byte("Event: FullyBooted\r\nStatus: Fully Booted\r\n\r\n"))
			_, _ = conn.Write([]byte("Response: Follows\r\nPrivilege: Command\r\n"))
			_, _ = conn.Write([]byte("line one\r\nline two\r\n--END COMMAND--\r\n\r\n"))
		}()

		host, portStr, err := net.SplitHostPort(ln.Addr().String())
		Expect(err).NotTo(HaveOccurred())
		port, err := strconv.Atoi(portStr)
		Expect(err).NotTo(HaveOccurred())

		s := newSocket(false, "ASCII")

		var mu sync.Mutex
		var banner string
		var packets []*Packet

		s.onIdentified = func(b string) {
			mu.Lock()
			banner = b
			mu.Unlock()
		}
		s.onPacket = func(p *Packet) {
			mu.Lock()
			packets = append(packets, p)
			mu.Unlock()
		}
		s.onDisconnected = func(OnDisconnected) {}

		Expect(s.connect(context.Background(), host, uint16(port), false)).To(Succeed())

		runDone := make(chan struct{})
		go func() {
			s.run(context.Background())
			close(runDone)
		}()

		Eventually(func() int {
			mu.Lock()
			defer mu.Unlock()
			return len(packets)
		}).Should(Equal(2))

		mu.Lock()
		defer mu.Unlock()

		Expect(banner).To(ContainSubstring("Asterisk Call Manager/8.0.0"))

		ev, ok := packets[0].Get("event")
		Expect(ok).To(BeTrue())
		Expect(ev).To(Equal("FullyBooted"))

		resp, ok := packets[1].Get("response")
		Expect(ok).To(BeTrue())
		Expect(resp).To(Equal("Follows"))

		out, ok := packets[1].Get("output")
		Expect(ok).To(BeTrue())
		Expect(out).To(Equal("Privilege: Command\nline one\nline two"))

		<-serverDone
	})
})
