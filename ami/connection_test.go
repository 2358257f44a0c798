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

package ami_test

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"

	. "github.com/sufficit/go-ami/ami"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// readFrame reads one blank-line-terminated AMI frame off the wire and
// returns its headers as an ordered-irrelevant map, for a fake server that
// scripts responses without depending on the client's internal types.
func readFrame(r *bufio.Reader) (map[string]string, error) {
	fields := map[string]string{}
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return fields, nil
		}
		k, v, _ := strings.Cut(line, ": ")
		fields[k] = v
	}
}

func writeFrame(conn net.Conn, fields map[string]string) {
	var b strings.Builder
	for k, v := range fields {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	_, _ = conn.Write([]byte(b.String()))
}

// fakeServer listens once and, for every accepted connection, sends a banner
// then answers each inbound action frame via respond.
func fakeServer(respond func(conn net.Conn, action map[string]string)) (addr string, stop func()) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())

	go func() {
		for {
			conn, acceptErr := ln.Accept()
			if acceptErr != nil {
				return
			}

			go func() {
				defer conn.Close()
				_, _ = conn.Write([]byte("Asterisk Call Manager/8.0.0\r\n"))

				r := bufio.NewReader(conn)
				for {
					action, err := readFrame(r)
					if err != nil {
						return
					}
					respond(conn, action)
				}
			}()
		}
	}()

	return ln.Addr().String(), func() { _ = ln.Close() }
}

func paramsFor(addr string) ConnectionParameters {
	host, portStr, err := net.SplitHostPort(addr)
	Expect(err).NotTo(HaveOccurred())
	port, err := strconv.Atoi(portStr)
	Expect(err).NotTo(HaveOccurred())

	p := DefaultConnectionParameters()
	p.Address = host
	p.Port = uint16(port)
	p.Username = "admin"
	p.Password = "secret"
	p.KeepAlive = false
	return p
}

var _ = Describe("Connection", func() {
	It("logs in successfully against a cooperative server", func() {
		addr, stop := fakeServer(func(conn net.Conn, action map[string]string) {
			switch action["Action"] {
			case "Login":
				writeFrame(conn, map[string]string{"Response": "Success", "ActionID": action["ActionID"]})
			default:
				writeFrame(conn, map[string]string{"Response": "Success", "Output": "Asterisk 20.1.0", "ActionID": action["ActionID"]})
			}
		})
		defer stop()

		conn := NewConnection(context.Background(), paramsFor(addr), nil, nil)
		defer conn.Dispose()

		Expect(conn.Login(context.Background())).To(Succeed())
		Expect(conn.IsConnected()).To(BeTrue())
		Expect(conn.IsAuthenticated()).To(BeTrue())
	})

	It("reports a login failure from a server that rejects credentials", func() {
		addr, stop := fakeServer(func(conn net.Conn, action map[string]string) {
			writeFrame(conn, map[string]string{"Response": "Error", "Message": "Authentication failed", "ActionID": action["ActionID"]})
		})
		defer stop()

		conn := NewConnection(context.Background(), paramsFor(addr), nil, nil)
		defer conn.Dispose()

		err := conn.Login(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(conn.IsAuthenticated()).To(BeFalse())
	})

	It("sends actions once authenticated and returns the matching response", func() {
		addr, stop := fakeServer(func(conn net.Conn, action map[string]string) {
			switch action["Action"] {
			case "Login":
				writeFrame(conn, map[string]string{"Response": "Success", "ActionID": action["ActionID"]})
			case "Ping":
				writeFrame(conn, map[string]string{"Response": "Pong", "ActionID": action["ActionID"]})
			default:
				writeFrame(conn, map[string]string{"Response": "Success", "Output": "Asterisk 20.1.0", "ActionID": action["ActionID"]})
			}
		})
		defer stop()

		conn := NewConnection(context.Background(), paramsFor(addr), nil, nil)
		defer conn.Dispose()

		Expect(conn.Login(context.Background())).To(Succeed())

		resp, err := conn.Send(context.Background(), NewAction("Ping"))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Status).To(Equal("Pong"))
	})

	It("fails Send immediately once disposed, and Dispose is idempotent", func() {
		addr, stop := fakeServer(func(conn net.Conn, action map[string]string) {
			writeFrame(conn, map[string]string{"Response": "Success", "ActionID": action["ActionID"]})
		})
		defer stop()

		conn := NewConnection(context.Background(), paramsFor(addr), nil, nil)
		Expect(conn.Login(context.Background())).To(Succeed())

		Expect(conn.Dispose()).To(Succeed())
		Expect(conn.Dispose()).To(Succeed()) // idempotent, no panic or second teardown
		Expect(conn.IsDisposed()).To(BeTrue())

		_, err := conn.Send(context.Background(), NewAction("Ping"))
		Expect(err).To(HaveOccurred())
	})

	It("redirects event dispatch to an external bus via Use, and back via UseInternal", func() {
		addr, stop := fakeServer(func(conn net.Conn, action map[string]string) {
			writeFrame(conn, map[string]string{"Response": "Success", "ActionID": action["ActionID"]})
		})
		defer stop()

		conn := NewConnection(context.Background(), paramsFor(addr), nil, nil)
		defer conn.Dispose()
		Expect(conn.Login(context.Background())).To(Succeed())

		external := NewBus(nil, false)
		defer external.Dispose()

		conn.Use(external)
		Expect(conn.Events()).To(BeIdenticalTo(external))

		conn.UseInternal()
		Expect(conn.Events()).NotTo(BeIdenticalTo(external))
	})
})
