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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// bannerPrefix identifies the single line an Asterisk server sends
// immediately after accepting a TCP connection, before any packet framing.
const bannerPrefix = "Asterisk Call Manager/"

const dialTimeout = 10 * time.Second
const followsMarker = "Response: Follows"
const followsEndMarker = "--END COMMAND--"

// DisconnectCause classifies why the socket went down; see the
// KeepAlive/permanence matrix in the socket lifecycle contract.
type DisconnectCause string

const (
	CauseDispose    DisconnectCause = "DISPOSE"
	CauseLogoff     DisconnectCause = "LOGOFF"
	CauseCancelled  DisconnectCause = "CANCELLED"
	CauseReset      DisconnectCause = "RESETED"
	CauseIdleZero   DisconnectCause = "IDLE_READ_ZERO"
	CauseUnknown    DisconnectCause = "UNKNOWN"
)

// OnDisconnected carries the classified cause of a socket teardown and
// whether the reconnector should treat it as final.
type OnDisconnected struct {
	Cause       DisconnectCause
	IsPermanent bool
}

// socket owns one TCP connection and turns its byte stream into a sequence
// of Packets. It never reuses a failed net.Conn: each connect attempt
// allocates a fresh endpoint, per platform quirks where a previously failed
// socket refuses subsequent connects.
type socket struct {
	mu sync.Mutex

	conn    net.Conn
	reader  *bufio.Reader
	keepAlive bool
	encoding  string

	onPacket       func(*Packet)
	onIdentified   func(banner string)
	onDisconnected func(OnDisconnected)

	closedOnce sync.Once
	lastCause  DisconnectCause
}

func newSocket(keepAlive bool, encoding string) *socket {
	if encoding == "" {
		encoding = "ASCII"
	}
	return &socket{keepAlive: keepAlive, encoding: encoding}
}

// connect resolves host, filters to IPv4 when forceIPv4 is set, and dials
// each candidate address in turn with a fresh endpoint and a bounded
// timeout, stopping at the first success.
func (s *socket) connect(ctx context.Context, host string, port uint16, forceIPv4 bool) error {
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return ErrorNotConnected.Error(err)
	}

	if forceIPv4 {
		filtered := ips[:0]
		for _, ip := range ips {
			if ip.IP.To4() != nil {
				filtered = append(filtered, ip)
			}
		}
		ips = filtered
	}

	if len(ips) == 0 {
		return ErrorNotConnected.Error(fmt.Errorf("no usable address for %s", host))
	}

	var lastErr error
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: -1}

	for _, ip := range ips {
		addr := net.JoinHostPort(ip.IP.String(), fmt.Sprintf("%d", port))

		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		conn, dialErr := dialer.DialContext(dialCtx, "tcp", addr)
		cancel()

		if dialErr != nil {
			lastErr = dialErr
			continue
		}

		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetKeepAlive(true)
			_ = tcp.SetKeepAlivePeriod(30 * time.Second)
		}

		s.mu.Lock()
		s.conn = conn
		s.reader = bufio.NewReader(conn)
		s.mu.Unlock()

		return nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no address succeeded for %s", host)
	}
	return ErrorNotConnected.Error(lastErr)
}

// run starts the blocking line-reader loop. It must be invoked from its own
// goroutine; it returns when the socket disconnects or ctx is cancelled.
func (s *socket) run(ctx context.Context) {
	s.mu.Lock()
	reader := s.reader
	s.mu.Unlock()

	if reader == nil {
		s.disconnect(CauseUnknown)
		return
	}

	identified := false
	var pkt *Packet
	inFollows := false

	for {
		if err := ctx.Err(); err != nil {
			s.disconnect(CauseCancelled)
			return
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			s.disconnect(classifyReadError(err))
			return
		}

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		if !identified {
			if strings.HasPrefix(line, bannerPrefix) {
				identified = true
				if s.onIdentified != nil {
					s.onIdentified(line)
				}
			}
			continue
		}

		if inFollows {
			if line == followsEndMarker {
				inFollows = false
				if pkt != nil {
					pkt.FinalizeOutput()
				}
				continue
			}
			if pkt != nil {
				pkt.AppendOutput(line)
			}
			continue
		}

		if line == "" {
			if pkt != nil && s.onPacket != nil {
				s.onPacket(pkt)
			}
			pkt = nil
			continue
		}

		if pkt == nil {
			pkt = NewPacket()
		}

		key, val, ok := splitHeaderLine(line)
		if !ok {
			continue
		}
		pkt.Set(key, val)

		if strings.EqualFold(strings.TrimSpace(key+": "+val), followsMarker) {
			inFollows = true
		}
	}
}

// write serializes a single already-framed action (including its trailing
// blank line) as the socket's configured encoding.
func (s *socket) write(frame string) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return ErrorNotConnected.Error()
	}

	_, err := conn.Write([]byte(frame))
	if err != nil {
		return ErrorNotConnected.Error(err)
	}
	return nil
}

// close tears the socket down as a permanent, caller-driven disconnect
// (dispose/logoff/cancel). It is idempotent.
func (s *socket) close(cause DisconnectCause) {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	s.disconnect(cause)
}

func (s *socket) disconnect(cause DisconnectCause) {
	s.closedOnce.Do(func() {
		s.lastCause = cause
		permanent := s.isPermanent(cause)
		if s.onDisconnected != nil {
			s.onDisconnected(OnDisconnected{Cause: cause, IsPermanent: permanent})
		}
	})
}

// isPermanent implements the KeepAlive x cause permanence matrix from the
// socket lifecycle contract.
func (s *socket) isPermanent(cause DisconnectCause) bool {
	switch cause {
	case CauseDispose, CauseLogoff, CauseCancelled:
		return true
	default:
		return !s.keepAlive
	}
}

func classifyReadError(err error) DisconnectCause {
	if err == nil {
		return CauseUnknown
	}
	if bytes.Contains([]byte(err.Error()), []byte("reset")) {
		return CauseReset
	}
	return CauseIdleZero
}

// splitHeaderLine parses a "Key: Value" line. Keys are matched
// case-insensitively by the Packet itself; this only splits at the first colon.
func splitHeaderLine(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	value = strings.TrimSpace(line[i+1:])
	return key, value, true
}
