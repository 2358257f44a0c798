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
	"strings"

	libval "github.com/go-playground/validator/v10"

	"github.com/sufficit/go-ami/duration"
)

// AsteriskVersion is drawn from the server's "core show version" (or, as a
// fallback, "show version files") reply and determines which Variable
// delimiter the wire format expects.
type AsteriskVersion uint8

const (
	VersionUnknown AsteriskVersion = iota
	Version10
	Version12
	Version14
	Version16
	Version18
	Version1x // 10.x through 22.x
	VersionNewer
)

// VarDelimiter returns the delimiter used to separate Variable: k=v pairs
// for this Asterisk version: '|' for legacy (<=1.8-family) servers, ','
// otherwise.
func (v AsteriskVersion) VarDelimiter() byte {
	switch v {
	case Version10, Version12, Version14, Version16, Version18:
		return '|'
	default:
		return ','
	}
}

// ParseAsteriskVersion maps the prefix of a server-reported version string
// (e.g. "Asterisk 18.9.0") to the AsteriskVersion enum.
func ParseAsteriskVersion(s string) AsteriskVersion {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "Asterisk"))

	switch {
	case strings.HasPrefix(s, "1.0"), strings.HasPrefix(s, "1.2"):
		return Version10
	case strings.HasPrefix(s, "1.4"):
		return Version14
	case strings.HasPrefix(s, "1.6"):
		return Version16
	case strings.HasPrefix(s, "1.8"):
		return Version18
	case s == "":
		return VersionUnknown
	default:
		return Version1x
	}
}

// ConnectionParameters configures one AMI connection. It is decodable from
// YAML/viper sources and validated with go-playground/validator tags.
type ConnectionParameters struct {
	Address  string `mapstructure:"address" validate:"required"`
	Port     uint16 `mapstructure:"port" validate:"required"`
	Username string `mapstructure:"username" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`

	UseMD5Authentication bool   `mapstructure:"use_md5_authentication"`
	SocketEncoding       string `mapstructure:"socket_encoding"`
	ForceIPv4            bool   `mapstructure:"force_ipv4"`
	KeepAlive            bool   `mapstructure:"keep_alive"`

	PingInterval duration.Duration `mapstructure:"ping_interval"`

	FastRetries    int               `mapstructure:"fast_retries"`
	FastIntervalMs duration.Duration `mapstructure:"fast_interval_ms"`
	MaxIntervalMs  duration.Duration `mapstructure:"max_interval_ms"`
	MaxRetries     int               `mapstructure:"max_retries"`
}

// DefaultConnectionParameters returns a ConnectionParameters populated with
// the defaults from the external interface table: Port 5038, SocketEncoding
// ASCII, PingInterval 10s, FastIntervalMs 5s, MaxIntervalMs 30s, MaxRetries 0
// (infinite).
func DefaultConnectionParameters() ConnectionParameters {
	return ConnectionParameters{
		Port:           5038,
		SocketEncoding: "ASCII",
		PingInterval:   duration.Seconds(10),
		FastRetries:    3,
		FastIntervalMs: duration.Seconds(5),
		MaxIntervalMs:  duration.Seconds(30),
		MaxRetries:     0,
	}
}

// Validate checks the parameters against their struct tags and returns a
// descriptive error if any are invalid.
func (c ConnectionParameters) Validate() error {
	return libval.New().Struct(c)
}
