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

package transport

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/nabbar/httpcli/httpcli/dialer"
	"github.com/nabbar/httpcli/httpcli/pool"
	"github.com/nabbar/httpcli/httpcli/tlsneg"
)

// wireConn adapts a raw or TLS-wrapped net.Conn to pool.Connection, carrying
// the buffered reader the codec needs to persist across requests on the same
// reused connection (leftover decoded bytes must not be dropped between
// uses) plus the diagnostics the pool's Connection fields record.
type wireConn struct {
	raw          net.Conn
	br           *bufio.Reader
	lastUsed     time.Time
	tlsVersion   uint16
	alpnProtocol string
	closed       bool
}

// IsAlive is a best-effort, non-blocking liveness check performed by
// peeking one byte with a near-zero read deadline; it is never treated as
// authoritative (see httpcli/pool and httpcli/transport's retry-on-stale).
func (c *wireConn) IsAlive() bool {
	if c.closed {
		return false
	}

	if err := c.raw.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
		return false
	}
	defer c.raw.SetReadDeadline(time.Time{})

	one := make([]byte, 1)
	n, err := c.raw.Read(one)
	if n > 0 {
		// Unexpected: data sitting unread on an idle connection. Treat the
		// connection as unusable rather than risk desyncing the next parse.
		return false
	}
	if err == nil {
		return true
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return true
	}
	return false
}

func (c *wireConn) Close() error {
	c.closed = true
	return c.raw.Close()
}

func (c *wireConn) Write(p []byte) (int, error) { return c.raw.Write(p) }

func (c *wireConn) Reader() *bufio.Reader { return c.br }

// SetDeadline bounds both directions of the underlying stream; the
// transport uses it to propagate its linked deadline/cancellation into the
// codec's otherwise-blocking reads and writes.
func (c *wireConn) SetDeadline(t time.Time) error { return c.raw.SetDeadline(t) }

// DialConnection builds a pool.DialFunc that dials via connector (the Happy
// Eyeballs connector) and, for TLS authorities, wraps the result with
// wrapper. alpn is offered at every TLS handshake if non-empty.
func DialConnection(connector *dialer.Connector, wrapper *tlsneg.Wrapper, alpn []string) pool.DialFunc {
	return func(ctx context.Context, key pool.AuthorityKey) (pool.Connection, error) {
		raw, err := connector.Connect(ctx, key.Host, key.Port)
		if err != nil {
			return nil, err
		}

		wc := &wireConn{raw: raw, lastUsed: time.Now()}

		if key.TLS {
			res, err := wrapper.Handshake(ctx, raw, key.Host, alpn)
			if err != nil {
				_ = raw.Close()
				return nil, err
			}
			wc.raw = res.Conn
			wc.tlsVersion = res.Version
			wc.alpnProtocol = res.ALPNProtocol
		}

		wc.br = bufio.NewReader(wc.raw)
		return wc, nil
	}
}
