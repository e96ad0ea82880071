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

package dialer_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/nabbar/httpcli/httpcli/dialer"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubConn struct {
	net.Conn
	closed int32
	family string
}

func (s *stubConn) Close() error { atomic.StoreInt32(&s.closed, 1); return nil }

var _ = Describe("Connector", func() {
	opts := func() dialer.Options {
		o := dialer.DefaultOptions()
		o.FamilyStagger = time.Millisecond
		o.AttemptSpacing = time.Millisecond
		return o
	}

	It("dials the single overridden address and succeeds", func() {
		c := dialer.New(opts(), func(_ context.Context, addr net.IP, port int) (net.Conn, error) {
			return &stubConn{}, nil
		}, dialer.WithAddressOverride(func(host string, port int) ([]net.IP, bool) {
			return []net.IP{net.ParseIP("127.0.0.1")}, true
		}))

		conn, err := c.Connect(context.Background(), "example.com", 80)
		Expect(err).ToNot(HaveOccurred())
		Expect(conn).ToNot(BeNil())
	})

	It("returns ErrHostNotFound when the override yields no addresses", func() {
		c := dialer.New(opts(), func(_ context.Context, addr net.IP, port int) (net.Conn, error) {
			return &stubConn{}, nil
		}, dialer.WithAddressOverride(func(host string, port int) ([]net.IP, bool) {
			return nil, true
		}))

		_, err := c.Connect(context.Background(), "example.com", 80)
		Expect(errors.Is(err, dialer.ErrHostNotFound)).To(BeTrue())
	})

	It("wins with the first successful attempt", func() {
		c := dialer.New(opts(), func(_ context.Context, addr net.IP, port int) (net.Conn, error) {
			if addr.String() == "10.0.0.1" {
				time.Sleep(5 * time.Millisecond)
				return nil, fmt.Errorf("refused")
			}
			return &stubConn{}, nil
		}, dialer.WithAddressOverride(func(host string, port int) ([]net.IP, bool) {
			return []net.IP{net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2")}, true
		}))

		conn, err := c.Connect(context.Background(), "example.com", 80)
		Expect(err).ToNot(HaveOccurred())
		Expect(conn).ToNot(BeNil())
	})

	It("falls back to the IPv4 address when the preferred IPv6 attempt hangs", func() {
		o := dialer.DefaultOptions()
		o.FamilyStagger = 20 * time.Millisecond
		o.AttemptSpacing = time.Millisecond
		o.PreferIPv6 = true

		c := dialer.New(o, func(ctx context.Context, addr net.IP, port int) (net.Conn, error) {
			if addr.To4() == nil {
				select {
				case <-time.After(800 * time.Millisecond):
				case <-ctx.Done():
				}
				return nil, fmt.Errorf("ipv6 timed out")
			}
			time.Sleep(30 * time.Millisecond)
			return &stubConn{family: "ipv4"}, nil
		}, dialer.WithAddressOverride(func(host string, port int) ([]net.IP, bool) {
			return []net.IP{net.ParseIP("2001:db8::1"), net.ParseIP("10.0.0.2")}, true
		}))

		conn, err := c.Connect(context.Background(), "example.com", 80)
		Expect(err).ToNot(HaveOccurred())
		Expect(conn.(*stubConn).family).To(Equal("ipv4"))
	})

	It("aggregates every attempt's error when all fail", func() {
		c := dialer.New(opts(), func(_ context.Context, addr net.IP, port int) (net.Conn, error) {
			return nil, fmt.Errorf("dial failed for %s", addr)
		}, dialer.WithAddressOverride(func(host string, port int) ([]net.IP, bool) {
			return []net.IP{net.ParseIP("10.0.0.1"), net.ParseIP("10.0.0.2")}, true
		}))

		_, err := c.Connect(context.Background(), "example.com", 80)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("10.0.0.1"))
		Expect(err.Error()).To(ContainSubstring("10.0.0.2"))
	})

	It("respects context cancellation promptly", func() {
		c := dialer.New(opts(), func(ctx context.Context, addr net.IP, port int) (net.Conn, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}, dialer.WithAddressOverride(func(host string, port int) ([]net.IP, bool) {
			return []net.IP{net.ParseIP("10.0.0.1")}, true
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := c.Connect(ctx, "example.com", 80)
		Expect(err).To(HaveOccurred())
	})

	It("treats a literal IP host as already resolved, skipping DNS", func() {
		c := dialer.New(opts(), func(_ context.Context, addr net.IP, port int) (net.Conn, error) {
			return &stubConn{}, nil
		})

		conn, err := c.Connect(context.Background(), "127.0.0.1", 80)
		Expect(err).ToNot(HaveOccurred())
		Expect(conn).ToNot(BeNil())
	})
})
