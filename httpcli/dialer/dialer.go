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

// Package dialer implements a Happy Eyeballs-style connector: it resolves a
// hostname to a family-interleaved address list and races staggered connect
// attempts across them, returning the first live socket and disposing every
// loser. An optional pre-resolution hook (see WithAddressOverride) lets a
// caller substitute the address list before DNS is ever consulted.
package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

// LowLevelDialFunc opens one raw socket to addr:port. Connector never
// resolves hostnames itself past the Resolve step; this is the actual
// connect primitive, injectable for testing.
type LowLevelDialFunc func(ctx context.Context, addr net.IP, port int) (net.Conn, error)

// Options configures a Connector.
type Options struct {
	Enable                bool
	FamilyStagger         time.Duration
	AttemptSpacing        time.Duration
	MaxConcurrentAttempts int
	PreferIPv6            bool
}

// DefaultOptions returns conservative Happy Eyeballs parameters.
func DefaultOptions() Options {
	return Options{
		Enable:                true,
		FamilyStagger:         250 * time.Millisecond,
		AttemptSpacing:        100 * time.Millisecond,
		MaxConcurrentAttempts: 4,
		PreferIPv6:            true,
	}
}

// AddressOverride substitutes the address list resolved for host:port,
// returning ok=false to fall through to normal DNS resolution. Backs the
// optional pre-resolution hook described for the dnsmap collaborator.
type AddressOverride func(host string, port int) (addrs []net.IP, ok bool)

// Connector resolves and races connections per the Happy Eyeballs algorithm.
type Connector struct {
	opts     Options
	dial     LowLevelDialFunc
	resolver *net.Resolver
	dnsAddr  string // if set, resolution uses miekg/dns against this server instead of net.Resolver
	override AddressOverride
}

// Option configures a Connector at construction.
type Option func(*Connector)

// WithResolver overrides the standard-library resolver used for DNS lookups.
func WithResolver(r *net.Resolver) Option {
	return func(c *Connector) { c.resolver = r }
}

// WithDNSServer switches resolution to github.com/miekg/dns against the
// given "host:port" server instead of the system resolver, for callers that
// need a specific, non-system-configured DNS server.
func WithDNSServer(addr string) Option {
	return func(c *Connector) { c.dnsAddr = addr }
}

// WithAddressOverride installs a pre-resolution hook consulted before any
// DNS lookup is attempted.
func WithAddressOverride(fn AddressOverride) Option {
	return func(c *Connector) { c.override = fn }
}

// New builds a Connector with the given Happy Eyeballs options, dialing raw
// sockets via dial.
func New(opts Options, dial LowLevelDialFunc, options ...Option) *Connector {
	c := &Connector{
		opts:     opts,
		dial:     dial,
		resolver: net.DefaultResolver,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// ErrHostNotFound is returned when resolution produces no usable address.
var ErrHostNotFound = errors.New("dialer: host not found")

// Resolve returns the address list for host, consulting the override hook
// first, then DNS (via miekg/dns if a server was configured, else the
// standard resolver), bounded by a synchronous 5s timeout since the
// platform resolver may not offer cancellable lookups.
func (c *Connector) Resolve(ctx context.Context, host string, port int) ([]net.IP, error) {
	if c.override != nil {
		if addrs, ok := c.override(host, port); ok {
			if len(addrs) == 0 {
				return nil, ErrHostNotFound
			}
			return addrs, nil
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}

	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}

	rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var addrs []net.IP
	var err error
	if c.dnsAddr != "" {
		addrs, err = c.resolveWithMiekg(rctx, host)
	} else {
		addrs, err = c.resolveWithStdlib(rctx, host)
	}
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, ErrHostNotFound
	}
	return addrs, nil
}

func (c *Connector) resolveWithStdlib(ctx context.Context, host string) ([]net.IP, error) {
	ipAddrs, err := c.resolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}
	return ipAddrs, nil
}

func (c *Connector) resolveWithMiekg(ctx context.Context, host string) ([]net.IP, error) {
	client := new(dns.Client)
	fqdn := dns.Fqdn(host)

	var out []net.IP
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := new(dns.Msg)
		msg.SetQuestion(fqdn, qtype)
		msg.RecursionDesired = true

		resp, _, err := client.ExchangeContext(ctx, msg, c.dnsAddr)
		if err != nil {
			continue
		}
		for _, rr := range resp.Answer {
			switch rec := rr.(type) {
			case *dns.A:
				out = append(out, rec.A)
			case *dns.AAAA:
				out = append(out, rec.AAAA)
			}
		}
	}
	return out, nil
}

// partitionInterleave splits addrs by family and interleaves them starting
// with the preferred family.
func partitionInterleave(addrs []net.IP, preferIPv6 bool) []net.IP {
	var v4, v6 []net.IP
	for _, a := range addrs {
		if a.To4() != nil {
			v4 = append(v4, a)
		} else {
			v6 = append(v6, a)
		}
	}

	first, second := v4, v6
	if preferIPv6 {
		first, second = v6, v4
	}

	out := make([]net.IP, 0, len(addrs))
	for i := 0; i < len(first) || i < len(second); i++ {
		if i < len(first) {
			out = append(out, first[i])
		}
		if i < len(second) {
			out = append(out, second[i])
		}
	}
	return out
}

type attemptResult struct {
	conn net.Conn
	addr net.IP
	err  error
}

// Connect resolves host:port (honoring the override hook) and races
// staggered connect attempts across the interleaved address list. The
// first success wins; every other in-flight attempt is cancelled and its
// socket disposed. If every attempt fails, the aggregated errors are
// returned in encounter order.
func (c *Connector) Connect(ctx context.Context, host string, port int) (net.Conn, error) {
	addrs, err := c.Resolve(ctx, host, port)
	if err != nil {
		return nil, err
	}

	ordered := partitionInterleave(addrs, c.opts.PreferIPv6)

	attemptCtx, cancelAll := context.WithCancel(ctx)
	defer cancelAll()

	// Buffered to len(ordered) and the launcher sends exactly one result
	// per address (placeholders for attempts cancelled before launch), so
	// no sender ever blocks and the loser drain below always terminates.
	results := make(chan attemptResult, len(ordered))
	sem := make(chan struct{}, max(1, c.opts.MaxConcurrentAttempts))

	go c.launchAttempts(attemptCtx, ordered, port, sem, results)

	var errs []error
	for i := 0; i < len(ordered); i++ {
		select {
		case r := <-results:
			if r.err == nil {
				cancelAll()
				go drainLosers(results, len(ordered)-i-1)
				return r.conn, nil
			}
			errs = append(errs, r.err)
		case <-ctx.Done():
			cancelAll()
			go drainLosers(results, len(ordered)-i-1)
			return nil, ctx.Err()
		}
	}

	return nil, aggregateErrors(errs)
}

func (c *Connector) launchAttempts(ctx context.Context, ordered []net.IP, port int, sem chan struct{}, results chan<- attemptResult) {
	lastFamilyV4 := true
	for i, addr := range ordered {
		isV4 := addr.To4() != nil
		if i == 0 {
			lastFamilyV4 = isV4
		} else if isV4 != lastFamilyV4 {
			select {
			case <-time.After(c.opts.FamilyStagger):
			case <-ctx.Done():
				abandonRemaining(ctx, ordered[i:], results)
				return
			}
			lastFamilyV4 = isV4
		} else {
			select {
			case <-time.After(c.opts.AttemptSpacing):
			case <-ctx.Done():
				abandonRemaining(ctx, ordered[i:], results)
				return
			}
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			abandonRemaining(ctx, ordered[i:], results)
			return
		}

		go func(a net.IP) {
			defer func() { <-sem }()
			conn, err := c.dial(ctx, a, port)
			results <- attemptResult{conn: conn, addr: a, err: err}
		}(addr)
	}
}

// abandonRemaining emits a placeholder result for every address whose
// attempt was never launched, preserving the one-result-per-address
// accounting Connect and drainLosers rely on.
func abandonRemaining(ctx context.Context, remaining []net.IP, results chan<- attemptResult) {
	for _, a := range remaining {
		results <- attemptResult{addr: a, err: ctx.Err()}
	}
}

// drainLosers disposes the sockets of attempts that lost the race (or were
// still in flight at cancellation) as their results arrive.
func drainLosers(results <-chan attemptResult, n int) {
	for i := 0; i < n; i++ {
		r := <-results
		if r.conn != nil {
			_ = r.conn.Close()
		}
	}
}

func aggregateErrors(errs []error) error {
	if len(errs) == 0 {
		return ErrHostNotFound
	}

	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return fmt.Errorf("dialer: all attempts failed: %v", msgs)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
