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

package client

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"time"

	liberr "github.com/nabbar/httpcli/errors"
	"github.com/nabbar/httpcli/httpcli/adaptive"
	"github.com/nabbar/httpcli/httpcli/dialer"
	"github.com/nabbar/httpcli/httpcli/dnsmap"
	"github.com/nabbar/httpcli/httpcli/message"
	"github.com/nabbar/httpcli/httpcli/middleware"
	"github.com/nabbar/httpcli/httpcli/pool"
	"github.com/nabbar/httpcli/httpcli/quality"
	"github.com/nabbar/httpcli/httpcli/tlsneg"
	"github.com/nabbar/httpcli/httpcli/transport"
)

// ErrInvalidBaseURL roots the error family for a Client-construction or
// URI-resolution failure, one range above the Options validation family.
const ErrInvalidBaseURL uint16 = liberr.MinPkgHttpCli + 2

// defaultQualityCapacity sizes the adaptive adviser's ring buffer when a
// caller enables EnableAdaptive without tuning QualityOptions.
const defaultQualityCapacity = 64

// Client is the facade this module exposes to callers: a base URL, a
// compiled middleware chain terminating in the transport, and the
// collaborators (pool, dialer, adaptive adviser, DNS override) that back it.
// The zero value is not usable; build one with New.
type Client struct {
	baseURL        *url.URL
	defaultTimeout time.Duration
	codec          message.BodyCodec
	chain          *middleware.Chain
	pool           *pool.Pool
	adviser        *adaptive.Adviser
	detector       *quality.Detector
	metrics        *middleware.Metrics
	dnsMapper      *dnsmap.Mapper
	usePooling     bool
}

// New builds a Client from opts, validating it first. It wires, in order:
// an optional dnsmap override consulted by the Happy Eyeballs dialer, the
// dialer itself, the TLS wrapper, a per-authority connection pool, the
// HTTP/1.1 transport, and the configured middleware chain (DefaultHeaders,
// Logging, Auth, the adaptive adviser, Timeout, Retry, Metrics, then any
// caller-supplied middleware, innermost-last so a caller's own middleware
// sees the fully-prepared request).
func New(opts Options) (*Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var base *url.URL
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, liberr.New(ErrInvalidBaseURL, "parsing base url", err)
		}
		base = u
	}

	mapper := dnsmap.New()

	connector := dialer.New(opts.DialerOptions, dialNet, dialerOptionsOf(opts, mapper)...)
	wrapper := tlsneg.New(opts.TLS, tlsneg.WithMode(opts.TLSMode))

	dial := transport.DialConnection(connector, wrapper, opts.ALPNProtocols)
	p := pool.New(dial,
		pool.WithPerAuthorityLimit(opts.PerAuthorityLimit),
		pool.WithMaxAuthorities(opts.MaxAuthorities),
		pool.WithIdleTimeout(opts.IdleTimeout.Time()),
	)

	tr := transport.New(p)

	c := &Client{
		baseURL:        base,
		defaultTimeout: opts.DefaultTimeout.Time(),
		codec:          opts.BodyCodec,
		pool:           p,
		dnsMapper:      mapper,
		usePooling:     opts.UsePooledTimeline,
	}

	var mws []middleware.Middleware

	if len(opts.DefaultHeaders) > 0 {
		mws = append(mws, middleware.DefaultHeaders(opts.DefaultHeaders, opts.OverrideHeaders))
	}
	if opts.LoggingVerbosity != middleware.None && opts.Logger != nil {
		mws = append(mws, middleware.Logging(opts.Logger, opts.LoggingVerbosity))
	}
	if opts.AuthProvider != nil {
		mws = append(mws, middleware.Auth(opts.AuthProvider))
	}
	if opts.EnableAdaptive {
		det := quality.New(defaultQualityCapacity, opts.QualityOptions...)
		adv := adaptive.New(det, opts.AdaptivePolicy)
		c.detector = det
		c.adviser = adv
		mws = append(mws, adv.Middleware())
	}
	mws = append(mws, middleware.Timeout())
	if opts.EnableRetry {
		mws = append(mws, middleware.Retry(opts.RetryPolicy))
	}
	if opts.EnableMetrics {
		m := middleware.NewMetrics(opts.MetricsNamespace)
		c.metrics = m
		mws = append(mws, m.Middleware())
	}
	mws = append(mws, opts.Middlewares...)

	c.chain = middleware.NewChain(tr.Send, mws...)

	return c, nil
}

// Detector exposes the Client's network-quality detector, or nil when
// adaptive behaviour was not enabled via Options.EnableAdaptive.
func (c *Client) Detector() *quality.Detector { return c.detector }

// Metrics exposes the Client's metrics collector, or nil when
// Options.EnableMetrics was false.
func (c *Client) Metrics() *middleware.Metrics { return c.metrics }

// DNSMapper exposes the Client's DNS-override table so a caller can Add/Del
// mappings after construction.
func (c *Client) DNSMapper() *dnsmap.Mapper { return c.dnsMapper }

// Close disposes the Client's connection pool, closing every idle
// connection. It does not cancel requests already in flight.
func (c *Client) Close() error { return c.pool.Close() }

func (c *Client) resolve(uri string) (*url.URL, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, liberr.New(ErrInvalidBaseURL, "parsing request uri", err)
	}
	if u.IsAbs() {
		return u, nil
	}
	if c.baseURL == nil {
		return nil, liberr.New(ErrInvalidBaseURL, "relative uri given without a base url", nil)
	}
	return c.baseURL.ResolveReference(u), nil
}

func (c *Client) newBuilder(method message.Method, uri string) *RequestBuilder {
	target, err := c.resolve(uri)
	b := &RequestBuilder{client: c, method: method, uri: target, err: err}
	return b
}

// Get starts building a GET request against uri (resolved against
// Options.BaseURL when relative).
func (c *Client) Get(uri string) *RequestBuilder { return c.newBuilder(message.MethodGet, uri) }

// Post starts building a POST request.
func (c *Client) Post(uri string) *RequestBuilder { return c.newBuilder(message.MethodPost, uri) }

// Put starts building a PUT request.
func (c *Client) Put(uri string) *RequestBuilder { return c.newBuilder(message.MethodPut, uri) }

// Delete starts building a DELETE request.
func (c *Client) Delete(uri string) *RequestBuilder { return c.newBuilder(message.MethodDelete, uri) }

// Patch starts building a PATCH request.
func (c *Client) Patch(uri string) *RequestBuilder { return c.newBuilder(message.MethodPatch, uri) }

// Head starts building a HEAD request.
func (c *Client) Head(uri string) *RequestBuilder { return c.newBuilder(message.MethodHead, uri) }

// Options starts building an OPTIONS request.
func (c *Client) Options(uri string) *RequestBuilder {
	return c.newBuilder(message.MethodOptions, uri)
}

// dialNet is the LowLevelDialFunc passed to dialer.New: a plain TCP dial per
// raced address; TLS handshaking is layered on afterward by
// transport.DialConnection.
func dialNet(ctx context.Context, addr net.IP, port int) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "tcp", net.JoinHostPort(addr.String(), strconv.Itoa(port)))
}

// dialerOptionsOf builds the dialer.Option slice for New: an AddressOverride
// backed by mapper, plus an optional dedicated DNS server when configured.
func dialerOptionsOf(opts Options, mapper interface {
	Override() func(host string, port int) ([]net.IP, bool)
}) []dialer.Option {
	out := []dialer.Option{dialer.WithAddressOverride(mapper.Override())}
	if opts.DNSServer != "" {
		out = append(out, dialer.WithDNSServer(opts.DNSServer))
	}
	return out
}
