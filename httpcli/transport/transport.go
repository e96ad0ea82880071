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

// Package transport is the terminal stage of the middleware chain: it
// acquires a pooled connection, serializes the request, parses the
// response, and maps every failure onto the closed errkind taxonomy with a
// load-bearing catch order (library errors first, so a pool/TLS-originated
// error is never double-wrapped). It retries exactly once, for idempotent
// methods only, when the first attempt fails on a connection dequeued from
// the idle pool.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	liberr "github.com/nabbar/httpcli/errors"
	"github.com/nabbar/httpcli/httpcli/codec"
	"github.com/nabbar/httpcli/httpcli/errkind"
	"github.com/nabbar/httpcli/httpcli/message"
	"github.com/nabbar/httpcli/httpcli/pool"
	"github.com/nabbar/httpcli/httpcli/reqctx"
	"github.com/nabbar/httpcli/httpcli/tlsneg"
)

// ProxyDialer is the collaborator contract for an optional proxy layer:
// same shape as Transport, tunneling CONNECT for HTTPS and using
// absolute-form request lines for plain HTTP.
type ProxyDialer interface {
	Send(ctx context.Context, req *message.Request, rc *reqctx.Context) (*message.Response, error)
}

// Transport sends requests over a per-authority connection pool using the
// HTTP/1.1 wire codec.
type Transport struct {
	pool *pool.Pool
}

// New builds a Transport over p, the per-authority connection pool.
func New(p *pool.Pool) *Transport {
	return &Transport{pool: p}
}

// Send executes one request through the transport: validate, acquire,
// serialize, parse, return-or-discard, retry-on-stale, and error mapping.
func (t *Transport) Send(ctx context.Context, req *message.Request, rc *reqctx.Context) (*message.Response, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	deadline, cancel := linkedDeadline(ctx, req)
	defer cancel()

	_ = rc.RecordEvent(reqctx.EventTransportStart, nil)

	resp, err := t.attempt(deadline, req, rc, false)
	if err == nil {
		return resp, nil
	}

	if shouldRetry(err, req) && deadline.Err() == nil {
		resp, retryErr := t.attempt(deadline, req, rc, true)
		if retryErr == nil {
			return resp, nil
		}
		err = retryErr
	}

	return nil, mapError(deadline, ctx, err)
}

// staleRetry marks an attempt's IO error as eligible for the exactly-once
// retry-on-stale path: the lease's connection must have been reused and the
// method idempotent.
type staleRetry struct {
	err error
}

func (s *staleRetry) Error() string { return s.err.Error() }
func (s *staleRetry) Unwrap() error { return s.err }

func shouldRetry(err error, req *message.Request) bool {
	var sr *staleRetry
	return errors.As(err, &sr) && req.Method().IsIdempotent()
}

func (t *Transport) attempt(ctx context.Context, req *message.Request, rc *reqctx.Context, isRetry bool) (*message.Response, error) {
	uri := req.URI()
	tlsWanted := uri.Scheme == "https"
	port := portOf(uri)

	// Serialize before touching the pool: an invalid request must fail
	// before any socket I/O, and must never enter the stale-retry path.
	var wire bytes.Buffer
	if err := codec.Serialize(&wire, req); err != nil {
		return nil, err
	}

	_ = rc.RecordEvent(reqctx.EventTransportConnecting, nil)

	lease, err := t.pool.Acquire(ctx, uri.Hostname(), port, tlsWanted)
	if err != nil {
		return nil, err
	}

	reused := lease.IsReused()
	start := time.Now()

	wc, ok := lease.Connection().(*wireConn)
	if !ok {
		lease.Dispose()
		return nil, fmt.Errorf("transport: pool returned an unexpected connection type")
	}

	// Push the linked deadline and the caller's cancellation onto the
	// socket: the codec's reads and writes are plain blocking calls, so a
	// watcher forces them to unblock with an I/O error the moment ctx is
	// done. The watcher is stopped (and the socket deadline cleared)
	// before the connection can go back to the pool.
	watchStop := make(chan struct{})
	watchExit := make(chan struct{})
	go func() {
		defer close(watchExit)
		select {
		case <-ctx.Done():
			_ = wc.SetDeadline(time.Now())
		case <-watchStop:
		}
	}()
	var watchOnce sync.Once
	stopWatch := func() {
		watchOnce.Do(func() {
			close(watchStop)
			<-watchExit
			_ = wc.SetDeadline(time.Time{})
		})
	}
	defer stopWatch()

	_ = rc.RecordEvent(reqctx.EventTransportSending, nil)
	if _, err := wc.Write(wire.Bytes()); err != nil {
		lease.Dispose()
		if !isRetry && reused {
			return nil, &staleRetry{err: err}
		}
		return nil, err
	}

	_ = rc.RecordEvent(reqctx.EventTransportReceiving, nil)
	parsed, err := codec.Parse(wc.Reader(), req.Method() == message.MethodHead)
	if err != nil {
		lease.Dispose()
		if !isRetry && reused {
			return nil, &staleRetry{err: err}
		}
		return nil, err
	}

	stopWatch()
	if ctx.Err() == nil && parsed.KeepAlive {
		lease.ReturnToPool()
	} else {
		lease.Dispose()
	}

	_ = rc.RecordEvent(reqctx.EventTransportComplete, nil)

	resp := message.NewResponse(req)
	resp.StatusCode = parsed.StatusCode
	resp.Headers = parsed.Headers
	resp.Body = parsed.Body
	resp.Elapsed = time.Since(start)
	resp.KeepAlive = parsed.KeepAlive
	return resp, nil
}

func portOf(u *url.URL) int {
	if p := u.Port(); p != "" {
		var n int
		_, _ = fmt.Sscanf(p, "%d", &n)
		return n
	}
	if u.Scheme == "https" {
		return 443
	}
	return 80
}

func validate(req *message.Request) error {
	uri := req.URI()
	if uri == nil || !uri.IsAbs() {
		return errkind.New(errkind.InvalidRequest, "request URI must be absolute", nil)
	}
	if uri.Scheme != "http" && uri.Scheme != "https" {
		return errkind.New(errkind.InvalidRequest, "unsupported URI scheme: "+uri.Scheme, nil)
	}
	return nil
}

// linkedDeadline combines the caller's context with the request's timeout
// (if explicitly set); the caller's own cancellation always still applies.
func linkedDeadline(ctx context.Context, req *message.Request) (context.Context, context.CancelFunc) {
	if d, explicit := req.Timeout(); explicit && d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// mapError applies a strict catch order: library errors pass through
// unchanged; then cancellation (Timeout if the linked deadline fired
// before the caller's own token, else Cancelled) — a fired deadline takes
// this branch even when the surfaced error is the socket-deadline I/O
// error the cancellation watcher provoked; then framing errors; then
// invalid-request errors from the codec; then certificate/TLS errors; then
// generic network errors; anything else is Unknown.
func mapError(deadline, caller context.Context, err error) error {
	if liberr.Is(err) {
		return liberr.Get(err)
	}

	if deadline.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if deadline.Err() != nil && caller.Err() == nil {
			return errkind.New(errkind.Timeout, "request timed out", err)
		}
		return errkind.New(errkind.Cancelled, "request was cancelled", err)
	}

	var fe *codec.ErrFraming
	if errors.As(err, &fe) {
		return errkind.New(errkind.NetworkError, fe.Error(), err)
	}

	var ie *codec.ErrInvalidRequest
	if errors.As(err, &ie) {
		return errkind.New(errkind.InvalidRequest, ie.Error(), err)
	}

	if isCertificateClass(err) {
		return errkind.New(errkind.CertificateError, "tls handshake or certificate error", err)
	}

	if isNetworkClass(err) {
		return errkind.New(errkind.NetworkError, "network error", err)
	}

	return errkind.New(errkind.Unknown, "unclassified transport error", err)
}

// isCertificateClass reports whether err originates from certificate
// verification or a TLS record/handshake failure.
func isCertificateClass(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &unknownAuth) {
		return true
	}
	var hostErr x509.HostnameError
	if errors.As(err, &hostErr) {
		return true
	}
	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &invalidErr) {
		return true
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var versionErr *tlsneg.ErrVersionTooLow
	if errors.As(err, &versionErr) {
		return true
	}
	var capErr *tlsneg.ErrCapabilityUnavailable
	return errors.As(err, &capErr)
}

// isNetworkClass reports whether err is a generic net.Error (socket-level
// I/O failure not otherwise classified above).
func isNetworkClass(err error) bool {
	var ne net.Error
	return errors.As(err, &ne)
}
