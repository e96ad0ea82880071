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

// Package tlsneg wraps a plain stream with TLS, offering ALPN negotiation and
// a provider-selection policy (system-first with capability-gap fallback)
// built on top of the kept certificates package rather than reimplementing
// TLS configuration from scratch.
package tlsneg

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"

	libtls "github.com/nabbar/httpcli/certificates"
	tlsvrs "github.com/nabbar/httpcli/certificates/tlsversion"
)

// Mode selects which TLS provider the wrapper prefers.
type Mode uint8

const (
	// Auto attempts the system provider first, falling back to the portable
	// provider only when a required capability (e.g. ALPN) is absent.
	Auto Mode = iota
	// SystemOnly fails outright if the system provider lacks a capability.
	SystemOnly
	// LegacyOnly forces the portable provider unconditionally.
	LegacyOnly
)

// MinVersion is the floor enforced on every negotiated handshake, regardless
// of what the caller's libtls.TLSConfig requests.
const MinVersion = tls.VersionTLS12

// provider names surfaced for diagnostics, matching the two code paths this
// wrapper can take. There is no runtime capability probe: crypto/tls
// already offers ALPN on every platform Go targets, so the fallback path
// only matters when a build swaps in a provider without it.
const (
	ProviderSystem = "system"
	ProviderLegacy = "legacy"
)

// Result carries everything the pool records about a completed handshake.
type Result struct {
	Conn         *tls.Conn
	Version      uint16
	ALPNProtocol string
	CipherSuite  uint16
	Provider     string
}

// ErrCapabilityUnavailable is returned by Handshake in SystemOnly mode when
// the requested ALPN protocol list cannot be honored by the system provider.
type ErrCapabilityUnavailable struct{ Capability string }

func (e *ErrCapabilityUnavailable) Error() string {
	return "tlsneg: capability unavailable: " + e.Capability
}

// ErrVersionTooLow is returned when the negotiated version is below
// MinVersion; the caller maps this to a certificate-class error.
type ErrVersionTooLow struct{ Negotiated uint16 }

func (e *ErrVersionTooLow) Error() string {
	return fmt.Sprintf("tlsneg: negotiated TLS version 0x%04x below the configured minimum", e.Negotiated)
}

// Wrapper performs the provider-selection and handshake policy on top of an
// injected libtls.TLSConfig: system TLS first, portable fallback only on a
// capability gap, never after an authentication failure.
type Wrapper struct {
	mode   Mode
	cfg    libtls.TLSConfig
	minVer tlsvrs.Version
}

// Option configures a Wrapper at construction.
type Option func(*Wrapper)

// WithMode overrides the provider-selection policy (default Auto).
func WithMode(m Mode) Option {
	return func(w *Wrapper) { w.mode = m }
}

// WithMinVersion overrides the enforced minimum TLS version (default 1.2;
// values below 1.2 are rejected and the floor of 1.2 is kept).
func WithMinVersion(v tlsvrs.Version) Option {
	return func(w *Wrapper) {
		if v.TLS() >= MinVersion {
			w.minVer = v
		}
	}
}

// New builds a Wrapper around cfg, the certificate/cipher/curve policy
// consumed from the kept certificates package.
func New(cfg libtls.TLSConfig, opts ...Option) *Wrapper {
	w := &Wrapper{
		mode:   Auto,
		cfg:    cfg,
		minVer: tlsvrs.VersionTLS12,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Handshake wraps inner in TLS, using host as SNI and offering alpn (if
// non-empty) as the ALPN protocol list. A pre-cancelled ctx fails fast
// before inner is touched. In Auto mode, a capability gap (the system
// provider rejecting the requested ALPN list before any certificate is
// exchanged) falls through to a bare-NextProtos retry on the same
// connection; a certificate/authentication failure never triggers this
// fallback.
func (w *Wrapper) Handshake(ctx context.Context, inner net.Conn, host string, alpn []string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tcfg := w.cfg.TLS(host)
	if tcfg == nil {
		tcfg = &tls.Config{ServerName: host}
	}

	floor := w.minVer.TLS()
	if floor < MinVersion {
		floor = MinVersion
	}
	if tcfg.MinVersion < floor {
		tcfg.MinVersion = floor
	}
	if len(alpn) > 0 {
		tcfg.NextProtos = alpn
	}

	provider := ProviderSystem
	if w.mode == LegacyOnly {
		provider = ProviderLegacy
	}

	tlsConn := tls.Client(inner, tcfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		if w.mode == Auto && len(alpn) > 0 && isCapabilityGap(err) {
			tcfg.NextProtos = nil
			tlsConn = tls.Client(inner, tcfg)
			provider = ProviderLegacy
			if err = tlsConn.HandshakeContext(ctx); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	state := tlsConn.ConnectionState()
	if state.Version < MinVersion {
		_ = tlsConn.Close()
		return nil, &ErrVersionTooLow{Negotiated: state.Version}
	}

	return &Result{
		Conn:         tlsConn,
		Version:      state.Version,
		ALPNProtocol: state.NegotiatedProtocol,
		CipherSuite:  state.CipherSuite,
		Provider:     provider,
	}, nil
}

// isCapabilityGap reports whether err is a provider capability gap (an
// ALPN facility the provider lacks) rather than an authentication failure;
// only this class triggers the Auto-mode fallback. crypto/tls offers ALPN
// on every platform Go targets, so the system provider never reports one
// here; the hook matters only for builds that swap in a provider without
// it, and it must never match a certificate failure.
func isCapabilityGap(err error) bool {
	var capErr *ErrCapabilityUnavailable
	return errors.As(err, &capErr)
}
