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

// Package certificates holds the TLS material and version policy a client
// hands to the TLS wrapper: root CAs, client certificate pairs, and the
// min/max negotiated versions. A TLSConfig produces a fresh *tls.Config per
// handshake so a shared policy can serve many connections concurrently.
package certificates

import (
	"crypto/tls"
	"crypto/x509"

	tlsvrs "github.com/nabbar/httpcli/certificates/tlsversion"
)

// TLSConfig is the mutable TLS policy consumed by the TLS wrapper.
type TLSConfig interface {
	// TLS returns a fresh *tls.Config for dialing serverName, carrying the
	// registered root CAs, certificate pairs, and version bounds. The
	// returned config is the caller's to mutate.
	TLS(serverName string) *tls.Config

	// AddRootCA registers a parsed certificate as a trusted root.
	AddRootCA(rootCA *x509.Certificate) bool

	// AddRootCAString registers a PEM-encoded certificate (or bundle) as
	// trusted roots, reporting whether at least one was accepted.
	AddRootCAString(rootCA string) bool

	// AddCertificatePairString registers a PEM-encoded private key and
	// certificate as a client certificate pair.
	AddCertificatePairString(key, crt string) error

	// LenCertificatePair returns how many certificate pairs are registered.
	LenCertificatePair() int

	// SetVersionMin bounds the lowest acceptable negotiated version.
	SetVersionMin(vers tlsvrs.Version)

	// SetVersionMax bounds the highest acceptable negotiated version.
	// VersionUnknown removes the bound.
	SetVersionMax(vers tlsvrs.Version)

	// SetSkipVerify disables certificate chain verification. Only for
	// tests and explicitly-trusted private endpoints.
	SetSkipVerify(skip bool)
}

// New returns an empty TLSConfig with a TLS 1.2 minimum version and no
// maximum bound.
func New() TLSConfig {
	return &config{
		vmin: tlsvrs.VersionTLS12,
		vmax: tlsvrs.VersionUnknown,
	}
}
