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

package certificates

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"sync"

	tlsvrs "github.com/nabbar/httpcli/certificates/tlsversion"
)

type config struct {
	mu sync.Mutex

	caRoot *x509.CertPool
	certs  []tls.Certificate

	vmin tlsvrs.Version
	vmax tlsvrs.Version
	skip bool
}

func (o *config) TLS(serverName string) *tls.Config {
	o.mu.Lock()
	defer o.mu.Unlock()

	cfg := &tls.Config{
		ServerName:         serverName,
		MinVersion:         o.vmin.TLS(),
		InsecureSkipVerify: o.skip, // nolint #nosec
	}

	if o.vmax != tlsvrs.VersionUnknown {
		cfg.MaxVersion = o.vmax.TLS()
	}

	if o.caRoot != nil {
		cfg.RootCAs = o.caRoot.Clone()
	}

	if len(o.certs) > 0 {
		cfg.Certificates = make([]tls.Certificate, len(o.certs))
		copy(cfg.Certificates, o.certs)
	}

	return cfg
}

func (o *config) AddRootCA(rootCA *x509.Certificate) bool {
	if rootCA == nil {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.caRoot == nil {
		o.caRoot = x509.NewCertPool()
	}
	o.caRoot.AddCert(rootCA)
	return true
}

func (o *config) AddRootCAString(rootCA string) bool {
	if rootCA == "" {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.caRoot == nil {
		o.caRoot = x509.NewCertPool()
	}
	return o.caRoot.AppendCertsFromPEM([]byte(rootCA))
}

func (o *config) AddCertificatePairString(key, crt string) error {
	c, err := tls.X509KeyPair([]byte(crt), []byte(key))
	if err != nil {
		return fmt.Errorf("certificates: loading pair: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.certs = append(o.certs, c)
	return nil
}

func (o *config) LenCertificatePair() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.certs)
}

func (o *config) SetVersionMin(vers tlsvrs.Version) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if vers == tlsvrs.VersionUnknown {
		vers = tlsvrs.VersionTLS12
	}
	o.vmin = vers
}

func (o *config) SetVersionMax(vers tlsvrs.Version) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.vmax = vers
}

func (o *config) SetSkipVerify(skip bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.skip = skip
}
