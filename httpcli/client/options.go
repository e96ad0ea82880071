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

// Package client is the public facade: it wires the dialer, TLS wrapper,
// connection pool, transport, and middleware chain into a Client, and
// exposes the fluent RequestBuilder callers actually use.
package client

import (
	"encoding/json"
	"time"

	libval "github.com/go-playground/validator/v10"

	libtls "github.com/nabbar/httpcli/certificates"
	libdur "github.com/nabbar/httpcli/duration"
	liberr "github.com/nabbar/httpcli/errors"
	"github.com/nabbar/httpcli/httpcli/adaptive"
	"github.com/nabbar/httpcli/httpcli/dialer"
	"github.com/nabbar/httpcli/httpcli/message"
	"github.com/nabbar/httpcli/httpcli/middleware"
	"github.com/nabbar/httpcli/httpcli/pool"
	"github.com/nabbar/httpcli/httpcli/quality"
	"github.com/nabbar/httpcli/httpcli/tlsneg"
	"github.com/nabbar/httpcli/logger"
)

// ErrOptionsValidation roots the Options.Validate() error family.
const ErrOptionsValidation uint16 = liberr.MinPkgHttpCli + 1

// Options configures a Client. BaseURL anchors every relative uri passed to
// Client's verb methods; when EnableAdaptive is false, DefaultTimeout seeds
// every request's timeout unless overridden per-request via
// RequestBuilder.WithTimeout (with the adaptive adviser installed, it is not
// applied and the adviser supplies the timeout).
type Options struct {
	BaseURL         string            `json:"base_url" yaml:"base_url" toml:"base_url" validate:"omitempty,url"`
	DefaultTimeout  libdur.Duration   `json:"default_timeout" yaml:"default_timeout" toml:"default_timeout" validate:"gte=0"`
	DefaultHeaders  map[string]string `json:"default_headers" yaml:"default_headers" toml:"default_headers"`
	OverrideHeaders bool              `json:"override_headers" yaml:"override_headers" toml:"override_headers"`

	TLS           libtls.TLSConfig `json:"-" yaml:"-" toml:"-" validate:"required"`
	TLSMode       tlsneg.Mode      `json:"tls_mode" yaml:"tls_mode" toml:"tls_mode"`
	ALPNProtocols []string         `json:"alpn_protocols" yaml:"alpn_protocols" toml:"alpn_protocols"`

	DialerOptions dialer.Options `json:"dialer" yaml:"dialer" toml:"dialer"`
	DNSServer     string         `json:"dns_server" yaml:"dns_server" toml:"dns_server"`

	PerAuthorityLimit int64           `json:"per_authority_limit" yaml:"per_authority_limit" toml:"per_authority_limit" validate:"gte=0"`
	MaxAuthorities    int             `json:"max_authorities" yaml:"max_authorities" toml:"max_authorities" validate:"gte=0"`
	IdleTimeout       libdur.Duration `json:"idle_timeout" yaml:"idle_timeout" toml:"idle_timeout" validate:"gte=0"`

	EnableAdaptive bool             `json:"enable_adaptive" yaml:"enable_adaptive" toml:"enable_adaptive"`
	AdaptivePolicy adaptive.Policy  `json:"-" yaml:"-" toml:"-"`
	QualityOptions []quality.Option `json:"-" yaml:"-" toml:"-"`

	RetryPolicy middleware.RetryPolicy `json:"-" yaml:"-" toml:"-"`
	EnableRetry bool                   `json:"enable_retry" yaml:"enable_retry" toml:"enable_retry"`

	AuthProvider middleware.TokenProvider `json:"-" yaml:"-" toml:"-"`

	Logger           logger.FuncLog       `json:"-" yaml:"-" toml:"-"`
	LoggingVerbosity middleware.Verbosity `json:"logging_verbosity" yaml:"logging_verbosity" toml:"logging_verbosity"`

	MetricsNamespace string `json:"metrics_namespace" yaml:"metrics_namespace" toml:"metrics_namespace"`
	EnableMetrics    bool   `json:"enable_metrics" yaml:"enable_metrics" toml:"enable_metrics"`

	BodyCodec message.BodyCodec `json:"-" yaml:"-" toml:"-"`

	Middlewares []middleware.Middleware `json:"-" yaml:"-" toml:"-"`

	UsePooledTimeline bool `json:"use_pooled_timeline" yaml:"use_pooled_timeline" toml:"use_pooled_timeline"`
}

// DefaultOptions returns an Options seeded with the package's conservative
// defaults: the standard TLS config, Happy Eyeballs dialer defaults, the
// pool's defaults, and adaptive/retry/metrics disabled.
func DefaultOptions() Options {
	return Options{
		DefaultTimeout:    libdur.ParseDuration(30 * time.Second),
		TLS:               libtls.New(),
		TLSMode:           tlsneg.Auto,
		DialerOptions:     dialer.DefaultOptions(),
		PerAuthorityLimit: pool.DefaultPerAuthorityLimit,
		MaxAuthorities:    pool.DefaultMaxAuthorities,
		IdleTimeout:       libdur.ParseDuration(pool.DefaultIdleTimeout),
		AdaptivePolicy:    adaptive.DefaultPolicy(),
		RetryPolicy:       middleware.DefaultRetryPolicy(),
		LoggingVerbosity:  middleware.None,
		BodyCodec:         message.DefaultBodyCodec{},
	}
}

// DefaultConfig returns an indented JSON rendering of DefaultOptions,
// usable as a starting configuration file.
func DefaultConfig(indent string) []byte {
	b, err := json.MarshalIndent(DefaultOptions(), "", indent)
	if err != nil {
		return nil
	}
	return b
}

// Validate checks Options against its struct tags with
// go-playground/validator.
func (o Options) Validate() liberr.Error {
	e := liberr.New(ErrOptionsValidation, "client options validation")

	if err := libval.New().Struct(o); err != nil {
		if er, ok := err.(*libval.InvalidValidationError); ok {
			e = liberr.New(ErrOptionsValidation, "client options validation", er)
		} else if errs, ok := err.(libval.ValidationErrors); ok {
			parents := make([]error, 0, len(errs))
			for _, er := range errs {
				parents = append(parents, er)
			}
			e = liberr.New(ErrOptionsValidation, "client options validation", parents...)
		}
	}

	if !e.HasParent() {
		return nil
	}
	return e
}
