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
	"net/url"
	"time"

	liberr "github.com/nabbar/httpcli/errors"
	"github.com/nabbar/httpcli/httpcli/errkind"
	"github.com/nabbar/httpcli/httpcli/message"
	"github.com/nabbar/httpcli/httpcli/reqctx"
)

// RequestBuilder accumulates a request's headers, body, timeout, and
// context before Build or Send finalizes it. Every With* method returns the
// same builder (not a copy) for chaining; a construction error recorded
// early (e.g. an unparsable uri) is surfaced by Build/Send rather than
// panicking.
type RequestBuilder struct {
	client *Client
	method message.Method
	uri    *url.URL
	ctx    context.Context

	headers         map[string]string
	body            []byte
	timeout         time.Duration
	explicitTimeout bool

	err error
}

// WithHeader sets a single header on the eventual request.
func (b *RequestBuilder) WithHeader(name, value string) *RequestBuilder {
	if b.headers == nil {
		b.headers = make(map[string]string, 4)
	}
	b.headers[name] = value
	return b
}

// WithHeaders merges h into the eventual request's headers.
func (b *RequestBuilder) WithHeaders(h map[string]string) *RequestBuilder {
	if b.headers == nil {
		b.headers = make(map[string]string, len(h))
	}
	for k, v := range h {
		b.headers[k] = v
	}
	return b
}

// WithBody sets the raw request body.
func (b *RequestBuilder) WithBody(body []byte) *RequestBuilder {
	b.body = body
	return b
}

// WithJSONBody encodes v with the Client's configured BodyCodec, sets it as
// the body, and sets Content-Type to application/json unless the caller
// already set one.
func (b *RequestBuilder) WithJSONBody(v any) *RequestBuilder {
	if b.err != nil {
		return b
	}
	data, err := b.client.codec.Encode(v)
	if err != nil {
		b.err = errkind.New(errkind.InvalidRequest, "encoding json body", err)
		return b
	}
	b.body = data
	if _, ok := b.headers["Content-Type"]; !ok {
		return b.WithHeader("Content-Type", "application/json")
	}
	return b
}

// WithTimeout pins an explicit per-request timeout, overriding the Client's
// default and any adaptive adjustment.
func (b *RequestBuilder) WithTimeout(d time.Duration) *RequestBuilder {
	b.timeout = d
	b.explicitTimeout = true
	return b
}

// WithContext sets the context Send uses; Build ignores it (Build returns a
// context-free message.Request). Defaults to context.Background().
func (b *RequestBuilder) WithContext(ctx context.Context) *RequestBuilder {
	b.ctx = ctx
	return b
}

// Build finalizes the accumulated state into an immutable message.Request,
// without sending it.
func (b *RequestBuilder) Build() (*message.Request, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.uri == nil {
		return nil, liberr.New(ErrInvalidBaseURL, "request uri is nil", nil)
	}

	req := message.NewRequest(b.method, b.uri)
	for k, v := range b.headers {
		req = req.WithHeader(k, v)
	}
	if b.body != nil {
		req = req.WithBody(b.body)
	}

	if b.explicitTimeout {
		req = req.WithTimeout(b.timeout)
	} else if b.client.adviser == nil && b.client.defaultTimeout > 0 {
		// No adaptive adviser is installed to translate "no override" into a
		// baseline-derived timeout, so the client's configured default is
		// applied directly. When adviser != nil, its own Policy.BaselineTimeout
		// plays this role and an explicit request here would wrongly bypass
		// quality-based scaling.
		req = req.WithTimeout(b.client.defaultTimeout)
	}

	return req, nil
}

// Send builds the request and runs it through the Client's middleware
// chain and transport, disposing the per-request reqctx.Context exactly
// once regardless of outcome.
func (b *RequestBuilder) Send() (*message.Response, error) {
	req, err := b.Build()
	if err != nil {
		return nil, err
	}

	ctx := b.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	rc := reqctx.New(req, b.client.usePooling)
	defer rc.Dispose()

	return b.client.chain.Invoke(ctx, req, rc)
}
