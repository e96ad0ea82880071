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

// Package message defines the immutable Request and Response value objects
// exchanged between the middleware chain and the transport, plus the
// external collaborator contracts (body codec, multipart builder) the core
// consumes but does not implement.
package message

import (
	"fmt"
	"net/url"
	"time"

	"github.com/nabbar/httpcli/httpcli/header"
)

// Request is an immutable record of one outbound HTTP request. Every
// "with-*" mutator returns a new Request; the receiver is never modified.
type Request struct {
	method  Method
	uri     *url.URL
	headers *header.Store
	body    []byte
	timeout time.Duration

	explicitTimeout bool
}

// NewRequest builds a Request for method against the given absolute URI.
// uri must already be parsed and absolute; callers that only have a string
// should use url.Parse first so parse errors are surfaced explicitly rather
// than folded into InvalidRequest at serialization time.
func NewRequest(method Method, uri *url.URL) *Request {
	return &Request{
		method:  method,
		uri:     uri,
		headers: header.New(),
	}
}

// Method returns the request method.
func (r *Request) Method() Method {
	if r == nil {
		return ""
	}
	return r.method
}

// URI returns the absolute request URI.
func (r *Request) URI() *url.URL {
	if r == nil {
		return nil
	}
	return r.uri
}

// Headers returns the header store. Callers must treat it as read-only;
// use WithHeader/WithHeaders to produce a mutated Request.
func (r *Request) Headers() *header.Store {
	if r == nil {
		return header.New()
	}
	return r.headers
}

// Body returns the request body, or nil if none was set.
func (r *Request) Body() []byte {
	if r == nil {
		return nil
	}
	return r.body
}

// Timeout returns the request's explicit timeout and whether it was set.
// A zero Duration with explicit=false means no override: the client's
// default or the adaptive policy's computed value applies.
func (r *Request) Timeout() (d time.Duration, explicit bool) {
	if r == nil {
		return 0, false
	}
	return r.timeout, r.explicitTimeout
}

func (r *Request) clone() *Request {
	n := &Request{
		method:          r.method,
		uri:             r.uri,
		headers:         r.headers.Clone(),
		timeout:         r.timeout,
		explicitTimeout: r.explicitTimeout,
	}
	if r.body != nil {
		n.body = append([]byte(nil), r.body...)
	}
	return n
}

// WithHeader returns a copy of r with name set to value, replacing any
// existing values for name (see header.Store.Set).
func (r *Request) WithHeader(name, value string) *Request {
	n := r.clone()
	n.headers.Set(name, value)
	return n
}

// WithHeaders returns a copy of r with every (name, value) pair in kv set.
func (r *Request) WithHeaders(kv map[string]string) *Request {
	n := r.clone()
	for name, value := range kv {
		n.headers.Set(name, value)
	}
	return n
}

// WithBody returns a copy of r carrying body verbatim. body is copied so
// later mutation of the caller's slice cannot change the request.
func (r *Request) WithBody(body []byte) *Request {
	n := r.clone()
	if body != nil {
		n.body = append([]byte(nil), body...)
	} else {
		n.body = nil
	}
	return n
}

// WithJSONBody encodes v with codec and sets the request body and
// Content-Type header accordingly. Encoding errors are returned directly so
// the caller (or the client facade) can map them to InvalidRequest.
func (r *Request) WithJSONBody(v any, codec BodyCodec) (*Request, error) {
	b, err := codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	n := r.clone()
	n.body = b
	if !n.headers.Contains("Content-Type") {
		n.headers.Set("Content-Type", "application/json")
	}
	return n, nil
}

// WithTimeout returns a copy of r with an explicit per-request timeout. A
// field set this way is never overridden by the adaptive middleware.
func (r *Request) WithTimeout(d time.Duration) *Request {
	n := r.clone()
	n.timeout = d
	n.explicitTimeout = true
	return n
}
