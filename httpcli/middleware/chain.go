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

// Package middleware implements the request pipeline: an ordered list of
// middleware folded, once per client, into a single callable terminated by
// the transport. Each middleware may mutate the request before calling
// next, observe or mutate the response after, or short-circuit the chain
// entirely.
package middleware

import (
	"context"

	"github.com/nabbar/httpcli/httpcli/message"
	"github.com/nabbar/httpcli/httpcli/reqctx"
)

// Next represents the remainder of the chain from a middleware's point of
// view: calling it runs every later middleware, then the transport.
type Next func(ctx context.Context, req *message.Request, rc *reqctx.Context) (*message.Response, error)

// Middleware wraps a Next into a new Next that runs this middleware's logic
// around the call.
type Middleware func(next Next) Next

// Chain is a compiled middleware pipeline: immutable once built, safe for
// concurrent use by every request the client sends.
type Chain struct {
	handler Next
}

// NewChain folds mws right-to-left starting from terminal (the transport),
// so the resulting handler runs mws[0] first and terminal last, exactly the
// traversal order described for the middleware runtime: request traversal
// mws[0]→mws[1]→...→terminal, response traversal in reverse.
func NewChain(terminal Next, mws ...Middleware) *Chain {
	h := terminal
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return &Chain{handler: h}
}

// Invoke runs the compiled chain for one request.
func (c *Chain) Invoke(ctx context.Context, req *message.Request, rc *reqctx.Context) (*message.Response, error) {
	return c.handler(ctx, req, rc)
}
