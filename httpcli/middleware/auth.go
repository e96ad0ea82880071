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

package middleware

import (
	"context"

	"github.com/nabbar/httpcli/httpcli/message"
	"github.com/nabbar/httpcli/httpcli/reqctx"
)

// TokenProvider supplies the credential used by the Auth middleware. It
// takes a context so an implementation may fetch or refresh the token
// asynchronously (e.g. against an OAuth token endpoint) without blocking
// the caller's own cancellation.
type TokenProvider interface {
	// Token returns the auth scheme (e.g. "Bearer") and the token value. An
	// empty token means no credential is currently available; the
	// middleware passes the request through unmodified in that case.
	Token(ctx context.Context) (scheme string, token string, err error)
}

// Auth sets the Authorization header from provider's current token. An
// empty token (or an error deriving one) passes the request through as-is
// rather than failing the request outright; the server is left to reject
// an unauthenticated request if one was actually required.
func Auth(provider TokenProvider) Middleware {
	return func(next Next) Next {
		return func(ctx context.Context, req *message.Request, rc *reqctx.Context) (*message.Response, error) {
			scheme, token, err := provider.Token(ctx)
			if err != nil || token == "" {
				return next(ctx, req, rc)
			}

			authed := req.WithHeader("Authorization", scheme+" "+token)
			if err := rc.UpdateRequest(authed); err != nil {
				return nil, err
			}
			return next(ctx, authed, rc)
		}
	}
}
