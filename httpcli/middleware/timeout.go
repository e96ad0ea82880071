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

	"github.com/nabbar/httpcli/httpcli/errkind"
	"github.com/nabbar/httpcli/httpcli/message"
	"github.com/nabbar/httpcli/httpcli/reqctx"
)

// Timeout wraps next in an additional linked cancellation bounded by the
// request's explicit timeout. The transport's own deadline handling is the
// canonical enforcement point (see httpcli/transport); this middleware
// exists for chains where a non-transport terminal (e.g. a test double or a
// future proxy dialer) is not itself a deadline authority. On expiry the
// failure surfaces as a Timeout error, never as a synthesized response: a
// deadline that fired before the caller's own token always reaches the
// caller through the error return.
func Timeout() Middleware {
	return func(next Next) Next {
		return func(ctx context.Context, req *message.Request, rc *reqctx.Context) (*message.Response, error) {
			d, explicit := req.Timeout()
			if !explicit || d <= 0 {
				return next(ctx, req, rc)
			}

			tctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			resp, err := next(tctx, req, rc)
			if err != nil && tctx.Err() != nil && ctx.Err() == nil {
				return nil, errkind.New(errkind.Timeout, "request timed out", err)
			}
			return resp, err
		}
	}
}
