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

package adaptive

import (
	"context"
	"time"

	"github.com/nabbar/httpcli/httpcli/errkind"
	"github.com/nabbar/httpcli/httpcli/message"
	"github.com/nabbar/httpcli/httpcli/middleware"
	"github.com/nabbar/httpcli/httpcli/reqctx"
)

// Middleware returns a chain middleware that, on the way in, waits for the
// adviser's concurrency limiter and (unless the request pins an explicit
// timeout) applies the adapted timeout via req.WithTimeout; on the way out,
// it feeds the outcome back into the underlying quality.Detector.
//
// Place it before Timeout in the chain so the adapted value is what Timeout
// actually enforces.
func (a *Adviser) Middleware() middleware.Middleware {
	return func(next middleware.Next) middleware.Next {
		return func(ctx context.Context, req *message.Request, rc *reqctx.Context) (*message.Response, error) {
			base, explicit := req.Timeout()
			adv := a.Advise(base, explicit)

			if !explicit {
				adapted := req.WithTimeout(adv.Timeout)
				if err := rc.UpdateRequest(adapted); err != nil {
					return nil, err
				}
				req = adapted
			}

			if err := a.Wait(ctx); err != nil {
				return nil, errkind.New(errkind.Cancelled, "adaptive concurrency limiter", err)
			}

			start := time.Now()
			resp, err := next(ctx, req, rc)
			total := time.Since(start)

			var bytes int64
			if resp != nil {
				bytes = int64(len(resp.Body))
			}

			wasTimeout := err != nil && errkind.KindOf(errkind.AsLibError(err)) == errkind.Timeout
			wasTransport := err != nil && errkind.KindOf(errkind.AsLibError(err)) == errkind.NetworkError

			a.Observe(total, total, wasTimeout, wasTransport, bytes, err)

			return resp, err
		}
	}
}
