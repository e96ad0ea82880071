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
	"strings"

	"github.com/nabbar/httpcli/httpcli/header"
	"github.com/nabbar/httpcli/httpcli/message"
	"github.com/nabbar/httpcli/httpcli/reqctx"
	"github.com/nabbar/httpcli/logger"
	logfld "github.com/nabbar/httpcli/logger/fields"
)

// Verbosity gates what the Logging middleware includes in its request/
// response lines, independent of the severity level the lines are
// emitted at.
type Verbosity uint8

const (
	// None disables the middleware's own logging entirely.
	None Verbosity = iota
	// Minimal logs method, URI, status, and elapsed time only.
	Minimal
	// Standard additionally logs the correlation id and request size.
	Standard
	// Detailed additionally captures headers and a bounded body preview.
	Detailed
)

// MaxBodyPreview bounds how many bytes of a body Detailed verbosity logs.
const MaxBodyPreview = 512

// Logging emits a line before and after next via log, gated by verbosity.
// log is a logger.FuncLog so the concrete Logger can be swapped or
// reconfigured without rebuilding the chain.
func Logging(log logger.FuncLog, verbosity Verbosity) Middleware {
	return func(next Next) Next {
		return func(ctx context.Context, req *message.Request, rc *reqctx.Context) (*message.Response, error) {
			if verbosity == None || log == nil {
				return next(ctx, req, rc)
			}

			lg := log()
			if lg == nil {
				return next(ctx, req, rc)
			}

			fields := logfld.New(ctx).
				Add("method", string(req.Method())).
				Add("uri", req.URI().String())

			if verbosity >= Standard {
				fields = fields.Add("request_id", rc.ID())
				fields = fields.Add("body_size", len(req.Body()))
			}
			if verbosity >= Detailed {
				headerPreview := make(map[string]string, req.Headers().Len())
				req.Headers().Each(func(e header.Entry) bool {
					if isSensitiveHeader(e.Name) {
						headerPreview[e.Name] = "<redacted>"
					} else {
						headerPreview[e.Name] = e.Value
					}
					return true
				})
				fields = fields.Add("headers", headerPreview)
				fields = fields.Add("body_preview", preview(req.Body()))
			}

			lg.Info("sending request", fields)

			resp, err := next(ctx, req, rc)

			out := fields.Add("elapsed", rc.Elapsed().String())
			if err != nil {
				out = out.Add("error", err.Error())
				lg.Error("request failed", out)
				return resp, err
			}

			out = out.Add("status", resp.StatusCode)
			if resp.StatusCode >= 500 {
				lg.Warning("request completed with server error", out)
			} else {
				lg.Info("request completed", out)
			}
			return resp, err
		}
	}
}

// isSensitiveHeader reports whether a header value carries a credential and
// must never reach a log line, whatever the verbosity.
func isSensitiveHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "proxy-authorization", "cookie", "set-cookie":
		return true
	default:
		return false
	}
}

func preview(body []byte) string {
	if len(body) > MaxBodyPreview {
		return string(body[:MaxBodyPreview])
	}
	return string(body)
}
