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
	"time"

	libdur "github.com/nabbar/httpcli/duration"
	"github.com/nabbar/httpcli/httpcli/errkind"
	"github.com/nabbar/httpcli/httpcli/message"
	"github.com/nabbar/httpcli/httpcli/reqctx"
)

// RetryPolicy configures the Retry middleware's backoff. The shape mirrors
// github.com/hashicorp/go-retryablehttp's policy fields (max retries, a
// wait-min/wait-max bound, and a multiplicative backoff factor) without
// depending on that package, since this module owns response/error
// classification through the closed errkind taxonomy instead of a generic
// CheckRetry hook.
type RetryPolicy struct {
	MaxRetries          int
	InitialDelay        time.Duration
	MaxDelay            time.Duration
	BackoffMultiplier   float64
	OnlyRetryIdempotent bool
}

// DefaultRetryPolicy is a conservative default: three retries from a 1s
// initial wait up to an 8s ceiling (doubling each time, capped at 30s),
// restricted to idempotent methods — the same wait-min/wait-max shape as
// github.com/hashicorp/go-retryablehttp's own default client.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:          3,
		InitialDelay:        time.Second,
		MaxDelay:            30 * time.Second,
		BackoffMultiplier:   2.0,
		OnlyRetryIdempotent: true,
	}
}

// backoffSchedule paces the per-attempt retry delay from policy.InitialDelay
// up to the multiplicatively-derived ceiling (capped at policy.MaxDelay)
// using duration.Duration's PID-controlled RangeDefTo, the same ramp
// primitive the duration package exposes for any monotonic from-to pacing.
// The returned slice always has at least one element; an attempt index past
// the end reuses the last (largest) delay.
func backoffSchedule(policy RetryPolicy) []time.Duration {
	ceiling := policy.InitialDelay
	if policy.BackoffMultiplier > 0 {
		for i := 0; i < policy.MaxRetries; i++ {
			ceiling = time.Duration(float64(ceiling) * policy.BackoffMultiplier)
		}
	}
	if policy.MaxDelay > 0 && ceiling > policy.MaxDelay {
		ceiling = policy.MaxDelay
	}
	if ceiling < policy.InitialDelay {
		ceiling = policy.InitialDelay
	}

	paced := libdur.ParseDuration(policy.InitialDelay).RangeDefTo(libdur.ParseDuration(ceiling))
	schedule := make([]time.Duration, len(paced))
	for i, d := range paced {
		schedule[i] = d.Time()
	}
	return schedule
}

// Retry retries a request whose response status is 5xx or whose transport
// error is of a retryable errkind.Kind, growing the delay along
// backoffSchedule(policy) and stopping at policy.MaxRetries. Cancellation
// aborts further attempts immediately, and no retry is attempted for a
// non-idempotent method when OnlyRetryIdempotent is set.
func Retry(policy RetryPolicy) Middleware {
	schedule := backoffSchedule(policy)

	return func(next Next) Next {
		return func(ctx context.Context, req *message.Request, rc *reqctx.Context) (*message.Response, error) {
			if policy.OnlyRetryIdempotent && !req.Method().IsIdempotent() {
				return next(ctx, req, rc)
			}

			var resp *message.Response
			var err error

			for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
				resp, err = next(ctx, req, rc)

				if !shouldRetryResult(resp, err) {
					return resp, err
				}
				if attempt == policy.MaxRetries {
					return resp, err
				}

				delay := schedule[len(schedule)-1]
				if attempt < len(schedule) {
					delay = schedule[attempt]
				}

				select {
				case <-ctx.Done():
					return resp, err
				case <-time.After(delay):
				}
			}

			return resp, err
		}
	}
}

func shouldRetryResult(resp *message.Response, err error) bool {
	if err != nil {
		return errkind.KindOf(errkind.AsLibError(err)).IsRetryable()
	}
	if resp != nil && resp.StatusCode >= 500 {
		return true
	}
	return false
}
