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

// Package adaptive turns a quality.Detector's classification into concrete
// per-request adjustments: timeout scaling, a concurrency hint enforced
// through a token-bucket limiter, retry backoff scaling, and a cache
// preference hint. It is the only consumer of the quality package's
// Snapshot on the request path.
package adaptive

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/nabbar/httpcli/httpcli/quality"
)

// CachePreference hints how strongly a caller-side cache layer should favor
// a cached response over a fresh round trip. This package never touches a
// cache itself; it only classifies the preference for the caller to apply.
type CachePreference uint8

const (
	CacheNormal CachePreference = iota
	CachePreferCached
	CacheStronglyPreferCached
)

func (c CachePreference) String() string {
	switch c {
	case CachePreferCached:
		return "PreferCached"
	case CacheStronglyPreferCached:
		return "StronglyPreferCached"
	default:
		return "Normal"
	}
}

// factors holds the per-band multipliers/deltas from the quality adaptation
// table: timeout is a multiplier on Policy.BaselineTimeout, concurrency is a
// delta applied to Policy.BaselineConcurrency, backoff is a multiplier
// applied to a caller-supplied base retry delay, and cache is the resulting
// preference.
type factors struct {
	timeoutMultiplier float64
	concurrencyDelta  int
	backoffMultiplier float64
	cache             CachePreference
}

var table = map[quality.Level]factors{
	quality.Excellent: {timeoutMultiplier: 0.8, concurrencyDelta: 1, backoffMultiplier: 0.8, cache: CacheNormal},
	quality.Good:      {timeoutMultiplier: 1.0, concurrencyDelta: 0, backoffMultiplier: 1.0, cache: CacheNormal},
	quality.Fair:      {timeoutMultiplier: 1.5, concurrencyDelta: -1, backoffMultiplier: 1.5, cache: CachePreferCached},
	quality.Poor:      {timeoutMultiplier: 2.0, concurrencyDelta: -2, backoffMultiplier: 2.5, cache: CacheStronglyPreferCached},
}

// Policy bounds and seeds the adaptation. MinTimeout/MaxTimeout clamp the
// adapted timeout regardless of band; BaselineConcurrency/BaselineTimeout
// are the Good-band reference values the table's deltas and multipliers
// apply against.
type Policy struct {
	BaselineTimeout     time.Duration
	MinTimeout          time.Duration
	MaxTimeout          time.Duration
	BaselineConcurrency int
	MinConcurrency      int
}

// DefaultPolicy mirrors the canonical defaults: a 30s baseline timeout
// clamped to [1s, 2m], and a baseline concurrency of 4 never dropping below 1.
func DefaultPolicy() Policy {
	return Policy{
		BaselineTimeout:     30 * time.Second,
		MinTimeout:          1 * time.Second,
		MaxTimeout:          2 * time.Minute,
		BaselineConcurrency: 4,
		MinConcurrency:      1,
	}
}

// Advice is the computed adjustment for one request, derived from a
// quality.Snapshot at the moment the request started.
type Advice struct {
	Timeout         time.Duration
	Concurrency     int
	BackoffFactor   float64
	CachePreference CachePreference
	Level           quality.Level
}

// Adviser couples a quality.Detector to a Policy and a rate.Limiter whose
// burst tracks the adapted concurrency hint. It is safe for concurrent use;
// the Detector and Limiter each hold their own internal locking.
type Adviser struct {
	detector *quality.Detector
	policy   Policy
	limiter  *rate.Limiter
}

// New builds an Adviser over detector using policy. The limiter starts at
// policy.BaselineConcurrency permits/second with a matching burst, since the
// quality band is unknown (assumed Good) until the first samples arrive.
func New(detector *quality.Detector, policy Policy) *Adviser {
	n := policy.BaselineConcurrency
	if n < policy.MinConcurrency {
		n = policy.MinConcurrency
	}
	return &Adviser{
		detector: detector,
		policy:   policy,
		limiter:  rate.NewLimiter(rate.Limit(n), n),
	}
}

// Advise computes the adjustment for the current quality snapshot. baseTimeout
// and baseTimeoutExplicit come from the request's own Timeout(): when
// explicit is true, the caller already pinned a timeout and Advise returns it
// unmodified (no scaling, no clamping) since an explicit per-request override
// always wins over adaptation.
func (a *Adviser) Advise(baseTimeout time.Duration, baseTimeoutExplicit bool) Advice {
	snap := a.detector.Snapshot()
	f, ok := table[snap.Level]
	if !ok {
		f = table[quality.Good]
	}

	adv := Advice{Level: snap.Level, CachePreference: f.cache, BackoffFactor: f.backoffMultiplier}

	if baseTimeoutExplicit {
		adv.Timeout = baseTimeout
	} else {
		t := time.Duration(float64(a.policy.BaselineTimeout) * f.timeoutMultiplier)
		adv.Timeout = clamp(t, a.policy.MinTimeout, a.policy.MaxTimeout)
	}

	c := a.policy.BaselineConcurrency + f.concurrencyDelta
	if c < a.policy.MinConcurrency {
		c = a.policy.MinConcurrency
	}
	adv.Concurrency = c

	a.updateLimiter(c)

	return adv
}

func (a *Adviser) updateLimiter(concurrency int) {
	a.limiter.SetBurst(concurrency)
	a.limiter.SetLimit(rate.Limit(concurrency))
}

// Wait blocks until the adviser's concurrency limiter admits one request, or
// returns ctx.Err() if ctx is done first.
func (a *Adviser) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Observe feeds a completed request's outcome back into the underlying
// quality.Detector. latency is the time to first byte (or total duration if
// the transport does not distinguish the two); wasTimeout and
// wasTransportFailure classify the failure mode when err != nil. An empty or
// nil response body is not itself treated as a failure.
func (a *Adviser) Observe(latency, total time.Duration, wasTimeout, wasTransportFailure bool, bytesTransferred int64, err error) {
	a.detector.Record(quality.Sample{
		LatencyMS:           float64(latency.Microseconds()) / 1000.0,
		TotalDurationMS:     float64(total.Microseconds()) / 1000.0,
		WasTimeout:          wasTimeout,
		WasTransportFailure: wasTransportFailure,
		BytesTransferred:    bytesTransferred,
		WasSuccess:          err == nil,
	})
}

func clamp(d, min, max time.Duration) time.Duration {
	if min > 0 && d < min {
		return min
	}
	if max > 0 && d > max {
		return max
	}
	return d
}
