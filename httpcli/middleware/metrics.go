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
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nabbar/httpcli/httpcli/message"
	"github.com/nabbar/httpcli/httpcli/reqctx"
)

// Metrics tracks request counters, per-host/per-status breakdowns, byte
// totals, and a running average response time, both as plain atomics (for
// cheap in-process reads via Snapshot) and as Prometheus collectors (for a
// caller that wants to scrape them). Collectors are constructed with
// prometheus.New*Vec rather than promauto, since promauto registers into
// the global default registry on package init, which is wrong for a type a
// caller may instantiate more than once (e.g. one Metrics per Client); the
// caller decides if and where to register via Collectors().
type Metrics struct {
	total   atomic.Int64
	success atomic.Int64
	failed  atomic.Int64

	bytesSent     atomic.Int64
	bytesReceived atomic.Int64

	elapsedSumNanos atomic.Int64
	elapsedCount    atomic.Int64

	reqTotal    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
	bytesVec    *prometheus.CounterVec
}

// NewMetrics builds a Metrics collector. namespace prefixes every
// Prometheus metric name (e.g. "httpcli").
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total requests sent, by host and outcome status.",
		}, []string{"host", "status"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request duration in seconds, by host.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"}),
		bytesVec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transferred_bytes_total",
			Help:      "Bytes transferred, by direction (sent/received).",
		}, []string{"direction"}),
	}
}

// Collectors returns every Prometheus collector this Metrics owns, for a
// caller to register with its own prometheus.Registerer.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.reqTotal, m.reqDuration, m.bytesVec}
}

// Snapshot is a point-in-time, allocation-cheap read of the atomic counters.
type Snapshot struct {
	Total, Success, Failed   int64
	BytesSent, BytesReceived int64
	AverageResponseTime      time.Duration
}

// Snapshot reads the current counters without perturbing them.
func (m *Metrics) Snapshot() Snapshot {
	count := m.elapsedCount.Load()
	var avg time.Duration
	if count > 0 {
		avg = time.Duration(m.elapsedSumNanos.Load() / count)
	}
	return Snapshot{
		Total:               m.total.Load(),
		Success:             m.success.Load(),
		Failed:              m.failed.Load(),
		BytesSent:           m.bytesSent.Load(),
		BytesReceived:       m.bytesReceived.Load(),
		AverageResponseTime: avg,
	}
}

// Middleware returns the chain Middleware that records every request this
// Metrics observes. The exception path increments the failure counter
// before the error propagates.
func (m *Metrics) Middleware() Middleware {
	return func(next Next) Next {
		return func(ctx context.Context, req *message.Request, rc *reqctx.Context) (*message.Response, error) {
			host := hostOf(req.URI())
			sent := int64(len(req.Body()))

			m.total.Add(1)
			m.bytesSent.Add(sent)
			m.bytesVec.WithLabelValues("sent").Add(float64(sent))

			start := time.Now()
			resp, err := next(ctx, req, rc)
			elapsed := time.Since(start)

			m.elapsedSumNanos.Add(elapsed.Nanoseconds())
			m.elapsedCount.Add(1)
			m.reqDuration.WithLabelValues(host).Observe(elapsed.Seconds())

			if err != nil {
				m.failed.Add(1)
				m.reqTotal.WithLabelValues(host, "error").Inc()
				return resp, err
			}

			received := int64(len(resp.Body))
			m.bytesReceived.Add(received)
			m.bytesVec.WithLabelValues("received").Add(float64(received))
			m.reqTotal.WithLabelValues(host, strconv.Itoa(resp.StatusCode)).Inc()

			if resp.IsSuccess() {
				m.success.Add(1)
			} else {
				m.failed.Add(1)
			}

			return resp, nil
		}
	}
}

func hostOf(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Hostname()
}
