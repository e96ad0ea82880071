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

// Package quality implements the online network-quality detector: a bounded
// ring buffer of attempt outcomes feeding an EWMA latency estimate, running
// timeout/success ratios, and a hysteresis-gated quality classification
// consumed by the adaptive middleware.
package quality

import (
	"sync"
	"time"

	"github.com/VividCortex/ewma"
)

// Level is the classified network-quality band.
type Level uint8

const (
	Poor Level = iota
	Fair
	Good
	Excellent
)

// String renders a human-readable band name.
func (l Level) String() string {
	switch l {
	case Excellent:
		return "Excellent"
	case Good:
		return "Good"
	case Fair:
		return "Fair"
	default:
		return "Poor"
	}
}

// Sample is one completed attempt's outcome, as fed back by the transport
// or the adaptive middleware on request completion.
type Sample struct {
	LatencyMS           float64
	TotalDurationMS     float64
	WasTimeout          bool
	WasTransportFailure bool
	BytesTransferred    int64
	WasSuccess          bool
}

// Thresholds holds the classification boundaries for each band. Defaults
// match the canonical table: Excellent <120ms & <1% timeouts & >=99%
// success; Good <300ms & <3% & >=97%; Fair <900ms & <8% & >=90%; else Poor.
type Thresholds struct {
	ExcellentLatencyMS, ExcellentTimeoutRatio, ExcellentSuccessRatio float64
	GoodLatencyMS, GoodTimeoutRatio, GoodSuccessRatio                float64
	FairLatencyMS, FairTimeoutRatio, FairSuccessRatio                float64
}

// DefaultThresholds returns the canonical classification table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExcellentLatencyMS: 120, ExcellentTimeoutRatio: 0.01, ExcellentSuccessRatio: 0.99,
		GoodLatencyMS: 300, GoodTimeoutRatio: 0.03, GoodSuccessRatio: 0.97,
		FairLatencyMS: 900, FairTimeoutRatio: 0.08, FairSuccessRatio: 0.90,
	}
}

func (t Thresholds) classify(latencyMS, timeoutRatio, successRatio float64) Level {
	switch {
	case latencyMS < t.ExcellentLatencyMS && timeoutRatio < t.ExcellentTimeoutRatio && successRatio >= t.ExcellentSuccessRatio:
		return Excellent
	case latencyMS < t.GoodLatencyMS && timeoutRatio < t.GoodTimeoutRatio && successRatio >= t.GoodSuccessRatio:
		return Good
	case latencyMS < t.FairLatencyMS && timeoutRatio < t.FairTimeoutRatio && successRatio >= t.FairSuccessRatio:
		return Fair
	default:
		return Poor
	}
}

// Snapshot is an allocation-free, lock-released view of the detector's
// current state, safe to read without perturbing it.
type Snapshot struct {
	Level        Level
	LatencyMS    float64
	TimeoutRatio float64
	SuccessRatio float64
	SampleCount  int
}

// Detector is the bounded-ring-buffer, EWMA-backed quality classifier.
// The zero value is not usable; build one with New.
type Detector struct {
	mu sync.RWMutex

	thresholds  Thresholds
	hysteresisK int

	ring     []Sample
	capacity int
	head     int
	count    int

	latencyEWMA ewma.MovingAverage
	latencySum  float64
	ewmaAdds    int

	timeoutCount int
	successCount int

	level        Level
	betterStreak int
}

// Option configures a Detector at construction.
type Option func(*Detector)

// WithThresholds overrides the classification table.
func WithThresholds(t Thresholds) Option {
	return func(d *Detector) { d.thresholds = t }
}

// WithHysteresis sets K, the number of consecutive better-band windows
// required before the detector promotes. K < 1 is treated as 1.
func WithHysteresis(k int) Option {
	return func(d *Detector) {
		if k < 1 {
			k = 1
		}
		d.hysteresisK = k
	}
}

// New builds a Detector with the given ring-buffer capacity (default 64 if
// capacity <= 0) and options applied in order.
func New(capacity int, opts ...Option) *Detector {
	if capacity <= 0 {
		capacity = 64
	}

	d := &Detector{
		thresholds:  DefaultThresholds(),
		hysteresisK: 3,
		ring:        make([]Sample, capacity),
		capacity:    capacity,
		latencyEWMA: ewma.NewMovingAverage(),
		level:       Good,
	}

	for _, o := range opts {
		o(d)
	}

	return d
}

// Record appends s to the ring buffer (evicting the oldest sample once
// full), recomputes the EWMA latency and running ratios, and reclassifies
// with hysteresis applied to promotions only; demotions are immediate.
func (d *Detector) Record(s Sample) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.count == d.capacity {
		evicted := d.ring[d.head]
		if evicted.WasTimeout {
			d.timeoutCount--
		}
		if evicted.WasSuccess {
			d.successCount--
		}
		d.latencySum -= evicted.LatencyMS
	} else {
		d.count++
	}

	d.ring[d.head] = s
	d.head = (d.head + 1) % d.capacity

	if s.WasTimeout {
		d.timeoutCount++
	}
	if s.WasSuccess {
		d.successCount++
	}
	d.latencySum += s.LatencyMS

	d.latencyEWMA.Add(s.LatencyMS)
	d.ewmaAdds++

	timeoutRatio := ratio(d.timeoutCount, d.count)
	successRatio := ratio(d.successCount, d.count)
	classified := d.thresholds.classify(d.latencyLocked(), timeoutRatio, successRatio)

	switch {
	case classified < d.level:
		// Demotion to a worse band is immediate.
		d.level = classified
		d.betterStreak = 0
	case classified > d.level:
		d.betterStreak++
		if d.betterStreak >= d.hysteresisK {
			d.level = classified
			d.betterStreak = 0
		}
	default:
		d.betterStreak = 0
	}
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// latencyLocked returns the EWMA latency estimate, substituting the plain
// window mean while the EWMA is still inside its warm-up (it reads zero
// until WARMUP_SAMPLES values have been added, which would otherwise make
// a slow early window classify as fast). Caller must hold d.mu.
func (d *Detector) latencyLocked() float64 {
	if d.ewmaAdds <= int(ewma.WARMUP_SAMPLES) {
		if d.count == 0 {
			return 0
		}
		return d.latencySum / float64(d.count)
	}
	return d.latencyEWMA.Value()
}

// Snapshot returns the detector's current classification and statistics
// without mutating state.
func (d *Detector) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return Snapshot{
		Level:        d.level,
		LatencyMS:    d.latencyLocked(),
		TimeoutRatio: ratio(d.timeoutCount, d.count),
		SuccessRatio: ratio(d.successCount, d.count),
		SampleCount:  d.count,
	}
}

// Now returns the current monotonic-safe instant used for latency
// measurement call sites; callers subtract two Now() values with
// time.Since/Sub to get a monotonic-clock-backed duration.
func Now() time.Time {
	return time.Now()
}
