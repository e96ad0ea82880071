/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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
 */

package pidcontroller

import (
	"context"
	"math"
)

const (
	maxSteps    = 4096
	minFraction = 1e-6
)

// RangeCtx paces a sequence of sample points from 'from' to 'to' using the
// PID loop: the step size reacts to the remaining error (proportional),
// the accumulated error (integral) and the change in error since the last
// step (derivative). The sequence is always non-decreasing and always
// terminates: a step that would stall or reverse progress (zero, negative,
// NaN or infinite gains) falls back to a fixed fraction of the total span.
//
// The returned slice always starts at 'from'; the caller is responsible for
// appending 'to' if the walk did not reach it exactly (it always does here,
// but duration.Duration.RangeCtxTo/RangeCtxFrom pad defensively regardless).
// Cancelling ctx stops the walk early and appends 'to' before returning.
func (p *PID) RangeCtx(ctx context.Context, from, to float64) []float64 {
	out := []float64{from}

	if to <= from {
		if to < from {
			out = append(out, to)
		}
		return out
	}

	var (
		span     = to - from
		integral float64
		prevErr  = span
		cur      = from
		fallback = span / 10
	)

	if fallback <= 0 {
		fallback = minFraction
	}

	for i := 0; i < maxSteps; i++ {
		select {
		case <-ctx.Done():
			return append(out, to)
		default:
		}

		err := to - cur
		if err <= 0 {
			break
		}

		integral += err
		derivative := prevErr - err
		prevErr = err

		step := p.kp*err + p.ki*integral + p.kd*derivative
		if math.IsNaN(step) || math.IsInf(step, 0) || step < span*minFraction {
			step = fallback
		}

		cur += step
		if cur >= to {
			break
		}
		out = append(out, cur)
	}

	return append(out, to)
}
