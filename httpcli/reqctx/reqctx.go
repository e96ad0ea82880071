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

// Package reqctx implements the per-request context: an event timeline, a
// high-resolution stopwatch, a sticky state map, and the current (possibly
// middleware-mutated) request, all disposed exactly once by the client
// around the pipeline call.
package reqctx

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nabbar/httpcli/httpcli/message"
)

// Event names recorded on the timeline by the transport. Middleware may
// record additional, custom events.
const (
	EventTransportStart      = "TransportStart"
	EventTransportConnecting = "TransportConnecting"
	EventTransportSending    = "TransportSending"
	EventTransportReceiving  = "TransportReceiving"
	EventTransportComplete   = "TransportComplete"
)

// TimelineEvent is one named, timestamped point on the request's timeline,
// with optional arbitrary metadata.
type TimelineEvent struct {
	Name string
	At   time.Time
	Data any
}

// reset clears all per-event state; used by the pool on Put so a recycled
// event carries nothing from its previous use.
func (e *TimelineEvent) reset() {
	e.Name = ""
	e.At = time.Time{}
	e.Data = nil
}

var eventPool = sync.Pool{
	New: func() any { return new(TimelineEvent) },
}

// Context is the per-request scratch space threaded through the middleware
// chain and the transport. It must be created fresh for every request and
// disposed exactly once; every method fails fast with ErrDisposed once
// Dispose has run.
type Context struct {
	mu sync.Mutex

	id       string
	start    time.Time
	disposed bool
	timeline []*TimelineEvent
	state    map[string]any
	request  *message.Request
	pooled   bool // whether timeline events were drawn from eventPool
}

// ErrDisposed is returned by every Context method once Dispose has run.
type ErrDisposed struct{ Op string }

func (e *ErrDisposed) Error() string {
	return fmt.Sprintf("reqctx: %s called on a disposed context", e.Op)
}

// New creates a Context wrapping req, starting its stopwatch immediately.
// usePooling enables sync.Pool-backed timeline events as an allocation
// optimization; it has no observable effect other than where the
// TimelineEvent values came from.
func New(req *message.Request, usePooling bool) *Context {
	return &Context{
		id:       uuid.NewString(),
		start:    time.Now(),
		state:    make(map[string]any, 4),
		request:  req,
		pooled:   usePooling,
		timeline: make([]*TimelineEvent, 0, 8),
	}
}

// ID returns the request's correlation id, stable for the context's lifetime.
func (c *Context) ID() string {
	if c == nil {
		return ""
	}
	return c.id
}

// Elapsed returns the time elapsed since the context was created.
func (c *Context) Elapsed() time.Duration {
	if c == nil {
		return 0
	}
	return time.Since(c.start)
}

// RecordEvent appends a named event with optional metadata to the timeline.
func (c *Context) RecordEvent(name string, data any) error {
	if c == nil {
		return &ErrDisposed{Op: "RecordEvent"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return &ErrDisposed{Op: "RecordEvent"}
	}

	var ev *TimelineEvent
	if c.pooled {
		ev = eventPool.Get().(*TimelineEvent)
	} else {
		ev = new(TimelineEvent)
	}

	ev.Name = name
	ev.At = time.Now()
	ev.Data = data

	c.timeline = append(c.timeline, ev)
	return nil
}

// Timeline returns a snapshot copy of the recorded events in order.
func (c *Context) Timeline() ([]TimelineEvent, error) {
	if c == nil {
		return nil, &ErrDisposed{Op: "Timeline"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil, &ErrDisposed{Op: "Timeline"}
	}

	out := make([]TimelineEvent, len(c.timeline))
	for i, ev := range c.timeline {
		out[i] = *ev
	}
	return out, nil
}

// SetState stores value under key in the sticky state map.
func (c *Context) SetState(key string, value any) error {
	if c == nil {
		return &ErrDisposed{Op: "SetState"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return &ErrDisposed{Op: "SetState"}
	}

	c.state[key] = value
	return nil
}

// GetState retrieves the value stored under key, if any.
func (c *Context) GetState(key string) (any, bool, error) {
	if c == nil {
		return nil, false, &ErrDisposed{Op: "GetState"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil, false, &ErrDisposed{Op: "GetState"}
	}

	v, ok := c.state[key]
	return v, ok, nil
}

// Request returns the current request, possibly mutated by prior
// middleware via UpdateRequest.
func (c *Context) Request() (*message.Request, error) {
	if c == nil {
		return nil, &ErrDisposed{Op: "Request"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return nil, &ErrDisposed{Op: "Request"}
	}

	return c.request, nil
}

// UpdateRequest replaces the current request, used by middleware that
// mutates the request before forwarding it down the chain (e.g.
// DefaultHeaders, Auth).
func (c *Context) UpdateRequest(req *message.Request) error {
	if c == nil {
		return &ErrDisposed{Op: "UpdateRequest"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return &ErrDisposed{Op: "UpdateRequest"}
	}

	c.request = req
	return nil
}

// Dispose marks the context as no longer usable and releases pooled
// timeline events, if pooling was enabled. It is idempotent: calling it
// more than once is a no-op past the first call.
func (c *Context) Dispose() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	c.disposed = true

	if c.pooled {
		for _, ev := range c.timeline {
			ev.reset()
			eventPool.Put(ev)
		}
	}
	c.timeline = nil
	c.state = nil
}

// IsDisposed reports whether Dispose has already run.
func (c *Context) IsDisposed() bool {
	if c == nil {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.disposed
}
