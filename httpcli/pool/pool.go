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

// Package pool implements the per-authority connection pool: a bounded
// semaphore plus an idle FIFO keyed by (host, port, tls), handing out Lease
// values that couple a Connection with exactly one permit-release
// obligation. Dialing a fresh connection is delegated to an injected
// DialFunc so this package stays independent of the dialer/tlsneg
// transports that actually open sockets.
package pool

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultPerAuthorityLimit matches common browser connection-per-host caps.
const DefaultPerAuthorityLimit = 6

// DefaultMaxAuthorities bounds the number of distinct pool keys tracked at
// once before best-effort eviction kicks in.
const DefaultMaxAuthorities = 1000

// DefaultIdleTimeout is how long an idle pooled connection may sit in the
// FIFO before it is considered aged and discarded on next drain.
const DefaultIdleTimeout = 2 * time.Minute

// Connection is a pooled, reusable transport stream. It is a thin
// capability wrapper: pool does not know how to dial one (see DialFunc) or
// how to read/write it (the codec package owns wire I/O); it only tracks
// pool bookkeeping (liveness, reuse, last-used, and disposal).
type Connection interface {
	// IsAlive is a best-effort, non-blocking liveness check. It must never
	// touch the kernel after Close has been called.
	IsAlive() bool
	// Close disposes the underlying stream. Idempotent.
	Close() error
}

// AuthorityKey identifies one pooling bucket: a lowercased host, a port,
// and whether the connection is TLS. Host comparison is ASCII
// case-insensitive per the shared-resource contract.
type AuthorityKey struct {
	Host string
	Port int
	TLS  bool
}

func newAuthorityKey(host string, port int, tls bool) AuthorityKey {
	return AuthorityKey{Host: strings.ToLower(host), Port: port, TLS: tls}
}

// DialFunc dials a brand-new Connection for key, honoring ctx cancellation.
type DialFunc func(ctx context.Context, key AuthorityKey) (Connection, error)

type idleEntry struct {
	conn     Connection
	lastUsed time.Time
}

type authority struct {
	sem  *semaphore.Weighted
	idle *list.List // of *idleEntry
	mu   sync.Mutex
}

// Pool is the per-authority connection pool. The zero value is not usable;
// build one with New.
type Pool struct {
	mu sync.Mutex

	dial           DialFunc
	perAuthority   int64
	maxAuthorities int
	idleTimeout    time.Duration

	authorities map[AuthorityKey]*authority
	disposed    bool
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithPerAuthorityLimit overrides the per-key concurrency cap.
func WithPerAuthorityLimit(n int64) Option {
	return func(p *Pool) { p.perAuthority = n }
}

// WithMaxAuthorities overrides the distinct-key cap triggering eviction.
func WithMaxAuthorities(n int) Option {
	return func(p *Pool) { p.maxAuthorities = n }
}

// WithIdleTimeout overrides how long an idle connection may sit in the FIFO.
func WithIdleTimeout(d time.Duration) Option {
	return func(p *Pool) { p.idleTimeout = d }
}

// New builds a Pool that dials new connections via dial.
func New(dial DialFunc, opts ...Option) *Pool {
	p := &Pool{
		dial:           dial,
		perAuthority:   DefaultPerAuthorityLimit,
		maxAuthorities: DefaultMaxAuthorities,
		idleTimeout:    DefaultIdleTimeout,
		authorities:    make(map[AuthorityKey]*authority),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ErrPoolDisposed is returned by Acquire once the pool has been disposed.
type ErrPoolDisposed struct{}

func (ErrPoolDisposed) Error() string { return "pool: disposed" }

func (p *Pool) getOrCreate(key AuthorityKey) *authority {
	p.mu.Lock()
	defer p.mu.Unlock()

	if a, ok := p.authorities[key]; ok {
		return a
	}

	a := &authority{
		sem:  semaphore.NewWeighted(p.perAuthority),
		idle: list.New(),
	}
	p.authorities[key] = a

	if len(p.authorities) > p.maxAuthorities {
		p.evictLocked(key)
	}
	return a
}

// evictLocked best-effort evicts quiescent authorities other than keep.
// Caller must hold p.mu.
func (p *Pool) evictLocked(keep AuthorityKey) {
	for k, a := range p.authorities {
		if k == keep {
			continue
		}
		if !a.sem.TryAcquire(p.perAuthority) {
			continue // not fully quiescent, skip
		}
		a.sem.Release(p.perAuthority)

		a.mu.Lock()
		for e := a.idle.Front(); e != nil; e = e.Next() {
			_ = e.Value.(*idleEntry).conn.Close()
		}
		a.idle.Init()
		a.mu.Unlock()

		delete(p.authorities, k)
	}
}

// Lease is a scoped acquisition of one pooled Connection and exactly one
// per-authority permit. Exactly one of ReturnToPool/Dispose's permit
// release happens, on whichever path runs first; both are idempotent and
// safely orderable or concurrent.
type Lease struct {
	mu sync.Mutex

	pool     *Pool
	key      AuthorityKey
	sem      *authority
	conn     Connection
	isReused bool
	done     bool
}

// Connection returns the leased connection.
func (l *Lease) Connection() Connection { return l.conn }

// IsReused reports whether the connection was dequeued from the idle FIFO
// rather than freshly dialed.
func (l *Lease) IsReused() bool { return l.isReused }

func (l *Lease) release() {
	l.sem.sem.Release(1)
}

// ReturnToPool enqueues the connection back onto its authority's idle FIFO
// (or disposes it if the pool has since been disposed) and releases the
// permit. Idempotent.
func (l *Lease) ReturnToPool() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return
	}
	l.done = true

	l.pool.mu.Lock()
	disposed := l.pool.disposed
	l.pool.mu.Unlock()

	if disposed {
		_ = l.conn.Close()
	} else {
		l.sem.mu.Lock()
		l.sem.idle.PushBack(&idleEntry{conn: l.conn, lastUsed: time.Now()})
		l.sem.mu.Unlock()
	}

	l.release()
}

// Dispose discards the connection (closing it) and releases the permit.
// Idempotent.
func (l *Lease) Dispose() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return
	}
	l.done = true

	_ = l.conn.Close()
	l.release()
}

// Acquire obtains a Lease for (host, port, tls): it drains the idle FIFO
// for a live, non-aged connection first, falling back to dialing a new one
// via the pool's DialFunc. Exactly one permit is held by the returned
// Lease; callers must call ReturnToPool or Dispose exactly once.
func (p *Pool) Acquire(ctx context.Context, host string, port int, tls bool) (*Lease, error) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil, ErrPoolDisposed{}
	}
	p.mu.Unlock()

	key := newAuthorityKey(host, port, tls)
	a := p.getOrCreate(key)

	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	conn, reused, err := p.drainOrDial(ctx, key, a)
	if err != nil {
		a.sem.Release(1)
		return nil, err
	}

	return &Lease{pool: p, key: key, sem: a, conn: conn, isReused: reused}, nil
}

func (p *Pool) drainOrDial(ctx context.Context, key AuthorityKey, a *authority) (Connection, bool, error) {
	a.mu.Lock()
	for a.idle.Len() > 0 {
		front := a.idle.Front()
		a.idle.Remove(front)
		entry := front.Value.(*idleEntry)

		if time.Since(entry.lastUsed) > p.idleTimeout || !entry.conn.IsAlive() {
			a.mu.Unlock()
			_ = entry.conn.Close()
			a.mu.Lock()
			continue
		}

		a.mu.Unlock()
		return entry.conn, true, nil
	}
	a.mu.Unlock()

	conn, err := p.dial(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return conn, false, nil
}

// Close disposes the pool: every currently idle connection across every
// authority is drained and closed. In-flight leases remain the caller's
// responsibility; their ReturnToPool calls will observe the disposed pool
// and dispose rather than enqueue.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return nil
	}
	p.disposed = true

	for _, a := range p.authorities {
		a.mu.Lock()
		for e := a.idle.Front(); e != nil; e = e.Next() {
			_ = e.Value.(*idleEntry).conn.Close()
		}
		a.idle.Init()
		a.mu.Unlock()
	}

	return nil
}
