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

// Package dnsmap lets a caller override DNS resolution for selected
// host:port authorities without touching system DNS or /etc/hosts, by
// mapping a (possibly wildcarded) hostname:port pattern to a fixed IP
// target. Its Override method produces a dialer.AddressOverride hook a
// Connector consults before doing any real resolution.
package dnsmap

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Mapper holds the active mapping table plus a resolved-address cache. The
// zero value is not usable; build one with New.
type Mapper struct {
	entries sync.Map // *entry -> string (target host[:port])
	cache   sync.Map // "host:port" -> string (resolved target)
}

// New builds an empty Mapper. Populate it with Add before wiring Override
// into a dialer.Connector.
func New() *Mapper {
	return &Mapper{}
}

// Add registers a mapping from a "host:port" (or bare "host", any port)
// pattern to a target. host may use a leading "*." wildcard label; port may
// be "*" or a "prefix*"/"*suffix" pattern. target is a literal IP
// (optionally with its own ":port"); a target that is itself a hostname is
// stored and counted by Len, but Resolve reports no mapping for it, since
// this mapper never performs its own recursive resolution.
func (m *Mapper) Add(pattern, target string) {
	e := newEntry(pattern)
	if e == nil {
		return
	}
	m.entries.Store(e, target)
}

// Del removes every mapping whose pattern renders back to pattern exactly.
func (m *Mapper) Del(pattern string) {
	e := newEntry(pattern)
	if e == nil {
		return
	}
	want := e.String()
	m.entries.Range(func(k, _ any) bool {
		if ke := k.(*entry); ke.String() == want {
			m.entries.Delete(k)
		}
		return true
	})
}

// Len returns the number of registered mapping entries.
func (m *Mapper) Len() int {
	n := 0
	m.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Walk calls fn for every (pattern, target) pair until fn returns false.
func (m *Mapper) Walk(fn func(pattern, target string) bool) {
	m.entries.Range(func(k, v any) bool {
		e, ok := k.(*entry)
		if !ok {
			return true
		}
		t, ok := v.(string)
		if !ok {
			return true
		}
		return fn(e.String(), t)
	})
}

// search finds the first mapping whose pattern matches host:port, wildcard
// entries included. It returns ok=false when nothing matches.
func (m *Mapper) search(host, port string) (target string, ok bool) {
	cand := newEntryDetail(host, port)
	if cand == nil {
		return "", false
	}

	m.entries.Range(func(k, v any) bool {
		e, isEntry := k.(*entry)
		if !isEntry {
			return true
		}
		if !e.fqdnMatch(cand.fqdn) || !e.portMatch(cand.port) {
			return true
		}
		target, _ = v.(string)
		ok = true
		return false
	})

	return target, ok
}

// Resolve maps host:port through the table, consulting the cache first.
// It returns ok=false when no mapping applies, so the caller should fall
// back to ordinary DNS resolution.
func (m *Mapper) Resolve(host string, port int) (ip net.IP, resolvedPort int, ok bool) {
	key := host + ":" + strconv.Itoa(port)

	if v, hit := m.cache.Load(key); hit {
		if t, isStr := v.(string); isStr {
			return parseTarget(t, port)
		}
	}

	target, found := m.search(host, strconv.Itoa(port))
	if !found {
		return nil, 0, false
	}

	m.cache.Store(key, target)
	return parseTarget(target, port)
}

func parseTarget(target string, fallbackPort int) (net.IP, int, bool) {
	h, p, err := net.SplitHostPort(target)
	if err != nil {
		h = target
		p = ""
	}

	addr := net.ParseIP(strings.TrimSpace(h))
	if addr == nil {
		return nil, 0, false
	}

	port := fallbackPort
	if p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}

	return addr, port, true
}

// Override returns a dialer.AddressOverride hook backed by this Mapper. The
// hook returns only the mapped IP; a port pinned by the matched target is
// not passed on, so the dial keeps the requested port.
func (m *Mapper) Override() func(host string, port int) ([]net.IP, bool) {
	return func(host string, port int) ([]net.IP, bool) {
		ip, _, ok := m.Resolve(host, port)
		if !ok {
			return nil, false
		}
		return []net.IP{ip}, true
	}
}

// CleanCache periodically drops the resolved-address cache every interval,
// so a later Add/Del takes effect without a process restart. A non-positive
// interval is replaced by one minute. It stops when ctx is done.
func (m *Mapper) CleanCache(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		tck := time.NewTicker(interval)
		defer tck.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-tck.C:
				m.cache.Range(func(k, _ any) bool {
					m.cache.Delete(k)
					return true
				})
			}
		}
	}()
}
