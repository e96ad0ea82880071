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

package dnsmap

import (
	"net"
	"strings"
)

// entry is one parsed "from" side of a mapping: a dot-split FQDN (so a
// leading "*" label matches any prefix) plus a port, where port "*" matches
// any port and a port of the form "*suffix"/"prefix*" matches by string
// affix.
type entry struct {
	fqdn []string
	port string
}

// newEntry parses a raw "host:port" or bare "host" mapping key. It returns
// nil if host is a literal IP, since IP literals are never wildcard targets
// for DNS override.
func newEntry(raw string) *entry {
	var (
		host string
		port = "*"
	)

	if h, p, err := net.SplitHostPort(raw); err != nil {
		if _, ok := err.(*net.AddrError); ok && strings.Contains(err.Error(), "missing port") {
			host = raw
		} else {
			return nil
		}
	} else {
		host = h
		port = p
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	return &entry{
		fqdn: strings.Split(strings.TrimSpace(host), "."),
		port: strings.TrimPrefix(strings.TrimSpace(port), "0"),
	}
}

func newEntryDetail(host, port string) *entry {
	if net.ParseIP(host) != nil {
		return nil
	}
	return &entry{
		fqdn: strings.Split(strings.TrimSpace(host), "."),
		port: strings.TrimPrefix(strings.TrimSpace(port), "0"),
	}
}

func (e *entry) String() string {
	if e.port == "*" {
		return e.fqdnString()
	}
	return e.fqdnString() + ":" + e.port
}

func (e *entry) fqdnString() string {
	return strings.Join(e.fqdn, ".")
}

func (e *entry) wildcard() bool {
	return e.fqdn[0] == "*"
}

// fqdnMatch reports whether candidate (already dot-split) matches e,
// honoring a "*" label as a wildcard for exactly one label; the candidate
// must have the same number of labels as the pattern.
func (e *entry) fqdnMatch(candidate []string) bool {
	if len(candidate) != len(e.fqdn) {
		return false
	}
	if e.fqdnEqual(candidate) {
		return true
	}
	if !e.wildcard() {
		return false
	}

	last := len(e.fqdn) - 1
	for i := 0; i <= last; i++ {
		idx := last - i
		if e.fqdn[idx] == "*" {
			continue
		}
		if e.fqdn[idx] != candidate[idx] {
			return false
		}
	}
	return true
}

func (e *entry) fqdnEqual(candidate []string) bool {
	if len(candidate) != len(e.fqdn) {
		return false
	}
	for i := range e.fqdn {
		if !strings.EqualFold(e.fqdn[i], candidate[i]) {
			return false
		}
	}
	return true
}

func (e *entry) portMatch(port string) bool {
	if !strings.Contains(e.port, "*") {
		return port == e.port
	}
	if e.port == "*" {
		return true
	}

	parts := strings.SplitN(e.port, "*", 2)
	if parts[0] == "" {
		return len(port) >= len(parts[1]) && port[len(port)-len(parts[1]):] == parts[1]
	}
	return len(port) >= len(parts[0]) && port[:len(parts[0])] == parts[0]
}
