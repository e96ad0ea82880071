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

// Package header implements an ordered, multi-value, case-insensitive
// name->values header store used by both requests and responses.
package header

import (
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Store is an ordered multi-value name->value mapping with case-insensitive
// name comparison. Insertion order across distinct names is preserved;
// multi-valued names keep their individual values in append order.
type Store struct {
	keys []string            // canonical (lowercased) key insertion order
	orig map[string]string   // canonical key -> original casing used for the first Set/Add
	vals map[string][]string // canonical key -> values
}

// New returns an empty header Store ready to use.
func New() *Store {
	return &Store{
		keys: make([]string, 0, 8),
		orig: make(map[string]string, 8),
		vals: make(map[string][]string, 8),
	}
}

func canon(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Set replaces all values for name with a single value.
func (s *Store) Set(name, value string) {
	if s == nil || name == "" {
		return
	}

	k := canon(name)
	if _, ok := s.vals[k]; !ok {
		s.keys = append(s.keys, k)
		s.orig[k] = name
	}
	s.vals[k] = []string{value}
}

// Add appends value to the list of values for name, creating the entry if
// it does not exist yet.
func (s *Store) Add(name, value string) {
	if s == nil || name == "" {
		return
	}

	k := canon(name)
	if _, ok := s.vals[k]; !ok {
		s.keys = append(s.keys, k)
		s.orig[k] = name
		s.vals[k] = []string{value}
		return
	}
	s.vals[k] = append(s.vals[k], value)
}

// GetFirst returns the first value stored for name and whether it exists.
func (s *Store) GetFirst(name string) (string, bool) {
	if s == nil {
		return "", false
	}

	v, ok := s.vals[canon(name)]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// GetAll returns every value stored for name, in append order. The returned
// slice is a copy and safe to mutate.
func (s *Store) GetAll(name string) []string {
	if s == nil {
		return nil
	}

	v, ok := s.vals[canon(name)]
	if !ok {
		return nil
	}

	out := make([]string, len(v))
	copy(out, v)
	return out
}

// Contains reports whether name has at least one value set.
func (s *Store) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.vals[canon(name)]
	return ok
}

// Del removes every value stored for name.
func (s *Store) Del(name string) {
	if s == nil {
		return
	}

	k := canon(name)
	if _, ok := s.vals[k]; !ok {
		return
	}

	delete(s.vals, k)
	delete(s.orig, k)

	for i, existing := range s.keys {
		if existing == k {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Entry pairs an original-cased header name with one of its values, used by Each.
type Entry struct {
	Name  string
	Value string
}

// Each iterates every (name, value) pair in insertion order, emitting one
// Entry per value for multi-valued names.
func (s *Store) Each(fn func(Entry) bool) {
	if s == nil || fn == nil {
		return
	}

	for _, k := range s.keys {
		name := s.orig[k]
		for _, v := range s.vals[k] {
			if !fn(Entry{Name: name, Value: v}) {
				return
			}
		}
	}
}

// Clone returns a deep, independent copy of the store.
func (s *Store) Clone() *Store {
	if s == nil {
		return New()
	}

	c := &Store{
		keys: make([]string, len(s.keys)),
		orig: make(map[string]string, len(s.orig)),
		vals: make(map[string][]string, len(s.vals)),
	}

	copy(c.keys, s.keys)
	for k, v := range s.orig {
		c.orig[k] = v
	}
	for k, v := range s.vals {
		cp := make([]string, len(v))
		copy(cp, v)
		c.vals[k] = cp
	}

	return c
}

// Len returns the number of distinct header names stored.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Validate enforces wire safety: header names must be a valid RFC 7230
// token, header values must not contain CR, LF, or a bare NUL. It is
// called by the codec at serialization time, not at Set/Add
// time, so a Store can stage an invalid value and still be
// inspected/corrected before being sent. Delegates to httpguts, the same
// validation net/http's own transport applies to outgoing headers.
func Validate(name, value string) bool {
	if !httpguts.ValidHeaderFieldName(name) {
		return false
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return false
	}
	return true
}
