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

// Package fields provides the key/value bag attached to structured log
// entries. A Fields value is safe for concurrent use; Add returns the same
// Fields so calls chain.
package fields

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Fields is a concurrent key/value store rendered onto log entries.
type Fields interface {
	// Add stores val under key, replacing any existing value, and returns
	// the receiver for chaining.
	Add(key string, val interface{}) Fields

	// Get retrieves the value stored under key, if any.
	Get(key string) (interface{}, bool)

	// Del removes key and returns the receiver for chaining.
	Del(key string) Fields

	// Walk calls fn for every pair until fn returns false.
	Walk(fn func(key string, val interface{}) bool)

	// Logrus renders the pairs as a logrus.Fields map.
	Logrus() logrus.Fields

	// Clone returns an independent copy.
	Clone() Fields
}

// New returns an empty Fields. ctx is retained for lifecycle parity with
// the logger's own context and may be context.Background().
func New(ctx context.Context) Fields {
	if ctx == nil {
		ctx = context.Background()
	}
	return &fldModel{
		ctx: ctx,
	}
}
