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

// Package errors provides coded errors: each error carries a numeric
// CodeError from a package-scoped range (see modules.go), an optional
// message, and zero or more parent errors. Codes let a caller test what
// failed without string matching, and parents preserve the original cause
// chain for errors.Is/errors.As.
package errors

import (
	"errors"
)

// Error is the coded error carried across package boundaries.
type Error interface {
	error

	// IsCode checks if the error's code matches the given code.
	IsCode(code CodeError) bool

	// GetCode returns the error's own code.
	GetCode() CodeError

	// HasParent checks if the error has at least one parent error.
	HasParent() bool

	// AddParent appends the given errors to the parent chain, ignoring nils.
	AddParent(parent ...error)

	// Unwrap exposes the parent chain to the standard errors package.
	Unwrap() []error
}

// New builds an Error with the given code and message, wrapping any non-nil
// parents. An empty message falls back to the message registered for the
// code (see RegisterIdFctMessage).
func New(code uint16, message string, parent ...error) Error {
	c := CodeError(code)

	if message == NullMessage {
		message = c.GetMessage()
	}

	e := &ers{
		c: c,
		e: message,
	}
	e.AddParent(parent...)

	return e
}

// Is reports whether e is, or wraps, an Error of this package.
func Is(e error) bool {
	var er Error
	return errors.As(e, &er)
}

// Get returns the Error carried by e, unwrapping as needed, or nil if e
// does not carry one.
func Get(e error) Error {
	var er Error
	if errors.As(e, &er) {
		return er
	}
	return nil
}

// IsCode reports whether e carries an Error whose code matches code.
func IsCode(e error, code CodeError) bool {
	if er := Get(e); er != nil {
		return er.IsCode(code)
	}
	return false
}
