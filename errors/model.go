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

package errors

import (
	"strings"
)

type ers struct {
	c CodeError
	e string
	p []error
}

func (e *ers) Error() string {
	if e == nil {
		return NullMessage
	}

	if !e.HasParent() {
		return e.e
	}

	msg := make([]string, 0, len(e.p)+1)
	msg = append(msg, e.e)
	for _, p := range e.p {
		msg = append(msg, p.Error())
	}

	return strings.Join(msg, ": ")
}

func (e *ers) IsCode(code CodeError) bool {
	if e == nil {
		return false
	}
	return e.c == code
}

func (e *ers) GetCode() CodeError {
	if e == nil {
		return UnknownError
	}
	return e.c
}

func (e *ers) HasParent() bool {
	return e != nil && len(e.p) > 0
}

func (e *ers) AddParent(parent ...error) {
	if e == nil {
		return
	}

	for _, p := range parent {
		if p == nil {
			continue
		}
		e.p = append(e.p, p)
	}
}

func (e *ers) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.p
}
