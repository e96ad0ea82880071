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
	"strconv"
	"sync"
)

// Message is a function type that generates error messages based on error
// codes, allowing each package to register one generator for its code range.
type Message func(code CodeError) (message string)

// CodeError represents a numeric error code. It is a uint16, so each package
// claims a contiguous range below math.MaxUint16 (see modules.go).
type CodeError uint16

const (
	// UnknownError represents an error with no specific code (0).
	UnknownError CodeError = 0

	// UnknownMessage is the default message for UnknownError.
	UnknownMessage = "unknown error"

	// NullMessage represents an empty error message.
	NullMessage = ""
)

// idMsgFct stores the mapping between package code-range roots and their
// message functions.
var (
	idMsgMut sync.RWMutex
	idMsgFct = make(map[CodeError]Message)
)

// Uint16 returns the CodeError value as a uint16.
func (c CodeError) Uint16() uint16 {
	return uint16(c)
}

// Int returns the CodeError value as an int.
func (c CodeError) Int() int {
	return int(c)
}

// String returns the decimal rendering of the CodeError value.
func (c CodeError) String() string {
	return strconv.Itoa(c.Int())
}

// GetMessage returns the message registered for this code, or NullMessage
// when no registered function recognizes it.
func (c CodeError) GetMessage() string {
	idMsgMut.RLock()
	defer idMsgMut.RUnlock()

	for _, f := range idMsgFct {
		if m := f(c); m != NullMessage {
			return m
		}
	}

	if c == UnknownError {
		return UnknownMessage
	}

	return NullMessage
}

// RegisterIdFctMessage registers a Message function for a package's code
// range, rooted at minCode. The function itself decides which codes it
// recognizes by returning NullMessage for all others.
func RegisterIdFctMessage(minCode CodeError, fct Message) {
	if fct == nil {
		return
	}

	idMsgMut.Lock()
	defer idMsgMut.Unlock()

	idMsgFct[minCode] = fct
}

// ExistInMapMessage reports whether any registered Message function already
// recognizes code, used by packages to detect code-range collisions at init.
func ExistInMapMessage(code CodeError) bool {
	idMsgMut.RLock()
	defer idMsgMut.RUnlock()

	for _, f := range idMsgFct {
		if m := f(code); m != NullMessage {
			return true
		}
	}

	return false
}
