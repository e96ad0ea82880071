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

// Package errkind defines the closed taxonomy of error kinds raised by the
// transport and its collaborators, and registers their messages with the
// shared errors package the way every other golib-style package does.
package errkind

import (
	"fmt"

	liberr "github.com/nabbar/httpcli/errors"
)

// Kind classifies a failure surfaced by the transport. The set is closed:
// no caller may introduce a new kind.
type Kind uint8

const (
	// Unknown covers anything that cannot be classified more precisely.
	Unknown Kind = iota
	// InvalidRequest marks a request that is malformed before any I/O is attempted.
	InvalidRequest
	// NetworkError marks a transport-level I/O or framing failure.
	NetworkError
	// Timeout marks a failure caused by the linked deadline firing before
	// the caller's own cancellation.
	Timeout
	// Cancelled marks a failure caused by the caller's own cancellation firing.
	Cancelled
	// CertificateError marks a TLS handshake or certificate validation failure.
	CertificateError
)

func (k Kind) String() string {
	switch k {
	case InvalidRequest:
		return "InvalidRequest"
	case NetworkError:
		return "NetworkError"
	case Timeout:
		return "Timeout"
	case Cancelled:
		return "Cancelled"
	case CertificateError:
		return "CertificateError"
	default:
		return "Unknown"
	}
}

// IsRetryable reports whether the application layer may retry a request
// that failed with this kind. Only NetworkError and Timeout are retryable;
// the others are fatal to the request.
func (k Kind) IsRetryable() bool {
	switch k {
	case NetworkError, Timeout:
		return true
	default:
		return false
	}
}

const (
	// CodeInvalidRequest is the registered error code for InvalidRequest failures.
	CodeInvalidRequest liberr.CodeError = iota + liberr.MinPkgHttpTransport
	CodeNetworkError
	CodeTimeout
	CodeCancelled
	CodeCertificateError
	CodeUnknown
)

func init() {
	if liberr.ExistInMapMessage(CodeInvalidRequest) {
		panic(fmt.Errorf("error code collision with package httpcli/errkind"))
	}
	liberr.RegisterIdFctMessage(CodeInvalidRequest, getMessage)
}

func getMessage(code liberr.CodeError) string {
	switch code {
	case CodeInvalidRequest:
		return "request is invalid"
	case CodeNetworkError:
		return "network error while sending the request"
	case CodeTimeout:
		return "request timed out"
	case CodeCancelled:
		return "request was cancelled"
	case CodeCertificateError:
		return "tls certificate or handshake error"
	case CodeUnknown:
		return "unknown error"
	}

	return liberr.NullMessage
}

// codeOf maps a Kind to its registered errors.CodeError.
func codeOf(k Kind) liberr.CodeError {
	switch k {
	case InvalidRequest:
		return CodeInvalidRequest
	case NetworkError:
		return CodeNetworkError
	case Timeout:
		return CodeTimeout
	case Cancelled:
		return CodeCancelled
	case CertificateError:
		return CodeCertificateError
	default:
		return CodeUnknown
	}
}

// New builds a liberr.Error of the given kind, wrapping parent if not nil.
// If parent is already a liberr.Error, it is not double-wrapped: it is
// returned as-is (the transport must never wrap a library error again).
func New(k Kind, message string, parent error) liberr.Error {
	if parent != nil {
		if e, ok := parent.(liberr.Error); ok {
			return e
		}
	}

	if parent != nil {
		return liberr.New(uint16(codeOf(k)), message, parent)
	}

	return liberr.New(uint16(codeOf(k)), message)
}

// KindOf recovers the Kind carried by a liberr.Error produced by New, or
// Unknown if e does not carry one of the registered codes.
func KindOf(e liberr.Error) Kind {
	if e == nil {
		return Unknown
	}

	switch {
	case e.IsCode(CodeInvalidRequest):
		return InvalidRequest
	case e.IsCode(CodeNetworkError):
		return NetworkError
	case e.IsCode(CodeTimeout):
		return Timeout
	case e.IsCode(CodeCancelled):
		return Cancelled
	case e.IsCode(CodeCertificateError):
		return CertificateError
	default:
		return Unknown
	}
}

// AsLibError returns err unchanged if it is already a liberr.Error (the
// no-double-wrap rule), otherwise wraps it as Unknown.
func AsLibError(err error) liberr.Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(liberr.Error); ok {
		return e
	}
	return New(Unknown, err.Error(), err)
}
