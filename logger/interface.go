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

// Package logger provides the structured, leveled logging surface consumed
// across this module, backed by sirupsen/logrus. Consumers usually hold a
// FuncLog rather than a Logger so the concrete logger can be swapped or
// reconfigured without rewiring them.
package logger

import (
	"context"
	"io"

	loglvl "github.com/nabbar/httpcli/logger/level"
)

// FuncLog is the lazy-lookup injection shape: callers invoke it per
// operation, so replacing the underlying Logger takes effect immediately
// everywhere the function was handed out.
type FuncLog func() Logger

// Logger is a leveled, structured logger. The data argument of each emit
// method may be a fields.Fields, a map, or nil; args, when present, are
// fmt.Sprintf arguments for message.
type Logger interface {
	// SetLevel changes the minimum severity that is emitted.
	SetLevel(lvl loglvl.Level)

	// GetLevel returns the current minimum severity.
	GetLevel() loglvl.Level

	// SetOutput redirects where entries are written.
	SetOutput(w io.Writer)

	// Debug logs at DebugLevel.
	Debug(message string, data interface{}, args ...interface{})

	// Info logs at InfoLevel.
	Info(message string, data interface{}, args ...interface{})

	// Warning logs at WarnLevel.
	Warning(message string, data interface{}, args ...interface{})

	// Error logs at ErrorLevel.
	Error(message string, data interface{}, args ...interface{})
}

// New returns a Logger writing logrus text entries to stderr at InfoLevel.
// ctx bounds the logger's lifetime for parity with the rest of the module;
// a nil ctx is treated as context.Background().
func New(ctx context.Context) Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	return newLogger(ctx)
}
