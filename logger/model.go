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

package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	logfld "github.com/nabbar/httpcli/logger/fields"
	loglvl "github.com/nabbar/httpcli/logger/level"
	"github.com/sirupsen/logrus"
)

type logModel struct {
	mu  sync.Mutex
	ctx context.Context
	lvl loglvl.Level
	log *logrus.Logger
}

func newLogger(ctx context.Context) *logModel {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	l.SetLevel(loglvl.InfoLevel.Logrus())

	return &logModel{
		ctx: ctx,
		lvl: loglvl.InfoLevel,
		log: l,
	}
}

func (o *logModel) SetLevel(lvl loglvl.Level) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.lvl = lvl
	o.log.SetLevel(lvl.Logrus())
}

func (o *logModel) GetLevel() loglvl.Level {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.lvl
}

func (o *logModel) SetOutput(w io.Writer) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.log.SetOutput(w)
}

func (o *logModel) Debug(message string, data interface{}, args ...interface{}) {
	o.emit(loglvl.DebugLevel, message, data, args...)
}

func (o *logModel) Info(message string, data interface{}, args ...interface{}) {
	o.emit(loglvl.InfoLevel, message, data, args...)
}

func (o *logModel) Warning(message string, data interface{}, args ...interface{}) {
	o.emit(loglvl.WarnLevel, message, data, args...)
}

func (o *logModel) Error(message string, data interface{}, args ...interface{}) {
	o.emit(loglvl.ErrorLevel, message, data, args...)
}

func (o *logModel) emit(lvl loglvl.Level, message string, data interface{}, args ...interface{}) {
	if o == nil || o.GetLevel() == loglvl.NilLevel {
		return
	}

	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}

	entry := logrus.NewEntry(o.log)
	switch d := data.(type) {
	case nil:
	case logfld.Fields:
		entry = entry.WithFields(d.Logrus())
	case logrus.Fields:
		entry = entry.WithFields(d)
	case map[string]interface{}:
		entry = entry.WithFields(d)
	default:
		entry = entry.WithField("data", d)
	}

	entry.Log(lvl.Logrus(), message)
}
