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

package logger_test

import (
	"bytes"
	"context"

	liblog "github.com/nabbar/httpcli/logger"
	logfld "github.com/nabbar/httpcli/logger/fields"
	loglvl "github.com/nabbar/httpcli/logger/level"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logger", func() {
	newBuffered := func() (liblog.Logger, *bytes.Buffer) {
		var buf bytes.Buffer
		l := liblog.New(context.Background())
		l.SetOutput(&buf)
		return l, &buf
	}

	It("defaults to InfoLevel", func() {
		l := liblog.New(context.Background())
		Expect(l.GetLevel()).To(Equal(loglvl.InfoLevel))
	})

	It("emits an info line with its fields", func() {
		l, buf := newBuffered()

		fields := logfld.New(context.Background()).
			Add("method", "GET").
			Add("status", 200)
		l.Info("request completed", fields)

		out := buf.String()
		Expect(out).To(ContainSubstring("request completed"))
		Expect(out).To(ContainSubstring("method=GET"))
		Expect(out).To(ContainSubstring("status=200"))
	})

	It("suppresses entries below the configured level", func() {
		l, buf := newBuffered()
		l.SetLevel(loglvl.ErrorLevel)

		l.Info("should not appear", nil)
		Expect(buf.String()).To(BeEmpty())

		l.Error("must appear", nil)
		Expect(buf.String()).To(ContainSubstring("must appear"))
	})

	It("emits nothing at NilLevel", func() {
		l, buf := newBuffered()
		l.SetLevel(loglvl.NilLevel)

		l.Error("silenced", nil)
		Expect(buf.String()).To(BeEmpty())
	})

	It("formats message arguments", func() {
		l, buf := newBuffered()
		l.Info("attempt %d of %d", nil, 2, 3)
		Expect(buf.String()).To(ContainSubstring("attempt 2 of 3"))
	})
})

var _ = Describe("Level", func() {
	It("round-trips through Parse and String", func() {
		for _, lvl := range []loglvl.Level{
			loglvl.FatalLevel, loglvl.ErrorLevel, loglvl.WarnLevel,
			loglvl.InfoLevel, loglvl.DebugLevel,
		} {
			Expect(loglvl.Parse(lvl.String())).To(Equal(lvl))
		}
	})

	It("defaults unknown names to InfoLevel", func() {
		Expect(loglvl.Parse("chatty")).To(Equal(loglvl.InfoLevel))
	})
})
