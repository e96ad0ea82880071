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

package header_test

import (
	"github.com/nabbar/httpcli/httpcli/header"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Store", func() {
	It("is case-insensitive for Set/Get/Contains", func() {
		s := header.New()
		s.Set("Content-Type", "application/json")

		v, ok := s.GetFirst("content-type")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("application/json"))
		Expect(s.Contains("CONTENT-TYPE")).To(BeTrue())
	})

	It("Set replaces, Add appends", func() {
		s := header.New()
		s.Add("Set-Cookie", "a=1")
		s.Add("Set-Cookie", "b=2")
		Expect(s.GetAll("set-cookie")).To(Equal([]string{"a=1", "b=2"}))

		s.Set("Set-Cookie", "c=3")
		Expect(s.GetAll("set-cookie")).To(Equal([]string{"c=3"}))
	})

	It("preserves insertion order across distinct names", func() {
		s := header.New()
		s.Set("B", "2")
		s.Set("A", "1")
		s.Add("B", "2b")

		var order []string
		s.Each(func(e header.Entry) bool {
			order = append(order, e.Name)
			return true
		})
		Expect(order).To(Equal([]string{"B", "B", "A"}))
	})

	It("Clone is independent from the original", func() {
		s := header.New()
		s.Set("X", "1")
		c := s.Clone()
		c.Set("X", "2")

		v, _ := s.GetFirst("X")
		Expect(v).To(Equal("1"))
	})

	It("Del removes an entry entirely", func() {
		s := header.New()
		s.Set("X", "1")
		s.Del("x")
		Expect(s.Contains("X")).To(BeFalse())
		Expect(s.Len()).To(Equal(0))
	})

	DescribeTable("Validate rejects CRLF/colon-bearing names and CRLF values",
		func(name, value string, want bool) {
			Expect(header.Validate(name, value)).To(Equal(want))
		},
		Entry("valid", "X-Test", "ok", true),
		Entry("empty name", "", "ok", false),
		Entry("colon in name", "Bad:Name", "ok", false),
		Entry("CR in name", "Bad\rName", "ok", false),
		Entry("LF in name", "Bad\nName", "ok", false),
		Entry("CRLF in value", "X-Test", "bad\r\nvalue", false),
	)
})
