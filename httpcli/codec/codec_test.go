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

package codec_test

import (
	"bufio"
	"bytes"
	"net/url"
	"strings"

	"github.com/nabbar/httpcli/httpcli/codec"
	"github.com/nabbar/httpcli/httpcli/message"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func mustURL(s string) *url.URL {
	u, err := url.Parse(s)
	Expect(err).ToNot(HaveOccurred())
	return u
}

var _ = Describe("Serialize", func() {
	It("produces the literal absolute-form request line and auto-injected headers", func() {
		req := message.NewRequest(message.MethodGet, mustURL("http://example.com/"))

		var buf bytes.Buffer
		Expect(codec.Serialize(&buf, req)).To(Succeed())

		out := buf.String()
		Expect(out).To(HavePrefix("GET / HTTP/1.1\r\n"))
		Expect(out).To(ContainSubstring("Host: example.com\r\n"))
		Expect(out).To(ContainSubstring("Connection: keep-alive\r\n"))
		Expect(out).To(ContainSubstring("User-Agent: " + codec.UserAgent + "\r\n"))
	})

	It("includes a non-default port in Host", func() {
		req := message.NewRequest(message.MethodGet, mustURL("http://example.com:8080/"))

		var buf bytes.Buffer
		Expect(codec.Serialize(&buf, req)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Host: example.com:8080\r\n"))
	})

	It("rejects a header value containing CRLF before any write", func() {
		req := message.NewRequest(message.MethodGet, mustURL("http://example.com/")).
			WithHeader("X-Bad", "bad\r\nvalue")

		var buf bytes.Buffer
		err := codec.Serialize(&buf, req)
		Expect(err).To(HaveOccurred())
		var invalid *codec.ErrInvalidRequest
		Expect(err).To(BeAssignableToTypeOf(invalid))
	})

	It("rejects a header name containing a colon", func() {
		req := message.NewRequest(message.MethodGet, mustURL("http://example.com/")).
			WithHeader("Bad:Name", "value")

		var buf bytes.Buffer
		Expect(codec.Serialize(&buf, req)).To(HaveOccurred())
	})

	It("rejects a body whose length disagrees with a caller-supplied Content-Length", func() {
		req := message.NewRequest(message.MethodPost, mustURL("http://example.com/")).
			WithBody([]byte("hello")).
			WithHeader("Content-Length", "4")

		var buf bytes.Buffer
		Expect(codec.Serialize(&buf, req)).To(HaveOccurred())
	})

	It("accepts a body whose length matches a caller-supplied Content-Length", func() {
		req := message.NewRequest(message.MethodPost, mustURL("http://example.com/")).
			WithBody([]byte("hello")).
			WithHeader("Content-Length", "5")

		var buf bytes.Buffer
		Expect(codec.Serialize(&buf, req)).To(Succeed())
		Expect(buf.String()).To(HaveSuffix("hello"))
	})
})

var _ = Describe("Parse", func() {
	It("decodes a chunked response body", func() {
		raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"
		r := bufio.NewReader(strings.NewReader(raw))

		p, err := codec.Parse(r, false)
		Expect(err).ToNot(HaveOccurred())
		Expect(p.StatusCode).To(Equal(200))
		Expect(string(p.Body)).To(Equal("hello"))
		Expect(p.KeepAlive).To(BeTrue())
	})

	It("decodes a Content-Length-framed response body", func() {
		raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
		r := bufio.NewReader(strings.NewReader(raw))

		p, err := codec.Parse(r, false)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(p.Body)).To(Equal("hello"))
	})

	It("gives a 204 response no body", func() {
		raw := "HTTP/1.1 204 No Content\r\n\r\n"
		r := bufio.NewReader(strings.NewReader(raw))

		p, err := codec.Parse(r, false)
		Expect(err).ToNot(HaveOccurred())
		Expect(p.Body).To(BeEmpty())
	})

	It("treats a HEAD response as bodyless regardless of headers", func() {
		raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n"
		r := bufio.NewReader(strings.NewReader(raw))

		p, err := codec.Parse(r, true)
		Expect(err).ToNot(HaveOccurred())
		Expect(p.Body).To(BeEmpty())
	})

	It("reads to EOF and marks the connection unreusable when neither chunked nor length-framed", func() {
		raw := "HTTP/1.1 200 OK\r\n\r\nhello world"
		r := bufio.NewReader(strings.NewReader(raw))

		p, err := codec.Parse(r, false)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(p.Body)).To(Equal("hello world"))
		Expect(p.KeepAlive).To(BeFalse())
	})

	It("computes keep_alive=false when Connection: close is present", func() {
		raw := "HTTP/1.1 200 OK\r\nContent-Length: 0\r\nConnection: close\r\n\r\n"
		r := bufio.NewReader(strings.NewReader(raw))

		p, err := codec.Parse(r, false)
		Expect(err).ToNot(HaveOccurred())
		Expect(p.KeepAlive).To(BeFalse())
	})

	It("rejects a non-numeric chunk size", func() {
		raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\nZZ\r\nhello\r\n0\r\n\r\n"
		r := bufio.NewReader(strings.NewReader(raw))

		_, err := codec.Parse(r, false)
		Expect(err).To(HaveOccurred())
		var fe *codec.ErrFraming
		Expect(err).To(BeAssignableToTypeOf(fe))
	})

	It("tolerates a bare-LF status line terminator", func() {
		raw := "HTTP/1.1 200 OK\nContent-Length: 0\n\n"
		r := bufio.NewReader(strings.NewReader(raw))

		p, err := codec.Parse(r, false)
		Expect(err).ToNot(HaveOccurred())
		Expect(p.StatusCode).To(Equal(200))
	})

	It("is deterministic: parsing the same bytes twice yields identical results", func() {
		raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"

		p1, err := codec.Parse(bufio.NewReader(strings.NewReader(raw)), false)
		Expect(err).ToNot(HaveOccurred())
		p2, err := codec.Parse(bufio.NewReader(strings.NewReader(raw)), false)
		Expect(err).ToNot(HaveOccurred())

		Expect(p1.StatusCode).To(Equal(p2.StatusCode))
		Expect(p1.Body).To(Equal(p2.Body))
		Expect(p1.KeepAlive).To(Equal(p2.KeepAlive))
	})
})
