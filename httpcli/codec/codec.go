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

// Package codec implements the HTTP/1.1 wire protocol: request line and
// header serialization with auto-injected defaults, and response parsing
// with chunked/length/EOF body framing precedence and keep-alive
// computation. It never touches the network itself; callers supply an
// io.Writer/io.Reader pair (typically a pooled connection's stream).
package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/nabbar/httpcli/httpcli/header"
	"github.com/nabbar/httpcli/httpcli/message"
)

// UserAgent is the default User-Agent header value injected when the caller
// does not set one explicitly.
const UserAgent = "nabbar-httpcli/1.0"

// DefaultMaxHeaderBytes bounds the size of the response status line + header
// block read by Parse; exceeding it raises ErrFraming.
const DefaultMaxHeaderBytes = 1 << 20 // 1 MiB

// DefaultMaxBodyBytes bounds a Content-Length-framed response body; a
// response declaring a larger length raises ErrFraming before any read.
const DefaultMaxBodyBytes = 64 << 20 // 64 MiB

// DefaultMaxChunkBytes bounds a single chunk's declared size in a chunked
// transfer-encoded response.
const DefaultMaxChunkBytes = 16 << 20 // 16 MiB

// ErrInvalidRequest is returned by Serialize when the request cannot be
// framed unambiguously (e.g. a caller-supplied Content-Length disagreeing
// with the actual body length, or a header failing wire-safety validation).
type ErrInvalidRequest struct{ Reason string }

func (e *ErrInvalidRequest) Error() string { return "codec: invalid request: " + e.Reason }

// ErrFraming is returned by Parse on any malformed response framing:
// non-numeric chunk sizes, oversized headers/bodies, truncated streams.
type ErrFraming struct{ Reason string }

func (e *ErrFraming) Error() string { return "codec: framing error: " + e.Reason }

// Serialize writes req to w as an HTTP/1.1 request: the request line, the
// header block (with Host/Connection/User-Agent/Content-Length
// auto-injected per the rules below, user-supplied values always winning),
// a terminating CRLF, and the body verbatim.
//
//   - Host is bracketed for IPv6 literals and includes the port only when
//     it is non-default for the scheme.
//   - Connection defaults to "keep-alive" unless the caller set one.
//   - User-Agent defaults to UserAgent unless the caller set one.
//   - Content-Length is injected from len(body) iff a body is present and
//     Transfer-Encoding is absent; a caller-supplied Content-Length that
//     disagrees with the actual body length is rejected as InvalidRequest
//     before any byte is written.
func Serialize(w io.Writer, req *message.Request) error {
	uri := req.URI()
	if uri == nil {
		return &ErrInvalidRequest{Reason: "missing URI"}
	}

	h := req.Headers().Clone()
	body := req.Body()

	if cl, ok := h.GetFirst("Content-Length"); ok {
		n, err := strconv.Atoi(cl)
		if err != nil || n != len(body) {
			return &ErrInvalidRequest{Reason: "Content-Length disagrees with body length"}
		}
	} else if body != nil && !h.Contains("Transfer-Encoding") {
		h.Set("Content-Length", strconv.Itoa(len(body)))
	}

	if !h.Contains("Host") {
		h.Set("Host", hostHeaderValue(uri.Hostname(), uri.Port(), uri.Scheme))
	}
	if !h.Contains("Connection") {
		h.Set("Connection", "keep-alive")
	}
	if !h.Contains("User-Agent") {
		h.Set("User-Agent", UserAgent)
	}

	var invalid string
	h.Each(func(e header.Entry) bool {
		if !header.Validate(e.Name, e.Value) {
			invalid = e.Name
			return false
		}
		return true
	})
	if invalid != "" {
		return &ErrInvalidRequest{Reason: fmt.Sprintf("header %q fails wire-safety validation", invalid)}
	}

	path := uri.RequestURI()
	if path == "" {
		path = "/"
	}

	buf := bufio.NewWriter(w)
	fmt.Fprintf(buf, "%s %s HTTP/1.1\r\n", string(req.Method()), path)

	h.Each(func(e header.Entry) bool {
		fmt.Fprintf(buf, "%s: %s\r\n", e.Name, e.Value)
		return true
	})
	buf.WriteString("\r\n")

	if len(body) > 0 {
		buf.Write(body)
	}

	return buf.Flush()
}

func hostHeaderValue(hostname, port, scheme string) string {
	host := hostname
	if strings.Contains(hostname, ":") {
		host = "[" + hostname + "]"
	}

	defaultPort := "80"
	if scheme == "https" {
		defaultPort = "443"
	}

	if port == "" || port == defaultPort {
		return host
	}
	return net.JoinHostPort(hostname, port)
}

// Parsed is the wire-level result of reading one HTTP/1.1 response: the
// status line, the header block, the fully-consumed body, and whether the
// connection may be reused for another request.
type Parsed struct {
	StatusCode int
	Status     string
	Headers    *header.Store
	Body       []byte
	KeepAlive  bool
}

// Parse reads one HTTP/1.1 response from r, framing the body per the
// precedence order: "no body expected" cases (HEAD request, 1xx/204/304
// status) first, then chunked Transfer-Encoding, then Content-Length, then
// read-to-EOF.
// isHead tells Parse the originating request's method was HEAD, since a
// HEAD response never carries a body regardless of headers.
func Parse(r *bufio.Reader, isHead bool) (*Parsed, error) {
	statusLine, err := readLine(r, DefaultMaxHeaderBytes)
	if err != nil {
		return nil, &ErrFraming{Reason: "reading status line: " + err.Error()}
	}

	code, reason, err := parseStatusLine(statusLine)
	if err != nil {
		return nil, &ErrFraming{Reason: err.Error()}
	}

	h := header.New()
	budget := DefaultMaxHeaderBytes - len(statusLine)
	for {
		line, err := readLine(r, budget)
		if err != nil {
			return nil, &ErrFraming{Reason: "reading headers: " + err.Error()}
		}
		budget -= len(line)
		if line == "" {
			break
		}
		name, value, ok := splitHeaderLine(line)
		if !ok {
			return nil, &ErrFraming{Reason: "malformed header line"}
		}
		h.Add(name, value)
	}

	noBody := isHead || code == 204 || code == 304 || (code >= 100 && code < 200)

	var body []byte
	switch {
	case noBody:
		body = nil
	case isChunked(h):
		body, err = readChunked(r)
		if err != nil {
			return nil, err
		}
	case hasContentLength(h):
		n, err := contentLength(h)
		if err != nil {
			return nil, err
		}
		body, err = readExactly(r, n)
		if err != nil {
			return nil, err
		}
	default:
		body, err = io.ReadAll(r)
		if err != nil {
			return nil, &ErrFraming{Reason: "reading to EOF: " + err.Error()}
		}
	}

	keepAlive := computeKeepAlive(h, !noBody && !isChunked(h) && !hasContentLength(h))

	return &Parsed{
		StatusCode: code,
		Status:     reason,
		Headers:    h,
		Body:       body,
		KeepAlive:  keepAlive,
	}, nil
}

// readLine reads one CRLF- or LF-terminated line from r, stripping the
// terminator, bounded by budget bytes.
func readLine(r *bufio.Reader, budget int) (string, error) {
	var out []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == '\n' {
			if len(out) > 0 && out[len(out)-1] == '\r' {
				out = out[:len(out)-1]
			}
			return string(out), nil
		}
		out = append(out, b)
		if len(out) > budget {
			return "", fmt.Errorf("header block exceeds %d bytes", DefaultMaxHeaderBytes)
		}
	}
}

func parseStatusLine(line string) (code int, reason string, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return 0, "", fmt.Errorf("malformed status line %q", line)
	}
	code, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, "", fmt.Errorf("non-numeric status code %q", parts[1])
	}
	if len(parts) == 3 {
		reason = parts[2]
	}
	return code, reason, nil
}

func splitHeaderLine(line string) (name, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

func isChunked(h *header.Store) bool {
	v, ok := h.GetFirst("Transfer-Encoding")
	return ok && strings.EqualFold(strings.TrimSpace(v), "chunked")
}

func hasContentLength(h *header.Store) bool {
	_, ok := h.GetFirst("Content-Length")
	return ok
}

func contentLength(h *header.Store) (int, error) {
	v, _ := h.GetFirst("Content-Length")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &ErrFraming{Reason: "non-numeric Content-Length"}
	}
	if n > DefaultMaxBodyBytes {
		return 0, &ErrFraming{Reason: "Content-Length exceeds configured maximum"}
	}
	return n, nil
}

func readExactly(r *bufio.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, &ErrFraming{Reason: "truncated body: " + err.Error()}
	}
	return buf, nil
}

// readChunked decodes a chunked-transfer body: a sequence of
// "<hex-size>\r\n<data>\r\n" chunks terminated by a zero-size chunk, followed
// by a (possibly empty) trailer section.
func readChunked(r *bufio.Reader) ([]byte, error) {
	var out bytes.Buffer

	for {
		sizeLine, err := readLine(r, 64)
		if err != nil {
			return nil, &ErrFraming{Reason: "reading chunk size: " + err.Error()}
		}
		sizeLine = strings.SplitN(sizeLine, ";", 2)[0] // drop chunk extensions
		size, err := strconv.ParseInt(strings.TrimSpace(sizeLine), 16, 64)
		if err != nil {
			return nil, &ErrFraming{Reason: "non-numeric chunk size"}
		}
		if size < 0 || size > DefaultMaxChunkBytes {
			return nil, &ErrFraming{Reason: "chunk size exceeds configured maximum"}
		}

		if size == 0 {
			for {
				trailer, err := readLine(r, DefaultMaxHeaderBytes)
				if err != nil {
					return nil, &ErrFraming{Reason: "reading chunk trailer: " + err.Error()}
				}
				if trailer == "" {
					break
				}
			}
			return out.Bytes(), nil
		}

		if _, err := io.CopyN(&out, r, size); err != nil {
			return nil, &ErrFraming{Reason: "truncated chunk data: " + err.Error()}
		}

		trailerCRLF, err := readLine(r, 2)
		if err != nil {
			return nil, &ErrFraming{Reason: "missing chunk terminator: " + err.Error()}
		}
		if trailerCRLF != "" {
			return nil, &ErrFraming{Reason: "malformed chunk terminator"}
		}
	}
}

// computeKeepAlive derives the keep_alive flag from the Connection header
// semantics (HTTP/1.1 defaults to keep-alive unless "close" is present) and
// from the framing mode: a read-to-EOF body always makes the connection
// unreusable regardless of what the header said.
func computeKeepAlive(h *header.Store, readToEOF bool) bool {
	if readToEOF {
		return false
	}
	if v, ok := h.GetFirst("Connection"); ok {
		return !strings.EqualFold(strings.TrimSpace(v), "close")
	}
	return true
}
