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

package message

import "encoding/json"

// BodyCodec is the JSON serializer collaborator contract: out of core scope
// per the purpose-and-scope section, consumed only through this interface so
// the client can inject an alternative implementation (msgpack, cbor, a
// pooled-buffer variant, ...) without the core depending on it directly.
type BodyCodec interface {
	Encode(v any) ([]byte, error)
	Decode(b []byte, v any) error
}

// DefaultBodyCodec is the JSON codec used when the client is not configured
// with one explicitly, implemented directly against encoding/json.
type DefaultBodyCodec struct{}

func (DefaultBodyCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (DefaultBodyCodec) Decode(b []byte, v any) error {
	return json.Unmarshal(b, v)
}

// MultipartBuilder produces a body byte sequence plus the Content-Type
// header value ("multipart/form-data; boundary=...") carrying it. It is a
// collaborator contract only: the multipart layer is out of core scope.
type MultipartBuilder interface {
	Build() (body []byte, contentType string, err error)
}
