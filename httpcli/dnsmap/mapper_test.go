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

package dnsmap_test

import (
	"context"
	"net"
	"time"

	"github.com/nabbar/httpcli/httpcli/dnsmap"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Mapper", func() {
	It("resolves an exact host:port mapping", func() {
		m := dnsmap.New()
		m.Add("api.example.com:443", "192.168.1.100:8443")

		ip, port, ok := m.Resolve("api.example.com", 443)
		Expect(ok).To(BeTrue())
		Expect(ip).To(Equal(net.ParseIP("192.168.1.100")))
		Expect(port).To(Equal(8443))
	})

	It("resolves a wildcard hostname with any port", func() {
		m := dnsmap.New()
		m.Add("*.internal.example.com:*", "10.0.0.5")

		ip, port, ok := m.Resolve("svc-a.internal.example.com", 9090)
		Expect(ok).To(BeTrue())
		Expect(ip).To(Equal(net.ParseIP("10.0.0.5")))
		Expect(port).To(Equal(9090))
	})

	It("does not match a host outside the wildcard's suffix", func() {
		m := dnsmap.New()
		m.Add("*.internal.example.com:*", "10.0.0.5")

		_, _, ok := m.Resolve("other.example.com", 443)
		Expect(ok).To(BeFalse())
	})

	It("returns ok=false when no mapping applies", func() {
		m := dnsmap.New()
		_, _, ok := m.Resolve("unmapped.example.com", 80)
		Expect(ok).To(BeFalse())
	})

	It("ignores a target that is itself a hostname", func() {
		m := dnsmap.New()
		m.Add("api.example.com:443", "proxy.internal.example.com:443")

		_, _, ok := m.Resolve("api.example.com", 443)
		Expect(ok).To(BeFalse())
	})

	It("exposes an Override hook usable by dialer.WithAddressOverride", func() {
		m := dnsmap.New()
		m.Add("api.example.com:443", "192.168.1.100")

		fn := m.Override()
		addrs, ok := fn("api.example.com", 443)
		Expect(ok).To(BeTrue())
		Expect(addrs).To(ConsistOf(net.ParseIP("192.168.1.100")))
	})

	It("removes a mapping via Del", func() {
		m := dnsmap.New()
		m.Add("api.example.com:443", "192.168.1.100")
		Expect(m.Len()).To(Equal(1))

		m.Del("api.example.com:443")
		Expect(m.Len()).To(Equal(0))

		_, _, ok := m.Resolve("api.example.com", 443)
		Expect(ok).To(BeFalse())
	})

	It("walks every registered mapping", func() {
		m := dnsmap.New()
		m.Add("a.example.com:443", "10.0.0.1")
		m.Add("b.example.com:443", "10.0.0.2")

		seen := map[string]string{}
		m.Walk(func(pattern, target string) bool {
			seen[pattern] = target
			return true
		})
		Expect(seen).To(HaveLen(2))
	})

	It("clears the resolved cache on each tick, exposing a Del made after the first lookup", func() {
		m := dnsmap.New()
		m.Add("api.example.com:443", "192.168.1.100")

		_, _, ok := m.Resolve("api.example.com", 443)
		Expect(ok).To(BeTrue())

		m.Del("api.example.com:443")

		// The cache still holds the pre-Del resolution until CleanCache fires.
		_, _, ok = m.Resolve("api.example.com", 443)
		Expect(ok).To(BeTrue())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		m.CleanCache(ctx, 10*time.Millisecond)

		Eventually(func() bool {
			_, _, ok := m.Resolve("api.example.com", 443)
			return ok
		}, time.Second, 5*time.Millisecond).Should(BeFalse())
	})
})
