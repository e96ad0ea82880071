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

package fields

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type fldModel struct {
	ctx context.Context
	m   sync.Map
}

func (o *fldModel) Add(key string, val interface{}) Fields {
	if o == nil || key == "" {
		return o
	}
	o.m.Store(key, val)
	return o
}

func (o *fldModel) Get(key string) (interface{}, bool) {
	if o == nil {
		return nil, false
	}
	return o.m.Load(key)
}

func (o *fldModel) Del(key string) Fields {
	if o == nil {
		return o
	}
	o.m.Delete(key)
	return o
}

func (o *fldModel) Walk(fn func(key string, val interface{}) bool) {
	if o == nil || fn == nil {
		return
	}
	o.m.Range(func(k, v any) bool {
		key, ok := k.(string)
		if !ok {
			return true
		}
		return fn(key, v)
	})
}

func (o *fldModel) Logrus() logrus.Fields {
	out := make(logrus.Fields)
	o.Walk(func(key string, val interface{}) bool {
		out[key] = val
		return true
	})
	return out
}

func (o *fldModel) Clone() Fields {
	if o == nil {
		return New(context.Background())
	}

	c := &fldModel{ctx: o.ctx}
	o.Walk(func(key string, val interface{}) bool {
		c.m.Store(key, val)
		return true
	})
	return c
}
