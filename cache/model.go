/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

package cache

import (
	"context"
	"errors"
	"time"

	libatm "github.com/sufficit/go-ami/atomic"
	cchitm "github.com/sufficit/go-ami/cache/item"
)

// errClosed is returned by Clone when the source cache's context has already been cancelled.
var errClosed = errors.New("cache: context cancelled")

// cc is the internal implementation of the Cache interface.
// It stores each value wrapped in a cache/item.CacheItem so that expiration
// tracking lives with the item, not with the map.
type cc[K comparable, V any] struct {
	context.Context

	n context.CancelFunc
	v libatm.MapTyped[K, cchitm.CacheItem[V]]
	e time.Duration
}

// Clone returns a new Cache with the same, still-valid content as the current one.
func (o *cc[K, V]) Clone(ctx context.Context) (Cache[K, V], error) {
	if o.Err() != nil {
		return nil, errClosed
	}

	if ctx == nil {
		ctx = o.Context
	}

	n := New[K, V](ctx, o.e)

	o.Walk(func(key K, val V, _ time.Duration) bool {
		n.Store(key, val)
		return true
	})

	return n, nil
}

// Merge imports every valid item from the given cache, replacing any local item
// with the same key.
func (o *cc[K, V]) Merge(c Cache[K, V]) {
	if c == nil {
		return
	}

	c.Walk(func(key K, val V, _ time.Duration) bool {
		o.v.Store(key, cchitm.New(o.e, val))
		return true
	})
}

// Walk iterates over all valid items, skipping and pruning any that have expired.
func (o *cc[K, V]) Walk(fct func(K, V, time.Duration) bool) {
	if fct == nil {
		return
	}

	o.v.Range(func(key K, itm cchitm.CacheItem[V]) bool {
		val, rem, ok := itm.LoadRemain()
		if !ok {
			o.v.Delete(key)
			return true
		}

		return fct(key, val, rem)
	})
}

// Load returns the value stored for the given key, pruning it first if expired.
func (o *cc[K, V]) Load(key K) (V, time.Duration, bool) {
	if o.Err() != nil {
		var zero V
		return zero, 0, false
	}

	itm, ok := o.v.Load(key)
	if !ok {
		var zero V
		return zero, 0, false
	}

	val, rem, valid := itm.LoadRemain()
	if !valid {
		o.v.Delete(key)
		var zero V
		return zero, 0, false
	}

	return val, rem, true
}

// Store saves the given value for the given key, resetting its expiration timer.
func (o *cc[K, V]) Store(key K, val V) {
	o.v.Store(key, cchitm.New(o.e, val))
}

// Delete removes the item stored for the given key, if any.
func (o *cc[K, V]) Delete(key K) {
	o.v.Delete(key)
}

// LoadOrStore loads the existing, still-valid value for key, or stores val if absent/expired.
func (o *cc[K, V]) LoadOrStore(key K, val V) (V, time.Duration, bool) {
	if old, rem, ok := o.Load(key); ok {
		return old, rem, true
	}

	o.Store(key, val)
	var zero V
	return zero, 0, false
}

// LoadAndDelete loads the value for key, if still valid, and removes it from the cache.
func (o *cc[K, V]) LoadAndDelete(key K) (V, bool) {
	val, _, ok := o.Load(key)
	o.v.Delete(key)
	return val, ok
}

// Swap stores val for key and returns the previous value if it was still valid.
func (o *cc[K, V]) Swap(key K, val V) (V, time.Duration, bool) {
	old, rem, ok := o.Load(key)
	o.Store(key, val)

	if !ok {
		var zero V
		return zero, 0, false
	}

	return old, rem, true
}
