// Copyright 2022 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package lru

import "sync"

// SizeConstrainedCache is an LRU cache constrained by the total size of its
// values in bytes, not by item count. It is safe for concurrent use.
type SizeConstrainedCache[K comparable, V ~[]byte] struct {
	mu      sync.Mutex
	maxSize uint64
	size    uint64
	lru     BasicLRU[K, V]
}

// NewSizeConstrainedCache creates a cache which holds items until their
// cumulative size exceeds maxSize, evicting the least recently used item(s).
func NewSizeConstrainedCache[K comparable, V ~[]byte](maxSize uint64) *SizeConstrainedCache[K, V] {
	return &SizeConstrainedCache[K, V]{
		maxSize: maxSize,
		lru:     NewBasicLRU[K, V](int(maxSize) + 1),
	}
}

// Add inserts value under key, evicting older items as needed to respect
// the size budget.
func (c *SizeConstrainedCache[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Peek(key); ok {
		c.size -= uint64(len(old))
	}
	c.lru.Add(key, value)
	c.size += uint64(len(value))

	for c.size > c.maxSize {
		// The item just added is never evicted; one larger than maxSize
		// stays in the cache on its own.
		oldest, _, ok := c.lru.GetOldest()
		if !ok || oldest == key {
			break
		}
		_, evicted, _ := c.lru.RemoveOldest()
		c.size -= uint64(len(evicted))
	}
}

// Get retrieves a value, marking it recently used.
func (c *SizeConstrainedCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}
