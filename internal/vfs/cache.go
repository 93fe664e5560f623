/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package vfs

import (
	"container/list"
	"sync"
	"time"
)

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Bytes     int64
	Entries   int
}

// HitRate is Hits / (Hits + Misses), 0 when idle.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type cacheEntry struct {
	key        uint64
	id         string
	data       []byte
	lastAccess time.Time
	accesses   uint64
}

// byteCache is a byte-budgeted LRU. Eviction walks the least-recently-used
// tail until enough bytes free up; an entry larger than the whole budget is
// never admitted. Guarded by a single mutex: reads may come from importer
// worker goroutines.
type byteCache struct {
	mu       sync.Mutex
	maxBytes int64
	bytes    int64
	order    *list.List // front = most recently used
	entries  map[uint64]*list.Element
	stats    CacheStats
}

func newByteCache(maxBytes int64) *byteCache {
	return &byteCache{
		maxBytes: maxBytes,
		order:    list.New(),
		entries:  make(map[uint64]*list.Element),
	}
}

// get returns the cached payload and whether it was present.
func (c *byteCache) get(id ResourceID) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[id.Hash]
	if ok {
		e := el.Value.(*cacheEntry)
		// Hash collision guard: verify the full id.
		if e.id != id.ID {
			ok = false
		} else {
			e.lastAccess = time.Now()
			e.accesses++
			c.order.MoveToFront(el)
			c.stats.Hits++
			return e.data, true
		}
	}
	if !ok {
		c.stats.Misses++
	}
	return nil, false
}

// put admits a payload, evicting from the LRU tail as needed.
func (c *byteCache) put(id ResourceID, data []byte) {
	size := int64(len(data))
	if size > c.maxBytes {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, dup := c.entries[id.Hash]; dup {
		e := el.Value.(*cacheEntry)
		c.bytes += size - int64(len(e.data))
		e.data = data
		e.id = id.ID
		e.lastAccess = time.Now()
		c.order.MoveToFront(el)
	} else {
		el := c.order.PushFront(&cacheEntry{key: id.Hash, id: id.ID, data: data, lastAccess: time.Now()})
		c.entries[id.Hash] = el
		c.bytes += size
	}
	for c.bytes > c.maxBytes {
		tail := c.order.Back()
		if tail == nil {
			break
		}
		e := tail.Value.(*cacheEntry)
		c.order.Remove(tail)
		delete(c.entries, e.key)
		c.bytes -= int64(len(e.data))
		c.stats.Evictions++
	}
}

func (c *byteCache) remove(id ResourceID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[id.Hash]; ok {
		e := el.Value.(*cacheEntry)
		c.order.Remove(el)
		delete(c.entries, e.key)
		c.bytes -= int64(len(e.data))
	}
}

func (c *byteCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[uint64]*list.Element)
	c.bytes = 0
}

func (c *byteCache) snapshot() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Bytes = c.bytes
	s.Entries = len(c.entries)
	return s
}
