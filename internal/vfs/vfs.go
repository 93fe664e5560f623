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
	"fmt"
	"io"
	"log/slog"
	"sort"

	applog "novelmind/internal/log"
)

// VFS resolves resources through backends sorted by descending priority:
// the first backend whose Exists returns true serves the request.
type VFS struct {
	backends []Backend
	cache    *byteCache
	log      *slog.Logger
}

// New creates a VFS. cacheBytes <= 0 disables the byte cache.
func New(cacheBytes int64) *VFS {
	v := &VFS{log: applog.WithComponent("vfs")}
	if cacheBytes > 0 {
		v.cache = newByteCache(cacheBytes)
	}
	return v
}

// Mount initializes and registers a backend, keeping the list sorted by
// descending priority. Equal priorities keep mount order.
func (v *VFS) Mount(b Backend) error {
	if err := b.Initialize(); err != nil {
		return fmt.Errorf("initialize backend %s: %w", b.Name(), err)
	}
	v.backends = append(v.backends, b)
	sort.SliceStable(v.backends, func(i, j int) bool {
		return v.backends[i].Priority() > v.backends[j].Priority()
	})
	v.log.Debug("backend mounted", slog.String("backend", b.Name()), slog.Int("priority", b.Priority()))
	return nil
}

// Unmount shuts down and removes a backend by name.
func (v *VFS) Unmount(name string) error {
	for i, b := range v.backends {
		if b.Name() == name {
			v.backends = append(v.backends[:i], v.backends[i+1:]...)
			return b.Shutdown()
		}
	}
	return fmt.Errorf("backend %s not mounted", name)
}

// Shutdown stops all backends in reverse mount order and drops the cache.
func (v *VFS) Shutdown() error {
	var firstErr error
	for i := len(v.backends) - 1; i >= 0; i-- {
		if err := v.backends[i].Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	v.backends = nil
	if v.cache != nil {
		v.cache.clear()
	}
	return firstErr
}

// resolve picks the first backend serving the id.
func (v *VFS) resolve(id ResourceID) (Backend, bool) {
	for _, b := range v.backends {
		if b.Exists(id) {
			return b, true
		}
	}
	return nil, false
}

// Exists reports whether any backend serves the id.
func (v *VFS) Exists(id ResourceID) bool {
	_, ok := v.resolve(id)
	return ok
}

// Info returns metadata for the id from its serving backend.
func (v *VFS) Info(id ResourceID) (ResourceInfo, error) {
	b, ok := v.resolve(id)
	if !ok {
		return ResourceInfo{}, fmt.Errorf("info %s: %w", id.ID, ErrNotFound)
	}
	return b.Info(id)
}

// OpenStream returns a streaming handle; the caller closes it. Streams
// bypass the byte cache.
func (v *VFS) OpenStream(id ResourceID) (io.ReadCloser, error) {
	b, ok := v.resolve(id)
	if !ok {
		return nil, fmt.Errorf("open %s: %w", id.ID, ErrNotFound)
	}
	return b.Open(id)
}

// ReadAll returns the full payload, consulting the cache first. Failed
// reads never populate the cache.
func (v *VFS) ReadAll(id ResourceID) ([]byte, error) {
	if v.cache != nil {
		if data, ok := v.cache.get(id); ok {
			return data, nil
		}
	}
	rc, err := v.OpenStream(id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id.ID, err)
	}
	if v.cache != nil {
		v.cache.put(id, data)
	}
	return data, nil
}

// Invalidate drops a cached payload, e.g. after a reimport.
func (v *VFS) Invalidate(id ResourceID) {
	if v.cache != nil {
		v.cache.remove(id)
	}
}

// List merges the ids of the given type across all backends, deduplicated
// with higher-priority backends winning.
func (v *VFS) List(t ResourceType) []ResourceID {
	seen := make(map[string]bool)
	var out []ResourceID
	for _, b := range v.backends {
		for _, id := range b.List(t) {
			if !seen[id.ID] {
				seen[id.ID] = true
				out = append(out, id)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// CacheStats returns cache metrics; zero stats when caching is off.
func (v *VFS) CacheStats() CacheStats {
	if v.cache == nil {
		return CacheStats{}
	}
	return v.cache.snapshot()
}
