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
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MemoryBackend serves resources from an in-memory table. The runtime
// preview uses it for generated resources; tests use it as a fixture.
// Guarded by a mutex: the play-mode runtime may publish from its own
// goroutine.
type MemoryBackend struct {
	name     string
	priority int

	mu      sync.RWMutex
	entries map[string]memEntry
}

type memEntry struct {
	id   ResourceID
	data []byte
}

func NewMemoryBackend(name string, priority int) *MemoryBackend {
	return &MemoryBackend{name: name, priority: priority, entries: make(map[string]memEntry)}
}

func (m *MemoryBackend) Name() string      { return m.name }
func (m *MemoryBackend) Priority() int     { return m.priority }
func (m *MemoryBackend) Initialize() error { return nil }

func (m *MemoryBackend) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memEntry)
	return nil
}

// Put stores or replaces a resource payload.
func (m *MemoryBackend) Put(id ResourceID, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id.ID] = memEntry{id: id, data: data}
}

// Delete removes a resource; reports whether it existed.
func (m *MemoryBackend) Delete(id ResourceID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id.ID]
	delete(m.entries, id.ID)
	return ok
}

func (m *MemoryBackend) Exists(id ResourceID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[id.ID]
	return ok
}

func (m *MemoryBackend) Open(id ResourceID) (io.ReadCloser, error) {
	m.mu.RLock()
	e, ok := m.entries[id.ID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("open %s: %w", id.ID, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(e.data)), nil
}

func (m *MemoryBackend) Info(id ResourceID) (ResourceInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id.ID]
	if !ok {
		return ResourceInfo{}, fmt.Errorf("info %s: %w", id.ID, ErrNotFound)
	}
	return ResourceInfo{Size: int64(len(e.data))}, nil
}

func (m *MemoryBackend) List(t ResourceType) []ResourceID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ResourceID
	for _, e := range m.entries {
		if t == Unknown || e.id.Type == t {
			out = append(out, e.id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
