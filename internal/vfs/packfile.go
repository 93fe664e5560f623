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
	"errors"
	"fmt"
	"io"

	"novelmind/internal/pack"
)

// PackBackend serves resources from a secure resource pack. The pack is
// opened and fully verified on Initialize; a pack that fails header,
// CRC or signature checks never mounts.
type PackBackend struct {
	name     string
	path     string
	priority int
	opts     pack.Options
	r        *pack.Reader
}

// NewPackBackend serves the pack at path under the given backend name.
func NewPackBackend(name, path string, priority int, opts pack.Options) *PackBackend {
	return &PackBackend{name: name, path: path, priority: priority, opts: opts}
}

func (p *PackBackend) Name() string  { return p.name }
func (p *PackBackend) Priority() int { return p.priority }

func (p *PackBackend) Initialize() error {
	r, err := pack.Open(p.path, p.opts)
	if err != nil {
		return fmt.Errorf("open pack %s: %w", p.path, err)
	}
	p.r = r
	return nil
}

func (p *PackBackend) Shutdown() error {
	if p.r == nil {
		return nil
	}
	r := p.r
	p.r = nil
	return r.Close()
}

func (p *PackBackend) Exists(id ResourceID) bool {
	return p.r != nil && p.r.Has(id.ID)
}

func (p *PackBackend) Open(id ResourceID) (io.ReadCloser, error) {
	if p.r == nil {
		return nil, fmt.Errorf("open %s: pack %s not mounted", id.ID, p.name)
	}
	data, err := p.r.Read(id.ID)
	if err != nil {
		if errors.Is(err, pack.ErrNoEntry) {
			return nil, fmt.Errorf("open %s: %w", id.ID, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", id.ID, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (p *PackBackend) Info(id ResourceID) (ResourceInfo, error) {
	if p.r == nil {
		return ResourceInfo{}, fmt.Errorf("info %s: pack %s not mounted", id.ID, p.name)
	}
	e, ok := p.r.Entry(id.ID)
	if !ok {
		return ResourceInfo{}, fmt.Errorf("info %s: %w", id.ID, ErrNotFound)
	}
	return ResourceInfo{
		Size:       int64(e.UncompressedSize),
		Checksum:   e.CRC32,
		Encrypted:  p.r.Flags()&pack.FlagEncrypted != 0,
		Compressed: p.r.Flags()&pack.FlagCompressed != 0,
	}, nil
}

func (p *PackBackend) List(t ResourceType) []ResourceID {
	if p.r == nil {
		return nil
	}
	var out []ResourceID
	for _, id := range p.r.IDsSorted() {
		e, ok := p.r.Entry(id)
		if !ok {
			continue
		}
		rid := NewResourceID(id, ResourceType(e.Type))
		if t == Unknown || rid.Type == t {
			out = append(out, rid)
		}
	}
	return out
}
