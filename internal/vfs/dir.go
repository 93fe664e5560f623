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
	"io/fs"
	"os"
	"path/filepath"
)

// DirBackend serves resources from a directory tree; a resource id is the
// slash-separated path relative to the root.
type DirBackend struct {
	name     string
	root     string
	priority int
}

// NewDirBackend serves files below root under the given backend name.
func NewDirBackend(name, root string, priority int) *DirBackend {
	return &DirBackend{name: name, root: root, priority: priority}
}

func (d *DirBackend) Name() string  { return d.name }
func (d *DirBackend) Priority() int { return d.priority }

func (d *DirBackend) Initialize() error {
	st, err := os.Stat(d.root)
	if err != nil {
		return fmt.Errorf("stat root %s: %w", d.root, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("root %s is not a directory", d.root)
	}
	return nil
}

func (d *DirBackend) Shutdown() error { return nil }

func (d *DirBackend) path(id ResourceID) string {
	return filepath.Join(d.root, filepath.FromSlash(id.ID))
}

func (d *DirBackend) Exists(id ResourceID) bool {
	st, err := os.Stat(d.path(id))
	return err == nil && !st.IsDir()
}

func (d *DirBackend) Open(id ResourceID) (io.ReadCloser, error) {
	f, err := os.Open(d.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open %s: %w", id.ID, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", id.ID, err)
	}
	return f, nil
}

func (d *DirBackend) Info(id ResourceID) (ResourceInfo, error) {
	st, err := os.Stat(d.path(id))
	if err != nil {
		return ResourceInfo{}, fmt.Errorf("info %s: %w", id.ID, ErrNotFound)
	}
	return ResourceInfo{Size: st.Size()}, nil
}

func (d *DirBackend) List(t ResourceType) []ResourceID {
	var out []ResourceID
	_ = filepath.WalkDir(d.root, func(path string, e fs.DirEntry, err error) error {
		if err != nil || e.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(d.root, path)
		if rerr != nil {
			return nil
		}
		id := NewResourceIDFromPath(filepath.ToSlash(rel))
		if t == Unknown || id.Type == t {
			out = append(out, id)
		}
		return nil
	})
	return out
}
