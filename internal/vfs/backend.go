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
	"errors"
	"io"
)

// ErrNotFound is returned when no mounted backend serves a resource.
var ErrNotFound = errors.New("resource not found")

// ResourceInfo describes one resource without opening it.
type ResourceInfo struct {
	Size       int64
	Checksum   uint32 // CRC32 of the decoded bytes; 0 when unknown
	Encrypted  bool
	Compressed bool
}

// Backend serves resources from one origin: a project directory, an
// in-memory table, or a secure pack. Resolution order between backends is
// by descending Priority.
type Backend interface {
	Name() string
	Priority() int
	Initialize() error
	Shutdown() error
	Exists(id ResourceID) bool
	Open(id ResourceID) (io.ReadCloser, error)
	Info(id ResourceID) (ResourceInfo, error)
	List(t ResourceType) []ResourceID
}
