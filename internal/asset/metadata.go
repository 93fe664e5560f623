/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package asset implements the content-addressed asset registry and its
// import pipeline: pluggable importers, dependency tracking and change
// detection against the source files.
package asset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"time"

	"novelmind/internal/vfs"
)

// Metadata describes one imported asset. DependsOn and ReferencedBy are
// kept reflexive by the database: if A depends on B, B references A.
type Metadata struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	SourcePath       string           `json:"sourcePath"`
	ImportedPath     string           `json:"importedPath"`
	Type             vfs.ResourceType `json:"type"`
	SourceModified   time.Time        `json:"sourceModified"`
	ImportedAt       time.Time        `json:"importedAt"`
	Size             int64            `json:"size"`
	Checksum         string           `json:"checksum"`
	DependsOn        []string         `json:"dependsOn,omitempty"`
	ReferencedBy     []string         `json:"referencedBy,omitempty"`
	ImporterSettings json.RawMessage  `json:"importerSettings,omitempty"`
	Tags             []string         `json:"tags,omitempty"`
	ThumbnailPath    string           `json:"thumbnailPath,omitempty"`
}

// Clone deep-copies the metadata.
func (m *Metadata) Clone() *Metadata {
	c := *m
	c.DependsOn = append([]string(nil), m.DependsOn...)
	c.ReferencedBy = append([]string(nil), m.ReferencedBy...)
	c.Tags = append([]string(nil), m.Tags...)
	c.ImporterSettings = append(json.RawMessage(nil), m.ImporterSettings...)
	return &c
}

// ChangeKind classifies asset change events.
type ChangeKind int

const (
	Added ChangeKind = iota
	Modified
	Deleted
	Moved
	Reimported
)

func (k ChangeKind) String() string {
	switch k {
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Moved:
		return "moved"
	case Reimported:
		return "reimported"
	}
	return "added"
}

// Change is delivered through the database's change callback and as the
// bus payload of AssetChanged events.
type Change struct {
	Kind    ChangeKind
	AssetID string
}

// ChecksumFile computes the hex SHA-256 of a file's content.
func ChecksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
