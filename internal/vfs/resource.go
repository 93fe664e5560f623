/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package vfs serves project resources by logical id through an ordered
// list of pluggable backends with an LRU byte cache in front.
package vfs

import (
	"path/filepath"
	"strings"
)

// ResourceType classifies resources; it may be inferred from a path
// extension.
type ResourceType int

const (
	Unknown ResourceType = iota
	Texture
	Audio
	Font
	Script
	Scene
	Localization
	Data
	Shader
	Config
)

func (t ResourceType) String() string {
	switch t {
	case Texture:
		return "texture"
	case Audio:
		return "audio"
	case Font:
		return "font"
	case Script:
		return "script"
	case Scene:
		return "scene"
	case Localization:
		return "localization"
	case Data:
		return "data"
	case Shader:
		return "shader"
	case Config:
		return "config"
	}
	return "unknown"
}

// InferType maps a path extension to a resource type.
func InferType(path string) ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".webp", ".tif", ".tiff", ".gif":
		return Texture
	case ".wav", ".ogg", ".mp3", ".flac", ".opus":
		return Audio
	case ".ttf", ".otf", ".woff", ".woff2":
		return Font
	case ".nms", ".nmscript":
		return Script
	case ".nmscene":
		return Scene
	case ".po", ".csv", ".loc":
		return Localization
	case ".json", ".cbor", ".dat":
		return Data
	case ".glsl", ".frag", ".vert":
		return Shader
	case ".yaml", ".yml", ".ini", ".cfg":
		return Config
	}
	return Unknown
}

const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// fnv1a hashes a resource id string (FNV-1a, 64-bit).
func fnv1a(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}

// ResourceID is a logical resource identifier with a precomputed hash.
// Equality compares the hash first, then the id; ordering is by id.
type ResourceID struct {
	ID   string
	Type ResourceType
	Hash uint64
}

// NewResourceID builds an id with an explicit type.
func NewResourceID(id string, t ResourceType) ResourceID {
	return ResourceID{ID: id, Type: t, Hash: fnv1a(id)}
}

// NewResourceIDFromPath infers the type from the path extension.
func NewResourceIDFromPath(id string) ResourceID {
	return NewResourceID(id, InferType(id))
}

// Equal compares hash-then-id.
func (r ResourceID) Equal(o ResourceID) bool {
	return r.Hash == o.Hash && r.ID == o.ID
}

// Less orders ids lexicographically.
func (r ResourceID) Less(o ResourceID) bool { return r.ID < o.ID }

// Valid reports whether the id carries a non-empty logical name.
func (r ResourceID) Valid() bool { return r.ID != "" }

func (r ResourceID) String() string { return r.Type.String() + ":" + r.ID }
