/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package pack reads and writes the secure resource pack container: a
// single file holding many resources with optional zlib compression,
// AES-256-GCM encryption and an RSA/SHA-256 signature sidecar.
//
// File layout (all integers little-endian):
//
//	header         fixed 64 bytes, see header struct
//	resource table resourceCount fixed 48-byte entries
//	string table   count u32, count u32 offsets, NUL-terminated strings
//	data region    opaque bytes
//	footer         magic "NMRF" + CRC32 over bytes [0, dataOffset)
//
// The optional content hash stored in the header is the first 16 bytes of
// a SHA-256 over every byte before the footer, computed with the hash
// field itself zeroed. The footer CRC is computed afterwards, over the
// final header and tables. A signature, when present, covers the whole
// final file and lives in a sibling ".sig" file.
package pack

import (
	"fmt"
)

const (
	magicHeader = "NMRS"
	magicFooter = "NMRF"

	// VersionMajor increments break compatibility; minor increments are
	// backward-compatible.
	VersionMajor = 1
	VersionMinor = 0

	headerSize = 64
	entrySize  = 48
	footerSize = 8
	ivSize     = 12

	maxResourceCount = 1_000_000
	maxStringCount   = 10_000_000
	maxStringLen     = 1 << 20
)

// Pack flags.
const (
	FlagEncrypted uint32 = 1 << iota
	FlagCompressed
	FlagSigned
)

// header mirrors the on-disk fixed header.
type header struct {
	versionMajor  uint16
	versionMinor  uint16
	flags         uint32
	resourceCount uint32
	tableOffset   uint64
	stringsOffset uint64
	dataOffset    uint64
	totalSize     uint64
	contentHash   [16]byte // zero when absent
}

func (h header) hasContentHash() bool {
	return h.contentHash != [16]byte{}
}

// Entry describes one resource inside the pack.
type Entry struct {
	ID               string
	Type             uint32
	DataOffset       uint64 // relative to the data region
	UncompressedSize uint64
	CompressedSize   uint64 // stored byte length in the data region
	CRC32            uint32 // over the fully decoded bytes
	IV               [ivSize]byte
}

// ErrorKind classifies pack verification failures.
type ErrorKind int

const (
	CorruptedHeader ErrorKind = iota
	InvalidMagic
	InvalidVersion
	CorruptedResourceTable
	CorruptedData
	ChecksumMismatch
	SignatureInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case CorruptedHeader:
		return "corrupted header"
	case InvalidMagic:
		return "invalid magic"
	case InvalidVersion:
		return "invalid version"
	case CorruptedResourceTable:
		return "corrupted resource table"
	case CorruptedData:
		return "corrupted data"
	case ChecksumMismatch:
		return "checksum mismatch"
	case SignatureInvalid:
		return "signature invalid"
	}
	return "unknown"
}

// Error is a pack verification failure, carrying a file offset where one
// applies (-1 otherwise).
type Error struct {
	Kind   ErrorKind
	Offset int64
	Detail string
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("pack: %s at offset %d: %s", e.Kind, e.Offset, e.Detail)
	}
	return fmt.Sprintf("pack: %s: %s", e.Kind, e.Detail)
}

// Is allows errors.Is comparisons against an *Error with the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func packErr(kind ErrorKind, offset int64, format string, args ...any) *Error {
	return &Error{Kind: kind, Offset: offset, Detail: fmt.Sprintf(format, args...)}
}

// KindErr returns a bare *Error usable as an errors.Is target.
func KindErr(kind ErrorKind) *Error { return &Error{Kind: kind, Offset: -1} }
