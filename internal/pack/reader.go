/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package pack

import (
	"bytes"
	"compress/zlib"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"
	"sync"
)

// ErrNoEntry is returned when a resource id is not present in the pack.
var ErrNoEntry = errors.New("no such pack entry")

// Options configures pack opening.
type Options struct {
	// Key is the AES-256 key for encrypted packs (32 bytes).
	Key []byte
	// PublicKeyPEM verifies the signature of signed packs.
	PublicKeyPEM []byte
}

// Reader serves resources from an opened and verified pack. Safe for
// concurrent reads.
type Reader struct {
	mu      sync.Mutex
	f       *os.File
	hdr     header
	entries map[string]*Entry
	order   []string
	key     []byte
}

// Open reads and fully verifies a pack: header, tables, footer CRC,
// signature (when flagged) and content hash (when present). Any mismatch
// aborts with a *Error describing the specific verification failure.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pack: %w", err)
	}
	r := &Reader{f: f, key: opts.Key, entries: make(map[string]*Entry)}
	if err := r.load(path, opts); err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) load(path string, opts Options) error {
	st, err := r.f.Stat()
	if err != nil {
		return fmt.Errorf("stat pack: %w", err)
	}
	fileSize := st.Size()
	if fileSize < headerSize+footerSize {
		return packErr(CorruptedHeader, 0, "file too small (%d bytes)", fileSize)
	}

	var hb [headerSize]byte
	if _, err := io.ReadFull(r.f, hb[:]); err != nil {
		return packErr(CorruptedHeader, 0, "short header read: %v", err)
	}
	if string(hb[0:4]) != magicHeader {
		return packErr(InvalidMagic, 0, "want %q, got %q", magicHeader, hb[0:4])
	}
	h := header{
		versionMajor:  binary.LittleEndian.Uint16(hb[4:6]),
		versionMinor:  binary.LittleEndian.Uint16(hb[6:8]),
		flags:         binary.LittleEndian.Uint32(hb[8:12]),
		resourceCount: binary.LittleEndian.Uint32(hb[12:16]),
		tableOffset:   binary.LittleEndian.Uint64(hb[16:24]),
		stringsOffset: binary.LittleEndian.Uint64(hb[24:32]),
		dataOffset:    binary.LittleEndian.Uint64(hb[32:40]),
		totalSize:     binary.LittleEndian.Uint64(hb[40:48]),
	}
	copy(h.contentHash[:], hb[48:64])

	if h.versionMajor != VersionMajor {
		return packErr(InvalidVersion, 4, "pack version %d.%d, reader supports %d.x",
			h.versionMajor, h.versionMinor, VersionMajor)
	}
	if h.resourceCount > maxResourceCount {
		return packErr(CorruptedHeader, 12, "resource count %d exceeds limit", h.resourceCount)
	}
	if h.totalSize != uint64(fileSize) {
		return packErr(CorruptedHeader, 40, "header size %d != file size %d", h.totalSize, fileSize)
	}
	// Table offsets must be monotonic and inside the file.
	if h.tableOffset < headerSize || h.stringsOffset < h.tableOffset ||
		h.dataOffset < h.stringsOffset || h.dataOffset > h.totalSize-footerSize {
		return packErr(CorruptedHeader, 16, "non-monotonic section offsets")
	}
	if h.tableOffset+uint64(h.resourceCount)*entrySize > h.stringsOffset {
		return packErr(CorruptedHeader, 16, "resource table overlaps string table")
	}
	r.hdr = h

	// Resource table.
	tbl := make([]byte, uint64(h.resourceCount)*entrySize)
	if _, err := r.f.ReadAt(tbl, int64(h.tableOffset)); err != nil {
		return packErr(CorruptedResourceTable, int64(h.tableOffset), "short table read: %v", err)
	}

	// String table.
	strBlob := make([]byte, h.dataOffset-h.stringsOffset)
	if _, err := r.f.ReadAt(strBlob, int64(h.stringsOffset)); err != nil {
		return packErr(CorruptedResourceTable, int64(h.stringsOffset), "short string table read: %v", err)
	}
	if len(strBlob) < 4 {
		return packErr(CorruptedResourceTable, int64(h.stringsOffset), "string table truncated")
	}
	strCount := binary.LittleEndian.Uint32(strBlob[0:4])
	if strCount > maxStringCount {
		return packErr(CorruptedResourceTable, int64(h.stringsOffset), "string count %d exceeds limit", strCount)
	}
	offsetsEnd := 4 + uint64(strCount)*4
	if offsetsEnd > uint64(len(strBlob)) {
		return packErr(CorruptedResourceTable, int64(h.stringsOffset), "string offsets truncated")
	}
	strData := strBlob[offsetsEnd:]
	readString := func(off uint32) (string, error) {
		if uint64(off) >= uint64(len(strData)) {
			return "", packErr(CorruptedResourceTable, int64(h.stringsOffset)+int64(offsetsEnd)+int64(off), "string offset out of bounds")
		}
		end := bytes.IndexByte(strData[off:], 0)
		if end < 0 || end > maxStringLen {
			return "", packErr(CorruptedResourceTable, int64(h.stringsOffset)+int64(offsetsEnd)+int64(off), "unterminated or oversized string")
		}
		return string(strData[off : int(off)+end]), nil
	}
	// Validate the offsets array itself.
	for i := uint32(0); i < strCount; i++ {
		off := binary.LittleEndian.Uint32(strBlob[4+i*4 : 8+i*4])
		if _, err := readString(off); err != nil {
			return err
		}
	}

	dataRegionSize := h.totalSize - footerSize - h.dataOffset
	for i := uint32(0); i < h.resourceCount; i++ {
		eb := tbl[uint64(i)*entrySize : uint64(i+1)*entrySize]
		e := &Entry{
			Type:             binary.LittleEndian.Uint32(eb[28:32]),
			DataOffset:       binary.LittleEndian.Uint64(eb[4:12]),
			UncompressedSize: binary.LittleEndian.Uint64(eb[12:20]),
			CompressedSize:   binary.LittleEndian.Uint64(eb[20:28]),
			CRC32:            binary.LittleEndian.Uint32(eb[32:36]),
		}
		copy(e.IV[:], eb[36:48])
		id, err := readString(binary.LittleEndian.Uint32(eb[0:4]))
		if err != nil {
			return err
		}
		e.ID = id
		entryOff := int64(h.tableOffset) + int64(i)*entrySize
		if _, dup := r.entries[id]; dup {
			return packErr(CorruptedResourceTable, entryOff, "duplicate resource id %q", id)
		}
		if e.DataOffset+e.CompressedSize > dataRegionSize {
			return packErr(CorruptedResourceTable, entryOff, "resource %q exceeds data region", id)
		}
		r.entries[id] = e
		r.order = append(r.order, id)
	}

	// Footer.
	var fb [footerSize]byte
	if _, err := r.f.ReadAt(fb[:], fileSize-footerSize); err != nil {
		return packErr(CorruptedData, fileSize-footerSize, "short footer read: %v", err)
	}
	if string(fb[0:4]) != magicFooter {
		return packErr(InvalidMagic, fileSize-footerSize, "want %q, got %q", magicFooter, fb[0:4])
	}
	storedCRC := binary.LittleEndian.Uint32(fb[4:8])
	prefix := make([]byte, h.dataOffset)
	if _, err := r.f.ReadAt(prefix, 0); err != nil {
		return packErr(CorruptedData, 0, "short prefix read: %v", err)
	}
	if got := crc32.ChecksumIEEE(prefix); got != storedCRC {
		return packErr(ChecksumMismatch, fileSize-4, "footer CRC %08x != computed %08x", storedCRC, got)
	}

	if h.flags&FlagSigned != 0 {
		if err := verifySignature(r.f, path, fileSize, opts.PublicKeyPEM); err != nil {
			return err
		}
	}

	if h.hasContentHash() {
		if err := r.verifyContentHash(fileSize); err != nil {
			return err
		}
	}
	return nil
}

// verifyContentHash streams a SHA-256 over everything before the footer,
// with the header's hash field zeroed, and compares the first 16 bytes.
func (r *Reader) verifyContentHash(fileSize int64) error {
	hash := sha256.New()
	var hb [headerSize]byte
	if _, err := r.f.ReadAt(hb[:], 0); err != nil {
		return packErr(CorruptedData, 0, "content hash: %v", err)
	}
	for i := 48; i < 64; i++ {
		hb[i] = 0
	}
	hash.Write(hb[:])
	if _, err := r.f.Seek(headerSize, io.SeekStart); err != nil {
		return packErr(CorruptedData, headerSize, "content hash seek: %v", err)
	}
	if _, err := io.CopyN(hash, r.f, fileSize-footerSize-headerSize); err != nil {
		return packErr(CorruptedData, headerSize, "content hash stream: %v", err)
	}
	sum := hash.Sum(nil)
	if !bytes.Equal(sum[:16], r.hdr.contentHash[:]) {
		return packErr(ChecksumMismatch, 48, "content hash mismatch")
	}
	return nil
}

// verifySignature checks the sibling ".sig" file: an RSA PKCS#1 v1.5
// signature of the SHA-256 digest of the whole pack file.
func verifySignature(f *os.File, path string, fileSize int64, pubPEM []byte) error {
	if len(pubPEM) == 0 {
		return packErr(SignatureInvalid, -1, "pack is signed but no public key configured")
	}
	sig, err := os.ReadFile(path + ".sig")
	if err != nil {
		return packErr(SignatureInvalid, -1, "read signature file: %v", err)
	}
	block, _ := pem.Decode(pubPEM)
	if block == nil {
		return packErr(SignatureInvalid, -1, "public key is not PEM")
	}
	pubAny, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return packErr(SignatureInvalid, -1, "parse public key: %v", err)
	}
	pub, ok := pubAny.(*rsa.PublicKey)
	if !ok {
		return packErr(SignatureInvalid, -1, "public key is not RSA")
	}
	hash := sha256.New()
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return packErr(SignatureInvalid, -1, "seek: %v", err)
	}
	if _, err := io.CopyN(hash, f, fileSize); err != nil {
		return packErr(SignatureInvalid, -1, "hash pack: %v", err)
	}
	var digest [sha256.Size]byte
	hash.Sum(digest[:0])
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return packErr(SignatureInvalid, -1, "signature verification failed")
	}
	return nil
}

// Close releases the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

// Has reports whether the pack contains the id.
func (r *Reader) Has(id string) bool {
	_, ok := r.entries[id]
	return ok
}

// Entry returns the table entry for an id.
func (r *Reader) Entry(id string) (Entry, bool) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// IDs lists all resource ids in table order.
func (r *Reader) IDs() []string { return append([]string(nil), r.order...) }

// IDsSorted lists all resource ids lexicographically.
func (r *Reader) IDsSorted() []string {
	ids := r.IDs()
	sort.Strings(ids)
	return ids
}

// Flags returns the pack-level flags.
func (r *Reader) Flags() uint32 { return r.hdr.flags }

// Read extracts, decrypts, inflates and CRC-checks one resource.
func (r *Reader) Read(id string) ([]byte, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("read %q: %w", id, ErrNoEntry)
	}
	abs := int64(r.hdr.dataOffset) + int64(e.DataOffset)
	buf := make([]byte, e.CompressedSize)
	r.mu.Lock()
	_, err := r.f.ReadAt(buf, abs)
	r.mu.Unlock()
	if err != nil {
		return nil, packErr(CorruptedData, abs, "read resource %q: %v", id, err)
	}

	if r.hdr.flags&FlagEncrypted != 0 {
		buf, err = decrypt(buf, r.key, e)
		if err != nil {
			return nil, packErr(CorruptedData, abs, "decrypt %q: %v", id, err)
		}
	}
	if r.hdr.flags&FlagCompressed != 0 {
		buf, err = inflate(buf, e.UncompressedSize)
		if err != nil {
			return nil, packErr(CorruptedData, abs, "inflate %q: %v", id, err)
		}
	}
	if uint64(len(buf)) != e.UncompressedSize {
		return nil, packErr(CorruptedData, abs, "resource %q decoded to %d bytes, want %d", id, len(buf), e.UncompressedSize)
	}
	if got := crc32.ChecksumIEEE(buf); got != e.CRC32 {
		return nil, packErr(ChecksumMismatch, abs, "resource %q CRC %08x != stored %08x", id, got, e.CRC32)
	}
	return buf, nil
}

// aad builds the additional authenticated data binding ciphertext to its
// identity: id || 0x00 || u32(type) || u64(uncompressedSize).
func aad(e *Entry) []byte {
	out := make([]byte, 0, len(e.ID)+1+4+8)
	out = append(out, e.ID...)
	out = append(out, 0)
	out = binary.LittleEndian.AppendUint32(out, e.Type)
	out = binary.LittleEndian.AppendUint64(out, e.UncompressedSize)
	return out
}

func decrypt(ciphertext, key []byte, e *Entry) ([]byte, error) {
	if len(key) != 32 {
		return nil, errors.New("AES-256 key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, e.IV[:], ciphertext, aad(e))
}

func inflate(data []byte, limit uint64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()
	out := make([]byte, 0, limit)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, io.LimitReader(zr, int64(limit)+1)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
