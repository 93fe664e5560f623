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
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
)

// BuildOptions controls how a pack is assembled.
type BuildOptions struct {
	// Compress zlib-deflates each resource before encryption.
	Compress bool
	// Key enables AES-256-GCM per-resource encryption (32 bytes).
	Key []byte
	// PrivateKeyPEM enables signing: an RSA key in PKCS#1 or PKCS#8 PEM.
	// The signature is written to a sibling ".sig" file.
	PrivateKeyPEM []byte
	// SkipContentHash leaves the header hash field zeroed. Mainly for
	// tests exercising hash-less packs.
	SkipContentHash bool
}

type pendingResource struct {
	id   string
	typ  uint32
	data []byte
}

// Writer accumulates resources and assembles them into a pack file.
type Writer struct {
	resources []pendingResource
	seen      map[string]struct{}
}

// NewWriter returns an empty pack writer.
func NewWriter() *Writer {
	return &Writer{seen: make(map[string]struct{})}
}

// Add queues one resource. Ids must be unique within the pack.
func (w *Writer) Add(id string, typ uint32, data []byte) error {
	if id == "" {
		return errors.New("add resource: empty id")
	}
	if len(id) > maxStringLen {
		return fmt.Errorf("add resource: id exceeds %d bytes", maxStringLen)
	}
	if bytes.IndexByte([]byte(id), 0) >= 0 {
		return fmt.Errorf("add resource %q: id contains NUL", id)
	}
	if _, dup := w.seen[id]; dup {
		return fmt.Errorf("add resource %q: duplicate id", id)
	}
	if len(w.resources) >= maxResourceCount {
		return fmt.Errorf("add resource %q: pack is full (%d resources)", id, maxResourceCount)
	}
	w.seen[id] = struct{}{}
	w.resources = append(w.resources, pendingResource{id: id, typ: typ, data: append([]byte(nil), data...)})
	return nil
}

// Len reports the number of queued resources.
func (w *Writer) Len() int { return len(w.resources) }

// WriteFile assembles the pack and writes it atomically, building to a
// temp file in the destination directory and renaming over the target.
func (w *Writer) WriteFile(path string, opts BuildOptions) error {
	blob, sigKey, err := w.build(opts)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pack-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp pack: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write pack: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync pack: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close pack: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename pack into place: %w", err)
	}

	if sigKey != nil {
		digest := sha256.Sum256(blob)
		sig, err := rsa.SignPKCS1v15(rand.Reader, sigKey, crypto.SHA256, digest[:])
		if err != nil {
			return fmt.Errorf("sign pack: %w", err)
		}
		if err := os.WriteFile(path+".sig", sig, 0o644); err != nil {
			return fmt.Errorf("write signature: %w", err)
		}
	}
	return nil
}

// build assembles the complete pack image in memory and returns it along
// with the parsed signing key, if any.
func (w *Writer) build(opts BuildOptions) ([]byte, *rsa.PrivateKey, error) {
	var gcm cipher.AEAD
	if opts.Key != nil {
		if len(opts.Key) != 32 {
			return nil, nil, errors.New("build pack: AES-256 key must be 32 bytes")
		}
		block, err := aes.NewCipher(opts.Key)
		if err != nil {
			return nil, nil, fmt.Errorf("build pack: %w", err)
		}
		gcm, err = cipher.NewGCM(block)
		if err != nil {
			return nil, nil, fmt.Errorf("build pack: %w", err)
		}
	}
	var sigKey *rsa.PrivateKey
	if opts.PrivateKeyPEM != nil {
		k, err := parsePrivateKey(opts.PrivateKeyPEM)
		if err != nil {
			return nil, nil, err
		}
		sigKey = k
	}

	var flags uint32
	if opts.Compress {
		flags |= FlagCompressed
	}
	if gcm != nil {
		flags |= FlagEncrypted
	}
	if sigKey != nil {
		flags |= FlagSigned
	}

	// String table: ids in table order, offsets relative to the string
	// data blob that follows the offsets array.
	var strData bytes.Buffer
	idOffsets := make([]uint32, len(w.resources))
	for i, res := range w.resources {
		idOffsets[i] = uint32(strData.Len())
		strData.WriteString(res.id)
		strData.WriteByte(0)
	}
	var strTable bytes.Buffer
	binary.Write(&strTable, binary.LittleEndian, uint32(len(w.resources))) //nolint:errcheck
	for _, off := range idOffsets {
		binary.Write(&strTable, binary.LittleEndian, off) //nolint:errcheck
	}
	strTable.Write(strData.Bytes())

	// Payloads: crc over the raw bytes, then compress, then encrypt.
	var data bytes.Buffer
	entries := make([]Entry, len(w.resources))
	for i, res := range w.resources {
		e := Entry{
			ID:               res.id,
			Type:             res.typ,
			UncompressedSize: uint64(len(res.data)),
			CRC32:            crc32.ChecksumIEEE(res.data),
			DataOffset:       uint64(data.Len()),
		}
		payload := res.data
		if opts.Compress {
			var zbuf bytes.Buffer
			zw := zlib.NewWriter(&zbuf)
			if _, err := zw.Write(payload); err != nil {
				return nil, nil, fmt.Errorf("compress %q: %w", res.id, err)
			}
			if err := zw.Close(); err != nil {
				return nil, nil, fmt.Errorf("compress %q: %w", res.id, err)
			}
			payload = zbuf.Bytes()
		}
		if gcm != nil {
			if _, err := rand.Read(e.IV[:]); err != nil {
				return nil, nil, fmt.Errorf("generate IV for %q: %w", res.id, err)
			}
			payload = gcm.Seal(nil, e.IV[:], payload, aad(&e))
		}
		e.CompressedSize = uint64(len(payload))
		data.Write(payload)
		entries[i] = e
	}

	tableOffset := uint64(headerSize)
	stringsOffset := tableOffset + uint64(len(entries))*entrySize
	dataOffset := stringsOffset + uint64(strTable.Len())
	totalSize := dataOffset + uint64(data.Len()) + footerSize

	var tbl bytes.Buffer
	for i, e := range entries {
		var eb [entrySize]byte
		binary.LittleEndian.PutUint32(eb[0:4], idOffsets[i])
		binary.LittleEndian.PutUint64(eb[4:12], e.DataOffset)
		binary.LittleEndian.PutUint64(eb[12:20], e.UncompressedSize)
		binary.LittleEndian.PutUint64(eb[20:28], e.CompressedSize)
		binary.LittleEndian.PutUint32(eb[28:32], e.Type)
		binary.LittleEndian.PutUint32(eb[32:36], e.CRC32)
		copy(eb[36:48], e.IV[:])
		tbl.Write(eb[:])
	}

	hdr := make([]byte, headerSize)
	copy(hdr[0:4], magicHeader)
	binary.LittleEndian.PutUint16(hdr[4:6], VersionMajor)
	binary.LittleEndian.PutUint16(hdr[6:8], VersionMinor)
	binary.LittleEndian.PutUint32(hdr[8:12], flags)
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(len(entries)))
	binary.LittleEndian.PutUint64(hdr[16:24], tableOffset)
	binary.LittleEndian.PutUint64(hdr[24:32], stringsOffset)
	binary.LittleEndian.PutUint64(hdr[32:40], dataOffset)
	binary.LittleEndian.PutUint64(hdr[40:48], totalSize)
	// hash field stays zero for hashing

	blob := make([]byte, 0, totalSize)
	blob = append(blob, hdr...)
	blob = append(blob, tbl.Bytes()...)
	blob = append(blob, strTable.Bytes()...)
	blob = append(blob, data.Bytes()...)

	if !opts.SkipContentHash {
		// SHA-256 over everything before the footer with the hash field
		// zeroed; first 16 bytes are patched into the header.
		sum := sha256.Sum256(blob)
		copy(blob[48:64], sum[:16])
	}

	// Footer CRC covers the final header and tables.
	crc := crc32.ChecksumIEEE(blob[:dataOffset])
	var fb [footerSize]byte
	copy(fb[0:4], magicFooter)
	binary.LittleEndian.PutUint32(fb[4:8], crc)
	blob = append(blob, fb[:]...)

	return blob, sigKey, nil
}

func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("signing key is not PEM")
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return k, nil
	}
	anyKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	k, ok := anyKey.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("signing key is not RSA")
	}
	return k, nil
}

// MarshalPublicKey renders the public half of an RSA key as PKIX PEM,
// suitable for Options.PublicKeyPEM.
func MarshalPublicKey(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
