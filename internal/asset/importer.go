/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package asset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"novelmind/internal/vfs"
)

// Importer turns a source file into an imported asset. Implementations
// declare their extensions and produced type; the database matches by
// extension first and then asks CanImport.
type Importer interface {
	Name() string
	SupportedExtensions() []string
	AssetType() vfs.ResourceType
	CanImport(path string) bool
	// Import processes source into dest and returns fresh metadata.
	Import(source, dest string) (*Metadata, error)
	// Reimport refreshes an existing asset from its source.
	Reimport(existing *Metadata) (*Metadata, error)
}

// baseImport copies source to dest and fills the metadata fields every
// importer needs: uuid, paths, size, checksum and timestamps.
func baseImport(source, dest string, t vfs.ResourceType) (*Metadata, error) {
	st, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("create destination dir: %w", err)
	}
	if err := copyFile(source, dest); err != nil {
		return nil, fmt.Errorf("copy %s: %w", filepath.Base(source), err)
	}
	sum, err := ChecksumFile(dest)
	if err != nil {
		return nil, fmt.Errorf("checksum %s: %w", filepath.Base(dest), err)
	}
	name := strings.TrimSuffix(filepath.Base(dest), filepath.Ext(dest))
	return &Metadata{
		ID:             uuid.NewString(),
		Name:           name,
		SourcePath:     source,
		ImportedPath:   dest,
		Type:           t,
		SourceModified: st.ModTime(),
		ImportedAt:     time.Now(),
		Size:           st.Size(),
		Checksum:       sum,
	}, nil
}

// baseReimport re-copies the source over the imported file and refreshes
// timestamps and checksum, keeping the asset id and references.
func baseReimport(existing *Metadata) (*Metadata, error) {
	st, err := os.Stat(existing.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if err := copyFile(existing.SourcePath, existing.ImportedPath); err != nil {
		return nil, fmt.Errorf("copy %s: %w", filepath.Base(existing.SourcePath), err)
	}
	sum, err := ChecksumFile(existing.ImportedPath)
	if err != nil {
		return nil, fmt.Errorf("checksum: %w", err)
	}
	updated := existing.Clone()
	updated.SourceModified = st.ModTime()
	updated.ImportedAt = time.Now()
	updated.Size = st.Size()
	updated.Checksum = sum
	return updated, nil
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
