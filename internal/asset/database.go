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
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"novelmind/internal/event"
	applog "novelmind/internal/log"
	"novelmind/internal/vfs"
)

// DatabaseDirName and DatabaseFileName locate the hidden metadata store
// under the project root.
const (
	DatabaseDirName  = ".novelmind"
	DatabaseFileName = "assetdb.json"
)

// DatabasePath returns the metadata store path for a project root.
func DatabasePath(projectRoot string) string {
	return filepath.Join(projectRoot, DatabaseDirName, DatabaseFileName)
}

// typeFolder maps an asset type to its standard project subfolder.
func typeFolder(t vfs.ResourceType) string {
	switch t {
	case vfs.Texture:
		return filepath.Join("Assets", "Images")
	case vfs.Audio:
		return filepath.Join("Assets", "Audio")
	case vfs.Font:
		return filepath.Join("Assets", "Fonts")
	case vfs.Script:
		return "Scripts"
	case vfs.Scene:
		return "Scenes"
	case vfs.Localization:
		return "Localization"
	}
	return "Assets"
}

// Database is the asset registry of one project. All mutations run on
// the UI goroutine; only diagnostics may cross threads.
type Database struct {
	root      string
	assets    map[string]*Metadata
	byPath    map[string]string // source path -> asset id
	importers []Importer
	outdated  map[string]bool

	index    *Index
	bus      *event.Bus
	onChange func(Change)
	log      *slog.Logger
}

// NewDatabase creates a database rooted at a project directory and
// registers the built-in importers. bus may be nil in tests.
func NewDatabase(projectRoot string, bus *event.Bus) *Database {
	d := &Database{
		root:     projectRoot,
		assets:   make(map[string]*Metadata),
		byPath:   make(map[string]string),
		outdated: make(map[string]bool),
		bus:      bus,
		log:      applog.WithComponent("assetdb"),
	}
	d.RegisterImporter(ImageImporter{})
	d.RegisterImporter(AudioImporter{})
	d.RegisterImporter(FontImporter{})
	d.RegisterImporter(ScriptImporter{})
	d.RegisterImporter(DataImporter{})
	return d
}

// Root returns the project root the database serves.
func (d *Database) Root() string { return d.root }

// SetChangeCallback installs the single change callback the editor shell
// registers; it fires after the bus event.
func (d *Database) SetChangeCallback(fn func(Change)) { d.onChange = fn }

// AttachIndex mirrors metadata into the per-project SQLite index.
func (d *Database) AttachIndex(idx *Index) {
	d.index = idx
	for _, m := range d.assets {
		if err := idx.Upsert(m); err != nil {
			d.log.Warn("index upsert failed", slog.String("asset", m.ID), slog.Any("err", err))
		}
	}
}

// RegisterImporter appends an importer; earlier registrations win on
// extension overlap.
func (d *Database) RegisterImporter(i Importer) { d.importers = append(d.importers, i) }

// ImporterForFile finds the importer serving a path: linear over the
// registered importers, matched by extension then CanImport.
func (d *Database) ImporterForFile(path string) (Importer, bool) {
	for _, i := range d.importers {
		if hasExtension(path, i.SupportedExtensions()) && i.CanImport(path) {
			return i, true
		}
	}
	return nil, false
}

// ImportAsset runs the import pipeline for a source file: locate the
// importer, choose a collision-free destination in the standard folder
// for the asset type, import, register and announce.
func (d *Database) ImportAsset(source string) (*Metadata, error) {
	imp, ok := d.ImporterForFile(source)
	if !ok {
		return nil, fmt.Errorf("no importer for %s", filepath.Base(source))
	}
	dest := d.uniqueDestination(source, imp.AssetType())
	meta, err := imp.Import(source, dest)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", filepath.Base(source), err)
	}
	d.register(meta)
	d.resolveScriptRefs(meta)
	d.log.Info("asset imported",
		slog.String("asset", meta.ID),
		slog.String("name", meta.Name),
		slog.String("type", meta.Type.String()))
	d.fire(Change{Kind: Added, AssetID: meta.ID})
	return meta.Clone(), nil
}

// uniqueDestination picks the import path, suffixing the file name with
// a counter on collision.
func (d *Database) uniqueDestination(source string, t vfs.ResourceType) string {
	dir := filepath.Join(d.root, typeFolder(t))
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	dest := filepath.Join(dir, base)
	for n := 1; ; n++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			if _, taken := d.byImportedPath(dest); !taken {
				return dest
			}
		}
		dest = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}
}

func (d *Database) byImportedPath(path string) (*Metadata, bool) {
	for _, m := range d.assets {
		if m.ImportedPath == path {
			return m, true
		}
	}
	return nil, false
}

// register installs metadata, replacing any previous entry with the same
// id and keeping the path index and reverse references consistent.
func (d *Database) register(m *Metadata) {
	if prev, ok := d.assets[m.ID]; ok {
		delete(d.byPath, prev.SourcePath)
	}
	d.assets[m.ID] = m
	d.byPath[m.SourcePath] = m.ID
	for _, dep := range m.DependsOn {
		if target, ok := d.assets[dep]; ok && !contains(target.ReferencedBy, m.ID) {
			target.ReferencedBy = append(target.ReferencedBy, m.ID)
		}
	}
	d.indexUpsert(m)
}

// resolveScriptRefs turns the reference names a script importer found
// into dependencies on assets with matching names.
func (d *Database) resolveScriptRefs(m *Metadata) {
	if len(m.ImporterSettings) == 0 {
		return
	}
	var settings struct {
		Refs []string `json:"refs"`
	}
	if err := json.Unmarshal(m.ImporterSettings, &settings); err != nil {
		return
	}
	for _, ref := range settings.Refs {
		if target, ok := d.FindByName(ref); ok {
			_ = d.AddDependency(m.ID, target.ID)
		}
	}
}

// ReimportAsset refreshes an asset from its source. If the checksum or
// source mtime changed, the metadata is replaced, a Reimported event
// fires, and every referent is touched with a Modified event so caches
// invalidate.
func (d *Database) ReimportAsset(id string) (*Metadata, error) {
	existing, ok := d.assets[id]
	if !ok {
		return nil, fmt.Errorf("unknown asset %s", id)
	}
	imp, ok := d.ImporterForFile(existing.SourcePath)
	if !ok {
		return nil, fmt.Errorf("no importer for %s", filepath.Base(existing.SourcePath))
	}
	updated, err := imp.Reimport(existing)
	if err != nil {
		return nil, fmt.Errorf("reimport %s: %w", existing.Name, err)
	}
	changed := updated.Checksum != existing.Checksum ||
		!updated.SourceModified.Equal(existing.SourceModified)
	d.assets[id] = updated
	d.byPath[updated.SourcePath] = id
	delete(d.outdated, id)
	d.indexUpsert(updated)
	if changed {
		d.fire(Change{Kind: Reimported, AssetID: id})
		for _, ref := range updated.ReferencedBy {
			d.fire(Change{Kind: Modified, AssetID: ref})
		}
	}
	return updated.Clone(), nil
}

// UpdateAsset mutates mutable metadata fields through a callback; the
// change is announced as Modified.
func (d *Database) UpdateAsset(id string, mutate func(*Metadata)) error {
	m, ok := d.assets[id]
	if !ok {
		return fmt.Errorf("unknown asset %s", id)
	}
	oldPath := m.SourcePath
	mutate(m)
	if m.SourcePath != oldPath {
		delete(d.byPath, oldPath)
		d.byPath[m.SourcePath] = id
	}
	d.indexUpsert(m)
	d.fire(Change{Kind: Modified, AssetID: id})
	return nil
}

// RenameAsset changes the display name.
func (d *Database) RenameAsset(id, name string) error {
	return d.UpdateAsset(id, func(m *Metadata) { m.Name = name })
}

// MoveAsset relocates the imported file and fires Moved.
func (d *Database) MoveAsset(id, newImportedPath string) error {
	m, ok := d.assets[id]
	if !ok {
		return fmt.Errorf("unknown asset %s", id)
	}
	if err := os.MkdirAll(filepath.Dir(newImportedPath), 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}
	if err := os.Rename(m.ImportedPath, newImportedPath); err != nil {
		return fmt.Errorf("move asset file: %w", err)
	}
	m.ImportedPath = newImportedPath
	d.indexUpsert(m)
	d.fire(Change{Kind: Moved, AssetID: id})
	return nil
}

// UnregisterAsset removes an asset, detaching it from every dependency
// and reverse reference, and fires Deleted.
func (d *Database) UnregisterAsset(id string) bool {
	m, ok := d.assets[id]
	if !ok {
		return false
	}
	for _, dep := range m.DependsOn {
		if target, tok := d.assets[dep]; tok {
			target.ReferencedBy = removeString(target.ReferencedBy, id)
		}
	}
	for _, ref := range m.ReferencedBy {
		if source, sok := d.assets[ref]; sok {
			source.DependsOn = removeString(source.DependsOn, id)
		}
	}
	delete(d.assets, id)
	delete(d.byPath, m.SourcePath)
	delete(d.outdated, id)
	if d.index != nil {
		if err := d.index.Delete(id); err != nil {
			d.log.Warn("index delete failed", slog.String("asset", id), slog.Any("err", err))
		}
	}
	d.fire(Change{Kind: Deleted, AssetID: id})
	return true
}

// Queries.

// Get returns a copy of the metadata for an id.
func (d *Database) Get(id string) (*Metadata, bool) {
	m, ok := d.assets[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// FindBySourcePath resolves a source path to its asset.
func (d *Database) FindBySourcePath(path string) (*Metadata, bool) {
	id, ok := d.byPath[path]
	if !ok {
		return nil, false
	}
	return d.Get(id)
}

// FindByName returns the first asset with the given display name.
func (d *Database) FindByName(name string) (*Metadata, bool) {
	ids := d.sortedIDs()
	for _, id := range ids {
		if d.assets[id].Name == name {
			return d.Get(id)
		}
	}
	return nil, false
}

// All returns copies of every asset, sorted by id for determinism.
func (d *Database) All() []*Metadata {
	out := make([]*Metadata, 0, len(d.assets))
	for _, id := range d.sortedIDs() {
		out = append(out, d.assets[id].Clone())
	}
	return out
}

// Count returns the number of registered assets.
func (d *Database) Count() int { return len(d.assets) }

func (d *Database) sortedIDs() []string {
	ids := make([]string, 0, len(d.assets))
	for id := range d.assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dependency maintenance. The asset graph may cycle: script A can show a
// scene that jumps back to script A. Consumers handle cycles.

// AddDependency records that a needs b, keeping both directions in sync.
func (d *Database) AddDependency(a, b string) error {
	ma, ok := d.assets[a]
	if !ok {
		return fmt.Errorf("unknown asset %s", a)
	}
	mb, ok := d.assets[b]
	if !ok {
		return fmt.Errorf("unknown asset %s", b)
	}
	if !contains(ma.DependsOn, b) {
		ma.DependsOn = append(ma.DependsOn, b)
	}
	if !contains(mb.ReferencedBy, a) {
		mb.ReferencedBy = append(mb.ReferencedBy, a)
	}
	return nil
}

// RemoveDependency removes the a-needs-b relation symmetrically.
func (d *Database) RemoveDependency(a, b string) error {
	ma, ok := d.assets[a]
	if !ok {
		return fmt.Errorf("unknown asset %s", a)
	}
	mb, ok := d.assets[b]
	if !ok {
		return fmt.Errorf("unknown asset %s", b)
	}
	ma.DependsOn = removeString(ma.DependsOn, b)
	mb.ReferencedBy = removeString(mb.ReferencedBy, a)
	return nil
}

// Change detection.

// CheckForChanges hashes every source file and marks assets whose
// source checksum no longer matches the import as outdated. A missing
// or unreadable source counts as changed. A content edit that keeps
// the old mtime is still caught because the checksum is compared
// unconditionally.
func (d *Database) CheckForChanges() []string {
	for id, m := range d.assets {
		if _, err := os.Stat(m.SourcePath); err != nil {
			d.outdated[id] = true
			continue
		}
		sum, err := ChecksumFile(m.SourcePath)
		if err != nil || sum != m.Checksum {
			d.outdated[id] = true
		}
	}
	return d.OutdatedAssets()
}

// MarkOutdated flags one asset, e.g. from the filesystem watcher.
func (d *Database) MarkOutdated(id string) {
	if _, ok := d.assets[id]; ok {
		d.outdated[id] = true
	}
}

// OutdatedAssets returns the ids flagged by change detection, sorted.
func (d *Database) OutdatedAssets() []string {
	out := make([]string, 0, len(d.outdated))
	for id := range d.outdated {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Persistence: the full metadata map as hidden JSON, rewritten
// atomically.

type databaseFile struct {
	Version int         `json:"version"`
	Assets  []*Metadata `json:"assets"`
}

// Save writes the metadata store transactionally.
func (d *Database) Save() error {
	df := databaseFile{Version: 1, Assets: []*Metadata{}}
	for _, id := range d.sortedIDs() {
		df.Assets = append(df.Assets, d.assets[id])
	}
	data, err := json.MarshalIndent(df, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal asset db: %w", err)
	}
	data = append(data, '\n')
	path := DatabasePath(d.root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	temp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%d-%d", DatabaseFileName, os.Getpid(), rand.Int()))
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return fmt.Errorf("write temp db: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace db: %w", err)
	}
	return nil
}

// Load reads the metadata store. A missing file leaves the database
// empty.
func (d *Database) Load() error {
	data, err := os.ReadFile(DatabasePath(d.root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read asset db: %w", err)
	}
	var df databaseFile
	if err := json.Unmarshal(data, &df); err != nil {
		return fmt.Errorf("parse asset db: %w", err)
	}
	d.assets = make(map[string]*Metadata, len(df.Assets))
	d.byPath = make(map[string]string, len(df.Assets))
	for _, m := range df.Assets {
		d.assets[m.ID] = m
		d.byPath[m.SourcePath] = m.ID
	}
	return nil
}

func (d *Database) fire(c Change) {
	if d.bus != nil {
		d.bus.Emit(event.AssetChanged, "assetdb", c)
	}
	if d.onChange != nil {
		d.onChange(c)
	}
}

func (d *Database) indexUpsert(m *Metadata) {
	if d.index == nil {
		return
	}
	if err := d.index.Upsert(m); err != nil {
		d.log.Warn("index upsert failed", slog.String("asset", m.ID), slog.Any("err", err))
	}
}

func contains(list []string, v string) bool {
	for _, e := range list {
		if e == v {
			return true
		}
	}
	return false
}

func removeString(list []string, v string) []string {
	for i, e := range list {
		if e == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
