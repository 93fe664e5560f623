/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"novelmind/internal/asset"
	"novelmind/internal/diag"
	"novelmind/internal/event"
	applog "novelmind/internal/log"
)

const (
	ManifestFileName = "project.json"
	BackupDirName    = "Backup"
	// HiddenDirName holds editor-private per-project files.
	HiddenDirName = ".novelmind"

	breakpointsFileName = "breakpoints.json"
)

// Standard subfolders created for a new project.
var standardSubDirs = []string{
	"Assets/Images",
	"Assets/Audio",
	"Assets/Fonts",
	"Scripts",
	"Scenes",
	"Localization",
	"Build",
	"Temp",
	BackupDirName,
	HiddenDirName,
}

// State is the project lifecycle state. Operations outside their
// allowed state return an error.
type State int

const (
	Closed State = iota
	Opening
	Open
	Saving
	Closing
)

func (s State) String() string {
	switch s {
	case Opening:
		return "opening"
	case Open:
		return "open"
	case Saving:
		return "saving"
	case Closing:
		return "closing"
	}
	return "closed"
}

// CloseChoice is the host's answer to the unsaved-changes prompt.
type CloseChoice int

const (
	ChoiceSave CloseChoice = iota
	ChoiceDiscard
	ChoiceCancel
)

// ErrCloseCancelled is returned when the unsaved-changes prompt is
// answered with Cancel.
var ErrCloseCancelled = errors.New("close cancelled")

// RecentEntry is one row of the recent-projects list.
type RecentEntry struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	OpenedAt int64  `json:"openedAt"` // Unix ms
}

// Options configure a Manager; zero values take the defaults noted.
type Options struct {
	Bus      *event.Bus
	Diag     *diag.Reporter
	// RecentsPath is the file the recents list persists to; empty
	// disables persistence.
	RecentsPath       string
	MaxRecentProjects int // default 10
	MaxBackups        int // default 5
	// ConfirmClose is invoked when closing with unsaved changes; nil
	// means discard.
	ConfirmClose func() CloseChoice
}

// Manager supervises one open project at a time.
// Closed → Opening → Open → Saving → Open → Closing → Closed.
type Manager struct {
	opts Options

	mu       sync.Mutex // guards autosave goroutine handoff only
	state    State
	root     string
	manifest Manifest
	assets   *asset.Database
	index    *asset.Index

	dirty       bool
	breakpoints []string
	recents     []RecentEntry

	autosaveStop chan struct{}
}

// NewManager builds a closed manager. Recents are loaded eagerly so
// the host can render the list before any project opens.
func NewManager(opts Options) *Manager {
	if opts.MaxRecentProjects <= 0 {
		opts.MaxRecentProjects = 10
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 5
	}
	m := &Manager{opts: opts}
	m.loadRecents()
	return m
}

func (m *Manager) State() State             { return m.state }
func (m *Manager) Root() string             { return m.root }
func (m *Manager) Manifest() *Manifest      { return &m.manifest }
func (m *Manager) Assets() *asset.Database  { return m.assets }
func (m *Manager) Index() *asset.Index      { return m.index }
func (m *Manager) Recents() []RecentEntry   { return append([]RecentEntry(nil), m.recents...) }
func (m *Manager) IsDirty() bool            { return m.dirty }
func (m *Manager) MarkDirty()               { m.dirty = true }
func (m *Manager) Breakpoints() []string    { return append([]string(nil), m.breakpoints...) }
func (m *Manager) SetBreakpoints(ids []string) {
	m.breakpoints = append([]string(nil), ids...)
	m.dirty = true
}

// ManifestPath returns the project.json path for the open project.
func (m *Manager) ManifestPath() string { return filepath.Join(m.root, ManifestFileName) }

// CreateProject scaffolds the standard folder layout at root, writes a
// fresh manifest and opens the result.
func (m *Manager) CreateProject(root, name string) error {
	if m.state != Closed {
		return fmt.Errorf("create project: manager is %s, not closed", m.state)
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("create project: name is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create project root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	man := NewManifest(name)
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	if err := writeTransactional(filepath.Join(root, ManifestFileName), data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	applog.WithComponent("project").Info("project created", "root", root, "name", name)
	return m.OpenProject(root)
}

// OpenProject loads project.json, bootstraps the asset database and
// index against the folder, restores breakpoints and records the
// project in the recents list.
func (m *Manager) OpenProject(root string) error {
	if m.state != Closed {
		return fmt.Errorf("open project: manager is %s, not closed", m.state)
	}
	m.state = Opening
	man, err := m.readManifest(root)
	if err != nil {
		m.state = Closed
		return err
	}
	m.root = root
	m.manifest = man
	m.manifest.LastOpenedAt = time.Now().UnixMilli()

	m.assets = asset.NewDatabase(root, m.opts.Bus)
	if err := m.assets.Load(); err != nil {
		m.opts.Diag.ReportWarning(diag.Asset, "W301", fmt.Sprintf("asset database unreadable, starting empty: %v", err))
	}
	idx, err := asset.OpenIndex(root)
	if err != nil {
		m.opts.Diag.ReportWarning(diag.Asset, "W302", fmt.Sprintf("asset index unavailable: %v", err))
	} else {
		m.index = idx
		m.assets.AttachIndex(idx)
	}
	for _, id := range m.assets.CheckForChanges() {
		m.assets.MarkOutdated(id)
	}

	m.loadBreakpoints()
	m.addRecent(root, man.Name)
	m.dirty = false
	m.state = Open
	m.opts.Bus.Emit(event.ProjectOpened, "project", root)
	applog.WithComponent("project").Info("project opened", "root", root, "name", man.Name)
	return nil
}

// readManifest parses and validates project.json, falling back to the
// newest backup when the current file is unreadable or corrupt.
func (m *Manager) readManifest(root string) (Manifest, error) {
	path := filepath.Join(root, ManifestFileName)
	data, err := os.ReadFile(path)
	if err == nil {
		if man, perr := parseManifest(data, m.opts.Diag); perr == nil {
			return man, nil
		} else {
			err = perr
		}
	}
	man, berr := m.manifestFromLatestBackup(root)
	if berr != nil {
		return Manifest{}, fmt.Errorf("open manifest: %w (backup attempt: %v)", err, berr)
	}
	m.opts.Diag.ReportWarning(diag.General, "W303", "project.json was unreadable; restored from latest backup")
	return man, nil
}

func parseManifest(data []byte, reporter *diag.Reporter) (Manifest, error) {
	if msgs, err := ValidateManifest(data); err == nil {
		for _, msg := range msgs {
			reporter.ReportWarning(diag.General, "W304", "project.json: "+msg)
		}
	}
	var man Manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return man, nil
}

func (m *Manager) manifestFromLatestBackup(root string) (Manifest, error) {
	bdir := filepath.Join(root, BackupDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return Manifest{}, fmt.Errorf("read backup dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return Manifest{}, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	data, err := os.ReadFile(candidates[len(candidates)-1])
	if err != nil {
		return Manifest{}, fmt.Errorf("read latest backup: %w", err)
	}
	return parseManifest(data, m.opts.Diag)
}

// SaveProject writes project.json and the asset database, bumping
// modifiedAt.
func (m *Manager) SaveProject() error {
	return m.save(true)
}

// TriggerAutoSave saves without bumping modifiedAt. Failures surface
// as diagnostics and never interrupt editing.
func (m *Manager) TriggerAutoSave() {
	if m.state != Open || !m.dirty {
		return
	}
	if err := m.save(false); err != nil {
		m.opts.Diag.ReportWarning(diag.General, "W305", fmt.Sprintf("autosave failed: %v", err))
	}
}

func (m *Manager) save(bumpModified bool) error {
	if m.state != Open {
		return fmt.Errorf("save project: manager is %s, not open", m.state)
	}
	m.state = Saving
	defer func() { m.state = Open }()

	if bumpModified {
		m.manifest.ModifiedAt = time.Now().UnixMilli()
	}
	data, err := json.MarshalIndent(m.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	if err := writeTransactional(m.ManifestPath(), data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := m.assets.Save(); err != nil {
		return fmt.Errorf("save asset database: %w", err)
	}
	if err := m.saveBreakpoints(); err != nil {
		return fmt.Errorf("save breakpoints: %w", err)
	}
	m.dirty = false
	m.opts.Bus.Emit(event.ProjectSaved, "project", m.root)
	return nil
}

// SaveProjectAs copies the whole project tree to newRoot and re-points
// the manager there. Temp contents are not copied.
func (m *Manager) SaveProjectAs(newRoot string) error {
	if m.state != Open {
		return fmt.Errorf("save project as: manager is %s, not open", m.state)
	}
	if err := m.save(true); err != nil {
		return err
	}
	if err := copyTree(m.root, newRoot, "Temp"); err != nil {
		return fmt.Errorf("copy project tree: %w", err)
	}
	if m.index != nil {
		_ = m.index.Close()
	}
	oldRoot := m.root
	m.root = newRoot
	m.assets = asset.NewDatabase(newRoot, m.opts.Bus)
	if err := m.assets.Load(); err != nil {
		m.opts.Diag.ReportWarning(diag.Asset, "W301", fmt.Sprintf("asset database unreadable after copy: %v", err))
	}
	if idx, err := asset.OpenIndex(newRoot); err == nil {
		m.index = idx
		m.assets.AttachIndex(idx)
	} else {
		m.index = nil
		m.opts.Diag.ReportWarning(diag.Asset, "W302", fmt.Sprintf("asset index unavailable: %v", err))
	}
	m.addRecent(newRoot, m.manifest.Name)
	applog.WithComponent("project").Info("project copied", "from", oldRoot, "to", newRoot)
	return nil
}

// CreateBackup copies the current project.json into Backup/ with a
// timestamp and prunes the oldest copies beyond the configured cap.
func (m *Manager) CreateBackup() error {
	if m.state != Open {
		return fmt.Errorf("create backup: manager is %s, not open", m.state)
	}
	bdir := filepath.Join(m.root, BackupDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backup dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	dst := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp))
	if err := copyFile(m.ManifestPath(), dst); err != nil {
		return fmt.Errorf("backup manifest: %w", err)
	}
	return m.pruneBackups(bdir)
}

func (m *Manager) pruneBackups(bdir string) error {
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return fmt.Errorf("read backup dir: %w", err)
	}
	var backups []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			backups = append(backups, name)
		}
	}
	sort.Strings(backups)
	for len(backups) > m.opts.MaxBackups {
		if err := os.Remove(filepath.Join(bdir, backups[0])); err != nil {
			return fmt.Errorf("prune backup: %w", err)
		}
		backups = backups[1:]
	}
	return nil
}

// EmergencySnapshot writes the in-memory manifest into Backup/ without
// touching project.json. Used by the crash handler, so it must not
// depend on the state machine being consistent.
func (m *Manager) EmergencySnapshot() (string, error) {
	if m.root == "" {
		return "", errors.New("no open project")
	}
	data, err := json.MarshalIndent(m.manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	dir := filepath.Join(m.root, BackupDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backup dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("%s.crash-%s.json", ManifestFileName, stamp))
	if err := writeFileSync(path, append(data, '\n')); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// CloseProject shuts the project down. With unsaved changes the
// ConfirmClose callback decides; Cancel returns ErrCloseCancelled and
// leaves the project open.
func (m *Manager) CloseProject() error {
	if m.state != Open {
		return fmt.Errorf("close project: manager is %s, not open", m.state)
	}
	if m.dirty {
		choice := ChoiceDiscard
		if m.opts.ConfirmClose != nil {
			choice = m.opts.ConfirmClose()
		}
		switch choice {
		case ChoiceCancel:
			return ErrCloseCancelled
		case ChoiceSave:
			if err := m.save(true); err != nil {
				return err
			}
		}
	}
	m.state = Closing
	m.StopAutoSave()
	if m.index != nil {
		_ = m.index.Close()
		m.index = nil
	}
	root := m.root
	m.root = ""
	m.assets = nil
	m.manifest = Manifest{}
	m.breakpoints = nil
	m.dirty = false
	m.state = Closed
	m.opts.Bus.Emit(event.ProjectClosed, "project", root)
	applog.WithComponent("project").Info("project closed", "root", root)
	return nil
}

// StartAutoSave begins periodic autosave at the given interval.
func (m *Manager) StartAutoSave(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.autosaveStop != nil || interval <= 0 {
		return
	}
	stop := make(chan struct{})
	m.autosaveStop = stop
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				m.TriggerAutoSave()
			case <-stop:
				return
			}
		}
	}()
}

// StopAutoSave halts the autosave timer; safe to call when not running.
func (m *Manager) StopAutoSave() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.autosaveStop != nil {
		close(m.autosaveStop)
		m.autosaveStop = nil
	}
}

// Breakpoints persistence

func (m *Manager) breakpointsPath() string {
	return filepath.Join(m.root, HiddenDirName, breakpointsFileName)
}

func (m *Manager) loadBreakpoints() {
	data, err := os.ReadFile(m.breakpointsPath())
	if err != nil {
		m.breakpoints = nil
		return
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		m.opts.Diag.ReportWarning(diag.General, "W306", fmt.Sprintf("breakpoints file unreadable: %v", err))
		m.breakpoints = nil
		return
	}
	m.breakpoints = ids
}

func (m *Manager) saveBreakpoints() error {
	path := m.breakpointsPath()
	if len(m.breakpoints) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.breakpoints, "", "  ")
	if err != nil {
		return err
	}
	return writeTransactional(path, append(data, '\n'))
}

// Recents

func (m *Manager) addRecent(root, name string) {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	entry := RecentEntry{Path: abs, Name: name, OpenedAt: time.Now().UnixMilli()}
	out := []RecentEntry{entry}
	for _, r := range m.recents {
		if r.Path != abs {
			out = append(out, r)
		}
	}
	if len(out) > m.opts.MaxRecentProjects {
		out = out[:m.opts.MaxRecentProjects]
	}
	m.recents = out
	m.saveRecents()
}

func (m *Manager) loadRecents() {
	if m.opts.RecentsPath == "" {
		return
	}
	data, err := os.ReadFile(m.opts.RecentsPath)
	if err != nil {
		return
	}
	var rs []RecentEntry
	if err := json.Unmarshal(data, &rs); err != nil {
		return
	}
	m.recents = rs
}

func (m *Manager) saveRecents() {
	if m.opts.RecentsPath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.opts.RecentsPath), 0o755); err != nil {
		return
	}
	data, err := json.MarshalIndent(m.recents, "", "  ")
	if err != nil {
		return
	}
	if err := writeTransactional(m.opts.RecentsPath, append(data, '\n')); err != nil {
		applog.WithComponent("project").Warn("failed to persist recents", "err", err)
	}
}

// File helpers

// writeTransactional writes to a temp file in the target directory and
// renames it over the destination.
func writeTransactional(path string, data []byte) error {
	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return err
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return err
	}
	return nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
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
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
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

// copyTree copies src into dst recursively, skipping the named
// top-level directories.
func copyTree(src, dst string, skipTop ...string) error {
	skip := make(map[string]bool, len(skipTop))
	for _, s := range skipTop {
		skip[s] = true
	}
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return os.MkdirAll(dst, 0o755)
		}
		top := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
		if skip[top] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}
