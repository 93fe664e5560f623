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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"novelmind/internal/diag"
	"novelmind/internal/event"
)

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.Bus == nil {
		opts.Bus = event.NewBus()
	}
	if opts.Diag == nil {
		opts.Diag = diag.NewReporter()
	}
	return NewManager(opts)
}

func TestCreateProjectScaffoldsLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "MyNovel")
	m := newTestManager(t, Options{})

	if err := m.CreateProject(root, "My Novel"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	defer func() { _ = m.CloseProject() }()

	if m.State() != Open {
		t.Fatalf("state after create: %v", m.State())
	}
	for _, d := range []string{"Assets/Images", "Assets/Audio", "Scripts", "Scenes", "Localization", "Build", "Temp", "Backup", ".novelmind"} {
		if st, err := os.Stat(filepath.Join(root, filepath.FromSlash(d))); err != nil || !st.IsDir() {
			t.Fatalf("missing standard dir %s: %v", d, err)
		}
	}

	man := m.Manifest()
	if man.Name != "My Novel" || man.Version != "0.1.0" {
		t.Fatalf("manifest defaults wrong: %+v", man)
	}
	if man.DefaultLocale != "en" || man.TargetResolution != "1280x720" {
		t.Fatalf("manifest defaults wrong: %+v", man)
	}
	if man.CreatedAt == 0 || man.LastOpenedAt == 0 {
		t.Fatalf("timestamps not set: %+v", man)
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	m := newTestManager(t, Options{})
	if err := m.CreateProject(t.TempDir(), "  "); err == nil {
		t.Fatalf("blank name accepted")
	}
}

func TestSaveBumpsModifiedAtButAutosaveDoesNot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "p")
	m := newTestManager(t, Options{})
	if err := m.CreateProject(root, "p"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	before := m.Manifest().ModifiedAt
	time.Sleep(5 * time.Millisecond)
	m.MarkDirty()
	if err := m.SaveProject(); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	afterSave := m.Manifest().ModifiedAt
	if afterSave <= before {
		t.Fatalf("save did not bump modifiedAt: %d -> %d", before, afterSave)
	}
	if m.IsDirty() {
		t.Fatalf("save left project dirty")
	}

	m.MarkDirty()
	time.Sleep(5 * time.Millisecond)
	m.TriggerAutoSave()
	if m.Manifest().ModifiedAt != afterSave {
		t.Fatalf("autosave bumped modifiedAt")
	}
	if m.IsDirty() {
		t.Fatalf("autosave did not clear the dirty flag")
	}

	// A clean project is not rewritten by autosave.
	m.TriggerAutoSave()
}

func TestUnknownManifestFieldsSurviveSave(t *testing.T) {
	root := filepath.Join(t.TempDir(), "p")
	m := newTestManager(t, Options{})
	if err := m.CreateProject(root, "p"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if err := m.CloseProject(); err != nil {
		t.Fatalf("CloseProject: %v", err)
	}

	// A newer editor wrote a section this build does not know about.
	path := filepath.Join(root, ManifestFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	doc["voicePipeline"] = json.RawMessage(`{"provider":"studio","rate":1.25}`)
	raw, _ = json.MarshalIndent(doc, "", "  ")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	if err := m.OpenProject(root); err != nil {
		t.Fatalf("OpenProject: %v", err)
	}
	m.MarkDirty()
	if err := m.SaveProject(); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	_ = m.CloseProject()

	raw, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("re-read manifest: %v", err)
	}
	if !strings.Contains(string(raw), "voicePipeline") || !strings.Contains(string(raw), "studio") {
		t.Fatalf("unknown field dropped on save:\n%s", raw)
	}
}

func TestCorruptManifestFallsBackToBackup(t *testing.T) {
	root := filepath.Join(t.TempDir(), "p")
	rep := diag.NewReporter()
	m := newTestManager(t, Options{Diag: rep})
	if err := m.CreateProject(root, "fallback"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if err := m.CreateBackup(); err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}
	if err := m.CloseProject(); err != nil {
		t.Fatalf("CloseProject: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, ManifestFileName), []byte("{ truncated"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}
	if err := m.OpenProject(root); err != nil {
		t.Fatalf("open with backup present: %v", err)
	}
	defer func() { _ = m.CloseProject() }()

	if m.Manifest().Name != "fallback" {
		t.Fatalf("backup not restored: %+v", m.Manifest())
	}
	warned := false
	for _, d := range rep.All() {
		if d.Code == "W303" {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("restore from backup not surfaced as a diagnostic")
	}
}

func TestCorruptManifestWithoutBackupFailsOpen(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ManifestFileName), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := newTestManager(t, Options{})
	if err := m.OpenProject(root); err == nil {
		t.Fatalf("open of corrupt project succeeded")
	}
	if m.State() != Closed {
		t.Fatalf("failed open left state %v", m.State())
	}
}

func TestCloseWithUnsavedChanges(t *testing.T) {
	root := filepath.Join(t.TempDir(), "p")
	choice := ChoiceCancel
	m := newTestManager(t, Options{ConfirmClose: func() CloseChoice { return choice }})
	if err := m.CreateProject(root, "p"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	m.MarkDirty()
	if err := m.CloseProject(); !errors.Is(err, ErrCloseCancelled) {
		t.Fatalf("want ErrCloseCancelled, got %v", err)
	}
	if m.State() != Open {
		t.Fatalf("cancelled close changed state: %v", m.State())
	}

	choice = ChoiceSave
	if err := m.CloseProject(); err != nil {
		t.Fatalf("close with save: %v", err)
	}
	if m.State() != Closed {
		t.Fatalf("state after close: %v", m.State())
	}

	// The save-on-close reached disk.
	if err := m.OpenProject(root); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if m.IsDirty() {
		t.Fatalf("reopened project dirty")
	}
	_ = m.CloseProject()
}

func TestRecentsAreMRUCappedAndPersisted(t *testing.T) {
	recents := filepath.Join(t.TempDir(), "state", "recents.json")
	m := newTestManager(t, Options{RecentsPath: recents, MaxRecentProjects: 2})

	base := t.TempDir()
	for _, name := range []string{"one", "two", "three"} {
		if err := m.CreateProject(filepath.Join(base, name), name); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if err := m.CloseProject(); err != nil {
			t.Fatalf("close %s: %v", name, err)
		}
	}

	got := m.Recents()
	if len(got) != 2 || got[0].Name != "three" || got[1].Name != "two" {
		t.Fatalf("recents wrong: %+v", got)
	}

	// Re-opening an old project moves it to the front, no duplicate.
	if err := m.OpenProject(filepath.Join(base, "two")); err != nil {
		t.Fatalf("reopen two: %v", err)
	}
	_ = m.CloseProject()
	got = m.Recents()
	if len(got) != 2 || got[0].Name != "two" || got[1].Name != "three" {
		t.Fatalf("MRU order wrong: %+v", got)
	}

	// A fresh manager reads the same list back.
	m2 := newTestManager(t, Options{RecentsPath: recents, MaxRecentProjects: 2})
	if got := m2.Recents(); len(got) != 2 || got[0].Name != "two" {
		t.Fatalf("recents not persisted: %+v", got)
	}
}

func TestBreakpointsPersistAcrossSessions(t *testing.T) {
	root := filepath.Join(t.TempDir(), "p")
	m := newTestManager(t, Options{})
	if err := m.CreateProject(root, "p"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	m.SetBreakpoints([]string{"forest", "ending"})
	if err := m.SaveProject(); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	if err := m.CloseProject(); err != nil {
		t.Fatalf("CloseProject: %v", err)
	}

	if err := m.OpenProject(root); err != nil {
		t.Fatalf("OpenProject: %v", err)
	}
	if got := m.Breakpoints(); len(got) != 2 || got[0] != "forest" || got[1] != "ending" {
		t.Fatalf("breakpoints lost: %v", got)
	}

	// Clearing them removes the hidden file on the next save.
	m.SetBreakpoints(nil)
	if err := m.SaveProject(); err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, HiddenDirName, breakpointsFileName)); !os.IsNotExist(err) {
		t.Fatalf("empty breakpoint file not removed")
	}
	_ = m.CloseProject()
}

func TestStateMachineGuards(t *testing.T) {
	m := newTestManager(t, Options{})
	if err := m.SaveProject(); err == nil {
		t.Fatalf("save while closed accepted")
	}
	if err := m.CloseProject(); err == nil {
		t.Fatalf("close while closed accepted")
	}

	root := filepath.Join(t.TempDir(), "p")
	if err := m.CreateProject(root, "p"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if err := m.OpenProject(root); err == nil {
		t.Fatalf("double open accepted")
	}
	_ = m.CloseProject()
}

func TestBackupPruningKeepsNewest(t *testing.T) {
	root := filepath.Join(t.TempDir(), "p")
	m := newTestManager(t, Options{MaxBackups: 2})
	if err := m.CreateProject(root, "p"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	defer func() { _ = m.CloseProject() }()

	bdir := filepath.Join(root, BackupDirName)
	for _, stamp := range []string{"20250101-090000", "20250102-090000", "20250103-090000"} {
		name := ManifestFileName + "." + stamp + ".bak"
		if err := os.WriteFile(filepath.Join(bdir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("seed backup: %v", err)
		}
	}
	if err := m.CreateBackup(); err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}

	ents, err := os.ReadDir(bdir)
	if err != nil {
		t.Fatalf("read backup dir: %v", err)
	}
	var names []string
	for _, e := range ents {
		names = append(names, e.Name())
	}
	if len(names) != 2 {
		t.Fatalf("want 2 backups after pruning, got %v", names)
	}
	for _, n := range names {
		if strings.Contains(n, "20250101") || strings.Contains(n, "20250102") {
			t.Fatalf("oldest backups survived pruning: %v", names)
		}
	}
}

func TestSaveProjectAsCopiesTreeWithoutTemp(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	dst := filepath.Join(t.TempDir(), "dst")
	m := newTestManager(t, Options{})
	if err := m.CreateProject(src, "copyme"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	defer func() { _ = m.CloseProject() }()

	if err := os.WriteFile(filepath.Join(src, "Scripts", "intro.nms"), []byte("scene intro {}\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "Temp", "scratch.bin"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	if err := m.SaveProjectAs(dst); err != nil {
		t.Fatalf("SaveProjectAs: %v", err)
	}
	if m.Root() != dst {
		t.Fatalf("manager still points at %s", m.Root())
	}
	if _, err := os.Stat(filepath.Join(dst, ManifestFileName)); err != nil {
		t.Fatalf("manifest not copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "Scripts", "intro.nms")); err != nil {
		t.Fatalf("script not copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "Temp", "scratch.bin")); !os.IsNotExist(err) {
		t.Fatalf("Temp contents were copied")
	}
}

func TestAutoSaveTicker(t *testing.T) {
	root := filepath.Join(t.TempDir(), "p")
	m := newTestManager(t, Options{})
	if err := m.CreateProject(root, "p"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	defer func() { _ = m.CloseProject() }()

	// Arming a breakpoint dirties the project; the next autosave writes
	// the hidden breakpoints file, which the test can watch race-free.
	m.SetBreakpoints([]string{"intro"})
	m.StartAutoSave(20 * time.Millisecond)
	defer m.StopAutoSave()

	marker := filepath.Join(root, HiddenDirName, breakpointsFileName)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(marker); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("autosave never ran: %v", err)
	}
	m.StopAutoSave()
}
