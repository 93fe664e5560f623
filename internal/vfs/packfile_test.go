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
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"novelmind/internal/pack"
)

func buildTestPack(t *testing.T, path string, opts pack.BuildOptions) {
	t.Helper()
	w := pack.NewWriter()
	if err := w.Add("images/bg.png", uint32(Texture), bytes.Repeat([]byte{0x42}, 256)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.Add("scripts/intro.nms", uint32(Script), []byte("scene intro { }")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.WriteFile(path, opts); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestPackBackendServesVerifiedResources(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	packPath := filepath.Join(t.TempDir(), "base.nmp")
	buildTestPack(t, packPath, pack.BuildOptions{Compress: true, Key: key})

	v := New(1 << 20)
	if err := v.Mount(NewPackBackend("base", packPath, 5, pack.Options{Key: key})); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer func() { _ = v.Shutdown() }()

	id := NewResourceIDFromPath("scripts/intro.nms")
	data, err := v.ReadAll(id)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "scene intro { }" {
		t.Fatalf("pack resource wrong: %q", data)
	}

	// Second read is served by the cache.
	if _, err := v.ReadAll(id); err != nil {
		t.Fatalf("cached ReadAll: %v", err)
	}
	if st := v.CacheStats(); st.Hits != 1 {
		t.Fatalf("expected one cache hit, got %+v", st)
	}

	info, err := v.Info(id)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Size != int64(len("scene intro { }")) || info.Checksum == 0 {
		t.Fatalf("info wrong: %+v", info)
	}
	if !info.Encrypted || !info.Compressed {
		t.Fatalf("pack flags not surfaced: %+v", info)
	}

	if v.Exists(NewResourceIDFromPath("images/missing.png")) {
		t.Fatalf("missing resource reported present")
	}
	scripts := v.List(Script)
	if len(scripts) != 1 || scripts[0].ID != "scripts/intro.nms" {
		t.Fatalf("List(Script) = %v", scripts)
	}
}

func TestPackBackendIsShadowedByHigherPriorityDir(t *testing.T) {
	packPath := filepath.Join(t.TempDir(), "base.nmp")
	buildTestPack(t, packPath, pack.BuildOptions{})

	// A project directory override of one packed resource.
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "images"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "images", "bg.png"), []byte("override"), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	v := New(0)
	if err := v.Mount(NewPackBackend("base", packPath, 5, pack.Options{})); err != nil {
		t.Fatalf("mount pack: %v", err)
	}
	if err := v.Mount(NewDirBackend("project", root, 10)); err != nil {
		t.Fatalf("mount dir: %v", err)
	}
	defer func() { _ = v.Shutdown() }()

	data, err := v.ReadAll(NewResourceIDFromPath("images/bg.png"))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "override" {
		t.Fatalf("dir override lost to pack: %q", data)
	}

	// Resources absent from the directory fall through to the pack.
	if _, err := v.ReadAll(NewResourceIDFromPath("scripts/intro.nms")); err != nil {
		t.Fatalf("fallthrough read: %v", err)
	}
}

func TestPackBackendRejectsCorruptPackOnMount(t *testing.T) {
	packPath := filepath.Join(t.TempDir(), "bad.nmp")
	buildTestPack(t, packPath, pack.BuildOptions{})
	raw, err := os.ReadFile(packPath)
	if err != nil {
		t.Fatalf("read pack: %v", err)
	}
	raw[len(raw)/2] ^= 0xFF
	if err := os.WriteFile(packPath, raw, 0o644); err != nil {
		t.Fatalf("rewrite pack: %v", err)
	}

	v := New(0)
	if err := v.Mount(NewPackBackend("bad", packPath, 5, pack.Options{})); err == nil {
		t.Fatalf("corrupt pack mounted")
	}
}
