/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Editor.AutoSaveIntervalSeconds != 300 {
		t.Fatalf("default autosave interval = %d, want 300", cfg.Editor.AutoSaveIntervalSeconds)
	}
	if cfg.Editor.MaxBackups != 5 {
		t.Fatalf("default max backups = %d, want 5", cfg.Editor.MaxBackups)
	}
	if cfg.Cache.ResourceCacheBytes <= 0 {
		t.Fatalf("default cache size must be positive")
	}
}

func TestMergeIntoKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Editor: EditorConfig{AutoSaveEnabled: true, UndoDepth: 50}}
	mergeInto(&dst, &src)
	if dst.Editor.UndoDepth != 50 {
		t.Errorf("undo depth not merged: %d", dst.Editor.UndoDepth)
	}
	if dst.Editor.AutoSaveIntervalSeconds != 300 {
		t.Errorf("zero interval overwrote default: %d", dst.Editor.AutoSaveIntervalSeconds)
	}
	if dst.Logging.Level != "info" {
		t.Errorf("empty log level overwrote default: %q", dst.Logging.Level)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAutoSaveInterval, "60")
	t.Setenv(EnvCacheBytes, "1024")
	t.Setenv(EnvLogLevel, "debug")
	cfg := Defaults()
	applyEnvOverrides(&cfg)
	if cfg.Editor.AutoSaveIntervalSeconds != 60 {
		t.Errorf("autosave override not applied: %d", cfg.Editor.AutoSaveIntervalSeconds)
	}
	if cfg.Cache.ResourceCacheBytes != 1024 {
		t.Errorf("cache override not applied: %d", cfg.Cache.ResourceCacheBytes)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level override not applied: %q", cfg.Logging.Level)
	}
}
