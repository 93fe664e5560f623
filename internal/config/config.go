/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package config persists the user-editable editor configuration to a YAML
// file in the user scope. Environment variables are treated as read-only
// overrides at runtime.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// config_version: bump when the structure changes in a backward-incompatible way.

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type EditorConfig struct {
	AutoSaveEnabled         bool `yaml:"auto_save_enabled"`
	AutoSaveIntervalSeconds int  `yaml:"auto_save_interval_seconds"`
	MaxBackups              int  `yaml:"max_backups"`
	MaxRecentProjects       int  `yaml:"max_recent_projects"`
	UndoDepth               int  `yaml:"undo_depth"`
}

type CacheConfig struct {
	// ResourceCacheBytes caps the VFS byte cache. 0 disables caching.
	ResourceCacheBytes int `yaml:"resource_cache_bytes"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Logging       LoggingConfig `yaml:"logging"`
	Editor        EditorConfig  `yaml:"editor"`
	Cache         CacheConfig   `yaml:"cache"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Editor: EditorConfig{
			AutoSaveEnabled:         true,
			AutoSaveIntervalSeconds: 300,
			MaxBackups:              5,
			MaxRecentProjects:       10,
			UndoDepth:               200,
		},
		Cache: CacheConfig{ResourceCacheBytes: 64 * 1024 * 1024},
	}
}

// Env var names used as overrides.
const (
	EnvAutoSaveInterval = "NM_AUTOSAVE_INTERVAL_S"
	EnvCacheBytes       = "NM_CACHE_BYTES"
	EnvUndoDepth        = "NM_UNDO_DEPTH"
	EnvLogLevel         = "NM_LOG_LEVEL"
	EnvLogFormat        = "NM_LOG_FORMAT"
	EnvLogSource        = "NM_LOG_SOURCE"
	EnvLogFile          = "NM_LOG_FILE"
)

// Path returns the per-user config file path.
func Path() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "NovelMind")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "NovelMind")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "novelmind")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides. A missing or unparsable file yields the defaults.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := Path()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if yerr := yaml.Unmarshal(data, &fileCfg); yerr == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// mergeInto overlays non-zero values from src onto dst.
func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
	if src.Logging.Source {
		dst.Logging.Source = true
	}
	if src.Logging.File != "" {
		dst.Logging.File = src.Logging.File
	}
	if src.Editor.AutoSaveIntervalSeconds > 0 {
		dst.Editor.AutoSaveIntervalSeconds = src.Editor.AutoSaveIntervalSeconds
	}
	if src.Editor.MaxBackups > 0 {
		dst.Editor.MaxBackups = src.Editor.MaxBackups
	}
	if src.Editor.MaxRecentProjects > 0 {
		dst.Editor.MaxRecentProjects = src.Editor.MaxRecentProjects
	}
	if src.Editor.UndoDepth > 0 {
		dst.Editor.UndoDepth = src.Editor.UndoDepth
	}
	dst.Editor.AutoSaveEnabled = src.Editor.AutoSaveEnabled
	if src.Cache.ResourceCacheBytes > 0 {
		dst.Cache.ResourceCacheBytes = src.Cache.ResourceCacheBytes
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvAutoSaveInterval)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.AutoSaveIntervalSeconds = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheBytes)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Cache.ResourceCacheBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvUndoDepth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.UndoDepth = n
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(EnvLogSource); v != "" {
		cfg.Logging.Source = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}
