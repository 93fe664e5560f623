/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package project supervises the project lifecycle: folder layout,
// project.json, recents, autosave and rolling backups.
package project

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"novelmind/internal/version"
)

//go:embed project.schema.json
var manifestSchema []byte

// Manifest is the project.json document. Fields written by newer
// editor versions are preserved on rewrite via the extra map.
type Manifest struct {
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	Author            string   `json:"author,omitempty"`
	Description       string   `json:"description,omitempty"`
	EngineVersion     string   `json:"engineVersion"`
	StartScene        string   `json:"startScene,omitempty"`
	CreatedAt         int64    `json:"createdAt"`    // Unix ms
	ModifiedAt        int64    `json:"modifiedAt"`   // Unix ms
	LastOpenedAt      int64    `json:"lastOpenedAt"` // Unix ms
	DefaultLocale     string   `json:"defaultLocale"`
	TargetResolution  string   `json:"targetResolution"` // "WxH"
	FullscreenDefault bool     `json:"fullscreenDefault"`
	BuildPreset       string   `json:"buildPreset,omitempty"`
	TargetPlatforms   []string `json:"targetPlatforms,omitempty"`

	extra map[string]json.RawMessage
}

// knownManifestKeys mirrors the json tags above; anything else read
// from disk lands in extra and is written back verbatim.
var knownManifestKeys = map[string]bool{
	"name": true, "version": true, "author": true, "description": true,
	"engineVersion": true, "startScene": true, "createdAt": true,
	"modifiedAt": true, "lastOpenedAt": true, "defaultLocale": true,
	"targetResolution": true, "fullscreenDefault": true,
	"buildPreset": true, "targetPlatforms": true,
}

// NewManifest returns a manifest with documented defaults and fresh
// timestamps.
func NewManifest(name string) Manifest {
	now := time.Now().UnixMilli()
	return Manifest{
		Name:             name,
		Version:          "0.1.0",
		EngineVersion:    version.EngineVersion,
		CreatedAt:        now,
		ModifiedAt:       now,
		DefaultLocale:    "en",
		TargetResolution: "1280x720",
	}
}

// applyDefaults fills fields a hand-edited or older manifest may lack.
func (m *Manifest) applyDefaults() {
	if m.Version == "" {
		m.Version = "0.1.0"
	}
	if m.EngineVersion == "" {
		m.EngineVersion = version.EngineVersion
	}
	if m.DefaultLocale == "" {
		m.DefaultLocale = "en"
	}
	if m.TargetResolution == "" {
		m.TargetResolution = "1280x720"
	}
}

type manifestAlias Manifest

func (m *Manifest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var a manifestAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = Manifest(a)
	for k, v := range raw {
		if !knownManifestKeys[k] {
			if m.extra == nil {
				m.extra = make(map[string]json.RawMessage)
			}
			m.extra[k] = v
		}
	}
	m.applyDefaults()
	return nil
}

func (m Manifest) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(manifestAlias(m))
	if err != nil {
		return nil, err
	}
	if len(m.extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range m.extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// ValidateManifest checks a project.json document against the bundled
// schema and returns one message per violation.
func ValidateManifest(data []byte) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(manifestSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return msgs, nil
}
