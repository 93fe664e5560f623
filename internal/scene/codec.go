/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"novelmind/internal/event"
)

// Format selects the on-disk encoding of .nmscene files. Binary CBOR is
// the default; JSON is the diff-friendly textual alternative.
type Format int

const (
	FormatCBOR Format = iota
	FormatJSON
)

// jsonMagic: CBOR output never starts with '{', so Decode sniffs it.
const formatVersion = 1

type objectRecord struct {
	ID         string            `json:"id" cbor:"1,keyasint"`
	Name       string            `json:"name" cbor:"2,keyasint"`
	Type       string            `json:"type" cbor:"3,keyasint"`
	X          float64           `json:"x" cbor:"4,keyasint"`
	Y          float64           `json:"y" cbor:"5,keyasint"`
	Rotation   float64           `json:"rotation" cbor:"6,keyasint"`
	ScaleX     float64           `json:"scaleX" cbor:"7,keyasint"`
	ScaleY     float64           `json:"scaleY" cbor:"8,keyasint"`
	Alpha      float64           `json:"alpha" cbor:"9,keyasint"`
	Visible    bool              `json:"visible" cbor:"10,keyasint"`
	Locked     bool              `json:"locked,omitempty" cbor:"11,keyasint,omitempty"`
	ZOrder     int               `json:"zOrder" cbor:"12,keyasint"`
	Properties map[string]string `json:"properties,omitempty" cbor:"13,keyasint,omitempty"`
}

type sceneRecord struct {
	Version int            `json:"version" cbor:"1,keyasint"`
	SceneID string         `json:"sceneId" cbor:"2,keyasint"`
	Objects []objectRecord `json:"objects" cbor:"3,keyasint"`
}

// Encode serializes the document. Runtime-introduced objects are never
// written.
func Encode(d *Document, f Format) ([]byte, error) {
	rec := sceneRecord{Version: formatVersion, SceneID: d.SceneID}
	for _, o := range d.objects {
		if o.IsRuntime() {
			continue
		}
		rec.Objects = append(rec.Objects, objectRecord{
			ID: o.ID, Name: o.Name, Type: o.Type.String(),
			X: o.X, Y: o.Y, Rotation: o.Rotation,
			ScaleX: o.ScaleX, ScaleY: o.ScaleY, Alpha: o.Alpha,
			Visible: o.Visible, Locked: o.Locked, ZOrder: o.ZOrder,
			Properties: o.Properties,
		})
	}
	if f == FormatJSON {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal scene: %w", err)
		}
		return append(data, '\n'), nil
	}
	data, err := cbor.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal scene: %w", err)
	}
	return data, nil
}

// Decode parses either encoding, sniffing JSON by its leading brace.
func Decode(data []byte, bus *event.Bus) (*Document, error) {
	var rec sceneRecord
	if len(data) > 0 && data[0] == '{' {
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("parse scene: %w", err)
		}
	} else {
		if err := cbor.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("parse scene: %w", err)
		}
	}
	if rec.Version > formatVersion {
		return nil, fmt.Errorf("scene format version %d not supported", rec.Version)
	}
	d := NewDocument(rec.SceneID, bus)
	d.loading = true
	for _, or := range rec.Objects {
		t, err := ParseObjectType(or.Type)
		if err != nil {
			d.loading = false
			return nil, fmt.Errorf("object %s: %w", or.ID, err)
		}
		o := &Object{
			ID: or.ID, Name: or.Name, Type: t,
			X: or.X, Y: or.Y, Rotation: or.Rotation,
			ScaleX: or.ScaleX, ScaleY: or.ScaleY, Alpha: or.Alpha,
			Visible: or.Visible, Locked: or.Locked, ZOrder: or.ZOrder,
			Properties: or.Properties,
		}
		if o.Properties == nil {
			o.Properties = make(map[string]string)
		}
		if err := d.AddObject(o); err != nil {
			d.loading = false
			return nil, err
		}
	}
	d.loading = false
	if bus != nil {
		bus.Emit(event.SceneLoaded, "scene", d.SceneID)
	}
	return d, nil
}

// SaveFile writes the scene transactionally (temp file then rename).
// Saving is refused while the runtime preview owns the scene.
func SaveFile(d *Document, path string, f Format) error {
	if d.runtimeActive {
		return fmt.Errorf("scene %s: cannot save while runtime preview is active", d.SceneID)
	}
	if d.loading {
		return fmt.Errorf("scene %s: cannot save while a load is in progress", d.SceneID)
	}
	data, err := Encode(d, f)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create scene dir: %w", err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return fmt.Errorf("write temp scene: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace scene: %w", err)
	}
	return nil
}

// LoadFile reads and decodes a scene file.
func LoadFile(path string, bus *event.Bus) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return Decode(data, bus)
}
