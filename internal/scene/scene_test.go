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
	"path/filepath"
	"testing"

	"novelmind/internal/event"
	"novelmind/internal/undo"
)

func testDoc(t *testing.T) *Document {
	t.Helper()
	return NewDocument("intro", event.NewBus())
}

func TestAddRemoveAndDrawOrder(t *testing.T) {
	d := testDoc(t)
	bg := NewObject("bg", "Background", Background)
	bg.ZOrder = 0
	hero := NewObject("hero", "Hero", Character)
	hero.ZOrder = 5
	ui := NewObject("hud", "HUD", UI)
	ui.ZOrder = 2

	for _, o := range []*Object{bg, hero, ui} {
		if err := d.AddObject(o); err != nil {
			t.Fatalf("AddObject(%s): %v", o.ID, err)
		}
	}
	if err := d.AddObject(NewObject("bg", "Dup", Background)); err == nil {
		t.Fatalf("expected duplicate id rejection")
	}

	// Type layer wins over z-order: backgrounds, then characters, then UI.
	order := d.DrawOrder()
	if order[0].ID != "bg" || order[1].ID != "hero" || order[2].ID != "hud" {
		t.Fatalf("unexpected draw order: %s %s %s", order[0].ID, order[1].ID, order[2].ID)
	}

	snap, ok := d.RemoveObject("hud")
	if !ok || snap.Name != "HUD" {
		t.Fatalf("RemoveObject returned %v, %v", snap, ok)
	}
	if d.Count() != 2 {
		t.Fatalf("want 2 objects, got %d", d.Count())
	}
}

func TestSceneObjectChangedEvents(t *testing.T) {
	bus := event.NewBus()
	d := NewDocument("intro", bus)
	if err := d.AddObject(NewObject("hero", "Hero", Character)); err != nil {
		t.Fatalf("AddObject: %v", err)
	}

	var fields []string
	bus.SubscribeKinds(func(ev event.Event) {
		fields = append(fields, ev.Data.(ObjectChange).Field)
	}, event.SceneObjectChanged)

	d.SetObjectPosition("hero", 10, 20)
	d.SetObjectOpacity("hero", 0.5)
	d.SetObjectVisible("hero", false)

	want := []string{"position", "alpha", "visible"}
	if len(fields) != len(want) {
		t.Fatalf("want %d events, got %d: %v", len(want), len(fields), fields)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("event %d: want %s, got %s", i, want[i], fields[i])
		}
	}
	if o, _ := d.Object("hero"); o.X != 10 || o.Alpha != 0.5 || o.Visible {
		t.Fatalf("mutations not applied: %+v", o)
	}
}

// A drag emits one transform command per frame; merging must collapse
// them so a single undo restores the drag origin.
func TestTransformCommandsMergeIntoOneUndoStep(t *testing.T) {
	d := testDoc(t)
	obj := NewObject("hero", "Hero", Character)
	if err := d.AddObject(obj); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	um := undo.NewManager(100)

	origin := obj.Clone()
	for i := 1; i <= 3; i++ {
		after := obj.Clone()
		after.X, after.Y = float64(i*10), float64(i*10)
		cmd := &TransformCommand{Doc: d, Before: origin.Clone(), After: after}
		if err := um.Push(cmd); err != nil {
			t.Fatalf("Push step %d: %v", i, err)
		}
	}

	if o, _ := d.Object("hero"); o.X != 30 || o.Y != 30 {
		t.Fatalf("after drag want (30,30), got (%v,%v)", o.X, o.Y)
	}
	if err := um.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if o, _ := d.Object("hero"); o.X != 0 || o.Y != 0 {
		t.Fatalf("after undo want origin, got (%v,%v)", o.X, o.Y)
	}
	if um.CanUndo() {
		t.Fatalf("expected a single merged undo step")
	}
}

func TestDeleteRestoresPropertyBag(t *testing.T) {
	d := testDoc(t)
	obj := NewObject("hero", "Hero", Character)
	obj.Properties = map[string]string{PropTextureID: "tex-42", "mood": "angry"}
	if err := d.AddObject(obj); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	um := undo.NewManager(100)

	if err := um.Push(&DeleteObjectCommand{Doc: d, ObjectID: "hero"}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, ok := d.Object("hero"); ok {
		t.Fatalf("object should be gone")
	}
	if err := um.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	o, ok := d.Object("hero")
	if !ok {
		t.Fatalf("object not restored")
	}
	if o.TextureID() != "tex-42" || o.Properties["mood"] != "angry" {
		t.Fatalf("property bag not restored: %v", o.Properties)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatCBOR, FormatJSON} {
		d := testDoc(t)
		hero := NewObject("hero", "Hero", Character)
		hero.X, hero.Y = 3, 4
		hero.Rotation = 45
		hero.Properties = map[string]string{PropTextureID: "tex-1"}
		if err := d.AddObject(hero); err != nil {
			t.Fatalf("AddObject: %v", err)
		}
		// Runtime-spawned objects never persist.
		if err := d.AddObject(NewObject(RuntimePrefix+"fx", "Sparkle", Effect)); err != nil {
			t.Fatalf("AddObject: %v", err)
		}

		data, err := Encode(d, f)
		if err != nil {
			t.Fatalf("Encode(%v): %v", f, err)
		}
		got, err := Decode(data, event.NewBus())
		if err != nil {
			t.Fatalf("Decode(%v): %v", f, err)
		}
		if got.SceneID != "intro" {
			t.Fatalf("scene id lost: %q", got.SceneID)
		}
		if got.Count() != 1 {
			t.Fatalf("want 1 persisted object, got %d", got.Count())
		}
		o, ok := got.Object("hero")
		if !ok || o.Rotation != 45 || o.TextureID() != "tex-1" {
			t.Fatalf("round trip lost data: %+v", o)
		}
	}
}

func TestSaveFileRefusedDuringPlayback(t *testing.T) {
	d := testDoc(t)
	if err := d.AddObject(NewObject("hero", "Hero", Character)); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	d.SetRuntimeActive(true)
	path := filepath.Join(t.TempDir(), "intro.nmscene")
	if err := SaveFile(d, path, FormatCBOR); err == nil {
		t.Fatalf("expected save refusal while runtime is active")
	}
	d.SetRuntimeActive(false)
	if err := SaveFile(d, path, FormatCBOR); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	got, err := LoadFile(path, event.NewBus())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.Count() != 1 {
		t.Fatalf("want 1 object, got %d", got.Count())
	}
}
