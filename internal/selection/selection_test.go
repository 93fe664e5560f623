/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package selection

import (
	"testing"

	"novelmind/internal/event"
)

func TestSelectReflexivity(t *testing.T) {
	m := NewManager(nil)
	m.Select("char1", SceneObject)
	if !m.IsSelected("char1") {
		t.Fatalf("id not selected")
	}
	if m.Primary() != "char1" {
		t.Fatalf("primary = %q, want char1", m.Primary())
	}
	if m.SelectionType() != SceneObject {
		t.Fatalf("type = %v, want SceneObject", m.SelectionType())
	}
	if m.Count() != 1 {
		t.Fatalf("count = %d, want 1", m.Count())
	}
}

func TestSelectIsExclusive(t *testing.T) {
	m := NewManager(nil)
	m.SelectMultiple([]string{"a", "b"}, GraphNode)
	m.Select("c", GraphNode)
	if m.Count() != 1 || m.IsSelected("a") || !m.IsSelected("c") {
		t.Fatalf("select not exclusive: %v", m.IDs())
	}
}

func TestAddSwitchingTypeClears(t *testing.T) {
	m := NewManager(nil)
	m.Select("obj1", SceneObject)
	m.AddToSelection("node1", GraphNode)
	if m.Count() != 1 || m.SelectionType() != GraphNode || m.IsSelected("obj1") {
		t.Fatalf("type switch did not clear: %v %v", m.IDs(), m.SelectionType())
	}
}

func TestToggleAndRemove(t *testing.T) {
	m := NewManager(nil)
	m.Select("a", AssetEntry)
	m.ToggleSelection("b", AssetEntry)
	if m.Count() != 2 {
		t.Fatalf("toggle did not add: %v", m.IDs())
	}
	m.ToggleSelection("a", AssetEntry)
	if m.Count() != 1 || m.Primary() != "b" {
		t.Fatalf("toggle did not remove: %v", m.IDs())
	}
	m.RemoveFromSelection("missing") // no-op
	if m.Count() != 1 {
		t.Fatalf("removing missing id changed the set")
	}
}

func TestSelectMultipleDropsDuplicates(t *testing.T) {
	m := NewManager(nil)
	m.SelectMultiple([]string{"a", "b", "a"}, SceneObject)
	if m.Count() != 2 {
		t.Fatalf("duplicates kept: %v", m.IDs())
	}
}

func TestSignalsAndBusRelay(t *testing.T) {
	bus := event.NewBus()
	var busKinds []event.Kind
	bus.Subscribe(func(ev event.Event) { busKinds = append(busKinds, ev.Kind) })

	m := NewManager(bus)
	var changed, primary, cleared int
	m.OnChanged(func(ids []string, ty Type) { changed++ })
	m.OnPrimaryChanged(func(id string, ty Type) { primary++ })
	m.OnCleared(func() { cleared++ })

	m.Select("x", SceneObject)
	m.ClearSelection()

	if changed != 2 || primary != 1 || cleared != 1 {
		t.Fatalf("signal counts wrong: changed=%d primary=%d cleared=%d", changed, primary, cleared)
	}
	want := []event.Kind{event.SelectionChanged, event.PrimarySelectionChanged, event.SelectionChanged, event.SelectionCleared}
	if len(busKinds) != len(want) {
		t.Fatalf("bus relay wrong: %v", busKinds)
	}
	for i := range want {
		if busKinds[i] != want[i] {
			t.Fatalf("bus relay order wrong at %d: %v", i, busKinds)
		}
	}
}

func TestClearOnEmptyIsSilent(t *testing.T) {
	m := NewManager(nil)
	n := 0
	m.OnCleared(func() { n++ })
	m.ClearSelection()
	if n != 0 {
		t.Fatalf("clear on empty selection fired signals")
	}
}
