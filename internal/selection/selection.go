/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package selection tracks the typed multi-selection shared by all editor
// panels. The set holds zero or more ids of a single entity type; selecting
// a different type clears the previous selection.
package selection

import (
	"novelmind/internal/event"
)

// Type tags the kind of entity currently selected.
type Type int

const (
	None Type = iota
	SceneObject
	GraphNode
	AssetEntry
	TimelineTrack
	TimelineMarker
)

func (t Type) String() string {
	switch t {
	case SceneObject:
		return "scene-object"
	case GraphNode:
		return "graph-node"
	case AssetEntry:
		return "asset"
	case TimelineTrack:
		return "timeline-track"
	case TimelineMarker:
		return "timeline-marker"
	}
	return "none"
}

// Changed carries the payload of selection events on the bus.
type Changed struct {
	IDs  []string
	Type Type
}

// PrimaryChanged carries the payload of primary-selection events.
type PrimaryChanged struct {
	ID   string
	Type Type
}

// Manager owns the selection set. Not safe for concurrent use; all
// mutations happen on the UI goroutine.
type Manager struct {
	ids []string
	set map[string]bool
	typ Type
	bus *event.Bus

	onChanged        []func(ids []string, t Type)
	onPrimaryChanged []func(id string, t Type)
	onCleared        []func()
}

// NewManager creates a selection manager relaying its state to the bus.
// The bus may be nil in tests.
func NewManager(bus *event.Bus) *Manager {
	return &Manager{set: make(map[string]bool), bus: bus}
}

// OnChanged registers a callback fired on every selection mutation.
func (m *Manager) OnChanged(fn func(ids []string, t Type)) { m.onChanged = append(m.onChanged, fn) }

// OnPrimaryChanged registers a callback fired when the primary id changes.
func (m *Manager) OnPrimaryChanged(fn func(id string, t Type)) {
	m.onPrimaryChanged = append(m.onPrimaryChanged, fn)
}

// OnCleared registers a callback fired when the selection becomes empty.
func (m *Manager) OnCleared(fn func()) { m.onCleared = append(m.onCleared, fn) }

// Select replaces the selection with a single id.
func (m *Manager) Select(id string, t Type) {
	m.ids = m.ids[:0]
	clear(m.set)
	m.ids = append(m.ids, id)
	m.set[id] = true
	m.typ = t
	m.fireChanged()
}

// SelectMultiple replaces the selection with the given ids, preserving order
// and dropping duplicates.
func (m *Manager) SelectMultiple(ids []string, t Type) {
	m.ids = m.ids[:0]
	clear(m.set)
	for _, id := range ids {
		if !m.set[id] {
			m.ids = append(m.ids, id)
			m.set[id] = true
		}
	}
	m.typ = t
	m.fireChanged()
}

// AddToSelection adds an id. If the type differs from the current selection
// the set is cleared first and switches type.
func (m *Manager) AddToSelection(id string, t Type) {
	if t != m.typ {
		m.ids = m.ids[:0]
		clear(m.set)
		m.typ = t
	}
	if m.set[id] {
		return
	}
	m.ids = append(m.ids, id)
	m.set[id] = true
	m.fireChanged()
}

// RemoveFromSelection drops an id; no-op if absent.
func (m *Manager) RemoveFromSelection(id string) {
	if !m.set[id] {
		return
	}
	delete(m.set, id)
	for i, v := range m.ids {
		if v == id {
			m.ids = append(m.ids[:i], m.ids[i+1:]...)
			break
		}
	}
	m.fireChanged()
}

// ToggleSelection adds or removes an id.
func (m *Manager) ToggleSelection(id string, t Type) {
	if m.typ == t && m.set[id] {
		m.RemoveFromSelection(id)
		return
	}
	m.AddToSelection(id, t)
}

// ClearSelection empties the set.
func (m *Manager) ClearSelection() {
	if len(m.ids) == 0 {
		return
	}
	m.ids = m.ids[:0]
	clear(m.set)
	m.typ = None
	m.fireChanged()
}

// Queries.

func (m *Manager) HasSelection() bool       { return len(m.ids) > 0 }
func (m *Manager) SelectionType() Type      { return m.typ }
func (m *Manager) Count() int               { return len(m.ids) }
func (m *Manager) IsSelected(id string) bool { return m.set[id] }

// IDs returns a copy of the selected ids in selection order.
func (m *Manager) IDs() []string { return append([]string(nil), m.ids...) }

// Primary returns the first selected id, or "" when empty.
func (m *Manager) Primary() string {
	if len(m.ids) == 0 {
		return ""
	}
	return m.ids[0]
}

func (m *Manager) fireChanged() {
	ids := m.IDs()
	for _, fn := range m.onChanged {
		fn(ids, m.typ)
	}
	if len(ids) > 0 {
		for _, fn := range m.onPrimaryChanged {
			fn(ids[0], m.typ)
		}
	} else {
		for _, fn := range m.onCleared {
			fn()
		}
	}
	if m.bus != nil {
		m.bus.Emit(event.SelectionChanged, "selection", Changed{IDs: ids, Type: m.typ})
		if len(ids) > 0 {
			m.bus.Emit(event.PrimarySelectionChanged, "selection", PrimaryChanged{ID: ids[0], Type: m.typ})
		} else {
			m.bus.Emit(event.SelectionCleared, "selection", nil)
		}
	}
}
