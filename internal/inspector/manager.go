/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package inspector

import (
	"novelmind/internal/asset"
	"novelmind/internal/event"
	"novelmind/internal/graph"
	"novelmind/internal/property"
	"novelmind/internal/scene"
	"novelmind/internal/undo"
)

// Manager owns the bindings of all inspector panels and invalidates
// their targets when deletion events arrive on the bus: raw target
// references must never outlive the selection scope.
type Manager struct {
	registry *property.Registry
	undoMgr  *undo.Manager
	bus      *event.Bus
	bindings map[string]*Binding
	token    int
}

// NewManager creates the binding manager and subscribes to deletion
// events.
func NewManager(registry *property.Registry, undoMgr *undo.Manager, bus *event.Bus) *Manager {
	m := &Manager{
		registry: registry,
		undoMgr:  undoMgr,
		bus:      bus,
		bindings: make(map[string]*Binding),
	}
	if bus != nil {
		m.token = bus.SubscribeKinds(m.onBusEvent,
			event.SceneObjectRemoved, event.GraphNodeRemoved, event.AssetChanged)
	}
	return m
}

// Binding returns (creating on first use) the binding of one panel.
func (m *Manager) Binding(panel string) *Binding {
	b, ok := m.bindings[panel]
	if !ok {
		b = NewBinding(m.registry, m.undoMgr, m.bus)
		m.bindings[panel] = b
	}
	return b
}

// Shutdown unsubscribes and drops all bindings.
func (m *Manager) Shutdown() {
	if m.bus != nil {
		m.bus.Unsubscribe(m.token)
	}
	m.bindings = make(map[string]*Binding)
}

func (m *Manager) onBusEvent(ev event.Event) {
	var id string
	switch ev.Kind {
	case event.SceneObjectRemoved:
		if c, ok := ev.Data.(scene.ObjectChange); ok {
			id = c.ObjectID
		}
	case event.GraphNodeRemoved:
		if n, ok := ev.Data.(graph.NodeEvent); ok {
			id = n.NodeID
		}
	case event.AssetChanged:
		// Only deletions invalidate targets.
		if c, ok := ev.Data.(asset.Change); ok && c.Kind == asset.Deleted {
			id = c.AssetID
		}
	}
	if id == "" {
		return
	}
	for _, b := range m.bindings {
		b.InvalidateTarget(id)
	}
}
