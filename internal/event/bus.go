/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package event implements the editor-wide publish/subscribe bus. Delivery
// is synchronous on the caller goroutine (the editor is single-threaded
// cooperative); subscribers receive events FIFO in subscription order.
package event

import (
	"time"
)

// Kind discriminates editor events.
type Kind int

const (
	// Selection
	SelectionChanged Kind = iota
	PrimarySelectionChanged
	SelectionCleared
	// Property
	PropertyChanged
	InspectorTargetChanged
	// Graph
	GraphNodeAdded
	GraphNodeRemoved
	GraphNodeMoved
	GraphEdgeAdded
	GraphEdgeRemoved
	GraphEntryChanged
	// Timeline
	TimelineStateChanged
	TimelineLoopCompleted
	TimelineMarkerReached
	// Scene
	SceneObjectAdded
	SceneObjectRemoved
	SceneObjectChanged
	SceneObjectTransformFinished
	SceneLoaded
	// Project
	ProjectOpened
	ProjectSaved
	ProjectClosed
	// Undo/redo
	UndoStackChanged
	UndoPerformed
	RedoPerformed
	// Play mode
	PlayStateChanged
	PlaySceneChanged
	PlayDialogueChanged
	PlayChoicesChanged
	PlayVariableChanged
	BreakpointHit
	// Asset
	AssetChanged
	// Diagnostics
	DiagnosticAdded
	DiagnosticsCleared
	// UI
	PanelFocusChanged
)

// Event is the unit broadcast through the bus. Data carries a kind-specific
// payload struct; subscribers switch on Kind before asserting.
type Event struct {
	Kind   Kind
	Source string // component that published the event
	Time   time.Time
	Data   any
}

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	id      int
	kinds   map[Kind]bool // nil means all kinds
	handler Handler
}

// Bus is a synchronous publish/subscribe dispatcher with batch mode.
// It is not safe for concurrent use; all publishing happens on the UI
// goroutine.
type Bus struct {
	subs    []subscription
	nextID  int
	batch   int
	pending []Event
}

func NewBus() *Bus { return &Bus{} }

// Subscribe registers a handler for all event kinds and returns a token
// usable with Unsubscribe.
func (b *Bus) Subscribe(h Handler) int {
	return b.subscribe(nil, h)
}

// SubscribeKinds registers a handler for the listed kinds only.
func (b *Bus) SubscribeKinds(h Handler, kinds ...Kind) int {
	m := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return b.subscribe(m, h)
}

func (b *Bus) subscribe(kinds map[Kind]bool, h Handler) int {
	b.nextID++
	b.subs = append(b.subs, subscription{id: b.nextID, kinds: kinds, handler: h})
	return b.nextID
}

// Unsubscribe removes a previously registered handler.
func (b *Bus) Unsubscribe(token int) {
	for i, s := range b.subs {
		if s.id == token {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to all matching subscribers, or queues it while
// a batch is open. Listeners must tolerate repeated signals for the same
// logical transition.
func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if b.batch > 0 {
		b.pending = append(b.pending, ev)
		return
	}
	b.dispatch(ev)
}

// Emit is shorthand for Publish with kind, source and payload.
func (b *Bus) Emit(kind Kind, source string, data any) {
	b.Publish(Event{Kind: kind, Source: source, Data: data})
}

// BeginBatch starts collecting events instead of dispatching them. Batches
// nest; only the outermost EndBatch releases the queue.
func (b *Bus) BeginBatch() { b.batch++ }

// EndBatch releases all queued events in publish order. The batch is
// delivered atomically: no new events interleave while draining.
func (b *Bus) EndBatch() {
	if b.batch == 0 {
		return
	}
	b.batch--
	if b.batch > 0 {
		return
	}
	queued := b.pending
	b.pending = nil
	for _, ev := range queued {
		b.dispatch(ev)
	}
}

// InBatch reports whether a batch is currently open.
func (b *Bus) InBatch() bool { return b.batch > 0 }

func (b *Bus) dispatch(ev Event) {
	// Snapshot so handlers may subscribe/unsubscribe during delivery.
	subs := b.subs
	for _, s := range subs {
		if s.kinds == nil || s.kinds[ev.Kind] {
			s.handler(ev)
		}
	}
}
