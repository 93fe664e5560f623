/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package timeline drives the global editor clock: tracks, markers,
// scheduled events and the playback state machine. The engine is ticked
// by a periodic timer on the UI goroutine; it never spawns goroutines of
// its own.
package timeline

import (
	"fmt"
	"sort"

	"novelmind/internal/event"
)

// State is the playback state machine. Scrubbing overrides the current
// state and restores it on end.
type State int

const (
	Stopped State = iota
	Playing
	Paused
	Scrubbing
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Scrubbing:
		return "scrubbing"
	}
	return "stopped"
}

// LoopMode selects the clamping behavior at the timeline bounds.
type LoopMode int

const (
	LoopNone LoopMode = iota
	Loop
	PingPong
	LoopRange
)

// Track is one animated lane of the timeline.
type Track struct {
	ID       string
	Name     string
	Enabled  bool
	Solo     bool
	Muted    bool
	Volume   float64
	Keyframe int // current keyframe index, owned by the animation panel
}

// ScheduledEvent fires its callback when the clock passes its time.
type ScheduledEvent struct {
	ID        string
	Time      float64
	Callback  func()
	Repeating bool
	Interval  float64
}

// StateChange is the bus payload of TimelineStateChanged events.
type StateChange struct {
	State State
	Time  float64
}

// Engine is the global timeline clock. Not safe for concurrent use.
type Engine struct {
	state     State
	preScrub  State
	time      float64
	duration  float64
	speed     float64
	direction float64 // +1 forward, -1 backward
	autoStop  bool

	loopMode  LoopMode
	loopStart float64
	loopEnd   float64
	loopCount int

	frameRate float64

	tracks  []*Track
	markers map[string]float64
	events  []*ScheduledEvent

	bus *event.Bus
}

// NewEngine creates a stopped engine with the given duration in seconds.
func NewEngine(duration float64, bus *event.Bus) *Engine {
	return &Engine{
		duration:  duration,
		speed:     1,
		direction: 1,
		autoStop:  true,
		frameRate: 60,
		markers:   make(map[string]float64),
		bus:       bus,
	}
}

// State machine.

// Play starts playback from the current time.
func (e *Engine) Play() {
	if e.state == Playing || e.state == Scrubbing {
		return
	}
	e.state = Playing
	e.emitState()
}

// Pause freezes the clock, keeping the current time.
func (e *Engine) Pause() {
	if e.state != Playing {
		return
	}
	e.state = Paused
	e.emitState()
}

// Resume continues playback after a pause.
func (e *Engine) Resume() {
	if e.state != Paused {
		return
	}
	e.state = Playing
	e.emitState()
}

// Stop halts playback and rewinds to zero.
func (e *Engine) Stop() {
	if e.state == Stopped {
		return
	}
	e.state = Stopped
	e.time = 0
	e.loopCount = 0
	e.emitState()
}

func (e *Engine) State() State       { return e.state }
func (e *Engine) CurrentTime() float64 { return e.time }
func (e *Engine) Duration() float64  { return e.duration }
func (e *Engine) LoopCount() int     { return e.loopCount }
func (e *Engine) FrameRate() float64 { return e.frameRate }

// SetDuration resizes the timeline, clamping the clock into range.
func (e *Engine) SetDuration(d float64) {
	if d < 0 {
		d = 0
	}
	e.duration = d
	if e.time > d {
		e.time = d
	}
}

// SetSpeed sets the playback speed multiplier; non-positive values are
// ignored.
func (e *Engine) SetSpeed(s float64) {
	if s > 0 {
		e.speed = s
	}
}

func (e *Engine) Speed() float64 { return e.speed }

// SetDirection sets the playback direction: +1 forward, -1 backward.
func (e *Engine) SetDirection(forward bool) {
	if forward {
		e.direction = 1
	} else {
		e.direction = -1
	}
}

// SetAutoStop controls the LoopNone end-of-timeline behavior.
func (e *Engine) SetAutoStop(on bool) { e.autoStop = on }

// SetLoopMode selects the clamping behavior.
func (e *Engine) SetLoopMode(m LoopMode) { e.loopMode = m }

// SetLoopRange bounds LoopRange playback; swapped bounds are normalized.
func (e *Engine) SetLoopRange(start, end float64) {
	if end < start {
		start, end = end, start
	}
	e.loopStart, e.loopEnd = start, end
}

// SetFrameRate changes the nominal frame rate used for frame snapping.
func (e *Engine) SetFrameRate(fps float64) {
	if fps > 0 {
		e.frameRate = fps
	}
}

// Seek jumps the clock without dispatching scheduled events.
func (e *Engine) Seek(t float64) {
	e.time = clamp(t, 0, e.duration)
	e.emitState()
}

// Tick advances the clock by dt seconds of wall time. Scheduled events in
// the traversed interval fire in time order.
func (e *Engine) Tick(dt float64) {
	if e.state != Playing {
		return
	}
	prev := e.time
	next := prev + dt*e.speed*e.direction

	switch e.loopMode {
	case LoopNone:
		next = clamp(next, 0, e.duration)
		e.dispatchEvents(prev, next)
		e.time = next
		if e.autoStop && ((e.direction > 0 && next >= e.duration) || (e.direction < 0 && next <= 0)) {
			e.Stop()
			return
		}
	case Loop:
		if e.direction > 0 && next > e.duration {
			e.dispatchEvents(prev, e.duration)
			over := next - e.duration
			e.time = 0
			e.loopCount++
			e.emitLoop()
			e.dispatchEvents(0, over)
			e.time = clamp(over, 0, e.duration)
		} else if e.direction < 0 && next < 0 {
			e.dispatchEvents(prev, 0)
			under := -next
			e.time = e.duration
			e.loopCount++
			e.emitLoop()
			e.dispatchEvents(e.duration, e.duration-under)
			e.time = clamp(e.duration-under, 0, e.duration)
		} else {
			e.dispatchEvents(prev, next)
			e.time = next
		}
	case PingPong:
		if e.direction > 0 && next > e.duration {
			e.dispatchEvents(prev, e.duration)
			e.time = e.duration
			e.direction = -1
			e.loopCount++
			e.emitLoop()
		} else if e.direction < 0 && next < 0 {
			e.dispatchEvents(prev, 0)
			e.time = 0
			e.direction = 1
			e.loopCount++
			e.emitLoop()
		} else {
			e.dispatchEvents(prev, next)
			e.time = next
		}
	case LoopRange:
		start, end := e.loopStart, e.loopEnd
		if end <= start {
			start, end = 0, e.duration
		}
		if e.direction > 0 && next > end {
			e.dispatchEvents(prev, end)
			e.time = start
			e.loopCount++
			e.emitLoop()
		} else if e.direction < 0 && next < start {
			e.dispatchEvents(prev, start)
			e.time = end
			e.loopCount++
			e.emitLoop()
		} else {
			e.dispatchEvents(prev, next)
			e.time = next
		}
	}
}

// dispatchEvents fires all scheduled events with time in (prev, next]
// going forward, or the mirrored interval [next, prev) going backward,
// in traversal order. Repeating events reschedule by their interval.
func (e *Engine) dispatchEvents(prev, next float64) {
	if prev == next {
		return
	}
	forward := next > prev
	var due []*ScheduledEvent
	for _, ev := range e.events {
		if forward && ev.Time > prev && ev.Time <= next {
			due = append(due, ev)
		} else if !forward && ev.Time >= next && ev.Time < prev {
			due = append(due, ev)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if forward {
			return due[i].Time < due[j].Time
		}
		return due[i].Time > due[j].Time
	})
	for _, ev := range due {
		if ev.Callback != nil {
			ev.Callback()
		}
		if ev.Repeating && ev.Interval > 0 {
			if forward {
				ev.Time += ev.Interval
			} else {
				ev.Time -= ev.Interval
			}
		} else {
			e.removeEvent(ev.ID)
		}
	}
}

// Schedule registers an event. Ids are unique; re-scheduling an existing
// id replaces it.
func (e *Engine) Schedule(ev ScheduledEvent) error {
	if ev.ID == "" {
		return fmt.Errorf("scheduled event id is required")
	}
	e.removeEvent(ev.ID)
	copied := ev
	e.events = append(e.events, &copied)
	return nil
}

// Unschedule removes an event by id; reports whether it existed.
func (e *Engine) Unschedule(id string) bool { return e.removeEvent(id) }

func (e *Engine) removeEvent(id string) bool {
	for i, ev := range e.events {
		if ev.ID == id {
			e.events = append(e.events[:i], e.events[i+1:]...)
			return true
		}
	}
	return false
}

// Markers.

// SetMarker places or moves a named marker.
func (e *Engine) SetMarker(id string, t float64) {
	e.markers[id] = clamp(t, 0, e.duration)
}

// RemoveMarker deletes a marker; reports whether it existed.
func (e *Engine) RemoveMarker(id string) bool {
	_, ok := e.markers[id]
	delete(e.markers, id)
	return ok
}

// Marker returns a marker's time.
func (e *Engine) Marker(id string) (float64, bool) {
	t, ok := e.markers[id]
	return t, ok
}

// Markers returns all marker ids sorted by time then id.
func (e *Engine) Markers() []string {
	out := make([]string, 0, len(e.markers))
	for id := range e.markers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := e.markers[out[i]], e.markers[out[j]]
		if ti != tj {
			return ti < tj
		}
		return out[i] < out[j]
	})
	return out
}

// JumpToMarker seeks to a marker and reports it on the bus.
func (e *Engine) JumpToMarker(id string) bool {
	t, ok := e.markers[id]
	if !ok {
		return false
	}
	e.time = t
	if e.bus != nil {
		e.bus.Emit(event.TimelineMarkerReached, "timeline", id)
	}
	return true
}

// Tracks.

// AddTrack registers a lane. Duplicate ids are rejected.
func (e *Engine) AddTrack(t *Track) error {
	if t.ID == "" {
		return fmt.Errorf("track id is required")
	}
	for _, existing := range e.tracks {
		if existing.ID == t.ID {
			return fmt.Errorf("duplicate track id %q", t.ID)
		}
	}
	e.tracks = append(e.tracks, t)
	return nil
}

// RemoveTrack deletes a lane; reports whether it existed.
func (e *Engine) RemoveTrack(id string) bool {
	for i, t := range e.tracks {
		if t.ID == id {
			e.tracks = append(e.tracks[:i], e.tracks[i+1:]...)
			return true
		}
	}
	return false
}

// Track returns a lane by id.
func (e *Engine) Track(id string) (*Track, bool) {
	for _, t := range e.tracks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Tracks returns all lanes in registration order.
func (e *Engine) Tracks() []*Track { return append([]*Track(nil), e.tracks...) }

// IsTrackAudible applies the solo/mute rules: when any track is solo,
// only soloed tracks contribute.
func (e *Engine) IsTrackAudible(id string) bool {
	t, ok := e.Track(id)
	if !ok || !t.Enabled || t.Muted {
		return false
	}
	anySolo := false
	for _, other := range e.tracks {
		if other.Solo {
			anySolo = true
			break
		}
	}
	if anySolo {
		return t.Solo
	}
	return true
}

// Scrubbing.

// BeginScrubbing freezes playback and hands the clock to the caller.
func (e *Engine) BeginScrubbing() {
	if e.state == Scrubbing {
		return
	}
	e.preScrub = e.state
	e.state = Scrubbing
	e.emitState()
}

// ScrubTo drives the clock manually while scrubbing.
func (e *Engine) ScrubTo(t float64) {
	if e.state != Scrubbing {
		return
	}
	e.time = clamp(t, 0, e.duration)
	e.emitState()
}

// EndScrubbing restores the state active before the scrub.
func (e *Engine) EndScrubbing() {
	if e.state != Scrubbing {
		return
	}
	e.state = e.preScrub
	e.emitState()
}

func (e *Engine) emitState() {
	if e.bus != nil {
		e.bus.Emit(event.TimelineStateChanged, "timeline", StateChange{State: e.state, Time: e.time})
	}
}

func (e *Engine) emitLoop() {
	if e.bus != nil {
		e.bus.Emit(event.TimelineLoopCompleted, "timeline", e.loopCount)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
