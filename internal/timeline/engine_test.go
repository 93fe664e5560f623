/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package timeline

import (
	"math"
	"testing"

	"novelmind/internal/event"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPlayPauseResumeStop(t *testing.T) {
	e := NewEngine(10, event.NewBus())
	if e.State() != Stopped {
		t.Fatalf("new engine should be stopped")
	}
	e.Play()
	e.Tick(1)
	if e.State() != Playing || !almost(e.CurrentTime(), 1) {
		t.Fatalf("after 1s tick: state=%v time=%v", e.State(), e.CurrentTime())
	}
	e.Pause()
	e.Tick(1)
	if !almost(e.CurrentTime(), 1) {
		t.Fatalf("paused clock advanced to %v", e.CurrentTime())
	}
	e.Resume()
	e.Tick(0.5)
	if !almost(e.CurrentTime(), 1.5) {
		t.Fatalf("after resume want 1.5, got %v", e.CurrentTime())
	}
	e.Stop()
	if e.State() != Stopped || e.CurrentTime() != 0 {
		t.Fatalf("stop should rewind: state=%v time=%v", e.State(), e.CurrentTime())
	}
}

func TestSpeedAndDirection(t *testing.T) {
	e := NewEngine(10, nil)
	e.Play()
	e.SetSpeed(2)
	e.Tick(1)
	if !almost(e.CurrentTime(), 2) {
		t.Fatalf("want 2, got %v", e.CurrentTime())
	}
	e.SetDirection(false)
	e.Tick(0.5)
	if !almost(e.CurrentTime(), 1) {
		t.Fatalf("backward want 1, got %v", e.CurrentTime())
	}
}

func TestLoopNoneAutoStopsAtEnd(t *testing.T) {
	e := NewEngine(2, nil)
	e.Play()
	e.Tick(5)
	if e.State() != Stopped {
		t.Fatalf("expected auto-stop at the end, state=%v", e.State())
	}

	e.SetAutoStop(false)
	e.Play()
	e.Tick(5)
	if e.State() != Playing || !almost(e.CurrentTime(), 2) {
		t.Fatalf("without auto-stop want clamp at 2, got state=%v time=%v", e.State(), e.CurrentTime())
	}
}

func TestLoopWrapsAndCounts(t *testing.T) {
	e := NewEngine(2, nil)
	e.SetLoopMode(Loop)
	e.Play()
	e.Tick(1.5)
	e.Tick(1.0) // crosses the end, wraps to 0.5
	if !almost(e.CurrentTime(), 0.5) {
		t.Fatalf("want wrap to 0.5, got %v", e.CurrentTime())
	}
	if e.LoopCount() != 1 {
		t.Fatalf("want loop count 1, got %d", e.LoopCount())
	}
}

func TestPingPongReversesAtBounds(t *testing.T) {
	e := NewEngine(2, nil)
	e.SetLoopMode(PingPong)
	e.Play()
	e.Tick(3) // hits the end, reverses
	if !almost(e.CurrentTime(), 2) {
		t.Fatalf("want clamp at 2, got %v", e.CurrentTime())
	}
	e.Tick(1)
	if !almost(e.CurrentTime(), 1) {
		t.Fatalf("want backward to 1, got %v", e.CurrentTime())
	}
	e.Tick(2) // hits zero, reverses again
	if !almost(e.CurrentTime(), 0) || e.LoopCount() != 2 {
		t.Fatalf("want clamp at 0 with 2 loops, got time=%v count=%d", e.CurrentTime(), e.LoopCount())
	}
}

func TestLoopRangeCycles(t *testing.T) {
	e := NewEngine(10, nil)
	e.SetLoopMode(LoopRange)
	e.SetLoopRange(2, 4)
	e.Seek(2)
	e.Play()
	e.Tick(3) // would reach 5, wraps to range start
	if !almost(e.CurrentTime(), 2) {
		t.Fatalf("want wrap to range start 2, got %v", e.CurrentTime())
	}
	if e.LoopCount() != 1 {
		t.Fatalf("want 1 loop, got %d", e.LoopCount())
	}
}

func TestScheduledEventsFireInOrder(t *testing.T) {
	e := NewEngine(10, nil)
	var order []string
	add := func(id string, at float64) {
		if err := e.Schedule(ScheduledEvent{ID: id, Time: at, Callback: func() { order = append(order, id) }}); err != nil {
			t.Fatalf("Schedule(%s): %v", id, err)
		}
	}
	// Registered out of order on purpose.
	add("b", 2)
	add("a", 1)
	add("c", 3)

	e.Play()
	e.Tick(2.5)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("want [a b], got %v", order)
	}
	// One-shot events are consumed.
	e.Seek(0)
	e.Play()
	e.Tick(2.5)
	if len(order) != 2 {
		t.Fatalf("one-shot events fired twice: %v", order)
	}
}

func TestRepeatingEventReschedules(t *testing.T) {
	e := NewEngine(10, nil)
	count := 0
	if err := e.Schedule(ScheduledEvent{ID: "beat", Time: 1, Interval: 1, Repeating: true, Callback: func() { count++ }}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	e.Play()
	for i := 0; i < 3; i++ {
		e.Tick(1.1)
	}
	if count != 3 {
		t.Fatalf("want 3 beats, got %d", count)
	}
	if !e.Unschedule("beat") || e.Unschedule("beat") {
		t.Fatalf("Unschedule semantics wrong")
	}
}

func TestSeekDoesNotDispatch(t *testing.T) {
	e := NewEngine(10, nil)
	fired := false
	_ = e.Schedule(ScheduledEvent{ID: "x", Time: 2, Callback: func() { fired = true }})
	e.Seek(5)
	if fired {
		t.Fatalf("Seek must not dispatch scheduled events")
	}
}

func TestMarkers(t *testing.T) {
	bus := event.NewBus()
	e := NewEngine(10, bus)
	e.SetMarker("end", 8)
	e.SetMarker("mid", 5)
	e.SetMarker("start", 0)

	ids := e.Markers()
	if len(ids) != 3 || ids[0] != "start" || ids[1] != "mid" || ids[2] != "end" {
		t.Fatalf("markers not time-sorted: %v", ids)
	}

	var reached string
	bus.SubscribeKinds(func(ev event.Event) { reached = ev.Data.(string) }, event.TimelineMarkerReached)
	if !e.JumpToMarker("mid") {
		t.Fatalf("JumpToMarker failed")
	}
	if !almost(e.CurrentTime(), 5) || reached != "mid" {
		t.Fatalf("jump: time=%v reached=%q", e.CurrentTime(), reached)
	}
	if e.JumpToMarker("missing") {
		t.Fatalf("jump to missing marker succeeded")
	}
	if !e.RemoveMarker("mid") || e.RemoveMarker("mid") {
		t.Fatalf("RemoveMarker semantics wrong")
	}
}

func TestSoloMuteRules(t *testing.T) {
	e := NewEngine(10, nil)
	mustAdd := func(tr *Track) {
		if err := e.AddTrack(tr); err != nil {
			t.Fatalf("AddTrack(%s): %v", tr.ID, err)
		}
	}
	mustAdd(&Track{ID: "music", Name: "Music", Enabled: true, Volume: 1})
	mustAdd(&Track{ID: "voice", Name: "Voice", Enabled: true, Volume: 1})
	mustAdd(&Track{ID: "sfx", Name: "SFX", Enabled: true, Muted: true, Volume: 1})

	if err := e.AddTrack(&Track{ID: "music"}); err == nil {
		t.Fatalf("duplicate track id accepted")
	}

	if !e.IsTrackAudible("music") || e.IsTrackAudible("sfx") {
		t.Fatalf("mute rules wrong")
	}

	v, _ := e.Track("voice")
	v.Solo = true
	if e.IsTrackAudible("music") {
		t.Fatalf("solo should silence non-solo tracks")
	}
	if !e.IsTrackAudible("voice") {
		t.Fatalf("solo track should stay audible")
	}
}

func TestScrubbingRestoresPriorState(t *testing.T) {
	e := NewEngine(10, nil)
	e.Play()
	e.Tick(2)
	e.BeginScrubbing()
	if e.State() != Scrubbing {
		t.Fatalf("want scrubbing, got %v", e.State())
	}
	e.Tick(5) // ticks are ignored while scrubbing
	if !almost(e.CurrentTime(), 2) {
		t.Fatalf("tick advanced the clock during scrub: %v", e.CurrentTime())
	}
	e.ScrubTo(7)
	if !almost(e.CurrentTime(), 7) {
		t.Fatalf("ScrubTo: %v", e.CurrentTime())
	}
	e.EndScrubbing()
	if e.State() != Playing {
		t.Fatalf("prior state not restored: %v", e.State())
	}
}
