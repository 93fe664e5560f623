/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package playmode

import (
	"fmt"
	"sort"

	"novelmind/internal/diag"
	"novelmind/internal/event"
	applog "novelmind/internal/log"
	"novelmind/internal/property"
	"novelmind/internal/scene"
)

// State is the controller's play state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "stopped"
}

// Snapshot is the runtime state the controller caches after every
// step so debug panels read consistent data between frames.
type Snapshot struct {
	Node      string
	Speaker   string
	Dialogue  string
	Choices   []string
	Variables map[string]Variant
	Flags     map[string]bool
	CallStack []string
	Objects   []*scene.Object
}

// Controller drives the runtime host from the editor: start/stop,
// pause, single-step, simulated input, breakpoints and save slots.
// Not safe for concurrent use; everything runs on the editor thread.
type Controller struct {
	host RuntimeHost
	bus  *event.Bus
	diag *diag.Reporter

	state       State
	desc        LoadDescriptor
	breakpoints map[string]bool
	snap        Snapshot

	// pendingBreak is set from the SceneChanged callback and honored
	// after the current host call returns, so the node body never runs.
	pendingBreak string
}

// NewController wires a controller to a runtime host. The host's
// callbacks are replaced.
func NewController(host RuntimeHost, bus *event.Bus, reporter *diag.Reporter) *Controller {
	c := &Controller{
		host:        host,
		bus:         bus,
		diag:        reporter,
		breakpoints: make(map[string]bool),
	}
	host.SetCallbacks(Callbacks{
		StateChanged:    c.onHostState,
		SceneChanged:    c.onSceneChanged,
		DialogueChanged: c.onDialogueChanged,
		ChoicesChanged:  c.onChoicesChanged,
		VariableChanged: c.onVariableChanged,
		RuntimeError:    c.onRuntimeError,
		BreakpointHit:   c.onBreakpointHit,
	})
	return c
}

func (c *Controller) State() State       { return c.state }
func (c *Controller) Snapshot() Snapshot { return c.snap }

// SetDescriptor records what the runtime should have loaded; Play
// reloads when this diverges from the host's current load.
func (c *Controller) SetDescriptor(desc LoadDescriptor) { c.desc = desc }

// ensureLoaded loads or reloads the runtime when the descriptor
// changed since the last play.
func (c *Controller) ensureLoaded() error {
	if cur, ok := c.host.Loaded(); ok && cur == c.desc {
		return nil
	}
	applog.WithComponent("playmode").Info("loading runtime", "project", c.desc.ProjectPath, "scene", c.desc.StartScene)
	if err := c.host.Load(c.desc); err != nil {
		return fmt.Errorf("load runtime: %w", err)
	}
	return nil
}

// Play starts the runtime, or resumes it when paused.
func (c *Controller) Play() error {
	switch c.state {
	case Playing:
		return nil
	case Paused:
		if err := c.host.Resume(); err != nil {
			return fmt.Errorf("resume runtime: %w", err)
		}
	default:
		if err := c.ensureLoaded(); err != nil {
			return err
		}
		if err := c.host.Start(); err != nil {
			return fmt.Errorf("start runtime: %w", err)
		}
	}
	c.setState(Playing)
	return nil
}

// Pause suspends a playing runtime; a no-op otherwise.
func (c *Controller) Pause() error {
	if c.state != Playing {
		return nil
	}
	if err := c.host.Pause(); err != nil {
		return fmt.Errorf("pause runtime: %w", err)
	}
	c.refresh()
	c.setState(Paused)
	return nil
}

// Stop tears the runtime down and returns the editor to edit mode.
// Debug panels get cleared dialogue, choice and variable events so
// they blank without re-reading the snapshot.
func (c *Controller) Stop() error {
	if c.state == Stopped {
		return nil
	}
	if err := c.host.Stop(); err != nil {
		return fmt.Errorf("stop runtime: %w", err)
	}
	c.snap = Snapshot{}
	c.setState(Stopped)
	c.bus.Emit(event.PlayDialogueChanged, "playmode", [2]string{})
	c.bus.Emit(event.PlayChoicesChanged, "playmode", []string(nil))
	c.bus.Emit(event.PlayVariableChanged, "playmode", "")
	return nil
}

// Tick advances the runtime by one frame while playing. Called from
// the editor's frame timer.
func (c *Controller) Tick() error {
	if c.state != Playing {
		return nil
	}
	if err := c.host.Step(Input{Choice: -1}); err != nil {
		return fmt.Errorf("step runtime: %w", err)
	}
	c.refresh()
	c.honorPendingBreak()
	return nil
}

// StepForward runs exactly one frame while paused, injecting a click
// so blocked dialogue advances.
func (c *Controller) StepForward() error {
	if c.state != Paused {
		return fmt.Errorf("step: runtime is %s, not paused", c.state)
	}
	if err := c.host.Step(Input{Click: true, Choice: -1}); err != nil {
		return fmt.Errorf("step runtime: %w", err)
	}
	c.refresh()
	c.honorPendingBreak()
	return nil
}

// AdvanceDialogue simulates a click on the dialogue box.
func (c *Controller) AdvanceDialogue() error {
	if c.state == Stopped {
		return fmt.Errorf("advance dialogue: runtime is stopped")
	}
	if err := c.host.Step(Input{Click: true, Choice: -1}); err != nil {
		return fmt.Errorf("advance dialogue: %w", err)
	}
	c.refresh()
	c.honorPendingBreak()
	return nil
}

// SelectChoice picks choice index i from the current choice list.
func (c *Controller) SelectChoice(i int) error {
	if c.state == Stopped {
		return fmt.Errorf("select choice: runtime is stopped")
	}
	if i < 0 || i >= len(c.snap.Choices) {
		return fmt.Errorf("select choice: index %d out of range (%d choices)", i, len(c.snap.Choices))
	}
	if err := c.host.Step(Input{Choice: i}); err != nil {
		return fmt.Errorf("select choice: %w", err)
	}
	c.refresh()
	c.honorPendingBreak()
	return nil
}

// SetVariable edits a runtime variable while paused. The property
// value is coerced into the runtime's variant before committing.
func (c *Controller) SetVariable(name string, v property.Value) error {
	if c.state != Paused {
		return fmt.Errorf("set variable %q: runtime must be paused", name)
	}
	variant, err := CoerceValue(v)
	if err != nil {
		return fmt.Errorf("set variable %q: %w", name, err)
	}
	if err := c.host.SetVariable(name, variant); err != nil {
		return fmt.Errorf("set variable %q: %w", name, err)
	}
	c.refresh()
	return nil
}

// Breakpoints

// SetBreakpoint arms or clears a breakpoint on a story node.
func (c *Controller) SetBreakpoint(nodeID string, on bool) {
	if on {
		c.breakpoints[nodeID] = true
	} else {
		delete(c.breakpoints, nodeID)
	}
}

func (c *Controller) HasBreakpoint(nodeID string) bool { return c.breakpoints[nodeID] }

// Breakpoints returns the armed node IDs, sorted, for persistence.
func (c *Controller) Breakpoints() []string {
	ids := make([]string, 0, len(c.breakpoints))
	for id := range c.breakpoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetBreakpoints replaces the breakpoint set, typically on project
// open.
func (c *Controller) SetBreakpoints(ids []string) {
	c.breakpoints = make(map[string]bool, len(ids))
	for _, id := range ids {
		c.breakpoints[id] = true
	}
}

// Save slots

func (c *Controller) SaveSlot(n int) error {
	if c.state == Stopped {
		return fmt.Errorf("save slot %d: runtime is stopped", n)
	}
	if err := c.host.SaveSlot(n); err != nil {
		return fmt.Errorf("save slot %d: %w", n, err)
	}
	return nil
}

// LoadSlot restores a saved slot. Loading is legal from any state;
// from Stopped the runtime is loaded first, and the controller always
// lands Paused at the restored node so the state can be inspected.
func (c *Controller) LoadSlot(n int) error {
	if err := c.restore(func() error { return c.host.LoadSlot(n) }); err != nil {
		return fmt.Errorf("load slot %d: %w", n, err)
	}
	return nil
}

func (c *Controller) SaveAuto() error {
	if c.state == Stopped {
		return fmt.Errorf("autosave: runtime is stopped")
	}
	if err := c.host.SaveAuto(); err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	return nil
}

func (c *Controller) LoadAuto() error {
	if err := c.restore(c.host.LoadAuto); err != nil {
		return fmt.Errorf("load autosave: %w", err)
	}
	return nil
}

// restore runs one host load operation and settles the controller in
// Paused with a fresh snapshot.
func (c *Controller) restore(load func() error) error {
	if c.state == Stopped {
		if err := c.ensureLoaded(); err != nil {
			return err
		}
	}
	if err := load(); err != nil {
		return err
	}
	if c.state != Paused {
		if err := c.host.Pause(); err != nil {
			return fmt.Errorf("pause after restore: %w", err)
		}
	}
	c.refresh()
	c.setState(Paused)
	return nil
}

// refresh re-reads the runtime's observable state into the cached
// snapshot.
func (c *Controller) refresh() {
	speaker, text := c.host.Dialogue()
	c.snap = Snapshot{
		Node:      c.host.CurrentNode(),
		Speaker:   speaker,
		Dialogue:  text,
		Choices:   c.host.Choices(),
		Variables: c.host.Variables(),
		Flags:     c.host.Flags(),
		CallStack: c.host.CallStack(),
		Objects:   c.host.SceneObjects(),
	}
}

// honorPendingBreak pauses the runtime if a breakpoint was crossed
// during the last host call. The pause lands before the node's body
// executes because the host reports scene entry ahead of execution.
func (c *Controller) honorPendingBreak() {
	node := c.pendingBreak
	if node == "" || c.state != Playing {
		c.pendingBreak = ""
		return
	}
	c.pendingBreak = ""
	if err := c.host.Pause(); err != nil {
		c.diag.ReportRuntimeError("failed to pause at breakpoint", err.Error())
		return
	}
	c.refresh()
	c.setState(Paused)
	c.bus.Emit(event.BreakpointHit, "playmode", node)
	applog.WithComponent("playmode").Info("breakpoint hit", "node", node)
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.bus.Emit(event.PlayStateChanged, "playmode", s)
}

// Host callbacks. These may arrive re-entrantly from inside a Step
// call, so they only record state and publish; pausing is deferred.

func (c *Controller) onHostState(running bool) {
	if !running && c.state != Stopped {
		// Runtime ended on its own (end node reached).
		c.setState(Stopped)
	}
}

func (c *Controller) onSceneChanged(nodeID string) {
	c.bus.Emit(event.PlaySceneChanged, "playmode", nodeID)
	if c.breakpoints[nodeID] {
		c.pendingBreak = nodeID
	}
}

func (c *Controller) onDialogueChanged(speaker, text string) {
	c.bus.Emit(event.PlayDialogueChanged, "playmode", [2]string{speaker, text})
}

func (c *Controller) onChoicesChanged(choices []string) {
	c.bus.Emit(event.PlayChoicesChanged, "playmode", choices)
}

func (c *Controller) onVariableChanged(name string, v Variant) {
	c.bus.Emit(event.PlayVariableChanged, "playmode", name)
}

func (c *Controller) onRuntimeError(msg, details string) {
	c.diag.ReportRuntimeError(msg, details)
	c.setState(Stopped)
}

func (c *Controller) onBreakpointHit(nodeID string) {
	c.pendingBreak = nodeID
}
