/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo implements the editor's command-pattern history: a bounded
// stack with a movable cursor, macro grouping, merging of continuous edits,
// and a clean marker recording the last saved position.
package undo

import (
	"errors"
	"fmt"
)

// Command is a single reversible edit.
type Command interface {
	Execute() error
	Undo() error
	Description() string
	Category() string
}

// Merger is implemented by commands that can absorb a follow-up command,
// e.g. successive transform deltas of a drag or keystrokes in a text field.
type Merger interface {
	// CanMergeWith reports whether next can be folded into this command.
	CanMergeWith(next Command) bool
	// MergeWith folds next into this command. next has already executed.
	MergeWith(next Command)
}

// ErrNothingToUndo and ErrNothingToRedo are returned at the stack bounds.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultDepth bounds the stack when no explicit depth is configured.
const DefaultDepth = 200

// Manager is the command stack. Not safe for concurrent use; all pushes
// happen on the UI goroutine.
type Manager struct {
	entries    []Command
	cursor     int // number of applied commands; next undo is entries[cursor-1]
	cleanIndex int // cursor value at last save; -1 when clean state was truncated
	maxDepth   int
	replaying  bool

	macros []*macro

	onChanged []func()
	onCorrupt func(err error)
}

// NewManager creates a stack bounded to depth entries (DefaultDepth if <= 0).
func NewManager(depth int) *Manager {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Manager{maxDepth: depth}
}

// OnChanged registers a callback fired after any stack mutation.
func (m *Manager) OnChanged(fn func()) { m.onChanged = append(m.onChanged, fn) }

// SetCorruptionHandler installs the callback invoked when an Undo fails and
// the stack is drained. The editor publishes a fatal diagnostic from it.
func (m *Manager) SetCorruptionHandler(fn func(err error)) { m.onCorrupt = fn }

// Push executes cmd and appends it after the cursor, discarding any redo
// entries. If execution fails the command is discarded and the error
// returned. If the top command can merge with cmd, cmd is folded into it
// instead of growing the stack.
func (m *Manager) Push(cmd Command) error {
	if err := cmd.Execute(); err != nil {
		return fmt.Errorf("execute %s: %w", cmd.Description(), err)
	}
	m.record(cmd)
	return nil
}

// record appends an already-executed command (used by Push and by bindings
// that apply changes themselves).
func (m *Manager) record(cmd Command) {
	if mac := m.currentMacro(); mac != nil {
		mac.absorb(cmd)
		m.fireChanged()
		return
	}
	// Drop redo tail.
	if m.cursor < len(m.entries) {
		m.entries = m.entries[:m.cursor]
		if m.cleanIndex > m.cursor {
			m.cleanIndex = -1
		}
	}
	// Merge into top when possible.
	if m.cursor > 0 {
		top := m.entries[m.cursor-1]
		if mg, ok := top.(Merger); ok && top.Category() == cmd.Category() && mg.CanMergeWith(cmd) {
			mg.MergeWith(cmd)
			m.fireChanged()
			return
		}
	}
	m.entries = append(m.entries, cmd)
	m.cursor++
	// Depth cap: discard oldest.
	if over := len(m.entries) - m.maxDepth; over > 0 {
		m.entries = append(m.entries[:0:0], m.entries[over:]...)
		m.cursor -= over
		if m.cleanIndex >= 0 {
			m.cleanIndex -= over
			if m.cleanIndex < 0 {
				m.cleanIndex = -1
			}
		}
	}
	m.fireChanged()
}

// Undo reverts the command under the cursor. A failing Undo corrupts the
// stack: it is cleared and the corruption handler invoked.
func (m *Manager) Undo() error {
	if len(m.macros) > 0 {
		return errors.New("undo inside open macro")
	}
	if m.cursor == 0 {
		return ErrNothingToUndo
	}
	cmd := m.entries[m.cursor-1]
	m.replaying = true
	err := cmd.Undo()
	m.replaying = false
	if err != nil {
		m.entries = nil
		m.cursor = 0
		m.cleanIndex = -1
		m.fireChanged()
		if m.onCorrupt != nil {
			m.onCorrupt(fmt.Errorf("undo %s: %w", cmd.Description(), err))
		}
		return err
	}
	m.cursor--
	m.fireChanged()
	return nil
}

// Redo re-applies the command after the cursor.
func (m *Manager) Redo() error {
	if len(m.macros) > 0 {
		return errors.New("redo inside open macro")
	}
	if m.cursor >= len(m.entries) {
		return ErrNothingToRedo
	}
	cmd := m.entries[m.cursor]
	m.replaying = true
	err := cmd.Execute()
	m.replaying = false
	if err != nil {
		return fmt.Errorf("redo %s: %w", cmd.Description(), err)
	}
	m.cursor++
	m.fireChanged()
	return nil
}

// Replaying reports whether the manager is currently applying commands from
// the stack (so bindings skip recording a second time).
func (m *Manager) Replaying() bool { return m.replaying }

// BeginMacro opens a macro scope; all pushes until EndMacro form one
// reversible unit named desc. Macros nest.
func (m *Manager) BeginMacro(desc string) {
	m.macros = append(m.macros, &macro{desc: desc})
}

// EndMacro closes the innermost macro. Empty macros vanish.
func (m *Manager) EndMacro() {
	if len(m.macros) == 0 {
		return
	}
	mac := m.macros[len(m.macros)-1]
	m.macros = m.macros[:len(m.macros)-1]
	if len(mac.cmds) == 0 {
		return
	}
	m.record(mac)
}

// InMacro reports whether a macro scope is open.
func (m *Manager) InMacro() bool { return len(m.macros) > 0 }

func (m *Manager) currentMacro() *macro {
	if len(m.macros) == 0 {
		return nil
	}
	return m.macros[len(m.macros)-1]
}

// MarkClean records the current cursor as the saved position.
func (m *Manager) MarkClean() {
	m.cleanIndex = m.cursor
	m.fireChanged()
}

// IsClean reports whether the stack sits at the saved position.
func (m *Manager) IsClean() bool { return m.cleanIndex == m.cursor }

// Clear drains the stack, e.g. when a project closes.
func (m *Manager) Clear() {
	m.entries = nil
	m.cursor = 0
	m.cleanIndex = 0
	m.macros = nil
	m.fireChanged()
}

// Queries.

func (m *Manager) CanUndo() bool { return m.cursor > 0 && len(m.macros) == 0 }
func (m *Manager) CanRedo() bool { return m.cursor < len(m.entries) && len(m.macros) == 0 }
func (m *Manager) Depth() int    { return len(m.entries) }

// UndoText returns the description of the next undoable command.
func (m *Manager) UndoText() string {
	if m.cursor == 0 {
		return ""
	}
	return m.entries[m.cursor-1].Description()
}

// RedoText returns the description of the next redoable command.
func (m *Manager) RedoText() string {
	if m.cursor >= len(m.entries) {
		return ""
	}
	return m.entries[m.cursor].Description()
}

func (m *Manager) fireChanged() {
	for _, fn := range m.onChanged {
		fn()
	}
}

// macro groups already-executed commands into one reversible unit.
type macro struct {
	desc string
	cmds []Command
}

func (mc *macro) absorb(cmd Command) {
	// Continuous edits inside a macro still merge.
	if n := len(mc.cmds); n > 0 {
		top := mc.cmds[n-1]
		if mg, ok := top.(Merger); ok && top.Category() == cmd.Category() && mg.CanMergeWith(cmd) {
			mg.MergeWith(cmd)
			return
		}
	}
	mc.cmds = append(mc.cmds, cmd)
}

func (mc *macro) Execute() error {
	for _, c := range mc.cmds {
		if err := c.Execute(); err != nil {
			return err
		}
	}
	return nil
}

func (mc *macro) Undo() error {
	for i := len(mc.cmds) - 1; i >= 0; i-- {
		if err := mc.cmds[i].Undo(); err != nil {
			return err
		}
	}
	return nil
}

func (mc *macro) Description() string { return mc.desc }

func (mc *macro) Category() string {
	if len(mc.cmds) == 1 {
		return mc.cmds[0].Category()
	}
	return "macro"
}
