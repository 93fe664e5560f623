/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"errors"
	"testing"
)

// setCmd assigns a value to a shared cell, remembering the previous value.
type setCmd struct {
	cell    *int
	old     int
	val     int
	execErr error
	undoErr error
}

func (c *setCmd) Execute() error {
	if c.execErr != nil {
		return c.execErr
	}
	*c.cell = c.val
	return nil
}

func (c *setCmd) Undo() error {
	if c.undoErr != nil {
		return c.undoErr
	}
	*c.cell = c.old
	return nil
}

func (c *setCmd) Description() string { return "set value" }
func (c *setCmd) Category() string    { return "test" }

// deltaCmd is a mergeable additive edit, modeling a slider drag.
type deltaCmd struct {
	cell  *int
	delta int
}

func (c *deltaCmd) Execute() error      { *c.cell += c.delta; return nil }
func (c *deltaCmd) Undo() error         { *c.cell -= c.delta; return nil }
func (c *deltaCmd) Description() string { return "move" }
func (c *deltaCmd) Category() string    { return "transform" }

func (c *deltaCmd) CanMergeWith(next Command) bool {
	_, ok := next.(*deltaCmd)
	return ok
}

func (c *deltaCmd) MergeWith(next Command) { c.delta += next.(*deltaCmd).delta }

func TestUndoRedoRoundTrip(t *testing.T) {
	m := NewManager(0)
	cell := 0
	if err := m.Push(&setCmd{cell: &cell, old: 0, val: 5}); err != nil {
		t.Fatalf("push: %v", err)
	}
	if cell != 5 {
		t.Fatalf("execute not applied: %d", cell)
	}
	if err := m.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if cell != 0 {
		t.Fatalf("undo did not restore: %d", cell)
	}
	if err := m.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if cell != 5 {
		t.Fatalf("redo did not reapply: %d", cell)
	}
	if err := m.Undo(); err != nil {
		t.Fatalf("second undo: %v", err)
	}
	if cell != 0 {
		t.Fatalf("undo after redo not idempotent: %d", cell)
	}
}

func TestPushDiscardsRedoTail(t *testing.T) {
	m := NewManager(0)
	cell := 0
	_ = m.Push(&setCmd{cell: &cell, old: 0, val: 1})
	_ = m.Push(&setCmd{cell: &cell, old: 1, val: 2})
	_ = m.Undo()
	_ = m.Push(&setCmd{cell: &cell, old: 1, val: 9})
	if m.CanRedo() {
		t.Fatalf("redo tail survived a push")
	}
	if m.Depth() != 2 {
		t.Fatalf("depth = %d, want 2", m.Depth())
	}
}

func TestMergeContinuousDrag(t *testing.T) {
	m := NewManager(0)
	cell := 0
	for i := 0; i < 10; i++ {
		if err := m.Push(&deltaCmd{cell: &cell, delta: 1}); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if cell != 10 {
		t.Fatalf("drag result = %d, want 10", cell)
	}
	if m.Depth() != 1 {
		t.Fatalf("merged depth = %d, want 1", m.Depth())
	}
	if err := m.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if cell != 0 {
		t.Fatalf("one undo should restore origin, got %d", cell)
	}
	if err := m.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if cell != 10 {
		t.Fatalf("one redo should restore drag end, got %d", cell)
	}
}

func TestNoMergeAcrossCategories(t *testing.T) {
	m := NewManager(0)
	cell := 0
	_ = m.Push(&deltaCmd{cell: &cell, delta: 1})
	_ = m.Push(&setCmd{cell: &cell, old: 1, val: 7})
	if m.Depth() != 2 {
		t.Fatalf("commands of different categories merged")
	}
}

func TestMacroGroupsAsOneUnit(t *testing.T) {
	m := NewManager(0)
	a, b := 0, 0
	m.BeginMacro("edit both")
	_ = m.Push(&setCmd{cell: &a, old: 0, val: 1})
	_ = m.Push(&setCmd{cell: &b, old: 0, val: 2})
	if m.CanUndo() {
		t.Fatalf("CanUndo true inside open macro")
	}
	m.EndMacro()
	if m.Depth() != 1 {
		t.Fatalf("macro depth = %d, want 1", m.Depth())
	}
	if m.UndoText() != "edit both" {
		t.Fatalf("macro description = %q", m.UndoText())
	}
	if err := m.Undo(); err != nil {
		t.Fatalf("undo macro: %v", err)
	}
	if a != 0 || b != 0 {
		t.Fatalf("macro undo incomplete: a=%d b=%d", a, b)
	}
}

func TestEmptyMacroVanishes(t *testing.T) {
	m := NewManager(0)
	m.BeginMacro("noop")
	m.EndMacro()
	if m.Depth() != 0 {
		t.Fatalf("empty macro pushed an entry")
	}
}

func TestCleanMarker(t *testing.T) {
	m := NewManager(0)
	cell := 0
	if !m.IsClean() {
		t.Fatalf("fresh stack should be clean")
	}
	_ = m.Push(&setCmd{cell: &cell, old: 0, val: 1})
	if m.IsClean() {
		t.Fatalf("dirty after mutation expected")
	}
	m.MarkClean()
	if !m.IsClean() {
		t.Fatalf("MarkClean did not take")
	}
	_ = m.Push(&setCmd{cell: &cell, old: 1, val: 2})
	if m.IsClean() {
		t.Fatalf("mutation after save should dirty")
	}
	_ = m.Undo()
	if !m.IsClean() {
		t.Fatalf("undo back to clean index should restore clean")
	}
}

func TestCleanUnreachableAfterTruncation(t *testing.T) {
	m := NewManager(0)
	cell := 0
	_ = m.Push(&setCmd{cell: &cell, old: 0, val: 1})
	_ = m.Push(&setCmd{cell: &cell, old: 1, val: 2})
	m.MarkClean()
	_ = m.Undo()
	_ = m.Undo()
	// Overwrite history; the clean index lies on the discarded tail.
	_ = m.Push(&setCmd{cell: &cell, old: 0, val: 9})
	if m.IsClean() {
		t.Fatalf("clean index should be unreachable after truncation")
	}
	m.MarkClean()
	if !m.IsClean() {
		t.Fatalf("saving again should restore clean")
	}
}

func TestExecuteFailureDiscardsCommand(t *testing.T) {
	m := NewManager(0)
	cell := 0
	err := m.Push(&setCmd{cell: &cell, old: 0, val: 3, execErr: errors.New("boom")})
	if err == nil {
		t.Fatalf("expected push error")
	}
	if m.Depth() != 0 {
		t.Fatalf("failed command was pushed")
	}
}

func TestUndoFailureDrainsStack(t *testing.T) {
	m := NewManager(0)
	var corrupt error
	m.SetCorruptionHandler(func(err error) { corrupt = err })
	cell := 0
	_ = m.Push(&setCmd{cell: &cell, old: 0, val: 1})
	_ = m.Push(&setCmd{cell: &cell, old: 1, val: 2, undoErr: errors.New("kaput")})
	if err := m.Undo(); err == nil {
		t.Fatalf("expected undo error")
	}
	if m.Depth() != 0 || m.CanUndo() || m.CanRedo() {
		t.Fatalf("stack not drained after undo failure")
	}
	if corrupt == nil {
		t.Fatalf("corruption handler not invoked")
	}
	if m.IsClean() {
		t.Fatalf("document should be dirty after corruption")
	}
}

func TestDepthCapDropsOldest(t *testing.T) {
	m := NewManager(3)
	cell := 0
	for i := 1; i <= 5; i++ {
		_ = m.Push(&setCmd{cell: &cell, old: cell, val: i})
	}
	if m.Depth() != 3 {
		t.Fatalf("depth = %d, want 3", m.Depth())
	}
	// Only three undos are possible.
	n := 0
	for m.CanUndo() {
		_ = m.Undo()
		n++
	}
	if n != 3 {
		t.Fatalf("undo count = %d, want 3", n)
	}
}

func TestUndoRedoTextAndSignals(t *testing.T) {
	m := NewManager(0)
	fired := 0
	m.OnChanged(func() { fired++ })
	cell := 0
	_ = m.Push(&setCmd{cell: &cell, old: 0, val: 1})
	if m.UndoText() != "set value" {
		t.Fatalf("undo text = %q", m.UndoText())
	}
	_ = m.Undo()
	if m.RedoText() != "set value" {
		t.Fatalf("redo text = %q", m.RedoText())
	}
	if fired == 0 {
		t.Fatalf("OnChanged never fired")
	}
}
