/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package playmode supervises the embedded runtime for in-editor
// preview: play/pause/step, breakpoints on story nodes, save slots and
// paused variable editing. The runtime itself is out of scope and seen
// only through the RuntimeHost facade.
package playmode

import (
	"fmt"
	"strconv"

	"novelmind/internal/property"
	"novelmind/internal/scene"
)

// VariantKind tags the runtime's variable variant.
type VariantKind int

const (
	VarInt VariantKind = iota
	VarFloat
	VarBool
	VarString
)

// Variant is a runtime variable value: int, float, bool or string.
type Variant struct {
	Kind VariantKind
	I    int64
	F    float64
	B    bool
	S    string
}

func IntVar(i int64) Variant     { return Variant{Kind: VarInt, I: i} }
func FloatVar(f float64) Variant { return Variant{Kind: VarFloat, F: f} }
func BoolVar(b bool) Variant     { return Variant{Kind: VarBool, B: b} }
func StringVar(s string) Variant { return Variant{Kind: VarString, S: s} }

func (v Variant) String() string {
	switch v.Kind {
	case VarInt:
		return strconv.FormatInt(v.I, 10)
	case VarFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case VarBool:
		return strconv.FormatBool(v.B)
	}
	return v.S
}

// CoerceValue converts an editor property value into the runtime
// variant.
func CoerceValue(v property.Value) (Variant, error) {
	switch v.Kind() {
	case property.KindBool:
		b, _ := v.AsBool()
		return BoolVar(b), nil
	case property.KindInt:
		i, _ := v.AsInt()
		return IntVar(int64(i)), nil
	case property.KindInt64:
		i, _ := v.AsInt64()
		return IntVar(i), nil
	case property.KindFloat:
		f, _ := v.AsFloat()
		return FloatVar(float64(f)), nil
	case property.KindDouble:
		f, _ := v.AsDouble()
		return FloatVar(f), nil
	case property.KindString:
		s, _ := v.AsString()
		return StringVar(s), nil
	}
	return Variant{}, fmt.Errorf("cannot coerce %s into a runtime variant", v.Kind())
}

// LoadDescriptor identifies what the runtime has loaded; the controller
// reloads whenever the current project diverges from it.
type LoadDescriptor struct {
	ProjectPath string
	ScriptsPath string
	AssetsPath  string
	StartScene  string
}

// Input is a simulated user input injected into the runtime.
type Input struct {
	Click  bool
	Choice int // -1 when not a choice selection
}

// Callbacks are emitted by the runtime host on its own schedule; the
// controller translates them into editor state and bus events.
type Callbacks struct {
	StateChanged    func(running bool)
	SceneChanged    func(nodeID string)
	DialogueChanged func(speaker, text string)
	ChoicesChanged  func(choices []string)
	VariableChanged func(name string, v Variant)
	RuntimeError    func(msg, details string)
	BreakpointHit   func(nodeID string)
}

// RuntimeHost is the facade over the embedded runtime (script VM,
// renderer, audio). One Step is at most one UI frame.
type RuntimeHost interface {
	Load(desc LoadDescriptor) error
	Loaded() (LoadDescriptor, bool)
	SetCallbacks(cb Callbacks)

	Start() error
	Stop() error
	Pause() error
	Resume() error
	// Step injects the given input and runs one runtime frame.
	Step(in Input) error

	CurrentNode() string
	Dialogue() (speaker, text string)
	Choices() []string
	Variables() map[string]Variant
	Flags() map[string]bool
	CallStack() []string
	SceneObjects() []*scene.Object

	SetVariable(name string, v Variant) error

	SaveSlot(n int) error
	LoadSlot(n int) error
	SaveAuto() error
	LoadAuto() error
}
