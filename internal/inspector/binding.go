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
	"fmt"
	"sort"

	"novelmind/internal/event"
	"novelmind/internal/property"
	"novelmind/internal/undo"
)

// PropertyChangedPayload is the bus payload of PropertyChanged events.
type PropertyChangedPayload struct {
	TargetID string
	Property string
	Value    property.Value
}

// Group is a category of properties as presented by the inspector panel.
type Group struct {
	Category   string
	Properties []property.Meta
}

// Binding maps the current target set to the property system. All calls
// happen on the UI goroutine.
type Binding struct {
	registry *property.Registry
	undoMgr  *undo.Manager
	bus      *event.Bus

	targets []Target
	infos   []*property.TypeInfo
	common  []string // property-name intersection, first target's order
	cache   map[string]property.Value

	recordUndo bool
	validators []Validator
	before     []BeforeChange
	after      []AfterChange
	dependents map[string][]string

	onTargetChanged []func()
}

// NewBinding creates an empty binding recording undo by default.
// undoMgr and bus may be nil in tests.
func NewBinding(registry *property.Registry, undoMgr *undo.Manager, bus *event.Bus) *Binding {
	return &Binding{
		registry:   registry,
		undoMgr:    undoMgr,
		bus:        bus,
		recordUndo: true,
		cache:      make(map[string]property.Value),
		dependents: make(map[string][]string),
	}
}

// SetRecordUndo toggles undo recording, e.g. for transient previews.
func (b *Binding) SetRecordUndo(on bool) { b.recordUndo = on }

// AddValidator registers a write validator.
func (b *Binding) AddValidator(v Validator) { b.validators = append(b.validators, v) }

// OnBeforeChange registers a veto handler.
func (b *Binding) OnBeforeChange(fn BeforeChange) { b.before = append(b.before, fn) }

// OnAfterChange registers a completion observer.
func (b *Binding) OnAfterChange(fn AfterChange) { b.after = append(b.after, fn) }

// OnTargetChanged registers a callback fired whenever the target set is
// replaced or invalidated. Listeners run in registration order.
func (b *Binding) OnTargetChanged(fn func()) { b.onTargetChanged = append(b.onTargetChanged, fn) }

// AddDependent declares that changing prop must refresh dep in the panel.
func (b *Binding) AddDependent(prop, dep string) {
	b.dependents[prop] = append(b.dependents[prop], dep)
}

// SetTarget binds a single object.
func (b *Binding) SetTarget(t Target) error { return b.SetTargets([]Target{t}) }

// SetTargets binds a set of objects. Every target's type must be
// registered. The cached value map is cleared and targetChanged fires.
func (b *Binding) SetTargets(targets []Target) error {
	infos := make([]*property.TypeInfo, len(targets))
	for i, t := range targets {
		ti, ok := b.registry.LookupOf(t.Object)
		if !ok {
			return fmt.Errorf("type of target %s is not registered", t.ID)
		}
		infos[i] = ti
	}
	b.targets = append(b.targets[:0:0], targets...)
	b.infos = infos
	b.common = commonProperties(infos)
	b.invalidateCache()
	b.fireTargetChanged()
	return nil
}

// ClearTargets drops the target set.
func (b *Binding) ClearTargets() {
	b.targets = nil
	b.infos = nil
	b.common = nil
	b.invalidateCache()
	b.fireTargetChanged()
}

// InvalidateTarget drops a disappeared target by id; the remaining set
// stays bound. The owning panel calls this on deletion events.
func (b *Binding) InvalidateTarget(id string) {
	for i, t := range b.targets {
		if t.ID == id {
			b.targets = append(b.targets[:i], b.targets[i+1:]...)
			b.infos = append(b.infos[:i], b.infos[i+1:]...)
			b.common = commonProperties(b.infos)
			b.invalidateCache()
			b.fireTargetChanged()
			return
		}
	}
}

// Targets returns the bound set.
func (b *Binding) Targets() []Target { return append([]Target(nil), b.targets...) }

// HasTargets reports whether anything is bound.
func (b *Binding) HasTargets() bool { return len(b.targets) > 0 }

// commonProperties intersects the property names of all target types,
// keeping the first type's accessor order. One property scan per type:
// O(N·P), never O(N²).
func commonProperties(infos []*property.TypeInfo) []string {
	if len(infos) == 0 {
		return nil
	}
	names := infos[0].Names()
	if len(infos) == 1 {
		return names
	}
	var out []string
	for _, name := range names {
		everywhere := true
		for _, ti := range infos[1:] {
			if _, ok := ti.Find(name); !ok {
				everywhere = false
				break
			}
		}
		if everywhere {
			out = append(out, name)
		}
	}
	return out
}

// Properties returns the editable surface grouped by category. For a
// multi-target set only common-by-name properties appear; hidden
// properties are filtered out.
func (b *Binding) Properties() []Group {
	if len(b.infos) == 0 {
		return nil
	}
	byCat := make(map[string][]property.Meta)
	var order []string
	for _, name := range b.common {
		acc, _ := b.infos[0].Find(name)
		if acc.Meta.Flags.Has(property.Hidden) {
			continue
		}
		cat := acc.Meta.Category
		if _, seen := byCat[cat]; !seen {
			order = append(order, cat)
		}
		byCat[cat] = append(byCat[cat], acc.Meta)
	}
	out := make([]Group, 0, len(order))
	for _, cat := range order {
		metas := byCat[cat]
		sort.SliceStable(metas, func(i, j int) bool { return metas[i].Order < metas[j].Order })
		out = append(out, Group{Category: cat, Properties: metas})
	}
	return out
}

// Value reads a property across the target set: the shared value when
// all targets agree, the MultipleValues sentinel otherwise.
func (b *Binding) Value(name string) (property.Value, error) {
	if len(b.targets) == 0 {
		return property.Null(), fmt.Errorf("no target bound")
	}
	if v, ok := b.cache[name]; ok {
		return v, nil
	}
	var first property.Value
	for i, t := range b.targets {
		acc, ok := b.infos[i].Find(name)
		if !ok {
			return property.Null(), fmt.Errorf("property %s not common to all targets", name)
		}
		v := acc.Get(t.Object)
		if i == 0 {
			first = v
			continue
		}
		if !v.Equal(first) {
			b.cache[name] = property.Multiple()
			return property.Multiple(), nil
		}
	}
	b.cache[name] = first
	return first, nil
}

// SetValue writes a property through the change pipeline, propagating to
// every bound target. A multi-target write is one undo step.
func (b *Binding) SetValue(name string, v property.Value) error {
	if len(b.targets) == 0 {
		return fmt.Errorf("no target bound")
	}
	acc0, ok := b.infos[0].Find(name)
	if !ok {
		return fmt.Errorf("property %s not common to all targets", name)
	}
	meta := acc0.Meta
	if meta.Flags.Has(property.ReadOnly) {
		return fmt.Errorf("%s is read-only", meta.DisplayName)
	}
	v = property.ClampToRange(v, meta.Range)
	if err := property.Validate(v, meta); err != nil {
		return err
	}

	// Validators and veto handlers see the primary target's context.
	ctx := ChangeContext{
		Target:   b.targets[0],
		Property: name,
		Old:      acc0.Get(b.targets[0].Object),
		New:      v,
	}
	for _, val := range b.validators {
		if err := val(ctx); err != nil {
			return err
		}
	}
	for _, fn := range b.before {
		if !fn(ctx) {
			return fmt.Errorf("change to %s rejected", meta.DisplayName)
		}
	}

	multi := len(b.targets) > 1
	record := b.recordUndo && !meta.Flags.Has(property.NoUndo) &&
		b.undoMgr != nil && !b.undoMgr.Replaying()
	if record && multi {
		b.undoMgr.BeginMacro("Set " + meta.DisplayName)
	}
	for i, t := range b.targets {
		acc, _ := b.infos[i].Find(name)
		old := acc.Get(t.Object)
		if record {
			cmd := &propertyChangeCommand{
				accessor: acc,
				target:   t,
				property: name,
				display:  meta.DisplayName,
				old:      old,
				value:    v,
			}
			if err := b.undoMgr.Push(cmd); err != nil {
				if record && multi {
					b.undoMgr.EndMacro()
				}
				return err
			}
		} else if err := acc.Set(t.Object, v); err != nil {
			return fmt.Errorf("set %s on %s: %w", name, t.ID, err)
		}
	}
	if record && multi {
		b.undoMgr.EndMacro()
	}

	b.invalidateProperty(name)
	for _, fn := range b.after {
		fn(ChangeContext{Target: b.targets[0], Property: name, Old: ctx.Old, New: v})
	}
	if b.bus != nil {
		b.bus.Emit(event.PropertyChanged, "inspector", PropertyChangedPayload{
			TargetID: b.targets[0].ID, Property: name, Value: v,
		})
	}
	return nil
}

// SetValueFromText parses the canonical textual form and writes it.
func (b *Binding) SetValueFromText(name, text string) error {
	if len(b.infos) == 0 {
		return fmt.Errorf("no target bound")
	}
	acc, ok := b.infos[0].Find(name)
	if !ok {
		return fmt.Errorf("property %s not common to all targets", name)
	}
	v := property.FromString(acc.Meta.Type, text, acc.Meta.Default)
	return b.SetValue(name, v)
}

// BeginBatch opens an undo macro so a continuous edit (slider drag,
// typing) collapses into one undo entry.
func (b *Binding) BeginBatch(desc string) {
	if b.undoMgr != nil {
		b.undoMgr.BeginMacro(desc)
	}
}

// EndBatch closes the macro.
func (b *Binding) EndBatch() {
	if b.undoMgr != nil {
		b.undoMgr.EndMacro()
	}
}

// DependentsOf returns the properties the panel must refresh after prop
// changed.
func (b *Binding) DependentsOf(prop string) []string {
	return append([]string(nil), b.dependents[prop]...)
}

func (b *Binding) invalidateCache() { b.cache = make(map[string]property.Value) }

// invalidateProperty drops the cached value of prop and its dependents.
func (b *Binding) invalidateProperty(prop string) {
	delete(b.cache, prop)
	for _, dep := range b.dependents[prop] {
		delete(b.cache, dep)
	}
}

func (b *Binding) fireTargetChanged() {
	for _, fn := range b.onTargetChanged {
		fn()
	}
	if b.bus != nil {
		b.bus.Emit(event.InspectorTargetChanged, "inspector", len(b.targets))
	}
}
