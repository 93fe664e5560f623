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
	"errors"
	"reflect"
	"testing"

	"novelmind/internal/event"
	"novelmind/internal/property"
	"novelmind/internal/selection"
	"novelmind/internal/undo"
)

// lamp is a minimal editable type for exercising the binding pipeline.
type lamp struct {
	ID         string
	Name       string
	Brightness float64
}

func registerLamp(t *testing.T, r *property.Registry) {
	t.Helper()
	_, err := property.NewType("Lamp").
		Add(property.Meta{Name: "id", Category: "General", Type: property.KindString, Flags: property.ReadOnly},
			func(o any) property.Value { return property.String(o.(*lamp).ID) },
			func(o any, v property.Value) error { return errors.New("id is immutable") }).
		Add(property.Meta{Name: "name", Category: "General", Type: property.KindString},
			func(o any) property.Value { return property.String(o.(*lamp).Name) },
			func(o any, v property.Value) error {
				s, _ := v.AsString()
				o.(*lamp).Name = s
				return nil
			}).
		Add(property.Meta{Name: "brightness", Category: "Light", Type: property.KindDouble,
			Flags: property.Slider, Range: &property.Range{Min: 0, Max: 1}},
			func(o any) property.Value { return property.Double(o.(*lamp).Brightness) },
			func(o any, v property.Value) error {
				f, _ := v.AsDouble()
				o.(*lamp).Brightness = f
				return nil
			}).
		Build(r, reflect.TypeOf(&lamp{}))
	if err != nil {
		t.Fatalf("register lamp: %v", err)
	}
}

func lampTarget(l *lamp) Target {
	return Target{Type: selection.SceneObject, ID: l.ID, Object: l}
}

func TestSingleTargetReadWrite(t *testing.T) {
	r := property.NewRegistry()
	registerLamp(t, r)
	b := NewBinding(r, nil, nil)

	l := &lamp{ID: "l1", Name: "desk", Brightness: 0.8}
	if err := b.SetTarget(lampTarget(l)); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}

	v, err := b.Value("brightness")
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if f, _ := v.AsDouble(); f != 0.8 {
		t.Fatalf("want 0.8, got %v", f)
	}

	if err := b.SetValue("brightness", property.Double(0.4)); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if l.Brightness != 0.4 {
		t.Fatalf("write not applied: %v", l.Brightness)
	}

	// Out-of-range writes clamp instead of failing.
	if err := b.SetValue("brightness", property.Double(3)); err != nil {
		t.Fatalf("SetValue above range: %v", err)
	}
	if l.Brightness != 1 {
		t.Fatalf("range not clamped: %v", l.Brightness)
	}

	if err := b.SetValue("id", property.String("other")); err == nil {
		t.Fatalf("read-only write accepted")
	}
}

func TestUnregisteredTargetRejected(t *testing.T) {
	b := NewBinding(property.NewRegistry(), nil, nil)
	err := b.SetTarget(Target{ID: "x", Object: &struct{}{}})
	if err == nil {
		t.Fatalf("expected registration error")
	}
}

func TestMultiTargetMixedValuesAndSingleUndoStep(t *testing.T) {
	r := property.NewRegistry()
	registerLamp(t, r)
	um := undo.NewManager(32)
	b := NewBinding(r, um, nil)

	a := &lamp{ID: "a", Brightness: 0.2}
	c := &lamp{ID: "c", Brightness: 0.9}
	if err := b.SetTargets([]Target{lampTarget(a), lampTarget(c)}); err != nil {
		t.Fatalf("SetTargets: %v", err)
	}

	// Disagreeing targets read as the sentinel.
	v, err := b.Value("brightness")
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if !v.IsMultiple() {
		t.Fatalf("want multiple-values sentinel, got %v", v)
	}

	// One write lands on every target and is one undo entry.
	if err := b.SetValue("brightness", property.Double(0.5)); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if a.Brightness != 0.5 || c.Brightness != 0.5 {
		t.Fatalf("write not propagated: a=%v c=%v", a.Brightness, c.Brightness)
	}
	v, _ = b.Value("brightness")
	if f, _ := v.AsDouble(); f != 0.5 {
		t.Fatalf("agreeing targets still read as sentinel: %v", v)
	}

	if err := um.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if a.Brightness != 0.2 || c.Brightness != 0.9 {
		t.Fatalf("undo did not restore both: a=%v c=%v", a.Brightness, c.Brightness)
	}
	if um.CanUndo() {
		t.Fatalf("multi-target write left more than one undo entry")
	}
}

func TestSuccessiveWritesMergeLikeADrag(t *testing.T) {
	r := property.NewRegistry()
	registerLamp(t, r)
	um := undo.NewManager(32)
	b := NewBinding(r, um, nil)

	l := &lamp{ID: "l1", Brightness: 0.1}
	if err := b.SetTarget(lampTarget(l)); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	for _, f := range []float64{0.3, 0.6, 0.9} {
		if err := b.SetValue("brightness", property.Double(f)); err != nil {
			t.Fatalf("SetValue(%v): %v", f, err)
		}
	}
	if err := um.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if l.Brightness != 0.1 {
		t.Fatalf("merged undo should restore the drag origin, got %v", l.Brightness)
	}
	if um.CanUndo() {
		t.Fatalf("drag left multiple undo entries")
	}
}

func TestValidatorAndVetoAbortWrites(t *testing.T) {
	r := property.NewRegistry()
	registerLamp(t, r)
	b := NewBinding(r, nil, nil)

	l := &lamp{ID: "l1", Name: "desk"}
	if err := b.SetTarget(lampTarget(l)); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}

	b.AddValidator(func(ctx ChangeContext) error {
		if ctx.Property == "name" {
			if s, _ := ctx.New.AsString(); s == "" {
				return errors.New("name must not be empty")
			}
		}
		return nil
	})
	if err := b.SetValue("name", property.String("")); err == nil {
		t.Fatalf("validator did not abort")
	}
	if l.Name != "desk" {
		t.Fatalf("aborted write was applied")
	}

	vetoed := false
	b.OnBeforeChange(func(ctx ChangeContext) bool { vetoed = true; return false })
	if err := b.SetValue("name", property.String("ceiling")); err == nil {
		t.Fatalf("veto did not abort")
	}
	if !vetoed || l.Name != "desk" {
		t.Fatalf("veto pipeline broken: vetoed=%v name=%q", vetoed, l.Name)
	}
}

func TestAfterChangeAndBusEvent(t *testing.T) {
	r := property.NewRegistry()
	registerLamp(t, r)
	bus := event.NewBus()
	b := NewBinding(r, nil, bus)

	var payload PropertyChangedPayload
	bus.SubscribeKinds(func(ev event.Event) {
		payload = ev.Data.(PropertyChangedPayload)
	}, event.PropertyChanged)

	after := 0
	b.OnAfterChange(func(ChangeContext) { after++ })

	l := &lamp{ID: "l1"}
	if err := b.SetTarget(lampTarget(l)); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if err := b.SetValue("brightness", property.Double(0.7)); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if after != 1 {
		t.Fatalf("after-change ran %d times", after)
	}
	if payload.TargetID != "l1" || payload.Property != "brightness" {
		t.Fatalf("bus payload wrong: %+v", payload)
	}
}

func TestSetValueFromText(t *testing.T) {
	r := property.NewRegistry()
	registerLamp(t, r)
	b := NewBinding(r, nil, nil)

	l := &lamp{ID: "l1"}
	if err := b.SetTarget(lampTarget(l)); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	if err := b.SetValueFromText("brightness", "0.25"); err != nil {
		t.Fatalf("SetValueFromText: %v", err)
	}
	if l.Brightness != 0.25 {
		t.Fatalf("text write wrong: %v", l.Brightness)
	}
}

func TestInvalidateTargetShrinksSet(t *testing.T) {
	r := property.NewRegistry()
	registerLamp(t, r)
	b := NewBinding(r, nil, nil)

	a := &lamp{ID: "a", Brightness: 0.2}
	c := &lamp{ID: "c", Brightness: 0.9}
	if err := b.SetTargets([]Target{lampTarget(a), lampTarget(c)}); err != nil {
		t.Fatalf("SetTargets: %v", err)
	}
	notified := 0
	b.OnTargetChanged(func() { notified++ })

	b.InvalidateTarget("c")
	if notified != 1 {
		t.Fatalf("target-changed not fired")
	}
	if got := b.Targets(); len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("remaining target set wrong: %v", got)
	}
	v, _ := b.Value("brightness")
	if f, _ := v.AsDouble(); f != 0.2 {
		t.Fatalf("single survivor should read plainly, got %v", v)
	}
}

func TestPropertiesGroupedAndFiltered(t *testing.T) {
	r := property.NewRegistry()
	registerLamp(t, r)
	b := NewBinding(r, nil, nil)

	l := &lamp{ID: "l1"}
	if err := b.SetTarget(lampTarget(l)); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}
	groups := b.Properties()
	if len(groups) != 2 || groups[0].Category != "General" || groups[1].Category != "Light" {
		t.Fatalf("groups wrong: %+v", groups)
	}
	if len(groups[0].Properties) != 2 {
		t.Fatalf("General group wrong: %+v", groups[0].Properties)
	}
}
