/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package scene holds the persistent scene document: an ordered list of
// scene objects with transforms, layering and a property bag, mutated
// exclusively through the document API so every change is observable.
package scene

import (
	"fmt"
	"sort"
	"strings"

	"novelmind/internal/event"
)

// ObjectType layers scene objects; z-order sorts within one type layer.
type ObjectType int

const (
	Background ObjectType = iota
	Character
	UI
	Effect
)

func (t ObjectType) String() string {
	switch t {
	case Character:
		return "character"
	case UI:
		return "ui"
	case Effect:
		return "effect"
	}
	return "background"
}

// ParseObjectType reads the textual form used in scene files.
func ParseObjectType(s string) (ObjectType, error) {
	switch strings.ToLower(s) {
	case "background":
		return Background, nil
	case "character":
		return Character, nil
	case "ui":
		return UI, nil
	case "effect":
		return Effect, nil
	}
	return Background, fmt.Errorf("unknown object type %q", s)
}

// PropTextureID is the reserved property-bag key binding a visual asset.
const PropTextureID = "textureId"

// RuntimePrefix marks objects the runtime preview introduced; they are
// excluded from saves.
const RuntimePrefix = "runtime_"

// Object is one entity of a scene. Positions are scene-space pixels,
// rotation is degrees, alpha is 0..1.
type Object struct {
	ID         string
	Name       string
	Type       ObjectType
	X, Y       float64
	Rotation   float64
	ScaleX     float64
	ScaleY     float64
	Alpha      float64
	Visible    bool
	Locked     bool
	ZOrder     int
	Properties map[string]string
}

// NewObject creates an object with identity transform defaults.
func NewObject(id, name string, t ObjectType) *Object {
	return &Object{
		ID: id, Name: name, Type: t,
		ScaleX: 1, ScaleY: 1, Alpha: 1, Visible: true,
		Properties: make(map[string]string),
	}
}

// IsRuntime reports whether the object was introduced by the preview.
func (o *Object) IsRuntime() bool { return strings.HasPrefix(o.ID, RuntimePrefix) }

// TextureID returns the bound visual asset id, "" when unbound.
func (o *Object) TextureID() string { return o.Properties[PropTextureID] }

// Clone deep-copies the object including its property bag.
func (o *Object) Clone() *Object {
	c := *o
	c.Properties = make(map[string]string, len(o.Properties))
	for k, v := range o.Properties {
		c.Properties[k] = v
	}
	return &c
}

// Equal compares two objects under deep equality.
func (o *Object) Equal(other *Object) bool {
	if o.ID != other.ID || o.Name != other.Name || o.Type != other.Type ||
		o.X != other.X || o.Y != other.Y || o.Rotation != other.Rotation ||
		o.ScaleX != other.ScaleX || o.ScaleY != other.ScaleY ||
		o.Alpha != other.Alpha || o.Visible != other.Visible ||
		o.Locked != other.Locked || o.ZOrder != other.ZOrder ||
		len(o.Properties) != len(other.Properties) {
		return false
	}
	for k, v := range o.Properties {
		if other.Properties[k] != v {
			return false
		}
	}
	return true
}

// ObjectChange is the bus payload of SceneObjectChanged events.
type ObjectChange struct {
	SceneID  string
	ObjectID string
	Field    string
}

// TransformFinished is the bus payload of SceneObjectTransformFinished:
// a drag ended and the panel should push one undo command.
type TransformFinished struct {
	SceneID string
	Before  *Object
	After   *Object
}

// Document is one scene: a sceneId plus its ordered objects. Ids are
// unique within the document. Not safe for concurrent use.
type Document struct {
	SceneID string

	objects []*Object
	index   map[string]*Object

	bus           *event.Bus
	loading       bool
	runtimeActive bool
}

// NewDocument creates an empty scene. The bus may be nil in tests.
func NewDocument(sceneID string, bus *event.Bus) *Document {
	return &Document{SceneID: sceneID, index: make(map[string]*Object), bus: bus}
}

// AddObject appends an object. Duplicate ids are rejected.
func (d *Document) AddObject(o *Object) error {
	if o.ID == "" {
		return fmt.Errorf("object id is required")
	}
	if _, dup := d.index[o.ID]; dup {
		return fmt.Errorf("duplicate object id %q", o.ID)
	}
	d.objects = append(d.objects, o)
	d.index[o.ID] = o
	d.emit(event.SceneObjectAdded, ObjectChange{SceneID: d.SceneID, ObjectID: o.ID})
	return nil
}

// RemoveObject deletes an object and returns its final snapshot, so a
// delete command can restore it.
func (d *Document) RemoveObject(id string) (*Object, bool) {
	o, ok := d.index[id]
	if !ok {
		return nil, false
	}
	delete(d.index, id)
	for i, e := range d.objects {
		if e.ID == id {
			d.objects = append(d.objects[:i], d.objects[i+1:]...)
			break
		}
	}
	snap := o.Clone()
	d.emit(event.SceneObjectRemoved, ObjectChange{SceneID: d.SceneID, ObjectID: id})
	return snap, true
}

// Object returns the live object for an id.
func (d *Document) Object(id string) (*Object, bool) {
	o, ok := d.index[id]
	return o, ok
}

// Objects returns the objects in document order.
func (d *Document) Objects() []*Object { return append([]*Object(nil), d.objects...) }

// Count returns the number of objects.
func (d *Document) Count() int { return len(d.objects) }

// DrawOrder returns the objects sorted for rendering: by type layer,
// then z-order, then document order for stability.
func (d *Document) DrawOrder() []*Object {
	out := append([]*Object(nil), d.objects...)
	pos := make(map[string]int, len(out))
	for i, o := range d.objects {
		pos[o.ID] = i
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		if out[i].ZOrder != out[j].ZOrder {
			return out[i].ZOrder < out[j].ZOrder
		}
		return pos[out[i].ID] < pos[out[j].ID]
	})
	return out
}

// Mutation API. Each setter reports whether the id existed and emits a
// SceneObjectChanged event naming the field.

func (d *Document) SetObjectPosition(id string, x, y float64) bool {
	o, ok := d.index[id]
	if !ok {
		return false
	}
	o.X, o.Y = x, y
	d.emit(event.SceneObjectChanged, ObjectChange{SceneID: d.SceneID, ObjectID: id, Field: "position"})
	return true
}

func (d *Document) SetObjectRotation(id string, deg float64) bool {
	o, ok := d.index[id]
	if !ok {
		return false
	}
	o.Rotation = deg
	d.emit(event.SceneObjectChanged, ObjectChange{SceneID: d.SceneID, ObjectID: id, Field: "rotation"})
	return true
}

func (d *Document) SetObjectScale(id string, sx, sy float64) bool {
	o, ok := d.index[id]
	if !ok {
		return false
	}
	o.ScaleX, o.ScaleY = sx, sy
	d.emit(event.SceneObjectChanged, ObjectChange{SceneID: d.SceneID, ObjectID: id, Field: "scale"})
	return true
}

func (d *Document) SetObjectOpacity(id string, alpha float64) bool {
	o, ok := d.index[id]
	if !ok {
		return false
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	o.Alpha = alpha
	d.emit(event.SceneObjectChanged, ObjectChange{SceneID: d.SceneID, ObjectID: id, Field: "alpha"})
	return true
}

func (d *Document) SetObjectVisible(id string, visible bool) bool {
	o, ok := d.index[id]
	if !ok {
		return false
	}
	o.Visible = visible
	d.emit(event.SceneObjectChanged, ObjectChange{SceneID: d.SceneID, ObjectID: id, Field: "visible"})
	return true
}

func (d *Document) SetObjectLocked(id string, locked bool) bool {
	o, ok := d.index[id]
	if !ok {
		return false
	}
	o.Locked = locked
	d.emit(event.SceneObjectChanged, ObjectChange{SceneID: d.SceneID, ObjectID: id, Field: "locked"})
	return true
}

func (d *Document) SetObjectZOrder(id string, z int) bool {
	o, ok := d.index[id]
	if !ok {
		return false
	}
	o.ZOrder = z
	d.emit(event.SceneObjectChanged, ObjectChange{SceneID: d.SceneID, ObjectID: id, Field: "zOrder"})
	return true
}

func (d *Document) SetObjectName(id, name string) bool {
	o, ok := d.index[id]
	if !ok {
		return false
	}
	o.Name = name
	d.emit(event.SceneObjectChanged, ObjectChange{SceneID: d.SceneID, ObjectID: id, Field: "name"})
	return true
}

// SetObjectAsset binds a visual asset under the reserved textureId key.
func (d *Document) SetObjectAsset(id, assetID string) bool {
	o, ok := d.index[id]
	if !ok {
		return false
	}
	if assetID == "" {
		delete(o.Properties, PropTextureID)
	} else {
		o.Properties[PropTextureID] = assetID
	}
	d.emit(event.SceneObjectChanged, ObjectChange{SceneID: d.SceneID, ObjectID: id, Field: PropTextureID})
	return true
}

// SetObjectProperty writes a free-form property bag entry.
func (d *Document) SetObjectProperty(id, key, value string) bool {
	o, ok := d.index[id]
	if !ok {
		return false
	}
	o.Properties[key] = value
	d.emit(event.SceneObjectChanged, ObjectChange{SceneID: d.SceneID, ObjectID: id, Field: key})
	return true
}

// FinishTransform signals the end of a drag: one event carrying before
// and after snapshots so the panel can push a single undo command.
func (d *Document) FinishTransform(before *Object) bool {
	o, ok := d.index[before.ID]
	if !ok {
		return false
	}
	d.emit(event.SceneObjectTransformFinished, TransformFinished{
		SceneID: d.SceneID, Before: before, After: o.Clone(),
	})
	return true
}

// SetRuntimeActive marks the runtime preview as owning the scene; saving
// is suppressed while active.
func (d *Document) SetRuntimeActive(active bool) { d.runtimeActive = active }

// RuntimeActive reports whether the preview owns the scene.
func (d *Document) RuntimeActive() bool { return d.runtimeActive }

// Loading reports whether a load is in progress.
func (d *Document) Loading() bool { return d.loading }

func (d *Document) emit(kind event.Kind, data any) {
	if d.loading || d.bus == nil {
		return
	}
	d.bus.Emit(kind, "scene", data)
}
