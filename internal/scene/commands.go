/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import (
	"fmt"

	"novelmind/internal/event"
	"novelmind/internal/undo"
)

// CategoryScene tags scene commands on the undo stack.
const CategoryScene = "scene"

// AddObjectCommand inserts an object; undo removes it again.
type AddObjectCommand struct {
	Doc    *Document
	Object *Object
}

func (c *AddObjectCommand) Execute() error {
	return c.Doc.AddObject(c.Object.Clone())
}

func (c *AddObjectCommand) Undo() error {
	if _, ok := c.Doc.RemoveObject(c.Object.ID); !ok {
		return fmt.Errorf("object %s vanished", c.Object.ID)
	}
	return nil
}

func (c *AddObjectCommand) Description() string { return "Add " + c.Object.Name }
func (c *AddObjectCommand) Category() string    { return CategoryScene }

// DeleteObjectCommand removes an object keeping its full snapshot; redo
// re-creates it, including the textureId binding carried in the bag.
type DeleteObjectCommand struct {
	Doc      *Document
	ObjectID string
	snapshot *Object
}

func (c *DeleteObjectCommand) Execute() error {
	snap, ok := c.Doc.RemoveObject(c.ObjectID)
	if !ok {
		return fmt.Errorf("object %s not found", c.ObjectID)
	}
	c.snapshot = snap
	return nil
}

func (c *DeleteObjectCommand) Undo() error {
	if c.snapshot == nil {
		return fmt.Errorf("no snapshot for %s", c.ObjectID)
	}
	return c.Doc.AddObject(c.snapshot.Clone())
}

func (c *DeleteObjectCommand) Description() string { return "Delete " + c.ObjectID }
func (c *DeleteObjectCommand) Category() string    { return CategoryScene }

// TransformCommand applies a full before/after transform snapshot. It
// merges with successive transforms of the same object, so a drag of many
// frames collapses into one undo step back to the drag origin.
type TransformCommand struct {
	Doc           *Document
	Before, After *Object
}

func applyTransform(d *Document, s *Object) error {
	o, ok := d.Object(s.ID)
	if !ok {
		return fmt.Errorf("object %s not found", s.ID)
	}
	o.X, o.Y = s.X, s.Y
	o.Rotation = s.Rotation
	o.ScaleX, o.ScaleY = s.ScaleX, s.ScaleY
	o.ZOrder = s.ZOrder
	d.emit(event.SceneObjectChanged, ObjectChange{SceneID: d.SceneID, ObjectID: s.ID, Field: "transform"})
	return nil
}

func (c *TransformCommand) Execute() error { return applyTransform(c.Doc, c.After) }
func (c *TransformCommand) Undo() error    { return applyTransform(c.Doc, c.Before) }

func (c *TransformCommand) Description() string { return "Transform " + c.Before.ID }
func (c *TransformCommand) Category() string    { return CategoryScene }

func (c *TransformCommand) CanMergeWith(next undo.Command) bool {
	n, ok := next.(*TransformCommand)
	return ok && n.Doc == c.Doc && n.Before.ID == c.Before.ID
}

func (c *TransformCommand) MergeWith(next undo.Command) {
	// Keep the original Before; adopt the newest After.
	c.After = next.(*TransformCommand).After
}

// SetPropertyCommand writes one property-bag entry reversibly.
type SetPropertyCommand struct {
	Doc      *Document
	ObjectID string
	Key      string
	Value    string
	old      string
	hadOld   bool
	applied  bool
}

func (c *SetPropertyCommand) Execute() error {
	o, ok := c.Doc.Object(c.ObjectID)
	if !ok {
		return fmt.Errorf("object %s not found", c.ObjectID)
	}
	if !c.applied {
		c.old, c.hadOld = o.Properties[c.Key]
		c.applied = true
	}
	c.Doc.SetObjectProperty(c.ObjectID, c.Key, c.Value)
	return nil
}

func (c *SetPropertyCommand) Undo() error {
	o, ok := c.Doc.Object(c.ObjectID)
	if !ok {
		return fmt.Errorf("object %s not found", c.ObjectID)
	}
	if c.hadOld {
		c.Doc.SetObjectProperty(c.ObjectID, c.Key, c.old)
	} else {
		delete(o.Properties, c.Key)
		c.Doc.emit(event.SceneObjectChanged, ObjectChange{SceneID: c.Doc.SceneID, ObjectID: c.ObjectID, Field: c.Key})
	}
	return nil
}

func (c *SetPropertyCommand) Description() string { return "Set " + c.Key }
func (c *SetPropertyCommand) Category() string    { return CategoryScene }
