/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"reflect"

	"novelmind/internal/graph"
	"novelmind/internal/property"
	"novelmind/internal/scene"
	"novelmind/internal/timeline"
)

// registerEditableTypes is the startup registration pass binding every
// user-editable field of the scene, graph and timeline entities.
func registerEditableTypes(r *property.Registry) error {
	if err := registerSceneObject(r); err != nil {
		return err
	}
	if err := registerGraphNode(r); err != nil {
		return err
	}
	return registerTimelineTrack(r)
}

func asDouble(v property.Value) (float64, error) {
	if f, ok := v.Numeric(); ok {
		return f, nil
	}
	return 0, fmt.Errorf("expected a numeric value, got %s", v.Kind())
}

func asBool(v property.Value) (bool, error) {
	if b, ok := v.AsBool(); ok {
		return b, nil
	}
	return false, fmt.Errorf("expected a bool value, got %s", v.Kind())
}

func asString(v property.Value) (string, error) {
	if s, ok := v.AsString(); ok {
		return s, nil
	}
	if s, ok := v.AsAssetRef(); ok {
		return s, nil
	}
	return "", fmt.Errorf("expected a string value, got %s", v.Kind())
}

func registerSceneObject(r *property.Registry) error {
	b := property.NewType("SceneObject")

	b.Add(property.Meta{Name: "id", DisplayName: "ID", Category: "Object", Type: property.KindString, Flags: property.ReadOnly, Order: 0},
		func(o any) property.Value { return property.String(o.(*scene.Object).ID) },
		func(o any, v property.Value) error { return fmt.Errorf("id is read-only") },
	)
	b.Add(property.Meta{Name: "name", DisplayName: "Name", Category: "Object", Type: property.KindString, Flags: property.Required, Order: 1},
		func(o any) property.Value { return property.String(o.(*scene.Object).Name) },
		func(o any, v property.Value) error {
			s, err := asString(v)
			if err != nil {
				return err
			}
			o.(*scene.Object).Name = s
			return nil
		},
	)
	b.Add(property.Meta{Name: "x", DisplayName: "X", Category: "Transform", Type: property.KindDouble, Order: 10},
		func(o any) property.Value { return property.Double(o.(*scene.Object).X) },
		func(o any, v property.Value) error {
			f, err := asDouble(v)
			if err != nil {
				return err
			}
			o.(*scene.Object).X = f
			return nil
		},
	)
	b.Add(property.Meta{Name: "y", DisplayName: "Y", Category: "Transform", Type: property.KindDouble, Order: 11},
		func(o any) property.Value { return property.Double(o.(*scene.Object).Y) },
		func(o any, v property.Value) error {
			f, err := asDouble(v)
			if err != nil {
				return err
			}
			o.(*scene.Object).Y = f
			return nil
		},
	)
	b.Add(property.Meta{Name: "rotation", DisplayName: "Rotation", Category: "Transform", Type: property.KindDouble, Flags: property.Angle, Range: &property.Range{Min: -360, Max: 360, Step: 1}, Order: 12},
		func(o any) property.Value { return property.Double(o.(*scene.Object).Rotation) },
		func(o any, v property.Value) error {
			f, err := asDouble(v)
			if err != nil {
				return err
			}
			o.(*scene.Object).Rotation = f
			return nil
		},
	)
	b.Add(property.Meta{Name: "scaleX", DisplayName: "Scale X", Category: "Transform", Type: property.KindDouble, Order: 13},
		func(o any) property.Value { return property.Double(o.(*scene.Object).ScaleX) },
		func(o any, v property.Value) error {
			f, err := asDouble(v)
			if err != nil {
				return err
			}
			o.(*scene.Object).ScaleX = f
			return nil
		},
	)
	b.Add(property.Meta{Name: "scaleY", DisplayName: "Scale Y", Category: "Transform", Type: property.KindDouble, Order: 14},
		func(o any) property.Value { return property.Double(o.(*scene.Object).ScaleY) },
		func(o any, v property.Value) error {
			f, err := asDouble(v)
			if err != nil {
				return err
			}
			o.(*scene.Object).ScaleY = f
			return nil
		},
	)
	b.Add(property.Meta{Name: "alpha", DisplayName: "Alpha", Category: "Appearance", Type: property.KindDouble, Flags: property.Slider | property.Normalized, Range: &property.Range{Min: 0, Max: 1, Step: 0.01}, Order: 20},
		func(o any) property.Value { return property.Double(o.(*scene.Object).Alpha) },
		func(o any, v property.Value) error {
			f, err := asDouble(v)
			if err != nil {
				return err
			}
			o.(*scene.Object).Alpha = f
			return nil
		},
	)
	b.Add(property.Meta{Name: "visible", DisplayName: "Visible", Category: "Appearance", Type: property.KindBool, Order: 21},
		func(o any) property.Value { return property.Bool(o.(*scene.Object).Visible) },
		func(o any, v property.Value) error {
			bv, err := asBool(v)
			if err != nil {
				return err
			}
			o.(*scene.Object).Visible = bv
			return nil
		},
	)
	b.Add(property.Meta{Name: "locked", DisplayName: "Locked", Category: "Appearance", Type: property.KindBool, Order: 22},
		func(o any) property.Value { return property.Bool(o.(*scene.Object).Locked) },
		func(o any, v property.Value) error {
			bv, err := asBool(v)
			if err != nil {
				return err
			}
			o.(*scene.Object).Locked = bv
			return nil
		},
	)
	b.Add(property.Meta{Name: "zOrder", DisplayName: "Z Order", Category: "Appearance", Type: property.KindInt, Order: 23},
		func(o any) property.Value { return property.Int(int32(o.(*scene.Object).ZOrder)) },
		func(o any, v property.Value) error {
			f, err := asDouble(v)
			if err != nil {
				return err
			}
			o.(*scene.Object).ZOrder = int(f)
			return nil
		},
	)
	b.Add(property.Meta{Name: "textureId", DisplayName: "Texture", Category: "Appearance", Type: property.KindAssetRef, AssetFilter: "texture", Order: 24},
		func(o any) property.Value { return property.AssetRef(o.(*scene.Object).TextureID()) },
		func(o any, v property.Value) error {
			s, err := asString(v)
			if err != nil {
				return err
			}
			obj := o.(*scene.Object)
			if obj.Properties == nil {
				obj.Properties = make(map[string]string)
			}
			obj.Properties[scene.PropTextureID] = s
			return nil
		},
	)
	_, err := b.Build(r, reflect.TypeOf(&scene.Object{}))
	return err
}

func registerGraphNode(r *property.Registry) error {
	b := property.NewType("StoryNode")

	b.Add(property.Meta{Name: "id", DisplayName: "ID", Category: "Node", Type: property.KindString, Flags: property.ReadOnly, Order: 0},
		func(o any) property.Value { return property.String(o.(*graph.Node).ID) },
		func(o any, v property.Value) error { return fmt.Errorf("id is read-only") },
	)
	b.Add(property.Meta{Name: "title", DisplayName: "Title", Category: "Node", Type: property.KindString, Order: 1},
		func(o any) property.Value { return property.String(o.(*graph.Node).Title) },
		func(o any, v property.Value) error {
			s, err := asString(v)
			if err != nil {
				return err
			}
			o.(*graph.Node).Title = s
			return nil
		},
	)
	b.Add(property.Meta{Name: "scriptPath", DisplayName: "Script", Category: "Node", Type: property.KindAssetRef, AssetFilter: "script", Order: 2},
		func(o any) property.Value { return property.AssetRef(o.(*graph.Node).ScriptPath) },
		func(o any, v property.Value) error {
			s, err := asString(v)
			if err != nil {
				return err
			}
			o.(*graph.Node).ScriptPath = s
			return nil
		},
	)
	b.Add(property.Meta{Name: "speaker", DisplayName: "Speaker", Category: "Dialogue", Type: property.KindString, Order: 10},
		func(o any) property.Value { return property.String(o.(*graph.Node).Speaker) },
		func(o any, v property.Value) error {
			s, err := asString(v)
			if err != nil {
				return err
			}
			o.(*graph.Node).Speaker = s
			return nil
		},
	)
	b.Add(property.Meta{Name: "dialogueText", DisplayName: "Dialogue", Category: "Dialogue", Type: property.KindString, Flags: property.MultiLine, Order: 11},
		func(o any) property.Value { return property.String(o.(*graph.Node).Dialogue) },
		func(o any, v property.Value) error {
			s, err := asString(v)
			if err != nil {
				return err
			}
			o.(*graph.Node).Dialogue = s
			return nil
		},
	)
	b.Add(property.Meta{Name: "entry", DisplayName: "Entry Node", Category: "Node", Type: property.KindBool, Flags: property.ReadOnly, Order: 3},
		func(o any) property.Value { return property.Bool(o.(*graph.Node).Entry) },
		func(o any, v property.Value) error { return fmt.Errorf("entry is set through the graph") },
	)
	_, err := b.Build(r, reflect.TypeOf(&graph.Node{}))
	return err
}

func registerTimelineTrack(r *property.Registry) error {
	b := property.NewType("TimelineTrack")

	b.Add(property.Meta{Name: "id", DisplayName: "ID", Category: "Track", Type: property.KindString, Flags: property.ReadOnly, Order: 0},
		func(o any) property.Value { return property.String(o.(*timeline.Track).ID) },
		func(o any, v property.Value) error { return fmt.Errorf("id is read-only") },
	)
	b.Add(property.Meta{Name: "name", DisplayName: "Name", Category: "Track", Type: property.KindString, Flags: property.Required, Order: 1},
		func(o any) property.Value { return property.String(o.(*timeline.Track).Name) },
		func(o any, v property.Value) error {
			s, err := asString(v)
			if err != nil {
				return err
			}
			o.(*timeline.Track).Name = s
			return nil
		},
	)
	b.Add(property.Meta{Name: "enabled", DisplayName: "Enabled", Category: "Track", Type: property.KindBool, Order: 2},
		func(o any) property.Value { return property.Bool(o.(*timeline.Track).Enabled) },
		func(o any, v property.Value) error {
			bv, err := asBool(v)
			if err != nil {
				return err
			}
			o.(*timeline.Track).Enabled = bv
			return nil
		},
	)
	b.Add(property.Meta{Name: "solo", DisplayName: "Solo", Category: "Mix", Type: property.KindBool, Order: 10},
		func(o any) property.Value { return property.Bool(o.(*timeline.Track).Solo) },
		func(o any, v property.Value) error {
			bv, err := asBool(v)
			if err != nil {
				return err
			}
			o.(*timeline.Track).Solo = bv
			return nil
		},
	)
	b.Add(property.Meta{Name: "muted", DisplayName: "Muted", Category: "Mix", Type: property.KindBool, Order: 11},
		func(o any) property.Value { return property.Bool(o.(*timeline.Track).Muted) },
		func(o any, v property.Value) error {
			bv, err := asBool(v)
			if err != nil {
				return err
			}
			o.(*timeline.Track).Muted = bv
			return nil
		},
	)
	b.Add(property.Meta{Name: "volume", DisplayName: "Volume", Category: "Mix", Type: property.KindDouble, Flags: property.Slider | property.Normalized, Range: &property.Range{Min: 0, Max: 1, Step: 0.01}, Order: 12},
		func(o any) property.Value { return property.Double(o.(*timeline.Track).Volume) },
		func(o any, v property.Value) error {
			f, err := asDouble(v)
			if err != nil {
				return err
			}
			o.(*timeline.Track).Volume = f
			return nil
		},
	)
	_, err := b.Build(r, reflect.TypeOf(&timeline.Track{}))
	return err
}
