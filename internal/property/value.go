/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package property implements the runtime type system that maps typed object
// fields onto the generic inspector surface: a tagged value variant,
// per-property metadata, and a process-wide registry of type descriptors.
package property

// Kind discriminates the value variant and doubles as the property type.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindInt64
	KindFloat
	KindDouble
	KindString
	KindVector2
	KindVector3
	KindColor
	KindEnum
	KindAssetRef
	KindCurveRef
	// KindMultiple is the sentinel used by multi-target editing to mean
	// "targets disagree on this property". It never appears on objects.
	KindMultiple
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindInt64:
		return "int64"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindVector2:
		return "vector2"
	case KindVector3:
		return "vector3"
	case KindColor:
		return "color"
	case KindEnum:
		return "enum"
	case KindAssetRef:
		return "assetRef"
	case KindCurveRef:
		return "curveRef"
	case KindMultiple:
		return "multiple"
	}
	return "null"
}

// Vector2 is a 2D point or size.
type Vector2 struct {
	X, Y float64
}

// Vector3 is a 3D point.
type Vector3 struct {
	X, Y, Z float64
}

// Color is an 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

// Value is the sum type carried between objects and the inspector. The
// zero Value is null. Values are immutable and comparable via Equal.
type Value struct {
	kind Kind
	data any // nil, bool, int32, int64, float32, float64, string, Vector2, Vector3, Color
}

// Constructors.

func Null() Value             { return Value{} }
func Bool(b bool) Value       { return Value{kind: KindBool, data: b} }
func Int(i int32) Value       { return Value{kind: KindInt, data: i} }
func Int64(i int64) Value     { return Value{kind: KindInt64, data: i} }
func Float(f float32) Value   { return Value{kind: KindFloat, data: f} }
func Double(f float64) Value  { return Value{kind: KindDouble, data: f} }
func String(s string) Value   { return Value{kind: KindString, data: s} }
func Vec2(v Vector2) Value    { return Value{kind: KindVector2, data: v} }
func Vec3(v Vector3) Value    { return Value{kind: KindVector3, data: v} }
func Col(c Color) Value       { return Value{kind: KindColor, data: c} }
func Enum(i int32) Value      { return Value{kind: KindEnum, data: i} }
func AssetRef(id string) Value { return Value{kind: KindAssetRef, data: id} }
func CurveRef(id string) Value { return Value{kind: KindCurveRef, data: id} }

// Multiple returns the multi-target disagreement sentinel.
func Multiple() Value { return Value{kind: KindMultiple} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool     { return v.kind == KindNull }
func (v Value) IsMultiple() bool { return v.kind == KindMultiple }

// Equal compares kind and payload. All payload types are comparable.
func (v Value) Equal(o Value) bool { return v.kind == o.kind && v.data == o.data }

// Typed accessors; the second return is false on a kind mismatch.

func (v Value) AsBool() (bool, bool) {
	b, ok := v.data.(bool)
	return b, ok
}

func (v Value) AsInt() (int32, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.data.(int32), true
}

func (v Value) AsInt64() (int64, bool) {
	i, ok := v.data.(int64)
	return i, ok
}

func (v Value) AsFloat() (float32, bool) {
	f, ok := v.data.(float32)
	return f, ok
}

func (v Value) AsDouble() (float64, bool) {
	f, ok := v.data.(float64)
	return f, ok
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.data.(string), true
}

func (v Value) AsVec2() (Vector2, bool) {
	p, ok := v.data.(Vector2)
	return p, ok
}

func (v Value) AsVec3() (Vector3, bool) {
	p, ok := v.data.(Vector3)
	return p, ok
}

func (v Value) AsColor() (Color, bool) {
	c, ok := v.data.(Color)
	return c, ok
}

func (v Value) AsEnum() (int32, bool) {
	if v.kind != KindEnum {
		return 0, false
	}
	return v.data.(int32), true
}

func (v Value) AsAssetRef() (string, bool) {
	if v.kind != KindAssetRef {
		return "", false
	}
	return v.data.(string), true
}

func (v Value) AsCurveRef() (string, bool) {
	if v.kind != KindCurveRef {
		return "", false
	}
	return v.data.(string), true
}

// Numeric returns any numeric payload widened to float64.
func (v Value) Numeric() (float64, bool) {
	switch d := v.data.(type) {
	case int32:
		return float64(d), true
	case int64:
		return float64(d), true
	case float32:
		return float64(d), true
	case float64:
		return float64(d), true
	}
	return 0, false
}

// IsNumeric reports whether the value carries a numeric payload.
func (v Value) IsNumeric() bool {
	_, ok := v.Numeric()
	return ok
}
