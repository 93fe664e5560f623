/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package property

import (
	"fmt"
	"strconv"
	"strings"
)

// MultipleValuesText is the canonical rendering of the disagreement sentinel.
const MultipleValuesText = "<multiple values>"

// ToString renders a value in its canonical textual form, the inverse of
// FromString.
func ToString(v Value) string {
	switch v.Kind() {
	case KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b)
	case KindInt:
		i, _ := v.AsInt()
		return strconv.FormatInt(int64(i), 10)
	case KindInt64:
		i, _ := v.AsInt64()
		return strconv.FormatInt(i, 10)
	case KindFloat:
		f, _ := v.AsFloat()
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	case KindDouble:
		f, _ := v.AsDouble()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case KindString:
		s, _ := v.AsString()
		return s
	case KindVector2:
		p, _ := v.AsVec2()
		return fmt.Sprintf("%s,%s", formatF64(p.X), formatF64(p.Y))
	case KindVector3:
		p, _ := v.AsVec3()
		return fmt.Sprintf("%s,%s,%s", formatF64(p.X), formatF64(p.Y), formatF64(p.Z))
	case KindColor:
		c, _ := v.AsColor()
		return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
	case KindEnum:
		i, _ := v.AsEnum()
		return strconv.FormatInt(int64(i), 10)
	case KindAssetRef:
		s, _ := v.AsAssetRef()
		return s
	case KindCurveRef:
		s, _ := v.AsCurveRef()
		return s
	case KindMultiple:
		return MultipleValuesText
	}
	return ""
}

func formatF64(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// FromString parses the canonical textual form back into a value of the
// given kind. Malformed input fails softly to def.
func FromString(kind Kind, s string, def Value) Value {
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return Bool(b)
	case KindInt:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return def
		}
		return Int(int32(i))
	case KindInt64:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return def
		}
		return Int64(i)
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
		if err != nil {
			return def
		}
		return Float(float32(f))
	case KindDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return def
		}
		return Double(f)
	case KindString:
		return String(s)
	case KindVector2:
		parts := strings.Split(s, ",")
		if len(parts) != 2 {
			return def
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errX != nil || errY != nil {
			return def
		}
		return Vec2(Vector2{X: x, Y: y})
	case KindVector3:
		parts := strings.Split(s, ",")
		if len(parts) != 3 {
			return def
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		z, errZ := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if errX != nil || errY != nil || errZ != nil {
			return def
		}
		return Vec3(Vector3{X: x, Y: y, Z: z})
	case KindColor:
		c, ok := parseColor(strings.TrimSpace(s))
		if !ok {
			return def
		}
		return Col(c)
	case KindEnum:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return def
		}
		return Enum(int32(i))
	case KindAssetRef:
		return AssetRef(s)
	case KindCurveRef:
		return CurveRef(s)
	}
	return def
}

func parseColor(s string) (Color, bool) {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 6 {
		s += "FF"
	}
	if len(s) != 8 {
		return Color{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, false
	}
	return Color{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, true
}

// ClampToRange clamps numeric values into r, preserving the value kind.
// Non-numeric values and a nil range pass through unchanged.
func ClampToRange(v Value, r *Range) Value {
	if r == nil {
		return v
	}
	f, ok := v.Numeric()
	if !ok {
		return v
	}
	clamped := f
	if clamped < r.Min {
		clamped = r.Min
	}
	if clamped > r.Max {
		clamped = r.Max
	}
	if clamped == f {
		return v
	}
	switch v.Kind() {
	case KindInt:
		return Int(int32(clamped))
	case KindInt64:
		return Int64(int64(clamped))
	case KindFloat:
		return Float(float32(clamped))
	case KindDouble:
		return Double(clamped)
	case KindEnum:
		return Enum(int32(clamped))
	}
	return v
}

// Validate checks a candidate value against the property's metadata:
// required properties reject null, and numeric ranges reject out-of-range
// values. A non-nil error carries a user-facing message.
func Validate(v Value, meta Meta) error {
	if meta.Flags.Has(Required) && (v.IsNull() || isEmptyRef(v)) {
		return fmt.Errorf("%s is required", meta.DisplayName)
	}
	if v.IsNull() || v.IsMultiple() {
		return nil
	}
	if meta.Range != nil {
		if f, ok := v.Numeric(); ok {
			if f < meta.Range.Min || f > meta.Range.Max {
				return fmt.Errorf("%s must be between %s and %s",
					meta.DisplayName, formatF64(meta.Range.Min), formatF64(meta.Range.Max))
			}
		}
	}
	if meta.Type == KindEnum && len(meta.EnumOptions) > 0 {
		if i, ok := v.AsEnum(); ok {
			if int(i) < 0 || int(i) >= len(meta.EnumOptions) {
				return fmt.Errorf("%s has no option %d", meta.DisplayName, i)
			}
		}
	}
	return nil
}

func isEmptyRef(v Value) bool {
	switch v.Kind() {
	case KindString:
		s, _ := v.AsString()
		return s == ""
	case KindAssetRef:
		s, _ := v.AsAssetRef()
		return s == ""
	case KindCurveRef:
		s, _ := v.AsCurveRef()
		return s == ""
	}
	return false
}
