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

// Flags alter how the inspector presents and records a property.
type Flags uint32

const (
	ReadOnly Flags = 1 << iota
	Hidden
	Foldout
	Slider
	MultiLine
	Angle
	Percentage
	Normalized
	NoUndo
	Transient
	Required
)

// Has reports whether all given flags are set.
func (f Flags) Has(other Flags) bool { return f&other == other }

// Range constrains numeric properties.
type Range struct {
	Min, Max, Step float64
}

// Meta describes a single named property of a registered type.
type Meta struct {
	Name        string
	DisplayName string
	Category    string
	Tooltip     string
	Type        Kind
	Flags       Flags
	Default     Value
	Range       *Range
	EnumOptions []string
	AssetFilter string // resource type filter for AssetRef pickers, e.g. "texture"
	Order       int    // display order within the category
}
