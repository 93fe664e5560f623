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
	"novelmind/internal/property"
	"novelmind/internal/undo"
)

// CategoryProperty tags inspector writes on the undo stack.
const CategoryProperty = "property"

// propertyChangeCommand applies one property write reversibly.
// Successive writes to the same property of the same target merge, so a
// slider drag is one undo step back to the drag origin.
type propertyChangeCommand struct {
	accessor *property.Accessor
	target   Target
	property string
	display  string
	old      property.Value
	value    property.Value
}

func (c *propertyChangeCommand) Execute() error {
	return c.accessor.Set(c.target.Object, c.value)
}

func (c *propertyChangeCommand) Undo() error {
	return c.accessor.Set(c.target.Object, c.old)
}

func (c *propertyChangeCommand) Description() string { return "Set " + c.display }
func (c *propertyChangeCommand) Category() string    { return CategoryProperty }

func (c *propertyChangeCommand) CanMergeWith(next undo.Command) bool {
	n, ok := next.(*propertyChangeCommand)
	return ok && n.target.ID == c.target.ID && n.property == c.property
}

func (c *propertyChangeCommand) MergeWith(next undo.Command) {
	// Keep the original old value; adopt the newest value.
	c.value = next.(*propertyChangeCommand).value
}
