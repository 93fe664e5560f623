/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package inspector binds one or more selected objects to the property
// system's generic edit surface, validating writes, recording undo and
// broadcasting changes.
package inspector

import (
	"novelmind/internal/property"
	"novelmind/internal/selection"
)

// Target is one inspected object. The reference is non-owning: the
// target must outlive the selection, and the binding drops it when the
// owning panel reports its disappearance.
type Target struct {
	Type   selection.Type
	ID     string
	Object any
}

// ChangeContext travels through the write pipeline: validators, then
// before-change handlers, then the apply, then after-change handlers.
type ChangeContext struct {
	Target   Target
	Property string
	Old      property.Value
	New      property.Value
}

// Validator inspects a pending write; a non-nil error aborts it and is
// surfaced inline, not through the diagnostics stream.
type Validator func(ChangeContext) error

// BeforeChange may veto a write by returning false.
type BeforeChange func(ChangeContext) bool

// AfterChange observes a completed write.
type AfterChange func(ChangeContext)
