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
	"reflect"
	"sync"
)

// Accessor exposes a typed getter/setter pair under a Meta. Get and Set
// receive the target object; implementations assert the concrete type.
type Accessor struct {
	Meta Meta
	Get  func(obj any) Value
	Set  func(obj any, v Value) error
}

// TypeInfo describes all editable properties of one registered type, in
// display order.
type TypeInfo struct {
	TypeName  string
	Accessors []Accessor
	index     map[string]int
}

// Find returns the accessor for a property name.
func (t *TypeInfo) Find(name string) (*Accessor, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return &t.Accessors[i], true
}

// Names returns all property names in accessor order.
func (t *TypeInfo) Names() []string {
	out := make([]string, len(t.Accessors))
	for i := range t.Accessors {
		out[i] = t.Accessors[i].Meta.Name
	}
	return out
}

// Registry stores TypeInfo objects keyed by reflect.Type. One registry is
// shared process-wide via the editor context; registration runs once at
// startup.
type Registry struct {
	mu    sync.RWMutex
	types map[reflect.Type]*TypeInfo
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[reflect.Type]*TypeInfo)}
}

// Lookup returns the TypeInfo for a runtime type token.
func (r *Registry) Lookup(t reflect.Type) (*TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ti, ok := r.types[t]
	return ti, ok
}

// LookupOf resolves the type of obj and looks it up.
func (r *Registry) LookupOf(obj any) (*TypeInfo, bool) {
	if obj == nil {
		return nil, false
	}
	return r.Lookup(reflect.TypeOf(obj))
}

func (r *Registry) install(t reflect.Type, ti *TypeInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.types[t]; dup {
		return fmt.Errorf("type %s already registered", ti.TypeName)
	}
	r.types[t] = ti
	return nil
}

// Builder fluently assembles accessors for one type.
type Builder struct {
	info TypeInfo
}

// NewType starts a builder for the named type.
func NewType(name string) *Builder {
	return &Builder{info: TypeInfo{TypeName: name, index: make(map[string]int)}}
}

// Add appends an accessor. Duplicate names panic: registration is a
// startup-time programming error, not user input.
func (b *Builder) Add(meta Meta, get func(any) Value, set func(any, Value) error) *Builder {
	if _, dup := b.info.index[meta.Name]; dup {
		panic(fmt.Sprintf("property %s.%s registered twice", b.info.TypeName, meta.Name))
	}
	if meta.DisplayName == "" {
		meta.DisplayName = meta.Name
	}
	b.info.index[meta.Name] = len(b.info.Accessors)
	b.info.Accessors = append(b.info.Accessors, Accessor{Meta: meta, Get: get, Set: set})
	return b
}

// Build installs the assembled TypeInfo into the registry under the given
// runtime type token.
func (b *Builder) Build(r *Registry, t reflect.Type) (*TypeInfo, error) {
	ti := b.info
	if err := r.install(t, &ti); err != nil {
		return nil, err
	}
	return &ti, nil
}
