/*
 * Copyright 2024 CrestDB, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package crestdb

import (
	"fmt"
	"strings"
	"sync"
)

// FieldBinding names one field of a row type and the accessor that extracts
// its value. Use Field to build one with a typed accessor.
type FieldBinding struct {
	// Name is the field name matched (case-insensitively) against column names.
	Name string
	// Get extracts the field value from a row. Returning nil, or a nil
	// pointer of a supported type, encodes NULL.
	Get func(row any) (any, error)
}

// Field builds a FieldBinding from a typed accessor. Rows of a different
// runtime type fail at serialization time, not at registration time.
func Field[T any](name string, get func(row T) any) FieldBinding {
	return FieldBinding{
		Name: name,
		Get: func(row any) (any, error) {
			typed, ok := row.(T)
			if !ok {
				var want T
				return nil, fmt.Errorf("row is %T, want %T", row, want)
			}
			return get(typed), nil
		},
	}
}

// typeBinding is the ordered column -> serializer mapping for one registered
// row type. The order is the schema's column order, fixed at registration.
type typeBinding struct {
	serializers []*fieldSerializer
}

// typeRegistry maps a row-type identifier to its binding. Resolves are
// concurrent; registration takes the write lock and swaps the whole binding,
// so a concurrent resolve sees either the old or the new binding in full.
type typeRegistry struct {
	mu       sync.RWMutex
	bindings map[string]*typeBinding
}

func newTypeRegistry() *typeRegistry {
	return &typeRegistry{
		bindings: make(map[string]*typeBinding),
	}
}

func (r *typeRegistry) register(typeID string, binding *typeBinding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[typeID] = binding
}

func (r *typeRegistry) resolve(typeID string) (*typeBinding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	binding, ok := r.bindings[typeID]
	return binding, ok
}

// typeNameOf is the registry key for a row value's type.
func typeNameOf(row any) string {
	return fmt.Sprintf("%T", row)
}

// Register binds a row type to a table schema. sample is any value of the
// row type; fields declare the accessors. For each schema column, the field
// with the matching name (case-insensitive) becomes its serializer; fields
// with no matching column are ignored, so over-wide row types are fine.
// Registering the same type again replaces the previous binding.
func (c *Client) Register(sample any, schema *TableSchema, fields ...FieldBinding) error {
	if sample == nil {
		return &UsageError{Message: "sample value cannot be nil"}
	}
	if schema == nil {
		return &UsageError{Message: "schema cannot be nil"}
	}

	binding := &typeBinding{}
	for _, col := range schema.Columns {
		for _, f := range fields {
			if strings.EqualFold(f.Name, col.Name) {
				binding.serializers = append(binding.serializers, &fieldSerializer{
					col: col,
					get: f.Get,
				})
				break
			}
		}
	}

	c.registry.register(typeNameOf(sample), binding)
	return nil
}
