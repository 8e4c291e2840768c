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

import "io"

// rowEncoder streams rows through a binding's serializers in column order.
// It is a pure write-through pass: no row is buffered beyond whatever the
// sink buffers, and the first failure aborts the remaining rows. Bytes
// already written stay written.
type rowEncoder struct {
	binding *typeBinding
}

func (e *rowEncoder) encode(rows []any, w io.Writer) error {
	for _, row := range rows {
		for _, s := range e.binding.serializers {
			if err := s.serialize(row, w); err != nil {
				return err
			}
		}
	}
	return nil
}
