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
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type point struct {
	X int32
	Y *int32
}

func pointSchema() *TableSchema {
	return &TableSchema{
		Table: "points",
		Columns: []*Column{
			{Name: "x", Type: ColumnTypeInt32},
			{Name: "y", Type: ColumnTypeInt32, Nullable: true},
		},
	}
}

func pointFields() []FieldBinding {
	return []FieldBinding{
		Field("x", func(p point) any { return p.X }),
		Field("y", func(p point) any { return p.Y }),
	}
}

func TestRegisterBindsColumnsInSchemaOrder(t *testing.T) {
	c := newTestClient(&stubTransport{})

	// Declare fields in the opposite order of the schema; the binding must
	// follow the schema order.
	err := c.Register(point{}, pointSchema(),
		Field("y", func(p point) any { return p.Y }),
		Field("x", func(p point) any { return p.X }),
	)
	require.NoError(t, err)

	binding, ok := c.registry.resolve(typeNameOf(point{}))
	require.True(t, ok)
	require.Len(t, binding.serializers, 2)
	require.Equal(t, "x", binding.serializers[0].col.Name)
	require.Equal(t, "y", binding.serializers[1].col.Name)
}

func TestRegisterIgnoresUnmatchedFields(t *testing.T) {
	c := newTestClient(&stubTransport{})

	fields := append(pointFields(),
		Field("z", func(p point) any { return int32(0) }))
	require.NoError(t, c.Register(point{}, pointSchema(), fields...))

	binding, ok := c.registry.resolve(typeNameOf(point{}))
	require.True(t, ok)
	require.Len(t, binding.serializers, 2)
}

func TestRegisterSkipsColumnsWithoutAccessor(t *testing.T) {
	c := newTestClient(&stubTransport{})

	err := c.Register(point{}, pointSchema(),
		Field("x", func(p point) any { return p.X }))
	require.NoError(t, err)

	binding, ok := c.registry.resolve(typeNameOf(point{}))
	require.True(t, ok)
	require.Len(t, binding.serializers, 1)
	require.Equal(t, "x", binding.serializers[0].col.Name)
}

func TestRegisterMatchesCaseInsensitively(t *testing.T) {
	c := newTestClient(&stubTransport{})

	err := c.Register(point{}, pointSchema(),
		Field("X", func(p point) any { return p.X }),
		Field("Y", func(p point) any { return p.Y }),
	)
	require.NoError(t, err)

	binding, ok := c.registry.resolve(typeNameOf(point{}))
	require.True(t, ok)
	require.Len(t, binding.serializers, 2)
}

func TestRegisterTwiceReplacesBinding(t *testing.T) {
	c := newTestClient(&stubTransport{})

	require.NoError(t, c.Register(point{}, pointSchema(), pointFields()...))
	first, ok := c.registry.resolve(typeNameOf(point{}))
	require.True(t, ok)

	require.NoError(t, c.Register(point{}, pointSchema(), pointFields()...))
	second, ok := c.registry.resolve(typeNameOf(point{}))
	require.True(t, ok)

	require.NotSame(t, first, second)
	require.Len(t, second.serializers, len(first.serializers))
	for i := range second.serializers {
		require.Equal(t, first.serializers[i].col.Name, second.serializers[i].col.Name)
	}
}

func TestResolveUnknownType(t *testing.T) {
	c := newTestClient(&stubTransport{})

	_, ok := c.registry.resolve(typeNameOf("a string"))
	require.False(t, ok)
}

func TestRegisterNilArguments(t *testing.T) {
	c := newTestClient(&stubTransport{})

	err := c.Register(nil, pointSchema())
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)

	err = c.Register(point{}, nil)
	require.ErrorAs(t, err, &usageErr)
}

func TestConcurrentResolveAndRegister(t *testing.T) {
	c := newTestClient(&stubTransport{})
	require.NoError(t, c.Register(point{}, pointSchema(), pointFields()...))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				binding, ok := c.registry.resolve(typeNameOf(point{}))
				require.True(t, ok)
				require.Len(t, binding.serializers, 2)
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				require.NoError(t, c.Register(point{}, pointSchema(), pointFields()...))
			}
		}()
	}
	wg.Wait()
}
