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
	"strconv"
	"strings"
)

// ColumnType is the logical type of a table column.
type ColumnType string

const (
	ColumnTypeInt8    ColumnType = "Int8"
	ColumnTypeInt16   ColumnType = "Int16"
	ColumnTypeInt32   ColumnType = "Int32"
	ColumnTypeInt64   ColumnType = "Int64"
	ColumnTypeUInt8   ColumnType = "UInt8"
	ColumnTypeUInt16  ColumnType = "UInt16"
	ColumnTypeUInt32  ColumnType = "UInt32"
	ColumnTypeUInt64  ColumnType = "UInt64"
	ColumnTypeFloat32 ColumnType = "Float32"
	ColumnTypeFloat64 ColumnType = "Float64"
	ColumnTypeBool    ColumnType = "Bool"
	ColumnTypeString  ColumnType = "String"
	// ColumnTypeFixedString is a fixed-size binary column. Column.Size carries
	// the declared length.
	ColumnTypeFixedString ColumnType = "FixedString"
	// ColumnTypeDate is stored as days since the Unix epoch, 16 bits.
	ColumnTypeDate ColumnType = "Date"
	// ColumnTypeDate32 is stored as days since the Unix epoch, 32 bits signed.
	ColumnTypeDate32 ColumnType = "Date32"
	// ColumnTypeDateTime is stored as seconds since the Unix epoch, 32 bits.
	ColumnTypeDateTime ColumnType = "DateTime"
	// ColumnTypeDateTime64 is stored as ticks since the Unix epoch, 64 bits
	// signed. Column.Precision carries the decimal digits of sub-second
	// resolution.
	ColumnTypeDateTime64 ColumnType = "DateTime64"
	ColumnTypeUUID       ColumnType = "UUID"
	// ColumnTypeDecimal32/64/128 are stored as scaled integers of the
	// corresponding width. Column.Precision and Column.Scale carry the
	// declared precision and scale.
	ColumnTypeDecimal32  ColumnType = "Decimal32"
	ColumnTypeDecimal64  ColumnType = "Decimal64"
	ColumnTypeDecimal128 ColumnType = "Decimal128"
)

// Column describes a single table column.
type Column struct {
	// Name is the column name.
	Name string
	// Type is the column logical type.
	Type ColumnType
	// Nullable reports whether the column accepts NULL values.
	Nullable bool
	// Precision is the declared precision for Decimal and DateTime64 columns.
	Precision int
	// Scale is the declared scale for Decimal columns.
	Scale int
	// Size is the declared length for FixedString columns.
	Size int
}

// TableSchema describes the columns of a table, in server declaration order.
type TableSchema struct {
	Database string
	Table    string
	Columns  []*Column
}

// Column returns the column with the given name, or nil if absent.
// Matching is case-insensitive.
func (s *TableSchema) Column(name string) *Column {
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// ParseColumn parses a column declaration as returned by DESCRIBE TABLE,
// e.g. ("y", "Nullable(Int32)") or ("d", "Decimal(9, 2)").
func ParseColumn(name, typ string) (*Column, error) {
	col := &Column{Name: name}
	if err := parseColumnType(col, strings.TrimSpace(typ)); err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}
	return col, nil
}

func parseColumnType(col *Column, typ string) error {
	if inner, ok := typeArgs(typ, "Nullable"); ok {
		col.Nullable = true
		return parseColumnType(col, inner)
	}

	switch ColumnType(typ) {
	case ColumnTypeInt8, ColumnTypeInt16, ColumnTypeInt32, ColumnTypeInt64,
		ColumnTypeUInt8, ColumnTypeUInt16, ColumnTypeUInt32, ColumnTypeUInt64,
		ColumnTypeFloat32, ColumnTypeFloat64,
		ColumnTypeBool, ColumnTypeString,
		ColumnTypeDate, ColumnTypeDate32, ColumnTypeDateTime, ColumnTypeUUID:
		col.Type = ColumnType(typ)
		return nil
	}

	if inner, ok := typeArgs(typ, "FixedString"); ok {
		size, err := strconv.Atoi(strings.TrimSpace(inner))
		if err != nil || size <= 0 {
			return fmt.Errorf("invalid FixedString size %q", inner)
		}
		col.Type = ColumnTypeFixedString
		col.Size = size
		return nil
	}

	if inner, ok := typeArgs(typ, "DateTime64"); ok {
		precision, err := strconv.Atoi(strings.TrimSpace(inner))
		if err != nil || precision < 0 || precision > 9 {
			return fmt.Errorf("invalid DateTime64 precision %q", inner)
		}
		col.Type = ColumnTypeDateTime64
		col.Precision = precision
		return nil
	}

	if inner, ok := typeArgs(typ, "Decimal"); ok {
		parts := strings.SplitN(inner, ",", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid Decimal arguments %q", inner)
		}
		precision, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return fmt.Errorf("invalid Decimal precision %q", parts[0])
		}
		scale, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return fmt.Errorf("invalid Decimal scale %q", parts[1])
		}
		if scale < 0 || scale > precision {
			return fmt.Errorf("decimal scale %d out of range for precision %d", scale, precision)
		}
		switch {
		case precision <= 9:
			col.Type = ColumnTypeDecimal32
		case precision <= 18:
			col.Type = ColumnTypeDecimal64
		case precision <= 38:
			col.Type = ColumnTypeDecimal128
		default:
			return fmt.Errorf("decimal precision %d out of range", precision)
		}
		col.Precision = precision
		col.Scale = scale
		return nil
	}

	return fmt.Errorf("unrecognized column type %q", typ)
}

// typeArgs returns the argument list of a parameterized type name, e.g.
// typeArgs("Nullable(Int32)", "Nullable") yields ("Int32", true).
func typeArgs(typ, outer string) (string, bool) {
	if !strings.HasPrefix(typ, outer+"(") || !strings.HasSuffix(typ, ")") {
		return "", false
	}
	return typ[len(outer)+1 : len(typ)-1], true
}
