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
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fieldSerializer writes one field of one row: the accessor result is
// either NULL (null marker alone) or, for a Nullable column, the non-null
// marker followed by the value bytes. Non-nullable columns carry no marker.
type fieldSerializer struct {
	col *Column
	get func(row any) (any, error)
}

func (s *fieldSerializer) serialize(row any, w io.Writer) error {
	v, err := s.get(row)
	if err != nil {
		return &SerializationError{Column: s.col.Name, Value: row, Err: err}
	}

	v, null := unwrapValue(v)
	if null {
		return writeNull(w)
	}
	if s.col.Nullable {
		if err := writeNonNull(w); err != nil {
			return err
		}
	}

	enc, err := encoderFor(v, s.col)
	if err != nil {
		return &SerializationError{Column: s.col.Name, Value: v, Err: err}
	}
	return enc(w)
}

// unwrapValue dereferences pointer values of the supported kinds so that a
// nil pointer reads as NULL and a non-nil pointer reads as its pointee.
func unwrapValue(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case *int8:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *int16:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *int32:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *int64:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *int:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *uint8:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *uint16:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *uint32:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *uint64:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *uint:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *float32:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *float64:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *bool:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *string:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *time.Time:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *uuid.UUID:
		if x == nil {
			return nil, true
		}
		return *x, false
	case *decimal.Decimal:
		if x == nil {
			return nil, true
		}
		return *x, false
	default:
		return v, false
	}
}

// encoderFor resolves the binary encoder for a value against the column's
// logical type. A mismatch between the value's runtime type and the column
// type is reported here, before any bytes are written.
func encoderFor(v any, col *Column) (func(io.Writer) error, error) {
	switch col.Type {
	case ColumnTypeInt8:
		if x, ok := v.(int8); ok {
			return func(w io.Writer) error { return writeUint8(w, uint8(x)) }, nil
		}
	case ColumnTypeInt16:
		if x, ok := v.(int16); ok {
			return func(w io.Writer) error { return writeUint16(w, uint16(x)) }, nil
		}
	case ColumnTypeInt32:
		if x, ok := v.(int32); ok {
			return func(w io.Writer) error { return writeUint32(w, uint32(x)) }, nil
		}
	case ColumnTypeInt64:
		switch x := v.(type) {
		case int64:
			return func(w io.Writer) error { return writeUint64(w, uint64(x)) }, nil
		case int:
			return func(w io.Writer) error { return writeUint64(w, uint64(x)) }, nil
		}
	case ColumnTypeUInt8:
		if x, ok := v.(uint8); ok {
			return func(w io.Writer) error { return writeUint8(w, x) }, nil
		}
	case ColumnTypeUInt16:
		if x, ok := v.(uint16); ok {
			return func(w io.Writer) error { return writeUint16(w, x) }, nil
		}
	case ColumnTypeUInt32:
		if x, ok := v.(uint32); ok {
			return func(w io.Writer) error { return writeUint32(w, x) }, nil
		}
	case ColumnTypeUInt64:
		switch x := v.(type) {
		case uint64:
			return func(w io.Writer) error { return writeUint64(w, x) }, nil
		case uint:
			return func(w io.Writer) error { return writeUint64(w, uint64(x)) }, nil
		}
	case ColumnTypeFloat32:
		if x, ok := v.(float32); ok {
			return func(w io.Writer) error { return writeFloat32(w, x) }, nil
		}
	case ColumnTypeFloat64:
		if x, ok := v.(float64); ok {
			return func(w io.Writer) error { return writeFloat64(w, x) }, nil
		}
	case ColumnTypeBool:
		if x, ok := v.(bool); ok {
			return func(w io.Writer) error { return writeBool(w, x) }, nil
		}
	case ColumnTypeString:
		switch x := v.(type) {
		case string:
			return func(w io.Writer) error { return writeString(w, []byte(x)) }, nil
		case []byte:
			return func(w io.Writer) error { return writeString(w, x) }, nil
		}
	case ColumnTypeFixedString:
		raw, ok := v.([]byte)
		if !ok {
			if s, sok := v.(string); sok {
				raw, ok = []byte(s), true
			}
		}
		if ok {
			if len(raw) > col.Size {
				return nil, fmt.Errorf("value of %d bytes exceeds FixedString(%d)", len(raw), col.Size)
			}
			return func(w io.Writer) error { return writeFixedString(w, raw, col.Size) }, nil
		}
	case ColumnTypeDate:
		if x, ok := v.(time.Time); ok {
			days, err := dateValue(x)
			if err != nil {
				return nil, err
			}
			return func(w io.Writer) error { return writeUint16(w, days) }, nil
		}
	case ColumnTypeDate32:
		if x, ok := v.(time.Time); ok {
			return func(w io.Writer) error { return writeUint32(w, date32Value(x)) }, nil
		}
	case ColumnTypeDateTime:
		if x, ok := v.(time.Time); ok {
			sec, err := dateTimeValue(x)
			if err != nil {
				return nil, err
			}
			return func(w io.Writer) error { return writeUint32(w, sec) }, nil
		}
	case ColumnTypeDateTime64:
		if x, ok := v.(time.Time); ok {
			ticks := dateTime64Value(x, col.Precision)
			return func(w io.Writer) error { return writeUint64(w, ticks) }, nil
		}
	case ColumnTypeUUID:
		switch x := v.(type) {
		case uuid.UUID:
			return func(w io.Writer) error { return writeUUID(w, x) }, nil
		case string:
			id, err := uuid.Parse(x)
			if err != nil {
				return nil, err
			}
			return func(w io.Writer) error { return writeUUID(w, id) }, nil
		}
	case ColumnTypeDecimal32:
		if x, ok := v.(decimal.Decimal); ok {
			n, err := decimal32Value(x, col.Scale)
			if err != nil {
				return nil, err
			}
			return func(w io.Writer) error { return writeUint32(w, n) }, nil
		}
	case ColumnTypeDecimal64:
		if x, ok := v.(decimal.Decimal); ok {
			n, err := decimal64Value(x, col.Scale)
			if err != nil {
				return nil, err
			}
			return func(w io.Writer) error { return writeUint64(w, n) }, nil
		}
	case ColumnTypeDecimal128:
		if x, ok := v.(decimal.Decimal); ok {
			buf, err := decimal128Bytes(x, col.Scale)
			if err != nil {
				return nil, err
			}
			return func(w io.Writer) error {
				_, err := w.Write(buf[:])
				return err
			}, nil
		}
	default:
		return nil, fmt.Errorf("unsupported column type %s", col.Type)
	}
	return nil, fmt.Errorf("value of type %T is incompatible with column type %s", v, col.Type)
}
