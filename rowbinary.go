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
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RowBinary markers for Nullable columns. A NULL cell is the null marker
// alone; a non-NULL cell in a Nullable column is the non-null marker
// followed by the value bytes.
const (
	markerNonNull = 0x00
	markerNull    = 0x01
)

const secondsPerDay = 24 * 3600

func writeNull(w io.Writer) error {
	_, err := w.Write([]byte{markerNull})
	return err
}

func writeNonNull(w io.Writer) error {
	_, err := w.Write([]byte{markerNonNull})
	return err
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func writeUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeFloat32(w io.Writer, v float32) error {
	return writeUint32(w, math.Float32bits(v))
}

func writeFloat64(w io.Writer, v float64) error {
	return writeUint64(w, math.Float64bits(v))
}

func writeBool(w io.Writer, v bool) error {
	if v {
		return writeUint8(w, 1)
	}
	return writeUint8(w, 0)
}

// writeString writes a uvarint length prefix followed by the raw bytes.
func writeString(w io.Writer, v []byte) error {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], uint64(len(v)))
	if _, err := w.Write(scratch[:n]); err != nil {
		return err
	}
	_, err := w.Write(v)
	return err
}

// writeFixedString pads short values with zero bytes up to size. Oversized
// values are rejected during encoder dispatch, before any bytes are written.
func writeFixedString(w io.Writer, v []byte, size int) error {
	if len(v) < size {
		padded := make([]byte, size)
		copy(padded, v)
		v = padded
	}
	_, err := w.Write(v)
	return err
}

func dateValue(v time.Time) (uint16, error) {
	days := v.Unix() / secondsPerDay
	if days < 0 || days > math.MaxUint16 {
		return 0, fmt.Errorf("date %s out of range", v.Format(time.DateOnly))
	}
	return uint16(days), nil
}

func date32Value(v time.Time) uint32 {
	return uint32(int32(v.Unix() / secondsPerDay))
}

func dateTimeValue(v time.Time) (uint32, error) {
	sec := v.Unix()
	if sec < 0 || sec > math.MaxUint32 {
		return 0, fmt.Errorf("datetime %s out of range", v.Format(time.RFC3339))
	}
	return uint32(sec), nil
}

// dateTime64Value returns ticks since the epoch at 10^-precision second
// resolution.
func dateTime64Value(v time.Time, precision int) uint64 {
	pow := int64(1)
	for i := 0; i < precision; i++ {
		pow *= 10
	}
	ticks := v.Unix()*pow + int64(v.Nanosecond())/(int64(time.Second)/pow)
	return uint64(ticks)
}

// writeUUID writes the two 8-byte halves byte-swapped, per the server's
// RowBinary layout.
func writeUUID(w io.Writer, v uuid.UUID) error {
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = v[7-i]
		buf[8+i] = v[15-i]
	}
	_, err := w.Write(buf[:])
	return err
}

// scaledInt rescales d to the column scale and returns the underlying
// integer. Values with more fractional digits than the scale are rejected
// rather than silently rounded.
func scaledInt(d decimal.Decimal, scale int) (*big.Int, error) {
	scaled := d.Shift(int32(scale))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("decimal %s does not fit scale %d", d, scale)
	}
	return scaled.BigInt(), nil
}

func decimal32Value(d decimal.Decimal, scale int) (uint32, error) {
	n, err := scaledInt(d, scale)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() || n.Int64() > math.MaxInt32 || n.Int64() < math.MinInt32 {
		return 0, fmt.Errorf("decimal %s overflows Decimal32", d)
	}
	return uint32(int32(n.Int64())), nil
}

func decimal64Value(d decimal.Decimal, scale int) (uint64, error) {
	n, err := scaledInt(d, scale)
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() {
		return 0, fmt.Errorf("decimal %s overflows Decimal64", d)
	}
	return uint64(n.Int64()), nil
}

// decimal128Bytes returns the 128-bit two's complement little-endian layout.
func decimal128Bytes(d decimal.Decimal, scale int) ([16]byte, error) {
	var buf [16]byte
	n, err := scaledInt(d, scale)
	if err != nil {
		return buf, err
	}
	neg := n.Sign() < 0
	abs := new(big.Int).Abs(n)
	if neg {
		// two's complement: -x == ^(x-1)
		abs.Sub(abs, big.NewInt(1))
	}
	if abs.BitLen() > 127 {
		return buf, fmt.Errorf("decimal %s overflows Decimal128", d)
	}

	abs.FillBytes(buf[:])
	// big-endian to little-endian
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	if neg {
		for i := range buf {
			buf[i] = ^buf[i]
		}
	}
	return buf, nil
}
