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
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

func TestInsertEmptyRowsFailsWithoutTransport(t *testing.T) {
	stub := &stubTransport{}
	c := newTestClient(stub)

	_, err := c.Insert(context.Background(), "points", nil, nil)
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)

	_, err = c.Insert(context.Background(), "points", []any{}, nil)
	require.ErrorAs(t, err, &usageErr)

	require.Equal(t, 0, stub.insertCount())
}

func TestInsertUnregisteredTypeFails(t *testing.T) {
	stub := &stubTransport{}
	c := newTestClient(stub)

	_, err := c.Insert(context.Background(), "points", []any{point{X: 1}}, nil)
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	require.Contains(t, err.Error(), "no serializer found")
	require.Equal(t, 0, stub.insertCount())
}

func TestInsertEmptyBindingFails(t *testing.T) {
	stub := &stubTransport{}
	c := newTestClient(stub)

	// No field matches any column, so the binding is empty.
	err := c.Register(point{}, pointSchema(),
		Field("nope", func(p point) any { return p.X }))
	require.NoError(t, err)

	_, err = c.Insert(context.Background(), "points", []any{point{X: 1}}, nil)
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
	require.Equal(t, 0, stub.insertCount())
}

func TestInsertStreamsExpectedBytes(t *testing.T) {
	stub := &stubTransport{}
	c := newTestClient(stub)
	require.NoError(t, c.Register(point{}, pointSchema(), pointFields()...))

	y := int32(3)
	pending, err := c.Insert(context.Background(), "points", []any{
		point{X: 1},
		point{X: 2, Y: &y},
	}, nil)
	require.NoError(t, err)

	resp, err := pending.Wait(context.Background())
	require.NoError(t, err)
	require.NotNil(t, resp)

	require.Equal(t, []byte{
		0x01, 0x00, 0x00, 0x00, markerNull,
		0x02, 0x00, 0x00, 0x00, markerNonNull, 0x03, 0x00, 0x00, 0x00,
	}, stub.lastBody())

	req := stub.lastInsert()
	require.Equal(t, "points", req.Table)
	require.Equal(t, FormatRowBinary, req.Format)
	require.NotEmpty(t, req.QueryID) // generated when not supplied
	require.Empty(t, req.Options)
}

func TestInsertSettingsPropagation(t *testing.T) {
	stub := &stubTransport{}
	c := newTestClient(stub)
	require.NoError(t, c.Register(point{}, pointSchema(), pointFields()...))

	settings := NewInsertSettings().
		SetQueryID("abc").
		SetDeduplicationToken("tok-1")
	pending, err := c.Insert(context.Background(), "points", []any{point{X: 1}}, settings)
	require.NoError(t, err)
	_, err = pending.Wait(context.Background())
	require.NoError(t, err)

	req := stub.lastInsert()
	require.Equal(t, "abc", req.QueryID)
	require.Equal(t, map[string]string{"insert_deduplication_token": "tok-1"}, req.Options)
}

func TestInsertSerializationFailureFailsFuture(t *testing.T) {
	stub := &stubTransport{}
	c := newTestClient(stub)
	require.NoError(t, c.Register(point{}, pointSchema(), pointFields()...))

	pending, err := c.Insert(context.Background(), "points",
		[]any{point{X: 1}, "not a point"}, nil)
	require.NoError(t, err)

	_, err = pending.Wait(context.Background())
	var serErr *SerializationError
	require.ErrorAs(t, err, &serErr)
}

func TestInsertTransportFailureFailsFuture(t *testing.T) {
	boom := errors.New("connection refused")
	stub := &stubTransport{insertErr: boom}
	c := newTestClient(stub)
	require.NoError(t, c.Register(point{}, pointSchema(), pointFields()...))

	pending, err := c.Insert(context.Background(), "points", []any{point{X: 1}}, nil)
	require.NoError(t, err)

	_, err = pending.Wait(context.Background())
	var trErr *TransportError
	require.ErrorAs(t, err, &trErr)
	require.ErrorIs(t, err, boom)
}

func TestInsertConsumerDiesMidStream(t *testing.T) {
	// A transport that abandons the body after a few bytes and then
	// reports failure. The future must resolve (not hang), with the
	// transport error, and the producer goroutine must terminate.
	boom := errors.New("peer reset")
	stub := &stubTransport{stopAfter: 6, insertErr: boom}
	c := newTestClient(stub)
	require.NoError(t, c.Register(point{}, pointSchema(), pointFields()...))

	rows := make([]any, 100_000)
	for i := range rows {
		rows[i] = point{X: int32(i)}
	}
	pending, err := c.Insert(context.Background(), "points", rows, nil)
	require.NoError(t, err)

	_, err = pending.Wait(context.Background())
	var trErr *TransportError
	require.ErrorAs(t, err, &trErr)
	require.ErrorIs(t, err, boom)
}

func TestInsertBackpressure(t *testing.T) {
	// A slow consumer draining small chunks: the producer must suspend on
	// the pipe rather than fail, and every produced byte must arrive.
	stub := &stubTransport{readChunk: 512, readDelay: time.Millisecond}
	c := newTestClient(stub)
	require.NoError(t, c.Register(point{}, pointSchema(), pointFields()...))

	const n = 20_000
	rows := make([]any, n)
	for i := range rows {
		rows[i] = point{X: int32(i)}
	}
	pending, err := c.Insert(context.Background(), "points", rows, nil)
	require.NoError(t, err)
	_, err = pending.Wait(context.Background())
	require.NoError(t, err)

	// 4 bytes of x plus 1 null marker for y, per row.
	require.Len(t, stub.lastBody(), n*5)
}

func TestInsertFakeRowsRoundTripSize(t *testing.T) {
	type logLine struct {
		ID      int64
		Host    string
		Message string
	}
	schema := &TableSchema{
		Table: "logs",
		Columns: []*Column{
			{Name: "id", Type: ColumnTypeInt64},
			{Name: "host", Type: ColumnTypeString},
			{Name: "message", Type: ColumnTypeString},
		},
	}

	stub := &stubTransport{}
	c := newTestClient(stub)
	require.NoError(t, c.Register(logLine{}, schema,
		Field("id", func(l logLine) any { return l.ID }),
		Field("host", func(l logLine) any { return l.Host }),
		Field("message", func(l logLine) any { return l.Message }),
	))

	faker := gofakeit.New(42)
	rows := make([]any, 1000)
	expectedSize := 0
	for i := range rows {
		line := logLine{
			ID:      faker.Int64(),
			Host:    faker.DomainName(),
			Message: faker.Sentence(8),
		}
		rows[i] = line
		expectedSize += 8 + uvarintLen(len(line.Host)) + len(line.Host) +
			uvarintLen(len(line.Message)) + len(line.Message)
	}

	pending, err := c.Insert(context.Background(), "logs", rows, nil)
	require.NoError(t, err)
	_, err = pending.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, stub.lastBody(), expectedSize)
}

func uvarintLen(n int) int {
	size := 1
	for n >= 0x80 {
		n >>= 7
		size++
	}
	return size
}

func TestPendingInsertResolvesExactlyOnce(t *testing.T) {
	p := newPendingInsert()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				p.resolve(&InsertResponse{QueryID: "winner"}, nil)
			} else {
				p.resolve(nil, errors.New("loser"))
			}
		}(i)
	}
	wg.Wait()

	<-p.Done()
	resp1, err1 := p.Wait(context.Background())
	resp2, err2 := p.Wait(context.Background())
	require.Equal(t, resp1, resp2)
	require.Equal(t, err1, err2)
	// Exactly one of the two outcomes, never a mix.
	if err1 == nil {
		require.Equal(t, "winner", resp1.QueryID)
	} else {
		require.Nil(t, resp1)
	}
}

func TestPendingInsertWaitHonorsContext(t *testing.T) {
	p := newPendingInsert()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Resolve afterwards so nothing is left pending.
	p.resolve(nil, errors.New("done"))
}

func TestInsertStream(t *testing.T) {
	stub := &stubTransport{}
	c := newTestClient(stub)

	pending, err := c.InsertStream(context.Background(), "points",
		FormatRowBinary, strings.NewReader("raw-bytes"), nil)
	require.NoError(t, err)
	_, err = pending.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("raw-bytes"), stub.lastBody())

	_, err = c.InsertStream(context.Background(), "points", FormatRowBinary, nil, nil)
	var usageErr *UsageError
	require.ErrorAs(t, err, &usageErr)
}

func TestInsertConcurrentCallsIsolated(t *testing.T) {
	stub := &stubTransport{}
	c := newTestClient(stub)
	require.NoError(t, c.Register(point{}, pointSchema(), pointFields()...))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pending, err := c.Insert(context.Background(), "points",
				[]any{point{X: int32(i)}}, nil)
			require.NoError(t, err)
			_, err = pending.Wait(context.Background())
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 16, stub.insertCount())
	// Every body is one complete row: no pipe is ever shared.
	stub.mu.Lock()
	defer stub.mu.Unlock()
	for _, body := range stub.insertBodies {
		require.Len(t, body, 5)
		require.Equal(t, byte(markerNull), body[4])
	}
}
