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
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InsertResponse describes a completed insert.
type InsertResponse struct {
	// QueryID is the ID the server assigned (or echoed) for this insert.
	QueryID string
	// Summary carries the server-side execution counters, if the server
	// reported any.
	Summary *Summary
	// TimeZone is the server's time zone, if reported.
	TimeZone *time.Location
}

// PendingInsert is the in-flight result of one insert. It resolves exactly
// once, with either a response or an error, after both the encoding side
// and the transport side have terminated.
type PendingInsert struct {
	done chan struct{}
	once sync.Once
	resp *InsertResponse
	err  error
}

func newPendingInsert() *PendingInsert {
	return &PendingInsert{done: make(chan struct{})}
}

func (p *PendingInsert) resolve(resp *InsertResponse, err error) {
	p.once.Do(func() {
		p.resp = resp
		p.err = err
		close(p.done)
	})
}

// Done is closed when the insert has resolved.
func (p *PendingInsert) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the insert resolves or ctx is done. Waiting again after
// resolution returns the same result.
func (p *PendingInsert) Wait(ctx context.Context) (*InsertResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return p.resp, p.err
	}
}

// Insert streams rows into table. The row type must have been registered
// with Register beforehand; an empty row set or an unregistered type fails
// immediately, before any network interaction.
//
// Encoding and transmission overlap: a background producer serializes rows
// into a pipe while the request reads from it, so large row sets never
// materialize in memory. The returned PendingInsert resolves once the
// server has answered. If encoding fails mid-stream, the transport call is
// still awaited (the broken body makes it fail too), but the insert
// resolves with the encoding error, which is the root cause.
func (c *Client) Insert(ctx context.Context, table string, rows []any, settings *InsertSettings) (*PendingInsert, error) {
	if len(rows) == 0 {
		return nil, &UsageError{Message: "insert data cannot be empty"}
	}

	typeID := typeNameOf(rows[0])
	binding, ok := c.registry.resolve(typeID)
	if !ok || len(binding.serializers) == 0 {
		return nil, &UsageError{Message: fmt.Sprintf(
			"no serializer found for %s: call Register before Insert", typeID)}
	}

	req := c.newInsertRequest(table, FormatRowBinary, settings)
	up := newStreamingUploader()
	enc := &rowEncoder{binding: binding}
	encCh := up.produce(func(w io.Writer) error {
		return enc.encode(rows, w)
	})

	c.logger.Debug("submitting insert",
		"table", table, "query_id", req.QueryID, "rows", len(rows))
	return c.startInsert(ctx, req, up, encCh), nil
}

// InsertStream streams a caller-prepared body in the given format, the
// escape hatch for payloads produced outside the typed pipeline.
func (c *Client) InsertStream(ctx context.Context, table string, format Format, data io.Reader, settings *InsertSettings) (*PendingInsert, error) {
	if data == nil {
		return nil, &UsageError{Message: "insert data cannot be nil"}
	}

	req := c.newInsertRequest(table, format, settings)
	c.logger.Debug("submitting insert stream",
		"table", table, "query_id", req.QueryID, "format", format)

	p := newPendingInsert()
	go func() {
		resp, err := c.transport.ExecInsert(ctx, req, data)
		if err != nil {
			p.resolve(nil, &TransportError{Err: err})
			return
		}
		p.resolve(resp, nil)
	}()
	return p, nil
}

func (c *Client) newInsertRequest(table string, format Format, settings *InsertSettings) *InsertRequest {
	req := &InsertRequest{
		Database: c.config.Database,
		Table:    table,
		Format:   format,
	}
	if id, ok := settings.Option(settingQueryID); ok {
		req.QueryID = id
	} else {
		req.QueryID = uuid.NewString()
	}
	if settings != nil {
		req.Options = requestOptions(settings.options)
	}
	return req
}

// startInsert runs the transport call on its own goroutine and resolves the
// pending insert exactly once. The pipe's reader end is closed as soon as
// the transport returns so the producer can never stay blocked, and encCh
// reports the producer's result. An encoding failure takes precedence over
// the transport error it induces; an ErrClosedPipe from the producer is the
// consumer's failure echoed back, so the transport error wins there.
func (c *Client) startInsert(ctx context.Context, req *InsertRequest, up *streamingUploader, encCh <-chan error) *PendingInsert {
	p := newPendingInsert()
	go func() {
		resp, err := c.transport.ExecInsert(ctx, req, up.body())
		up.close()

		encErr := <-encCh
		if encErr != nil && !errors.Is(encErr, io.ErrClosedPipe) {
			p.resolve(nil, encErr)
			return
		}
		if err == nil && encErr != nil {
			// The transport reported success without draining the body.
			err = encErr
		}
		if err != nil {
			p.resolve(nil, &TransportError{Err: err})
			return
		}
		p.resolve(resp, nil)
	}()
	return p
}
