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
	"io"
	"time"

	"github.com/google/uuid"
)

// QueryResponse provides access to the raw result stream of a query and to
// the response metadata. Close it when done reading.
type QueryResponse struct {
	// QueryID is the ID the server assigned (or echoed) for this query.
	QueryID string
	// Format is the result set format.
	Format Format
	// Summary carries the server-side execution counters, if reported.
	Summary *Summary
	// TimeZone is the server's time zone, if reported.
	TimeZone *time.Location
	// Body is the result stream. The caller owns it.
	Body io.ReadCloser
}

// Close releases the result stream.
func (r *QueryResponse) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// ReadRows returns the number of rows the server read, or zero when the
// server reported no summary.
func (r *QueryResponse) ReadRows() uint64 {
	if r.Summary == nil {
		return 0
	}
	return r.Summary.ReadRows
}

// WrittenRows returns the number of rows the server wrote, or zero when the
// server reported no summary.
func (r *QueryResponse) WrittenRows() uint64 {
	if r.Summary == nil {
		return 0
	}
	return r.Summary.WrittenRows
}

// ServerElapsed returns the server-side execution time, or zero when the
// server reported no summary.
func (r *QueryResponse) ServerElapsed() time.Duration {
	if r.Summary == nil {
		return 0
	}
	return time.Duration(r.Summary.ElapsedNs)
}

// Query submits a SQL query and returns a descriptor of the result once the
// server has accepted it. params are substituted server-side, keyed by
// parameter name.
func (c *Client) Query(ctx context.Context, query string, params map[string]any, settings *QuerySettings) (*QueryResponse, error) {
	req := &QueryRequest{
		Query:  query,
		Format: FormatTabSeparated,
		Params: params,
	}
	if settings != nil && settings.Format != "" {
		req.Format = settings.Format
	}
	if id, ok := settings.Option(settingQueryID); ok {
		req.QueryID = id
	} else {
		req.QueryID = uuid.NewString()
	}
	if settings != nil {
		req.Options = requestOptions(settings.options)
	}

	c.logger.Debug("submitting query", "query_id", req.QueryID)
	resp, err := c.transport.ExecQuery(ctx, req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}
