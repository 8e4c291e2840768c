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
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Format identifies a wire format for request bodies and result sets.
type Format string

const (
	// FormatRowBinary is the binary row encoding produced by registered
	// type serializers: column order, null markers, little-endian widths.
	FormatRowBinary Format = "RowBinary"
	// FormatArrowStream is the Arrow IPC streaming format.
	FormatArrowStream Format = "ArrowStream"
	// FormatTabSeparated is plain TSV, used for DESCRIBE and ad-hoc queries.
	FormatTabSeparated Format = "TabSeparated"
)

// Response headers set by the CrestDB server.
const (
	headerQueryID  = "X-Crestdb-Query-Id"
	headerSummary  = "X-Crestdb-Summary"
	headerTimezone = "X-Crestdb-Timezone"
)

// InsertRequest describes one outbound insert.
type InsertRequest struct {
	Database string
	Table    string
	Format   Format
	QueryID  string
	// Options are request-level options passed through to the server,
	// e.g. insert_deduplication_token.
	Options map[string]string
}

// QueryRequest describes one outbound query.
type QueryRequest struct {
	Query   string
	QueryID string
	Format  Format
	// Params are server-side query parameters, substituted by the server.
	Params  map[string]any
	Options map[string]string
}

// Summary carries the server-side execution counters reported with a
// response.
type Summary struct {
	ReadRows     uint64 `json:"read_rows"`
	ReadBytes    uint64 `json:"read_bytes"`
	WrittenRows  uint64 `json:"written_rows"`
	WrittenBytes uint64 `json:"written_bytes"`
	ResultRows   uint64 `json:"result_rows"`
	ElapsedNs    uint64 `json:"elapsed_ns"`
}

// Transport executes requests against a CrestDB server. The insert body is
// a readable byte source so encoding and transmission can overlap;
// ExecInsert must consume (or close) it on every path.
type Transport interface {
	// ExecInsert streams body as the insert payload and blocks until the
	// server responds.
	ExecInsert(ctx context.Context, req *InsertRequest, body io.Reader) (*InsertResponse, error)
	// ExecQuery submits a query and returns the response descriptor with
	// its body stream still open.
	ExecQuery(ctx context.Context, req *QueryRequest) (*QueryResponse, error)
	// Ping checks that the server is alive.
	Ping(ctx context.Context) error
	// Close releases any resources held by the transport, such as idle
	// connections.
	Close()
}

type httpTransport struct {
	endpoint string
	database string
	user     string
	password string
	client   *http.Client
}

// NewHTTPTransport creates the default HTTP transport for the given config.
func NewHTTPTransport(config *Config) Transport {
	dialer := &net.Dialer{Timeout: config.ConnectTimeout}
	return &httpTransport{
		endpoint: strings.TrimRight(config.Endpoint, "/"),
		database: config.Database,
		user:     config.User,
		password: config.Password,
		client: &http.Client{
			Timeout: config.ReadTimeout,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
	}
}

var _ Transport = (*httpTransport)(nil)

func (t *httpTransport) ExecInsert(ctx context.Context, req *InsertRequest, body io.Reader) (*InsertResponse, error) {
	u, err := url.Parse(t.endpoint + "/")
	if err != nil {
		return nil, err
	}

	table := quoteIdent(req.Table, '`')
	if req.Database != "" {
		table = quoteIdent(req.Database, '`') + "." + table
	}

	q := u.Query()
	q.Set("query", fmt.Sprintf("INSERT INTO %s FORMAT %s", table, req.Format))
	if req.QueryID != "" {
		q.Set("query_id", req.QueryID)
	}
	for k, v := range req.Options {
		q.Set(k, v)
	}
	t.addCommonParams(q)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	t.authorize(httpReq)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer sneakyBodyClose(resp.Body)
	if err := checkStatusCodeOK(resp); err != nil {
		return nil, err
	}
	// Insert responses carry no payload worth keeping; drain so the
	// connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	summary, err := parseSummary(resp.Header)
	if err != nil {
		return nil, err
	}
	tz, err := parseTimezone(resp.Header)
	if err != nil {
		return nil, err
	}
	return &InsertResponse{
		QueryID:  resp.Header.Get(headerQueryID),
		Summary:  summary,
		TimeZone: tz,
	}, nil
}

func (t *httpTransport) ExecQuery(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	u, err := url.Parse(t.endpoint + "/")
	if err != nil {
		return nil, err
	}

	q := u.Query()
	if req.QueryID != "" {
		q.Set("query_id", req.QueryID)
	}
	if req.Format != "" {
		q.Set("default_format", string(req.Format))
	}
	for name, value := range req.Params {
		q.Set("param_"+name, fmt.Sprint(value))
	}
	for k, v := range req.Options {
		q.Set(k, v)
	}
	t.addCommonParams(q)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(req.Query))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "text/plain; charset=utf-8")
	t.authorize(httpReq)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if err := checkStatusCodeOK(resp); err != nil {
		sneakyBodyClose(resp.Body)
		return nil, err
	}

	summary, err := parseSummary(resp.Header)
	if err != nil {
		sneakyBodyClose(resp.Body)
		return nil, err
	}
	tz, err := parseTimezone(resp.Header)
	if err != nil {
		sneakyBodyClose(resp.Body)
		return nil, err
	}
	return &QueryResponse{
		QueryID:  resp.Header.Get(headerQueryID),
		Format:   req.Format,
		Summary:  summary,
		TimeZone: tz,
		Body:     resp.Body,
	}, nil
}

func (t *httpTransport) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"/ping", nil)
	if err != nil {
		return err
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer sneakyBodyClose(resp.Body)
	return checkStatusCodeOK(resp)
}

func (t *httpTransport) Close() {
	t.client.CloseIdleConnections()
}

func (t *httpTransport) addCommonParams(q url.Values) {
	if t.database != "" {
		q.Set("database", t.database)
	}
}

func (t *httpTransport) authorize(req *http.Request) {
	if t.user != "" {
		req.SetBasicAuth(t.user, t.password)
	}
}

func parseSummary(header http.Header) (*Summary, error) {
	raw := header.Get(headerSummary)
	if raw == "" {
		return nil, nil
	}
	var summary Summary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil, fmt.Errorf("parse %s header: %w", headerSummary, err)
	}
	return &summary, nil
}

func parseTimezone(header http.Header) (*time.Location, error) {
	raw := header.Get(headerTimezone)
	if raw == "" {
		return nil, nil
	}
	tz, err := time.LoadLocation(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s header: %w", headerTimezone, err)
	}
	return tz, nil
}
