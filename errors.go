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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Error represents an error response from the CrestDB server.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
	}
	return e.Message
}

// UsageError indicates the caller invoked the client incorrectly: inserting
// an empty row set, or a type that has never been registered. It is always
// returned synchronously, before any network interaction.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// SerializationError indicates a field value could not be encoded for its
// column. It aborts the row stream in progress; bytes already written are
// not retracted.
type SerializationError struct {
	// Column is the name of the column being written.
	Column string
	// Value is the offending field value.
	Value any
	// Err is the underlying cause.
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize column %q (value %v): %v", e.Column, e.Value, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// TransportError wraps a failure from the request execution side: a network
// error, a malformed response, or a server-side rejection.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func checkStatusCodeOK(resp *http.Response) error {
	return checkStatusCode(resp, 200)
}

func checkStatusCode(resp *http.Response, expected int) error {
	if resp.StatusCode == expected {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	msg := string(data)
	if err != nil {
		return fmt.Errorf("%d: %s", resp.StatusCode, msg)
	}
	var errResp Error
	err = json.Unmarshal(data, &errResp)
	if err != nil {
		return fmt.Errorf("%d: %s", resp.StatusCode, msg)
	}
	return &errResp
}

// sneakyBodyClose closes the body and ignores the error.
// This is useful to close the HTTP response body when we don't care about the error.
func sneakyBodyClose(body io.ReadCloser) {
	if body != nil {
		_ = body.Close()
	}
}
