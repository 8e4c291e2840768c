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

/*
Package crestdb provides a lightweight and easy-to-use client for interacting with a CrestDB service.

# Client

Use NewClient to create a client struct. This is the major entrance to construct structs for interacting with CrestDB:

	client := crestdb.NewClient(&crestdb.Config{
		Endpoint: "http://<crestdb-host>:<crestdb-port:-8123>",
	})

# Write Typed Rows

Register a row type against the table schema once, then insert slices of it.
Registration binds each schema column to a field accessor; rows are streamed
to the server in the RowBinary wire format while they are being encoded:

	type Event struct {
		ID      int64
		Message string
		Level   *int32 // nil encodes NULL
	}

	tbl := client.Table("events")
	schema, err := tbl.Describe(ctx)
	if err != nil {
		return err
	}

	err = client.Register(Event{}, schema,
		crestdb.Field("id", func(e Event) any { return e.ID }),
		crestdb.Field("message", func(e Event) any { return e.Message }),
		crestdb.Field("level", func(e Event) any { return e.Level }),
	)
	if err != nil {
		return err
	}

	pending, err := client.Insert(ctx, "events", []any{
		Event{ID: 1, Message: "started"},
		Event{ID: 2, Message: "stopped"},
	}, nil)
	if err != nil {
		return err
	}
	resp, err := pending.Wait(ctx)

# Query Data

Query returns a descriptor over the raw result stream plus the server's
execution summary:

	resp, err := client.Query(ctx, `SELECT count() FROM events`, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Close()
*/
package crestdb
