package crestdb

import (
	"context"
	"errors"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/ipc"
)

// InsertArrowStream streams Arrow record batches into table, using the same
// overlapped encode/transmit pipeline as Insert but with the Arrow IPC
// streaming format as the body. All batches must share one schema.
func (c *Client) InsertArrowStream(ctx context.Context, table string, batches []arrow.Record, settings *InsertSettings) (*PendingInsert, error) {
	if len(batches) == 0 {
		return nil, &UsageError{Message: "cannot insert empty batches"}
	}
	schema := batches[0].Schema()
	for _, batch := range batches[1:] {
		if !batch.Schema().Equal(schema) {
			return nil, &UsageError{Message: "schema mismatch between batches"}
		}
	}

	req := c.newInsertRequest(table, FormatArrowStream, settings)
	up := newStreamingUploader()
	encCh := up.produce(func(w io.Writer) error {
		return writeArrowStream(w, schema, batches)
	})

	c.logger.Debug("submitting arrow insert",
		"table", table, "query_id", req.QueryID, "batches", len(batches))
	return c.startInsert(ctx, req, up, encCh), nil
}

// writeArrowStream encodes the given record batches onto w in Arrow IPC
// streaming format.
func writeArrowStream(w io.Writer, schema *arrow.Schema, batches []arrow.Record) (err error) {
	writer := ipc.NewWriter(w, ipc.WithSchema(schema))
	defer func() {
		err = errors.Join(err, writer.Close())
	}()

	for _, batch := range batches {
		if err := writer.Write(batch); err != nil {
			return err
		}
	}
	return
}
