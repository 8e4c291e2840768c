package crestdb

import (
	"bufio"
	"io"
)

// streamingUploader owns the in-process pipe that lets row encoding and
// request transmission overlap. The producer writes encoded bytes into the
// writer end while the outbound request reads the reader end as its body;
// the pipe's blocking writes are the backpressure that keeps memory bounded
// for large row sets.
type streamingUploader struct {
	pr *io.PipeReader
	pw *io.PipeWriter
}

func newStreamingUploader() *streamingUploader {
	pr, pw := io.Pipe()
	return &streamingUploader{pr: pr, pw: pw}
}

// body is the reader end, handed to the transport as the request body.
func (u *streamingUploader) body() io.Reader {
	return u.pr
}

// close releases the reader end. Pending and subsequent producer writes
// fail with io.ErrClosedPipe, so a consumer that stopped reading can never
// leave the producer blocked.
func (u *streamingUploader) close() {
	_ = u.pr.Close()
}

// produce runs fn against the writer end on a new goroutine. The writer end
// is closed on every exit path; a non-nil error also poisons the reader end
// so the consumer observes the failure instead of a clean EOF. The returned
// channel yields fn's result exactly once.
func (u *streamingUploader) produce(fn func(w io.Writer) error) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		bw := bufio.NewWriter(u.pw)
		err := fn(bw)
		if err == nil {
			err = bw.Flush()
		}
		u.pw.CloseWithError(err)
		errCh <- err
	}()
	return errCh
}
