// Package decompress implements the pluggable push-stream decompressor
// the response reader feeds a body through: identity, gzip, or deflate.
// Grounded in the stdlib compress/gzip and compress/flate packages (no
// example repo in the pack wires a third-party gzip/deflate library —
// badu-http's tport/gzip_reader.go reaches for compress/gzip directly).
package decompress

import (
	"compress/flate"
	"compress/gzip"
	"io"

	"github.com/gofetch/gofetch/pkg/errors"
	"github.com/gofetch/gofetch/pkg/header"
	"github.com/gofetch/gofetch/pkg/logging"
)

// Decompressor is a push-stream decoder: Feed appends more encoded bytes,
// and decoded bytes are written to the sink supplied at Open time (by Feed
// itself for identity, by a background goroutine for gzip/deflate); Close
// flushes and releases resources, and once it returns every decoded byte
// has been written to the sink. It must be
// safe to call Close exactly once, even if Feed was never called or
// returned an error.
type Decompressor interface {
	Feed(p []byte) error
	Close() error
}

// Open returns a Decompressor that decodes encoding and writes decoded
// bytes to sink as they become available.
func Open(encoding header.ContentEncoding, sink io.Writer) Decompressor {
	switch encoding {
	case header.ContentEncodingGzip:
		return &pipeDecompressor{sink: sink, newReader: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		}}
	case header.ContentEncodingDeflate:
		return &pipeDecompressor{sink: sink, newReader: func(r io.Reader) (io.ReadCloser, error) {
			return flate.NewReader(r), nil
		}}
	default:
		return identityDecompressor{sink: sink}
	}
}

// identityDecompressor passes bytes through unchanged.
type identityDecompressor struct {
	sink io.Writer
}

func (d identityDecompressor) Feed(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	_, err := d.sink.Write(p)
	if err != nil {
		return errors.NewIOError("writing decoded body", err)
	}
	return nil
}

func (d identityDecompressor) Close() error { return nil }

// pipeDecompressor adapts gzip/flate's pull-style io.Reader to the
// push-stream Feed/Close contract via an in-process pipe: Feed writes
// encoded bytes into the pipe, a background goroutine pumps decoded bytes
// out of the compression reader into sink.
type pipeDecompressor struct {
	sink      io.Writer
	newReader func(io.Reader) (io.ReadCloser, error)

	started bool
	pw      *io.PipeWriter
	done    chan error
}

func (d *pipeDecompressor) start() {
	pr, pw := io.Pipe()
	d.pw = pw
	d.done = make(chan error, 1)
	d.started = true

	go func() {
		zr, err := d.newReader(pr)
		if err != nil {
			pr.CloseWithError(err)
			logging.Error("opening decompressor failed", "error", err)
			d.done <- errors.NewProtocolError("opening decompressor", err)
			return
		}
		_, copyErr := io.Copy(d.sink, zr)
		closeErr := zr.Close()
		pr.Close()
		if copyErr != nil {
			d.done <- errors.NewIOError("decoding body", copyErr)
			return
		}
		if closeErr != nil {
			d.done <- errors.NewIOError("closing decompressor", closeErr)
			return
		}
		d.done <- nil
	}()
}

func (d *pipeDecompressor) Feed(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if !d.started {
		d.start()
	}
	if _, err := d.pw.Write(p); err != nil {
		return errors.NewIOError("feeding decompressor", err)
	}
	return nil
}

func (d *pipeDecompressor) Close() error {
	if !d.started {
		return nil
	}
	d.pw.Close()
	return <-d.done
}
