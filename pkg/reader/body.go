package reader

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/gofetch/gofetch/pkg/decompress"
	"github.com/gofetch/gofetch/pkg/errors"
	"github.com/gofetch/gofetch/pkg/header"
	"github.com/gofetch/gofetch/pkg/logging"
	"github.com/gofetch/gofetch/pkg/message"
)

// feedWriter adapts a Decompressor's push-stream Feed method to io.Writer
// so the standard library's io.Copy/io.CopyN can drive it.
type feedWriter struct{ dc decompress.Decompressor }

func (w feedWriter) Write(p []byte) (int, error) {
	if err := w.dc.Feed(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// readBody dispatches on resp's framing (chunked / known-length identity
// / close-delimited identity), feeding decoded bytes through dc. prefix
// is the body-shaped bytes already pulled into the scratch buffer while
// scanning for end-of-headers.
func readBody(stream io.Reader, resp *message.Response, prefix []byte, dc decompress.Decompressor) error {
	br := bufio.NewReaderSize(io.MultiReader(bytes.NewReader(prefix), stream), 4096)
	dst := feedWriter{dc}

	switch {
	case resp.TransferEncoding == header.TransferEncodingChunked:
		return readChunkedBody(br, dst)
	case resp.ContentLengthValid:
		return readKnownLengthBody(br, dst, resp)
	default:
		return readUntilCloseBody(br, dst, resp)
	}
}

// readChunkedBody reads "chunk-size [;ext] CRLF" lines followed by
// exactly chunk-size bytes and a trailing CRLF, terminating at a
// zero-size chunk followed by an optional trailer block and the closing
// blank line. bufio.Reader absorbs read-boundary splits (including a
// chunk's closing CRLF straddling two socket reads) transparently.
func readChunkedBody(br *bufio.Reader, dst io.Writer) error {
	for {
		size, err := readChunkSizeLine(br)
		if err != nil {
			return err
		}
		if size == 0 {
			return readTrailer(br)
		}

		if _, err := io.CopyN(dst, br, size); err != nil {
			return errors.NewFramingError("read_chunk", "short read inside chunk body", err)
		}
		if err := consumeCRLF(br); err != nil {
			return errors.NewFramingError("read_chunk", "missing CRLF after chunk data", err)
		}
	}
}

func readChunkSizeLine(br *bufio.Reader) (int64, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if line == "" {
			return 0, errors.NewFramingError("read_chunk_size", "connection closed mid-chunk", err)
		}
	}
	line = strings.TrimRight(line, "\r\n")
	if semi := strings.IndexByte(line, ';'); semi >= 0 {
		line = line[:semi]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, errors.NewFramingError("read_chunk_size", "empty chunk size line", nil)
	}
	size, err := strconv.ParseInt(line, 16, 64)
	if err != nil || size < 0 {
		return 0, errors.NewFramingError("read_chunk_size", "malformed chunk size '"+line+"'", err)
	}
	return size, nil
}

func consumeCRLF(br *bufio.Reader) error {
	b1, err := br.ReadByte()
	if err != nil {
		return err
	}
	if b1 != '\r' {
		// Tolerate a bare \n, matching the reader's general leniency
		// about line endings elsewhere in the core.
		if b1 == '\n' {
			return nil
		}
		return errors.NewFramingError("consume_crlf", "expected CRLF after chunk data", nil)
	}
	b2, err := br.ReadByte()
	if err != nil {
		return err
	}
	if b2 != '\n' {
		return errors.NewFramingError("consume_crlf", "expected LF after CR", nil)
	}
	return nil
}

// readTrailer consumes the (possibly empty) trailer block following the
// terminating zero-size chunk, up to and including the final blank line.
func readTrailer(br *bufio.Reader) error {
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if line == "" {
				return errors.NewFramingError("read_trailer", "connection closed before trailer terminator", err)
			}
		}
		if strings.TrimRight(line, "\r\n") == "" {
			return nil
		}
	}
}

// readKnownLengthBody reads at most resp.ContentLength bytes, tolerating
// short reads (peer closed early) by logging the mismatch and adjusting
// ContentLength to what was actually received: a length mismatch is a
// warning, not a hard failure. Bytes past the declared length are not
// read and not counted.
func readKnownLengthBody(br *bufio.Reader, dst io.Writer, resp *message.Response) error {
	n, err := io.CopyN(dst, br, resp.ContentLength)
	if n != resp.ContentLength {
		// Peer closed early (or, in principle, a read error occurred
		// mid-body): adjust to what was actually delivered rather than
		// failing the exchange.
		logging.Error("body shorter than Content-Length", "declared", resp.ContentLength, "received", n)
		resp.ContentLength = n
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return errors.NewIOError("reading body", err)
	}
	return nil
}

// readUntilCloseBody feeds bytes until the peer closes the connection,
// recording the actual byte count delivered.
func readUntilCloseBody(br *bufio.Reader, dst io.Writer, resp *message.Response) error {
	n, err := io.Copy(dst, br)
	resp.ContentLength = n
	resp.ContentLengthValid = true
	if err != nil && err != io.EOF {
		return errors.NewIOError("reading body", err)
	}
	return nil
}
