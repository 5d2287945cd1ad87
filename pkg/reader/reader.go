// Package reader implements the response reader: locating the end of the
// header block across arbitrary read boundaries, parsing the header
// block, and then driving chunked / known-length / close-delimited body
// framing through a pluggable decompressor into a sink.
package reader

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/gofetch/gofetch/pkg/buffer"
	"github.com/gofetch/gofetch/pkg/constants"
	"github.com/gofetch/gofetch/pkg/decompress"
	"github.com/gofetch/gofetch/pkg/errors"
	"github.com/gofetch/gofetch/pkg/header"
	"github.com/gofetch/gofetch/pkg/message"
	"github.com/gofetch/gofetch/pkg/sink"
)

// chunkReadGrowth is the free space, in bytes, the scratch buffer is grown
// to provide (by capacity doubling) each time its free tail falls below
// that amount while scanning for the end-of-headers marker.
const chunkReadGrowth = constants.ChunkReadGrowth

// GetResponse reads one complete HTTP/1.1 response from stream, reusing
// scratch as the connection's scan buffer. method is the request method
// that was sent (HEAD short-circuits body reading). keepRawHeader, if
// true, copies the raw header block (plus its terminating CRLFCRLF) into
// the response. bodySink receives the decoded body; if it is nil and a
// body is present, a sink with the default memory limit is created. now
// resolves Set-Cookie Max-Age
// into absolute time.
func GetResponse(stream io.Reader, scratch *buffer.Buffer, method string, keepRawHeader bool, bodySink *sink.Sink, now time.Time) (*message.Response, error) {
	scratch.Reset()

	headerBlock, bodyPrefix, err := readHeaderBlock(stream, scratch)
	if err != nil {
		return nil, err
	}

	resp, err := message.ParseHeaderBlock(string(headerBlock), now)
	if err != nil {
		return nil, err
	}

	if keepRawHeader {
		raw := make([]byte, 0, len(headerBlock)+4)
		raw = append(raw, headerBlock...)
		raw = append(raw, '\r', '\n', '\r', '\n')
		resp.RawHeader = raw
	}

	if bodyAbsent(resp, method) {
		return resp, nil
	}

	if bodySink == nil {
		bodySink = sink.New(0)
	}
	resp.Body = bodySink

	dc := decompress.Open(resp.ContentEncoding, bodySink)
	bodyErr := readBody(stream, resp, bodyPrefix, dc)
	closeErr := dc.Close()
	if bodyErr != nil {
		return resp, bodyErr
	}
	return resp, closeErr
}

// bodyAbsent reports whether the exchange has no body at all: HEAD
// requests, 1xx/204/304 responses, or an explicit zero-length identity
// body.
func bodyAbsent(resp *message.Response, method string) bool {
	if strings.EqualFold(method, "HEAD") {
		return true
	}
	if resp.Code/100 == 1 || resp.Code == 204 || resp.Code == 304 {
		return true
	}
	if resp.TransferEncoding == header.TransferEncodingIdentity && resp.ContentLengthValid && resp.ContentLength == 0 {
		return true
	}
	return false
}

// readHeaderBlock grows scratch and reads from stream until it finds
// "\r\n\r\n", returning the header block (without the terminator) and the
// already-read body prefix.
func readHeaderBlock(stream io.Reader, scratch *buffer.Buffer) (headerBlock []byte, bodyPrefix []byte, err error) {
	lastRead := 0
	for {
		data := scratch.Bytes()
		searchFrom := len(data) - lastRead - 3
		if searchFrom < 0 {
			searchFrom = 0
		}
		if idx := bytes.Index(data[searchFrom:], []byte("\r\n\r\n")); idx >= 0 {
			matchPos := searchFrom + idx
			full := scratch.Bytes()
			block := make([]byte, matchPos)
			copy(block, full[:matchPos])
			prefix := make([]byte, len(full)-(matchPos+4))
			copy(prefix, full[matchPos+4:])
			return block, prefix, nil
		}

		if len(data) > constants.MaxHeaderBlockSize {
			return nil, nil, errors.NewFramingError("read_headers", "header block exceeds maximum size", nil)
		}

		if scratch.Cap()-scratch.Len() < chunkReadGrowth {
			scratch.GrowBy(chunkReadGrowth)
		}
		tail := scratch.WritableTail()
		n, rerr := stream.Read(tail)
		if n > 0 {
			scratch.Commit(n)
			lastRead = n
		} else {
			lastRead = 0
		}
		if rerr != nil {
			if n == 0 {
				if rerr == io.EOF {
					return nil, nil, errors.NewHeaderMissingError("status-line", "connection closed before headers were received")
				}
				return nil, nil, errors.NewIOError("reading headers", rerr)
			}
		}
	}
}
