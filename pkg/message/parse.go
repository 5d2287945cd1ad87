package message

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofetch/gofetch/pkg/errors"
	"github.com/gofetch/gofetch/pkg/header"
)

const reasonPhraseMax = 31
const headerNameTruncate = 31

// ParseHeaderBlock parses a complete header block: a status line followed
// by zero or more header lines, ending at the blank line the caller has
// already located (the block passed in should not include the
// terminating CRLFCRLF). now is used to resolve Set-Cookie Max-Age into an
// absolute time.
func ParseHeaderBlock(block string, now time.Time) (*Response, error) {
	resp := &Response{}

	statusLine, rest := block, ""
	if nl := strings.IndexByte(block, '\n'); nl >= 0 {
		statusLine, rest = block[:nl], block[nl+1:]
	}
	statusLine = strings.TrimRight(statusLine, "\r\n")
	if err := parseStatusLine(statusLine, resp); err != nil {
		return nil, err
	}

	rest = joinFoldedLines(rest)

	for _, line := range strings.Split(rest, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		s, name := header.ParseNameTruncated(line, headerNameTruncate)
		dispatchHeader(resp, name, s, now)
	}

	// Broken-server gzip workaround: a gzip Content-Encoding paired with
	// a Content-Type of application/x-gzip means the body is already a
	// gzip file, not a gzip-encoded response; treat it as identity.
	if resp.ContentEncoding == header.ContentEncodingGzip && strings.EqualFold(resp.ContentType, "application/x-gzip") {
		resp.ContentEncoding = header.ContentEncodingIdentity
	}

	return resp, nil
}

// joinFoldedLines merges a header continuation line (one starting with
// whitespace) into the previous line by replacing the intervening CR/LF
// with spaces, matching the reference parser's in-place overwrite.
func joinFoldedLines(s string) string {
	var b strings.Builder
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if i > 0 && len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\t') {
			b.WriteByte(' ')
			b.WriteString(strings.TrimLeft(trimmed, " \t"))
			continue
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(trimmed)
	}
	return b.String()
}

func parseStatusLine(line string, resp *Response) error {
	s := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(s, "HTTP/") {
		return errors.NewProtocolError("HTTP response header not found", nil)
	}
	s = s[len("HTTP/"):]

	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return errors.NewProtocolError("malformed status line", nil)
	}
	major, err := strconv.Atoi(s[:dot])
	if err != nil {
		return errors.NewProtocolError("malformed status line", err)
	}
	s = s[dot+1:]

	sp := strings.IndexByte(s, ' ')
	if sp < 0 {
		return errors.NewProtocolError("malformed status line", nil)
	}
	minor, err := strconv.Atoi(s[:sp])
	if err != nil {
		return errors.NewProtocolError("malformed status line", err)
	}
	s = strings.TrimLeft(s[sp+1:], " ")

	sp = strings.IndexByte(s, ' ')
	var codeStr, reason string
	if sp < 0 {
		codeStr = s
	} else {
		codeStr = s[:sp]
		reason = strings.TrimLeft(s[sp+1:], " ")
	}
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return errors.NewProtocolError("malformed status line", err)
	}

	if len(reason) > reasonPhraseMax {
		reason = reason[:reasonPhraseMax]
	}

	resp.Major = major
	resp.Minor = minor
	resp.Code = code
	resp.Reason = reason
	return nil
}

func dispatchHeader(resp *Response, name, value string, now time.Time) {
	switch {
	case resp.Code/100 == 3 && strings.EqualFold(name, "Location"):
		resp.Location = header.ParseLocation(value)
	case resp.Code/100 == 3 && strings.EqualFold(name, "Link"):
		resp.Links = append(resp.Links, header.ParseLink(value))
	case strings.EqualFold(name, "Digest"):
		resp.Digests = append(resp.Digests, header.ParseDigestHeader(value))
	case strings.EqualFold(name, "Transfer-Encoding"):
		resp.TransferEncoding = header.ParseTransferEncoding(value)
	case strings.EqualFold(name, "Content-Encoding"):
		resp.ContentEncoding = header.ParseContentEncoding(value)
	case strings.EqualFold(name, "Content-Type"):
		resp.ContentType, resp.ContentTypeCharset = header.ParseContentType(value)
	case strings.EqualFold(name, "Content-Length"):
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err == nil && n >= 0 {
			resp.ContentLength = n
			resp.ContentLengthValid = true
		}
	case strings.EqualFold(name, "Connection"):
		resp.KeepAlive = header.ParseConnection(value)
	case strings.EqualFold(name, "Last-Modified"):
		if t, ok := header.ParseDate(value); ok {
			resp.LastModified = t.Unix()
			resp.LastModifiedValid = true
		}
	case strings.EqualFold(name, "Set-Cookie"):
		if c, ok := header.ParseSetCookie(value, now); ok {
			resp.Cookies = append(resp.Cookies, c)
		}
	case strings.EqualFold(name, "WWW-Authenticate"):
		resp.Challenges = append(resp.Challenges, header.ParseChallenge(value))
	}
}

// StatusLine renders the response's status line as it would appear on
// the wire, for logging/debugging.
func (r *Response) StatusLine() string {
	return fmt.Sprintf("HTTP/%d.%d %d %s", r.Major, r.Minor, r.Code, r.Reason)
}
