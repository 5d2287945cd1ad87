package message

import (
	"testing"
	"time"

	"github.com/gofetch/gofetch/pkg/header"
)

var fixedNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestParseHeaderBlockSimpleGET(t *testing.T) {
	block := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 13\r\n"
	resp, err := ParseHeaderBlock(block, fixedNow)
	if err != nil {
		t.Fatalf("ParseHeaderBlock() error = %v", err)
	}
	if resp.Major != 1 || resp.Minor != 1 {
		t.Errorf("version = %d.%d, want 1.1", resp.Major, resp.Minor)
	}
	if resp.Code != 200 {
		t.Errorf("Code = %d, want 200", resp.Code)
	}
	if resp.Reason != "OK" {
		t.Errorf("Reason = %q, want %q", resp.Reason, "OK")
	}
	if resp.ContentType != "text/plain" {
		t.Errorf("ContentType = %q, want %q", resp.ContentType, "text/plain")
	}
	if !resp.ContentLengthValid || resp.ContentLength != 13 {
		t.Errorf("ContentLength = %d (valid=%v), want 13 (valid=true)", resp.ContentLength, resp.ContentLengthValid)
	}
}

func TestParseHeaderBlockRedirectWithLink(t *testing.T) {
	block := "HTTP/1.1 302 Found\r\nLocation: /next\r\nLink: <http://a/b>; rel=duplicate; pri=2\r\n"
	resp, err := ParseHeaderBlock(block, fixedNow)
	if err != nil {
		t.Fatalf("ParseHeaderBlock() error = %v", err)
	}
	if resp.Location != "/next" {
		t.Errorf("Location = %q, want %q", resp.Location, "/next")
	}
	if len(resp.Links) != 1 {
		t.Fatalf("len(Links) = %d, want 1", len(resp.Links))
	}
	link := resp.Links[0]
	if link.URI != "http://a/b" {
		t.Errorf("Links[0].URI = %q, want %q", link.URI, "http://a/b")
	}
	if link.Rel != header.LinkRelDuplicate {
		t.Errorf("Links[0].Rel = %v, want LinkRelDuplicate", link.Rel)
	}
	if link.Pri != 2 {
		t.Errorf("Links[0].Pri = %d, want 2", link.Pri)
	}
}

func TestParseHeaderBlockLocationAndLinkOnlyDispatchedFor3xx(t *testing.T) {
	// Location/Link are only recognized on a 3xx status; on a 200 they are
	// silently dropped rather than populated.
	block := "HTTP/1.1 200 OK\r\nLocation: /ignored\r\nLink: <http://a/b>; rel=duplicate\r\n"
	resp, err := ParseHeaderBlock(block, fixedNow)
	if err != nil {
		t.Fatalf("ParseHeaderBlock() error = %v", err)
	}
	if resp.Location != "" {
		t.Errorf("Location = %q, want empty on a 200 response", resp.Location)
	}
	if len(resp.Links) != 0 {
		t.Errorf("len(Links) = %d, want 0 on a 200 response", len(resp.Links))
	}
}

func TestParseHeaderBlockFoldedHeaderLine(t *testing.T) {
	block := "HTTP/1.1 200 OK\r\nX-Long: first\r\n second\r\nContent-Length: 0\r\n"
	resp, err := ParseHeaderBlock(block, fixedNow)
	if err != nil {
		t.Fatalf("ParseHeaderBlock() error = %v", err)
	}
	if !resp.ContentLengthValid || resp.ContentLength != 0 {
		t.Errorf("ContentLength = %d (valid=%v), want 0 (valid=true)", resp.ContentLength, resp.ContentLengthValid)
	}
}

func TestParseHeaderBlockSetCookie(t *testing.T) {
	block := "HTTP/1.1 200 OK\r\nSet-Cookie: sid=abc; Domain=.example.com; Path=/; Max-Age=60; Secure; HttpOnly\r\n"
	resp, err := ParseHeaderBlock(block, fixedNow)
	if err != nil {
		t.Fatalf("ParseHeaderBlock() error = %v", err)
	}
	if len(resp.Cookies) != 1 {
		t.Fatalf("len(Cookies) = %d, want 1", len(resp.Cookies))
	}
	c := resp.Cookies[0]
	if c.Name != "sid" || c.Value != "abc" {
		t.Errorf("cookie = %+v, want name=sid value=abc", c)
	}
	if c.Domain != "example.com" || !c.DomainDot {
		t.Errorf("cookie domain = %q (dot=%v), want example.com (dot=true)", c.Domain, c.DomainDot)
	}
	if !c.SecureOnly || !c.HTTPOnly {
		t.Errorf("cookie = %+v, want SecureOnly and HTTPOnly set", c)
	}
}

func TestParseHeaderBlockChallenge(t *testing.T) {
	block := "HTTP/1.1 401 Unauthorized\r\nWWW-Authenticate: Digest realm=\"r\", nonce=\"n\", qop=\"auth\"\r\n"
	resp, err := ParseHeaderBlock(block, fixedNow)
	if err != nil {
		t.Fatalf("ParseHeaderBlock() error = %v", err)
	}
	if len(resp.Challenges) != 1 {
		t.Fatalf("len(Challenges) = %d, want 1", len(resp.Challenges))
	}
	if resp.Challenges[0].AuthScheme != "Digest" {
		t.Errorf("AuthScheme = %q, want %q", resp.Challenges[0].AuthScheme, "Digest")
	}
}

func TestParseHeaderBlockGzipContentTypeWorkaround(t *testing.T) {
	block := "HTTP/1.1 200 OK\r\nContent-Type: application/x-gzip\r\nContent-Encoding: gzip\r\n"
	resp, err := ParseHeaderBlock(block, fixedNow)
	if err != nil {
		t.Fatalf("ParseHeaderBlock() error = %v", err)
	}
	if resp.ContentEncoding != header.ContentEncodingIdentity {
		t.Errorf("ContentEncoding = %v, want Identity (gzip file body, not gzip-encoded)", resp.ContentEncoding)
	}
}

func TestParseHeaderBlockMissingStatusLine(t *testing.T) {
	_, err := ParseHeaderBlock("not a status line", fixedNow)
	if err == nil {
		t.Error("expected an error for a block with no HTTP status line")
	}
}

func TestParseHeaderBlockMalformedStatusLine(t *testing.T) {
	_, err := ParseHeaderBlock("GARBAGE\r\n", fixedNow)
	if err == nil {
		t.Error("expected an error for a non-HTTP status line")
	}
}

func TestStatusLine(t *testing.T) {
	resp := &Response{Major: 1, Minor: 1, Code: 404, Reason: "Not Found"}
	if got := resp.StatusLine(); got != "HTTP/1.1 404 Not Found" {
		t.Errorf("StatusLine() = %q, want %q", got, "HTTP/1.1 404 Not Found")
	}
}
