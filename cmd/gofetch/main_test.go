package main

import (
	"net/url"
	"strings"
	"testing"

	"github.com/gofetch/gofetch/pkg/message"
)

func TestBuildRequestSimplePath(t *testing.T) {
	target, err := url.Parse("http://example.com/path/to/page")
	if err != nil {
		t.Fatalf("url.Parse() error = %v", err)
	}
	req := buildRequest(target, "GET")

	if req.Method != "GET" {
		t.Errorf("Method = %q, want %q", req.Method, "GET")
	}
	if req.Scheme != message.SchemeHTTP {
		t.Errorf("Scheme = %v, want SchemeHTTP", req.Scheme)
	}
	if req.EscapedResource != "path/to/page" {
		t.Errorf("EscapedResource = %q, want %q", req.EscapedResource, "path/to/page")
	}
	if req.EscapedHost != "example.com" {
		t.Errorf("EscapedHost = %q, want %q", req.EscapedHost, "example.com")
	}
}

func TestBuildRequestRootPath(t *testing.T) {
	target, _ := url.Parse("http://example.com")
	req := buildRequest(target, "GET")
	if req.EscapedResource != "" {
		t.Errorf("EscapedResource = %q, want empty (Render adds the leading '/')", req.EscapedResource)
	}
}

func TestBuildRequestWithQuery(t *testing.T) {
	target, _ := url.Parse("https://example.com/search?q=go+http")
	req := buildRequest(target, "GET")
	if !strings.HasSuffix(req.EscapedResource, "?q=go+http") {
		t.Errorf("EscapedResource = %q, want suffix %q", req.EscapedResource, "?q=go+http")
	}
	if req.Scheme != message.SchemeHTTPS {
		t.Errorf("Scheme = %v, want SchemeHTTPS", req.Scheme)
	}
}

func TestBuildRequestDefaultHeaders(t *testing.T) {
	target, _ := url.Parse("http://example.com/")
	req := buildRequest(target, "GET")

	joined := strings.Join(req.HeaderLines, "\n")
	for _, want := range []string{"User-Agent:", "Accept:", "Accept-Encoding: gzip, deflate", "Connection: close"} {
		if !strings.Contains(joined, want) {
			t.Errorf("header lines missing %q: %v", want, req.HeaderLines)
		}
	}
}

func TestPortForExplicitPort(t *testing.T) {
	u, _ := url.Parse("http://example.com:8080/")
	if got := portFor(u); got != 8080 {
		t.Errorf("portFor() = %d, want 8080", got)
	}
}

func TestPortForDefaultHTTP(t *testing.T) {
	u, _ := url.Parse("http://example.com/")
	if got := portFor(u); got != 80 {
		t.Errorf("portFor() = %d, want 80", got)
	}
}

func TestPortForDefaultHTTPS(t *testing.T) {
	u, _ := url.Parse("https://example.com/")
	if got := portFor(u); got != 443 {
		t.Errorf("portFor() = %d, want 443", got)
	}
}
