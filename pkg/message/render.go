package message

import (
	"strings"

	"github.com/gofetch/gofetch/pkg/buffer"
)

// Render writes req onto buf in the wire format: request line, a
// synthetic Host header, each caller-supplied header line, and the
// terminating blank line. viaProxy selects absolute-form for the request
// target and appends "Proxy-Connection: keep-alive" — set it when a
// forward proxy is configured for req's scheme.
func Render(req *Request, buf *buffer.Buffer, viaProxy bool) {
	buf.WriteString(req.Method)
	buf.WriteString(" ")

	if viaProxy {
		buf.WriteString(req.Scheme.String())
		buf.WriteString("://")
		buf.WriteString(req.EscapedHost)
	}
	buf.WriteString("/")
	buf.WriteString(req.EscapedResource)
	buf.WriteString(" HTTP/1.1\r\n")
	buf.WriteString("Host: ")
	buf.WriteString(req.EscapedHost)
	buf.WriteString("\r\n")

	for _, line := range req.HeaderLines {
		buf.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			buf.WriteString("\r\n")
		}
	}

	if viaProxy {
		buf.WriteString("Proxy-Connection: keep-alive\r\n")
	}

	buf.WriteString("\r\n")
}
