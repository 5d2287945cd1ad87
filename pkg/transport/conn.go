package transport

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofetch/gofetch/pkg/buffer"
	"github.com/gofetch/gofetch/pkg/constants"
	"github.com/gofetch/gofetch/pkg/logging"
	"github.com/gofetch/gofetch/pkg/message"
	"github.com/gofetch/gofetch/pkg/reader"
	"github.com/gofetch/gofetch/pkg/sink"
	"github.com/gofetch/gofetch/pkg/timing"
	"github.com/gofetch/gofetch/pkg/tlsconfig"
)

// Conn is the connection facade named in the spec: open a stream to a
// target (through the process-wide proxy if one applies), send one
// request, read one response, then close. Connections are not reused
// for a second exchange, even under keep-alive. A Conn is not safe for
// concurrent use — it belongs to exactly one worker for the lifetime of
// one request/response cycle.
type Conn struct {
	transport *Transport
	netConn   net.Conn
	meta      *ConnectionMetadata
	scratch   *buffer.Buffer
	timer     *timing.Timer

	scheme   message.Scheme
	viaProxy bool
}

// Open resolves the effective host/port (the process-wide proxy for the
// target's scheme, snapshotted once here, or the target's own host/port),
// dials it (optionally through TLS for a direct HTTPS connection), and
// allocates the connection's reusable scratch buffer.
//
// upstreamProxy, when non-nil, routes the dial through an explicit
// upstream proxy (HTTP CONNECT or SOCKS4/5) instead of the process-wide
// forward-proxy snapshot; it takes priority over effectiveTarget.
func Open(ctx context.Context, t *Transport, scheme, host string, port int, upstreamProxy *ProxyConfig) (*Conn, error) {
	msgScheme := message.SchemeHTTP
	if scheme == "https" {
		msgScheme = message.SchemeHTTPS
	}

	dialHost, dialPort, viaProxy := effectiveTarget(scheme, host, port)

	cfg := Config{
		Scheme:      scheme,
		Host:        dialHost,
		Port:        dialPort,
		ConnTimeout: constants.DefaultConnTimeout,
		ReadTimeout: constants.DefaultReadTimeout,
	}

	// An explicit upstream proxy always tunnels via CONNECT: the request
	// rendered over the tunnel is addressed to the target directly, same
	// as a direct connection, unlike the plaintext absolute-form request
	// sent to a bare process-wide forward proxy.
	if upstreamProxy != nil {
		cfg.Proxy = upstreamProxy
		cfg.Host = host
		cfg.Port = port
		viaProxy = false
	}

	if scheme == "https" && !viaProxy {
		cfg.SNI = host
		profile := tlsconfig.CurrentProfile()
		cfg.MinTLSVersion = profile.Min
		cfg.MaxTLSVersion = profile.Max
		cfg.InsecureTLS = tlsconfig.InsecureTLS()
	} else if upstreamProxy == nil {
		cfg.Scheme = "http"
	}

	timer := timing.NewTimer()
	netConn, meta, err := t.Connect(ctx, cfg, timer)
	if err != nil {
		return nil, err
	}

	return &Conn{
		transport: t,
		netConn:   netConn,
		meta:      meta,
		scratch:   buffer.New(constants.InitialScratchSize),
		timer:     timer,
		scheme:    msgScheme,
		viaProxy:  viaProxy,
	}, nil
}

// Metrics returns the connection-phase timing (DNS lookup, TCP connect,
// TLS handshake) collected while dialing, plus TTFB once GetResponse has
// run. GetResponse stops the TTFB timer only after the whole response,
// body included, has been read, so TTFB here covers the full response
// read rather than just the wait for the first byte. TotalTime is the
// time since Open began dialing.
func (c *Conn) Metrics() timing.Metrics {
	return c.timer.GetMetrics()
}

// effectiveTarget resolves the dial host/port per the process-wide proxy
// snapshot, and whether the request should be rendered in absolute-form.
func effectiveTarget(scheme, host string, port int) (dialHost string, dialPort int, viaProxy bool) {
	if p := proxyFor(scheme); p != nil {
		h := p.Hostname()
		portStr := p.Port()
		if portStr == "" {
			portStr = "8080"
		}
		pn, err := strconv.Atoi(portStr)
		if err != nil {
			pn = 8080
		}
		return h, pn, true
	}
	return host, port, false
}

// SendRequest renders req into the connection's scratch buffer and
// performs a single write of the whole request.
func (c *Conn) SendRequest(req *message.Request) error {
	c.scratch.Reset()
	message.Render(req, c.scratch, c.viaProxy)
	_, err := c.netConn.Write(c.scratch.Bytes())
	return err
}

// GetResponseOptions configures a single GetResponse call.
type GetResponseOptions struct {
	Method        string
	KeepRawHeader bool
	BodyMemLimit  int64
}

// GetResponse reads and parses one complete response, streaming its body
// (if any) into a fresh sink.Sink through the content-encoding's
// decompressor. Once the body is fully read, its running digests are
// checked against any RFC 3230 Digest header the server sent; a mismatch
// is logged but does not fail the request, matching how gofetch treats
// other advisory validation headers.
func (c *Conn) GetResponse(opts GetResponseOptions) (*message.Response, error) {
	if err := c.netConn.SetReadDeadline(time.Now().Add(constants.DefaultReadTimeout)); err != nil {
		return nil, err
	}
	c.timer.StartTTFB()
	bodySink := sink.New(opts.BodyMemLimit)
	resp, err := reader.GetResponse(c.netConn, c.scratch, opts.Method, opts.KeepRawHeader, bodySink, time.Now())
	c.timer.EndTTFB()
	if err != nil {
		return nil, err
	}
	verifyDigests(resp, bodySink)
	return resp, nil
}

// verifyDigests compares the body's running MD5/SHA-256 digests against
// any Digest response headers, logging a mismatch rather than failing
// the request outright.
func verifyDigests(resp *message.Response, bodySink *sink.Sink) {
	if len(resp.Digests) == 0 {
		return
	}
	sums := bodySink.Sums()
	for _, d := range resp.Digests {
		want, ok := sums[strings.ToUpper(d.Algorithm)]
		if !ok {
			continue
		}
		if want != d.EncodedDigest {
			logging.Error("response body digest mismatch", "algorithm", d.Algorithm, "want", want, "got", d.EncodedDigest)
		} else {
			logging.Debug("response body digest verified", "algorithm", d.Algorithm)
		}
	}
}

// Close closes the underlying connection. A Conn is one-shot per
// request/response cycle; there is no pool to return it to.
func (c *Conn) Close() error {
	return c.netConn.Close()
}
