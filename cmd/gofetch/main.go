// Command gofetch performs a single HTTP/1.1 request and writes the
// response body to stdout or a file. It is the thin CLI collaborator named
// in the engine's design: no recursion, no HTML parsing, no cookie
// persistence — those stay external.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/gofetch/gofetch/pkg/logging"
	"github.com/gofetch/gofetch/pkg/message"
	"github.com/gofetch/gofetch/pkg/sink"
	"github.com/gofetch/gofetch/pkg/tlsconfig"
	"github.com/gofetch/gofetch/pkg/transport"
)

func main() {
	method := flag.String("method", "GET", "HTTP method")
	output := flag.String("output", "", "write body to this file instead of stdout")
	httpProxy := flag.String("http-proxy", "", "process-wide proxy for http:// targets")
	httpsProxy := flag.String("https-proxy", "", "process-wide proxy for https:// targets")
	upstreamProxy := flag.String("upstream-proxy", "", "tunnel this request through an explicit proxy (http://, https://, socks4://, or socks5://)")
	insecure := flag.Bool("insecure", false, "skip TLS certificate verification")
	username := flag.String("user", "", "Basic/Digest username")
	password := flag.String("password", "", "Basic/Digest password")
	bodyMemLimit := flag.Int64("body-mem-limit", sink.DefaultMemoryLimit, "bytes of body kept in memory before spilling to disk")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: gofetch [flags] <url>")
		os.Exit(2)
	}

	if *httpProxy != "" {
		if err := transport.SetHTTPProxy(*httpProxy); err != nil {
			fatal("invalid -http-proxy", err)
		}
	}
	if *httpsProxy != "" {
		if err := transport.SetHTTPSProxy(*httpsProxy); err != nil {
			fatal("invalid -https-proxy", err)
		}
	}
	tlsconfig.SetInsecureTLS(*insecure)

	var proxyCfg *transport.ProxyConfig
	if *upstreamProxy != "" {
		cfg, err := transport.ParseProxyURL(*upstreamProxy)
		if err != nil {
			fatal("invalid -upstream-proxy", err)
		}
		proxyCfg = cfg
	}

	target, err := url.Parse(flag.Arg(0))
	if err != nil {
		fatal("invalid URL", err)
	}

	resp, err := fetch(target, *method, *username, *password, proxyCfg, *bodyMemLimit)
	if err != nil {
		fatal("request failed", err)
	}

	logging.Debug("response received", "status", resp.Code, "reason", resp.Reason)

	if err := writeBody(resp, *output); err != nil {
		fatal("writing body", err)
	}
}

// fetch opens one connection, sends one request, and — if the server
// challenges with 401/407 and credentials were supplied — retries once
// with an Authorization header built from the challenge.
func fetch(target *url.URL, method, username, password string, proxyCfg *transport.ProxyConfig, bodyMemLimit int64) (*message.Response, error) {
	t := transport.New()
	defer t.Close()

	scheme := target.Scheme
	host := target.Hostname()
	port := portFor(target)

	req := buildRequest(target, method)

	resp, err := roundTrip(t, scheme, host, port, req, method, proxyCfg, bodyMemLimit)
	if err != nil {
		return nil, err
	}

	if (resp.Code == 401 || resp.Code == 407) && username != "" && len(resp.Challenges) > 0 {
		if credErr := message.AddCredentials(req, resp.Challenges[0], username, password); credErr != nil {
			logging.Error("credential construction failed", "error", credErr)
			return resp, nil
		}
		return roundTrip(t, scheme, host, port, req, method, proxyCfg, bodyMemLimit)
	}

	return resp, nil
}

func roundTrip(t *transport.Transport, scheme, host string, port int, req *message.Request, method string, proxyCfg *transport.ProxyConfig, bodyMemLimit int64) (*message.Response, error) {
	conn, err := transport.Open(context.Background(), t, scheme, host, port, proxyCfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SendRequest(req); err != nil {
		return nil, err
	}

	resp, err := conn.GetResponse(transport.GetResponseOptions{
		Method:       method,
		BodyMemLimit: bodyMemLimit,
	})
	if err != nil {
		return nil, err
	}

	m := conn.Metrics()
	logging.Debug("connection timing", "dns", m.DNSLookup, "tcp", m.TCPConnect, "tls", m.TLSHandshake, "ttfb", m.TTFB)

	return resp, nil
}

func buildRequest(target *url.URL, method string) *message.Request {
	scheme := message.SchemeHTTP
	if target.Scheme == "https" {
		scheme = message.SchemeHTTPS
	}

	resource := target.EscapedPath()
	if resource == "" {
		resource = "/"
	}
	if target.RawQuery != "" {
		resource += "?" + target.RawQuery
	}
	resource = resource[1:] // Render prepends the leading '/'

	req := message.NewRequest(method, scheme, target.Host, resource)
	req.AddHeader("User-Agent", "gofetch/1.0")
	req.AddHeader("Accept", "*/*")
	req.AddHeader("Accept-Encoding", "gzip, deflate")
	req.AddHeader("Connection", "close")
	return req
}

func portFor(u *url.URL) int {
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err == nil {
			return n
		}
	}
	if u.Scheme == "https" {
		return 443
	}
	return 80
}

func writeBody(resp *message.Response, output string) error {
	if resp.Body == nil {
		return nil
	}
	body, err := resp.Body.Reader()
	if err != nil {
		return err
	}
	defer body.Close()

	var dest io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		dest = f
	}

	_, err = io.Copy(dest, body)
	return err
}

func fatal(msg string, err error) {
	logging.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "gofetch: %s: %v\n", msg, err)
	os.Exit(1)
}
