package transport

import (
	"net/url"
	"sync/atomic"
)

// globalProxy holds the process-wide HTTP or HTTPS forward-proxy
// configuration: a simple "always use this proxy for this scheme"
// setting, distinct from Config.Proxy (which supports SOCKS4/5 and is
// configured explicitly per connection). It mirrors libmget's
// http_set_http_proxy/http_set_https_proxy: set once at startup, read
// (never mutated) by every Open call.
var (
	httpProxy  atomic.Pointer[url.URL]
	httpsProxy atomic.Pointer[url.URL]
)

// SetHTTPProxy sets the process-wide proxy used for plain-HTTP targets.
// An empty string clears it.
func SetHTTPProxy(rawURL string) error {
	return setGlobalProxy(&httpProxy, rawURL)
}

// SetHTTPSProxy sets the process-wide proxy used for HTTPS targets.
// An empty string clears it.
func SetHTTPSProxy(rawURL string) error {
	return setGlobalProxy(&httpsProxy, rawURL)
}

func setGlobalProxy(slot *atomic.Pointer[url.URL], rawURL string) error {
	if rawURL == "" {
		slot.Store(nil)
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	slot.Store(u)
	return nil
}

// proxyFor returns the process-wide proxy snapshot for scheme ("http" or
// "https"), or nil if none is configured. Callers should read this once
// at connection-open time and hold onto the result for the connection's
// lifetime, rather than re-reading it mid-life.
func proxyFor(scheme string) *url.URL {
	if scheme == "https" {
		return httpsProxy.Load()
	}
	return httpProxy.Load()
}
