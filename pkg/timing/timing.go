// Package timing measures how long each phase of opening a connection and
// receiving a response takes.
package timing

import (
	"fmt"
	"time"
)

// Metrics captures the timing breakdown for one connection's lifetime.
type Metrics struct {
	// DNSLookup is the time spent resolving the target host.
	DNSLookup time.Duration `json:"dns_lookup"`

	// TCPConnect is the time spent establishing the TCP handshake.
	TCPConnect time.Duration `json:"tcp_connect"`

	// TLSHandshake is the time spent on the TLS handshake (zero for plain HTTP).
	TLSHandshake time.Duration `json:"tls_handshake"`

	// TTFB is the time spent waiting for the first response byte after the
	// request was sent — server processing time, from the client's view.
	TTFB time.Duration `json:"ttfb"`

	// TotalTime is the end-to-end time from Timer creation to GetMetrics.
	TotalTime time.Duration `json:"total_time"`
}

// Timer accumulates the start/end timestamps for each phase of a
// connection, from which Metrics is derived on demand.
type Timer struct {
	start     time.Time
	dnsStart  time.Time
	dnsEnd    time.Time
	tcpStart  time.Time
	tcpEnd    time.Time
	tlsStart  time.Time
	tlsEnd    time.Time
	ttfbStart time.Time
	ttfbEnd   time.Time
}

// NewTimer starts a new timing measurement session.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// StartDNS marks the beginning of DNS resolution.
func (t *Timer) StartDNS() { t.dnsStart = time.Now() }

// EndDNS marks the end of DNS resolution.
func (t *Timer) EndDNS() { t.dnsEnd = time.Now() }

// StartTCP marks the beginning of the TCP handshake.
func (t *Timer) StartTCP() { t.tcpStart = time.Now() }

// EndTCP marks the end of the TCP handshake.
func (t *Timer) EndTCP() { t.tcpEnd = time.Now() }

// StartTLS marks the beginning of the TLS handshake.
func (t *Timer) StartTLS() { t.tlsStart = time.Now() }

// EndTLS marks the end of the TLS handshake.
func (t *Timer) EndTLS() { t.tlsEnd = time.Now() }

// StartTTFB marks when the client starts waiting for the first response byte.
func (t *Timer) StartTTFB() { t.ttfbStart = time.Now() }

// EndTTFB marks when the first response byte arrives.
func (t *Timer) EndTTFB() { t.ttfbEnd = time.Now() }

// GetMetrics computes the timing breakdown so far. A phase whose
// Start/End pair was never called contributes a zero duration.
func (t *Timer) GetMetrics() Metrics {
	m := Metrics{TotalTime: time.Since(t.start)}

	if !t.dnsStart.IsZero() && !t.dnsEnd.IsZero() {
		m.DNSLookup = t.dnsEnd.Sub(t.dnsStart)
	}
	if !t.tcpStart.IsZero() && !t.tcpEnd.IsZero() {
		m.TCPConnect = t.tcpEnd.Sub(t.tcpStart)
	}
	if !t.tlsStart.IsZero() && !t.tlsEnd.IsZero() {
		m.TLSHandshake = t.tlsEnd.Sub(t.tlsStart)
	}
	if !t.ttfbStart.IsZero() && !t.ttfbEnd.IsZero() {
		m.TTFB = t.ttfbEnd.Sub(t.ttfbStart)
	}

	return m
}

// GetConnectionTime returns the total time spent establishing the
// connection (DNS + TCP + TLS), before any request was sent.
func (m Metrics) GetConnectionTime() time.Duration {
	return m.DNSLookup + m.TCPConnect + m.TLSHandshake
}

// GetServerTime returns the server's processing time, as observed by the client.
func (m Metrics) GetServerTime() time.Duration {
	return m.TTFB
}

// GetNetworkTime returns the total time minus server processing time.
func (m Metrics) GetNetworkTime() time.Duration {
	return m.TotalTime - m.TTFB
}

// String renders the metrics for a single log line.
func (m Metrics) String() string {
	return fmt.Sprintf("dns=%v tcp=%v tls=%v ttfb=%v total=%v",
		m.DNSLookup, m.TCPConnect, m.TLSHandshake, m.TTFB, m.TotalTime)
}
