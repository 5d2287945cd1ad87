// Package transport dials the network connection a request flows over:
// DNS resolution, the TCP handshake, an optional upstream-proxy hop, and
// the TLS upgrade for https.
package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofetch/gofetch/pkg/errors"
	"github.com/gofetch/gofetch/pkg/timing"
	"github.com/gofetch/gofetch/pkg/tlsconfig"
	netproxy "golang.org/x/net/proxy"
)

// ProxyConfig configures an upstream SOCKS4/SOCKS5/HTTP-CONNECT proxy for
// a single connection (Config.Proxy). This is distinct from the
// process-wide HTTP/HTTPS forward-proxy snapshot in proxy_global.go,
// which only rewrites the dial target and relies on the proxy to accept
// an absolute-form request — no tunnel, no SOCKS.
type ProxyConfig struct {
	Type               string
	Host               string
	Port               int
	Username           string
	Password           string
	ConnTimeout        time.Duration
	ProxyHeaders       map[string]string
	TLSConfig          *tls.Config
	ResolveDNSViaProxy bool
}

// Config holds the parameters for a single Connect call.
type Config struct {
	Scheme    string
	Host      string
	Port      int
	ConnectIP string // bypasses DNS resolution when set

	// SNI controls the Server Name Indication sent in the TLS handshake.
	// Priority: TLSConfig.ServerName > SNI > Host (unless DisableSNI).
	SNI string

	// DisableSNI suppresses the SNI extension entirely. Mutually
	// exclusive with SNI (validateConfig rejects both set).
	DisableSNI bool

	// InsecureTLS skips certificate verification. This always overrides
	// TLSConfig.InsecureSkipVerify, even when a custom TLSConfig is also
	// supplied, so a caller can combine a custom cert pool with disabled
	// verification in one config.
	InsecureTLS bool

	ConnTimeout  time.Duration
	DNSTimeout   time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Proxy routes this connection through an upstream SOCKS/CONNECT proxy.
	Proxy *ProxyConfig

	CustomCACerts [][]byte

	ClientCertPEM  []byte
	ClientKeyPEM   []byte
	ClientCertFile string
	ClientKeyFile  string

	// TLSConfig, if set, is cloned and used as the base TLS configuration
	// instead of the one this package would otherwise build.
	TLSConfig *tls.Config

	MinTLSVersion    uint16
	MaxTLSVersion    uint16
	TLSRenegotiation tls.RenegotiationSupport
	CipherSuites     []uint16
}

// ConnectionMetadata describes the connection Connect established, for
// logging.
type ConnectionMetadata struct {
	ConnectedIP        string
	ConnectedPort      int
	NegotiatedProtocol string

	LocalAddr    string
	RemoteAddr   string
	ConnectionID uint64

	TLSVersion     string
	TLSCipherSuite string
	TLSServerName  string
	TLSSessionID   string
	TLSResumed     bool

	ProxyUsed bool
	ProxyType string
	ProxyAddr string
}

// Transport dials connections and assigns them unique IDs for logging; it
// carries no per-request state and one instance serves every Open call
// for the process's lifetime.
type Transport struct {
	resolver            *net.Resolver
	connectionIDCounter uint64
}

// New creates a Transport using the system default resolver.
func New() *Transport {
	return &Transport{resolver: net.DefaultResolver}
}

// NewWithResolver creates a Transport using a caller-supplied resolver,
// for tests that need to fake DNS results.
func NewWithResolver(resolver *net.Resolver) *Transport {
	return &Transport{resolver: resolver}
}

// Close is a no-op retained for API symmetry with callers that defer it
// unconditionally; Transport holds no resources of its own to release.
func (t *Transport) Close() error {
	return nil
}

// Connect resolves, dials, and — for https — TLS-upgrades a connection
// per config. The caller owns the returned net.Conn for exactly one
// request/response cycle.
func (t *Transport) Connect(ctx context.Context, config Config, timer *timing.Timer) (net.Conn, *ConnectionMetadata, error) {
	if err := t.validateConfig(config); err != nil {
		return nil, nil, err
	}

	metadata := &ConnectionMetadata{}

	connTimeout := config.ConnTimeout
	if connTimeout <= 0 {
		connTimeout = 10 * time.Second
	}

	var dialAddr string
	var err error
	if p := config.Proxy; p != nil && p.Type == "socks5" && p.ResolveDNSViaProxy && config.ConnectIP == "" {
		// Hand the hostname to the SOCKS5 proxy so it resolves DNS itself.
		dialAddr = net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	} else {
		dialAddr, _, err = t.resolveAddress(ctx, config, timer)
		if err != nil {
			return nil, nil, err
		}
	}

	host, portStr, _ := net.SplitHostPort(dialAddr)
	metadata.ConnectedIP = host
	if port, err := strconv.Atoi(portStr); err == nil {
		metadata.ConnectedPort = port
	}

	var conn net.Conn

	if config.Proxy != nil {
		conn, metadata, err = t.connectViaProxy(ctx, config, dialAddr, connTimeout, timer, metadata)
		if err != nil {
			return nil, nil, err
		}
	} else {
		conn, err = t.connectTCP(ctx, dialAddr, connTimeout, timer)
		if err != nil {
			return nil, nil, errors.NewConnectionError(config.Host, config.Port, err)
		}
	}

	if conn.LocalAddr() != nil {
		metadata.LocalAddr = conn.LocalAddr().String()
	}
	if conn.RemoteAddr() != nil {
		metadata.RemoteAddr = conn.RemoteAddr().String()
	}
	metadata.ConnectionID = atomic.AddUint64(&t.connectionIDCounter, 1)

	if strings.EqualFold(config.Scheme, "https") {
		conn, err = t.upgradeTLS(ctx, conn, config, timer, metadata)
		if err != nil {
			if conn != nil {
				conn.Close()
			}
			return nil, nil, errors.NewTLSError(config.Host, config.Port, err)
		}
	} else {
		metadata.NegotiatedProtocol = "HTTP/1.1"
	}

	return conn, metadata, nil
}

func (t *Transport) validateConfig(config Config) error {
	if config.Host == "" {
		return errors.NewValidationError("host cannot be empty")
	}
	if config.Port <= 0 || config.Port > 65535 {
		return errors.NewValidationError("port must be between 1 and 65535")
	}
	if config.Scheme != "http" && config.Scheme != "https" {
		return errors.NewValidationError("scheme must be http or https")
	}
	if config.DisableSNI && config.SNI != "" {
		return errors.NewValidationError("cannot set both DisableSNI=true and SNI (conflicting options)")
	}
	return nil
}

func (t *Transport) resolveAddress(ctx context.Context, config Config, timer *timing.Timer) (dialAddr string, resolvedIP string, err error) {
	if config.ConnectIP != "" {
		dialAddr = net.JoinHostPort(config.ConnectIP, strconv.Itoa(config.Port))
		return dialAddr, config.ConnectIP, nil
	}

	timer.StartDNS()
	defer timer.EndDNS()

	dnsTimeout := config.DNSTimeout
	if dnsTimeout <= 0 {
		dnsTimeout = config.ConnTimeout
	}
	if dnsTimeout <= 0 {
		dnsTimeout = 5 * time.Second
	}

	ctxLookup, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	addrs, err := t.resolver.LookupIPAddr(ctxLookup, config.Host)
	if err != nil {
		return "", "", errors.NewDNSError(config.Host, err)
	}
	if len(addrs) == 0 {
		return "", "", errors.NewDNSError(config.Host, errors.NewValidationError("no IP addresses found"))
	}

	ip := addrs[0].IP.String()
	dialAddr = net.JoinHostPort(ip, strconv.Itoa(config.Port))
	return dialAddr, ip, nil
}

// tcpKeepAlivePeriod is the OS-level keep-alive interval applied to every
// direct TCP connection, to detect a dead peer mid-response without
// waiting for a read timeout.
const tcpKeepAlivePeriod = 30 * time.Second

func (t *Transport) connectTCP(ctx context.Context, dialAddr string, timeout time.Duration, timer *timing.Timer) (net.Conn, error) {
	timer.StartTCP()
	defer timer.EndTCP()

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", dialAddr)
	if err != nil {
		return nil, err
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetKeepAlive(true)
		tcpConn.SetKeepAlivePeriod(tcpKeepAlivePeriod)
	}

	return conn, nil
}

func (t *Transport) upgradeTLS(ctx context.Context, conn net.Conn, config Config, timer *timing.Timer, metadata *ConnectionMetadata) (net.Conn, error) {
	timer.StartTLS()
	defer timer.EndTLS()

	handshakeTimeout := config.ConnTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	tlsCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	var tlsConfig *tls.Config

	if config.TLSConfig != nil {
		tlsConfig = config.TLSConfig.Clone()
		if config.InsecureTLS {
			tlsConfig.InsecureSkipVerify = true
		}
		// An HTTP/1.1 transport must never let ALPN negotiate h2, no
		// matter what the caller's custom TLSConfig requested.
		tlsConfig.NextProtos = []string{"http/1.1"}
		ConfigureSNI(tlsConfig, config.SNI, config.DisableSNI, config.Host)
	} else {
		tlsConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: config.InsecureTLS,
			NextProtos:         []string{"http/1.1"},
		}
		if config.MinTLSVersion > 0 {
			tlsConfig.MinVersion = config.MinTLSVersion
		}

		if len(config.CustomCACerts) > 0 {
			rootCAs := x509.NewCertPool()
			for i, caCert := range config.CustomCACerts {
				if ok := rootCAs.AppendCertsFromPEM(caCert); !ok {
					return nil, errors.NewTLSError(config.Host, config.Port,
						errors.NewValidationError(fmt.Sprintf("failed to parse CA certificate at index %d", i)))
				}
			}
			tlsConfig.RootCAs = rootCAs
		}

		ConfigureSNI(tlsConfig, config.SNI, config.DisableSNI, config.Host)
	}

	if config.MinTLSVersion > 0 && tlsConfig.MinVersion == 0 {
		tlsConfig.MinVersion = config.MinTLSVersion
	}
	if config.MaxTLSVersion > 0 && tlsConfig.MaxVersion == 0 {
		tlsConfig.MaxVersion = config.MaxTLSVersion
	}

	if len(config.CipherSuites) > 0 {
		tlsConfig.CipherSuites = config.CipherSuites
	} else if len(tlsConfig.CipherSuites) == 0 {
		tlsconfig.ApplyCipherSuites(tlsConfig, tlsConfig.MinVersion)
	}

	if config.TLSRenegotiation != 0 {
		tlsConfig.Renegotiation = config.TLSRenegotiation
	}

	clientCert, err := t.loadClientCertificate(config)
	if err != nil {
		return nil, errors.NewTLSError(config.Host, config.Port, err)
	}
	if clientCert != nil {
		tlsConfig.Certificates = append(tlsConfig.Certificates, *clientCert)
	}

	if tlsConfig.ServerName != "" {
		metadata.TLSServerName = tlsConfig.ServerName
	} else if !config.DisableSNI {
		metadata.TLSServerName = config.Host
	}

	tlsConn := tls.Client(conn, tlsConfig)
	if err := tlsConn.HandshakeContext(tlsCtx); err != nil {
		conn.Close()
		return nil, err
	}

	state := tlsConn.ConnectionState()
	metadata.TLSVersion = tlsconfig.GetVersionName(state.Version)
	metadata.TLSCipherSuite = tlsconfig.GetCipherSuiteName(state.CipherSuite)
	metadata.NegotiatedProtocol = state.NegotiatedProtocol
	if metadata.NegotiatedProtocol == "" {
		metadata.NegotiatedProtocol = "HTTP/1.1"
	}
	metadata.TLSResumed = state.DidResume

	// TLSSessionID is diagnostic only: TLS 1.3 has no session ID
	// (tickets instead), and Go doesn't expose the TLS 1.2 session ID
	// either. We record TLSUnique (RFC 5929 channel binding) under this
	// name for debugging; TLSResumed is the reliable resumption signal.
	if len(state.TLSUnique) > 0 {
		metadata.TLSSessionID = hex.EncodeToString(state.TLSUnique)
	}

	return tlsConn, nil
}

// connectViaProxy connects to the target through an upstream proxy and
// records proxy metadata for logging.
func (t *Transport) connectViaProxy(ctx context.Context, config Config, targetAddr string, timeout time.Duration, timer *timing.Timer, metadata *ConnectionMetadata) (net.Conn, *ConnectionMetadata, error) {
	proxy := config.Proxy
	if proxy == nil {
		return nil, nil, errors.NewValidationError("proxy configuration is nil")
	}
	if proxy.Type == "" {
		return nil, nil, errors.NewValidationError("proxy type cannot be empty")
	}
	if proxy.Host == "" {
		return nil, nil, errors.NewValidationError("proxy host cannot be empty")
	}

	proxyPort := proxy.Port
	if proxyPort == 0 {
		switch proxy.Type {
		case "http":
			proxyPort = 8080
		case "https":
			proxyPort = 443
		case "socks4", "socks5":
			proxyPort = 1080
		default:
			return nil, nil, errors.NewValidationError(fmt.Sprintf("unsupported proxy type: %s", proxy.Type))
		}
	}

	proxyTimeout := proxy.ConnTimeout
	if proxyTimeout <= 0 {
		proxyTimeout = timeout
	}

	proxyAddr := fmt.Sprintf("%s:%d", proxy.Host, proxyPort)
	metadata.ProxyUsed = true
	metadata.ProxyType = proxy.Type
	metadata.ProxyAddr = proxyAddr

	timer.StartTCP()
	defer timer.EndTCP()

	var conn net.Conn
	var err error

	switch proxy.Type {
	case "http", "https":
		conn, err = t.connectViaHTTPProxy(ctx, proxy, proxyAddr, config, targetAddr, proxyTimeout)
	case "socks4":
		conn, err = t.connectViaSOCKS4Proxy(ctx, proxy, proxyAddr, targetAddr, proxyTimeout)
	case "socks5":
		conn, err = t.connectViaSOCKS5Proxy(ctx, proxy, proxyAddr, targetAddr, proxyTimeout)
	default:
		return nil, nil, errors.NewValidationError(fmt.Sprintf("unsupported proxy type: %s", proxy.Type))
	}

	if err != nil {
		return nil, nil, errors.NewProxyError(proxyAddr, err)
	}

	if remoteAddr := conn.RemoteAddr(); remoteAddr != nil {
		if tcpAddr, ok := remoteAddr.(*net.TCPAddr); ok {
			metadata.ConnectedIP = tcpAddr.IP.String()
			metadata.ConnectedPort = tcpAddr.Port
		}
	}

	return conn, metadata, nil
}

// connectViaHTTPProxy tunnels through an HTTP/HTTPS CONNECT proxy.
//
// The proxy's own scheme (http vs https) governs how we connect TO the
// proxy; the target's scheme governs what travels THROUGH the resulting
// tunnel. An http:// proxy can still tunnel an https:// target — the hop
// to the proxy is cleartext, but the tunneled bytes are TLS from the
// target's perspective.
func (t *Transport) connectViaHTTPProxy(ctx context.Context, proxy *ProxyConfig, proxyAddr string, config Config, targetAddr string, timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to proxy: %w", err)
	}

	if proxy.Type == "https" {
		proxyTLSConfig := proxy.TLSConfig
		if proxyTLSConfig == nil {
			proxyTLSConfig = &tls.Config{
				ServerName:         proxy.Host,
				InsecureSkipVerify: config.InsecureTLS,
			}
		} else {
			proxyTLSConfig = proxyTLSConfig.Clone()
			if config.InsecureTLS {
				proxyTLSConfig.InsecureSkipVerify = true
			}
			if proxyTLSConfig.ServerName == "" {
				proxyTLSConfig.ServerName = proxy.Host
			}
		}

		tlsConn := tls.Client(conn, proxyTLSConfig)
		if err := tlsConn.Handshake(); err != nil {
			conn.Close()
			return nil, fmt.Errorf("TLS handshake to proxy failed: %w", err)
		}
		conn = tlsConn
	}

	connectReq := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\nConnection: keep-alive\r\n", targetAddr, config.Host)
	for key, value := range proxy.ProxyHeaders {
		connectReq += fmt.Sprintf("%s: %s\r\n", key, value)
	}
	if proxy.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(proxy.Username + ":" + proxy.Password))
		connectReq += fmt.Sprintf("Proxy-Authorization: Basic %s\r\n", auth)
	}
	connectReq += "\r\n"

	if _, err := conn.Write([]byte(connectReq)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send CONNECT request: %w", err)
	}

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read CONNECT response: %w", err)
	}
	if !strings.Contains(statusLine, " 200") {
		conn.Close()
		return nil, fmt.Errorf("proxy CONNECT failed: %s", strings.TrimSpace(statusLine))
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to read CONNECT response headers: %w", err)
		}
		if line == "\r\n" || line == "\n" {
			break
		}
	}

	return conn, nil
}

// connectViaSOCKS4Proxy connects through a SOCKS4 proxy. SOCKS4 is IPv4
// only and resolves DNS on our side before the handshake.
//
// Request: [VER=4][CMD=1][PORT(2)][IP(4)][USERID][NULL]
// Response: [VER][STATUS][PORT(2)][IP(4)], STATUS 0x5A = granted.
func (t *Transport) connectViaSOCKS4Proxy(ctx context.Context, proxy *ProxyConfig, proxyAddr string, targetAddr string, timeout time.Duration) (net.Conn, error) {
	host, portStr, err := net.SplitHostPort(targetAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid target address: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("DNS resolution failed for %s: %w", host, err)
	}
	var targetIP net.IP
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			targetIP = ip4
			break
		}
	}
	if targetIP == nil {
		return nil, fmt.Errorf("no IPv4 address found for %s (SOCKS4 requires IPv4)", host)
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SOCKS4 proxy: %w", err)
	}

	req := []byte{0x04, 0x01, byte(port >> 8), byte(port & 0xFF)}
	req = append(req, targetIP...)
	if proxy.Username != "" {
		req = append(req, []byte(proxy.Username)...)
	}
	req = append(req, 0x00)

	if _, err := conn.Write(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send SOCKS4 request: %w", err)
	}

	resp := make([]byte, 8)
	if _, err := io.ReadFull(conn, resp); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read SOCKS4 response: %w", err)
	}

	switch status := resp[1]; status {
	case 0x5A:
		return conn, nil
	case 0x5B:
		conn.Close()
		return nil, fmt.Errorf("SOCKS4 request rejected or failed")
	case 0x5C:
		conn.Close()
		return nil, fmt.Errorf("SOCKS4 request failed: identd not running on client")
	case 0x5D:
		conn.Close()
		return nil, fmt.Errorf("SOCKS4 request failed: identd could not confirm user ID")
	default:
		conn.Close()
		return nil, fmt.Errorf("SOCKS4 unknown status code: 0x%02X", status)
	}
}

// connectViaSOCKS5Proxy connects through a SOCKS5 proxy using
// golang.org/x/net/proxy rather than a hand-rolled handshake: SOCKS5's
// negotiation (auth methods, address types, DNS-via-proxy) has enough
// surface area that a maintained library is worth the dependency.
func (t *Transport) connectViaSOCKS5Proxy(ctx context.Context, proxy *ProxyConfig, proxyAddr string, targetAddr string, timeout time.Duration) (net.Conn, error) {
	var auth *netproxy.Auth
	if proxy.Username != "" {
		auth = &netproxy.Auth{User: proxy.Username, Password: proxy.Password}
	}

	dialer, err := netproxy.SOCKS5("tcp", proxyAddr, auth, &net.Dialer{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	conn, err := dialer.Dial("tcp", targetAddr)
	if err != nil {
		return nil, fmt.Errorf("SOCKS5 connection failed: %w", err)
	}

	return conn, nil
}

// loadClientCertificate loads a client certificate for mutual TLS from
// config, preferring inline PEM bytes over file paths. Returns nil, nil
// when no client certificate is configured.
func (t *Transport) loadClientCertificate(config Config) (*tls.Certificate, error) {
	hasPEM := len(config.ClientCertPEM) > 0 && len(config.ClientKeyPEM) > 0
	hasFile := config.ClientCertFile != "" && config.ClientKeyFile != ""

	if !hasPEM && !hasFile {
		return nil, nil
	}

	var certPEM, keyPEM []byte
	var err error

	if hasPEM {
		certPEM = config.ClientCertPEM
		keyPEM = config.ClientKeyPEM
	} else {
		certPEM, err = os.ReadFile(config.ClientCertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client certificate file %s: %w", config.ClientCertFile, err)
		}
		keyPEM, err = os.ReadFile(config.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client key file %s: %w", config.ClientKeyFile, err)
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client certificate/key: %w", err)
	}
	return &cert, nil
}

// ConfigureSNI applies SNI to tlsConfig: an already-set ServerName wins,
// then disableSNI (leaves it empty), then customSNI, then fallbackHost.
func ConfigureSNI(tlsConfig *tls.Config, customSNI string, disableSNI bool, fallbackHost string) {
	if tlsConfig == nil {
		return
	}
	if tlsConfig.ServerName != "" {
		return
	}
	if disableSNI {
		return
	}
	if customSNI != "" {
		tlsConfig.ServerName = customSNI
	} else {
		tlsConfig.ServerName = fallbackHost
	}
}
