package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"
)

// aeadSuites are the TLS 1.2 suites offered; TLS 1.3 suites are fixed by Go.
var aeadSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// ClientOptions tunes the HTTP client used for API calls and asset downloads.
type ClientOptions struct {
	// Timeout bounds one request, body included. Zero disables it.
	Timeout time.Duration
	// MaxIdleConnsPerHost keeps connections to the API host warm between polls.
	MaxIdleConnsPerHost int
	// Proxy overrides http.ProxyFromEnvironment.
	Proxy func(*http.Request) (*url.URL, error)
}

// DefaultTLSConfig returns a client TLS configuration: TLS 1.2+, AEAD-only.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		CipherSuites: append([]uint16(nil), aeadSuites...),
	}
}

// NewTransport returns an http.Transport with TLS hardening and pooling
// suited to one API host polled repeatedly.
func NewTransport(opts ClientOptions) *http.Transport {
	perHost := opts.MaxIdleConnsPerHost
	if perHost <= 0 {
		perHost = 8
	}
	proxy := http.ProxyFromEnvironment
	if opts.Proxy != nil {
		proxy = opts.Proxy
	}
	return &http.Transport{
		Proxy:           proxy,
		TLSClientConfig: DefaultTLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          4 * perHost,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: time.Minute,
		ExpectContinueTimeout: time.Second,
	}
}

// NewHTTPClient returns an http.Client backed by NewTransport.
func NewHTTPClient(opts ClientOptions) *http.Client {
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: NewTransport(opts),
	}
}
