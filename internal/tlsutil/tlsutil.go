// Package tlsutil provides hardened HTTP transports for the model invokers.
// 安全加固：TLS 1.2+，仅 AEAD 密码套件。
package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// 上游调用的默认超时
const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultReadTimeout    = 120 * time.Second
)

// DefaultTLSConfig returns a hardened TLS configuration.
// MinVersion TLS 1.2, AEAD-only cipher suites.
func DefaultTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		},
	}
}

// Timeouts 上游连接超时设置
type Timeouts struct {
	// Connect 建立 TCP 连接与 TLS 握手的上限
	Connect time.Duration
	// Read 等待响应头的上限；流式响应体不受其限制
	Read time.Duration
}

// DefaultTimeouts 返回 30s 连接 / 120s 读取
func DefaultTimeouts() Timeouts {
	return Timeouts{Connect: DefaultConnectTimeout, Read: DefaultReadTimeout}
}

// SecureTransport returns an http.Transport with TLS hardening and the given timeouts.
func SecureTransport(t Timeouts) *http.Transport {
	if t.Connect <= 0 {
		t.Connect = DefaultConnectTimeout
	}
	if t.Read <= 0 {
		t.Read = DefaultReadTimeout
	}
	return &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: DefaultTLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   t.Connect,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   t.Connect,
		ResponseHeaderTimeout: t.Read,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// SecureHTTPClient returns an http.Client for request/response calls.
// The whole exchange is bounded by connect + read.
func SecureHTTPClient(t Timeouts) *http.Client {
	tr := SecureTransport(t)
	return &http.Client{
		Timeout:   tr.TLSHandshakeTimeout + tr.ResponseHeaderTimeout,
		Transport: tr,
	}
}

// StreamingHTTPClient returns an http.Client without an overall deadline, for
// long-lived streaming responses. Cancellation is driven by the request context.
func StreamingHTTPClient(t Timeouts) *http.Client {
	return &http.Client{Transport: SecureTransport(t)}
}
