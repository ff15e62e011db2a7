package proxy

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	xproxy "golang.org/x/net/proxy"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/domain"
)

// BuildTransport returns an http.Transport routing through the given
// entry. Keep-alives are disabled so one request maps to one upstream
// connection and health accounting stays honest.
func BuildTransport(entry *domain.ProxyEntry) (*http.Transport, error) {
	if entry == nil {
		return nil, domain.ErrNoProxyAvailable
	}

	transport := &http.Transport{
		DisableKeepAlives:   true,
		MaxIdleConns:        0,
		IdleConnTimeout:     0,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	switch strings.ToLower(entry.Protocol) {
	case domain.ProtocolHTTP, domain.ProtocolHTTPS:
		proxyURL := &url.URL{
			Scheme: strings.ToLower(entry.Protocol),
			Host:   entry.Address(),
		}
		if entry.HasAuth() {
			proxyURL.User = url.UserPassword(entry.Username, entry.Password)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		if proxyURL.Scheme == domain.ProtocolHTTPS {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
	case domain.ProtocolSocks5:
		var auth *xproxy.Auth
		if entry.HasAuth() {
			auth = &xproxy.Auth{User: entry.Username, Password: entry.Password}
		}
		dialer, err := xproxy.SOCKS5("tcp", entry.Address(), auth, &net.Dialer{Timeout: 10 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("build socks5 dialer for %s: %w", entry.Address(), err)
		}
		if contextDialer, ok := dialer.(xproxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.Dial = dialer.Dial
		}
	default:
		return nil, fmt.Errorf("unsupported proxy protocol %q", entry.Protocol)
	}

	return transport, nil
}

// ClientFor wraps BuildTransport in an http.Client with the given
// timeout.
func ClientFor(entry *domain.ProxyEntry, timeout time.Duration) (*http.Client, error) {
	transport, err := BuildTransport(entry)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}
