package domain

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"
)

// Supported egress protocols.
const (
	ProtocolHTTP   = "http"
	ProtocolHTTPS  = "https"
	ProtocolSocks5 = "socks5"
)

// ProxyEntry is one egress proxy plus its live health counters. The
// registry owns the entry; selectors and callers hold pointers so every
// counter update lands on the authoritative instance.
type ProxyEntry struct {
	Host     string
	Port     uint16
	Protocol string
	Username string
	Password string
	Country  string

	successCount atomic.Uint64
	failureCount atomic.Uint64
	lastUsed     atomic.Int64 // unix nanoseconds, 0 = never
	active       atomic.Bool
}

func NewProxyEntry(host string, port uint16, protocol string) (*ProxyEntry, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case ProtocolHTTP, ProtocolHTTPS, ProtocolSocks5:
	case "":
		protocol = ProtocolHTTP
	default:
		return nil, fmt.Errorf("unsupported proxy protocol %q", protocol)
	}

	host = strings.TrimSpace(host)
	if host == "" {
		return nil, errors.New("proxy host cannot be empty")
	}
	if port == 0 {
		return nil, errors.New("proxy port cannot be zero")
	}

	entry := &ProxyEntry{
		Host:     host,
		Port:     port,
		Protocol: protocol,
	}
	entry.active.Store(true)
	return entry, nil
}

func (entry *ProxyEntry) MarkSuccess() {
	entry.successCount.Add(1)
}

func (entry *ProxyEntry) MarkFailure() {
	entry.failureCount.Add(1)
}

func (entry *ProxyEntry) SuccessCount() uint64 {
	return entry.successCount.Load()
}

func (entry *ProxyEntry) FailureCount() uint64 {
	return entry.failureCount.Load()
}

// SuccessRate reports the observed success ratio and whether the entry has
// any history at all. Entries without history are not judged by rate.
func (entry *ProxyEntry) SuccessRate() (float64, bool) {
	succ := entry.successCount.Load()
	fail := entry.failureCount.Load()
	total := succ + fail
	if total == 0 {
		return 0, false
	}
	return float64(succ) / float64(total), true
}

// SetCounters overwrites the health counters. Only pool reload paths may
// call this; everything else goes through MarkSuccess/MarkFailure.
func (entry *ProxyEntry) SetCounters(successes, failures uint64) {
	entry.successCount.Store(successes)
	entry.failureCount.Store(failures)
}

func (entry *ProxyEntry) LastUsed() time.Time {
	nanos := entry.lastUsed.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func (entry *ProxyEntry) StampLastUsed(now time.Time) {
	entry.lastUsed.Store(now.UnixNano())
}

// IsActive is the advisory probe flag. Selection does not gate on it; the
// failure filters in the registry stay authoritative.
func (entry *ProxyEntry) IsActive() bool {
	return entry.active.Load()
}

func (entry *ProxyEntry) SetActive(active bool) {
	entry.active.Store(active)
}

func (entry *ProxyEntry) Address() string {
	return net.JoinHostPort(entry.Host, fmt.Sprintf("%d", entry.Port))
}

func (entry *ProxyEntry) HasAuth() bool {
	return entry.Username != "" && entry.Password != ""
}

// Key identifies the entry inside the pool. Credentials are excluded so
// the same endpoint with rotated passwords stays one slot.
func (entry *ProxyEntry) Key() string {
	return fmt.Sprintf("%s://%s", entry.Protocol, entry.Address())
}
