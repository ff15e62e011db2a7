package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/domain"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/gateway"
)

type acquireRequest struct {
	ClientKey  string `json:"client_key"`
	Class      string `json:"class"`
	Dependency string `json:"dependency,omitempty"`
}

type proxyInfo struct {
	Host     string `json:"host"`
	Port     uint16 `json:"port"`
	Protocol string `json:"protocol"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Country  string `json:"country,omitempty"`
	Key      string `json:"key"`
}

type acquireResponse struct {
	Allowed    bool       `json:"allowed"`
	Class      string     `json:"class"`
	Strategy   string     `json:"strategy"`
	Remaining  int        `json:"remaining"`
	RetryAfter float64    `json:"retry_after_seconds,omitempty"`
	FailedOpen bool       `json:"failed_open,omitempty"`
	Proxy      *proxyInfo `json:"proxy,omitempty"`
}

// handleAcquire is the "can I make this request, and through what
// channel" call for sibling services. Rate-limit headers accompany both
// outcomes.
func (deps Deps) handleAcquire(w http.ResponseWriter, r *http.Request) {
	var req acquireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClientKey == "" {
		writeError(w, "client_key is required", http.StatusBadRequest)
		return
	}

	ch, err := deps.Gateway.Acquire(r.Context(), gateway.Request{
		ClientKey:  req.ClientKey,
		Class:      req.Class,
		Dependency: req.Dependency,
	})

	if err != nil {
		if rle, ok := domain.IsRateLimited(err); ok {
			// Denied admission still reports the limit context.
			if ch != nil {
				ch.Decision.ApplyHeaders(w.Header())
			}
			writeJSON(w, http.StatusTooManyRequests, acquireResponse{
				Allowed:    false,
				Class:      rle.Class,
				RetryAfter: rle.RetryAfter.Seconds(),
			})
			return
		}
		if errors.Is(err, domain.ErrNoProxyAvailable) {
			writeError(w, "no proxy available", http.StatusServiceUnavailable)
			return
		}
		writeError(w, "admission failed", http.StatusInternalServerError)
		return
	}

	ch.Decision.ApplyHeaders(w.Header())

	resp := acquireResponse{
		Allowed:    true,
		Class:      ch.Decision.Class,
		Strategy:   string(ch.Decision.Strategy),
		Remaining:  ch.Decision.Remaining,
		FailedOpen: ch.Decision.FailedOpen,
	}
	if ch.Entry != nil {
		resp.Proxy = &proxyInfo{
			Host:     ch.Entry.Host,
			Port:     ch.Entry.Port,
			Protocol: ch.Entry.Protocol,
			Username: ch.Entry.Username,
			Password: ch.Entry.Password,
			Country:  ch.Entry.Country,
			Key:      ch.Entry.Key(),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type reportRequest struct {
	ProxyKey string `json:"proxy_key"`
	Success  bool   `json:"success"`
}

// handleReport closes the loop for callers that made their request out
// of process: success or failure lands on the named proxy's counters.
func (deps Deps) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProxyKey == "" {
		writeError(w, "proxy_key is required", http.StatusBadRequest)
		return
	}

	for _, entry := range deps.Registry.Snapshot() {
		if entry.Key() != req.ProxyKey {
			continue
		}
		if req.Success {
			deps.Registry.MarkSuccess(entry)
		} else {
			deps.Registry.MarkFailure(entry)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
		return
	}

	writeError(w, "unknown proxy key", http.StatusNotFound)
}
