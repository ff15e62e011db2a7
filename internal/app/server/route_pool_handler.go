package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/domain"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/proxy"
)

type poolEntry struct {
	Host         string    `json:"host"`
	Port         uint16    `json:"port"`
	Protocol     string    `json:"protocol"`
	Country      string    `json:"country,omitempty"`
	SuccessCount uint64    `json:"success_count"`
	FailureCount uint64    `json:"failure_count"`
	Active       bool      `json:"active"`
	LastUsed     time.Time `json:"last_used,omitzero"`
	Key          string    `json:"key"`
}

func (deps Deps) handlePoolList(w http.ResponseWriter, _ *http.Request) {
	entries := deps.Registry.Snapshot()
	out := make([]poolEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, poolEntry{
			Host:         entry.Host,
			Port:         entry.Port,
			Protocol:     entry.Protocol,
			Country:      entry.Country,
			SuccessCount: entry.SuccessCount(),
			FailureCount: entry.FailureCount(),
			Active:       entry.IsActive(),
			LastUsed:     entry.LastUsed(),
			Key:          entry.Key(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"proxies": out, "usable": deps.Registry.Usable()})
}

type poolImportRequest struct {
	Protocol string `json:"protocol,omitempty"`
	Proxies  string `json:"proxies"`
}

// handlePoolImport accepts a host:port[:user:pass] list, one per line.
func (deps Deps) handlePoolImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	var req poolImportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		// Raw text upload is fine too.
		req.Proxies = string(body)
	}
	if req.Protocol == "" {
		req.Protocol = domain.ProtocolHTTP
	}

	entries := proxy.ParseProxyList(req.Proxies, req.Protocol)
	for _, entry := range entries {
		deps.Registry.Add(entry)
	}

	writeJSON(w, http.StatusOK, map[string]int{"imported": len(entries), "pool_size": deps.Registry.Len()})
}

func (deps Deps) handlePoolClear(w http.ResponseWriter, _ *http.Request) {
	deps.Registry.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (deps Deps) handlePoolProbe(w http.ResponseWriter, r *http.Request) {
	healthy, unhealthy := deps.Registry.ProbeAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"healthy": healthy, "unhealthy": unhealthy})
}

func (deps Deps) handlePoolSave(w http.ResponseWriter, _ *http.Request) {
	if deps.PoolFile == "" {
		writeError(w, "pool persistence not configured", http.StatusServiceUnavailable)
		return
	}
	if err := deps.Registry.Save(deps.PoolFile); err != nil {
		writeError(w, "failed to save pool", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
