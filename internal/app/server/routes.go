package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/gateway"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/jobs/runtime"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/proxy"
)

// Deps carries everything the admission API serves from.
type Deps struct {
	Gateway  *gateway.Gateway
	Registry *proxy.Registry
	Redis    *redis.Client
	PoolFile string
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// OpenRoutes starts the admission API and blocks until the server exits.
func OpenRoutes(port int, deps Deps) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/acquire", deps.handleAcquire)
	mux.HandleFunc("POST /v1/report", deps.handleReport)

	mux.HandleFunc("GET /v1/pool", deps.handlePoolList)
	mux.HandleFunc("POST /v1/pool", deps.handlePoolImport)
	mux.HandleFunc("DELETE /v1/pool", deps.handlePoolClear)
	mux.HandleFunc("POST /v1/pool/probe", deps.handlePoolProbe)
	mux.HandleFunc("POST /v1/pool/save", deps.handlePoolSave)

	mux.HandleFunc("GET /v1/instances", deps.handleInstances)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	log.Info("admission API listening", "port", port)
	return server.ListenAndServe()
}

func (deps Deps) handleInstances(w http.ResponseWriter, r *http.Request) {
	if deps.Redis == nil {
		writeError(w, "instance tracking not configured", http.StatusServiceUnavailable)
		return
	}

	count, err := runtime.CountActiveInstances(r.Context(), deps.Redis)
	if err != nil {
		writeError(w, "failed to count instances", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"active_instances": count})
}
