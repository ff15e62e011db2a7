package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/domain"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/security"
)

// Env vars for the minimal single-proxy deployment.
const (
	EnvProxyHost = "PROXY_HOST"
	EnvProxyPort = "PROXY_PORT"
	EnvProxyUser = "PROXY_USER"
	EnvProxyPass = "PROXY_PASS"
)

type poolRecord struct {
	Host         string `json:"host"`
	Port         uint16 `json:"port"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	Protocol     string `json:"protocol"`
	Country      string `json:"country,omitempty"`
	SuccessCount uint64 `json:"success_count"`
	FailureCount uint64 `json:"failure_count"`
	Active       bool   `json:"active"`
}

type poolFile struct {
	UpdatedAt time.Time    `json:"updated_at"`
	Proxies   []poolRecord `json:"proxies"`
}

// Save writes the pool, counters included, so health history survives a
// restart. Passwords are encrypted when a pool key is configured;
// otherwise they are written as-is with a warning.
func (r *Registry) Save(path string) error {
	entries := r.Snapshot()

	file := poolFile{
		UpdatedAt: time.Now().UTC(),
		Proxies:   make([]poolRecord, 0, len(entries)),
	}

	for _, entry := range entries {
		password := entry.Password
		if password != "" {
			encrypted, err := security.EncryptCredential(password)
			switch {
			case err == nil:
				password = encrypted
			case errors.Is(err, security.ErrNoEncryptionKey):
				log.Warn("saving proxy credentials unencrypted", "proxy", entry.Address())
			default:
				return fmt.Errorf("encrypt credentials for %s: %w", entry.Address(), err)
			}
		}

		file.Proxies = append(file.Proxies, poolRecord{
			Host:         entry.Host,
			Port:         entry.Port,
			Username:     entry.Username,
			Password:     password,
			Protocol:     entry.Protocol,
			Country:      entry.Country,
			SuccessCount: entry.SuccessCount(),
			FailureCount: entry.FailureCount(),
			Active:       entry.IsActive(),
		})
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal proxy pool: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create pool directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write proxy pool file: %w", err)
	}

	log.Debug("proxy pool saved", "path", path, "proxies", len(file.Proxies))
	return nil
}

// Load replaces the pool with the contents of path. A missing file is
// not an error, the pool just starts empty.
func (r *Registry) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("no proxy pool file, starting empty", "path", path)
			return nil
		}
		return fmt.Errorf("read proxy pool file: %w", err)
	}

	var file poolFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse proxy pool file: %w", err)
	}

	r.Clear()
	loaded := 0
	for _, record := range file.Proxies {
		entry, err := domain.NewProxyEntry(record.Host, record.Port, record.Protocol)
		if err != nil {
			log.Warn("skipping invalid pool record", "host", record.Host, "error", err)
			continue
		}

		entry.Username = record.Username
		entry.Country = record.Country
		entry.SetCounters(record.SuccessCount, record.FailureCount)
		entry.SetActive(record.Active)

		if record.Password != "" {
			password, err := security.DecryptCredential(record.Password)
			if err != nil {
				log.Warn("skipping pool record with undecryptable credentials", "proxy", entry.Address(), "error", err)
				continue
			}
			entry.Password = password
		}

		r.Add(entry)
		loaded++
	}

	log.Info("proxy pool loaded", "path", path, "proxies", loaded, "updated_at", file.UpdatedAt)
	return nil
}

// LoadFromEnv merges the env-provided single proxy into the pool, for
// deployments that run with exactly one egress.
func (r *Registry) LoadFromEnv() bool {
	host := strings.TrimSpace(os.Getenv(EnvProxyHost))
	rawPort := strings.TrimSpace(os.Getenv(EnvProxyPort))
	if host == "" || rawPort == "" {
		return false
	}

	port, err := strconv.ParseUint(rawPort, 10, 16)
	if err != nil || port == 0 {
		log.Warn("ignoring env proxy with invalid port", "value", rawPort)
		return false
	}

	entry, err := domain.NewProxyEntry(host, uint16(port), domain.ProtocolHTTP)
	if err != nil {
		log.Warn("ignoring invalid env proxy", "error", err)
		return false
	}
	entry.Username = os.Getenv(EnvProxyUser)
	entry.Password = os.Getenv(EnvProxyPass)

	r.Add(entry)
	log.Info("merged proxy from environment", "proxy", entry.Address())
	return true
}

// ParseProxyList turns a text blob of host:port[:user:pass] lines into
// entries, skipping anything malformed. Bulk import helper for seed
// lists and operator uploads.
func ParseProxyList(text, protocol string) []*domain.ProxyEntry {
	lines := strings.Split(strings.ReplaceAll(text, "\r", ""), "\n")
	entries := make([]*domain.ProxyEntry, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ":")
		if len(parts) != 2 && len(parts) != 4 {
			continue
		}

		port, err := strconv.ParseUint(parts[1], 10, 16)
		if err != nil || port == 0 {
			continue
		}

		entry, err := domain.NewProxyEntry(parts[0], uint16(port), protocol)
		if err != nil {
			continue
		}
		if len(parts) == 4 {
			entry.Username = parts[2]
			entry.Password = parts[3]
		}

		entries = append(entries, entry)
	}

	return entries
}
