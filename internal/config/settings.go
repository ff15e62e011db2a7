package config

import (
	_ "embed"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/ratelimit"
)

type Config struct {
	Proxy struct {
		PoolFile         string  `json:"pool_file"`
		MaxFailures      uint64  `json:"max_failures"`
		MinSuccessRate   float64 `json:"min_success_rate"`
		RotationSeconds  uint32  `json:"rotation_seconds"`
		ProbeURL         string  `json:"probe_url"`
		ProbeTimeoutMs   uint32  `json:"probe_timeout_ms"`
		GeoLiteDB        string  `json:"geolite_db,omitempty"`
		MaintenanceTimer Timer   `json:"maintenance_timer"`
	} `json:"proxy"`

	RateLimit struct {
		Classes map[string]RateLimitClass `json:"classes"`
	} `json:"rate_limit"`

	Breaker struct {
		FailureThreshold int    `json:"failure_threshold"`
		TimeoutSeconds   uint32 `json:"timeout_seconds"`
	} `json:"breaker"`

	Retry struct {
		MaxRetries  int    `json:"max_retries"`
		BaseDelayMs uint32 `json:"base_delay_ms"`
	} `json:"retry"`

	Gateway struct {
		AllowDirect bool `json:"allow_direct"`
	} `json:"gateway"`
}

// RateLimitClass is the on-disk shape of one operation-class limit.
type RateLimitClass struct {
	Strategy      string  `json:"strategy"`
	Limit         int     `json:"limit,omitempty"`
	WindowSeconds uint32  `json:"window_seconds,omitempty"`
	Capacity      float64 `json:"capacity,omitempty"`
	RefillRate    float64 `json:"refill_rate,omitempty"`
}

// Classes converts the configured classes into the limiter mapping,
// falling back to the built-in defaults when the section is empty or
// invalid.
func (c Config) Classes() ratelimit.Classes {
	if len(c.RateLimit.Classes) == 0 {
		return ratelimit.DefaultClasses()
	}

	classes := make(ratelimit.Classes, len(c.RateLimit.Classes))
	for name, raw := range c.RateLimit.Classes {
		classes[name] = ratelimit.ClassConfig{
			Strategy:   ratelimit.Strategy(raw.Strategy),
			Limit:      raw.Limit,
			Window:     time.Duration(raw.WindowSeconds) * time.Second,
			Capacity:   raw.Capacity,
			RefillRate: raw.RefillRate,
		}
	}

	if err := classes.Validate(); err != nil {
		log.Error("invalid rate limit classes, using defaults", "error", err)
		return ratelimit.DefaultClasses()
	}
	return classes
}

const settingsFilePath = "data/settings.json"

var (
	//go:embed default_settings.json
	defaultConfig []byte

	configValue atomic.Value
	configMu    sync.Mutex
)

func init() {
	var cfg Config
	if err := json.Unmarshal(defaultConfig, &cfg); err == nil {
		configValue.Store(cfg)
	} else {
		configValue.Store(Config{})
	}
}

// ReadSettings loads the settings file, creating it from the embedded
// defaults on first run.
func ReadSettings() {
	data, err := os.ReadFile(settingsFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Settings file not found, creating with default configuration")

			if err := os.MkdirAll("data", os.ModePerm); err != nil {
				log.Error("Error creating directory for settings file:", "error", err)
				return
			}
			if err := os.WriteFile(settingsFilePath, defaultConfig, os.ModePerm); err != nil {
				log.Error("Error writing default settings file:", "error", err)
				return
			}

			data = defaultConfig
		} else {
			log.Error("Error reading settings file:", "error", err)
			return
		}
	}

	var newConfig Config
	if err := json.Unmarshal(data, &newConfig); err != nil {
		log.Error("Error unmarshalling settings file:", "error", err)
		return
	}

	applyConfigUpdate(newConfig, false)
	log.Debug("Settings file loaded successfully")
}

// SetConfig applies and persists a new configuration.
func SetConfig(newConfig Config) {
	applyConfigUpdate(newConfig, true)
}

func applyConfigUpdate(newConfig Config, persist bool) {
	configMu.Lock()
	defer configMu.Unlock()

	configValue.Store(newConfig)

	if !persist {
		return
	}

	data, err := json.MarshalIndent(newConfig, "", "  ")
	if err != nil {
		log.Error("Error marshalling new configuration:", "error", err)
		return
	}
	if err := os.WriteFile(settingsFilePath, data, os.ModePerm); err != nil {
		log.Error("Error writing new configuration to file:", "error", err)
	}
}

func GetConfig() Config {
	return configValue.Load().(Config)
}
