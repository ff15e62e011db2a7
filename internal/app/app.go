package app

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/app/server"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/breaker"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/config"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/database"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/gateway"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/jobs/maintenance"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/jobs/runtime"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/metrics"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/proxy"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/ratelimit"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/store"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/support"
)

const defaultPort = 8086

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	log.SetLevel(log.DebugLevel)

	portFlag := flag.Int("port", defaultPort, "Port for the admission API")
	flag.Parse()

	config.ReadSettings()
	cfg := config.GetConfig()

	port := support.GetEnvInt("PORT", *portFlag)

	// The shared Redis store is preferred; a standalone deployment runs
	// on the in-memory store instead.
	var counterStore store.CounterStore
	redisClient := tryRedis()
	if redisClient != nil {
		counterStore = store.NewRedis(redisClient, "traffic")
	} else {
		log.Warn("Redis unavailable, rate limits are process-local")
		counterStore = store.NewMemory()
	}

	registry := proxy.NewRegistry(proxy.Config{
		MaxFailures:      cfg.Proxy.MaxFailures,
		MinSuccessRate:   cfg.Proxy.MinSuccessRate,
		RotationInterval: time.Duration(cfg.Proxy.RotationSeconds) * time.Second,
		ProbeURL:         cfg.Proxy.ProbeURL,
		ProbeTimeout:     time.Duration(cfg.Proxy.ProbeTimeoutMs) * time.Millisecond,
	})
	registry.SetGeoResolver(proxy.OpenGeoResolver(cfg.Proxy.GeoLiteDB))

	if cfg.Proxy.PoolFile != "" {
		if err := registry.Load(cfg.Proxy.PoolFile); err != nil {
			log.Error("failed to load proxy pool", "error", err)
		}
	}
	registry.LoadFromEnv()

	m := metrics.New()
	m.PoolGauges(registry.Len(), registry.Usable())

	admission := ratelimit.NewAdmission(counterStore, cfg.Classes())
	breakers := breaker.NewRegistry(cfg.Breaker.FailureThreshold, time.Duration(cfg.Breaker.TimeoutSeconds)*time.Second)

	gw := gateway.New(registry, admission, breakers, m, gateway.Config{
		MaxRetries:  cfg.Retry.MaxRetries,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelayMs) * time.Millisecond,
		AllowDirect: cfg.Gateway.AllowDirect,
	})

	archive := false
	if strings.EqualFold(os.Getenv("ARCHIVE_ENABLED"), "true") {
		if _, err := database.SetupDB(); err != nil {
			log.Error("failed to open archive database", "error", err)
		} else {
			archive = true
		}
	}

	ctx := context.Background()

	if redisClient != nil {
		heartbeatCancel := runtime.LaunchInstanceHeartbeat(ctx, redisClient)
		defer heartbeatCancel()
	}

	maintainer := maintenance.NewPoolMaintainer(
		registry,
		cfg.Proxy.PoolFile,
		cfg.Proxy.MaintenanceTimer.Interval(),
		m,
		archive,
	)
	maintenanceCancel := maintainer.Launch(ctx)
	defer maintenanceCancel()

	defer func() {
		if cfg.Proxy.PoolFile != "" {
			if err := registry.Save(cfg.Proxy.PoolFile); err != nil {
				log.Warn("error saving proxy pool on shutdown", "error", err)
			}
		}
		if err := support.CloseRedisClient(); err != nil {
			log.Warn("error closing redis client", "error", err)
		}
	}()

	return server.OpenRoutes(port, server.Deps{
		Gateway:  gw,
		Registry: registry,
		Redis:    redisClient,
		PoolFile: cfg.Proxy.PoolFile,
	})
}

func tryRedis() *redis.Client {
	client, err := support.GetRedisClient()
	if err != nil {
		log.Warn("redis connection failed", "error", err)
		return nil
	}
	return client
}
