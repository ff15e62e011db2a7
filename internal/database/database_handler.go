// Package database persists health-history snapshots of the proxy pool
// for the wider platform's reporting surface. The live pool never reads
// from here; the file-based pool store stays authoritative.
package database

import (
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/domain"
	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/support"
)

var DB *gorm.DB

type Config struct {
	ExistingDB *gorm.DB
	Dialector  gorm.Dialector
}

type Option func(*Config)

func WithExistingDB(db *gorm.DB) Option {
	return func(cfg *Config) { cfg.ExistingDB = db }
}

func WithDialector(dialector gorm.Dialector) Option {
	return func(cfg *Config) { cfg.Dialector = dialector }
}

// SetupDB opens the archive database and migrates its schema. Without
// options it builds a Postgres DSN from the environment.
func SetupDB(opts ...Option) (*gorm.DB, error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	switch {
	case cfg.ExistingDB != nil:
		DB = cfg.ExistingDB
	case cfg.Dialector != nil:
		db, err := gorm.Open(cfg.Dialector, &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("database: open connection: %w", err)
		}
		DB = db
	default:
		db, err := gorm.Open(postgres.Open(buildDSN()), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("database: open connection: %w", err)
		}
		DB = db
	}

	if err := DB.AutoMigrate(&domain.ProxyHealthSnapshot{}); err != nil {
		return nil, fmt.Errorf("database: migrate schema: %w", err)
	}

	log.Debug("archive database ready")
	return DB, nil
}

func buildDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		support.GetEnv("DB_HOST", "localhost"),
		support.GetEnv("DB_USER", "postgres"),
		support.GetEnv("DB_PASSWORD", ""),
		support.GetEnv("DB_NAME", "traffic"),
		support.GetEnv("DB_PORT", "5432"),
		support.GetEnv("DB_SSLMODE", "disable"),
	)
}
