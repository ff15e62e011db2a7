package domain

import "time"

// ProxyHealthSnapshot is one archived row of per-proxy health counters.
// The archive is append-only; live selection never reads it.
type ProxyHealthSnapshot struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	ProxyKey     string    `gorm:"size:256;not null;index"`
	Country      string    `gorm:"size:56"`
	SuccessCount uint64    `gorm:"not null"`
	FailureCount uint64    `gorm:"not null"`
	Active       bool      `gorm:"not null"`
	LastUsed     time.Time `gorm:""`
	RecordedAt   time.Time `gorm:"autoCreateTime;index"`
}
