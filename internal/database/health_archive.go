package database

import (
	"fmt"
	"time"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/domain"
)

// ArchiveSnapshots appends one health row per pool entry.
func ArchiveSnapshots(entries []*domain.ProxyEntry) error {
	if DB == nil {
		return fmt.Errorf("database not initialised")
	}
	if len(entries) == 0 {
		return nil
	}

	rows := make([]domain.ProxyHealthSnapshot, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, domain.ProxyHealthSnapshot{
			ProxyKey:     entry.Key(),
			Country:      entry.Country,
			SuccessCount: entry.SuccessCount(),
			FailureCount: entry.FailureCount(),
			Active:       entry.IsActive(),
			LastUsed:     entry.LastUsed(),
		})
	}

	return DB.CreateInBatches(rows, 200).Error
}

// SnapshotsSince returns archived rows for one proxy key, newest first.
func SnapshotsSince(proxyKey string, since time.Time) ([]domain.ProxyHealthSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialised")
	}

	var rows []domain.ProxyHealthSnapshot
	err := DB.
		Where("proxy_key = ? AND recorded_at >= ?", proxyKey, since).
		Order("recorded_at DESC").
		Find(&rows).Error
	return rows, err
}

// PruneSnapshots deletes archive rows older than the retention horizon.
func PruneSnapshots(olderThan time.Time) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialised")
	}

	result := DB.
		Where("recorded_at < ?", olderThan).
		Delete(&domain.ProxyHealthSnapshot{})
	return result.RowsAffected, result.Error
}
