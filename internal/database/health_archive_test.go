package database

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"

	"github.com/DevyRuxpin/Kali-Consulting-sub001/internal/domain"
)

func setupArchiveTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	if _, err := SetupDB(WithDialector(sqlite.Open(dsn))); err != nil {
		t.Fatalf("setup db: %v", err)
	}
	t.Cleanup(func() { DB = nil })
}

func archiveTestEntry(t *testing.T, host string, successes, failures uint64) *domain.ProxyEntry {
	t.Helper()
	entry, err := domain.NewProxyEntry(host, 8080, domain.ProtocolHTTP)
	if err != nil {
		t.Fatalf("new entry: %v", err)
	}
	entry.SetCounters(successes, failures)
	return entry
}

func TestArchiveSnapshots(t *testing.T) {
	setupArchiveTestDB(t)

	entries := []*domain.ProxyEntry{
		archiveTestEntry(t, "10.0.0.1", 5, 1),
		archiveTestEntry(t, "10.0.0.2", 0, 3),
	}
	entries[0].Country = "DE"

	if err := ArchiveSnapshots(entries); err != nil {
		t.Fatalf("archive: %v", err)
	}

	rows, err := SnapshotsSince(entries[0].Key(), time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.ProxyKey != entries[0].Key() || row.Country != "DE" {
		t.Fatalf("row = %+v", row)
	}
	if row.SuccessCount != 5 || row.FailureCount != 1 {
		t.Fatalf("counters = %d/%d, want 5/1", row.SuccessCount, row.FailureCount)
	}
}

func TestArchiveSnapshotsEmptySlice(t *testing.T) {
	setupArchiveTestDB(t)

	if err := ArchiveSnapshots(nil); err != nil {
		t.Fatalf("empty archive should be a no-op, got %v", err)
	}
}

func TestSnapshotsSinceFiltersByTime(t *testing.T) {
	setupArchiveTestDB(t)

	entry := archiveTestEntry(t, "10.0.0.1", 1, 0)
	old := domain.ProxyHealthSnapshot{
		ProxyKey:   entry.Key(),
		RecordedAt: time.Now().Add(-48 * time.Hour),
	}
	if err := DB.Create(&old).Error; err != nil {
		t.Fatalf("seed old row: %v", err)
	}
	if err := ArchiveSnapshots([]*domain.ProxyEntry{entry}); err != nil {
		t.Fatalf("archive: %v", err)
	}

	rows, err := SnapshotsSince(entry.Key(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want only the fresh snapshot", len(rows))
	}
}

func TestPruneSnapshots(t *testing.T) {
	setupArchiveTestDB(t)

	entry := archiveTestEntry(t, "10.0.0.1", 1, 0)
	stale := domain.ProxyHealthSnapshot{
		ProxyKey:   entry.Key(),
		RecordedAt: time.Now().Add(-30 * 24 * time.Hour),
	}
	if err := DB.Create(&stale).Error; err != nil {
		t.Fatalf("seed stale row: %v", err)
	}
	if err := ArchiveSnapshots([]*domain.ProxyEntry{entry}); err != nil {
		t.Fatalf("archive: %v", err)
	}

	deleted, err := PruneSnapshots(time.Now().Add(-7 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	rows, err := SnapshotsSince(entry.Key(), time.Time{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want the fresh snapshot to survive", len(rows))
	}
}

func TestArchiveWithoutSetup(t *testing.T) {
	DB = nil

	if err := ArchiveSnapshots([]*domain.ProxyEntry{archiveTestEntry(t, "10.0.0.1", 0, 0)}); err == nil {
		t.Fatal("archive before setup must fail")
	}
	if _, err := SnapshotsSince("http://10.0.0.1:8080", time.Time{}); err == nil {
		t.Fatal("query before setup must fail")
	}
	if _, err := PruneSnapshots(time.Now()); err == nil {
		t.Fatal("prune before setup must fail")
	}
}
