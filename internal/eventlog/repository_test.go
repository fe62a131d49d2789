package eventlog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/fleetdeck/fleetdeck-core/internal/infrastructure/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "events.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	r := NewRepository(db.DB)
	if err := r.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return r
}

func TestRepository_RecordAndRecent(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := r.Record(ctx, fmt.Sprintf("ev-%d", i), "dev-1", "telemetry",
			map[string]any{"seq": i})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if err := r.Record(ctx, "ev-other", "dev-2", "status_change",
		map[string]any{"status": "offline"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	all, err := r.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Recent() len = %d, want 4", len(all))
	}
	// Newest first.
	if all[0].EventID != "ev-other" {
		t.Errorf("newest event = %s, want ev-other", all[0].EventID)
	}

	filtered, err := r.Recent(ctx, "dev-1", 10)
	if err != nil {
		t.Fatalf("Recent(dev-1) error = %v", err)
	}
	if len(filtered) != 3 {
		t.Errorf("Recent(dev-1) len = %d, want 3", len(filtered))
	}
}

func TestRepository_RecordDuplicateIgnored(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	if err := r.Record(ctx, "ev-1", "dev-1", "telemetry", map[string]any{"v": 1}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := r.Record(ctx, "ev-1", "dev-1", "telemetry", map[string]any{"v": 2}); err != nil {
		t.Fatalf("duplicate Record() error = %v", err)
	}

	entries, err := r.Recent(ctx, "dev-1", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Recent() len = %d, want 1 (duplicate ignored)", len(entries))
	}
	if entries[0].Payload["v"] != float64(1) {
		t.Errorf("payload v = %v, want the first write preserved", entries[0].Payload["v"])
	}
}

func TestRepository_RecordValidation(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	if err := r.Record(ctx, "", "dev-1", "telemetry", nil); err == nil {
		t.Error("Record() with empty event id succeeded, want error")
	}
	if err := r.Record(ctx, "ev-1", "", "telemetry", nil); err == nil {
		t.Error("Record() with empty device id succeeded, want error")
	}
}

func TestRepository_RecentLimit(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := r.Record(ctx, fmt.Sprintf("ev-%d", i), "dev-1", "telemetry", nil); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := r.Recent(ctx, "dev-1", 5)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("Recent() len = %d, want 5", len(entries))
	}
}

func TestRepository_Prune(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	if err := r.Record(ctx, "ev-new", "dev-1", "telemetry", nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	// Nothing is older than an hour yet.
	deleted, err := r.Prune(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("Prune() deleted = %d, want 0", deleted)
	}

	if _, err := r.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) succeeded, want error")
	}
}
