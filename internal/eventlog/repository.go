package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// Entry is one archived fleet event.
type Entry struct {
	ID        int64          `json:"id"`
	EventID   string         `json:"event_id"`
	DeviceID  string         `json:"device_id"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// Repository persists routed fleet events to SQLite so the activity feed
// survives restarts (the in-memory feed holds only the most recent entries).
type Repository struct {
	db *sql.DB
}

// NewRepository creates an event archive repository.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *Repository: Repository instance; call Init before first use
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init creates the fleet_events table and its indexes if absent.
func (r *Repository) Init(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS fleet_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL UNIQUE,
	device_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fleet_events_device ON fleet_events(device_id, created_at);
CREATE INDEX IF NOT EXISTS idx_fleet_events_created ON fleet_events(created_at);`

	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating fleet_events schema: %w", err)
	}
	return nil
}

// Record inserts one event. A duplicate event id is ignored so replayed
// events cannot double-archive.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - eventID: Unique event identifier
//   - deviceID: Device the event concerns
//   - kind: Event kind (telemetry, status_change)
//   - payload: Event data snapshot
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Record(ctx context.Context, eventID, deviceID, kind string, payload map[string]any) error {
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if payload == nil {
		payload = map[string]any{}
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO fleet_events (event_id, device_id, kind, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		eventID,
		deviceID,
		kind,
		string(payloadJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting fleet event: %w", err)
	}
	return nil
}

// Recent returns archived events ordered newest first, optionally filtered
// by device.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Filter to one device; empty means all devices
//   - limit: Maximum entries to return (default 50, max 500)
//
// Returns:
//   - []Entry: Entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *Repository) Recent(ctx context.Context, deviceID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	query := `SELECT id, event_id, device_id, kind, payload, created_at
		 FROM fleet_events`
	args := []any{}
	if deviceID != "" {
		query += " WHERE device_id = ?"
		args = append(args, deviceID)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying fleet events: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-side close

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var payloadJSON string
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.EventID, &entry.DeviceID, &entry.Kind, &payloadJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning fleet event: %w", err)
		}
		if err := json.Unmarshal([]byte(payloadJSON), &entry.Payload); err != nil {
			return nil, fmt.Errorf("unmarshalling payload: %w", err)
		}

		timestamp, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fleet events: %w", err)
	}

	return entries, nil
}

// Prune deletes archived events older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Retention window; entries older than now-olderThan are deleted
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM fleet_events WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting fleet events: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}
