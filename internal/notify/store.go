package notify

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Capacity is the maximum number of notifications held in memory.
// Appends beyond capacity truncate from the front (oldest first),
// regardless of read state.
const Capacity = 50

// localIDPrefix marks entries synthesised on this client. Server-assigned
// ids never carry the prefix, so the two id spaces cannot collide.
const localIDPrefix = "local-"

// Logger interface for structured logging support.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// API is the REST collaborator consumed by the store.
// Implemented by Client; substituted in tests.
type API interface {
	List(ctx context.Context) ([]Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Store maintains the client view of a per-user notification list fed by
// three independent channels: bulk REST load, server push over the stream,
// and local user mutations mirrored to the REST backend.
//
// Local mutations are optimistic: the in-memory list is updated first, then
// the REST call is issued. On REST failure the optimistic change is discarded
// by a full reload — reconciliation, not fine-grained rollback. On REST
// success nothing further happens; the optimistic state is assumed to match.
//
// Thread Safety: all methods are safe for concurrent use. Pushes arrive on
// the session's read loop while mutations and reloads run on caller
// goroutines; the internal list is mutex-guarded so an in-flight reload and
// a concurrent push cannot lose updates.
type Store struct {
	api    API
	userID string
	logger Logger

	mu    sync.Mutex
	items []Notification
}

// NewStore creates an empty notification store.
//
// Parameters:
//   - api: REST collaborator for loads and mutation mirroring
//   - userID: Authenticated user; pushes for other users are dropped
//   - logger: Logger for reconciliation and tenancy diagnostics
//
// Returns:
//   - *Store: Empty store ready for Reload
//   - error: Wrapped ErrMissingDependency if api, userID or logger is absent
func NewStore(api API, userID string, logger Logger) (*Store, error) {
	if api == nil {
		return nil, errMissing("api client")
	}
	if userID == "" {
		return nil, errMissing("user id")
	}
	if logger == nil {
		return nil, errMissing("logger")
	}
	return &Store{api: api, userID: userID, logger: logger}, nil
}

// Reload fetches the authoritative list from the backend and replaces the
// in-memory list wholesale (not a merge). Locally-synthesised entries are
// discarded along with everything else; the server's view wins.
func (s *Store) Reload(ctx context.Context) error {
	notifications, err := s.api.List(ctx)
	if err != nil {
		return err
	}
	if len(notifications) > Capacity {
		notifications = notifications[len(notifications)-Capacity:]
	}

	s.mu.Lock()
	s.items = notifications
	s.mu.Unlock()

	s.logger.Debug("notifications reloaded", "count", len(notifications))
	return nil
}

// HandlePush appends a server-pushed notification.
//
// The payload's user_id must match the session's user; a mismatch is dropped
// and logged at warning level (cross-tenant leakage guard), never appended.
func (s *Store) HandlePush(data []byte) {
	var w wireNotification
	if err := json.Unmarshal(data, &w); err != nil {
		s.logger.Warn("dropping malformed notification push", "error", err)
		return
	}
	if w.UserID != s.userID {
		s.logger.Warn("dropping cross-tenant notification push",
			"notification_user", w.UserID, "session_user", s.userID)
		return
	}

	s.mu.Lock()
	s.appendLocked(w.toNotification())
	s.mu.Unlock()
}

// AddLocal appends a locally-synthesised entry (command completion). The
// entry exists only on this client until the next reload discards it.
func (s *Store) AddLocal(notifType, title, message, deviceID string) {
	n := Notification{
		ID:        localIDPrefix + uuid.NewString(),
		Type:      notifType,
		Title:     title,
		Message:   message,
		DeviceID:  deviceID,
		UserID:    s.userID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	s.mu.Lock()
	s.appendLocked(n)
	s.mu.Unlock()
}

// appendLocked appends and enforces the capacity by truncating from the
// front. Caller must hold s.mu.
func (s *Store) appendLocked(n Notification) {
	s.items = append(s.items, n)
	if len(s.items) > Capacity {
		trimmed := make([]Notification, Capacity)
		copy(trimmed, s.items[len(s.items)-Capacity:])
		s.items = trimmed
	}
}

// All returns a copy of the list, oldest first.
func (s *Store) All() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]Notification, len(s.items))
	copy(items, s.items)
	return items
}

// UnreadCount returns the number of unread notifications.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead optimistically marks one notification read, then mirrors the
// change to the backend. Local-only entries are mutated without a REST call.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			break
		}
	}
	s.mu.Unlock()

	if isLocalID(id) {
		return nil
	}
	if err := s.api.MarkRead(ctx, id); err != nil {
		s.reconcile(ctx, "mark read", err)
		return err
	}
	return nil
}

// MarkAllRead optimistically marks every notification read, then mirrors
// the change to the backend.
func (s *Store) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.mu.Unlock()

	if err := s.api.MarkAllRead(ctx); err != nil {
		s.reconcile(ctx, "mark all read", err)
		return err
	}
	return nil
}

// Delete optimistically removes one notification, then mirrors the change
// to the backend. Local-only entries are removed without a REST call.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if isLocalID(id) {
		return nil
	}
	if err := s.api.Delete(ctx, id); err != nil {
		s.reconcile(ctx, "delete", err)
		return err
	}
	return nil
}

// Clear optimistically empties the list, then mirrors the change to the
// backend.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	if err := s.api.Clear(ctx); err != nil {
		s.reconcile(ctx, "clear", err)
		return err
	}
	return nil
}

// reconcile discards optimistic state after a failed mutation by reloading
// the authoritative list. Reload failure leaves the optimistic state in
// place until the next successful reload supersedes it.
func (s *Store) reconcile(ctx context.Context, op string, cause error) {
	s.logger.Warn("notification mutation failed, reconciling", "op", op, "error", cause)
	if err := s.Reload(ctx); err != nil {
		s.logger.Error("notification reconciliation reload failed", "op", op, "error", err)
	}
}

// isLocalID reports whether the id names a locally-synthesised entry.
func isLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}
