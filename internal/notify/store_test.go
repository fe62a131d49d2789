package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// fakeAPI scripts the REST collaborator.
type fakeAPI struct {
	mu       sync.Mutex
	server   []Notification
	failNext bool
	calls    []string
}

func (f *fakeAPI) fail(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if f.failNext {
		f.failNext = false
		return fmt.Errorf("%w: scripted failure", ErrRequestFailed)
	}
	return nil
}

func (f *fakeAPI) List(_ context.Context) ([]Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	items := make([]Notification, len(f.server))
	copy(items, f.server)
	return items, nil
}

func (f *fakeAPI) MarkRead(_ context.Context, id string) error {
	return f.fail("mark_read:" + id)
}

func (f *fakeAPI) MarkAllRead(_ context.Context) error { return f.fail("mark_all_read") }
func (f *fakeAPI) Delete(_ context.Context, id string) error {
	return f.fail("delete:" + id)
}
func (f *fakeAPI) Clear(_ context.Context) error { return f.fail("clear") }

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]string, len(f.calls))
	copy(calls, f.calls)
	return calls
}

func newTestStore(t *testing.T, api *fakeAPI) *Store {
	t.Helper()
	s, err := NewStore(api, "user-1", testLogger{})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func serverNotification(id string, read bool) Notification {
	return Notification{
		ID:        id,
		Type:      "alert",
		Title:     "Title " + id,
		Message:   "Message " + id,
		UserID:    "user-1",
		Timestamp: "2026-01-01T00:00:00Z",
		Read:      read,
	}
}

func TestNewStore_MissingDependencies(t *testing.T) {
	tests := []struct {
		name   string
		api    API
		userID string
		logger Logger
	}{
		{"missing api", nil, "user-1", testLogger{}},
		{"missing user id", &fakeAPI{}, "", testLogger{}},
		{"missing logger", &fakeAPI{}, "user-1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStore(tt.api, tt.userID, tt.logger)
			if !errors.Is(err, ErrMissingDependency) {
				t.Errorf("NewStore() error = %v, want ErrMissingDependency", err)
			}
		})
	}
}

func TestStore_ReloadReplacesWholesale(t *testing.T) {
	api := &fakeAPI{server: []Notification{
		serverNotification("n-1", false),
		serverNotification("n-2", true),
	}}
	s := newTestStore(t, api)

	// A local entry that the reload must discard.
	s.AddLocal("command_success", "Done", "ok", "dev-1")

	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	items := s.All()
	if len(items) != 2 {
		t.Fatalf("All() len = %d, want 2 (wholesale replace)", len(items))
	}
	if items[0].ID != "n-1" || items[1].ID != "n-2" {
		t.Errorf("items = %v, want the server list", items)
	}
	if got := s.UnreadCount(); got != 1 {
		t.Errorf("UnreadCount() = %d, want 1", got)
	}
}

func TestStore_HandlePushAppends(t *testing.T) {
	s := newTestStore(t, &fakeAPI{})

	s.HandlePush([]byte(`{"id":"n-9","type":"alert","title":"Pump","message":"Pressure high","user_id":"user-1","created_at":"2026-02-01T10:00:00Z","is_read":false}`))

	items := s.All()
	if len(items) != 1 {
		t.Fatalf("All() len = %d, want 1", len(items))
	}
	// Backend field names map onto the in-memory model.
	if items[0].Timestamp != "2026-02-01T10:00:00Z" {
		t.Errorf("timestamp = %s, want mapped created_at", items[0].Timestamp)
	}
	if items[0].Read {
		t.Error("read = true, want mapped is_read false")
	}
}

func TestStore_HandlePushCrossTenantDropped(t *testing.T) {
	s := newTestStore(t, &fakeAPI{})

	s.HandlePush([]byte(`{"id":"n-1","title":"Other tenant","user_id":"user-2","created_at":"2026-02-01T10:00:00Z"}`))

	if got := len(s.All()); got != 0 {
		t.Errorf("All() len = %d, want 0 (cross-tenant push must never appear)", got)
	}
}

func TestStore_HandlePushMalformedDropped(t *testing.T) {
	s := newTestStore(t, &fakeAPI{})

	s.HandlePush([]byte(`{broken`))

	if got := len(s.All()); got != 0 {
		t.Errorf("All() len = %d, want 0", got)
	}
}

func TestStore_CapacityTruncatesFromFront(t *testing.T) {
	s := newTestStore(t, &fakeAPI{})

	for i := 0; i < Capacity+5; i++ {
		s.HandlePush([]byte(fmt.Sprintf(
			`{"id":"n-%d","title":"t","user_id":"user-1","created_at":"2026-01-01T00:00:00Z"}`, i)))
	}

	items := s.All()
	if len(items) != Capacity {
		t.Fatalf("All() len = %d, want %d", len(items), Capacity)
	}
	// Truncation drops the oldest entries regardless of read state.
	if items[0].ID != "n-5" {
		t.Errorf("oldest id = %s, want n-5", items[0].ID)
	}
	if items[len(items)-1].ID != fmt.Sprintf("n-%d", Capacity+4) {
		t.Errorf("newest id = %s, want n-%d", items[len(items)-1].ID, Capacity+4)
	}
}

func TestStore_MarkReadOptimistic(t *testing.T) {
	api := &fakeAPI{server: []Notification{serverNotification("n-1", false)}}
	s := newTestStore(t, api)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if err := s.MarkRead(context.Background(), "n-1"); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	if got := s.UnreadCount(); got != 0 {
		t.Errorf("UnreadCount() = %d, want 0", got)
	}

	calls := api.callLog()
	if calls[len(calls)-1] != "mark_read:n-1" {
		t.Errorf("last REST call = %s, want mark_read:n-1", calls[len(calls)-1])
	}
}

func TestStore_MarkAllReadFailureReconciles(t *testing.T) {
	api := &fakeAPI{server: []Notification{
		serverNotification("n-1", false),
		serverNotification("n-2", false),
	}}
	s := newTestStore(t, api)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	api.failNext = true
	err := s.MarkAllRead(context.Background())
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("MarkAllRead() error = %v, want ErrRequestFailed", err)
	}

	// Reconciliation wins: the final state equals a fresh reload's result,
	// not the optimistic all-read state.
	if got := s.UnreadCount(); got != 2 {
		t.Errorf("UnreadCount() after reconciliation = %d, want 2", got)
	}

	calls := api.callLog()
	if calls[len(calls)-1] != "list" {
		t.Errorf("last REST call = %s, want list (reconciliation reload)", calls[len(calls)-1])
	}
}

func TestStore_DeleteOptimistic(t *testing.T) {
	api := &fakeAPI{server: []Notification{
		serverNotification("n-1", false),
		serverNotification("n-2", false),
	}}
	s := newTestStore(t, api)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if err := s.Delete(context.Background(), "n-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	items := s.All()
	if len(items) != 1 || items[0].ID != "n-2" {
		t.Errorf("items after delete = %v, want only n-2", items)
	}
}

func TestStore_DeleteFailureReconciles(t *testing.T) {
	api := &fakeAPI{server: []Notification{serverNotification("n-1", false)}}
	s := newTestStore(t, api)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	api.failNext = true
	if err := s.Delete(context.Background(), "n-1"); err == nil {
		t.Fatal("Delete() error = nil, want failure")
	}

	// The optimistically-removed entry reappears after reconciliation.
	items := s.All()
	if len(items) != 1 || items[0].ID != "n-1" {
		t.Errorf("items after reconciliation = %v, want n-1 restored", items)
	}
}

func TestStore_ClearOptimistic(t *testing.T) {
	api := &fakeAPI{server: []Notification{serverNotification("n-1", false)}}
	s := newTestStore(t, api)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if err := s.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := len(s.All()); got != 0 {
		t.Errorf("All() len after Clear = %d, want 0", got)
	}
}

func TestStore_LocalEntriesSkipREST(t *testing.T) {
	api := &fakeAPI{}
	s := newTestStore(t, api)

	s.AddLocal("command_success", "Command completed", "done", "dev-1")
	items := s.All()
	if len(items) != 1 {
		t.Fatalf("All() len = %d, want 1", len(items))
	}
	id := items[0].ID
	if !strings.HasPrefix(id, "local-") {
		t.Fatalf("local id = %s, want local- prefix", id)
	}

	if err := s.MarkRead(context.Background(), id); err != nil {
		t.Fatalf("MarkRead(local) error = %v", err)
	}
	if err := s.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete(local) error = %v", err)
	}

	// Local-only entries never reach the backend.
	if got := len(api.callLog()); got != 0 {
		t.Errorf("REST calls = %v, want none for local ids", api.callLog())
	}
	if got := len(s.All()); got != 0 {
		t.Errorf("All() len = %d, want 0 after local delete", got)
	}
}
