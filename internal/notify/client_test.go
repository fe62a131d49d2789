package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_List(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/notifications" {
			t.Errorf("request = %s %s, want GET /notifications", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck // Test handler
		w.Write([]byte(`{"notifications":[
			{"id":"n-1","type":"alert","title":"Pump","message":"Pressure high","user_id":"user-1","created_at":"2026-02-01T10:00:00Z","is_read":true}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	notifications, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("List() len = %d, want 1", len(notifications))
	}

	n := notifications[0]
	if n.Timestamp != "2026-02-01T10:00:00Z" {
		t.Errorf("timestamp = %s, want mapped created_at", n.Timestamp)
	}
	if !n.Read {
		t.Error("read = false, want mapped is_read true")
	}
}

func TestClient_ListServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	if _, err := c.List(context.Background()); !errors.Is(err, ErrRequestFailed) {
		t.Errorf("List() error = %v, want ErrRequestFailed", err)
	}
}

func TestClient_Mutations(t *testing.T) {
	type call struct{ method, path string }
	var got call

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = call{r.Method, r.URL.Path}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	ctx := context.Background()

	tests := []struct {
		name string
		op   func() error
		want call
	}{
		{"mark read", func() error { return c.MarkRead(ctx, "n-1") },
			call{http.MethodPut, "/notifications/n-1/read"}},
		{"mark all read", func() error { return c.MarkAllRead(ctx) },
			call{http.MethodPut, "/notifications/mark-all-read"}},
		{"delete", func() error { return c.Delete(ctx, "n-1") },
			call{http.MethodDelete, "/notifications/n-1"}},
		{"clear", func() error { return c.Clear(ctx) },
			call{http.MethodDelete, "/notifications"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); err != nil {
				t.Fatalf("%s error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("request = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClient_MutationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	if err := c.MarkAllRead(context.Background()); !errors.Is(err, ErrRequestFailed) {
		t.Errorf("MarkAllRead() error = %v, want ErrRequestFailed", err)
	}
}
