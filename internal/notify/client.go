package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultRequestTimeout bounds each REST call when the caller's context
// carries no deadline.
const defaultRequestTimeout = 15 * time.Second

// Client calls the backend's notification REST endpoints.
// All calls bear the session's bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a notification REST client.
//
// Parameters:
//   - baseURL: Backend REST base URL (e.g. "https://backend.example.com/api")
//   - token: Bearer token presented on every call
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
}

// List fetches the full notification list for the authenticated user.
//
// Returns:
//   - []Notification: Server's authoritative list, backend fields mapped
//     to the in-memory model
//   - error: Wrapped ErrRequestFailed on network or HTTP failure
func (c *Client) List(ctx context.Context) ([]Notification, error) {
	resp, err := c.do(ctx, http.MethodGet, "/notifications")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // Read-side close

	var body struct {
		Notifications []wireNotification `json:"notifications"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding list response: %w", ErrRequestFailed, err)
	}

	notifications := make([]Notification, 0, len(body.Notifications))
	for _, w := range body.Notifications {
		notifications = append(notifications, w.toNotification())
	}
	return notifications, nil
}

// MarkRead marks one notification as read on the server.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.doDiscard(ctx, http.MethodPut, "/notifications/"+url.PathEscape(id)+"/read")
}

// MarkAllRead marks every notification as read on the server.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.doDiscard(ctx, http.MethodPut, "/notifications/mark-all-read")
}

// Delete removes one notification on the server.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doDiscard(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id))
}

// Clear removes every notification on the server.
func (c *Client) Clear(ctx context.Context) error {
	return c.doDiscard(ctx, http.MethodDelete, "/notifications")
}

// do issues one authenticated request and verifies a 2xx response.
// Callers own the response body on success.
func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		//nolint:errcheck // Error path cleanup
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s %s: status %d", ErrRequestFailed, method, path, resp.StatusCode)
	}
	return resp, nil
}

// doDiscard issues a request whose response body is irrelevant.
func (c *Client) doDiscard(ctx context.Context, method, path string) error {
	resp, err := c.do(ctx, method, path)
	if err != nil {
		return err
	}
	//nolint:errcheck // Drain for connection reuse
	io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
