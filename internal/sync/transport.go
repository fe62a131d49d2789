package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport constants.
const (
	// defaultHandshakeTimeout is the maximum time to wait for the WebSocket dial.
	defaultHandshakeTimeout = 10 * time.Second

	// writeTimeout is the maximum time to wait for a single frame write.
	writeTimeout = 10 * time.Second

	// maxFrameSize limits inbound frame size to prevent resource exhaustion.
	maxFrameSize = 1 << 20 // 1MB
)

// Transport is one bidirectional message-stream connection to the backend.
//
// It knows nothing about message semantics beyond envelope framing: callers
// read raw frames and write JSON-encodable values.
type Transport interface {
	// ReadMessage blocks until the next frame arrives or the connection fails.
	ReadMessage() ([]byte, error)

	// WriteJSON encodes v as JSON and writes it as one frame.
	// Safe for concurrent use from multiple goroutines.
	WriteJSON(v any) error

	// Close tears down the connection. Any blocked ReadMessage returns an error.
	Close() error
}

// Dialer opens a Transport to the given stream URL.
// The Session uses a Dialer so tests can substitute a fake transport.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// WebSocketDialer dials the backend event stream over WebSocket.
type WebSocketDialer struct {
	// HandshakeTimeout bounds the dial. Zero means the default (10s).
	HandshakeTimeout time.Duration
}

// Dial opens a WebSocket connection to url.
//
// Parameters:
//   - ctx: Context for dial cancellation
//   - url: ws:// or wss:// endpoint of the backend event stream
//
// Returns:
//   - Transport: Connected transport ready for use
//   - error: Wrapped ErrConnectionFailed if the dial fails
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close() //nolint:errcheck // Best-effort cleanup on error path
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	conn.SetReadLimit(maxFrameSize)

	return &wsTransport{conn: conn}, nil
}

// wsTransport adapts a gorilla WebSocket connection to the Transport interface.
type wsTransport struct {
	conn *websocket.Conn

	// writeMu serialises writes; gorilla connections support one concurrent writer.
	writeMu sync.Mutex
}

// ReadMessage blocks until the next text frame arrives.
func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteJSON writes v as a single JSON text frame.
func (t *wsTransport) WriteJSON(v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	//nolint:errcheck // Best-effort deadline; write error caught below
	t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return t.conn.WriteJSON(v)
}

// Close sends a best-effort close frame and tears down the connection.
func (t *wsTransport) Close() error {
	t.writeMu.Lock()
	//nolint:errcheck // Best-effort close message
	t.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()

	return t.conn.Close()
}
