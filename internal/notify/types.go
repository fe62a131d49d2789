package notify

// Notification is one user-facing alert entry.
//
// Dual-sourced: created by server push or fetched in bulk over REST. Identity
// is the server-assigned id for both channels; locally-synthesised entries
// (command completion) carry a "local-" prefixed id that can never collide
// with a server id.
type Notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	DeviceID  string         `json:"device_id,omitempty"`
	UserID    string         `json:"user_id"`
	Timestamp string         `json:"timestamp"`
	Read      bool           `json:"read"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// wireNotification is the backend's notification shape. The REST and push
// channels both use created_at/is_read; the in-memory model renames them to
// timestamp/read.
type wireNotification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	DeviceID  string         `json:"device_id"`
	UserID    string         `json:"user_id"`
	CreatedAt string         `json:"created_at"`
	IsRead    bool           `json:"is_read"`
	Metadata  map[string]any `json:"metadata"`
}

// toNotification maps backend field names to the in-memory model.
func (w wireNotification) toNotification() Notification {
	return Notification{
		ID:        w.ID,
		Type:      w.Type,
		Title:     w.Title,
		Message:   w.Message,
		DeviceID:  w.DeviceID,
		UserID:    w.UserID,
		Timestamp: w.CreatedAt,
		Read:      w.IsRead,
		Metadata:  w.Metadata,
	}
}
