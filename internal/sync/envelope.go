package sync

import "encoding/json"

// Inbound envelope types recognised by the router.
const (
	TypeAuthSuccess    = "auth_success"
	TypeNotification   = "notification"
	TypeTelemetry      = "telemetry"
	TypeDeviceStatus   = "device_status"
	TypeCommandResult  = "command_result"
	TypeSystemAlert    = "system_alert"
	TypeConnectionInfo = "connection_info"
	TypeError          = "error"
)

// Outbound frame types.
const (
	TypeAuth         = "auth"
	TypeSubscribe    = "subscribe"
	TypeUnsubscribe  = "unsubscribe"
	TypeCommand      = "command"
	TypeRequestState = "request_state"
)

// Envelope is one discrete message unit exchanged over the stream.
// Envelopes are transient: they are routed on arrival and never stored.
type Envelope struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// TelemetryPayload is the data shape of a telemetry envelope.
type TelemetryPayload struct {
	DeviceID  string         `json:"device_id"`
	Telemetry map[string]any `json:"telemetry"`
	Timestamp string         `json:"timestamp"`
	UserID    string         `json:"user_id"`
}

// DeviceStatusPayload is the data shape of a device_status envelope.
type DeviceStatusPayload struct {
	DeviceID string `json:"device_id"`
	Status   string `json:"status"`
	LastSeen string `json:"last_seen"`
	UserID   string `json:"user_id"`
}

// CommandResultPayload is the data shape of a command_result envelope.
type CommandResultPayload struct {
	CommandID string `json:"command_id"`
	DeviceID  string `json:"device_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	UserID    string `json:"user_id"`
}

// SystemAlertPayload is the data shape of a system_alert envelope.
type SystemAlertPayload struct {
	AlertType string `json:"alert_type"`
	Message   string `json:"message"`
	DeviceID  string `json:"device_id"`
	Severity  string `json:"severity"`
}

// ConnectionInfoPayload is the data shape of a connection_info envelope.
type ConnectionInfoPayload struct {
	Message string `json:"message,omitempty"`
}

// authFrame is the outbound authentication handshake frame.
type authFrame struct {
	Type      string `json:"type"`
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"`
}

// controlFrame carries subscribe, unsubscribe and request_state messages.
type controlFrame struct {
	Type      string `json:"type"`
	DeviceID  string `json:"device_id"`
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"`
}

// commandFrame is the outbound device command frame.
type commandFrame struct {
	Type      string         `json:"type"`
	CommandID string         `json:"command_id"`
	DeviceID  string         `json:"device_id"`
	Command   string         `json:"command"`
	Params    map[string]any `json:"params"`
	UserID    string         `json:"user_id"`
	Timestamp string         `json:"timestamp"`
}
