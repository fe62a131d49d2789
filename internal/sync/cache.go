package sync

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecentEventCapacity is the fixed capacity of the recent-event ring buffer.
// The oldest entry is evicted first once the buffer is full.
const RecentEventCapacity = 50

// TelemetrySnapshot is the latest telemetry reading for a device.
// Each new telemetry envelope for the device overwrites the previous
// snapshot (last-write-wins); this cache retains no history.
type TelemetrySnapshot struct {
	DeviceID     string         `json:"device_id"`
	Measurements map[string]any `json:"measurements"`
	Timestamp    string         `json:"timestamp"`
	UserID       string         `json:"user_id"`
}

// DeviceStatus is the latest reported status for a device (last-write-wins).
type DeviceStatus struct {
	DeviceID  string    `json:"device_id"`
	Status    string    `json:"status"`
	LastSeen  string    `json:"last_seen"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecentEvent is one entry in the activity feed ring buffer.
type RecentEvent struct {
	ID        string         `json:"id"`
	DeviceID  string         `json:"device_id"`
	Kind      string         `json:"kind"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

// RecentEvent kinds.
const (
	EventKindTelemetry    = "telemetry"
	EventKindStatusChange = "status_change"
)

// CommandResult is the outcome of one device command round-trip.
// Set exactly once per command id; read by the command issuer.
type CommandResult struct {
	CommandID string `json:"command_id"`
	DeviceID  string `json:"device_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
}

// LocalNotifier accepts locally-synthesised notification entries.
// The command-result reducer uses it to record command completion in the
// notification list alongside server-pushed entries.
type LocalNotifier interface {
	AddLocal(notifType, title, message, deviceID string)
}

// StateCache holds the in-memory projections rebuilt from routed messages:
// telemetry by device, status by device, command results by command id, and
// a bounded recent-event log.
//
// Writes arrive from the session's single read-loop goroutine in strict
// arrival order. The mutex exists for readers on other goroutines (local
// API, relay observers); it does not reorder writes.
type StateCache struct {
	mu        sync.RWMutex
	telemetry map[string]TelemetrySnapshot
	status    map[string]DeviceStatus
	results   map[string]CommandResult
	events    []RecentEvent

	// watchers holds per-command result channels for WatchCommand callers.
	watchers map[string][]chan CommandResult

	sink     AlertSink
	notifier LocalNotifier
	logger   Logger
}

// NewStateCache creates an empty cache.
//
// Parameters:
//   - sink: Receiver for status-change alerts and command toasts
//   - notifier: Receiver for synthesised command-completion notifications
//   - logger: Logger for reducer diagnostics
func NewStateCache(sink AlertSink, notifier LocalNotifier, logger Logger) *StateCache {
	if sink == nil {
		sink = nopSink{}
	}
	return &StateCache{
		telemetry: make(map[string]TelemetrySnapshot),
		status:    make(map[string]DeviceStatus),
		results:   make(map[string]CommandResult),
		watchers:  make(map[string][]chan CommandResult),
		sink:      sink,
		notifier:  notifier,
		logger:    logger,
	}
}

// ApplyTelemetry upserts the telemetry snapshot for the payload's device and
// appends a telemetry entry to the recent-event buffer.
func (c *StateCache) ApplyTelemetry(p TelemetryPayload) TelemetrySnapshot {
	snap := TelemetrySnapshot{
		DeviceID:     p.DeviceID,
		Measurements: p.Telemetry,
		Timestamp:    p.Timestamp,
		UserID:       p.UserID,
	}

	c.mu.Lock()
	c.telemetry[p.DeviceID] = snap
	c.appendEventLocked(RecentEvent{
		ID:        uuid.NewString(),
		DeviceID:  p.DeviceID,
		Kind:      EventKindTelemetry,
		Data:      p.Telemetry,
		Timestamp: time.Now().UTC(),
	})
	c.mu.Unlock()

	return snap
}

// ApplyDeviceStatus upserts the device status and appends a status_change
// entry to the recent-event buffer.
//
// Transitions to "offline" or "active" additionally emit a user-facing
// alert; this is the only reducer with an alerting side effect.
func (c *StateCache) ApplyDeviceStatus(p DeviceStatusPayload) DeviceStatus {
	st := DeviceStatus{
		DeviceID:  p.DeviceID,
		Status:    p.Status,
		LastSeen:  p.LastSeen,
		UpdatedAt: time.Now().UTC(),
	}

	c.mu.Lock()
	c.status[p.DeviceID] = st
	c.appendEventLocked(RecentEvent{
		ID:       uuid.NewString(),
		DeviceID: p.DeviceID,
		Kind:     EventKindStatusChange,
		Data: map[string]any{
			"status":    p.Status,
			"last_seen": p.LastSeen,
		},
		Timestamp: time.Now().UTC(),
	})
	c.mu.Unlock()

	// Alert outside the lock; the sink is external code.
	switch p.Status {
	case "offline":
		c.sink.OnAlert(SeverityWarning, "Device "+p.DeviceID+" went offline")
	case "active":
		c.sink.OnAlert(SeverityInfo, "Device "+p.DeviceID+" is active")
	}

	return st
}

// ApplyCommandResult records the outcome of a command round-trip.
//
// The result is set exactly once per command id: a duplicate envelope for an
// already-recorded id is ignored. On first set, any WatchCommand watchers are
// resolved, a notification entry is synthesised, and a toast is emitted.
func (c *StateCache) ApplyCommandResult(p CommandResultPayload) (CommandResult, bool) {
	result := CommandResult{
		CommandID: p.CommandID,
		DeviceID:  p.DeviceID,
		Success:   p.Success,
		Message:   p.Message,
	}

	c.mu.Lock()
	if _, exists := c.results[p.CommandID]; exists {
		c.mu.Unlock()
		if c.logger != nil {
			c.logger.Debug("ignoring duplicate command result", "command_id", p.CommandID)
		}
		return result, false
	}
	c.results[p.CommandID] = result

	watchers := c.watchers[p.CommandID]
	delete(c.watchers, p.CommandID)
	c.mu.Unlock()

	for _, ch := range watchers {
		// Buffered with capacity 1; a cancelled watcher never blocks delivery.
		select {
		case ch <- result:
		default:
		}
	}

	if c.notifier != nil {
		if p.Success {
			c.notifier.AddLocal("command_success", "Command completed",
				commandMessage(p, "Command completed"), p.DeviceID)
		} else {
			c.notifier.AddLocal("command_error", "Command failed",
				commandMessage(p, "Command failed"), p.DeviceID)
		}
	}

	if p.Success {
		c.sink.OnAlert(SeverityInfo, "Command completed on device "+p.DeviceID)
	} else {
		c.sink.OnAlert(SeverityError, "Command failed on device "+p.DeviceID)
	}

	return result, true
}

// commandMessage prefers the server-provided message over the fallback.
func commandMessage(p CommandResultPayload, fallback string) string {
	if p.Message != "" {
		return p.Message
	}
	return fallback
}

// appendEventLocked appends an event and evicts the oldest entries beyond
// capacity. Caller must hold c.mu.
func (c *StateCache) appendEventLocked(e RecentEvent) {
	c.events = append(c.events, e)
	if len(c.events) > RecentEventCapacity {
		trimmed := make([]RecentEvent, RecentEventCapacity)
		copy(trimmed, c.events[len(c.events)-RecentEventCapacity:])
		c.events = trimmed
	}
}

// Telemetry returns the latest snapshot for a device, or nil if unknown.
func (c *StateCache) Telemetry(deviceID string) *TelemetrySnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if snap, ok := c.telemetry[deviceID]; ok {
		return &snap
	}
	return nil
}

// Status returns the latest status for a device, or nil if unknown.
func (c *StateCache) Status(deviceID string) *DeviceStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if st, ok := c.status[deviceID]; ok {
		return &st
	}
	return nil
}

// AllStatuses returns a copy of every known device status.
func (c *StateCache) AllStatuses() []DeviceStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	statuses := make([]DeviceStatus, 0, len(c.status))
	for _, st := range c.status {
		statuses = append(statuses, st)
	}
	return statuses
}

// Result returns the recorded result for a command id, or nil if unknown.
func (c *StateCache) Result(commandID string) *CommandResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.results[commandID]; ok {
		return &r
	}
	return nil
}

// RecentEvents returns a copy of the event buffer, oldest first.
func (c *StateCache) RecentEvents() []RecentEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	events := make([]RecentEvent, len(c.events))
	copy(events, c.events)
	return events
}

// WatchCommand returns a channel that receives the result for the given
// command id, and a cancel function releasing the watcher.
//
// If the result is already recorded it is delivered immediately. The channel
// is buffered; the result is delivered at most once. Callers that stop
// waiting (dialog closed, poll timeout) must call cancel to avoid leaking
// the watcher entry.
func (c *StateCache) WatchCommand(commandID string) (<-chan CommandResult, func()) {
	ch := make(chan CommandResult, 1)

	c.mu.Lock()
	if r, ok := c.results[commandID]; ok {
		c.mu.Unlock()
		ch <- r
		return ch, func() {}
	}
	c.watchers[commandID] = append(c.watchers[commandID], ch)
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		watchers := c.watchers[commandID]
		for i, w := range watchers {
			if w == ch {
				c.watchers[commandID] = append(watchers[:i], watchers[i+1:]...)
				break
			}
		}
		if len(c.watchers[commandID]) == 0 {
			delete(c.watchers, commandID)
		}
	}

	return ch, cancel
}

// Clear discards all cached state. Called on logout.
func (c *StateCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.telemetry = make(map[string]TelemetrySnapshot)
	c.status = make(map[string]DeviceStatus)
	c.results = make(map[string]CommandResult)
	c.events = nil
	// Pending watchers are not resolved; their commands will never complete.
	c.watchers = make(map[string][]chan CommandResult)
}
