package sync

import "sync"

// frameSender sends control frames on behalf of the registry.
// Implemented by Session; frames are dropped when not connected.
type frameSender interface {
	sendControl(frameType, deviceID string) bool
}

// SubscriptionRegistry tracks which device ids the session has asked the
// server to stream. Membership is advisory: the server is the enforcement
// point, and the set is not persisted beyond the session.
//
// Subscribe and Unsubscribe are no-ops while the session is not connected;
// control frames are never queued. The registry does NOT resubscribe after a
// reconnect — callers re-subscribe when their views mount.
type SubscriptionRegistry struct {
	mu      sync.RWMutex
	devices map[string]struct{}
	sender  frameSender
	logger  Logger
}

// newSubscriptionRegistry creates an empty registry bound to a sender.
func newSubscriptionRegistry(sender frameSender, logger Logger) *SubscriptionRegistry {
	return &SubscriptionRegistry{
		devices: make(map[string]struct{}),
		sender:  sender,
		logger:  logger,
	}
}

// Subscribe asks the server to stream events for the device.
// No-op (not queued) when the session is not connected.
func (r *SubscriptionRegistry) Subscribe(deviceID string) {
	if deviceID == "" {
		return
	}

	if !r.sender.sendControl(TypeSubscribe, deviceID) {
		if r.logger != nil {
			r.logger.Debug("subscribe dropped, not connected", "device_id", deviceID)
		}
		return
	}

	r.mu.Lock()
	r.devices[deviceID] = struct{}{}
	r.mu.Unlock()
}

// Unsubscribe asks the server to stop streaming events for the device.
// No-op (not queued) when the session is not connected.
func (r *SubscriptionRegistry) Unsubscribe(deviceID string) {
	if deviceID == "" {
		return
	}

	if !r.sender.sendControl(TypeUnsubscribe, deviceID) {
		if r.logger != nil {
			r.logger.Debug("unsubscribe dropped, not connected", "device_id", deviceID)
		}
		return
	}

	r.mu.Lock()
	delete(r.devices, deviceID)
	r.mu.Unlock()
}

// Devices returns the current advisory subscription set.
func (r *SubscriptionRegistry) Devices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	devices := make([]string, 0, len(r.devices))
	for id := range r.devices {
		devices = append(devices, id)
	}
	return devices
}

// Has reports whether the device is in the advisory subscription set.
func (r *SubscriptionRegistry) Has(deviceID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[deviceID]
	return ok
}

// Clear empties the registry. Called on logout.
func (r *SubscriptionRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[string]struct{})
}
