package sync

import "encoding/json"

// route dispatches one raw inbound frame to the handler for its type.
//
// Runs on the read-loop goroutine, so frames are processed strictly in
// arrival order. Malformed frames are dropped with a log entry and never
// tear the connection down; unknown types are ignored.
func (s *Session) route(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("dropping malformed frame", "error", err)
		return
	}

	switch env.Type {
	case TypeAuthSuccess:
		s.handleAuthSuccess()

	case TypeNotification:
		// Tenant validation and capacity enforcement live in the store.
		s.store.HandlePush(env.Data)

	case TypeTelemetry:
		var p TelemetryPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			s.logger.Warn("dropping malformed telemetry payload", "error", err)
			return
		}
		if p.DeviceID == "" {
			s.logger.Warn("dropping telemetry payload without device id")
			return
		}
		snap := s.cache.ApplyTelemetry(p)
		s.notifyTelemetry(snap)

	case TypeDeviceStatus:
		var p DeviceStatusPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			s.logger.Warn("dropping malformed device status payload", "error", err)
			return
		}
		if p.DeviceID == "" {
			s.logger.Warn("dropping device status payload without device id")
			return
		}
		st := s.cache.ApplyDeviceStatus(p)
		s.notifyDeviceStatus(st)

	case TypeCommandResult:
		var p CommandResultPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			s.logger.Warn("dropping malformed command result payload", "error", err)
			return
		}
		if p.CommandID == "" {
			s.logger.Warn("dropping command result without command id")
			return
		}
		s.cache.ApplyCommandResult(p)

	case TypeSystemAlert:
		var p SystemAlertPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			s.logger.Warn("dropping malformed system alert payload", "error", err)
			return
		}
		s.logger.Info("system alert received",
			"alert_type", p.AlertType, "severity", p.Severity, "device_id", p.DeviceID)
		s.sink.OnAlert(parseSeverity(p.Severity), p.Message)

	case TypeConnectionInfo:
		// Informational only; logged and discarded.
		s.logger.Debug("connection info received", "message", env.Message)

	case TypeError:
		s.logger.Warn("server error frame received", "message", env.Message)

	default:
		// Unknown types are ignored for forward compatibility.
		s.logger.Debug("ignoring unknown frame type", "type", env.Type)
	}
}
