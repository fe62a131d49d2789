package sync

// Severity classifies user-facing alerts emitted by the core.
type Severity string

// Severity constants.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// AlertSink receives user-facing alerts from the core.
//
// The UI layer is a pure subscriber: the core emits events and knows nothing
// about how they are presented (toast, banner, system tray).
//
// OnConnectionLost signals a persistent disconnected condition after
// reconnection attempts are exhausted; it remains in effect until the user
// triggers a manual Reconnect.
type AlertSink interface {
	OnAlert(severity Severity, message string)
	OnConnectionLost()
}

// nopSink discards all alerts. Used when no sink is configured.
type nopSink struct{}

func (nopSink) OnAlert(Severity, string) {}
func (nopSink) OnConnectionLost()        {}

// parseSeverity maps a server-provided severity string to a Severity.
// Unrecognised values default to info.
func parseSeverity(s string) Severity {
	switch s {
	case "warning", "warn":
		return SeverityWarning
	case "error":
		return SeverityError
	case "critical":
		return SeverityCritical
	default:
		return SeverityInfo
	}
}
