package mqtt

import "fmt"

// Topic prefixes for the local relay bus.
//
// Every topic the relay publishes lives under the fleetdeck/ prefix so local
// integrations (Node-RED flows, wall panels, scripts) can subscribe with a
// single fleetdeck/# filter.
const (
	// TopicPrefix is the base for all relay topics.
	TopicPrefix = "fleetdeck"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "fleetdeck/system"
)

// Topics provides builders for relay topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	t := topics.DeviceTelemetry("pump-7")
//	// Returns: "fleetdeck/telemetry/pump-7"
type Topics struct{}

// DeviceTelemetry returns the topic for a device's latest telemetry snapshot.
//
// Example: fleetdeck/telemetry/pump-7
func (Topics) DeviceTelemetry(deviceID string) string {
	return fmt.Sprintf("%s/telemetry/%s", TopicPrefix, deviceID)
}

// DeviceStatus returns the topic for a device's latest status.
//
// Example: fleetdeck/status/pump-7
func (Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, deviceID)
}

// Alert returns the topic for user-facing alerts by severity.
//
// Example: fleetdeck/alerts/warning
func (Topics) Alert(severity string) string {
	return fmt.Sprintf("%s/alerts/%s", TopicPrefix, severity)
}

// SystemStatus returns the topic for the relay's own online/offline status.
//
// Example: fleetdeck/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// Connection returns the topic for backend stream connection state changes.
//
// Example: fleetdeck/system/connection
func (Topics) Connection() string {
	return TopicPrefixSystem + "/connection"
}
