// Package mqtt relays fleet state onto a local MQTT bus.
//
// The relay is an optional, publish-only integration surface: routed
// telemetry and device-status updates are republished under the fleetdeck/
// topic prefix so local consumers (wall panels, Node-RED flows, scripts)
// can follow the fleet without backend credentials. Latest-state topics are
// retained, so late subscribers see current values immediately.
//
// The relay's own availability is observable via fleetdeck/system/status:
// a retained online/offline message on connect and graceful shutdown, plus
// a Last Will published by the broker on unexpected disconnect.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.Relay)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{}
//	err = client.PublishJSON(topics.DeviceStatus("pump-7"), status, true)
package mqtt
