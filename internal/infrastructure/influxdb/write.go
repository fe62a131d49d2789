package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTelemetry writes one device telemetry snapshot to InfluxDB.
//
// Only numeric measurements are written; string and boolean readings carry
// no chartable value and are skipped. The write is non-blocking; data is
// batched and sent asynchronously. A snapshot with no numeric measurements
// writes nothing.
//
// Parameters:
//   - deviceID: Unique identifier for the device
//   - measurements: Raw telemetry key/value pairs from the stream
//   - timestamp: Reading time (zero means now)
func (c *Client) WriteTelemetry(deviceID string, measurements map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	fields := make(map[string]interface{}, len(measurements))
	for key, value := range measurements {
		if v, ok := numericValue(value); ok {
			fields[key] = v
		}
	}
	if len(fields) == 0 {
		return
	}

	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	point := write.NewPoint(
		"device_telemetry",
		map[string]string{
			"device_id": deviceID,
		},
		fields,
		timestamp,
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceStatus records a device status transition.
//
// Status is stored as a string field tagged by device, giving the dashboard
// an uptime/availability history alongside the numeric telemetry.
//
// Parameters:
//   - deviceID: Device identifier
//   - status: Reported status (active, idle, offline)
func (c *Client) WriteDeviceStatus(deviceID string, status string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_status",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"status": status,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// numericValue extracts a float64 from the JSON-decoded telemetry value.
func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
