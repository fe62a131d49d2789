// FleetDeck Core - Fleet Dashboard Synchronisation Engine
//
// This is the main entry point for the FleetDeck Core daemon. FleetDeck
// Core keeps a local, always-current mirror of fleet state for dashboard
// shells on the same host:
//   - One authenticated WebSocket session to the fleet backend with
//     exponential-backoff reconnection
//   - Last-write-wins caches for telemetry, device status and command results
//   - A notification list with optimistic mutations against the backend REST API
//   - Optional local fan-out: MQTT relay, InfluxDB telemetry sink, SQLite
//     event archive
//   - A loopback HTTP API for UI processes
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetdeck/fleetdeck-core/internal/api"
	"github.com/fleetdeck/fleetdeck-core/internal/eventlog"
	"github.com/fleetdeck/fleetdeck-core/internal/infrastructure/config"
	"github.com/fleetdeck/fleetdeck-core/internal/infrastructure/database"
	"github.com/fleetdeck/fleetdeck-core/internal/infrastructure/influxdb"
	"github.com/fleetdeck/fleetdeck-core/internal/infrastructure/logging"
	"github.com/fleetdeck/fleetdeck-core/internal/infrastructure/mqtt"
	"github.com/fleetdeck/fleetdeck-core/internal/notify"
	"github.com/fleetdeck/fleetdeck-core/internal/sync"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting FleetDeck Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	// Reconfigure logging with loaded settings
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath)

	// Notification store backed by the backend REST API
	restClient := notify.NewClient(cfg.Backend.RESTURL, cfg.Backend.Token)
	store, err := notify.NewStore(restClient, cfg.Backend.UserID, log)
	if err != nil {
		return fmt.Errorf("creating notification store: %w", err)
	}

	// Local event archive (optional)
	var events *eventlog.Repository
	if cfg.Database.Enabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening database: %w", dbErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		events = eventlog.NewRepository(db.DB)
		if initErr := events.Init(ctx); initErr != nil {
			return fmt.Errorf("initialising event archive: %w", initErr)
		}
		log.Info("event archive ready", "path", db.Path())
	} else {
		log.Info("event archive disabled")
	}

	// Local MQTT relay (optional)
	var relay *mqtt.Client
	if cfg.Relay.Enabled {
		relay, err = mqtt.Connect(cfg.Relay)
		if err != nil {
			return fmt.Errorf("connecting to MQTT relay: %w", err)
		}
		defer func() {
			log.Info("closing MQTT relay connection")
			if closeErr := relay.Close(); closeErr != nil {
				log.Error("error closing MQTT relay", "error", closeErr)
			}
		}()
		log.Info("MQTT relay connected",
			"host", cfg.Relay.Broker.Host,
			"port", cfg.Relay.Broker.Port,
		)

		relay.SetOnConnect(func() {
			log.Info("MQTT relay connection established")
		})
		relay.SetOnDisconnect(func(err error) {
			log.Warn("MQTT relay connection lost", "error", err)
		})
	} else {
		log.Info("MQTT relay disabled")
	}

	// InfluxDB telemetry sink (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Stream session: the core synchronisation engine
	session, err := sync.NewSession(sync.Deps{
		Backend:   cfg.Backend,
		Reconnect: cfg.Reconnect,
		Store:     store,
		Sink:      &alertRelay{relay: relay, log: log},
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("creating stream session: %w", err)
	}

	// Fan routed envelopes out to the optional local sinks
	if relay != nil {
		session.AddObserver(&relayObserver{relay: relay, log: log})
	}
	if influxClient != nil {
		session.AddObserver(&influxObserver{client: influxClient})
	}
	if events != nil {
		session.AddObserver(&archiveObserver{events: events, log: log})
	}

	// Local HTTP API (optional)
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Session: session,
			Store:   store,
			Events:  events,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	// Open the stream; retries and the auth handshake run in the background
	session.Connect()
	defer func() {
		log.Info("closing stream session")
		session.Disconnect()
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. Stream session
	// 2. API server (if enabled)
	// 3. InfluxDB (if enabled)
	// 4. MQTT relay (if enabled)
	// 5. Database (if enabled)

	log.Info("FleetDeck Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses FLEETDECK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FLEETDECK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// alertRelay surfaces session alerts on the log and, when the relay is up,
// republishes them on the local alert topics for on-site consumers.
type alertRelay struct {
	relay *mqtt.Client
	log   *logging.Logger
}

func (a *alertRelay) OnAlert(severity sync.Severity, message string) {
	switch severity {
	case sync.SeverityError, sync.SeverityCritical:
		a.log.Error("fleet alert", "severity", string(severity), "message", message)
	case sync.SeverityWarning:
		a.log.Warn("fleet alert", "severity", string(severity), "message", message)
	default:
		a.log.Info("fleet alert", "severity", string(severity), "message", message)
	}

	if a.relay == nil {
		return
	}
	payload := map[string]any{
		"severity":  string(severity),
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := a.relay.PublishJSON(mqtt.Topics{}.Alert(string(severity)), payload, false); err != nil {
		a.log.Warn("relaying alert failed", "error", err)
	}
}

func (a *alertRelay) OnConnectionLost() {
	a.log.Error("stream connection lost after exhausting retries; manual reconnect required")

	if a.relay == nil {
		return
	}
	payload := map[string]any{
		"connected": false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := a.relay.PublishJSON(mqtt.Topics{}.Connection(), payload, true); err != nil {
		a.log.Warn("relaying connection state failed", "error", err)
	}
}

// relayObserver republishes routed telemetry and status envelopes on the
// local MQTT broker. Latest-value topics are retained so late subscribers
// see current state immediately.
type relayObserver struct {
	relay *mqtt.Client
	log   *logging.Logger
}

func (o *relayObserver) OnTelemetry(snap sync.TelemetrySnapshot) {
	if err := o.relay.PublishJSON(mqtt.Topics{}.DeviceTelemetry(snap.DeviceID), snap, true); err != nil {
		o.log.Warn("relaying telemetry failed", "device_id", snap.DeviceID, "error", err)
	}
}

func (o *relayObserver) OnDeviceStatus(status sync.DeviceStatus) {
	if err := o.relay.PublishJSON(mqtt.Topics{}.DeviceStatus(status.DeviceID), status, true); err != nil {
		o.log.Warn("relaying status failed", "device_id", status.DeviceID, "error", err)
	}
}

// influxObserver forwards routed envelopes to the time-series sink.
// Writes are batched and asynchronous; errors surface via SetOnError.
type influxObserver struct {
	client *influxdb.Client
}

func (o *influxObserver) OnTelemetry(snap sync.TelemetrySnapshot) {
	ts := time.Now().UTC()
	if parsed, err := time.Parse(time.RFC3339, snap.Timestamp); err == nil {
		ts = parsed
	}
	o.client.WriteTelemetry(snap.DeviceID, snap.Measurements, ts)
}

func (o *influxObserver) OnDeviceStatus(status sync.DeviceStatus) {
	o.client.WriteDeviceStatus(status.DeviceID, status.Status)
}

// archiveObserver appends routed envelopes to the SQLite event archive.
type archiveObserver struct {
	events *eventlog.Repository
	log    *logging.Logger
}

func (o *archiveObserver) OnTelemetry(snap sync.TelemetrySnapshot) {
	o.record(snap.DeviceID, "telemetry", snap.Measurements)
}

func (o *archiveObserver) OnDeviceStatus(status sync.DeviceStatus) {
	o.record(status.DeviceID, "status_change", map[string]any{
		"status":    status.Status,
		"last_seen": status.LastSeen,
	})
}

func (o *archiveObserver) record(deviceID, kind string, payload map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	eventID := fmt.Sprintf("%s-%s-%d", kind, deviceID, time.Now().UnixNano())
	if err := o.events.Record(ctx, eventID, deviceID, kind, payload); err != nil {
		o.log.Warn("archiving event failed", "device_id", deviceID, "kind", kind, "error", err)
	}
}
