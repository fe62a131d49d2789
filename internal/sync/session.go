package sync

import (
	"context"
	"sync"
	"time"

	"github.com/fleetdeck/fleetdeck-core/internal/infrastructure/config"
)

// ConnectionState is the lifecycle state of the stream connection.
// It is owned exclusively by the Session; all other components read it,
// none mutate it directly.
type ConnectionState int

// Connection states.
const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateAuthenticating
	StateConnected
	StateReconnecting
	StateFailed
)

// String returns the lowercase name of the state.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Logger interface for structured logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NotificationStore is the session's view of the notification cache.
//
// Reload is triggered exactly once after each successful authentication
// (messages may have been missed while disconnected). HandlePush receives
// the raw data of routed notification envelopes. AddLocal accepts
// locally-synthesised entries from the command-result reducer.
type NotificationStore interface {
	Reload(ctx context.Context) error
	HandlePush(data []byte)
	AddLocal(notifType, title, message, deviceID string)
}

// EventObserver receives cache updates after they are applied.
// Observers back the optional local fan-out sinks (MQTT relay, time-series
// writer, event archive); they run on the read-loop goroutine and must not
// block for extended periods.
type EventObserver interface {
	OnTelemetry(snap TelemetrySnapshot)
	OnDeviceStatus(status DeviceStatus)
}

// Deps holds the dependencies required by NewSession.
type Deps struct {
	Backend   config.BackendConfig
	Reconnect config.ReconnectConfig
	Store     NotificationStore
	Sink      AlertSink // optional; defaults to a no-op sink
	Dialer    Dialer    // optional; defaults to WebSocketDialer
	Logger    Logger
}

// Session owns one live connection to the backend event stream for an
// authenticated user. It drives the transport lifecycle state machine,
// including the authentication handshake and reconnection with exponential
// backoff, and fans inbound envelopes out to the state caches and the
// notification store.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
//   - Inbound frames are processed strictly sequentially on a single
//     read-loop goroutine; no two frames are handled concurrently.
type Session struct {
	cfg    config.BackendConfig
	rcfg   config.ReconnectConfig
	dialer Dialer
	logger Logger
	sink   AlertSink
	store  NotificationStore

	cache *StateCache
	subs  *SubscriptionRegistry

	obsMu     sync.RWMutex
	observers []EventObserver

	mu           sync.Mutex
	state        ConnectionState
	transport    Transport
	attempt      int
	backoffTimer *time.Timer
	authed       bool

	// gen is the connection generation. It is bumped on Disconnect and
	// manual Reconnect so stale read loops and backoff timers from a
	// previous lifecycle cannot act on the session.
	gen int
}

// NewSession creates a Session in the Disconnected state.
//
// Parameters:
//   - deps: Required dependencies (backend config, notification store, logger)
//
// Returns:
//   - *Session: Session ready for Connect()
//   - error: Wrapped ErrMissingDependency if a required dependency is absent
func NewSession(deps Deps) (*Session, error) {
	if deps.Logger == nil {
		return nil, errMissing("logger")
	}
	if deps.Store == nil {
		return nil, errMissing("notification store")
	}

	sink := deps.Sink
	if sink == nil {
		sink = nopSink{}
	}

	dialer := deps.Dialer
	if dialer == nil {
		dialer = &WebSocketDialer{
			HandshakeTimeout: time.Duration(deps.Backend.ConnectTimeout) * time.Second,
		}
	}

	rcfg := deps.Reconnect
	if rcfg == (config.ReconnectConfig{}) {
		rcfg = config.ReconnectConfig{BaseDelay: 1, MaxDelay: 30, MaxAttempts: 5}
	}

	s := &Session{
		cfg:    deps.Backend,
		rcfg:   rcfg,
		dialer: dialer,
		logger: deps.Logger,
		sink:   sink,
		store:  deps.Store,
		state:  StateDisconnected,
	}
	s.cache = NewStateCache(sink, deps.Store, deps.Logger)
	s.subs = newSubscriptionRegistry(s, deps.Logger)

	return s, nil
}

// Cache returns the session's state caches.
func (s *Session) Cache() *StateCache {
	return s.cache
}

// Subscriptions returns the session's subscription registry.
func (s *Session) Subscriptions() *SubscriptionRegistry {
	return s.subs
}

// UserID returns the authenticated user id for this session.
func (s *Session) UserID() string {
	return s.cfg.UserID
}

// State returns the current connection state.
func (s *Session) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AddObserver registers an observer for cache updates.
// Observers should be registered before Connect.
func (s *Session) AddObserver(obs EventObserver) {
	if obs == nil {
		return
	}
	s.obsMu.Lock()
	s.observers = append(s.observers, obs)
	s.obsMu.Unlock()
}

// Connect starts the connection lifecycle.
//
// Idempotent: a no-op if the session is already Connecting, Authenticating
// or Connected, so repeated calls never produce a duplicate auth handshake.
func (s *Session) Connect() {
	s.mu.Lock()
	switch s.state {
	case StateConnecting, StateAuthenticating, StateConnected:
		s.mu.Unlock()
		return
	case StateDisconnected, StateReconnecting, StateFailed:
	}
	s.authed = true
	s.stopBackoffLocked()
	gen := s.gen
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	go s.dial(gen)
}

// Disconnect tears the session down: the transport is closed, any pending
// backoff timer is cancelled and the attempt counter cleared.
//
// The state caches and subscription registry are cleared; the notification
// store is deliberately left intact so notifications survive a logout/login
// cycle within the same run.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.authed = false
	s.gen++
	s.stopBackoffLocked()
	s.attempt = 0
	t := s.transport
	s.transport = nil
	s.setStateLocked(StateDisconnected)
	s.mu.Unlock()

	if t != nil {
		//nolint:errcheck // Connection is being abandoned either way
		t.Close()
	}

	s.cache.Clear()
	s.subs.Clear()
	s.logger.Info("session disconnected")
}

// Reconnect manually restarts the connection after automatic retries were
// exhausted (Failed state). It resets the attempt counter and re-enters
// Connecting. A no-op while already Connecting, Authenticating or Connected.
func (s *Session) Reconnect() {
	s.mu.Lock()
	switch s.state {
	case StateConnecting, StateAuthenticating, StateConnected:
		s.mu.Unlock()
		return
	case StateDisconnected, StateReconnecting, StateFailed:
	}
	s.stopBackoffLocked()
	s.attempt = 0
	s.authed = true
	s.gen++
	gen := s.gen
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	s.logger.Info("manual reconnect requested")
	go s.dial(gen)
}

// Send writes a frame to the stream. If the session is not Connected the
// frame is silently dropped (no queueing of outbound frames) and Send
// returns false; callers must tolerate the drop.
func (s *Session) Send(frame any) bool {
	s.mu.Lock()
	if s.state != StateConnected || s.transport == nil {
		s.mu.Unlock()
		s.logger.Debug("outbound frame dropped, not connected")
		return false
	}
	t := s.transport
	s.mu.Unlock()

	if err := t.WriteJSON(frame); err != nil {
		// The read loop observes the broken connection and drives recovery.
		s.logger.Warn("outbound frame write failed", "error", err)
		return false
	}
	return true
}

// RequestState asks the server to push the current state of a device.
// Dropped silently when not connected.
func (s *Session) RequestState(deviceID string) bool {
	return s.sendControl(TypeRequestState, deviceID)
}

// sendControl implements frameSender for the subscription registry.
func (s *Session) sendControl(frameType, deviceID string) bool {
	return s.Send(controlFrame{
		Type:      frameType,
		DeviceID:  deviceID,
		UserID:    s.cfg.UserID,
		Timestamp: timestamp(),
	})
}

// dial attempts one transport connection and, on success, performs the
// authentication handshake and starts the read loop.
func (s *Session) dial(gen int) {
	ctx, cancel := context.WithTimeout(context.Background(), s.connectTimeout())
	defer cancel()

	t, err := s.dialer.Dial(ctx, s.cfg.StreamURL)

	s.mu.Lock()
	if s.gen != gen || s.state != StateConnecting {
		s.mu.Unlock()
		if err == nil {
			//nolint:errcheck // Lifecycle moved on; abandon the late connection
			t.Close()
		}
		return
	}
	if err != nil {
		s.setStateLocked(StateReconnecting)
		s.mu.Unlock()
		s.logger.Warn("stream connect failed", "error", err)
		s.scheduleRetry(gen)
		return
	}
	s.transport = t
	s.setStateLocked(StateAuthenticating)
	s.mu.Unlock()

	auth := authFrame{
		Type:      TypeAuth,
		Token:     s.cfg.Token,
		UserID:    s.cfg.UserID,
		Timestamp: timestamp(),
	}
	if err := t.WriteJSON(auth); err != nil {
		s.logger.Warn("auth frame write failed", "error", err)
		s.handleTransportError(gen, err)
		return
	}

	go s.readLoop(gen, t)
}

// readLoop consumes frames until the transport fails. It is the single
// logical consumer: frames are routed strictly in arrival order.
func (s *Session) readLoop(gen int, t Transport) {
	for {
		data, err := t.ReadMessage()
		if err != nil {
			s.handleTransportError(gen, err)
			return
		}
		s.route(data)
	}
}

// handleAuthSuccess transitions Authenticating → Connected, resets the
// backoff counter and triggers the one-time notification reload.
func (s *Session) handleAuthSuccess() {
	s.mu.Lock()
	if s.state != StateAuthenticating {
		// Duplicate auth_success or stale frame; nothing to do.
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateConnected)
	s.attempt = 0
	s.mu.Unlock()

	s.logger.Info("stream authenticated", "user_id", s.cfg.UserID)

	// Reload asynchronously so frame processing continues while the REST
	// call is in flight. One reload per successful auth, never a poll.
	go func() {
		if err := s.store.Reload(context.Background()); err != nil {
			s.logger.Error("notification reload failed", "error", err)
		}
	}()
}

// handleTransportError reacts to a closed or failed transport.
func (s *Session) handleTransportError(gen int, err error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	if s.transport != nil {
		//nolint:errcheck // Connection already failed
		s.transport.Close()
		s.transport = nil
	}
	if !s.authed {
		s.setStateLocked(StateDisconnected)
		s.mu.Unlock()
		return
	}
	s.setStateLocked(StateReconnecting)
	s.mu.Unlock()

	s.logger.Warn("stream connection lost", "error", err)
	s.scheduleRetry(gen)
}

// scheduleRetry arms the backoff timer for the next reconnection attempt,
// or enters Failed once the attempt budget is exhausted.
//
// The delay before attempt n is min(2^n, max_delay) * base_delay seconds.
func (s *Session) scheduleRetry(gen int) {
	s.mu.Lock()
	if s.gen != gen || !s.authed || s.state != StateReconnecting {
		s.mu.Unlock()
		return
	}
	if s.attempt >= s.rcfg.MaxAttempts {
		s.setStateLocked(StateFailed)
		s.mu.Unlock()
		s.logger.Error("reconnect attempts exhausted", "attempts", s.rcfg.MaxAttempts)
		s.sink.OnConnectionLost()
		return
	}

	delay := backoffDelay(s.attempt, s.rcfg)
	s.attempt++
	attempt := s.attempt
	s.backoffTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.gen != gen || s.state != StateReconnecting {
			s.mu.Unlock()
			return
		}
		s.setStateLocked(StateConnecting)
		s.mu.Unlock()
		s.dial(gen)
	})
	s.mu.Unlock()

	s.logger.Info("reconnect scheduled", "attempt", attempt, "delay", delay.String())
}

// stopBackoffLocked cancels a pending backoff timer. Caller must hold s.mu.
func (s *Session) stopBackoffLocked() {
	if s.backoffTimer != nil {
		s.backoffTimer.Stop()
		s.backoffTimer = nil
	}
}

// setStateLocked records a state transition. Caller must hold s.mu.
func (s *Session) setStateLocked(next ConnectionState) {
	if s.state == next {
		return
	}
	prev := s.state
	s.state = next
	s.logger.Debug("connection state changed", "from", prev.String(), "to", next.String())
}

// connectTimeout returns the configured dial timeout.
func (s *Session) connectTimeout() time.Duration {
	if s.cfg.ConnectTimeout > 0 {
		return time.Duration(s.cfg.ConnectTimeout) * time.Second
	}
	return defaultHandshakeTimeout
}

// notifyTelemetry fans a telemetry update out to registered observers.
func (s *Session) notifyTelemetry(snap TelemetrySnapshot) {
	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()
	for _, obs := range observers {
		obs.OnTelemetry(snap)
	}
}

// notifyDeviceStatus fans a status update out to registered observers.
func (s *Session) notifyDeviceStatus(status DeviceStatus) {
	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()
	for _, obs := range observers {
		obs.OnDeviceStatus(status)
	}
}

// backoffDelay computes the reconnection delay for the given attempt:
// min(2^attempt, max_delay) * base_delay seconds.
func backoffDelay(attempt int, cfg config.ReconnectConfig) time.Duration {
	factor := 1
	for i := 0; i < attempt; i++ {
		factor *= 2
		if factor >= cfg.MaxDelay {
			factor = cfg.MaxDelay
			break
		}
	}
	if factor > cfg.MaxDelay {
		factor = cfg.MaxDelay
	}
	return time.Duration(factor*cfg.BaseDelay) * time.Second
}

// timestamp returns the current UTC time in RFC3339 for outbound frames.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
