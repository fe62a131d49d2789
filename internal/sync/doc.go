// Package sync implements the real-time synchronisation engine between the
// fleet backend and the local dashboard state.
//
// One Session owns one live WebSocket connection per authenticated user. The
// session drives an explicit connection lifecycle (Disconnected, Connecting,
// Authenticating, Connected, Reconnecting, Failed), authenticates with a
// bearer token as the first frame after the transport opens, and recovers
// from dropped connections with exponential backoff: the delay before
// attempt n is min(2^n, max_delay) * base_delay seconds, and after the
// configured number of consecutive failures the session parks in Failed
// until a manual Reconnect.
//
// Inbound frames are JSON envelopes routed by their type field on a single
// read-loop goroutine, so updates are applied strictly in arrival order.
// Routed payloads feed the in-memory state caches (latest telemetry and
// status per device, command results, a bounded recent-event feed) and the
// notification store. Malformed frames are dropped and logged; unknown
// types are ignored for forward compatibility.
//
// Outbound frames (auth, subscribe, unsubscribe, command, request_state)
// are fire-and-forget: when the session is not Connected they are silently
// dropped, never queued.
//
// Usage:
//
//	session, err := sync.NewSession(sync.Deps{
//		Backend:   cfg.Backend,
//		Reconnect: cfg.Reconnect,
//		Store:     store,
//		Sink:      alerts,
//		Logger:    logger,
//	})
//	if err != nil {
//		return err
//	}
//	session.Connect()
//	defer session.Disconnect()
//
//	session.Subscriptions().Subscribe("device-1")
//	id, _ := session.SendCommand("device-1", "restart", nil)
package sync
