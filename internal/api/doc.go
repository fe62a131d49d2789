// Package api provides the local HTTP API for the dashboard shell.
//
// It exposes the synchronised fleet state over loopback HTTP: cached
// telemetry and device status, the recent-event feed and its SQLite archive,
// the notification list with optimistic mutations, subscription management,
// command issuance, and stream connection control (connect, disconnect,
// manual reconnect).
//
// The server is a read/control surface for a UI process on the same host;
// it performs no authentication of its own and should only be bound to
// loopback or an otherwise trusted interface. Backend credentials never
// transit this API.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
