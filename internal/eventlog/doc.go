// Package eventlog archives routed fleet events to SQLite.
//
// The in-memory activity feed keeps only the most recent entries; this
// package gives the dashboard a durable history that survives restarts.
// Writes happen on the session's observer path, reads serve the local API,
// and a retention prune keeps the table bounded.
package eventlog
