// Package database provides the SQLite connection layer for the local event
// archive.
//
// It wraps database/sql with connection setup tuned for SQLite: WAL mode for
// concurrent reads during writes, a busy timeout to ride out lock contention,
// a single-writer connection pool, and restrictive file permissions. Schema
// ownership lives with the consuming repository (see the eventlog package),
// not here.
package database
