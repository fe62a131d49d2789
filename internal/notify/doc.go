// Package notify maintains the reconciled per-user notification list.
//
// The list is fed by three independent channels: a bulk REST load (once
// after each successful stream authentication and whenever reconciliation
// is needed), server pushes over the stream, and local user mutations
// (read, delete, clear) that are mirrored to the REST backend.
//
// Mutations are optimistic: the in-memory list changes first, then the REST
// call is issued. Any REST failure triggers a full reload from the backend
// rather than a granular rollback, so after a failed mutation the store
// converges on the server's authoritative state. Cross-tenant pushes
// (user_id mismatch) are dropped and logged, never stored.
//
// The list is capped at the 50 most recent entries; appending beyond the
// cap evicts from the front regardless of read state.
package notify
