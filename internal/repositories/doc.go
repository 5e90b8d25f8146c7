// Package repositories implements SQLite persistence for the music server.
//
// Each repository wraps a [sql.DB] for a single table and returns sentinel errors
// so callers can tell "absent" from "broken".
//
// Key Implementations:
//   - [TrackRepository] : the collection, paged in insertion order, and stream resolution
//   - [UserRepository] : accounts and the handshake credential lookup
//   - [SessionRepository] : the SQLite session backend with atomic insert-if-absent
//
// Expired sessions are never purged implicitly. Liveness is decided by the caller at read time.
package repositories
