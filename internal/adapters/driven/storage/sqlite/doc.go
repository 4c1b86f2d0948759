// Package sqlite provides a SQLite-based implementation of the object store
// and rate-limit counter ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Both stores share one database
// connection:
//
//   - ObjectStore: artifact, index and alias documents of every space
//   - CounterStore: sliding-window event timestamps for the rate limiter
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.distill/data/distill.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
