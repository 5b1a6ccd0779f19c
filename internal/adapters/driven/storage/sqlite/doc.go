// Package sqlite provides a SQLite-based implementation of driven.ResourceStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Current and history revisions live in one resources table keyed by
// (partition_key, id).
//
// # Payloads
//
// Resource payloads can be stored zstd-compressed. Each row records its own
// encoding, so a database may mix compressed and plain rows.
//
// # Data Location
//
// By default, the database is stored at ~/.revstore/data/resources.db
//
// # Thread Safety
//
// All operations are thread-safe. Writes from one process are serialised and
// every update is guarded by the stored concurrency token, so writers in other
// processes cannot overwrite a revision they did not read.
package sqlite
