// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements two store interfaces
// through a single database:
//
//   - ApplicationStore: application records and the status audit log
//   - SchedulerStore: serve loop job schedules and the run log
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Dates are stored as YYYY-MM-DD text and timestamps as fixed-width UTC text,
// so both order correctly as strings.
//
// # Data Location
//
// By default, the database is stored at ~/.planwatch/data/planwatch.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The database runs in WAL mode,
// so readers never wait on the writer. Writes that touch more than one row
// run in a single immediate transaction.
package sqlite
