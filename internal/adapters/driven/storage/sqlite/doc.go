// Package sqlite provides the run ledger on top of SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. The ledger records one row per crawl or process run with
// its outcome and counts, so operators can review history with the runs
// command.
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/
// directory. Each applied version is recorded in schema_migrations.
//
// # Thread Safety
//
// All operations are safe for concurrent use. The database is opened in WAL
// mode with a busy timeout.
package sqlite
