// Package sqlite persists watcher state in a SQLite database using the pure
// Go modernc.org/sqlite driver: the change-feed cursor per watched root and
// the history of reconcile passes. Schema changes live in migrations/ and
// are applied in order on open.
package sqlite
