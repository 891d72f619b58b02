// Package storage persists the publication log.
//
// Drivers:
//   - "file": a JSON array rewritten in full on every append (default)
//   - "sqlite": SQLite database file (modernc.org/sqlite, no cgo)
//   - "postgres": PostgreSQL via lib/pq
//
// Entries are only ever appended; nothing here updates or deletes them.
package storage
