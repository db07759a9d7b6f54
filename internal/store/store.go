// Package store is the persistence collaborator: projects, products,
// competitors, and their append-only snapshot history, in SQLite.
//
// Read operations return nil (or an empty slice) when nothing matches;
// "not found" is data, not an error. Write operations return errors.
// Snapshots are never updated; the most recent row by created_at is the
// active one.
package store

import "database/sql"

// Store wraps an opened database for concurrence operations.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// ApplySchema applies the concurrence schema. Idempotent.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
