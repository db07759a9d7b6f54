package dbopen

import (
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenMemoryWithSchema(t *testing.T) {
	// WHAT: In-memory open applies the given schema.
	// WHY: All store tests depend on this helper.
	db := OpenMemory(t, `CREATE TABLE things (id TEXT PRIMARY KEY)`)
	if _, err := db.Exec(`INSERT INTO things (id) VALUES ('a')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestOpenAppliesPragmas(t *testing.T) {
	// WHAT: foreign_keys pragma is ON after Open.
	// WHY: Snapshot rows cascade-delete with their owner; without the
	// pragma SQLite silently ignores the FK constraints.
	db := OpenMemory(t)
	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys: got %d, want 1", fk)
	}
}

func TestOpenMkdirAll(t *testing.T) {
	// WHAT: WithMkdirAll creates missing parent directories.
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "c.db")
	db, err := Open(path, WithMkdirAll())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.Close()
}

func TestOpenBadSchema(t *testing.T) {
	// WHAT: A broken schema blob fails Open rather than deferring the error.
	if _, err := Open(":memory:", WithSchema("NOT SQL")); err == nil {
		t.Error("expected schema error")
	}
}
