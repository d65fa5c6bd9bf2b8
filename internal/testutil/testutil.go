// Package testutil provides shared test helpers for databases and import folders.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/store"
)

// TestDB creates a temporary SQLite store that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(context.Background(), store.Config{Driver: store.DriverSQLite, DSN: dbFile.Name()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestImportDir creates a temporary import folder with a storage.Provider.
func TestImportDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	fsys, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fsys
}
