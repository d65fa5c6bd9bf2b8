package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/starford/folio/internal/query"
)

// TestPostgresRoundTrip runs against a live server when FOLIO_TEST_POSTGRES_DSN is set.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("FOLIO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FOLIO_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, Config{Driver: DriverPostgres, DSN: dsn})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	name := fmt.Sprintf("pg-%d", time.Now().UnixNano())
	a := seed(t, db, name, "ann", time.Now(), name)
	t.Cleanup(func() { _ = db.DeleteArticle(ctx, a.ID) })

	n, err := db.CountArticles(ctx, query.Cond(query.FieldTagName, query.OpIEquals, name))
	if err != nil {
		t.Fatalf("CountArticles: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	again, err := db.UpsertTag(ctx, name)
	if err != nil || again.Name != name {
		t.Errorf("UpsertTag = %+v, %v", again, err)
	}
}
