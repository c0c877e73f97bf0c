package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/basinforge/skillforge/pkg/ferr"

	_ "modernc.org/sqlite"
)

// NewSQLite opens (creating if necessary) a SQLite-backed Store at path,
// running any pending migrations. This is the forge's default ledger
// backend: a single-writer local database per spec.md §5.
func NewSQLite(ctx context.Context, path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &ferr.StoreError{Op: "open sqlite", Cause: err}
	}
	// modernc.org/sqlite serializes writers internally; a single
	// connection avoids "database is locked" under our single-writer model.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &ferr.StoreError{Op: "ping sqlite", Cause: fmt.Errorf("%s: %w", path, err)}
	}
	return newSQLStore(ctx, db, dialectSQLite)
}
