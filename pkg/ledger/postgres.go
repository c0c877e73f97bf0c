package ledger

import (
	"context"
	"database/sql"

	"github.com/basinforge/skillforge/pkg/ferr"

	_ "github.com/lib/pq"
)

// NewPostgres opens a Postgres-backed Store, running any pending
// migrations. An alternate backend for operators who outgrow a single
// SQLite file but still want a single-writer local database
// (spec.md §5 explicitly excludes distributed storage and multi-writer
// coordination; this is not a cluster, just a different engine).
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &ferr.StoreError{Op: "open postgres", Cause: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &ferr.StoreError{Op: "ping postgres", Cause: err}
	}
	return newSQLStore(ctx, db, dialectPostgres)
}
