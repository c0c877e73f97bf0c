// Package artifact implements content-hashed artifact emission
// (spec.md §4.2): write_artifact(content, path, kind, related_id) ensures
// parent directories exist, writes exact bytes, computes a SHA-256 over
// those exact bytes, and inserts a ledger row. Deterministic path
// derivation is `<kind>_<id>.md` under a caller-chosen output directory.
package artifact

import "context"

// Store is a content-addressed blob store. FileStore is the default
// backend; S3Store and GCSStore are alternates selected via
// NewStoreFromEnv, grounded on the teacher's artifacts.Store family.
type Store interface {
	// Put persists data and returns its "sha256:<hex>" content hash.
	// Idempotent: storing identical bytes twice returns the same hash
	// without re-writing.
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, hash string) ([]byte, error)
	Exists(ctx context.Context, hash string) (bool, error)
}
