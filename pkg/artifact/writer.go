package artifact

import (
	"context"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/basinforge/skillforge/pkg/ferr"
	"github.com/basinforge/skillforge/pkg/ledger"
)

// Writer ties a Store to the ledger, implementing write_artifact
// (spec.md §4.2): it writes exact bytes, hashes them, derives a
// deterministic path, and records the ledger row in one call.
type Writer struct {
	store  Store
	ledger ledger.Store
}

// NewWriter builds an artifact Writer over the given blob store and
// ledger.
func NewWriter(store Store, ld ledger.Store) *Writer {
	return &Writer{store: store, ledger: ld}
}

// WriteBytes persists raw content verbatim and records an Artifact row.
// The path is always derived as "<kind>_<relatedID>.md" so callers never
// choose paths directly; this keeps artifact locations reconstructable
// from the ledger alone.
func (w *Writer) WriteBytes(ctx context.Context, kind ledger.ArtifactKind, relatedID string, content []byte) (*ledger.Artifact, error) {
	hash, err := w.store.Put(ctx, content)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s_%s.md", kind, relatedID)
	rec := &ledger.Artifact{
		Kind:      kind,
		Path:      path,
		SHA256:    hash,
		RelatedID: relatedID,
	}
	if err := w.ledger.InsertArtifact(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// WriteJSON canonicalizes a JSON document with JCS (RFC 8785) before
// hashing, so semantically identical documents with differently ordered
// object keys hash identically. Used for the structured build-log
// artifact, where map key order is incidental to Go's encoding/json
// output, not to content.
func (w *Writer) WriteJSON(ctx context.Context, kind ledger.ArtifactKind, relatedID string, rawJSON []byte) (*ledger.Artifact, error) {
	canonical, err := jcs.Transform(rawJSON)
	if err != nil {
		return nil, &ferr.ValidationError{Field: "content", Message: "not valid JSON for canonicalization: " + err.Error()}
	}
	return w.WriteBytes(ctx, kind, relatedID, canonical)
}
