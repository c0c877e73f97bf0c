//go:build !gcp

package artifact

import (
	"context"

	"github.com/basinforge/skillforge/pkg/ferr"
)

// GCSStoreConfig mirrors the real config shape so factory.go compiles
// identically regardless of the gcp build tag.
type GCSStoreConfig struct {
	Bucket string
	Prefix string
}

// NewGCSStore is unavailable in builds without the gcp tag.
func NewGCSStore(ctx context.Context, cfg GCSStoreConfig) (Store, error) {
	return nil, &ferr.StoreError{Op: "new gcs store", Cause: errGCSNotBuilt}
}

var errGCSNotBuilt = &unsupportedBackendError{Backend: "gcs"}

type unsupportedBackendError struct{ Backend string }

func (e *unsupportedBackendError) Error() string {
	return "artifact backend " + e.Backend + " not compiled into this binary (build with -tags gcp)"
}
