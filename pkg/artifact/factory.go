package artifact

import (
	"context"
	"fmt"
	"os"

	"github.com/basinforge/skillforge/pkg/ferr"
)

// NewStoreFromEnv selects a Store backend from environment variables,
// grounded on artifacts/factory.go's env-driven backend selection.
//
// ARTIFACT_STORAGE_TYPE: "file" (default), "s3", or "gcs".
func NewStoreFromEnv(ctx context.Context) (Store, error) {
	switch backend := os.Getenv("ARTIFACT_STORAGE_TYPE"); backend {
	case "", "file":
		dir := os.Getenv("FORGE_DATA_DIR")
		if dir == "" {
			dir = "data/artifacts"
		}
		return NewFileStore(dir)

	case "s3":
		bucket := os.Getenv("ARTIFACT_S3_BUCKET")
		if bucket == "" {
			return nil, &ferr.StoreError{Op: "configure s3 store", Cause: fmt.Errorf("ARTIFACT_S3_BUCKET is required")}
		}
		return NewS3Store(ctx, S3StoreConfig{
			Bucket:   bucket,
			Region:   os.Getenv("ARTIFACT_S3_REGION"),
			Endpoint: os.Getenv("ARTIFACT_S3_ENDPOINT"),
			Prefix:   os.Getenv("ARTIFACT_S3_PREFIX"),
		})

	case "gcs":
		bucket := os.Getenv("ARTIFACT_GCS_BUCKET")
		if bucket == "" {
			return nil, &ferr.StoreError{Op: "configure gcs store", Cause: fmt.Errorf("ARTIFACT_GCS_BUCKET is required")}
		}
		return NewGCSStore(ctx, GCSStoreConfig{
			Bucket: bucket,
			Prefix: os.Getenv("ARTIFACT_GCS_PREFIX"),
		})

	default:
		return nil, &ferr.StoreError{Op: "configure artifact store", Cause: fmt.Errorf("unknown ARTIFACT_STORAGE_TYPE %q", backend)}
	}
}
