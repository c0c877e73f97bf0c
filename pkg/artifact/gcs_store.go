//go:build gcp

package artifact

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"cloud.google.com/go/storage"

	"github.com/basinforge/skillforge/pkg/ferr"
)

// GCSStoreConfig configures a Google Cloud Storage-backed Store, grounded
// on artifacts/factory_gcp.go.
type GCSStoreConfig struct {
	Bucket string
	Prefix string
}

// GCSStore implements Store against a GCS bucket. Only compiled when the
// gcp build tag is set, mirroring the teacher's factory_gcp.go /
// factory_nogcp.go split so default builds carry no GCS dependency.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore creates a GCS-backed artifact store using application
// default credentials.
func NewGCSStore(ctx context.Context, cfg GCSStoreConfig) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, &ferr.StoreError{Op: "new gcs client", Cause: err}
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *GCSStore) object(name string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.prefix + name)
}

func (s *GCSStore) Put(ctx context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hexHash := hex.EncodeToString(sum[:])
	hash := "sha256:" + hexHash
	name := hexHash + ".blob"

	if _, err := s.object(name).Attrs(ctx); err == nil {
		return hash, nil
	}

	w := s.object(name).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", &ferr.StoreError{Op: "gcs write", Cause: err}
	}
	if err := w.Close(); err != nil {
		return "", &ferr.StoreError{Op: "gcs commit", Cause: err}
	}
	return hash, nil
}

func (s *GCSStore) Get(ctx context.Context, hash string) ([]byte, error) {
	rawHash, err := parseHash(hash)
	if err != nil {
		return nil, err
	}
	r, err := s.object(rawHash + ".blob").NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, &ferr.NotFound{Kind: "artifact-blob", ID: hash}
		}
		return nil, &ferr.StoreError{Op: "gcs open", Cause: err}
	}
	defer func() { _ = r.Close() }()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, &ferr.StoreError{Op: "gcs read", Cause: err}
	}
	return buf.Bytes(), nil
}

func (s *GCSStore) Exists(ctx context.Context, hash string) (bool, error) {
	rawHash, err := parseHash(hash)
	if err != nil {
		return false, err
	}
	_, err = s.object(rawHash + ".blob").Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, &ferr.StoreError{Op: "gcs stat", Cause: err}
}
