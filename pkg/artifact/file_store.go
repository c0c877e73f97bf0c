package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/basinforge/skillforge/pkg/ferr"
)

// FileStore is a filesystem-backed content-addressed blob store,
// grounded on artifacts/store.go's FileStore.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a CAS store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, &ferr.StoreError{Op: "mkdir artifact store", Cause: err}
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) Put(ctx context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := sha256.Sum256(data)
	hexHash := hex.EncodeToString(sum[:])
	hash := "sha256:" + hexHash

	path := filepath.Join(s.baseDir, hexHash+".blob")
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", &ferr.StoreError{Op: "write blob", Cause: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", &ferr.StoreError{Op: "commit blob", Cause: err}
	}
	return hash, nil
}

func (s *FileStore) Get(ctx context.Context, hash string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rawHash, err := parseHash(hash)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.baseDir, rawHash+".blob")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ferr.NotFound{Kind: "artifact-blob", ID: hash}
		}
		return nil, &ferr.StoreError{Op: "open blob", Cause: err}
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &ferr.StoreError{Op: "read blob", Cause: err}
	}
	return data, nil
}

func (s *FileStore) Exists(ctx context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rawHash, err := parseHash(hash)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(filepath.Join(s.baseDir, rawHash+".blob"))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, &ferr.StoreError{Op: "stat blob", Cause: err}
}

func parseHash(hash string) (string, error) {
	const prefix = "sha256:"
	if len(hash) <= len(prefix) || hash[:len(prefix)] != prefix {
		return "", fmt.Errorf("invalid hash format: %s", hash)
	}
	raw := hash[len(prefix):]
	if _, err := hex.DecodeString(raw); err != nil {
		return "", fmt.Errorf("invalid hash hex: %w", err)
	}
	return raw, nil
}
