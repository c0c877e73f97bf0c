package artifact

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/basinforge/skillforge/pkg/ferr"
)

// S3StoreConfig configures an S3-backed Store, grounded on
// artifacts/s3_store.go.
type S3StoreConfig struct {
	Bucket   string
	Region   string
	Endpoint string // optional custom endpoint (MinIO/LocalStack)
	Prefix   string
}

// S3Store implements Store against an S3-compatible bucket, keyed by the
// blob's SHA-256 hex hash.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3-backed artifact store.
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, &ferr.StoreError{Op: "load aws config", Cause: err}
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3Store) Put(ctx context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hexHash := hex.EncodeToString(sum[:])
	hash := "sha256:" + hexHash
	key := s.prefix + hexHash + ".blob"

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err == nil {
		return hash, nil
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", &ferr.StoreError{Op: "s3 put", Cause: err}
	}
	return hash, nil
}

func (s *S3Store) Get(ctx context.Context, hash string) ([]byte, error) {
	rawHash, err := parseHash(hash)
	if err != nil {
		return nil, err
	}
	key := s.prefix + rawHash + ".blob"
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, &ferr.NotFound{Kind: "artifact-blob", ID: hash}
	}
	defer func() { _ = out.Body.Close() }()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, &ferr.StoreError{Op: "s3 read", Cause: err}
	}
	return buf.Bytes(), nil
}

func (s *S3Store) Exists(ctx context.Context, hash string) (bool, error) {
	rawHash, err := parseHash(hash)
	if err != nil {
		return false, err
	}
	key := s.prefix + rawHash + ".blob"
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		// HeadObject returns a generic API error for both "missing" and
		// transient failures; Exists treats any error as absent since
		// callers fall back to Put/Get for the authoritative answer.
		return false, nil
	}
	return true, nil
}
