// Package storage fetches remote partition files from S3-compatible object
// storage and decodes them through pooled DuckDB connections.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ratelens/internal/config"
	"ratelens/internal/domain"
	"ratelens/internal/engine"
)

// Compile-time check: S3Fetcher implements domain.PartitionFetcher.
var _ domain.PartitionFetcher = (*S3Fetcher)(nil)

// ObjectGetter is the slice of the S3 API the fetcher needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher downloads one partition file per Fetch call and reads it with a
// column projection through the connection pool. The downloaded file is
// removed, and its pooled connection released, before Fetch returns.
type S3Fetcher struct {
	client  ObjectGetter
	pool    *engine.Pool
	dataDir string
	logger  *slog.Logger
}

// NewS3Client builds an S3 client from config: static credentials with an
// optional custom endpoint (path-style) when configured, otherwise the
// default AWS credential chain.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	if cfg.HasS3Config() {
		opts := s3.Options{
			Region: *cfg.S3Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				*cfg.S3KeyID, *cfg.S3Secret, "",
			),
		}
		if cfg.S3Endpoint != nil {
			opts.BaseEndpoint = aws.String(fmt.Sprintf("https://%s", *cfg.S3Endpoint))
			opts.UsePathStyle = true
		}
		return s3.New(opts), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load default AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// NewS3Fetcher creates a fetcher that stages downloads under dataDir.
func NewS3Fetcher(client ObjectGetter, pool *engine.Pool, dataDir string, logger *slog.Logger) *S3Fetcher {
	return &S3Fetcher{client: client, pool: pool, dataDir: dataDir, logger: logger}
}

// Fetch downloads the partition at location (an s3:// URI) and returns its
// rows, optionally projected to the given columns. Failures are returned as
// PartitionFetchError so the merge engine can skip and count them.
func (f *S3Fetcher) Fetch(ctx context.Context, location string, columns []string) ([]domain.Row, []string, error) {
	bucket, key, err := ParseS3Path(location)
	if err != nil {
		return nil, nil, &domain.PartitionFetchError{Location: location, Err: err}
	}

	tmpPath, err := f.download(ctx, bucket, key)
	if err != nil {
		return nil, nil, &domain.PartitionFetchError{Location: location, Err: err}
	}
	defer func() {
		f.pool.Release(tmpPath)
		_ = os.Remove(tmpPath)
	}()

	rows, cols, err := ReadParquet(ctx, f.pool, tmpPath, columns)
	if err != nil {
		return nil, nil, &domain.PartitionFetchError{Location: location, Err: err}
	}

	f.logger.Debug("partition fetched", "location", location, "rows", len(rows))
	return rows, cols, nil
}

func (f *S3Fetcher) download(ctx context.Context, bucket, key string) (string, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close() //nolint:errcheck

	tmp, err := os.CreateTemp(f.dataDir, "partition-*"+filepath.Ext(key))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, out.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("stream object body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), nil
}

// ParseS3Path splits an s3:// URI (or bare "bucket/key" path) into bucket
// and key.
func ParseS3Path(s3Path string) (bucket, key string, err error) {
	p := strings.TrimPrefix(s3Path, "s3://")
	bucket, key, ok := strings.Cut(p, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 path %q: want s3://bucket/key", s3Path)
	}
	return bucket, key, nil
}
