// Package storage syncs build artifacts through S3-compatible object
// storage so an index built on one machine can be served from another.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/clinvector/ehrqa/internal/index"
)

// ArtifactStoreConfig holds configuration for ArtifactStore
type ArtifactStoreConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// ArtifactStore uploads and downloads index build artifacts.
type ArtifactStore struct {
	client *s3.Client
	bucket string
}

// NewArtifactStore creates an ArtifactStore against an S3-compatible
// endpoint (MinIO, RustFS, AWS).
func NewArtifactStore(ctx context.Context, cfg ArtifactStoreConfig) (*ArtifactStore, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &ArtifactStore{client: client, bucket: cfg.Bucket}, nil
}

// UploadFile streams one local file into the bucket under key.
func (s *ArtifactStore) UploadFile(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// DownloadFile fetches one object into a local file, written atomically.
func (s *ArtifactStore) DownloadFile(ctx context.Context, key, path string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	return index.WriteFileAtomic(path, data)
}

// artifactKeys maps the local artifact file names to bucket keys.
func artifactKeys(paths []string) map[string]string {
	keys := make(map[string]string, len(paths))
	for _, p := range paths {
		keys["artifacts/"+filepath.Base(p)] = p
	}
	return keys
}

// PushArtifacts uploads every local artifact file in paths.
func (s *ArtifactStore) PushArtifacts(ctx context.Context, paths ...string) error {
	for key, path := range artifactKeys(paths) {
		if err := s.UploadFile(ctx, key, path); err != nil {
			return err
		}
	}
	return nil
}

// PullArtifacts downloads every artifact file in paths from the bucket.
func (s *ArtifactStore) PullArtifacts(ctx context.Context, paths ...string) error {
	for key, path := range artifactKeys(paths) {
		if err := s.DownloadFile(ctx, key, path); err != nil {
			return err
		}
	}
	return nil
}
