package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3SnapshotStore keeps the snapshot as a single object. PutObject replaces
// the object atomically, readers never see a partial snapshot.
type S3SnapshotStore struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3SnapshotStore builds a client from the default credentials chain.
// Endpoint and path style allow S3-compatible stores such as MinIO.
func NewS3SnapshotStore(ctx context.Context, cfg Config) (*S3SnapshotStore, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	key := cfg.S3Key
	if key == "" {
		key = "raidbot/raids.snapshot"
	}
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", ErrConnection, err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3PathStyle {
			o.UsePathStyle = true
		}
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})
	return &S3SnapshotStore{client: client, bucket: cfg.S3Bucket, key: key}, nil
}

// Load fetches the snapshot object
func (s *S3SnapshotStore) Load(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &s.key})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get %s: %v", ErrQuery, s.key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrQuery, s.key, err)
	}
	return data, nil
}

// Save uploads the snapshot object
func (s *S3SnapshotStore) Save(ctx context.Context, payload []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &s.key,
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrQuery, s.key, err)
	}
	return nil
}

// Ping checks the bucket is reachable
func (s *S3SnapshotStore) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &s.bucket}); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

func (s *S3SnapshotStore) Close() error { return nil }
