// Package s3 reads blobs from an S3 bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"3tcapital/ms_extraccion_core/internal/core/blob"
)

// API is the subset of the S3 client the store needs.
type API interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Store implements blob.Store over one bucket.
type Store struct {
	client API
	bucket string
}

// NewStore creates a store reading from bucket.
func NewStore(client API, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// NewStoreFromConfig creates a store with a client built from cfg.
func NewStoreFromConfig(cfg aws.Config, bucket string) *Store {
	return NewStore(awss3.NewFromConfig(cfg), bucket)
}

// Get downloads the object stored under key. Keys may also be given as
// s3://bucket/key URIs naming the configured bucket.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	bucket, objectKey := s.locate(key)

	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, fmt.Errorf("s3://%s/%s: %w", bucket, objectKey, blob.ErrNotFound)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, objectKey, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, objectKey, err)
	}
	return data, nil
}

func (s *Store) locate(key string) (string, string) {
	if rest, ok := strings.CutPrefix(key, "s3://"); ok {
		bucket, objectKey, _ := strings.Cut(rest, "/")
		return bucket, objectKey
	}
	return s.bucket, strings.TrimPrefix(key, "/")
}

var _ blob.Store = (*Store)(nil)
