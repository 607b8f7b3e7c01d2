// Package s3 implements the blob.Backend contract against an
// S3-compatible endpoint.
package s3

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/nimbusvault/corestore/internal/blob"
	"github.com/nimbusvault/corestore/internal/logging"
	corestoreerrors "github.com/nimbusvault/corestore/pkg/errors"
)

// Config describes how to reach the S3-compatible endpoint.
type Config struct {
	Region         string
	Endpoint       string
	Bucket         string
	ForcePathStyle bool
	MaxRetries     int
}

// Backend is the S3-compatible blob driver. Unlike the local driver it
// has no rename primitive, so Rename is copy-then-delete.
type Backend struct {
	client *s3.Client
	bucket string
}

var _ blob.Backend = (*Backend)(nil)

// New constructs a Backend and verifies the bucket is reachable.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Bucket == "" {
		return nil, corestoreerrors.New(corestoreerrors.KindInternal, "s3 bucket must be configured").
			WithComponent("blob.s3")
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMaxAttempts(maxRetries),
	)
	if err != nil {
		return nil, corestoreerrors.Wrap(corestoreerrors.KindUnavailable, err, "failed to load AWS config").
			WithComponent("blob.s3")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	b := &Backend{client: client, bucket: cfg.Bucket}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, corestoreerrors.Wrap(corestoreerrors.KindUnavailable, err, "bucket is not reachable").
			WithComponent("blob.s3")
	}

	return b, nil
}

// Put uploads src under key.
func (b *Backend) Put(ctx context.Context, key string, src io.Reader) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   src,
	})
	if err != nil {
		return b.translateError(err, "Put", key)
	}
	return nil
}

// Get opens key for reading.
func (b *Backend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, b.translateError(err, "Get", key)
	}
	return result.Body, nil
}

// Delete removes key. Absence is not an error.
func (b *Backend) Delete(ctx context.Context, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return b.translateError(err, "Delete", key)
	}
	return nil
}

// Exists reports whether key is present.
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, b.translateError(err, "Exists", key)
	}
	return true, nil
}

// ListKeys lists objects in the bucket using the continuation token as
// the resume point.
func (b *Backend) ListKeys(ctx context.Context, pageToken string, pageSize int) (blob.KeyPage, error) {
	if pageSize <= 0 {
		pageSize = 1000
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(b.bucket),
		MaxKeys: aws.Int32(int32(pageSize)),
	}
	if pageToken != "" {
		input.ContinuationToken = aws.String(pageToken)
	}

	result, err := b.client.ListObjectsV2(ctx, input)
	if err != nil {
		return blob.KeyPage{}, b.translateError(err, "ListKeys", "")
	}

	page := blob.KeyPage{Keys: make([]string, 0, len(result.Contents))}
	for _, obj := range result.Contents {
		page.Keys = append(page.Keys, aws.ToString(obj.Key))
	}
	if aws.ToBool(result.IsTruncated) {
		page.HasMore = true
		page.NextToken = aws.ToString(result.NextContinuationToken)
	}
	return page, nil
}

// Rename copies oldKey to newKey server-side, then deletes oldKey. Not
// atomic, but never loses bytes: the old object remains if the copy
// fails, and is only removed after the copy succeeds.
func (b *Backend) Rename(ctx context.Context, oldKey, newKey string) error {
	// CopySource is a header value, not a body field: S3 requires the
	// key portion URL-encoded so keys with spaces, '+', or non-ASCII
	// bytes round-trip correctly. Every '/'-delimited segment is
	// escaped independently so the separators themselves survive.
	copySource := b.bucket + "/" + escapeObjectKey(oldKey)
	_, err := b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(b.bucket),
		Key:        aws.String(newKey),
		CopySource: aws.String(copySource),
	})
	if err != nil {
		return b.translateError(err, "Rename", oldKey)
	}

	if err := b.Delete(ctx, oldKey); err != nil {
		logging.WithComponent("blob.s3").Warn().
			Str("old_key", oldKey).Str("new_key", newKey).Err(err).
			Msg("renamed object but failed to delete source; both copies now exist")
	}
	return nil
}

// escapeObjectKey URL-escapes an object key for use as a CopySource
// value, preserving '/' separators instead of percent-encoding them.
func escapeObjectKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

func (b *Backend) translateError(err error, op, key string) error {
	var noSuchKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return corestoreerrors.Wrap(corestoreerrors.KindNotFound, err, "object not found").
			WithComponent("blob.s3").WithOperation(op).WithDetail("key", key)
	}
	return corestoreerrors.Wrap(corestoreerrors.KindUnavailable, err, "s3 operation failed").
		WithComponent("blob.s3").WithOperation(op).WithDetail("key", key)
}
