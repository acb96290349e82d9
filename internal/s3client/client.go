// Package s3client wraps the AWS SDK for the object-storage KV backend. Each
// collection is one small object, read and replaced whole. Works against AWS,
// Tigris and other S3-compatible stores, and gofakes3 in tests.
package s3client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrObjectNotFound is returned when a requested object does not exist.
var ErrObjectNotFound = errors.New("s3client: object not found")

// Client is bound to one bucket.
type Client struct {
	s3Client   *s3.Client
	bucketName string
}

// Config holds the connection settings.
type Config struct {
	// Endpoint overrides the S3 endpoint, e.g. "https://fly.storage.tigris.dev".
	// Empty means AWS.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	// UsePathStyle selects path-style addressing (gofakes3, MinIO).
	UsePathStyle bool
}

// Object is a stored blob. Metadata keys are lowercase; S3 transports them as
// x-amz-meta-* headers.
type Object struct {
	Body         []byte
	ContentType  string
	Metadata     map[string]string
	LastModified time.Time
}

// New creates a client from cfg. Static credentials are used when both keys
// are set, otherwise the SDK's default chain.
func New(ctx context.Context, cfg Config) (*Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Not every S3-compatible store accepts the SDK's default CRC
			// trailers.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
	})
	return NewFromS3Client(s3Client, cfg.BucketName), nil
}

// NewFromS3Client wraps an existing SDK client.
func NewFromS3Client(s3Client *s3.Client, bucketName string) *Client {
	return &Client{s3Client: s3Client, bucketName: bucketName}
}

// PutObject replaces the object at key.
func (c *Client) PutObject(ctx context.Context, key string, obj Object) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(obj.Body),
		ContentLength: aws.Int64(int64(len(obj.Body))),
		Metadata:      obj.Metadata,
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}
	if _, err := c.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3client: put %q: %w", key, err)
	}
	return nil
}

// GetObject reads the object at key, or returns ErrObjectNotFound.
func (c *Client) GetObject(ctx context.Context, key string) (Object, error) {
	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &notFound) {
			return Object{}, ErrObjectNotFound
		}
		return Object{}, fmt.Errorf("s3client: get %q: %w", key, err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return Object{}, fmt.Errorf("s3client: read %q: %w", key, err)
	}
	return Object{
		Body:         body,
		ContentType:  aws.ToString(result.ContentType),
		Metadata:     result.Metadata,
		LastModified: aws.ToTime(result.LastModified),
	}, nil
}

// HeadBucket checks that the bucket exists and is reachable.
func (c *Client) HeadBucket(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucketName),
	})
	if err != nil {
		return fmt.Errorf("s3client: bucket %q unavailable: %w", c.bucketName, err)
	}
	return nil
}

// BucketName returns the configured bucket.
func (c *Client) BucketName() string {
	return c.bucketName
}
