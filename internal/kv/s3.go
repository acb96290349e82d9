package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/notebook/internal/crypto"
	"github.com/kuitang/notebook/internal/s3client"
)

// S3 is a Store that keeps each key as one object under a prefix. When a seal
// key is configured, object bodies are AES-GCM sealed before upload.
type S3 struct {
	client  *s3client.Client
	prefix  string
	sealKey []byte
	now     func() time.Time
}

// metaUpdatedAt carries Entry.UpdatedAt in the object's user metadata.
const metaUpdatedAt = "updated-at"

// NewS3 creates an object-storage store. sealKey may be nil to store
// plaintext objects.
func NewS3(client *s3client.Client, prefix string, sealKey []byte) (*S3, error) {
	if sealKey != nil && len(sealKey) != crypto.KeySize {
		return nil, fmt.Errorf("seal key must be %d bytes, got %d", crypto.KeySize, len(sealKey))
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3{client: client, prefix: prefix, sealKey: sealKey, now: time.Now}, nil
}

func (s *S3) objectKey(key string) string {
	return s.prefix + key + ".json"
}

func (s *S3) Get(ctx context.Context, key string) (Entry, error) {
	obj, err := s.client.GetObject(ctx, s.objectKey(key))
	if errors.Is(err, s3client.ErrObjectNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}

	value := obj.Body
	if s.sealKey != nil {
		if value, err = crypto.Open(s.sealKey, obj.Body); err != nil {
			return Entry{}, fmt.Errorf("kv: open %q: %w", key, err)
		}
	}
	updatedAt, err := strconv.ParseInt(obj.Metadata[metaUpdatedAt], 10, 64)
	if err != nil {
		// Objects written by other tools have no metadata.
		updatedAt = obj.LastModified.UnixMilli()
	}
	return Entry{Value: value, Digest: Digest(value), UpdatedAt: updatedAt}, nil
}

func (s *S3) Put(ctx context.Context, key string, value []byte) (Entry, error) {
	if value == nil {
		value = []byte{}
	}
	entry := Entry{Value: value, Digest: Digest(value), UpdatedAt: s.now().UnixMilli()}

	obj := s3client.Object{
		Body:        value,
		ContentType: "application/json",
		Metadata:    map[string]string{metaUpdatedAt: strconv.FormatInt(entry.UpdatedAt, 10)},
	}
	if s.sealKey != nil {
		sealed, err := crypto.Seal(s.sealKey, value)
		if err != nil {
			return Entry{}, fmt.Errorf("kv: seal %q: %w", key, err)
		}
		obj.Body = sealed
		obj.ContentType = "application/octet-stream"
	}
	if err := s.client.PutObject(ctx, s.objectKey(key), obj); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *S3) Ping(ctx context.Context) error { return s.client.HeadBucket(ctx) }

func (s *S3) Close() error { return nil }

func (s *S3) Backend() string { return "s3" }
