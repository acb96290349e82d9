package s3client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// TestServer starts an in-memory gofakes3 server holding the given buckets
// and returns a Config pointing at it. The server stops when the test ends.
func TestServer(t testing.TB, buckets ...string) Config {
	t.Helper()

	backend := s3mem.New()
	for _, b := range buckets {
		if err := backend.CreateBucket(b); err != nil {
			t.Fatalf("create bucket %q: %v", b, err)
		}
	}
	ts := httptest.NewServer(gofakes3.New(backend).Server())
	t.Cleanup(ts.Close)

	cfg := Config{
		Endpoint:        ts.URL,
		Region:          "us-east-1",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	}
	if len(buckets) > 0 {
		cfg.BucketName = buckets[0]
	}
	return cfg
}

// TestClient returns a client for a fresh bucket on its own TestServer.
func TestClient(t testing.TB, bucketName string) *Client {
	t.Helper()
	c, err := New(context.Background(), TestServer(t, bucketName))
	if err != nil {
		t.Fatalf("create test client: %v", err)
	}
	return c
}
