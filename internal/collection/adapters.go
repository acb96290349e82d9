package collection

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kuitang/notebook/internal/localcache"
	"github.com/kuitang/notebook/internal/obs"
)

// Local is the client-persistent mirror of a collection.
type Local[T any] interface {
	// Load returns the cached collection. ok is false when nothing usable is
	// cached; corrupt data counts as absent.
	Load() (items []T, ok bool)
	Save(items []T) error
}

// Remote is the remote key-value slot holding a collection.
type Remote[T any] interface {
	// Fetch returns the stored collection, or an empty one if the slot is unset.
	Fetch(ctx context.Context) ([]T, error)
	// Replace overwrites the whole slot.
	Replace(ctx context.Context, items []T) error
}

// BlobStore stores opaque blobs under fixed names.
type BlobStore interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
}

// BlobCache is a Local that keeps the collection as one JSON blob.
type BlobCache[T any] struct {
	store BlobStore
	key   string
}

// NewBlobCache returns a JSON blob cache stored under key.
func NewBlobCache[T any](store BlobStore, key string) *BlobCache[T] {
	return &BlobCache[T]{store: store, key: key}
}

func (c *BlobCache[T]) Load() ([]T, bool) {
	data, err := c.store.Get(c.key)
	if err != nil {
		if !errors.Is(err, localcache.ErrNotFound) {
			obs.Pkg("collection").Warn("local cache unreadable", "key", c.key, "error", err)
		}
		return nil, false
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		obs.Pkg("collection").Warn("local cache corrupt, ignoring", "key", c.key, "error", err)
		return nil, false
	}
	return items, true
}

func (c *BlobCache[T]) Save(items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.store.Put(c.key, data)
}
