package collection

import (
	"context"
	"errors"
	"sync"

	"github.com/kuitang/notebook/internal/localcache"
)

type item struct {
	ID string `json:"id"`
	N  int    `json:"n"`
}

var errOffline = errors.New("dial tcp: connection refused")

// memBlobs is an in-memory BlobStore.
type memBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
	puts  int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: map[string][]byte{}}
}

func (b *memBlobs) Get(key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[key]
	if !ok {
		return nil, localcache.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *memBlobs) Put(key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = append([]byte(nil), data...)
	b.puts++
	return nil
}

func (b *memBlobs) raw(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.blobs[key])
}

// fakeRemote records Replace calls. When gate is non-nil, Replace blocks until
// a value is received from it.
type fakeRemote struct {
	mu       sync.Mutex
	stored   []item
	fetchErr error
	replErr  error
	replaced [][]item
	gate     chan struct{}
	started  chan struct{}
}

func (r *fakeRemote) Fetch(ctx context.Context) ([]item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	return clone(r.stored), nil
}

func (r *fakeRemote) Replace(ctx context.Context, items []item) error {
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaced = append(r.replaced, clone(items))
	if r.replErr != nil {
		return r.replErr
	}
	r.stored = clone(items)
	return nil
}

func (r *fakeRemote) calls() [][]item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]item, len(r.replaced))
	copy(out, r.replaced)
	return out
}

// blockingFetchRemote never answers Fetch until ctx is done.
type blockingFetchRemote struct {
	fakeRemote
}

func (r *blockingFetchRemote) Fetch(ctx context.Context) ([]item, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
