package notes

import (
	"context"
	"slices"
	"sync"
	"time"
)

// memLocal is an in-memory local cache.
type memLocal[T any] struct {
	mu    sync.Mutex
	items []T
	ok    bool
	saves int
}

func (l *memLocal[T]) Load() ([]T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items), l.ok
}

func (l *memLocal[T]) Save(items []T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = slices.Clone(items)
	l.ok = true
	l.saves++
	return nil
}

func (l *memLocal[T]) snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

// memRemote is an in-memory remote slot.
type memRemote[T any] struct {
	mu       sync.Mutex
	stored   []T
	fetchErr error
	writes   int
}

func (r *memRemote[T]) Fetch(ctx context.Context) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	return slices.Clone(r.stored), nil
}

func (r *memRemote[T]) Replace(ctx context.Context, items []T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = slices.Clone(items)
	r.writes++
	return nil
}

func (r *memRemote[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.stored)
}

// fixedClock returns the same instant until advanced.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func loadedNotes(t interface{ Fatalf(string, ...any) }) (*Service, *memLocal[Note], *memRemote[Note]) {
	local := &memLocal[Note]{}
	remote := &memRemote[Note]{}
	svc := NewService(local, remote)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load notes: %v", err)
	}
	return svc, local, remote
}

func loadedCategories(t interface{ Fatalf(string, ...any) }) (*CategoryService, *memLocal[Category], *memRemote[Category]) {
	local := &memLocal[Category]{}
	remote := &memRemote[Category]{}
	svc := NewCategoryService(local, remote)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load categories: %v", err)
	}
	return svc, local, remote
}

func ptr[T any](v T) *T { return &v }
