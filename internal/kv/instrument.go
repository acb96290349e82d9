package kv

import (
	"context"
	"errors"
	"time"

	"github.com/kuitang/notebook/internal/obs"
)

// Recorder receives one observation per store operation.
type Recorder interface {
	ObserveStore(ctx context.Context, backend, op string, success bool, d time.Duration)
}

type instrumented struct {
	Store
	rec Recorder
}

// Instrument wraps s so every Get and Put is timed, logged at debug and
// reported to rec. A Get of an unset key counts as a success.
func Instrument(s Store, rec Recorder) Store {
	return &instrumented{Store: s, rec: rec}
}

func (i *instrumented) Get(ctx context.Context, key string) (Entry, error) {
	start := time.Now()
	e, err := i.Store.Get(ctx, key)
	i.observe(ctx, "get", key, err == nil || errors.Is(err, ErrNotFound), start, len(e.Value), err)
	return e, err
}

func (i *instrumented) Put(ctx context.Context, key string, value []byte) (Entry, error) {
	start := time.Now()
	e, err := i.Store.Put(ctx, key, value)
	i.observe(ctx, "put", key, err == nil, start, len(value), err)
	return e, err
}

func (i *instrumented) observe(ctx context.Context, op, key string, ok bool, start time.Time, size int, err error) {
	d := time.Since(start)
	i.rec.ObserveStore(ctx, i.Backend(), op, ok, d)

	log := obs.From(ctx).With("pkg", "kv", "backend", i.Backend(), "op", op, "key", key)
	if !ok {
		log.Error("store operation failed", "error", err, "dur_ms", float64(d.Microseconds())/1000.0)
		return
	}
	log.Debug("store operation", "bytes", size, "dur_ms", float64(d.Microseconds())/1000.0)
}
