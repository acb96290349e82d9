package collection

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kuitang/notebook/internal/obs"
)

// ErrClosed is returned by Load once the manager has been torn down.
var ErrClosed = errors.New("collection: manager closed")

// Config configures a Manager.
type Config[T any] struct {
	// Name identifies the collection in logs (e.g. "notes").
	Name     string
	Local    Local[T]
	Remote   Remote[T]
	Defaults []T
}

// Manager owns the authoritative in-memory copy of one collection.
// It is safe for concurrent use; mutations are serialized.
type Manager[T any] struct {
	name     string
	local    Local[T]
	remote   Remote[T]
	defaults []T
	log      *slog.Logger

	// mirrorCtx outlives individual calls; Close cancels it.
	mirrorCtx    context.Context
	cancelMirror context.CancelFunc

	mu     sync.Mutex
	items  []T
	state  State
	origin State
	closed bool

	// rev counts changes to items; loading is non-nil while a Load runs.
	rev     uint64
	loading chan struct{}

	// At most one remote write runs at a time. Changes made while it runs set
	// dirty, and the writer sends one more snapshot when it finishes.
	inFlight bool
	dirty    bool
	drained  chan struct{}
}

// NewManager creates an unloaded manager.
func NewManager[T any](cfg Config[T]) *Manager[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager[T]{
		name:         cfg.Name,
		local:        cfg.Local,
		remote:       cfg.Remote,
		defaults:     clone(cfg.Defaults),
		log:          obs.Pkg("collection").With("collection", cfg.Name),
		mirrorCtx:    ctx,
		cancelMirror: cancel,
		state:        Uninitialized,
		origin:       Uninitialized,
	}
}

// Load reconciles the remote and local copies and marks the manager loaded.
// Remote failures are absorbed, including a fetch that runs out of time on
// ctx's deadline. If ctx is cancelled or the manager is closed before the
// fetch resolves, nothing is adopted and the manager stays uninitialized.
// Concurrent calls share one reconciliation; calling Load on a loaded manager
// is a no-op.
func (m *Manager[T]) Load(ctx context.Context) error {
	done, err := m.beginLoad(ctx)
	if err != nil || done == nil {
		return err
	}
	defer m.endLoad(done)

	remote, remoteErr := m.remote.Fetch(ctx)
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return err
	}
	local, _ := m.local.Load()
	d := Decide(remote, remoteErr, local, m.defaults)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.items = d.Items
	m.origin = d.State
	m.state = d.State
	adopted := m.rev
	m.mu.Unlock()

	if remoteErr != nil {
		m.log.Info("remote unavailable, using local copy", "error", remoteErr, "items", len(d.Items))
	}
	if d.Migrate {
		// One-time migration; a failure is not retried here. The next mutation
		// mirrors the full collection anyway.
		if err := m.remote.Replace(ctx, clone(d.Items)); err != nil {
			m.log.Warn("migration to remote failed", "error", err, "items", len(d.Items))
		} else {
			m.log.Info("migrated local copy to remote", "items", len(d.Items))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Loaded
	m.saveLocalLocked()
	if m.rev != adopted && !m.closed {
		// Changed while the migration write ran.
		m.mirrorLocked()
	}
	m.log.Debug("collection loaded", "origin", d.State.String(), "items", len(m.items))
	return nil
}

// beginLoad claims the reconciliation. It returns a nil channel and no error
// when another call finished loading while this one waited.
func (m *Manager[T]) beginLoad(ctx context.Context) (chan struct{}, error) {
	for {
		m.mu.Lock()
		switch {
		case m.closed:
			m.mu.Unlock()
			return nil, ErrClosed
		case m.state == Loaded:
			m.mu.Unlock()
			return nil, nil
		case m.loading == nil:
			done := make(chan struct{})
			m.loading = done
			m.mu.Unlock()
			return done, nil
		}
		running := m.loading
		m.mu.Unlock()

		select {
		case <-running:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (m *Manager[T]) endLoad(done chan struct{}) {
	m.mu.Lock()
	m.loading = nil
	m.mu.Unlock()
	close(done)
}

// Loaded reports whether Load has completed.
func (m *Manager[T]) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Loaded
}

// State returns the current reconciliation state.
func (m *Manager[T]) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Origin reports which reconciliation path produced the loaded collection.
func (m *Manager[T]) Origin() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.origin
}

// Snapshot returns a copy of the collection.
func (m *Manager[T]) Snapshot() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.items)
}

// View calls fn with the collection under the lock. fn must not retain or
// modify the slice.
func (m *Manager[T]) View(fn func(items []T)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.items)
}

// Mutate replaces the collection with the result of fn. fn receives a copy and
// reports whether it changed anything. When the manager is loaded, a change is
// saved to the local cache before Mutate returns and then mirrored to the
// remote slot in the background.
func (m *Manager[T]) Mutate(fn func(items []T) ([]T, bool)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, changed := fn(clone(m.items))
	if !changed {
		return false
	}
	m.items = next
	m.rev++
	if m.state != Loaded || m.closed {
		return true
	}
	m.saveLocalLocked()
	m.mirrorLocked()
	return true
}

// Wait blocks until no remote mirror write is in flight.
func (m *Manager[T]) Wait() {
	_ = m.WaitContext(context.Background())
}

// WaitContext is Wait bounded by ctx.
func (m *Manager[T]) WaitContext(ctx context.Context) error {
	m.mu.Lock()
	if !m.inFlight {
		m.mu.Unlock()
		return nil
	}
	drained := m.drained
	m.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits for pending remote writes (bounded by ctx) and tears the
// manager down. Writes still running when ctx expires are cancelled.
func (m *Manager[T]) Close(ctx context.Context) error {
	err := m.WaitContext(ctx)
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancelMirror()
	if err != nil {
		m.log.Warn("closed with remote write pending", "error", err)
	}
	return err
}

func (m *Manager[T]) saveLocalLocked() {
	if err := m.local.Save(m.items); err != nil {
		m.log.Warn("local cache write failed", "error", err)
	}
}

func (m *Manager[T]) mirrorLocked() {
	if m.inFlight {
		m.dirty = true
		return
	}
	m.inFlight = true
	m.dirty = false
	m.drained = make(chan struct{})
	go m.mirror(clone(m.items), m.drained)
}

func (m *Manager[T]) mirror(snapshot []T, drained chan struct{}) {
	for {
		if err := m.remote.Replace(m.mirrorCtx, snapshot); err != nil {
			m.log.Debug("remote mirror write dropped", "error", err, "items", len(snapshot))
		}

		m.mu.Lock()
		if !m.dirty || m.closed {
			m.inFlight = false
			m.dirty = false
			close(drained)
			m.mu.Unlock()
			return
		}
		m.dirty = false
		snapshot = clone(m.items)
		m.mu.Unlock()
	}
}
