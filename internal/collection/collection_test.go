package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// =============================================================================
// Generators
// =============================================================================

func itemsGenerator(minLen, maxLen int) *rapid.Generator[[]item] {
	return rapid.Custom(func(t *rapid.T) []item {
		n := rapid.IntRange(minLen, maxLen).Draw(t, "len")
		out := make([]item, n)
		for i := range out {
			out[i] = item{ID: fmt.Sprintf("id-%d", i), N: rapid.IntRange(0, 1000).Draw(t, "n")}
		}
		return out
	})
}

var defaultItems = []item{{ID: "d1"}, {ID: "d2"}}

func newTestManager(remote Remote[item], blobs *memBlobs, defaults []item) *Manager[item] {
	return NewManager(Config[item]{
		Name:     "items",
		Local:    NewBlobCache[item](blobs, "items"),
		Remote:   remote,
		Defaults: defaults,
	})
}

func seedLocal(t interface{ Fatalf(string, ...any) }, blobs *memBlobs, items []item) {
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	if err := blobs.Put("items", data); err != nil {
		t.Fatalf("seed local: %v", err)
	}
}

// =============================================================================
// Property: non-empty remote always wins
// =============================================================================

func testDecide_RemoteTakesPrecedence(t *rapid.T) {
	remote := itemsGenerator(1, 20).Draw(t, "remote")
	local := itemsGenerator(0, 20).Draw(t, "local")

	d := Decide(remote, nil, local, defaultItems)
	if d.State != RemoteAdopted {
		t.Fatalf("state = %s, want %s", d.State, RemoteAdopted)
	}
	if !reflect.DeepEqual(d.Items, remote) {
		t.Fatalf("adopted %v, want remote %v", d.Items, remote)
	}
	if d.Migrate {
		t.Fatal("remote-adopted decision must not migrate")
	}
}

func TestDecide_RemoteTakesPrecedence(t *testing.T) {
	rapid.Check(t, testDecide_RemoteTakesPrecedence)
}

func FuzzDecide_RemoteTakesPrecedence(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testDecide_RemoteTakesPrecedence))
}

// =============================================================================
// Property: empty remote adopts local and migrates it
// =============================================================================

func testDecide_EmptyRemoteMigratesLocal(t *rapid.T) {
	local := itemsGenerator(1, 20).Draw(t, "local")

	d := Decide(nil, nil, local, defaultItems)
	if d.State != LocalPendingMigration {
		t.Fatalf("state = %s, want %s", d.State, LocalPendingMigration)
	}
	if !reflect.DeepEqual(d.Items, local) {
		t.Fatalf("adopted %v, want local %v", d.Items, local)
	}
	if !d.Migrate {
		t.Fatal("expected migration of non-empty local copy")
	}
}

func TestDecide_EmptyRemoteMigratesLocal(t *testing.T) {
	rapid.Check(t, testDecide_EmptyRemoteMigratesLocal)
}

// =============================================================================
// Property: remote error falls back to local, or defaults when local is empty
// =============================================================================

func testDecide_RemoteErrorFallsBack(t *rapid.T) {
	local := itemsGenerator(0, 20).Draw(t, "local")
	withDefaults := rapid.Bool().Draw(t, "withDefaults")
	var defaults []item
	if withDefaults {
		defaults = defaultItems
	}

	d := Decide(itemsGenerator(0, 5).Draw(t, "ignoredRemote"), errOffline, local, defaults)
	if d.State != LocalFallback {
		t.Fatalf("state = %s, want %s", d.State, LocalFallback)
	}
	if d.Migrate {
		t.Fatal("fallback must not migrate")
	}
	want := local
	if len(local) == 0 {
		want = defaults
	}
	if len(want) == 0 {
		if len(d.Items) != 0 {
			t.Fatalf("expected empty collection, got %v", d.Items)
		}
		return
	}
	if !reflect.DeepEqual(d.Items, want) {
		t.Fatalf("adopted %v, want %v", d.Items, want)
	}
}

func TestDecide_RemoteErrorFallsBack(t *testing.T) {
	rapid.Check(t, testDecide_RemoteErrorFallsBack)
}

func TestDecide_EmptyEverywhereWithoutDefaults(t *testing.T) {
	d := Decide[item](nil, nil, nil, nil)
	require.Equal(t, LocalPendingMigration, d.State)
	require.Empty(t, d.Items)
	require.False(t, d.Migrate, "nothing to migrate")

	d = Decide[item](nil, nil, nil, defaultItems)
	require.Equal(t, defaultItems, d.Items)
	require.True(t, d.Migrate, "defaults are seeded to the remote slot")
}

func TestDecide_DoesNotAliasInputs(t *testing.T) {
	remote := []item{{ID: "r"}}
	d := Decide(remote, nil, nil, nil)
	d.Items[0].N = 99
	require.Equal(t, 0, remote[0].N)
}

// =============================================================================
// Manager: reconciliation wiring
// =============================================================================

func testManager_LoadMigratesExactlyOnce(t *rapid.T) {
	local := itemsGenerator(1, 10).Draw(t, "local")
	blobs := newMemBlobs()
	seedLocal(t, blobs, local)
	remote := &fakeRemote{}

	m := newTestManager(remote, blobs, nil)
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	calls := remote.calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one replace call, got %d", len(calls))
	}
	if !reflect.DeepEqual(calls[0], local) {
		t.Fatalf("migrated %v, want %v", calls[0], local)
	}
	if !reflect.DeepEqual(m.Snapshot(), local) {
		t.Fatalf("authoritative %v, want %v", m.Snapshot(), local)
	}
	if m.Origin() != LocalPendingMigration || m.State() != Loaded {
		t.Fatalf("origin=%s state=%s", m.Origin(), m.State())
	}
}

func TestManager_LoadMigratesExactlyOnce(t *testing.T) {
	rapid.Check(t, testManager_LoadMigratesExactlyOnce)
}

func TestManager_LoadAdoptsRemoteAndCachesIt(t *testing.T) {
	blobs := newMemBlobs()
	seedLocal(t, blobs, []item{{ID: "stale"}})
	remote := &fakeRemote{stored: []item{{ID: "a", N: 1}, {ID: "b", N: 2}}}

	m := newTestManager(remote, blobs, defaultItems)
	require.NoError(t, m.Load(context.Background()))

	require.True(t, m.Loaded())
	require.Equal(t, RemoteAdopted, m.Origin())
	require.Equal(t, remote.stored, m.Snapshot())
	require.Empty(t, remote.calls(), "remote-adopted load writes nothing back")
	require.JSONEq(t, `[{"id":"a","n":1},{"id":"b","n":2}]`, blobs.raw("items"))
}

func TestManager_LoadFallsBackWhenRemoteFails(t *testing.T) {
	blobs := newMemBlobs()
	seedLocal(t, blobs, []item{{ID: "cached"}})
	remote := &fakeRemote{fetchErr: errOffline}

	m := newTestManager(remote, blobs, defaultItems)
	require.NoError(t, m.Load(context.Background()))

	require.Equal(t, LocalFallback, m.Origin())
	require.Equal(t, []item{{ID: "cached"}}, m.Snapshot())
	require.Empty(t, remote.calls())
}

func TestManager_LoadFallsBackToDefaultsOnCorruptCache(t *testing.T) {
	blobs := newMemBlobs()
	require.NoError(t, blobs.Put("items", []byte("{not json")))
	remote := &fakeRemote{fetchErr: errOffline}

	m := newTestManager(remote, blobs, defaultItems)
	require.NoError(t, m.Load(context.Background()))
	require.Equal(t, defaultItems, m.Snapshot())
}

func TestManager_MigrationFailureIsNotRetried(t *testing.T) {
	blobs := newMemBlobs()
	seedLocal(t, blobs, []item{{ID: "x"}})
	remote := &fakeRemote{replErr: errOffline}

	m := newTestManager(remote, blobs, nil)
	require.NoError(t, m.Load(context.Background()))
	require.True(t, m.Loaded())
	require.Len(t, remote.calls(), 1)
}

func TestManager_LoadCancelledLeavesUninitialized(t *testing.T) {
	blobs := newMemBlobs()
	seedLocal(t, blobs, []item{{ID: "x"}})
	remote := &blockingFetchRemote{}

	m := newTestManager(remote, blobs, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Load(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Load did not return after cancellation")
	}
	require.False(t, m.Loaded())
	require.Equal(t, Uninitialized, m.State())
	require.Empty(t, m.Snapshot())
}

func TestManager_LoadDeadlineFallsBackToLocal(t *testing.T) {
	blobs := newMemBlobs()
	seedLocal(t, blobs, []item{{ID: "x"}})
	remote := &blockingFetchRemote{}

	m := newTestManager(remote, blobs, defaultItems)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, m.Load(ctx), "a slow remote is absorbed like an unreachable one")
	require.True(t, m.Loaded())
	require.Equal(t, LocalFallback, m.Origin())
	require.Equal(t, []item{{ID: "x"}}, m.Snapshot())
	require.Empty(t, remote.calls())
}

func TestManager_ConcurrentLoadsMigrateOnce(t *testing.T) {
	blobs := newMemBlobs()
	seedLocal(t, blobs, []item{{ID: "x"}})
	remote := &fakeRemote{gate: make(chan struct{}), started: make(chan struct{}, 8)}
	m := newTestManager(remote, blobs, nil)

	done := make(chan error, 2)
	go func() { done <- m.Load(context.Background()) }()
	<-remote.started
	go func() { done <- m.Load(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	remote.gate <- struct{}{}

	for range 2 {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Load did not return")
		}
	}
	require.Equal(t, [][]item{{{ID: "x"}}}, remote.calls())
}

func TestManager_MutationDuringMigrationIsMirrored(t *testing.T) {
	blobs := newMemBlobs()
	seedLocal(t, blobs, []item{{ID: "x"}})
	remote := &fakeRemote{gate: make(chan struct{}), started: make(chan struct{}, 8)}
	m := newTestManager(remote, blobs, nil)

	done := make(chan error, 1)
	go func() { done <- m.Load(context.Background()) }()
	<-remote.started
	require.True(t, m.Mutate(appendItem(item{ID: "y"})))
	remote.gate <- struct{}{}
	require.NoError(t, <-done)

	// The follow-up write carries the change made mid-migration.
	<-remote.started
	remote.gate <- struct{}{}
	m.Wait()

	require.Equal(t, [][]item{{{ID: "x"}}, {{ID: "x"}, {ID: "y"}}}, remote.calls())
	require.JSONEq(t, `[{"id":"x","n":0},{"id":"y","n":0}]`, blobs.raw("items"))
}

func TestManager_LoadAfterCloseFails(t *testing.T) {
	m := newTestManager(&fakeRemote{}, newMemBlobs(), nil)
	require.NoError(t, m.Close(context.Background()))
	require.ErrorIs(t, m.Load(context.Background()), ErrClosed)
}

// =============================================================================
// Manager: persistence on change
// =============================================================================

func appendItem(it item) func([]item) ([]item, bool) {
	return func(items []item) ([]item, bool) {
		return append(items, it), true
	}
}

func TestManager_MutateWritesLocalBeforeRemoteSettles(t *testing.T) {
	blobs := newMemBlobs()
	remote := &fakeRemote{
		stored:  []item{{ID: "a"}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 8),
	}
	m := newTestManager(remote, blobs, nil)
	require.NoError(t, m.Load(context.Background()))

	require.True(t, m.Mutate(appendItem(item{ID: "b"})))
	// The remote write is blocked on the gate, yet the local blob is current.
	require.JSONEq(t, `[{"id":"a","n":0},{"id":"b","n":0}]`, blobs.raw("items"))

	<-remote.started
	remote.gate <- struct{}{}
	m.Wait()
	require.Equal(t, [][]item{{{ID: "a"}, {ID: "b"}}}, remote.calls())
}

func TestManager_OverlappingWritesCoalesce(t *testing.T) {
	blobs := newMemBlobs()
	remote := &fakeRemote{
		stored:  []item{{ID: "a"}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 8),
	}
	m := newTestManager(remote, blobs, nil)
	require.NoError(t, m.Load(context.Background()))

	m.Mutate(appendItem(item{ID: "b"}))
	<-remote.started
	// These arrive while the first write is in flight.
	m.Mutate(appendItem(item{ID: "c"}))
	m.Mutate(appendItem(item{ID: "d"}))

	remote.gate <- struct{}{}
	<-remote.started
	remote.gate <- struct{}{}
	m.Wait()

	calls := remote.calls()
	require.Len(t, calls, 2, "one in-flight write plus one coalesced follow-up")
	require.Equal(t, []item{{ID: "a"}, {ID: "b"}}, calls[0])
	require.Equal(t, []item{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}, calls[1])
}

func TestManager_RemoteWriteFailureIsSwallowed(t *testing.T) {
	remote := &fakeRemote{stored: []item{{ID: "a"}}}
	m := newTestManager(remote, newMemBlobs(), nil)
	require.NoError(t, m.Load(context.Background()))

	remote.mu.Lock()
	remote.replErr = errOffline
	remote.mu.Unlock()

	require.True(t, m.Mutate(appendItem(item{ID: "b"})))
	m.Wait()
	require.Equal(t, []item{{ID: "a"}, {ID: "b"}}, m.Snapshot())
}

func TestManager_NoopMutationPersistsNothing(t *testing.T) {
	blobs := newMemBlobs()
	remote := &fakeRemote{stored: []item{{ID: "a"}}}
	m := newTestManager(remote, blobs, nil)
	require.NoError(t, m.Load(context.Background()))
	puts := blobs.puts

	changed := m.Mutate(func(items []item) ([]item, bool) { return items, false })
	m.Wait()
	require.False(t, changed)
	require.Equal(t, puts, blobs.puts)
	require.Empty(t, remote.calls())
}

func TestManager_MutateBeforeLoadIsNotPersisted(t *testing.T) {
	blobs := newMemBlobs()
	remote := &fakeRemote{}
	m := newTestManager(remote, blobs, nil)

	require.True(t, m.Mutate(appendItem(item{ID: "early"})))
	require.Zero(t, blobs.puts)
	require.Empty(t, remote.calls())
}

func TestManager_CloseWaitsForMirror(t *testing.T) {
	remote := &fakeRemote{
		stored:  []item{{ID: "a"}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 8),
	}
	m := newTestManager(remote, newMemBlobs(), nil)
	require.NoError(t, m.Load(context.Background()))
	m.Mutate(appendItem(item{ID: "b"}))
	<-remote.started

	closed := make(chan error, 1)
	go func() { closed <- m.Close(context.Background()) }()
	select {
	case <-closed:
		t.Fatal("Close returned while a remote write was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	remote.gate <- struct{}{}
	require.NoError(t, <-closed)
	require.Len(t, remote.calls(), 1)
}

func TestManager_CloseDeadlineCancelsMirror(t *testing.T) {
	remote := &fakeRemote{
		stored:  []item{{ID: "a"}},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 8),
	}
	m := newTestManager(remote, newMemBlobs(), nil)
	require.NoError(t, m.Load(context.Background()))
	m.Mutate(appendItem(item{ID: "b"}))
	<-remote.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, m.Close(ctx), context.DeadlineExceeded)
	// The cancelled mirror goroutine still settles.
	m.Wait()
}

func TestState_String(t *testing.T) {
	for state, want := range map[State]string{
		Uninitialized:         "uninitialized",
		RemoteAdopted:         "remote-adopted",
		LocalPendingMigration: "local-adopted-pending-migration",
		LocalFallback:         "local-adopted-fallback",
		Loaded:                "loaded",
		State(42):             "unknown",
	} {
		require.Equal(t, want, state.String())
	}
}
