// Package collection keeps one whole collection (all notes, all categories)
// authoritative in memory and mirrors it to a local blob cache and a remote
// key-value slot.
//
// Startup reconciliation picks the authoritative source:
//
//	remote non-empty          -> RemoteAdopted
//	remote empty              -> LocalPendingMigration (local or defaults, written to remote once)
//	remote unreachable/error  -> LocalFallback (local or defaults)
//
// and every path ends in Loaded. After that, each mutation is written to the
// local cache synchronously and mirrored to the remote slot in the background.
package collection

// State is the reconciliation state of a Manager.
type State int

const (
	Uninitialized State = iota
	RemoteAdopted
	LocalPendingMigration
	LocalFallback
	Loaded
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case RemoteAdopted:
		return "remote-adopted"
	case LocalPendingMigration:
		return "local-adopted-pending-migration"
	case LocalFallback:
		return "local-adopted-fallback"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Decision is the outcome of reconciling the remote and local copies.
type Decision[T any] struct {
	State   State
	Items   []T
	Migrate bool // write Items to the remote slot once
}

// Decide picks the authoritative collection. It is pure: fetching and writing
// are the caller's job.
//
// defaults may be nil, in which case an empty local copy stays empty and
// nothing is migrated.
func Decide[T any](remote []T, remoteErr error, local []T, defaults []T) Decision[T] {
	switch {
	case remoteErr != nil:
		return Decision[T]{State: LocalFallback, Items: orDefaults(local, defaults)}
	case len(remote) > 0:
		return Decision[T]{State: RemoteAdopted, Items: clone(remote)}
	default:
		items := orDefaults(local, defaults)
		return Decision[T]{State: LocalPendingMigration, Items: items, Migrate: len(items) > 0}
	}
}

func orDefaults[T any](local, defaults []T) []T {
	if len(local) > 0 {
		return clone(local)
	}
	return clone(defaults)
}

func clone[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
