package notes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kuitang/notebook/internal/collection"
)

// Service is the notes manager: it owns the notes collection for a session
// and exposes the CRUD operations the front end calls.
type Service struct {
	coll *collection.Manager[Note]
	now  func() time.Time
}

// NewService creates a notes manager over the given local cache and remote
// slot. Notes have no default seed; an empty collection stays empty.
func NewService(local collection.Local[Note], remote collection.Remote[Note]) *Service {
	return &Service{
		coll: collection.NewManager(collection.Config[Note]{
			Name:   "notes",
			Local:  local,
			Remote: remote,
		}),
		now: time.Now,
	}
}

// Load reconciles the remote and local copies.
func (s *Service) Load(ctx context.Context) error {
	return s.coll.Load(ctx)
}

// Loaded reports whether the collection is ready to render.
func (s *Service) Loaded() bool {
	return s.coll.Loaded()
}

// Origin reports where the loaded collection came from.
func (s *Service) Origin() collection.State {
	return s.coll.Origin()
}

// Wait blocks until pending remote writes have settled.
func (s *Service) Wait() {
	s.coll.Wait()
}

// Close drains pending remote writes (bounded by ctx) and ends the session.
func (s *Service) Close(ctx context.Context) error {
	return s.coll.Close(ctx)
}

// List returns all notes, newest first.
func (s *Service) List() []Note {
	return s.coll.Snapshot()
}

// Get returns the note with the given ID.
func (s *Service) Get(id string) (Note, bool) {
	var (
		found Note
		ok    bool
	)
	s.coll.View(func(items []Note) {
		if i := indexOfNote(items, id); i >= 0 {
			found, ok = items[i], true
		}
	})
	return found, ok
}

// Create adds a note at the front of the collection and returns it so the
// caller can select it for editing.
func (s *Service) Create(params CreateNoteParams) Note {
	now := s.now().UnixMilli()
	note := Note{
		ID:         uuid.New().String(),
		Title:      params.Title,
		Content:    params.Content,
		CategoryID: params.CategoryID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.coll.Mutate(func(items []Note) ([]Note, bool) {
		return append([]Note{note}, items...), true
	})
	return note
}

// Update merges the non-nil fields of params into the note and refreshes
// UpdatedAt. It reports false, changing nothing, when id is unknown.
func (s *Service) Update(id string, params UpdateNoteParams) (Note, bool) {
	var updated Note
	ok := s.coll.Mutate(func(items []Note) ([]Note, bool) {
		i := indexOfNote(items, id)
		if i < 0 {
			return items, false
		}
		n := items[i]
		if params.Title != nil {
			n.Title = *params.Title
		}
		if params.Content != nil {
			n.Content = *params.Content
		}
		if params.CategoryID != nil {
			n.CategoryID = *params.CategoryID
		}
		n.UpdatedAt = s.touch(n.UpdatedAt)
		items[i] = n
		updated = n
		return items, true
	})
	return updated, ok
}

// Delete removes the note. It reports false when id is unknown.
func (s *Service) Delete(id string) bool {
	return s.coll.Mutate(func(items []Note) ([]Note, bool) {
		i := indexOfNote(items, id)
		if i < 0 {
			return items, false
		}
		return append(items[:i], items[i+1:]...), true
	})
}

// Filter returns the notes matching params. The result is a new slice.
func (s *Service) Filter(params FilterParams) []Note {
	var out []Note
	s.coll.View(func(items []Note) {
		out = FilterNotes(items, params)
	})
	return out
}

// CountByCategory returns how many notes reference each category ID,
// including IDs of deleted categories.
func (s *Service) CountByCategory() map[string]int {
	counts := make(map[string]int)
	s.coll.View(func(items []Note) {
		for _, n := range items {
			counts[n.CategoryID]++
		}
	})
	return counts
}

// touch returns a fresh UpdatedAt that is strictly greater than prev.
func (s *Service) touch(prev int64) int64 {
	now := s.now().UnixMilli()
	if now <= prev {
		return prev + 1
	}
	return now
}

func indexOfNote(items []Note, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
