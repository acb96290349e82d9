package notes

import (
	"time"
)

const (
	// NotesKey names the notes collection in the local cache and the remote store.
	NotesKey = "notes-app-data"
	// CategoriesKey names the categories collection.
	CategoriesKey = "notes-app-categories"

	// UncategorizedLabel is shown for notes whose category does not resolve.
	UncategorizedLabel = "Uncategorized"
	// UntitledLabel is shown for notes with an empty title.
	UntitledLabel = "Untitled"
)

// Note is a single note. Content is HTML produced by the editor.
// Timestamps are Unix milliseconds, the format the remote slot stores.
type Note struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID string `json:"categoryId"` // soft reference; may point at a deleted category
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
}

// Created returns CreatedAt as a time.
func (n Note) Created() time.Time {
	return time.UnixMilli(n.CreatedAt)
}

// Updated returns UpdatedAt as a time.
func (n Note) Updated() time.Time {
	return time.UnixMilli(n.UpdatedAt)
}

// Category groups notes in the sidebar. Color is a palette background token.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CreateNoteParams contains parameters for creating a note
type CreateNoteParams struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID string `json:"categoryId"`
}

// UpdateNoteParams contains parameters for updating a note.
// Nil fields are left unchanged.
type UpdateNoteParams struct {
	Title      *string `json:"title,omitempty"`
	Content    *string `json:"content,omitempty"`
	CategoryID *string `json:"categoryId,omitempty"`
}

// UpdateCategoryParams contains parameters for updating a category.
// Nil fields are left unchanged.
type UpdateCategoryParams struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// FilterParams selects notes. An empty CategoryID matches every category and
// an empty Query matches every note.
type FilterParams struct {
	CategoryID string
	Query      string
}
