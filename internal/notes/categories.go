package notes

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/kuitang/notebook/internal/collection"
	"github.com/kuitang/notebook/internal/errs"
)

// CategoryService is the categories manager. Unlike notes, categories fall
// back to DefaultCategories so the sidebar is never empty.
type CategoryService struct {
	coll *collection.Manager[Category]
}

// NewCategoryService creates a categories manager over the given local cache
// and remote slot.
func NewCategoryService(local collection.Local[Category], remote collection.Remote[Category]) *CategoryService {
	return &CategoryService{
		coll: collection.NewManager(collection.Config[Category]{
			Name:     "categories",
			Local:    local,
			Remote:   remote,
			Defaults: DefaultCategories(),
		}),
	}
}

// Load reconciles the remote and local copies.
func (s *CategoryService) Load(ctx context.Context) error {
	return s.coll.Load(ctx)
}

// Loaded reports whether the collection is ready to render.
func (s *CategoryService) Loaded() bool {
	return s.coll.Loaded()
}

// Origin reports where the loaded collection came from.
func (s *CategoryService) Origin() collection.State {
	return s.coll.Origin()
}

// Wait blocks until pending remote writes have settled.
func (s *CategoryService) Wait() {
	s.coll.Wait()
}

// Close drains pending remote writes (bounded by ctx) and ends the session.
func (s *CategoryService) Close(ctx context.Context) error {
	return s.coll.Close(ctx)
}

// List returns all categories in sidebar order.
func (s *CategoryService) List() []Category {
	return s.coll.Snapshot()
}

// Resolve looks up a category. Notes may reference deleted categories, so a
// miss is normal and callers render UncategorizedLabel.
func (s *CategoryService) Resolve(id string) (Category, bool) {
	var (
		found Category
		ok    bool
	)
	s.coll.View(func(items []Category) {
		found, ok = findCategory(items, id)
	})
	return found, ok
}

// Create appends a category with a random palette color. The trimmed name
// must be non-empty.
func (s *CategoryService) Create(name string) (Category, error) {
	return s.CreateWithColor(name, "")
}

// CreateWithColor is Create with a chosen palette token. An empty color picks
// a random one. The category is added in a single change.
func (s *CategoryService) CreateWithColor(name, color string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, errs.New(errs.InvalidArgument, "category name is required")
	}
	switch {
	case color == "":
		color = RandomColor()
	case !IsPaletteColor(color):
		return Category{}, errs.Newf(errs.InvalidArgument, "unknown color %q", color)
	}
	cat := Category{
		ID:    "cat-" + uuid.New().String(),
		Name:  name,
		Color: color,
	}
	s.coll.Mutate(func(items []Category) ([]Category, bool) {
		return append(items, cat), true
	})
	return cat, nil
}

// Update renames or recolors a category in place. It reports false, changing
// nothing, when id is unknown.
func (s *CategoryService) Update(id string, params UpdateCategoryParams) (Category, bool, error) {
	var name, color string
	if params.Name != nil {
		name = strings.TrimSpace(*params.Name)
		if name == "" {
			return Category{}, false, errs.New(errs.InvalidArgument, "category name is required")
		}
	}
	if params.Color != nil {
		if !IsPaletteColor(*params.Color) {
			return Category{}, false, errs.Newf(errs.InvalidArgument, "unknown color %q", *params.Color)
		}
		color = *params.Color
	}

	var updated Category
	ok := s.coll.Mutate(func(items []Category) ([]Category, bool) {
		i := indexOfCategory(items, id)
		if i < 0 {
			return items, false
		}
		c := items[i]
		if params.Name != nil {
			c.Name = name
		}
		if params.Color != nil {
			c.Color = color
		}
		items[i] = c
		updated = c
		return items, true
	})
	return updated, ok, nil
}

// Delete removes a category. Notes that reference it are left untouched.
func (s *CategoryService) Delete(id string) bool {
	return s.coll.Mutate(func(items []Category) ([]Category, bool) {
		i := indexOfCategory(items, id)
		if i < 0 {
			return items, false
		}
		return append(items[:i], items[i+1:]...), true
	})
}

// CategoryLabel returns the category name for id, or UncategorizedLabel when
// it no longer resolves.
func CategoryLabel(cats []Category, id string) string {
	if c, ok := findCategory(cats, id); ok {
		return c.Name
	}
	return UncategorizedLabel
}

// DefaultCategoryID picks the category for a new note: the active filter if
// any, else the first category, else none.
func DefaultCategoryID(active string, cats []Category) string {
	if active != "" {
		return active
	}
	if len(cats) > 0 {
		return cats[0].ID
	}
	return ""
}

func findCategory(items []Category, id string) (Category, bool) {
	if i := indexOfCategory(items, id); i >= 0 {
		return items[i], true
	}
	return Category{}, false
}

func indexOfCategory(items []Category, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
