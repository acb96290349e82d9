package notes

import (
	"context"
	"testing"

	"github.com/kuitang/notebook/internal/collection"
	"github.com/kuitang/notebook/internal/errs"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// =============================================================================
// Property: deleting a category leaves its notes and their references alone
// =============================================================================

func testDeleteCategory_KeepsNoteReferences(t *rapid.T) {
	cats, _, _ := loadedCategories(t)
	notesSvc, _, _ := loadedNotes(t)

	list := cats.List()
	victim := list[rapid.IntRange(0, len(list)-1).Draw(t, "victim")]
	n := rapid.IntRange(1, 8).Draw(t, "notes")
	var referencing []Note
	for i := 0; i < n; i++ {
		catID := rapid.SampledFrom(list).Draw(t, "cat").ID
		note := notesSvc.Create(CreateNoteParams{Title: titleGenerator().Draw(t, "title"), CategoryID: catID})
		if catID == victim.ID {
			referencing = append(referencing, note)
		}
	}
	before := notesSvc.List()

	if !cats.Delete(victim.ID) {
		t.Fatal("delete of existing category reported not found")
	}

	after := notesSvc.List()
	if len(after) != len(before) {
		t.Fatalf("note count changed from %d to %d", len(before), len(after))
	}
	for _, note := range referencing {
		got, ok := notesSvc.Get(note.ID)
		if !ok {
			t.Fatalf("note %s disappeared with its category", note.ID)
		}
		if got.CategoryID != victim.ID {
			t.Fatalf("categoryId rewritten to %q", got.CategoryID)
		}
		if label := CategoryLabel(cats.List(), got.CategoryID); label != UncategorizedLabel {
			t.Fatalf("label = %q, want %q", label, UncategorizedLabel)
		}
	}
	if _, ok := cats.Resolve(victim.ID); ok {
		t.Fatal("deleted category still resolves")
	}
}

func TestDeleteCategory_KeepsNoteReferences(t *testing.T) {
	rapid.Check(t, testDeleteCategory_KeepsNoteReferences)
}

func FuzzDeleteCategory_KeepsNoteReferences(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testDeleteCategory_KeepsNoteReferences))
}

// =============================================================================
// Property: created categories carry the trimmed name and a palette color
// =============================================================================

func testCreateCategory_TrimmedNameAndPaletteColor(t *rapid.T) {
	cats, _, _ := loadedCategories(t)
	core := rapid.StringMatching(`[A-Za-z0-9]{1,20}`).Draw(t, "name")
	pad := rapid.StringMatching(`[ \t]{0,3}`).Draw(t, "pad")

	c, err := cats.Create(pad + core + pad)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Name != core {
		t.Fatalf("name = %q, want %q", c.Name, core)
	}
	if !IsPaletteColor(c.Color) {
		t.Fatalf("color %q not in palette", c.Color)
	}
	list := cats.List()
	if list[len(list)-1] != c {
		t.Fatalf("new category not appended: %+v", list)
	}
}

func TestCreateCategory_TrimmedNameAndPaletteColor(t *testing.T) {
	rapid.Check(t, testCreateCategory_TrimmedNameAndPaletteColor)
}

// =============================================================================
// Examples
// =============================================================================

func TestCategories_SeedDefaultsAndMigrate(t *testing.T) {
	cats, local, remote := loadedCategories(t)

	require.Equal(t, DefaultCategories(), cats.List())
	require.Equal(t, collection.LocalPendingMigration, cats.Origin())
	require.Equal(t, DefaultCategories(), remote.snapshot())
	require.Equal(t, DefaultCategories(), local.snapshot())
	require.Equal(t, 1, remote.writes)
}

func TestCategories_RemoteWins(t *testing.T) {
	stored := []Category{{ID: "cat-x", Name: "Remote", Color: "bg-rose-100"}}
	remote := &memRemote[Category]{stored: stored}
	cats := NewCategoryService(&memLocal[Category]{}, remote)

	require.NoError(t, cats.Load(context.Background()))
	require.Equal(t, stored, cats.List())
	require.Zero(t, remote.writes)
}

func TestCreateCategory_RejectsBlankName(t *testing.T) {
	cats, local, _ := loadedCategories(t)
	saves := local.saves

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := cats.Create(name)
		require.Error(t, err)
		require.True(t, errs.Is(err, errs.InvalidArgument))
	}
	require.Len(t, cats.List(), 4)
	require.Equal(t, saves, local.saves)
}

func TestCreateCategoryWithColor_SingleWrite(t *testing.T) {
	cats, local, remote := loadedCategories(t)
	saves, writes := local.saves, remote.writes

	got, err := cats.CreateWithColor(" Reading ", "bg-rose-100")
	require.NoError(t, err)
	require.Equal(t, "Reading", got.Name)
	require.Equal(t, "bg-rose-100", got.Color)

	cats.Wait()
	require.Equal(t, saves+1, local.saves)
	require.Equal(t, writes+1, remote.writes, "the chosen color goes out in the only write")
	require.Equal(t, got, remote.snapshot()[4])

	_, err = cats.CreateWithColor("Other", "chartreuse")
	require.True(t, errs.Is(err, errs.InvalidArgument))
	require.Len(t, cats.List(), 5)
}

func TestUpdateCategory(t *testing.T) {
	cats, _, remote := loadedCategories(t)

	got, ok, err := cats.Update("cat-2", UpdateCategoryParams{Name: ptr("  Office "), Color: ptr("bg-cyan-100")})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Category{ID: "cat-2", Name: "Office", Color: "bg-cyan-100"}, got)

	// Order is preserved.
	require.Equal(t, "cat-2", cats.List()[1].ID)

	got, ok, err = cats.Update("cat-2", UpdateCategoryParams{Color: ptr("bg-amber-100")})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Office", got.Name)

	cats.Wait()
	require.Equal(t, cats.List(), remote.snapshot())
}

func TestUpdateCategory_Rejects(t *testing.T) {
	cats, _, _ := loadedCategories(t)

	_, _, err := cats.Update("cat-1", UpdateCategoryParams{Name: ptr(" ")})
	require.True(t, errs.Is(err, errs.InvalidArgument))

	_, _, err = cats.Update("cat-1", UpdateCategoryParams{Color: ptr("chartreuse")})
	require.True(t, errs.Is(err, errs.InvalidArgument))

	_, ok, err := cats.Update("cat-missing", UpdateCategoryParams{Name: ptr("x")})
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, DefaultCategories(), cats.List())
}

func TestDeleteCategory_Unknown(t *testing.T) {
	cats, _, _ := loadedCategories(t)
	require.False(t, cats.Delete("nope"))
	require.Len(t, cats.List(), 4)
}

func TestDefaultCategoryID(t *testing.T) {
	cats := DefaultCategories()
	require.Equal(t, "cat-3", DefaultCategoryID("cat-3", cats))
	require.Equal(t, "cat-1", DefaultCategoryID("", cats))
	require.Equal(t, "", DefaultCategoryID("", nil))
}

func TestCategoryLabel(t *testing.T) {
	cats := DefaultCategories()
	require.Equal(t, "Work", CategoryLabel(cats, "cat-2"))
	require.Equal(t, UncategorizedLabel, CategoryLabel(cats, "cat-9"))
	require.Equal(t, UncategorizedLabel, CategoryLabel(cats, ""))
}

func TestDefaultCategories_FreshSlice(t *testing.T) {
	a := DefaultCategories()
	a[0].Name = "changed"
	require.Equal(t, "Personal", DefaultCategories()[0].Name)
}

func TestDefaultCategories_KeepOriginalIDsAndColors(t *testing.T) {
	var ids, colors []string
	for _, c := range DefaultCategories() {
		ids = append(ids, c.ID)
		colors = append(colors, c.Color)
	}
	require.Equal(t, []string{"cat-1", "cat-2", "cat-3", "cat-4"}, ids)
	require.Equal(t, []string{"bg-blue-100", "bg-orange-100", "bg-purple-100", "bg-green-100"}, colors)
}
