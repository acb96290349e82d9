package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/kuitang/notebook/internal/errs"
	"github.com/kuitang/notebook/internal/notes"
)

func (a *app) notesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notes",
		Aliases: []string{"note", "n"},
		Short:   "List, create, edit and delete notes",
	}
	cmd.AddCommand(a.notesListCmd())
	cmd.AddCommand(a.notesNewCmd())
	cmd.AddCommand(a.notesEditCmd())
	cmd.AddCommand(a.notesRmCmd())
	cmd.AddCommand(a.notesShowCmd())
	cmd.AddCommand(a.notesImportCmd())
	return cmd
}

func (a *app) notesListCmd() *cobra.Command {
	var params notes.FilterParams
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *Session) error {
				found := s.Notes.Filter(params)
				out := cmd.OutOrStdout()
				if len(found) == 0 {
					fmt.Fprintln(out, "No notes found")
					return nil
				}

				cats := s.Categories.List()
				now := a.now()
				w := newTable(out)
				fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tUPDATED\tPREVIEW")
				for _, n := range found {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						n.ID,
						notes.DisplayTitle(n.Title),
						categoryChip(cats, n.CategoryID),
						notes.FormatRelative(n.Updated(), now),
						notes.Preview(n.Content, previewRunes),
					)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&params.CategoryID, "category", "c", "", "Only notes in this category")
	cmd.Flags().StringVarP(&params.Query, "query", "q", "", "Only notes whose title or text contains this")
	return cmd
}

func (a *app) notesNewCmd() *cobra.Command {
	var title, content, categoryID string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a note",
		Long: `Create a note. --content is Markdown and is stored as sanitized HTML.
Without --category the note goes into the first category.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *Session) error {
				cats := s.Categories.List()
				if categoryID == "" {
					categoryID = notes.DefaultCategoryID("", cats)
				} else if _, ok := s.Categories.Resolve(categoryID); !ok {
					return errs.Newf(errs.InvalidArgument, "unknown category %q", categoryID)
				}

				n := s.Notes.Create(notes.CreateNoteParams{
					Title:      strings.TrimSpace(title),
					Content:    notes.RenderMarkdown(content),
					CategoryID: categoryID,
				})
				success(cmd.OutOrStdout(), "Created note %s: %s", n.ID, notes.DisplayTitle(n.Title))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Note title")
	cmd.Flags().StringVar(&content, "content", "", "Note body (Markdown)")
	cmd.Flags().StringVarP(&categoryID, "category", "c", "", "Category ID")
	return cmd
}

func (a *app) notesEditCmd() *cobra.Command {
	var title, content, categoryID string
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change a note's title, body or category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params notes.UpdateNoteParams
			flags := cmd.Flags()
			if flags.Changed("title") {
				t := strings.TrimSpace(title)
				params.Title = &t
			}
			if flags.Changed("content") {
				c := notes.RenderMarkdown(content)
				params.Content = &c
			}
			if flags.Changed("category") {
				params.CategoryID = &categoryID
			}
			if params.Title == nil && params.Content == nil && params.CategoryID == nil {
				return errs.New(errs.InvalidArgument, "nothing to change (use --title, --content or --category)")
			}

			return a.withSession(cmd, func(s *Session) error {
				if params.CategoryID != nil && *params.CategoryID != "" {
					if _, ok := s.Categories.Resolve(*params.CategoryID); !ok {
						return errs.Newf(errs.InvalidArgument, "unknown category %q", *params.CategoryID)
					}
				}
				n, ok := s.Notes.Update(args[0], params)
				if !ok {
					return errs.Newf(errs.NotFound, "note %s not found", args[0])
				}
				success(cmd.OutOrStdout(), "Updated note %s: %s", n.ID, notes.DisplayTitle(n.Title))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New body (Markdown)")
	cmd.Flags().StringVarP(&categoryID, "category", "c", "", "New category ID (empty clears it)")
	return cmd
}

func (a *app) notesRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *Session) error {
				if !s.Notes.Delete(args[0]) {
					return errs.Newf(errs.NotFound, "note %s not found", args[0])
				}
				success(cmd.OutOrStdout(), "Deleted note %s", args[0])
				return nil
			})
		},
	}
}

func (a *app) notesShowCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print one note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *Session) error {
				n, ok := s.Notes.Get(args[0])
				if !ok {
					return errs.Newf(errs.NotFound, "note %s not found", args[0])
				}
				out := cmd.OutOrStdout()
				now := a.now()
				fmt.Fprintln(out, notes.DisplayTitle(n.Title))
				fmt.Fprintf(out, "Category: %s\n", categoryChip(s.Categories.List(), n.CategoryID))
				fmt.Fprintf(out, "Created:  %s\n", notes.FormatRelative(n.Created(), now))
				fmt.Fprintf(out, "Updated:  %s\n", notes.FormatRelative(n.Updated(), now))
				fmt.Fprintln(out)
				if raw {
					fmt.Fprintln(out, n.Content)
				} else {
					fmt.Fprintln(out, notes.StripMarkup(n.Content))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "html", false, "Print the stored HTML instead of plain text")
	return cmd
}

func (a *app) notesImportCmd() *cobra.Command {
	var categoryID string
	cmd := &cobra.Command{
		Use:   "import GLOB...",
		Short: "Import Markdown files as notes",
		Long: `Import Markdown files as notes. Patterns support ** (for example
"journal/**/*.md"). The first heading becomes the title, else the file name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			seen := make(map[string]bool)
			for _, pattern := range args {
				matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
				if err != nil {
					return errs.Wrap(errs.InvalidArgument, fmt.Sprintf("bad pattern %q", pattern), err)
				}
				for _, m := range matches {
					if !seen[m] {
						seen[m] = true
						files = append(files, m)
					}
				}
			}
			if len(files) == 0 {
				return errs.New(errs.NotFound, "no files matched")
			}

			return a.withSession(cmd, func(s *Session) error {
				if categoryID == "" {
					categoryID = notes.DefaultCategoryID("", s.Categories.List())
				} else if _, ok := s.Categories.Resolve(categoryID); !ok {
					return errs.Newf(errs.InvalidArgument, "unknown category %q", categoryID)
				}

				out := cmd.OutOrStdout()
				for _, path := range files {
					data, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("read %s: %w", path, err)
					}
					md := string(data)
					fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
					n := s.Notes.Create(notes.CreateNoteParams{
						Title:      notes.ImportTitle(md, fallback),
						Content:    notes.RenderMarkdown(md),
						CategoryID: categoryID,
					})
					success(out, "Imported %s as %s: %s", path, n.ID, notes.DisplayTitle(n.Title))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&categoryID, "category", "c", "", "Category ID for imported notes")
	return cmd
}
