package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kuitang/notebook/internal/errs"
	"github.com/kuitang/notebook/internal/notes"
)

func (a *app) categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "cat"},
		Short:   "Manage categories",
		Long: `Manage categories. Deleting a category never touches notes; notes that
pointed at it show as Uncategorized.`,
	}
	cmd.AddCommand(a.categoriesListCmd())
	cmd.AddCommand(a.categoriesAddCmd())
	cmd.AddCommand(a.categoriesRenameCmd())
	cmd.AddCommand(a.categoriesRecolorCmd())
	cmd.AddCommand(a.categoriesRmCmd())
	return cmd
}

func (a *app) categoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories with note counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *Session) error {
				counts := s.Notes.CountByCategory()
				w := newTable(cmd.OutOrStdout())
				fmt.Fprintln(w, "ID\tNAME\tCOLOR\tNOTES")
				for _, c := range s.Categories.List() {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", c.ID, chip(c), notes.StyleFor(c.Color).Name, counts[c.ID])
				}
				total := 0
				for _, n := range counts {
					total += n
				}
				fmt.Fprintf(w, "\t%s\t\t%d\n", "All notes", total)
				return w.Flush()
			})
		},
	}
}

func (a *app) categoriesAddCmd() *cobra.Command {
	var colorFlag string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a category with a random palette color",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			var token string
			if colorFlag != "" {
				var ok bool
				if token, ok = notes.ParseColor(colorFlag); !ok {
					return errs.Newf(errs.InvalidArgument, "unknown color %q (use one of %s)", colorFlag, paletteNames())
				}
			}
			return a.withSession(cmd, func(s *Session) error {
				c, err := s.Categories.CreateWithColor(name, token)
				if err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "Created category %s: %s", c.ID, chip(c))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&colorFlag, "color", "", "Palette color name or token instead of a random one")
	return cmd
}

func (a *app) categoriesRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a category",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args[1:], " ")
			return a.updateCategory(cmd, args[0], notes.UpdateCategoryParams{Name: &name})
		},
	}
}

func (a *app) categoriesRecolorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recolor ID COLOR",
		Short: "Change a category's palette color",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, ok := notes.ParseColor(args[1])
			if !ok {
				return errs.Newf(errs.InvalidArgument, "unknown color %q (use one of %s)", args[1], paletteNames())
			}
			return a.updateCategory(cmd, args[0], notes.UpdateCategoryParams{Color: &token})
		},
	}
}

func (a *app) updateCategory(cmd *cobra.Command, id string, params notes.UpdateCategoryParams) error {
	return a.withSession(cmd, func(s *Session) error {
		c, ok, err := s.Categories.Update(id, params)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Newf(errs.NotFound, "category %s not found", id)
		}
		success(cmd.OutOrStdout(), "Updated category %s: %s", c.ID, chip(c))
		return nil
	})
}

func (a *app) categoriesRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a category (its notes are kept)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *Session) error {
				orphaned := s.Notes.CountByCategory()[args[0]]
				if !s.Categories.Delete(args[0]) {
					return errs.Newf(errs.NotFound, "category %s not found", args[0])
				}
				success(cmd.OutOrStdout(), "Deleted category %s", args[0])
				if orphaned > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "  %d note(s) now show as %s\n", orphaned, notes.UncategorizedLabel)
				}
				return nil
			})
		},
	}
}

func paletteNames() string {
	names := make([]string, len(notes.Palette))
	for i, p := range notes.Palette {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}
