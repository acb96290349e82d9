package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the local copy with the server",
		Long: `Load both collections, adopting the server copy when it has data and
uploading the local copy when the server is empty, then wait for the upload.
With --reset-cache the local copy is discarded first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *Session) error {
				w := newTable(cmd.OutOrStdout())
				fmt.Fprintln(w, "COLLECTION\tSOURCE\tITEMS")
				fmt.Fprintf(w, "categories\t%s\t%d\n", s.Categories.Origin(), len(s.Categories.List()))
				fmt.Fprintf(w, "notes\t%s\t%d\n", s.Notes.Origin(), len(s.Notes.List()))
				if err := w.Flush(); err != nil {
					return err
				}
				if a.resetCache {
					success(cmd.OutOrStdout(), "Rebuilt local copy in %s", s.CacheDir())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&a.resetCache, "reset-cache", false, "Discard the local copy before syncing")
	return cmd
}
