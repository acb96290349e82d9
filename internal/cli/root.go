// Package cli implements the notebook command-line front end. Every command
// opens a session (categories, then notes), does its work against the loaded
// collections and closes the session, which flushes pending remote writes.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/notebook/internal/config"
	"github.com/kuitang/notebook/internal/obs"
)

type app struct {
	configPath string
	server     string
	cacheDir   string
	timeout    time.Duration
	verbose    bool
	resetCache bool

	now func() time.Time
}

// NewRootCommand returns the notebook command tree.
func NewRootCommand() *cobra.Command {
	a := &app{now: time.Now}

	root := &cobra.Command{
		Use:   "notebook",
		Short: "Notes and categories synced with a notebook server",
		Long: `notebook keeps a local copy of your notes and categories and mirrors
every change to a notebook server. When the server is unreachable it works
from the local copy.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			obs.Configure(cmd.ErrOrStderr(), obs.FormatText)
			obs.SetLevel(level)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default <user config dir>/notebook/config.yaml)")
	flags.StringVar(&a.server, "server", "", "Server base URL (overrides config and NOTEBOOK_SERVER)")
	flags.StringVar(&a.cacheDir, "cache-dir", "", "Local cache directory (overrides config and NOTEBOOK_CACHE_DIR)")
	flags.DurationVar(&a.timeout, "timeout", 0, "Per-request timeout (overrides config and NOTEBOOK_TIMEOUT)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(a.syncCmd())
	root.AddCommand(a.notesCmd())
	root.AddCommand(a.categoriesCmd())
	root.AddCommand(a.configCmd())

	return root
}

// clientConfig merges the config file, env and flags, then validates the
// result.
func (a *app) clientConfig() (*config.ClientConfig, error) {
	cfg, err := config.LoadClientConfig(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.server != "" {
		cfg.Server = a.server
	}
	if a.cacheDir != "" {
		cfg.CacheDir = a.cacheDir
	}
	if a.timeout > 0 {
		cfg.Timeout = a.timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withSession runs fn against an open session and always closes it, so
// changes made before an error still reach the server.
func (a *app) withSession(cmd *cobra.Command, fn func(s *Session) error) (err error) {
	cfg, err := a.clientConfig()
	if err != nil {
		return err
	}
	s, err := NewSession(cfg)
	if err != nil {
		return err
	}
	if a.resetCache {
		if err := s.ResetCache(); err != nil {
			return fmt.Errorf("reset cache: %w", err)
		}
	}
	if err := s.Load(cmd.Context()); err != nil {
		return err
	}
	if s.Offline() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s unreachable, working from the local copy\n", s.Server())
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		if closeErr := s.Close(ctx); closeErr != nil && err == nil {
			err = fmt.Errorf("flush changes: %w", closeErr)
		}
	}()
	return fn(s)
}
