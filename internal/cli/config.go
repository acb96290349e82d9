package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/notebook/internal/config"
	"github.com/kuitang/notebook/internal/errs"
	"github.com/kuitang/notebook/internal/localcache"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the client configuration",
	}
	cmd.AddCommand(a.configShowCmd())
	cmd.AddCommand(a.configSetServerCmd())
	return cmd
}

// configFilePath is --config or the per-user default.
func (a *app) configFilePath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.DefaultClientConfigPath()
}

func (a *app) configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings after file, env and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configFilePath()
			if err != nil {
				return err
			}
			cfg, err := a.clientConfig()
			if err != nil {
				return err
			}
			cacheDir := cfg.CacheDir
			if cacheDir == "" {
				if cacheDir, err = localcache.DefaultDir(); err != nil {
					return err
				}
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintf(w, "config\t%s\n", path)
			fmt.Fprintf(w, "server\t%s\n", cfg.Server)
			fmt.Fprintf(w, "cache_dir\t%s\n", cacheDir)
			fmt.Fprintf(w, "timeout\t%s\n", cfg.Timeout)
			return w.Flush()
		},
	}
}

func (a *app) configSetServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-server URL",
		Short: "Save the server base URL to the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.configFilePath()
			if err != nil {
				return err
			}
			cfg, err := config.LoadClientConfigFile(path)
			if err != nil {
				return err
			}
			cfg.Server = args[0]
			if err := cfg.Validate(); err != nil {
				return errs.Wrap(errs.InvalidArgument, err.Error(), err)
			}
			if err := config.SaveClientConfig(path, cfg); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Server set to %s in %s", cfg.Server, path)
			return nil
		},
	}
}
