// Package main applies the map catalog migrations.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/vmfkit/internal/config"
	"github.com/cory-johannsen/vmfkit/internal/storage/postgres"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		source     string
		down       bool
		steps      int
	)
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply map catalog schema migrations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			v := config.NewViper()
			if configPath != "" {
				v.SetConfigFile(configPath)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config file: %w", err)
				}
			}
			cfg, err := config.LoadFromViper(v)
			if err != nil {
				return err
			}

			dir := postgres.Up
			if down {
				dir = postgres.Down
			}
			res, err := postgres.Migrate(cfg.Database, source, dir, steps)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Changed {
				fmt.Fprintf(out, "no changes (version=%d dirty=%v) [%s]\n", res.Version, res.Dirty, time.Since(start))
				return nil
			}
			fmt.Fprintf(out, "migrated %s to version=%d dirty=%v [%s]\n", dir, res.Version, res.Dirty, time.Since(start))
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file (defaults plus VMF_* environment when empty)")
	cmd.Flags().StringVar(&source, "source", postgres.DefaultMigrationSource, "Migration source URL")
	cmd.Flags().BoolVar(&down, "down", false, "Roll migrations back instead of applying them")
	cmd.Flags().IntVar(&steps, "steps", 0, "Number of migrations to apply (0 = all)")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
