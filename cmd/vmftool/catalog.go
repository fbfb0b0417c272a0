package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/vmfkit/internal/storage/postgres"
)

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the map catalog",
	}
	cmd.AddCommand(newCatalogListCmd(a))
	cmd.AddCommand(newCatalogShowCmd(a))
	return cmd
}

func (a *app) openCatalog(cmd *cobra.Command) (*postgres.MapRepository, func(), error) {
	if err := validateDatabase(a); err != nil {
		return nil, nil, err
	}
	pool, err := postgres.Open(cmd.Context(), a.cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to catalog: %w", err)
	}
	return pool.Maps(), pool.Close, nil
}

// validateDatabase checks the database section even when ingest.persist is
// off, since catalog commands always dial it.
func validateDatabase(a *app) error {
	cfg := a.cfg
	cfg.Ingest.Persist = true
	return cfg.Validate()
}

func newCatalogListCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently ingested maps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := a.openCatalog(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			recs, err := repo.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DIGEST\tPATH\tENTITIES\tSOLIDS\tINGESTED")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
					r.Digest[:12], r.Path, r.Stats.Entities, r.Stats.Solids, r.IngestedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of maps to list")
	return cmd
}

func newCatalogShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <digest>",
		Short: "Show one catalogued map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := a.openCatalog(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			r, err := repo.GetByDigest(cmd.Context(), args[0])
			if errors.Is(err, postgres.ErrMapNotFound) {
				return fmt.Errorf("no map with digest %s", args[0])
			}
			if err != nil {
				return err
			}
			s := r.Stats
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:          %s\n", r.ID)
			fmt.Fprintf(out, "path:        %s\n", r.Path)
			fmt.Fprintf(out, "digest:      %s\n", r.Digest)
			fmt.Fprintf(out, "run:         %s\n", r.RunID)
			fmt.Fprintf(out, "ingested:    %s\n", r.IngestedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "map version: %d\n", r.MapVersion)
			fmt.Fprintf(out, "entities:    %d (%d brush)\n", s.Entities, s.BrushEntities)
			fmt.Fprintf(out, "solids:      %d (%d sides)\n", s.Solids, s.Sides)
			fmt.Fprintf(out, "connections: %d\n", s.Connections)
			return nil
		},
	}
}
