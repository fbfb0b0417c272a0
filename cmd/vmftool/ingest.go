package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/vmfkit/internal/ingest"
	"github.com/cory-johannsen/vmfkit/internal/observability"
	"github.com/cory-johannsen/vmfkit/internal/scripting"
	"github.com/cory-johannsen/vmfkit/internal/server"
	"github.com/cory-johannsen/vmfkit/internal/storage/postgres"
)

func newIngestCmd(a *app) *cobra.Command {
	var (
		watch   bool
		outDir  string
		persist bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Parse every map below a directory",
		Long: `ingest walks a directory for map files, parses them on a bounded
worker pool and reports one line per failure. Summaries are written to
--out, and with --persist every parsed map is recorded in the catalog.
With --watch the command keeps running and re-ingests files as they change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("out") {
				a.cfg.Ingest.OutputDir = outDir
			}
			if cmd.Flags().Changed("persist") {
				a.cfg.Ingest.Persist = persist
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}
			ctx := cmd.Context()
			dir := args[0]

			reg := observability.NewRegistry()
			opts := []ingest.Option{ingest.WithMetrics(ingest.NewMetrics(reg))}

			if a.cfg.Ingest.Persist {
				pool, err := postgres.Open(ctx, a.cfg.Database)
				if err != nil {
					return fmt.Errorf("connecting to catalog: %w", err)
				}
				defer pool.Close()
				opts = append(opts, ingest.WithCatalog(pool.Maps()))
			}
			if a.cfg.Lint.ScriptDir != "" {
				linter := scripting.NewLinter(a.logger, a.cfg.Lint.InstructionLimit)
				defer linter.Close()
				if err := linter.LoadDir(a.cfg.Lint.ScriptDir); err != nil {
					return err
				}
				opts = append(opts, ingest.WithLinter(linter))
			}
			svc := ingest.NewService(a.cfg, a.logger, opts...)

			report, err := svc.Run(ctx, dir)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			if !watch {
				if report.Failed() > 0 {
					return fmt.Errorf("%d of %d map(s) failed", report.Failed(), len(report.Results))
				}
				return nil
			}
			return a.watch(ctx, cmd.OutOrStdout(), svc, dir, reg)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and re-ingest changed files")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory for YAML summaries (overrides ingest.output_dir)")
	cmd.Flags().BoolVar(&persist, "persist", false, "Record maps in the catalog (overrides ingest.persist)")
	return cmd
}

func (a *app) watch(ctx context.Context, out io.Writer, svc *ingest.Service, dir string, reg *prometheus.Registry) error {
	w, err := ingest.NewWatcher(svc, dir, a.logger)
	if err != nil {
		return err
	}
	w.OnResult = func(r ingest.Result) {
		printResult(out, r)
	}

	lc := server.NewLifecycle(a.logger)
	lc.Add("watcher", w)
	if a.cfg.Metrics.Enabled {
		lc.Add("metrics", observability.NewMetricsServer(a.cfg.Metrics.Addr, reg, a.logger))
	}
	a.logger.Info("watch mode", zap.String("dir", dir), zap.Bool("metrics", a.cfg.Metrics.Enabled))
	return lc.Run(ctx)
}

func printReport(w io.Writer, r *ingest.Report) {
	for _, res := range r.Results {
		if res.Err != nil {
			printResult(w, res)
		}
	}
	fmt.Fprintf(w, "run %s: %d ok, %d failed in %s\n", r.RunID, r.Succeeded(), r.Failed(), r.Elapsed.Round(time.Millisecond))
}

func printResult(w io.Writer, res ingest.Result) {
	if res.Err != nil {
		fmt.Fprintf(w, "FAIL %s: %v\n", res.Path, res.Err)
		return
	}
	fmt.Fprintf(w, "ok   %s (%d entities, %d solids, %d findings)\n",
		res.Path, res.Stats.Entities, res.Stats.Solids, len(res.Findings))
}
