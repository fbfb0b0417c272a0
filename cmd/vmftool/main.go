// Package main is the entry point for vmftool, which parses, formats,
// queries, lints and ingests Valve Map Format files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cory-johannsen/vmfkit/internal/config"
	"github.com/cory-johannsen/vmfkit/internal/observability"
)

// Version information set at build time.
var (
	version = "0.1.0"
	commit  = "dev"
)

// app carries the state shared by every subcommand once the root command's
// pre-run hook has loaded configuration.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "vmftool",
		Short: "Valve Map Format toolkit",
		Long: `vmftool parses Hammer .vmf files into a validated scene graph and
reports the first malformed token, block or reference with its location.
It can also re-encode maps canonically, filter entities with expressions,
run Lua lint rules and ingest whole directories into a catalog.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to configuration file (defaults plus VMF_* environment when empty)")
	flags.String("log-level", "info", "Minimum log level: debug, info, warn, error")
	flags.Int("max-depth", 64, "Maximum block nesting depth")
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("parser.max_depth", flags.Lookup("max-depth"))

	root.AddCommand(newVersionCmd())
	root.AddCommand(newParseCmd(a))
	root.AddCommand(newFmtCmd(a))
	root.AddCommand(newQueryCmd(a))
	root.AddCommand(newLintCmd(a))
	root.AddCommand(newIngestCmd(a))
	root.AddCommand(newCatalogCmd(a))

	return root
}

func (a *app) load() error {
	if a.configPath != "" {
		a.v.SetConfigFile(a.configPath)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	cfg, err := config.LoadFromViper(a.v)
	if err != nil {
		return err
	}
	logger, err := observability.NewCLILogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
