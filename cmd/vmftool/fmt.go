package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/vmfkit/internal/vmf"
)

func newFmtCmd(a *app) *cobra.Command {
	var (
		check bool
		write bool
	)

	cmd := &cobra.Command{
		Use:   "fmt <file>...",
		Short: "Re-encode maps in canonical form",
		Long: `fmt parses each map and writes it back in canonical layout: tab
indentation, quoted keys and values, and records in document order.
Without flags the result is printed to stdout.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if check && write {
				return fmt.Errorf("--check and --write are mutually exclusive")
			}
			unformatted := 0
			for _, path := range args {
				doc, text, err := a.parseFile(path)
				if err != nil {
					reportError(cmd.ErrOrStderr(), path, text, err)
					return fmt.Errorf("cannot format %s", path)
				}
				var buf bytes.Buffer
				if err := vmf.Encode(&buf, doc); err != nil {
					return fmt.Errorf("encoding %s: %w", path, err)
				}

				switch {
				case check:
					if buf.String() != text {
						unformatted++
						fmt.Fprintf(cmd.OutOrStdout(), "%s needs formatting\n", path)
					}
				case write:
					if buf.String() == text {
						continue
					}
					if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
						return fmt.Errorf("writing %s: %w", path, err)
					}
					a.logger.Info("formatted", zap.String("path", path))
				default:
					if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
						return err
					}
				}
			}
			if unformatted > 0 {
				return fmt.Errorf("%d file(s) need formatting", unformatted)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Report files that are not canonical without writing")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Rewrite files in place")

	return cmd
}
