package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/vmfkit/internal/scripting"
)

func newLintCmd(a *app) *cobra.Command {
	var rules string

	cmd := &cobra.Command{
		Use:   "lint <file>...",
		Short: "Run Lua lint rules against maps",
		Long: `lint loads every *.lua file from the rule directory (--rules, or
lint.script_dir from configuration). A rule defines lint_entity(e)
and/or lint_world(w) and returns nil, a message, or a list of messages.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rules
			if dir == "" {
				dir = a.cfg.Lint.ScriptDir
			}
			if dir == "" {
				return fmt.Errorf("no rule directory: pass --rules or set lint.script_dir")
			}
			linter := scripting.NewLinter(a.logger, a.cfg.Lint.InstructionLimit)
			defer linter.Close()
			if err := linter.LoadDir(dir); err != nil {
				return err
			}

			total := 0
			for _, path := range args {
				doc, text, err := a.parseFile(path)
				if err != nil {
					reportError(cmd.ErrOrStderr(), path, text, err)
					return fmt.Errorf("cannot lint %s", path)
				}
				for _, f := range linter.Check(doc) {
					total++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, f)
				}
			}
			if total > 0 {
				return fmt.Errorf("%d finding(s)", total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rules, "rules", "", "Directory of *.lua lint rules")
	return cmd
}
