package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/vmfkit/internal/query"
)

func newQueryCmd(a *app) *cobra.Command {
	var count bool

	cmd := &cobra.Command{
		Use:   "query <file> <expression>",
		Short: "List entities matching an expression",
		Long: `query evaluates a boolean expression against every entity of a map.
The expression sees id, classname, origin (x, y, z), has_origin,
props (lower-cased keys), solids, connections and hidden, e.g.

  vmftool query map.vmf 'classname == "light" && origin.z > 256'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := query.Compile(args[1])
			if err != nil {
				return err
			}
			doc, text, err := a.parseFile(args[0])
			if err != nil {
				reportError(cmd.ErrOrStderr(), args[0], text, err)
				return fmt.Errorf("cannot query %s", args[0])
			}
			matches, err := q.Filter(doc)
			if err != nil {
				return err
			}
			if count {
				fmt.Fprintln(cmd.OutOrStdout(), len(matches))
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range matches {
				origin := "-"
				if e.Origin != nil {
					origin = e.Origin.String()
				}
				name, _ := e.Properties.Get("targetname")
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.Classname, origin, name)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&count, "count", false, "Print only the number of matches")
	return cmd
}
