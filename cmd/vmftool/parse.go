package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/vmfkit/internal/vmf"
	"github.com/cory-johannsen/vmfkit/internal/vmf/document"
	"github.com/cory-johannsen/vmfkit/internal/vmf/vmferr"
)

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>...",
		Short: "Parse maps and print their statistics or the first error",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				doc, text, err := a.parseFile(path)
				if err != nil {
					failed++
					reportError(cmd.ErrOrStderr(), path, text, err)
					continue
				}
				printStats(cmd.OutOrStdout(), path, doc)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) failed to parse", failed, len(args))
			}
			return nil
		},
	}
}

// parseFile reads and parses path. text is returned even on a parse error so
// the caller can quote the offending line.
func (a *app) parseFile(path string) (*document.MapDocument, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	text := string(data)
	doc, err := vmf.Parse(text, vmf.WithMaxDepth(a.cfg.Parser.MaxDepth))
	if err != nil {
		a.logger.Debug("parse failed", zap.String("path", path), zap.Error(err))
		return nil, text, err
	}
	return doc, text, nil
}

func printStats(w io.Writer, path string, doc *document.MapDocument) {
	s := doc.Stats()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", path)
	fmt.Fprintf(tw, "  entities\t%d\t(%d brush)\n", s.Entities, s.BrushEntities)
	fmt.Fprintf(tw, "  solids\t%d\t(%d sides)\n", s.Solids, s.Sides)
	fmt.Fprintf(tw, "  groups\t%d\n", s.Groups)
	fmt.Fprintf(tw, "  visgroups\t%d\n", s.Visgroups)
	fmt.Fprintf(tw, "  connections\t%d\n", s.Connections)
	fmt.Fprintf(tw, "  passthrough\t%d\n", s.Passthrough)
	if b := doc.Bounds(); !b.Empty() {
		fmt.Fprintf(tw, "  bounds\t%s\t%s\n", b.Min, b.Max)
	}
	if open := doc.OpenSolids(); len(open) > 0 {
		fmt.Fprintf(tw, "  open solids\t%d\t%v\n", len(open), open)
	}
	_ = tw.Flush()
}

// reportError prints err as "path:line:col: message" followed by the quoted
// source line and a caret under the column, when a location is known.
func reportError(w io.Writer, path, text string, err error) {
	var e *vmferr.Error
	if !errors.As(err, &e) || !e.Pos.IsValid() {
		fmt.Fprintf(w, "%s: %v\n", path, err)
		return
	}
	fmt.Fprintf(w, "%s:%d:%d: %v\n", path, e.Pos.Line, e.Pos.Column, err)
	line, ok := sourceLine(text, e.Pos.Line)
	if !ok {
		return
	}
	gutter := fmt.Sprintf("%5d | ", e.Pos.Line)
	fmt.Fprintf(w, "%s%s\n", gutter, strings.ReplaceAll(line, "\t", " "))
	col := max(e.Pos.Column-1, 0)
	fmt.Fprintf(w, "%s| %s^\n", strings.Repeat(" ", len(gutter)-2), strings.Repeat(" ", min(col, len(line))))
}

func sourceLine(text string, n int) (string, bool) {
	for i := 1; ; i++ {
		line, rest, found := strings.Cut(text, "\n")
		if i == n {
			return strings.TrimSuffix(line, "\r"), true
		}
		if !found {
			return "", false
		}
		text = rest
	}
}
