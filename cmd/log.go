package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jensroland/git-lineage/internal/format"
	"github.com/jensroland/git-lineage/internal/logging"
	"github.com/jensroland/git-lineage/internal/project"
)

func newLogCommand(g *globalOptions) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the tail of the debug log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := findRoot(cmd.Context(), g.configFile)
			if err != nil {
				return err
			}
			cmdLog(cmd.OutOrStdout(), project.NewPaths(root), n)
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "lines", "n", 100, "number of lines to show")
	return cmd
}

func cmdLog(w io.Writer, paths project.Paths, n int) {
	logFile := filepath.Join(paths.LogDir, logging.FileName)

	data, err := os.ReadFile(logFile)
	if err != nil {
		fmt.Fprintf(w, "No log file at %s\n", logFile)
		return
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	start := 0
	if n > 0 && len(lines) > n {
		start = len(lines) - n
	}
	tail := lines[start:]

	fmt.Fprintf(w, "%s--- %s (last %d lines) ---%s\n\n", format.Dim, logFile, len(tail), format.Reset)
	fmt.Fprintln(w, strings.Join(tail, "\n"))
}
