package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jensroland/git-lineage/internal/format"
	"github.com/jensroland/git-lineage/internal/index"
)

func newStatsCommand(g *globalOptions) *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise the record index and commit cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, g)
			if err != nil {
				return withHint(err)
			}
			defer e.close()

			db, err := index.Open(cmd.Context(), e.paths, rebuild, e.log)
			if err != nil {
				return fmt.Errorf("opening index at %s: %w", e.paths.IndexDB, err)
			}
			defer db.Close()

			s, err := index.CollectStats(cmd.Context(), db)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch {
			case g.json:
				return writeJSON(w, s)
			case g.yaml:
				return writeYAML(w, s)
			}
			printStats(w, s)
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "force a rebuild of the record index")
	return cmd
}

func printStats(w io.Writer, s *index.Stats) {
	fmt.Fprintf(w, "%sgit-lineage statistics%s\n\n", format.Bold, format.Reset)
	fmt.Fprintf(w, "  Total records:  %s\n", humanize.Comma(int64(s.Records)))
	fmt.Fprintf(w, "  Files:          %d\n", s.Files)
	fmt.Fprintf(w, "  Authors:        %d\n", s.Authors)
	fmt.Fprintf(w, "  Record files:   %d\n", s.Sources)
	fmt.Fprintf(w, "  First record:   %s\n", orNA(s.FirstRecord))
	fmt.Fprintf(w, "  Last record:    %s\n", orNA(s.LastRecord))
	fmt.Fprintf(w, "  Cached commits: %s\n", humanize.Comma(int64(s.CachedCommits)))
	if s.LastIngest != nil {
		fmt.Fprintf(w, "  Last ingest:    %s\n", humanize.Time(*s.LastIngest))
	}

	if len(s.TopFiles) > 0 {
		fmt.Fprintf(w, "\n  %sMost referenced files:%s\n", format.Bold, format.Reset)
		for _, f := range s.TopFiles {
			fmt.Fprintf(w, "    %4d  %s\n", f.Count, f.Name)
		}
	}
	if len(s.TopKinds) > 0 {
		fmt.Fprintf(w, "\n  %sBy kind:%s\n", format.Bold, format.Reset)
		for _, k := range s.TopKinds {
			fmt.Fprintf(w, "    %4d  %s\n", k.Count, k.Name)
		}
	}
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
