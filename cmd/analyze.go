package cmd

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jensroland/git-lineage/internal/format"
	"github.com/jensroland/git-lineage/internal/index"
	"github.com/jensroland/git-lineage/internal/lineage"
	"github.com/jensroland/git-lineage/internal/lineset"
	"github.com/jensroland/git-lineage/internal/timeline"
)

type analyzeOptions struct {
	lines    string
	byDate   bool
	timeline bool
	rebuild  bool
	verbose  bool
}

// analyzeOutput is the --json/--yaml document.
type analyzeOutput struct {
	lineage.Report `yaml:",inline"`
	Timeline       []timeline.Entry `json:"timeline,omitempty" yaml:"timeline,omitempty"`
}

func runAnalyze(cmd *cobra.Command, g *globalOptions, a *analyzeOptions, file string) error {
	if a.lines == "" {
		return fmt.Errorf("missing line range: use -L <start>,<end>")
	}
	rng, err := lineset.ParseRange(a.lines)
	if err != nil {
		return err
	}

	e, err := setup(cmd, g)
	if err != nil {
		return withHint(err)
	}
	defer e.close()

	ctx := cmd.Context()
	repo, err := e.openRepo(ctx)
	if err != nil {
		return withHint(err)
	}

	var db *sql.DB
	if e.cfg.Cache.Enabled || a.timeline || a.rebuild {
		db = e.openIndex(ctx, a.rebuild)
	}
	if db != nil {
		defer db.Close()
	}

	opts := []lineage.Option{
		lineage.WithParallelism(e.cfg.Resolve.Parallelism),
		lineage.WithLogger(e.log),
	}
	if db != nil && e.cfg.Cache.Enabled {
		opts = append(opts, lineage.WithMetaSource(index.NewCommitCache(db, repo, e.log)))
	}

	req := lineage.Request{Path: relativePath(file, e.paths.Root), Range: rng}
	report, err := lineage.New(repo, opts...).Analyze(ctx, req)
	if err != nil {
		return withHint(err)
	}
	if a.byDate {
		lineage.SortByDate(report.Commits)
	}

	out := analyzeOutput{Report: *report}
	if a.timeline {
		var records []timeline.Record
		if db != nil {
			commits := make([]string, len(report.Commits))
			for i, c := range report.Commits {
				commits[i] = c.Commit.ID
			}
			records, err = index.RecordsFor(ctx, db, index.Query{File: req.Path, Range: rng, Commits: commits})
			if err != nil {
				e.log.WithError(err).Warn("record lookup failed")
			}
		}
		out.Timeline = timeline.Merge(out.Commits, records)
	}

	w := cmd.OutOrStdout()
	switch {
	case g.json:
		return writeJSON(w, out)
	case g.yaml:
		return writeYAML(w, out)
	}

	fo := format.Options{Verbose: a.verbose}
	if a.timeline {
		fmt.Fprintln(w, format.FormatTimeline(report, out.Timeline, fo))
	} else {
		fmt.Fprintln(w, format.FormatReport(report, fo))
	}
	return nil
}
