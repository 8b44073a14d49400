// Package lineage answers "why do these lines exist": it blames a line range,
// resolves the diff of every commit that owns a line, and keeps only the
// hunks that touch the selection.
package lineage

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jensroland/git-lineage/internal/git"
	"github.com/jensroland/git-lineage/internal/hunk"
	"github.com/jensroland/git-lineage/internal/linemap"
	"github.com/jensroland/git-lineage/internal/logging"
	"github.com/jensroland/git-lineage/internal/lineset"
	"github.com/jensroland/git-lineage/internal/resolve"
)

// DefaultParallelism bounds concurrent per-commit work when no option is set.
const DefaultParallelism = 4

// Status is the per-commit result.
type Status string

const (
	StatusResolved Status = "resolved"
	StatusNoDiff   Status = "no-diff"
	StatusFailed   Status = "failed"
)

// Coordinates names the line numbering the relevant hunks were matched in.
type Coordinates string

const (
	// Current matches against the selection as the user sees the file now.
	Current Coordinates = "current"
	// Origin matches against the lines' numbering in the commit's own version
	// of the file, for commits whose lines have since shifted.
	Origin Coordinates = "origin"
	// WholeDiff means no hunk matched in either numbering and the full diff
	// is returned.
	WholeDiff Coordinates = "whole-diff"
)

// Request selects a line range of a repository-relative path.
type Request struct {
	Path  string        `json:"path" yaml:"path"`
	Range lineset.Range `json:"range" yaml:"range"`
}

// CommitAnalysis pairs a commit with the part of its change that produced
// the selected lines.
type CommitAnalysis struct {
	Commit        git.CommitMeta  `json:"commit" yaml:"commit"`
	AffectedLines lineset.LineSet `json:"affected_lines" yaml:"affected_lines"`
	OrigLines     lineset.LineSet `json:"orig_lines" yaml:"orig_lines"`
	RelevantHunks []hunk.Hunk     `json:"relevant_hunks" yaml:"relevant_hunks"`
	PathUsed      string          `json:"path_used,omitempty" yaml:"path_used,omitempty"`
	Status        Status          `json:"status" yaml:"status"`
	Coordinates   Coordinates     `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
	Trace         resolve.Trace   `json:"trace" yaml:"trace"`
	Error         string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Degraded reports whether the analysis carries no usable change.
func (a CommitAnalysis) Degraded() bool {
	return a.Status != StatusResolved
}

// Report is the full answer to a Request.
type Report struct {
	Path         string           `json:"path" yaml:"path"`
	Range        lineset.Range    `json:"range" yaml:"range"`
	Unattributed lineset.LineSet  `json:"unattributed" yaml:"unattributed"`
	Commits      []CommitAnalysis `json:"commits" yaml:"commits"`
}

// MetaSource supplies commit metadata. *git.Repo implements it; the index
// package wraps it with a persistent cache.
type MetaSource interface {
	CommitMeta(ctx context.Context, sha string) (git.CommitMeta, error)
}

// Engine runs analyses against one repository.
type Engine struct {
	repo        *git.Repo
	resolver    *resolve.Resolver
	meta        MetaSource
	parallelism int
	log         logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallelism bounds how many commits are resolved at once.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetaSource replaces the repository as the source of commit metadata.
func WithMetaSource(src MetaSource) Option {
	return func(e *Engine) {
		if src != nil {
			e.meta = src
		}
	}
}

// New returns an Engine for repo.
func New(repo *git.Repo, opts ...Option) *Engine {
	e := &Engine{
		repo:        repo,
		meta:        repo,
		parallelism: DefaultParallelism,
		log:         logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = resolve.New(repo, e.log)
	return e
}

// Analyze blames req.Range and returns one CommitAnalysis per distinct
// commit, in first-seen order by ascending line.
//
// Problems with the request itself (missing or untracked file, blame
// failure, no history) abort the run. Problems with a single commit are
// recorded on that commit's analysis. A cancelled ctx aborts at the next
// commit boundary.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Report, error) {
	if err := req.Range.Validate(); err != nil {
		return nil, err
	}
	log := e.log.WithFields(logrus.Fields{
		"run":   uuid.NewString(),
		"file":  req.Path,
		"range": req.Range.String(),
	})

	if err := e.repo.CheckFile(ctx, req.Path); err != nil {
		return nil, err
	}
	out, err := e.repo.BlameRange(ctx, req.Path, req.Range)
	if err != nil {
		return nil, err
	}
	m, err := linemap.FromPorcelain(out, req.Range)
	if err != nil {
		return nil, fmt.Errorf("%s:%s: %w", req.Path, req.Range, err)
	}

	commits := m.Unique()
	log.WithField("commits", len(commits)).Debug("blame mapped")

	results := make([]CommitAnalysis, len(commits))
	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i, sha := range commits {
		i, sha := i, sha
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = e.analyzeCommit(ctx, log, req, m, sha)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Warn("analysis cancelled")
		return nil, err
	}

	degraded := 0
	for _, a := range results {
		if a.Degraded() {
			degraded++
		}
	}
	log.WithFields(logrus.Fields{"commits": len(results), "degraded": degraded}).Info("analysis complete")

	return &Report{
		Path:         req.Path,
		Range:        req.Range,
		Unattributed: m.Unattributed(),
		Commits:      results,
	}, nil
}

func (e *Engine) analyzeCommit(ctx context.Context, log logrus.FieldLogger, req Request, m *linemap.Map, sha string) CommitAnalysis {
	log = log.WithField("commit", shortSHA(sha))
	a := CommitAnalysis{
		Commit:        git.CommitMeta{ID: sha},
		AffectedLines: m.Lines(sha),
		OrigLines:     m.OrigLines(sha),
	}

	var metaErr error
	if meta, err := e.meta.CommitMeta(ctx, sha); err != nil {
		metaErr = fmt.Errorf("commit metadata: %w", err)
		log.WithError(err).Warn("metadata lookup failed")
	} else {
		a.Commit = meta
	}

	rd, err := e.resolver.ResolveFrom(ctx, sha, req.Path, m.Path(sha))
	a.PathUsed = rd.PathUsed
	a.Trace = rd.Trace

	switch rd.Trace.Outcome {
	case resolve.Failed:
		a.Status = StatusFailed
		a.Error = err.Error()
	case resolve.NoDiff:
		a.Status = StatusNoDiff
	default:
		a.Status = StatusResolved
		a.RelevantHunks, a.Coordinates = selectHunks(rd.Hunks, req.Range, a.AffectedLines, a.OrigLines)
		log.WithFields(logrus.Fields{
			"hunks":       len(a.RelevantHunks),
			"coordinates": a.Coordinates,
		}).Debug("hunks selected")
	}

	if metaErr != nil && a.Error == "" {
		a.Error = metaErr.Error()
	}
	return a
}

// selectHunks intersects in current line numbers first. A commit whose
// lines have shifted since is retried in its own numbering, and if that also
// matches nothing the whole diff is kept so a resolved commit is never
// reported without a change.
func selectHunks(hunks []hunk.Hunk, target lineset.Range, affected, orig lineset.LineSet) ([]hunk.Hunk, Coordinates) {
	if rel := hunk.Intersect(hunks, target, affected); len(rel) > 0 {
		return rel, Current
	}
	if bounds, ok := orig.Bounds(); ok {
		if rel := hunk.Intersect(hunks, bounds, orig); len(rel) > 0 {
			return rel, Origin
		}
	}
	return hunks, WholeDiff
}

// SortByDate orders analyses oldest first. Equal dates keep their order.
func SortByDate(analyses []CommitAnalysis) {
	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].Commit.AuthoredDate.Before(analyses[j].Commit.AuthoredDate)
	})
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
