// Package resolve finds the diff a commit made to a file, following the file
// across renames and directory moves.
package resolve

import (
	"context"
	"path"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/jensroland/git-lineage/internal/git"
	"github.com/jensroland/git-lineage/internal/hunk"
	"github.com/jensroland/git-lineage/internal/logging"
)

// Tier names one step of the fallback chain.
type Tier string

const (
	TierDirect   Tier = "direct"
	TierBasename Tier = "basename"
	TierParent   Tier = "parent"
)

// Outcome summarises a resolution.
type Outcome string

const (
	Resolved Outcome = "resolved"
	NoDiff   Outcome = "no-diff"
	Failed   Outcome = "failed"
)

// Attempt records one lookup made while resolving.
type Attempt struct {
	Tier  Tier   `json:"tier" yaml:"tier"`
	Path  string `json:"path" yaml:"path"`
	Hunks int    `json:"hunks" yaml:"hunks"`
	Err   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Trace is the diagnostic record of a resolution, kept apart from diff data.
type Trace struct {
	WorkingPath string    `json:"working_path" yaml:"working_path"`
	Attempts    []Attempt `json:"attempts" yaml:"attempts"`
	Candidates  []string  `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	Ambiguous   bool      `json:"ambiguous,omitempty" yaml:"ambiguous,omitempty"`
	Outcome     Outcome   `json:"outcome" yaml:"outcome"`
}

// Tiers lists the distinct tiers that were attempted, in order.
func (t Trace) Tiers() []Tier {
	var tiers []Tier
	for _, a := range t.Attempts {
		if len(tiers) == 0 || tiers[len(tiers)-1] != a.Tier {
			tiers = append(tiers, a.Tier)
		}
	}
	return tiers
}

// ResolvedDiff is a commit's change to one file.
type ResolvedDiff struct {
	CommitID string      `json:"commit_id" yaml:"commit_id"`
	PathUsed string      `json:"path_used,omitempty" yaml:"path_used,omitempty"`
	Hunks    []hunk.Hunk `json:"hunks" yaml:"hunks"`
	Trace    Trace       `json:"trace" yaml:"trace"`
}

// Source is the git surface the resolver needs. *git.Repo implements it.
type Source interface {
	DiffAtCommit(ctx context.Context, sha, path string) (string, error)
	ChangedFiles(ctx context.Context, sha string) ([]string, error)
	ParentDiff(ctx context.Context, sha, pathspec string) (string, error)
}

// Resolver runs the fallback chain. It holds no mutable state and is safe
// for concurrent use.
type Resolver struct {
	src Source
	log logrus.FieldLogger
}

// New returns a Resolver reading from src.
func New(src Source, log logrus.FieldLogger) *Resolver {
	if log == nil {
		log = logging.Discard()
	}
	return &Resolver{src: src, log: log}
}

// Resolve returns sha's diff to relPath. Tiers run in order (direct path,
// basename search over the commit's files, first-parent diff) and the first
// producing at least one hunk wins.
//
// When nothing is found the diff comes back with Outcome NoDiff and a nil
// error. If any lookup failed along the way, Outcome is Failed and the first
// failure is returned alongside the diff.
func (r *Resolver) Resolve(ctx context.Context, sha, relPath string) (*ResolvedDiff, error) {
	return r.ResolveFrom(ctx, sha, relPath, "")
}

// ResolveFrom is Resolve with the path blame reported for sha. A historical
// path that differs from relPath is the first candidate of the basename tier,
// ahead of any file sharing relPath's name.
func (r *Resolver) ResolveFrom(ctx context.Context, sha, relPath, historical string) (*ResolvedDiff, error) {
	if historical == relPath {
		historical = ""
	}
	res := &ResolvedDiff{CommitID: sha, Trace: Trace{WorkingPath: relPath}}
	log := r.log.WithFields(logrus.Fields{"commit": short(sha), "path": relPath})
	var firstErr error

	record := func(tier Tier, p string, n int, err error) {
		a := Attempt{Tier: tier, Path: p, Hunks: n}
		if err != nil {
			a.Err = err.Error()
			if firstErr == nil {
				firstErr = err
			}
			log.WithError(err).WithField("tier", tier).Warn("diff lookup failed")
		}
		res.Trace.Attempts = append(res.Trace.Attempts, a)
	}
	accept := func(tier Tier, p string, hunks []hunk.Hunk) *ResolvedDiff {
		res.PathUsed = p
		res.Hunks = hunks
		res.Trace.Outcome = Resolved
		log.WithFields(logrus.Fields{"tier": tier, "path_used": p, "hunks": len(hunks)}).Debug("diff resolved")
		return res
	}

	// 1. direct path
	hunks, err := r.diffAt(ctx, sha, relPath)
	record(TierDirect, relPath, len(hunks), err)
	if len(hunks) > 0 {
		return accept(TierDirect, relPath, hunks), nil
	}

	// 2. the path blame named, then the same filename elsewhere in the commit
	name := path.Base(relPath)
	var candidates []string
	if historical != "" {
		candidates = append(candidates, historical)
	}
	files, err := r.src.ChangedFiles(ctx, sha)
	if err != nil {
		record(TierBasename, name, 0, err)
	} else {
		matches := matchBasename(files, name, relPath, historical)
		candidates = append(candidates, matches...)
		res.Trace.Ambiguous = len(matches) > 1
		if res.Trace.Ambiguous {
			log.WithField("candidates", matches).Info("several files share the basename; taking the first with a diff")
		}
	}
	res.Trace.Candidates = candidates
	if len(candidates) == 0 && err == nil {
		record(TierBasename, name, 0, nil)
	}
	for _, c := range candidates {
		hunks, err := r.diffAt(ctx, sha, c)
		record(TierBasename, c, len(hunks), err)
		if len(hunks) > 0 {
			return accept(TierBasename, c, hunks), nil
		}
	}

	// 3. first-parent diff over every file with that name
	pathspec := git.BasenamePathspec(name)
	text, err := r.src.ParentDiff(ctx, sha, pathspec)
	if err != nil {
		record(TierParent, pathspec, 0, err)
	} else {
		for _, sec := range hunk.SplitFiles(text) {
			if path.Base(sec.Path()) != name {
				continue
			}
			if hunks := hunk.Parse(sec.Text); len(hunks) > 0 {
				record(TierParent, sec.Path(), len(hunks), nil)
				return accept(TierParent, sec.Path(), hunks), nil
			}
		}
		record(TierParent, pathspec, 0, nil)
	}

	if firstErr != nil {
		res.Trace.Outcome = Failed
		return res, firstErr
	}
	res.Trace.Outcome = NoDiff
	log.WithField("tiers", res.Trace.Tiers()).Info("no change found for file in commit")
	return res, nil
}

func (r *Resolver) diffAt(ctx context.Context, sha, p string) ([]hunk.Hunk, error) {
	text, err := r.src.DiffAtCommit(ctx, sha, p)
	if err != nil {
		return nil, err
	}
	return hunk.Parse(text), nil
}

// matchBasename keeps files named name, in commit order, skipping the
// paths already tried or queued.
func matchBasename(files []string, name string, skip ...string) []string {
	var out []string
	for _, f := range files {
		if path.Base(f) == name && !slices.Contains(skip, f) {
			out = append(out, f)
		}
	}
	return out
}

func short(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
