package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jensroland/git-lineage/internal/git"
)

// RootEnv overrides repository discovery when set.
const RootEnv = "LINEAGE_ROOT"

// Paths holds all relevant locations for a repository.
type Paths struct {
	Root       string // git repo root
	GitDir     string // .git/, or the worktree's gitdir
	RecordsDir string // .lineage/records/
	ConfigFile string // .lineage.yaml
	CacheDir   string // <gitdir>/lineage/
	IndexDB    string // <gitdir>/lineage/index.db
	LogDir     string // <gitdir>/lineage/logs/
}

// FindRoot returns the repository root for the working directory,
// preferring LINEAGE_ROOT if set.
func FindRoot(ctx context.Context, r git.Runner) (string, error) {
	if dir := os.Getenv(RootEnv); dir != "" {
		return dir, nil
	}
	return FindRootFrom(ctx, r, "")
}

// FindRootFrom asks git, through r, for the top level of the working tree
// containing dir.
func FindRootFrom(ctx context.Context, r git.Runner, dir string) (string, error) {
	out, err := r.Run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		// only a git that ran and refused means "not a repository"
		var te *git.ToolError
		var exit *exec.ExitError
		if !errors.As(err, &exit) || (errors.As(err, &te) && te.TimedOut) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s", git.ErrNotARepository, dirOrCwd(dir))
	}
	return strings.TrimSpace(string(out)), nil
}

func dirOrCwd(dir string) string {
	if dir != "" {
		return dir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// NewPaths constructs all path constants from a project root.
func NewPaths(root string) Paths {
	gitDir := resolveGitDir(root)
	cache := filepath.Join(gitDir, "lineage")
	return Paths{
		Root:       root,
		GitDir:     gitDir,
		RecordsDir: filepath.Join(root, ".lineage", "records"),
		ConfigFile: filepath.Join(root, ".lineage.yaml"),
		CacheDir:   cache,
		IndexDB:    filepath.Join(cache, "index.db"),
		LogDir:     filepath.Join(cache, "logs"),
	}
}

// HasRecords returns true if the records directory exists.
func (p Paths) HasRecords() bool {
	info, err := os.Stat(p.RecordsDir)
	return err == nil && info.IsDir()
}

// resolveGitDir follows a worktree's ".git" file to its real gitdir. Anything
// unexpected falls back to <root>/.git.
func resolveGitDir(root string) string {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Stat(dotGit)
	if err != nil || info.IsDir() {
		return dotGit
	}

	data, err := os.ReadFile(dotGit)
	if err != nil {
		return dotGit
	}
	target, ok := strings.CutPrefix(strings.TrimSpace(string(data)), "gitdir: ")
	if !ok || target == "" {
		return dotGit
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	return target
}
