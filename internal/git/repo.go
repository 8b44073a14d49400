package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Repo is an explicit handle on a working tree: every git call made by the
// engine goes through it, so nothing depends on the process working directory.
type Repo struct {
	Root   string
	runner Runner
}

// NewRepo wraps root without validating it.
func NewRepo(root string, runner Runner) *Repo {
	if runner == nil {
		runner = NewExecRunner("git", DefaultTimeout, nil)
	}
	return &Repo{Root: root, runner: runner}
}

// Open returns a Repo for root, failing with ErrNotARepository when root is
// not inside a git working tree.
func Open(ctx context.Context, root string, runner Runner) (*Repo, error) {
	r := NewRepo(root, runner)
	out, err := r.Git(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		var te *ToolError
		if errors.As(err, &te) && te.TimedOut {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", root, ErrNotARepository)
	}
	if strings.TrimSpace(string(out)) != "true" {
		return nil, fmt.Errorf("%s: %w", root, ErrNotARepository)
	}
	return r, nil
}

// Git runs a git subcommand in the repository root.
func (r *Repo) Git(ctx context.Context, args ...string) ([]byte, error) {
	return r.runner.Run(ctx, r.Root, args...)
}

// CheckFile verifies that relPath exists on disk and is tracked at HEAD.
func (r *Repo) CheckFile(ctx context.Context, relPath string) error {
	if _, err := os.Stat(filepath.Join(r.Root, filepath.FromSlash(relPath))); err != nil {
		if os.IsNotExist(err) {
			return &FileNotFoundError{Path: relPath}
		}
		return fmt.Errorf("stat %s: %w", relPath, err)
	}

	if _, err := r.Git(ctx, "ls-files", "--error-unmatch", "--", relPath); err != nil {
		var te *ToolError
		if errors.As(err, &te) && te.TimedOut {
			return err
		}
		return &UntrackedFileError{Path: relPath}
	}
	return nil
}

// HeadSHA returns the current HEAD commit SHA, or "" when there is none.
func (r *Repo) HeadSHA(ctx context.Context) string {
	out, err := r.Git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
