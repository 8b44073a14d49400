// Package cmd wires the git-lineage command line.
package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jensroland/git-lineage/internal/config"
	"github.com/jensroland/git-lineage/internal/format"
	"github.com/jensroland/git-lineage/internal/git"
	"github.com/jensroland/git-lineage/internal/index"
	"github.com/jensroland/git-lineage/internal/logging"
	"github.com/jensroland/git-lineage/internal/project"
)

// globalOptions are flags shared by every command.
type globalOptions struct {
	configFile string
	logLevel   string
	json       bool
	yaml       bool
	noColor    bool
}

// env is everything a command needs once the repository is known.
type env struct {
	paths    project.Paths
	cfg      *config.Config
	log      *logrus.Logger
	closeLog func() error
}

func (e *env) close() {
	if e.closeLog != nil {
		_ = e.closeLog()
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := NewRootCommand(version)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	g := &globalOptions{}
	a := &analyzeOptions{}

	root := &cobra.Command{
		Use:   "git-lineage -L <start>,<end> <file>",
		Short: "Explain why lines exist by tracing the commits that wrote them",
		Long: `git-lineage blames a line range, finds every commit that last touched
one of those lines, and shows only the part of each commit's change that
produced them. Files that were moved or renamed are followed.`,
		Example: `  git lineage -L 10,12 internal/app/server.go
  git lineage -L 42 main.go --by-date
  git lineage -L 10-20 main.go --timeline --json`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.json && g.yaml {
				return fmt.Errorf("--json and --yaml are mutually exclusive")
			}
			if g.noColor || g.json || g.yaml {
				format.DisableColors()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runAnalyze(cmd, g, a, args[0])
		},
	}
	root.SetVersionTemplate("git-lineage {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "config file (default: <repo>/.lineage.yaml)")
	pf.StringVar(&g.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	pf.BoolVar(&g.json, "json", false, "output results as JSON")
	pf.BoolVar(&g.yaml, "yaml", false, "output results as YAML")
	pf.BoolVar(&g.noColor, "no-color", false, "disable colored output")

	f := root.Flags()
	f.StringVarP(&a.lines, "lines", "L", "", "line or range: 42, 10,20, 10:20 or 10-20")
	f.BoolVar(&a.byDate, "by-date", false, "order commits oldest first instead of by line")
	f.BoolVar(&a.timeline, "timeline", false, "interleave indexed records with the commits")
	f.BoolVar(&a.rebuild, "rebuild", false, "force a rebuild of the record index")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "show how each commit's diff was resolved")

	root.AddCommand(newStatsCommand(g), newLogCommand(g))
	return root
}

// setup locates the repository and builds config and logging for it.
func setup(cmd *cobra.Command, g *globalOptions) (*env, error) {
	rootDir, err := findRoot(cmd.Context(), g.configFile)
	if err != nil {
		return nil, err
	}
	paths := project.NewPaths(rootDir)

	cfg, err := config.Load(rootDir, g.configFile)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	log, closeLog, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		LogDir: paths.LogDir,
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		// the cache dir may be read-only; keep going with stderr only
		log, closeLog, err = logging.New(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Stderr: cmd.ErrOrStderr()})
		if err != nil {
			return nil, err
		}
	}
	return &env{paths: paths, cfg: cfg, log: log, closeLog: closeLog}, nil
}

// openIndex opens the record index, logging instead of failing: the
// index only adds cached metadata and records.
func (e *env) openIndex(ctx context.Context, rebuild bool) *sql.DB {
	db, err := index.Open(ctx, e.paths, rebuild, e.log)
	if err != nil {
		e.log.WithError(err).WithField("path", e.paths.IndexDB).Warn("record index unavailable")
		return nil
	}
	return db
}

// findRoot discovers the repository with the git binary set by the
// environment or an explicit config file. The repository's own
// .lineage.yaml cannot be read before its root is known.
func findRoot(ctx context.Context, configFile string) (string, error) {
	boot, err := config.Load("", configFile)
	if err != nil {
		return "", err
	}
	return project.FindRoot(ctx, git.NewExecRunner(boot.Git.Binary, boot.Git.Timeout, nil))
}

func (e *env) openRepo(ctx context.Context) (*git.Repo, error) {
	runner := git.NewExecRunner(e.cfg.Git.Binary, e.cfg.Git.Timeout, e.cfg.Limiter())
	return git.Open(ctx, e.paths.Root, runner)
}

// relativePath turns a user-supplied path into one relative to the
// repository root. Paths that do not exist relative to the working directory
// are taken as already root-relative.
func relativePath(filePath, projectRoot string) string {
	if !filepath.IsAbs(filePath) {
		if _, err := os.Stat(filePath); err != nil {
			return filepath.ToSlash(filepath.Clean(filePath))
		}
		abs, err := filepath.Abs(filePath)
		if err != nil {
			return filepath.ToSlash(filePath)
		}
		filePath = abs
	}

	rel, err := filepath.Rel(resolved(projectRoot), resolved(filePath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(filePath)
	}
	return filepath.ToSlash(rel)
}

func resolved(p string) string {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r
	}
	return p
}

// withHint appends remediation advice to errors the user can fix.
func withHint(err error) error {
	var untracked *git.UntrackedFileError
	var missing *git.FileNotFoundError
	switch {
	case errors.As(err, &untracked):
		return fmt.Errorf("%w\n  hint: commit it first with 'git add %s && git commit'", err, untracked.Path)
	case errors.As(err, &missing):
		return fmt.Errorf("%w\n  hint: paths are relative to the current directory or the repository root", err)
	case errors.Is(err, git.ErrNotARepository):
		return fmt.Errorf("%w\n  hint: run git-lineage inside a git working tree", err)
	}
	return err
}
