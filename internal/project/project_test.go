package project

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/jensroland/git-lineage/internal/git"
)

func TestNewPaths(t *testing.T) {
	root := t.TempDir()
	// Create .git/ directory so resolveGitDir returns <root>/.git
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	p := NewPaths(root)

	if p.Root != root {
		t.Errorf("Root = %q, want %q", p.Root, root)
	}
	if want := filepath.Join(root, ".git"); p.GitDir != want {
		t.Errorf("GitDir = %q, want %q", p.GitDir, want)
	}
	if want := filepath.Join(root, ".lineage", "records"); p.RecordsDir != want {
		t.Errorf("RecordsDir = %q, want %q", p.RecordsDir, want)
	}
	if want := filepath.Join(root, ".git", "lineage"); p.CacheDir != want {
		t.Errorf("CacheDir = %q, want %q", p.CacheDir, want)
	}
	if want := filepath.Join(root, ".git", "lineage", "index.db"); p.IndexDB != want {
		t.Errorf("IndexDB = %q, want %q", p.IndexDB, want)
	}
	if want := filepath.Join(root, ".git", "lineage", "logs"); p.LogDir != want {
		t.Errorf("LogDir = %q, want %q", p.LogDir, want)
	}
	if want := filepath.Join(root, ".lineage.yaml"); p.ConfigFile != want {
		t.Errorf("ConfigFile = %q, want %q", p.ConfigFile, want)
	}
}

func TestNewPaths_Worktree(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".git"), []byte("gitdir: /repos/main/.git/worktrees/wt\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPaths(root)
	if want := "/repos/main/.git/worktrees/wt/lineage"; p.CacheDir != want {
		t.Errorf("CacheDir = %q, want %q", p.CacheDir, want)
	}
}

func TestResolveGitDir_NormalDir(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := resolveGitDir(root)
	want := filepath.Join(root, ".git")
	if got != want {
		t.Errorf("resolveGitDir() = %q, want %q", got, want)
	}
}

func TestResolveGitDir_Worktree(t *testing.T) {
	t.Run("absolute_path", func(t *testing.T) {
		root := t.TempDir()
		absTarget := "/some/path/to/gitdir"
		if err := os.WriteFile(filepath.Join(root, ".git"), []byte("gitdir: "+absTarget+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		got := resolveGitDir(root)
		if got != absTarget {
			t.Errorf("resolveGitDir() = %q, want %q", got, absTarget)
		}
	})

	t.Run("relative_path", func(t *testing.T) {
		root := t.TempDir()
		relTarget := "../other-repo/.git/worktrees/my-branch"
		if err := os.WriteFile(filepath.Join(root, ".git"), []byte("gitdir: "+relTarget+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		got := resolveGitDir(root)
		want := filepath.Join(root, relTarget)
		if got != want {
			t.Errorf("resolveGitDir() = %q, want %q", got, want)
		}
	})
}

func TestResolveGitDir_Missing(t *testing.T) {
	root := t.TempDir()

	got := resolveGitDir(root)
	want := filepath.Join(root, ".git")
	if got != want {
		t.Errorf("resolveGitDir() = %q, want %q (default fallback)", got, want)
	}
}

func TestResolveGitDir_InvalidGitFile(t *testing.T) {
	// .git is a file but doesn't start with "gitdir: "
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".git"), []byte("not a gitdir pointer\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := resolveGitDir(root)
	want := filepath.Join(root, ".git")
	if got != want {
		t.Errorf("resolveGitDir() = %q, want %q (fallback for invalid content)", got, want)
	}
}

func TestHasRecords(t *testing.T) {
	root := t.TempDir()
	p := NewPaths(root)
	if p.HasRecords() {
		t.Error("HasRecords() = true, want false")
	}
	if err := os.MkdirAll(p.RecordsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if !p.HasRecords() {
		t.Error("HasRecords() = false, want true")
	}
}

func TestFindRoot_WithEnvVar(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(RootEnv, tmpDir)

	got, err := FindRoot(context.Background(), git.NewExecRunner("", 0, nil))
	if err != nil {
		t.Fatalf("FindRoot() error: %v", err)
	}
	if got != tmpDir {
		t.Errorf("FindRoot() = %q, want %q", got, tmpDir)
	}
}

func TestFindRootFrom_Subdirectory(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	root := t.TempDir()
	if out, err := exec.Command("git", "init", "-q", root).CombinedOutput(); err != nil {
		t.Fatalf("git init: %v\n%s", err, out)
	}
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindRootFrom(context.Background(), git.NewExecRunner("", 0, nil), sub)
	if err != nil {
		t.Fatalf("FindRootFrom() error: %v", err)
	}
	// t.TempDir may sit behind a symlink (macOS /var), so compare resolved paths.
	wantResolved, _ := filepath.EvalSymlinks(root)
	gotResolved, _ := filepath.EvalSymlinks(got)
	if gotResolved != wantResolved {
		t.Errorf("FindRootFrom() = %q, want %q", got, root)
	}
}

func TestFindRootFrom_NotARepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	t.Setenv("GIT_CEILING_DIRECTORIES", os.TempDir())
	_, err := FindRootFrom(context.Background(), git.NewExecRunner("", 0, nil), t.TempDir())
	if !errors.Is(err, git.ErrNotARepository) {
		t.Errorf("FindRootFrom() on a plain directory = %v, want ErrNotARepository", err)
	}
}

func TestFindRootFrom_UsesConfiguredBinary(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "wrapped-git")
	body := "#!/bin/sh\n[ \"$1 $2\" = \"rev-parse --show-toplevel\" ] || exit 2\necho /srv/checkout\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindRootFrom(context.Background(), git.NewExecRunner(script, 0, nil), dir)
	if err != nil {
		t.Fatalf("FindRootFrom() error: %v", err)
	}
	if got != "/srv/checkout" {
		t.Errorf("FindRootFrom() = %q, want /srv/checkout", got)
	}
}

func TestFindRootFrom_MissingBinary(t *testing.T) {
	r := git.NewExecRunner(filepath.Join(t.TempDir(), "no-such-git"), 0, nil)
	_, err := FindRootFrom(context.Background(), r, t.TempDir())
	if err == nil {
		t.Fatal("FindRootFrom() with a missing binary should fail")
	}
	if errors.Is(err, git.ErrNotARepository) {
		t.Errorf("a missing binary is not a missing repository: %v", err)
	}
}
