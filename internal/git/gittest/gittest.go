// Package gittest provides fakes and throw-away repositories for tests that
// exercise code built on package git.
package gittest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jensroland/git-lineage/internal/git"
)

// Response is a canned reply for one git invocation.
type Response struct {
	Out string
	Err error
}

// FakeRunner answers git invocations from a table keyed by the joined
// argument list. Unknown invocations fail with a ToolError.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []string
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string]Response)}
}

// On registers out as the output for `git <args...>`.
func (f *FakeRunner) On(out string, args ...string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[strings.Join(args, " ")] = Response{Out: out}
	return f
}

// Fail registers err as the failure for `git <args...>`.
func (f *FakeRunner) Fail(err error, args ...string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[strings.Join(args, " ")] = Response{Err: err}
	return f
}

// Run implements git.Runner.
func (f *FakeRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	key := strings.Join(args, " ")
	f.mu.Lock()
	f.calls = append(f.calls, key)
	resp, ok := f.responses[key]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &git.ToolError{Args: args, Err: err}
	}
	if !ok {
		return nil, &git.ToolError{Args: args, Err: fmt.Errorf("unexpected invocation")}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return []byte(resp.Out), nil
}

// Calls returns every invocation seen so far, in order.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// TempRepo is a real git repository in a temporary directory.
type TempRepo struct {
	t   testing.TB
	Dir string
}

// NewTempRepo runs git init in a fresh temp dir. Tests are skipped when no
// git binary is available.
func NewTempRepo(t testing.TB) *TempRepo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	r := &TempRepo{t: t, Dir: t.TempDir()}
	r.Run("init", "-q")
	r.Run("config", "user.email", "test@test.com")
	r.Run("config", "user.name", "Test")
	r.Run("config", "commit.gpgsign", "false")
	return r
}

// Run executes git in the repository and returns its output.
func (r *TempRepo) Run(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=Test",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
	return string(out)
}

// Write creates or replaces a file relative to the repository root.
func (r *TempRepo) Write(name, content string) {
	r.t.Helper()
	path := filepath.Join(r.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatal(err)
	}
}

// Commit stages name with content and commits it, returning the new SHA.
func (r *TempRepo) Commit(name, content, message string) string {
	r.t.Helper()
	r.Write(name, content)
	r.Run("add", name)
	r.Run("commit", "-q", "-m", message)
	return r.Head()
}

// Move renames a tracked file and commits the move.
func (r *TempRepo) Move(from, to, message string) string {
	r.t.Helper()
	if err := os.MkdirAll(filepath.Dir(filepath.Join(r.Dir, filepath.FromSlash(to))), 0o755); err != nil {
		r.t.Fatal(err)
	}
	r.Run("mv", from, to)
	r.Run("commit", "-q", "-m", message)
	return r.Head()
}

// Head returns the current HEAD SHA.
func (r *TempRepo) Head() string {
	r.t.Helper()
	return strings.TrimSpace(r.Run("rev-parse", "HEAD"))
}

// Repo opens the repository through package git with a real runner.
func (r *TempRepo) Repo() *git.Repo {
	r.t.Helper()
	repo, err := git.Open(context.Background(), r.Dir, git.NewExecRunner("git", 0, nil))
	if err != nil {
		r.t.Fatalf("open repo: %v", err)
	}
	return repo
}

// Lines joins numbered lines "<prefix>1\n<prefix>2\n..." for n lines.
func Lines(prefix string, n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%s%d\n", prefix, i)
	}
	return b.String()
}
