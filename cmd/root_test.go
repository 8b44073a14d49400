package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jensroland/git-lineage/internal/git/gittest"
	"github.com/jensroland/git-lineage/internal/project"
)

// run executes the CLI against repo and returns stdout, stderr and the error.
func run(t *testing.T, repo string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(project.RootEnv, repo)

	var stdout, stderr bytes.Buffer
	root := NewRootCommand("test")
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// twoCommitRepo has main.go lines 1-3 from "first" and line 4 from "second".
func twoCommitRepo(t *testing.T) (tr *gittest.TempRepo, first, second string) {
	t.Helper()
	tr = gittest.NewTempRepo(t)
	first = tr.Commit("main.go", "package main\n\nfunc main() {\n}\n", "first")
	second = tr.Commit("main.go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n", "second")
	return tr, first, second
}

type jsonReport struct {
	Path    string `json:"path"`
	Commits []struct {
		Commit struct {
			ID      string `json:"id"`
			Subject string `json:"subject"`
		} `json:"commit"`
		AffectedLines string `json:"affected_lines"`
		Status        string `json:"status"`
		RelevantHunks []any  `json:"relevant_hunks"`
	} `json:"commits"`
	Timeline []struct {
		Record *struct {
			ID string `json:"id"`
		} `json:"record"`
	} `json:"timeline"`
}

func TestAnalyze_JSON(t *testing.T) {
	tr, first, second := twoCommitRepo(t)

	out, _, err := run(t, tr.Dir, "-L", "3,4", "main.go", "--json")
	require.NoError(t, err)

	var rep jsonReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "main.go", rep.Path)
	require.Len(t, rep.Commits, 2)
	assert.Equal(t, first, rep.Commits[0].Commit.ID)
	assert.Equal(t, "3", rep.Commits[0].AffectedLines)
	assert.Equal(t, second, rep.Commits[1].Commit.ID)
	assert.Equal(t, "4", rep.Commits[1].AffectedLines)
	for _, c := range rep.Commits {
		assert.Equal(t, "resolved", c.Status)
		assert.NotEmpty(t, c.RelevantHunks)
	}
}

func TestAnalyze_JSONIsRepeatable(t *testing.T) {
	tr, _, _ := twoCommitRepo(t)

	first, _, err := run(t, tr.Dir, "-L", "1,5", "main.go", "--json")
	require.NoError(t, err)
	// second run is served from the commit cache
	second, _, err := run(t, tr.Dir, "-L", "1,5", "main.go", "--json")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAnalyze_FlagsAfterFile(t *testing.T) {
	tr, _, _ := twoCommitRepo(t)

	out, _, err := run(t, tr.Dir, "main.go", "-L", "4", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "main.go L4  1 commit")
	assert.Contains(t, out, "second")
	assert.Contains(t, out, "Lines: L4")
}

func TestAnalyze_ByDate(t *testing.T) {
	tr := gittest.NewTempRepo(t)
	tr.Write("f.txt", "a\nb\n")
	tr.Run("add", "f.txt")
	tr.Run("commit", "-q", "-m", "old", "--date", "2020-01-01T00:00:00Z")
	tr.Write("f.txt", "new\nb\n")
	tr.Run("add", "f.txt")
	tr.Run("commit", "-q", "-m", "new", "--date", "2023-01-01T00:00:00Z")

	out, _, err := run(t, tr.Dir, "-L", "1,2", "f.txt", "--json", "--by-date")
	require.NoError(t, err)

	var rep jsonReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Commits, 2)
	assert.Equal(t, "old", rep.Commits[0].Commit.Subject)
	assert.Equal(t, "new", rep.Commits[1].Commit.Subject)
}

func TestAnalyze_YAML(t *testing.T) {
	tr, _, _ := twoCommitRepo(t)

	out, _, err := run(t, tr.Dir, "-L", "4", "main.go", "--yaml")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "main.go", doc["path"])
	commits, ok := doc["commits"].([]any)
	require.True(t, ok)
	assert.Len(t, commits, 1)
}

func TestAnalyze_Timeline(t *testing.T) {
	tr, first, _ := twoCommitRepo(t)
	tr.Write(".lineage/records/review.jsonl",
		`{"id":"c1","kind":"review","file":"main.go","lines":"4","created_at":"2999-01-01T00:00:00Z","body":"why println?"}`+"\n"+
			`{"id":"c2","kind":"issue","commit":"`+first[:10]+`","created_at":"2000-01-01T00:00:00Z"}`+"\n"+
			`{"id":"c3","kind":"review","file":"other.go","created_at":"2000-01-01T00:00:00Z"}`+"\n")

	out, _, err := run(t, tr.Dir, "-L", "3,4", "main.go", "--timeline", "--json")
	require.NoError(t, err)

	var rep jsonReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Timeline, 4)
	require.NotNil(t, rep.Timeline[0].Record)
	assert.Equal(t, "c2", rep.Timeline[0].Record.ID)
	require.NotNil(t, rep.Timeline[3].Record)
	assert.Equal(t, "c1", rep.Timeline[3].Record.ID)

	text, _, err := run(t, tr.Dir, "-L", "3,4", "main.go", "--timeline")
	require.NoError(t, err)
	assert.Contains(t, text, "why println?")
}

func TestAnalyze_Errors(t *testing.T) {
	tr, _, _ := twoCommitRepo(t)
	tr.Write("scratch.go", "package main\n")

	_, _, err := run(t, tr.Dir, "main.go")
	assert.ErrorContains(t, err, "missing line range")

	_, _, err = run(t, tr.Dir, "-L", "x", "main.go")
	assert.ErrorContains(t, err, "invalid line number")

	_, _, err = run(t, tr.Dir, "-L", "1", "main.go", "--json", "--yaml")
	assert.ErrorContains(t, err, "mutually exclusive")

	_, _, err = run(t, tr.Dir, "-L", "1", "scratch.go")
	assert.ErrorContains(t, err, "not tracked by git")
	assert.ErrorContains(t, err, "hint: commit it first")

	_, _, err = run(t, tr.Dir, "-L", "1", "nope.go")
	assert.ErrorContains(t, err, "does not exist")
}

func TestStatsCommand(t *testing.T) {
	tr, _, _ := twoCommitRepo(t)
	tr.Write(".lineage/records/a.jsonl", `{"id":"1","kind":"review","file":"main.go","created_at":"2025-01-01T00:00:00Z"}`+"\n")

	// populate the commit cache
	_, _, err := run(t, tr.Dir, "-L", "1,4", "main.go", "--json")
	require.NoError(t, err)

	out, _, err := run(t, tr.Dir, "stats", "--json")
	require.NoError(t, err)

	var s struct {
		Records       int `json:"total_records"`
		CachedCommits int `json:"cached_commits"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 1, s.Records)
	assert.Equal(t, 2, s.CachedCommits)
}

func fakeToplevelGit(t *testing.T, top string) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "wrapped-git")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho "+top+"\n"), 0o755))
	return script
}

func TestFindRoot_GitBinaryFromEnv(t *testing.T) {
	t.Setenv(project.RootEnv, "")
	t.Setenv("LINEAGE_GIT_BINARY", fakeToplevelGit(t, "/srv/from-env"))

	got, err := findRoot(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "/srv/from-env", got)
}

func TestFindRoot_GitBinaryFromConfigFile(t *testing.T) {
	t.Setenv(project.RootEnv, "")
	cfg := filepath.Join(t.TempDir(), "lineage.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("git:\n  binary: "+fakeToplevelGit(t, "/srv/from-file")+"\n"), 0o644))

	got, err := findRoot(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "/srv/from-file", got)
}

func TestRelativePath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "a.go"), nil, 0o644))

	assert.Equal(t, "pkg/a.go", relativePath(filepath.Join(root, "pkg", "a.go"), root))
	assert.Equal(t, "pkg/b.go", relativePath("pkg/b.go", root), "unknown relative paths are root-relative")
	assert.Equal(t, "pkg/b.go", relativePath("./pkg//b.go", root))

	outside := filepath.Join(t.TempDir(), "x.go")
	assert.Equal(t, filepath.ToSlash(outside), relativePath(outside, root))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(filepath.Join(root, "pkg")))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	assert.Equal(t, "pkg/a.go", relativePath("a.go", root))
}
