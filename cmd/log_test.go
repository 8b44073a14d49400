package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jensroland/git-lineage/internal/logging"
	"github.com/jensroland/git-lineage/internal/project"
)

func setupLogPaths(t *testing.T) project.Paths {
	t.Helper()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	paths := project.NewPaths(root)
	if err := os.MkdirAll(paths.LogDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return paths
}

func TestCmdLog(t *testing.T) {
	paths := setupLogPaths(t)

	logContent := "level=info msg=\"analysis complete\" commits=2\nlevel=warn msg=\"diff lookup failed\" tier=direct\n"
	if err := os.WriteFile(filepath.Join(paths.LogDir, logging.FileName), []byte(logContent), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmdLog(&out, paths, 100)

	if !strings.Contains(out.String(), "analysis complete") || !strings.Contains(out.String(), "diff lookup failed") {
		t.Errorf("output should contain log content, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "(last 2 lines)") {
		t.Errorf("output should count lines, got: %s", out.String())
	}
}

func TestCmdLog_Tail(t *testing.T) {
	paths := setupLogPaths(t)

	var b strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "entry %02d\n", i)
	}
	if err := os.WriteFile(filepath.Join(paths.LogDir, logging.FileName), []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmdLog(&out, paths, 3)

	if strings.Contains(out.String(), "entry 07") {
		t.Errorf("entry 07 should be cut off, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "entry 08\nentry 09\nentry 10") {
		t.Errorf("expected the last three entries, got: %s", out.String())
	}
}

func TestCmdLog_MissingFile(t *testing.T) {
	paths := setupLogPaths(t)

	var out bytes.Buffer
	cmdLog(&out, paths, 100)

	if !strings.Contains(out.String(), "No log file") {
		t.Errorf("output should contain 'No log file', got: %s", out.String())
	}
}
