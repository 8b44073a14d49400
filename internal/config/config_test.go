package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Nil(t, cfg.Limiter())
}

func TestLoad_RepoFile(t *testing.T) {
	root := t.TempDir()
	yaml := `git:
  timeout: 2s
resolve:
  parallelism: 9
  rate: 20
  burst: 5
log:
  level: debug
  json: true
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".lineage.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Git.Timeout)
	assert.Equal(t, "git", cfg.Git.Binary)
	assert.Equal(t, 9, cfg.Resolve.Parallelism)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.True(t, cfg.Cache.Enabled)

	lim := cfg.Limiter()
	require.NotNil(t, lim)
	assert.Equal(t, 5, lim.Burst())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".lineage.yaml"), []byte("resolve:\n  parallelism: 2\n"), 0o644))
	t.Setenv("LINEAGE_RESOLVE_PARALLELISM", "7")
	t.Setenv("LINEAGE_CACHE_ENABLED", "false")

	cfg, err := Load(root, "")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Resolve.Parallelism)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoad_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("git:\n  binary: /usr/local/bin/git\n"), 0o644))

	cfg, err := Load("", path)
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/git", cfg.Git.Binary)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".lineage.yaml"), []byte("resolve:\n  parallelism: 0\n"), 0o644))

	_, err := Load(root, "")
	assert.ErrorContains(t, err, "resolve.parallelism")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty binary", func(c *Config) { c.Git.Binary = "" }, "git.binary"},
		{"zero timeout", func(c *Config) { c.Git.Timeout = 0 }, "git.timeout"},
		{"negative rate", func(c *Config) { c.Resolve.Rate = -1 }, "resolve.rate"},
		{"rate without burst", func(c *Config) { c.Resolve.Rate = 1; c.Resolve.Burst = 0 }, "resolve.burst"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
	assert.NoError(t, Default().Validate())
}
