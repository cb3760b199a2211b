package cmd

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophersatwork/ctxcache/internal/config"
)

func TestConfigInit(t *testing.T) {
	fs := afero.NewMemMapFs()

	res := execute(t, fs, "config", "init")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stderr, "Wrote "+config.DefaultFilename)

	cfg, err := config.Load(fs, "")
	require.NoError(t, err)
	assert.Equal(t, config.CurrentVersion, cfg.Version)
	assert.Equal(t, config.NewConfig().Build, cfg.Build)

	again := execute(t, fs, "config", "init")
	assert.Equal(t, ExitUsage, again.code)
	assert.Contains(t, again.stderr, "already exists")

	forced := execute(t, fs, "config", "init", "--force")
	assert.Equal(t, ExitSuccess, forced.code, forced.stderr)
}

func TestConfigInit_ExplicitPathThenUse(t *testing.T) {
	fs := afero.NewMemMapFs()

	res := execute(t, fs, "--config", "/etc/ctx.yaml", "config", "init")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	show := execute(t, fs, "--config", "/etc/ctx.yaml", "config", "show")
	require.Equal(t, ExitSuccess, show.code, show.stderr)
	assert.Contains(t, show.stdout, "cache_version: v0")
	assert.Contains(t, show.stdout, "version: 1")
}

func TestConfigShow_ReflectsFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, config.DefaultFilename, []byte("resolve:\n  format: pretty\n"), 0o644))

	res := execute(t, fs, "config", "show")

	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "format: pretty")
}

func TestConfig_UnsupportedSchemaVersion(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, config.DefaultFilename, []byte("version: 9\n"), 0o644))

	res := execute(t, fs, "config", "show")

	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, "unsupported config version 9")
}
