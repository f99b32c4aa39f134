package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoFileExists(t, path)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridshift.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search_paths: [/data/proj]\nlog:\n  level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/proj"}, cfg.SearchPaths)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 12, cfg.BlockCacheBlocks)
	assert.True(t, cfg.CheckFileChanges)
}

func TestLoadCheckInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridshift.yaml")
	require.NoError(t, os.WriteFile(path, []byte("check_interval: 250ms\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.CheckInterval)
	o := cfg.Opener()
	assert.True(t, o.DetectChanges)
	assert.Equal(t, 250*time.Millisecond, o.CheckInterval)

	assert.Equal(t, time.Second, DefaultConfig().CheckInterval)

	require.NoError(t, os.WriteFile(path, []byte("check_interval: -1s\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "check_interval")
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("search_paths: {"), 0o644))
	_, err := Load(bad)
	assert.ErrorContains(t, err, "failed to parse")

	negative := filepath.Join(dir, "negative.yaml")
	require.NoError(t, os.WriteFile(negative, []byte("block_cache_blocks: -1\n"), 0o644))
	_, err = Load(negative)
	assert.ErrorContains(t, err, "block_cache_blocks")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gridshift.yaml")
	cfg := DefaultConfig()
	cfg.SearchPaths = []string{"/a", "/b"}
	cfg.DeferGridOpening = true
	require.NoError(t, Save(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# gridshift configuration"))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestApplyEnv(t *testing.T) {
	sep := string(os.PathListSeparator)
	t.Setenv(EnvProjData, "/x"+sep+sep+"/y")
	t.Setenv(EnvProjLib, "/ignored")
	t.Setenv(EnvLogLevel, "trace")

	cfg := DefaultConfig()
	cfg.SearchPaths = []string{"/first"}
	cfg.ApplyEnv()
	assert.Equal(t, []string{"/first", "/x", "/y"}, cfg.SearchPaths)
	assert.Equal(t, "trace", cfg.Log.Level)

	t.Setenv(EnvProjData, "")
	cfg = DefaultConfig()
	cfg.ApplyEnv()
	assert.Equal(t, []string{"/ignored"}, cfg.SearchPaths)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(env, []byte("GRIDSHIFT_TEST_A=from-file\nGRIDSHIFT_TEST_B=from-file\n"), 0o644))
	t.Setenv("GRIDSHIFT_TEST_B", "preset")
	t.Cleanup(func() { os.Unsetenv("GRIDSHIFT_TEST_A") })

	require.NoError(t, LoadEnv(env, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("GRIDSHIFT_TEST_A"))
	assert.Equal(t, "preset", os.Getenv("GRIDSHIFT_TEST_B"))
}

func TestContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SearchPaths = []string{"/grids"}
	cfg.DeferGridOpening = true
	ctx := cfg.Context(nil)
	t.Cleanup(ctx.Cache.Stop)

	assert.True(t, ctx.Deferred)
	assert.NotNil(t, ctx.Cache)
	assert.Equal(t, cfg.Opener(), ctx.Opener)
	assert.True(t, cfg.Opener().DetectChanges)
}
