package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.jsonc"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadParsesJSONCWithComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ecshimctl.jsonc")
	contents := `{
		// block size in bytes
		"block_size": 8192,
		"cache_size": 64,
		"cache_time_ms": 5000,
		"min_write_delay_ms": 1000,
	}`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8192, cfg.BlockSize)
	assert.Equal(t, 64, cfg.CacheSize)
	assert.EqualValues(t, 5000, cfg.CacheTimeMillis)
	assert.EqualValues(t, 1000, cfg.MinWriteDelayMillis)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"block_size": 0}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestShimConfigConvertsMillisToDuration(t *testing.T) {
	c := FileConfig{BlockSize: 4096, CacheSize: 16, CacheTimeMillis: 2000, MinWriteDelayMillis: 500}
	sc := c.ShimConfig()
	assert.Equal(t, 2*time.Second, sc.CacheTime)
	assert.Equal(t, 500*time.Millisecond, sc.MinWriteDelay)
}

func TestApplyFlagsOnlyOverridesChangedFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("block-size", 4096, "")
	fs.Int("cache-size", 1024, "")
	fs.Duration("cache-time", 10*time.Second, "")
	fs.Duration("min-write-delay", 2*time.Second, "")
	fs.Duration("backend-lag", time.Second, "")
	require.NoError(t, fs.Parse([]string{"--cache-size=99"}))

	cfg, err := ApplyFlags(Default(), fs)
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.CacheSize)
	assert.Equal(t, Default().BlockSize, cfg.BlockSize)
}
