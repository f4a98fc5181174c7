package config

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proxyFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("gfproxy", pflag.ContinueOnError)
	fs.Int("port", 0, "")
	fs.Int("workers", 0, "")
	fs.String("socket", "", "")
	fs.String("cache_socket", "", "")
	fs.String("segment_dir", "", "")
	fs.Uint32("segment_size", 0, "")
	fs.Int("segment_pool", 0, "")
	fs.String("origin_url", "", "")
	return fs
}

func TestLoadProxyConfig(t *testing.T) {
	t.Run("FallsBackToDefaults", func(t *testing.T) {
		cfg, err := LoadProxyConfig(proxyFlagSet(), "")
		require.NoError(t, err)
		assert.Equal(t, 8888, cfg.Port)
		assert.Equal(t, 1, cfg.Workers)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("FlagOverridesDefault", func(t *testing.T) {
		fs := proxyFlagSet()
		require.NoError(t, fs.Parse([]string{"--port=9999"}))
		cfg, err := LoadProxyConfig(fs, "")
		require.NoError(t, err)
		assert.Equal(t, 9999, cfg.Port)
	})

	t.Run("EnvOverridesDefaultButNotFlag", func(t *testing.T) {
		t.Setenv("GFPROXY_PORT", "7000")
		cfg, err := LoadProxyConfig(proxyFlagSet(), "")
		require.NoError(t, err)
		assert.Equal(t, 7000, cfg.Port)

		fs := proxyFlagSet()
		require.NoError(t, fs.Parse([]string{"--port=1234"}))
		cfg, err = LoadProxyConfig(fs, "")
		require.NoError(t, err)
		assert.Equal(t, 1234, cfg.Port)
	})

	t.Run("RejectsInvalidPort", func(t *testing.T) {
		fs := proxyFlagSet()
		require.NoError(t, fs.Parse([]string{"--port=99999"}))
		_, err := LoadProxyConfig(fs, "")
		assert.Error(t, err)
	})

	t.Run("ReadsYAMLFile", func(t *testing.T) {
		f, err := os.CreateTemp(t.TempDir(), "gfproxy-*.yaml")
		require.NoError(t, err)
		_, err = f.WriteString("workers: 32\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		cfg, err := LoadProxyConfig(proxyFlagSet(), f.Name())
		require.NoError(t, err)
		assert.Equal(t, 32, cfg.Workers)
	})
}

func TestLoadCacheConfig(t *testing.T) {
	fs := pflag.NewFlagSet("gfcache", pflag.ContinueOnError)
	fs.String("socket", "", "")
	fs.String("proxy_socket", "", "")
	fs.String("segment_dir", "", "")
	fs.Uint32("segment_size", 0, "")
	fs.Int("workers", 0, "")
	fs.String("blob_root", "", "")
	fs.String("index_path", "", "")

	cfg, err := LoadCacheConfig(fs, "")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/gfcache/blobs", cfg.BlobRoot)
	assert.EqualValues(t, 1<<20, cfg.SegmentSize)
}

func TestLoadLoadConfig(t *testing.T) {
	fs := pflag.NewFlagSet("gfload", pflag.ContinueOnError)
	fs.String("server", "", "")
	fs.Int("port", 0, "")
	fs.Int("workers", 0, "")
	fs.Int("rate", 0, "")
	fs.Int("num_requests", 0, "")
	fs.String("workload", "", "")
	require.NoError(t, fs.Parse([]string{"--num_requests=500"}))

	cfg, err := LoadLoadConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.NumRequest)
	assert.Equal(t, 1, cfg.Workers)
}
