package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata/storage"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "strata.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o666))
	return path
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
cache_dir: /var/cache/strata
log_level: debug
store:
  block_size: 1024
  slot_size: 65536
  compress: true
flush:
  interval: 250ms
  every_samples: 8192
acquisition:
  channels: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/strata", cfg.CacheDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, storage.Layout{BlockSize: 1024, SlotSize: 65536}, cfg.Store.Layout())
	assert.True(t, cfg.Store.Compress)
	assert.Equal(t, 250*time.Millisecond, cfg.Flush.Interval)
	assert.Equal(t, int64(8192), cfg.Flush.EverySamples)
	assert.Equal(t, 8, cfg.Acquisition.Channels)

	def := Default()
	assert.Equal(t, def.ListenAddress, cfg.ListenAddress)
	assert.Equal(t, def.Store.CacheSlots, cfg.Store.CacheSlots)
	assert.Equal(t, def.Acquisition.SampleRate, cfg.Acquisition.SampleRate)
	assert.Equal(t, def.Render, cfg.Render)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "store: [1, 2"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "store:\n  slot_size: 1000\n"))
	require.ErrorIs(t, err, storage.ErrInvalidLayout)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"no cache dir":        func(c *Config) { c.CacheDir = "" },
		"zero block":          func(c *Config) { c.Store.BlockSize = 0 },
		"unaligned slot":      func(c *Config) { c.Store.SlotSize = c.Store.BlockSize + 1 },
		"negative cache":      func(c *Config) { c.Store.CacheSlots = -1 },
		"negative channels":   func(c *Config) { c.Acquisition.Channels = -2 },
		"zero sample rate":    func(c *Config) { c.Acquisition.SampleRate = 0 },
		"negative resolution": func(c *Config) { c.Render.Resolution = -1 },
		"unknown log level":   func(c *Config) { c.LogLevel = "verbose" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestStoreOptions(t *testing.T) {
	o := StoreOptions{
		BlockSize:        16,
		SlotSize:         64,
		CacheSlots:       3,
		FlushConcurrency: 5,
		Compress:         true,
		MaxResidentBytes: 1 << 20,
	}

	opts := o.Options("/tmp/strata")
	assert.Equal(t, "/tmp/strata", opts.Dir)
	assert.Equal(t, storage.Layout{BlockSize: 16, SlotSize: 64}, opts.Layout)
	assert.Equal(t, 3, opts.CacheSlots)
	assert.Equal(t, 5, opts.FlushConcurrency)
	assert.True(t, opts.Compress)
	assert.Equal(t, int64(1<<20), opts.MaxResidentBytes)
}
