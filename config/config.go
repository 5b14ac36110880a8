package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"strata/storage"
)

type Config struct {
	CacheDir      string `yaml:"cache_dir"`
	ListenAddress string `yaml:"listen_address"`
	LogLevel      string `yaml:"log_level"`

	Store       StoreOptions       `yaml:"store"`
	Flush       FlushOptions       `yaml:"flush"`
	Acquisition AcquisitionOptions `yaml:"acquisition"`
	Render      RenderOptions      `yaml:"render"`
}

type StoreOptions struct {
	BlockSize        int64 `yaml:"block_size"`
	SlotSize         int64 `yaml:"slot_size"`
	CacheSlots       int   `yaml:"cache_slots"`
	FlushConcurrency int   `yaml:"flush_concurrency"`
	Compress         bool  `yaml:"compress"`
	MaxResidentBytes int64 `yaml:"max_resident_bytes"`
}

// FlushOptions controls when old slots are moved to disk. Either trigger
// may be disabled with 0.
type FlushOptions struct {
	Interval     time.Duration `yaml:"interval"`
	EverySamples int64         `yaml:"every_samples"`
}

type AcquisitionOptions struct {
	Channels   int     `yaml:"channels"`
	SampleRate float64 `yaml:"sample_rate"`
	Burst      int     `yaml:"burst"`
	// Samples stops acquisition after that many rows. 0 runs until stopped.
	Samples int64 `yaml:"samples"`
}

type RenderOptions struct {
	Interval   time.Duration `yaml:"interval"`
	Window     int64         `yaml:"window"`
	Resolution int           `yaml:"resolution"`
}

func Default() Config {
	return Config{
		CacheDir:      "data",
		ListenAddress: ":9464",
		LogLevel:      "info",
		Store: StoreOptions{
			BlockSize:        storage.DefaultBlockSize,
			SlotSize:         storage.DefaultSlotSize,
			CacheSlots:       4,
			FlushConcurrency: 2,
		},
		Flush: FlushOptions{
			Interval: 5 * time.Second,
		},
		Acquisition: AcquisitionOptions{
			Channels:   4,
			SampleRate: 100000,
			Burst:      1000,
		},
		Render: RenderOptions{
			Interval:   100 * time.Millisecond,
			Window:     1 << 16,
			Resolution: 4,
		},
	}
}

// Load reads a YAML config file on top of Default. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.CacheDir == "" {
		return errors.New("cache_dir is required")
	}
	if err := c.Store.Layout().Validate(); err != nil {
		return err
	}
	if c.Store.CacheSlots < 0 {
		return errors.Errorf("invalid cache_slots %d", c.Store.CacheSlots)
	}
	if c.Acquisition.Channels < 0 {
		return errors.Errorf("invalid channel count %d", c.Acquisition.Channels)
	}
	if c.Acquisition.SampleRate <= 0 {
		return errors.Errorf("invalid sample_rate %v", c.Acquisition.SampleRate)
	}
	if c.Render.Resolution < 0 {
		return errors.Errorf("invalid render resolution %d", c.Render.Resolution)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}

func (o StoreOptions) Layout() storage.Layout {
	return storage.Layout{BlockSize: o.BlockSize, SlotSize: o.SlotSize}
}

// Options converts the store section into storage options rooted at dir.
func (o StoreOptions) Options(dir string) storage.Options {
	return storage.Options{
		Dir:              dir,
		Layout:           o.Layout(),
		CacheSlots:       o.CacheSlots,
		FlushConcurrency: o.FlushConcurrency,
		Compress:         o.Compress,
		MaxResidentBytes: o.MaxResidentBytes,
	}
}
