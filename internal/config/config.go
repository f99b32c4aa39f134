// Package config loads the settings shared by the command line tools.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pspoerri/gridshift/internal/cog"
	"github.com/pspoerri/gridshift/internal/grid"
	"github.com/pspoerri/gridshift/internal/registry"
)

// Config holds the application configuration.
type Config struct {
	// SearchPaths are tried in order when resolving grid names.
	SearchPaths []string `yaml:"search_paths"`
	// BlockCacheBlocks bounds the number of decoded GeoTIFF blocks kept in
	// memory.
	BlockCacheBlocks int `yaml:"block_cache_blocks"`
	// CheckFileChanges reloads grids whose file changed while open.
	CheckFileChanges bool `yaml:"check_file_changes"`
	// CheckInterval bounds how often an open grid file is stat'ed for
	// changes. Zero checks on every cell lookup.
	CheckInterval time.Duration `yaml:"check_interval"`
	// DeferGridOpening opens grids on first use instead of when an
	// operator is created.
	DeferGridOpening bool      `yaml:"defer_grid_opening"`
	Log              LogConfig `yaml:"log"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // trace, debug, info, warn, error
	File  string `yaml:"file"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		// Four blocks around a cell corner, three samples each.
		BlockCacheBlocks: 4 * 3,
		CheckFileChanges: true,
		CheckInterval:    time.Second,
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Environment variables consulted by ApplyEnv.
const (
	EnvProjData = "PROJ_DATA"
	EnvProjLib  = "PROJ_LIB"
	EnvLogLevel = "GRIDSHIFT_LOG_LEVEL"
)

// Load reads the configuration at path on top of the defaults. A missing
// file yields the defaults; nothing is written back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.BlockCacheBlocks < 0 {
		return nil, fmt.Errorf("block_cache_blocks must not be negative, got %d", cfg.BlockCacheBlocks)
	}
	if cfg.CheckInterval < 0 {
		return nil, fmt.Errorf("check_interval must not be negative, got %s", cfg.CheckInterval)
	}
	return cfg, nil
}

// Save writes the configuration to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := []byte("# gridshift configuration\n# log.level: trace, debug, info, warn, error\n\n")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadEnv reads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// ApplyEnv appends the PROJ_DATA, or else PROJ_LIB, directories to the
// search paths and lets GRIDSHIFT_LOG_LEVEL override the log level.
func (c *Config) ApplyEnv() {
	dirs := os.Getenv(EnvProjData)
	if dirs == "" {
		dirs = os.Getenv(EnvProjLib)
	}
	for _, dir := range filepath.SplitList(dirs) {
		if dir != "" {
			c.SearchPaths = append(c.SearchPaths, dir)
		}
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

// Opener returns the grid file opener described by the configuration.
func (c *Config) Opener() grid.FileOpener {
	return grid.FileOpener{
		SearchPaths:   append([]string(nil), c.SearchPaths...),
		DetectChanges: c.CheckFileChanges,
		CheckInterval: c.CheckInterval,
	}
}

// Context builds the grid context for the operators. The caller stops the
// returned block cache when done.
func (c *Config) Context(logger *slog.Logger) *registry.Context {
	return &registry.Context{
		Opener:   c.Opener(),
		Cache:    cog.NewBlockCache(c.BlockCacheBlocks),
		Logger:   logger,
		Deferred: c.DeferGridOpening,
	}
}
