// Package config loads the build configuration of an elaboration run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hdlelab/internal/ir"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "hdlelab.yaml"

// Config is the build configuration.
type Config struct {
	// Database is the SQLite file the instantiation graph is kept in.
	Database string `yaml:"database"`

	// Design is the directory of CUE design files.
	Design string `yaml:"design"`

	// Toplevels are unit references, e.g. "work.top" or "work.top(rtl)".
	Toplevels []string `yaml:"toplevels"`

	// Threads selects serial (1) or worker-pool (>1) scheduling.
	Threads int `yaml:"threads"`

	// Indexing enables the connectivity indices.
	Indexing bool `yaml:"indexing"`

	PollInterval    time.Duration `yaml:"poll_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Database:        "build.db",
		Design:          ".",
		Threads:         1,
		PollInterval:    500 * time.Millisecond,
		ShutdownTimeout: 7 * 24 * time.Hour,
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults. Relative paths in the file are resolved against the file's
// directory.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unknown keys are rejected so typos surface.
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.Database = resolve(base, cfg.Database)
	cfg.Design = resolve(base, cfg.Design)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate checks field ranges and toplevel syntax.
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %s", c.ShutdownTimeout)
	}
	if _, err := c.ToplevelIDs(); err != nil {
		return err
	}
	return nil
}

// ToplevelIDs parses Toplevels.
func (c *Config) ToplevelIDs() ([]ir.DesignUnitID, error) {
	ids := make([]ir.DesignUnitID, 0, len(c.Toplevels))
	for _, ref := range c.Toplevels {
		id, err := ir.ParseUnitRef(ref)
		if err != nil {
			return nil, fmt.Errorf("toplevels: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
