// Package config handles TOML configuration loading with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/albacete-simd/mande-enrich/internal/resultcsv"
	"github.com/albacete-simd/mande-enrich/internal/source"
)

// Config is the top-level configuration for mande-enrich.
type Config struct {
	Input   InputConfig   `toml:"input"`
	Columns ColumnsConfig `toml:"columns"`
	Ledger  LedgerConfig  `toml:"ledger"`
	Log     LogConfig     `toml:"log"`
}

// InputConfig locates the log files. Result CSVs always live in
// <dir>/results.
type InputConfig struct {
	Dir     string `toml:"dir"`
	Pattern string `toml:"pattern"`
}

// ColumnsConfig controls the appended header labels.
type ColumnsConfig struct {
	Labels      []string `toml:"labels"`
	OnDuplicate string   `toml:"on_duplicate"`
}

// LedgerConfig controls the SQLite record of past enrichments.
type LedgerConfig struct {
	Enabled   bool     `toml:"enabled"`
	Path      string   `toml:"path"`
	Retention Duration `toml:"retention"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration wraps time.Duration for TOML string parsing (e.g. "5m", "1h").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Dir:     "..",
			Pattern: source.DefaultPattern,
		},
		Columns: ColumnsConfig{
			Labels:      slices.Clone(resultcsv.DefaultColumns[:]),
			OnDuplicate: string(resultcsv.PolicyAppend),
		},
		Ledger: LedgerConfig{
			Enabled:   true,
			Retention: Duration{90 * 24 * time.Hour},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "mande-enrich", "config.toml")
}

// Load reads configuration from the given path, falling back to defaults
// for any unset fields. If the file does not exist, returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the column labels and duplicate policy.
func (c *Config) Validate() error {
	if len(c.Columns.Labels) != 4 {
		return fmt.Errorf("columns.labels needs 4 entries, got %d", len(c.Columns.Labels))
	}
	for i, l := range c.Columns.Labels {
		if l == "" {
			return fmt.Errorf("columns.labels[%d] is empty", i)
		}
	}
	if _, err := resultcsv.ParsePolicy(c.Columns.OnDuplicate); err != nil {
		return fmt.Errorf("columns.on_duplicate: %w", err)
	}
	return nil
}

// ResultColumns returns the configured labels. Call Validate first.
func (c *Config) ResultColumns() resultcsv.Columns {
	var cols resultcsv.Columns
	copy(cols[:], c.Columns.Labels)
	return cols
}

// DuplicatePolicy returns the configured policy, defaulting to append.
func (c *Config) DuplicatePolicy() resultcsv.Policy {
	p, err := resultcsv.ParsePolicy(c.Columns.OnDuplicate)
	if err != nil {
		return resultcsv.PolicyAppend
	}
	return p
}

// ResultsDir is where result CSVs named by log files are found.
func (c *Config) ResultsDir() string {
	return filepath.Join(c.Input.Dir, "results")
}

// LedgerPath returns the ledger database path, defaulting to the XDG data dir.
func (c *Config) LedgerPath() string {
	if c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = os.Getenv("HOME")
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "mande-enrich", "ledger.db")
}
