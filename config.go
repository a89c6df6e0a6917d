package burrow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/burrow/journal"
	"github.com/hazyhaar/burrow/telegram"
)

// BrowserConfig controls the shared Chrome process.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome. Empty launches a
	// local one.
	Remote string `yaml:"remote"`
	// Mode is "headful" (default; the journal login breaks headless) or
	// "headless".
	Mode string `yaml:"mode"`
}

// Config is the top-level burrow configuration. Credentials never live
// here; they are injected from the environment into Journal.Credentials by
// the caller.
type Config struct {
	Browser  BrowserConfig   `yaml:"browser"`
	Journal  journal.Config  `yaml:"journal"`
	Telegram telegram.Config `yaml:"telegram"`

	// LedgerPath is the processed-entries database file.
	LedgerPath string `yaml:"ledger_path"`
	// SessionsDir holds the per-site session state files.
	SessionsDir string `yaml:"sessions_dir"`
	// StatusAddr is the optional status HTTP listen address. Empty disables.
	StatusAddr string `yaml:"status_addr"`
}

// ApplyDefaults fills every zero value, selectors included.
func (c *Config) ApplyDefaults() {
	c.Journal.ApplyDefaults()
	c.Telegram.ApplyDefaults()
	if c.LedgerPath == "" {
		c.LedgerPath = "journal_entries.db"
	}
	if c.SessionsDir == "" {
		c.SessionsDir = "sessions"
	}
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("burrow: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("burrow: parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}
