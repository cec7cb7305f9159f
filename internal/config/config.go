package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	appLog "icstable/internal/log"
	"icstable/internal/value"
)

// SourceConfig describes a single calendar feed to transcode.
type SourceConfig struct {
	// URL is an http(s) URL, a file:// URL or a plain path.
	URL string `yaml:"url" json:"url"`
	// ID names the output file and appears in logs and metrics.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address used by -serve.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Format is the output encoding: "json" (default) or "yaml".
	Format string `yaml:"format" json:"format"`

	// Strict enables the additional golang-ical grammar check.
	Strict bool `yaml:"strict" json:"strict"`

	// Refresh is the cron schedule for -watch (e.g. "*/15 * * * *").
	Refresh string `yaml:"refresh" json:"refresh"`

	// OutputDir receives one file per source in -watch mode.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// CacheDir holds the HTTP cache of fetched sources.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// BasicAuth, if set with both fields, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen    = "127.0.0.1:8080"
	defaultLogLevel  = "info"
	defaultRefresh   = "*/15 * * * *"
	defaultOutputDir = "./var/out"
	defaultCacheDir  = "./var/ics-cache"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    defaultListen,
		LogLevel:  defaultLogLevel,
		Format:    string(value.FormatJSON),
		Refresh:   defaultRefresh,
		OutputDir: defaultOutputDir,
		CacheDir:  defaultCacheDir,
		Sources:   []SourceConfig{},
	}
}

// Normalize fills in missing values so that partially written configs
// still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if f, err := value.ParseFormat(c.Format); err != nil {
		c.Format = string(value.FormatJSON)
	} else {
		c.Format = string(f)
	}
	if c.Refresh == "" {
		c.Refresh = defaultRefresh
	}
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Sources == nil {
		c.Sources = []SourceConfig{}
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.ID == "" {
			if s.Name != "" {
				s.ID = s.Name
			} else {
				s.ID = fmt.Sprintf("source-%d", i+1)
			}
		}
	}
}

// Validate reports settings that Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := cron.ParseStandard(c.Refresh); err != nil {
		return fmt.Errorf("refresh %q: %w", c.Refresh, err)
	}
	seen := make(map[string]struct{}, len(c.Sources))
	stems := make(map[string]string, len(c.Sources))
	for _, s := range c.Sources {
		if s.URL == "" {
			return fmt.Errorf("source %q has no url", s.ID)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = struct{}{}

		stem := FileStem(s.ID)
		if other, clash := stems[stem]; clash {
			return fmt.Errorf("source ids %q and %q both write %q", other, s.ID, stem)
		}
		stems[stem] = s.ID
	}
	return nil
}

// FileStem maps a source id to the base name of its output file. Letters,
// digits, '-', '_' and '.' are kept; anything else becomes '_'.
func FileStem(id string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, id)
	out = strings.Trim(out, ".")
	if out == "" {
		return "source"
	}
	return out
}

// ApplyEnv overrides fields from ICSTABLE_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ICSTABLE_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("ICSTABLE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ICSTABLE_FORMAT"); v != "" {
		c.Format = v
	}
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there with 0600
// permissions and returned. A failed write is logged and the defaults are
// still returned. Otherwise the file is read, environment overrides are
// applied, and the result is normalized and validated.
func Load(path string) (*Config, error) {
	cfg, missing, err := read(path)
	if err != nil || !missing {
		return cfg, err
	}
	if err := Save(path, cfg); err != nil {
		appLog.Warn("could not write default config", "config_path", path, "err", err)
	}
	return cfg, nil
}

// Read is Load without the side effect: a missing file yields the
// defaults and nothing is written.
func Read(path string) (*Config, error) {
	cfg, _, err := read(path)
	return cfg, err
}

func read(path string) (cfg *Config, missing bool, err error) {
	if path == "" {
		return nil, false, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg = DefaultConfig()
			cfg.ApplyEnv()
			cfg.Normalize()
			return cfg, true, nil
		}
		return nil, false, err
	}

	cfg = &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ApplyEnv()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, false, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".icstable-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience wrapper around the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// SourcesWithURL returns the configured sources that have a URL.
func (c *Config) SourcesWithURL() []SourceConfig {
	out := make([]SourceConfig, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.URL != "" {
			out = append(out, s)
		}
	}
	return out
}
