package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the JSON API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the JSON API.
	Listen string `yaml:"listen" json:"listen"`

	// Feeds is a comma-separated list of iCalendar feed URLs. webcal://
	// links are accepted and rewritten to https:// at fetch time.
	Feeds string `yaml:"feeds" json:"feeds"`

	// Timezone is the IANA zone every occurrence is resolved into and
	// "today" is computed in (e.g. "Europe/Oslo").
	Timezone string `yaml:"timezone" json:"timezone"`

	// TimeFormat selects the clock rendering: "12hr" or "24hr".
	TimeFormat string `yaml:"time_format" json:"time_format"`

	// RefreshCron is a cron-style schedule (e.g. "30 6 * * *") on which
	// the driver rebuilds the digest.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonYears bounds recurrence expansion: rules without a COUNT or
	// UNTIL stop once a generated start's year exceeds the current year
	// plus this value.
	HorizonYears int `yaml:"horizon_years" json:"horizon_years"`

	// OutputPath is where the rendered digest section is written on each
	// refresh. Empty means stdout.
	OutputPath string `yaml:"output_path" json:"output_path"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Feeds:        "",
		Timezone:     "UTC",
		TimeFormat:   "24hr",
		RefreshCron:  "30 6 * * *",
		HorizonYears: 5,
		BasicAuth:    nil,
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	switch strings.ToLower(c.TimeFormat) {
	case "12hr", "24hr":
		c.TimeFormat = strings.ToLower(c.TimeFormat)
	default:
		c.TimeFormat = "24hr"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "30 6 * * *"
	}
	if c.HorizonYears <= 0 {
		c.HorizonYears = 5
	}
}

// FeedURLs splits the comma-separated Feeds value into individual URLs,
// dropping empty entries.
func (c *Config) FeedURLs() []string {
	urls := make([]string, 0)
	for _, part := range strings.Split(c.Feeds, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			urls = append(urls, part)
		}
	}
	return urls
}

// TwelveHour reports whether times should render with a 12-hour clock.
func (c *Config) TwelveHour() bool {
	return strings.EqualFold(c.TimeFormat, "12hr")
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist, a default config is written there (0600)
// and returned; otherwise the file is read, unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path, atomically
// via a temp file + rename, with 0600 permissions.
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

	tmp, err := os.CreateTemp(dir, ".caldigest-config-*.tmp")
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

// Save delegates to the package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
