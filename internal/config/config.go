package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Environment overrides are applied by LoadWithEnv.

// DefaultPath is where the service looks for its config file.
const DefaultPath = "/etc/concierge/config.yaml"

// Environment variables that override file values.
const (
	EnvListen       = "CONCIERGE_LISTEN"
	EnvDataPath     = "CONCIERGE_DATA_PATH"
	EnvTimezone     = "CONCIERGE_TIMEZONE"
	EnvLogLevel     = "CONCIERGE_LOG_LEVEL"
	EnvTravelBuffer = "CONCIERGE_TRAVEL_BUFFER_MINUTES"
)

const (
	defaultListen           = "127.0.0.1:8080"
	defaultTimezone         = "Europe/London"
	defaultDataPath         = "/var/lib/concierge/concierge.db"
	defaultBackupDir        = "/var/lib/concierge/backups"
	defaultCacheDir         = "/var/cache/concierge"
	defaultTravelBuffer     = 30
	defaultRenewalLimit     = 5
	defaultBackupCron       = "0 3 * * *"
	defaultSubscriptionCron = "*/30 * * * *"
	defaultLogLevel         = "info"
)

// SubscriptionConfig describes a single ICS subscription source.
type SubscriptionConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
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
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone the household lives in (e.g. "Europe/London").
	Timezone string `yaml:"timezone" json:"timezone"`

	// DataPath is the SQLite database file holding the household state.
	DataPath string `yaml:"data_path" json:"data_path"`

	// TravelBufferMinutes is subtracted from the next event's start to get
	// the leave-by time.
	TravelBufferMinutes int `yaml:"travel_buffer_minutes" json:"travel_buffer_minutes"`

	// RenewalLimit caps the upcoming renewals list.
	RenewalLimit int `yaml:"renewal_limit" json:"renewal_limit"`

	// WeekStart controls which weekday is treated as the first day of the week
	// in calendar views. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// BackupCron is a cron-style schedule for JSON snapshots of the state.
	// Set to "-" to disable.
	BackupCron string `yaml:"backup_cron" json:"backup_cron"`

	// BackupDir receives the snapshots.
	BackupDir string `yaml:"backup_dir" json:"backup_dir"`

	// SubscriptionCron is a cron-style schedule for refreshing subscriptions.
	SubscriptionCron string `yaml:"subscription_cron" json:"subscription_cron"`

	// Subscriptions is the list of subscribed ICS sources.
	Subscriptions []SubscriptionConfig `yaml:"subscriptions" json:"subscriptions"`

	// CacheDir stores fetched subscription bodies.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:              defaultListen,
		Timezone:            defaultTimezone,
		DataPath:            defaultDataPath,
		TravelBufferMinutes: defaultTravelBuffer,
		RenewalLimit:        defaultRenewalLimit,
		WeekStart:           "monday",
		BackupCron:          defaultBackupCron,
		BackupDir:           defaultBackupDir,
		SubscriptionCron:    defaultSubscriptionCron,
		Subscriptions:       []SubscriptionConfig{},
		CacheDir:            defaultCacheDir,
		LogLevel:            defaultLogLevel,
		BasicAuth:           nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.DataPath == "" {
		c.DataPath = defaultDataPath
	}
	if c.TravelBufferMinutes < 0 {
		c.TravelBufferMinutes = defaultTravelBuffer
	}
	if c.RenewalLimit <= 0 {
		c.RenewalLimit = defaultRenewalLimit
	}
	// WeekStart default & validation.
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.BackupCron == "" {
		c.BackupCron = defaultBackupCron
	}
	if c.BackupDir == "" {
		c.BackupDir = defaultBackupDir
	}
	if c.SubscriptionCron == "" {
		c.SubscriptionCron = defaultSubscriptionCron
	}
	if c.Subscriptions == nil {
		c.Subscriptions = []SubscriptionConfig{}
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FirstWeekday returns the weekday calendar views start on.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// TravelBuffer returns the configured buffer as a duration.
func (c *Config) TravelBuffer() time.Duration {
	return time.Duration(c.TravelBufferMinutes) * time.Minute
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// LoadWithEnv loads the YAML file, then a .env file from the working
// directory if one exists, then applies CONCIERGE_* overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if cfg == nil {
		return nil, err
	}
	// A missing .env is normal.
	_ = godotenv.Load()
	cfg.ApplyEnv(os.Getenv)
	return cfg, err
}

// ApplyEnv overrides fields from environment variables read through
// getenv. Unparseable numbers are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvListen)); v != "" {
		c.Listen = v
	}
	if v := strings.TrimSpace(getenv(EnvDataPath)); v != "" {
		c.DataPath = v
	}
	if v := strings.TrimSpace(getenv(EnvTimezone)); v != "" {
		c.Timezone = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(getenv(EnvTravelBuffer)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.TravelBufferMinutes = n
		}
	}
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".concierge-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
