package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SessionStoreFile   = "file"
	SessionStoreSQLite = "sqlite"

	AuthProviderBackend = "backend"
	AuthProviderStatic  = "static"
)

// StaticUser is a dev sign-in account. PasswordHash is a bcrypt hash.
type StaticUser struct {
	ID           string `yaml:"id"`
	Email        string `yaml:"email"`
	Name         string `yaml:"name"`
	Role         string `yaml:"role"`
	PasswordHash string `yaml:"password_hash"`
}

// CalendarConfig holds calendar export and sync settings.
type CalendarConfig struct {
	// Schedule is a cron spec for `calendar sync --schedule`.
	Schedule        string        `yaml:"schedule"`
	EventDuration   time.Duration `yaml:"event_duration"`
	TimeZone        string        `yaml:"timezone"`
	GoogleCalendars []string      `yaml:"google_calendars"`
	CalDAVEndpoint  string        `yaml:"caldav_endpoint"`
	CalDAVCalendar  string        `yaml:"caldav_calendar"`
	CalDAVUsername  string        `yaml:"caldav_username"`
	CalDAVPassword  string        `yaml:"caldav_password"`
	GoogleClientID  string        `yaml:"google_client_id"`
	GoogleSecret    string        `yaml:"google_client_secret"`
}

// Config is the client configuration. Environment variables override the
// YAML file.
type Config struct {
	// APIURL is the backend base URL. Empty means the client is unconfigured:
	// list reads return nothing and every other call fails.
	APIURL        string        `yaml:"api_url"`
	Home          string        `yaml:"-"`
	SessionStore  string        `yaml:"session_store"`
	AuthProvider  string        `yaml:"auth_provider"`
	TokenCacheTTL time.Duration `yaml:"token_cache_ttl"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
	NATSURL       string        `yaml:"nats_url"`
	LogLevel      string        `yaml:"log_level"`

	StaticUsers []StaticUser   `yaml:"static_users"`
	Calendar    CalendarConfig `yaml:"calendar"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		SessionStore: SessionStoreFile,
		AuthProvider: AuthProviderBackend,
		LogLevel:     "info",
		Calendar: CalendarConfig{
			Schedule:       "*/15 * * * *",
			EventDuration:  time.Hour,
			TimeZone:       "UTC",
			CalDAVEndpoint: "https://caldav.icloud.com/",
		},
	}
}

// Normalize fills zero values with defaults and cleans up URLs.
func (c *Config) Normalize() {
	d := DefaultConfig()
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	switch c.SessionStore {
	case SessionStoreFile, SessionStoreSQLite:
	default:
		c.SessionStore = d.SessionStore
	}
	switch c.AuthProvider {
	case AuthProviderBackend, AuthProviderStatic:
	default:
		c.AuthProvider = d.AuthProvider
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.TokenCacheTTL < 0 {
		c.TokenCacheTTL = 0
	}
	if c.HTTPTimeout < 0 {
		c.HTTPTimeout = 0
	}
	if c.Calendar.Schedule == "" {
		c.Calendar.Schedule = d.Calendar.Schedule
	}
	if c.Calendar.EventDuration <= 0 {
		c.Calendar.EventDuration = d.Calendar.EventDuration
	}
	if c.Calendar.TimeZone == "" {
		c.Calendar.TimeZone = d.Calendar.TimeZone
	}
	if c.Calendar.CalDAVEndpoint == "" {
		c.Calendar.CalDAVEndpoint = d.Calendar.CalDAVEndpoint
	}
}

// Path joins name onto the state directory.
func (c *Config) Path(name string) string {
	return filepath.Join(c.Home, name)
}

// Load reads the YAML config (if any) and applies the environment on top.
func Load() (*Config, error) {
	home, err := homeDir()
	if err != nil {
		return nil, err
	}
	path := os.Getenv("EVENTEASE_CONFIG")
	if path == "" {
		path = filepath.Join(home, "config.yaml")
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Home = home
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// LoadFile reads a YAML config. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = d
		return nil
	}

	str("EVENTEASE_API_URL", &c.APIURL)
	str("EVENTEASE_SESSION_STORE", &c.SessionStore)
	str("EVENTEASE_AUTH_PROVIDER", &c.AuthProvider)
	str("EVENTEASE_NATS_URL", &c.NATSURL)
	str("LOG_LEVEL", &c.LogLevel)
	str("GOOGLE_CLIENT_ID", &c.Calendar.GoogleClientID)
	str("GOOGLE_CLIENT_SECRET", &c.Calendar.GoogleSecret)
	str("ICLOUD_USERNAME", &c.Calendar.CalDAVUsername)
	str("ICLOUD_APP_SPECIFIC_PASSWORD", &c.Calendar.CalDAVPassword)
	str("ICLOUD_CALENDAR_NAME", &c.Calendar.CalDAVCalendar)
	str("PRIMARY_TIMEZONE", &c.Calendar.TimeZone)
	if v, ok := lookup("GOOGLE_CALENDAR_IDS"); ok && v != "" {
		c.Calendar.GoogleCalendars = splitList(v)
	}
	if err := dur("EVENTEASE_TOKEN_CACHE_TTL", &c.TokenCacheTTL); err != nil {
		return err
	}
	return dur("EVENTEASE_HTTP_TIMEOUT", &c.HTTPTimeout)
}

func homeDir() (string, error) {
	if h := os.Getenv("EVENTEASE_HOME"); h != "" {
		return h, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(userHome, ".eventease"), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
