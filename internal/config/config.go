package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	appLog "bstt/internal/log"
)

const (
	DefaultPath       = "/etc/bstt/config.yaml"
	DefaultEndpoint   = "https://app.bristol.ac.uk/campusm/sso/cal2/Student%20Timetable"
	DefaultWindowDays = 90
	DefaultCacheDir   = "/var/cache/bstt"
	DefaultRefresh    = "*/15 * * * *"
	DefaultTick       = "@every 1m"
	DefaultListen     = "127.0.0.1:8088"

	// PlaceholderCookie is written into a fresh config and rejected on load.
	PlaceholderCookie = "YourCookieHere"
)

var (
	// ErrCreated is returned when Load wrote a template config that the user
	// still has to edit.
	ErrCreated = errors.New("config template created")
	// ErrPlaceholderCookie is returned when the cookie was never filled in.
	ErrPlaceholderCookie = errors.New("config still contains the placeholder cookie")
)

// ICSConfig describes an extra ICS subscription merged into the timetable.
type ICSConfig struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for --serve.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Cookie is the campusm SSO session cookie sent with every request.
	Cookie string `yaml:"cookie" json:"-"`

	// Endpoint is the campusm calendar URL; start/end are appended as query.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// WindowDays is how many days before and after today are fetched.
	WindowDays int `yaml:"window_days" json:"window_days"`

	// Timezone is an IANA zone used as "local". Empty means the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Refresh is the cron spec for refetching in --watch and --serve.
	Refresh string `yaml:"refresh" json:"refresh"`
	// Tick is the cron spec for re-printing the status line in --watch.
	Tick string `yaml:"tick" json:"tick"`

	ICS []ICSConfig `yaml:"ics" json:"ics"`

	Listen    string           `yaml:"listen" json:"listen"`
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"-"`

	// loc caches the resolved Timezone; locZone is the name it was built from.
	loc     *time.Location
	locZone string
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Cookie:     PlaceholderCookie,
		Endpoint:   DefaultEndpoint,
		WindowDays: DefaultWindowDays,
		CacheDir:   DefaultCacheDir,
		LogLevel:   "info",
		Refresh:    DefaultRefresh,
		Tick:       DefaultTick,
		ICS:        []ICSConfig{},
		Listen:     DefaultListen,
	}
}

// Normalize fills in missing/zero values so partially-filled configs behave.
func (c *Config) Normalize() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.WindowDays <= 0 {
		c.WindowDays = DefaultWindowDays
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Refresh == "" {
		c.Refresh = DefaultRefresh
	}
	if c.Tick == "" {
		c.Tick = DefaultTick
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	c.Location()
}

// Location resolves Timezone, falling back to time.Local. The result is
// cached until Timezone changes.
func (c *Config) Location() *time.Location {
	if c.loc != nil && c.locZone == c.Timezone {
		return c.loc
	}
	loc := time.Local
	if c.Timezone != "" {
		l, err := time.LoadLocation(c.Timezone)
		if err != nil {
			appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		} else {
			loc = l
		}
	}
	c.loc, c.locZone = loc, c.Timezone
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a template is written with 0600 perms and
//     ErrCreated is returned alongside it.
//   - If the file exists, it is unmarshalled and normalized. A cookie left at
//     the placeholder value yields ErrPlaceholderCookie.
//
// A cookie is only required when no ICS sources are configured.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			appLog.Warn("config file not found; template created", "path", path)
			return cfg, ErrCreated
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	if cfg.Cookie == PlaceholderCookie && len(cfg.ICS) == 0 {
		return &cfg, ErrPlaceholderCookie
	}

	return &cfg, nil
}

// HasCampus reports whether the campusm source should be fetched.
func (c *Config) HasCampus() bool {
	return c.Cookie != "" && c.Cookie != PlaceholderCookie
}

// Save writes the configuration atomically (temp file + rename, 0600).
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

	tmp, err := os.CreateTemp(dir, ".bstt-config-*.tmp")
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

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
