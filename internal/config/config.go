// ABOUTME: Configuration loading and parsing for botfy-dashboard
// ABOUTME: Supports YAML files with environment variable expansion, defaults and duration parsing

package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete botfy-dashboard configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Database  DatabaseConfig  `yaml:"database"`
	Backend   BackendConfig   `yaml:"backend"`
	Session   SessionConfig   `yaml:"session"`
	WebAdmin  WebAdminConfig  `yaml:"webadmin"`
	Widget    WidgetConfig    `yaml:"widget"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the HTTP listen address
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TailscaleConfig holds Tailscale tsnet configuration
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
	HTTPS     bool   `yaml:"https"`  // serve on :443 with tailnet certs
	Funnel    bool   `yaml:"funnel"` // public Funnel (implies HTTPS)
}

// DatabaseConfig holds the local session database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// Driver selects the SQLite driver: "sqlite" (pure Go, default) or "sqlite3" (cgo)
	Driver string `yaml:"driver"`
}

// BackendConfig describes the REST backend the dashboard fronts
type BackendConfig struct {
	URL string `yaml:"url"`
	// JWTSecret, when set, makes the dashboard verify backend tokens (HS256)
	// instead of only decoding their claims.
	JWTSecret string `yaml:"jwt_secret"`

	Timeout       time.Duration `yaml:"-"`
	UploadTimeout time.Duration `yaml:"-"`

	TimeoutRaw       string `yaml:"timeout"`
	UploadTimeoutRaw string `yaml:"upload_timeout"`
}

// SessionConfig controls dashboard sessions
type SessionConfig struct {
	// Secret is a base64 key used to seal bearer tokens at rest
	Secret string `yaml:"secret"`

	MaxAge          time.Duration `yaml:"-"`
	CleanupInterval time.Duration `yaml:"-"`

	MaxAgeRaw          string `yaml:"max_age"`
	CleanupIntervalRaw string `yaml:"cleanup_interval"`
}

// WebAdminConfig holds dashboard UI configuration
type WebAdminConfig struct {
	// BaseURL is the external URL of the dashboard (used for billing
	// return URLs and as the API origin fallback)
	BaseURL       string `yaml:"base_url"`
	DefaultLocale string `yaml:"default_locale"`
	// WidgetAPIURL is the data-api-url written into generated widget snippets
	WidgetAPIURL string `yaml:"widget_api_url"`

	NonceTTL    time.Duration `yaml:"-"`
	NonceTTLRaw string        `yaml:"nonce_ttl"`
}

// WidgetConfig controls the public widget endpoints served by the dashboard
type WidgetConfig struct {
	// Proxy enables /api/widget/* forwarding to the backend
	Proxy          bool     `yaml:"proxy"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	ConfigCacheTTL time.Duration `yaml:"-"`
	ChatCooldown   time.Duration `yaml:"-"`

	ConfigCacheTTLRaw string `yaml:"config_cache_ttl"`
	ChatCooldownRaw   string `yaml:"chat_cooldown"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default values applied when a field is left empty
const (
	DefaultHTTPAddr        = "localhost:3000"
	DefaultDriver          = "sqlite"
	DefaultBackendTimeout  = 15 * time.Second
	DefaultUploadTimeout   = 60 * time.Second
	DefaultSessionMaxAge   = 7 * 24 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute
	DefaultNonceTTL        = 10 * time.Minute
	DefaultConfigCacheTTL  = 5 * time.Minute
	DefaultChatCooldown    = time.Second
	DefaultLocale          = "pt"
)

var supportedLocales = map[string]bool{"pt": true, "en": true, "es": true}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from raw YAML bytes.
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" && !c.Tailscale.Enabled {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = DefaultBackendTimeout
	}
	if c.Backend.UploadTimeout == 0 {
		c.Backend.UploadTimeout = DefaultUploadTimeout
	}
	if c.Session.MaxAge == 0 {
		c.Session.MaxAge = DefaultSessionMaxAge
	}
	if c.Session.CleanupInterval == 0 {
		c.Session.CleanupInterval = DefaultCleanupInterval
	}
	if c.WebAdmin.DefaultLocale == "" {
		c.WebAdmin.DefaultLocale = DefaultLocale
	}
	if c.WebAdmin.NonceTTL == 0 {
		c.WebAdmin.NonceTTL = DefaultNonceTTL
	}
	if c.Widget.ConfigCacheTTL == 0 {
		c.Widget.ConfigCacheTTL = DefaultConfigCacheTTL
	}
	if c.Widget.ChatCooldown == 0 {
		c.Widget.ChatCooldown = DefaultChatCooldown
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "sqlite3" {
		return fmt.Errorf("database.driver must be sqlite or sqlite3, got %q", c.Database.Driver)
	}

	if c.Backend.URL != "" {
		u, err := url.Parse(c.Backend.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("backend.url must be an absolute URL, got %q", c.Backend.URL)
		}
		if self, err := url.Parse(c.WebAdmin.BaseURL); err == nil && self.Host != "" && strings.EqualFold(self.Host, u.Host) {
			return fmt.Errorf("backend.url %q points at the dashboard itself (webadmin.base_url)", c.Backend.URL)
		}
	}

	if c.Session.Secret == "" {
		return fmt.Errorf("session.secret is required (generate one with: botfy-dashboard init)")
	}
	if _, err := c.SessionKey(); err != nil {
		return err
	}

	if !supportedLocales[c.WebAdmin.DefaultLocale] {
		return fmt.Errorf("webadmin.default_locale must be one of pt, en, es, got %q", c.WebAdmin.DefaultLocale)
	}

	return nil
}

// SessionKey decodes session.secret. At least 32 bytes of key material are required.
func (c *Config) SessionKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.Session.Secret))
	if err != nil {
		return nil, fmt.Errorf("session.secret must be base64: %w", err)
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("session.secret must decode to at least 32 bytes, got %d", len(key))
	}
	return key, nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"backend.timeout", cfg.Backend.TimeoutRaw, &cfg.Backend.Timeout},
		{"backend.upload_timeout", cfg.Backend.UploadTimeoutRaw, &cfg.Backend.UploadTimeout},
		{"session.max_age", cfg.Session.MaxAgeRaw, &cfg.Session.MaxAge},
		{"session.cleanup_interval", cfg.Session.CleanupIntervalRaw, &cfg.Session.CleanupInterval},
		{"webadmin.nonce_ttl", cfg.WebAdmin.NonceTTLRaw, &cfg.WebAdmin.NonceTTL},
		{"widget.config_cache_ttl", cfg.Widget.ConfigCacheTTLRaw, &cfg.Widget.ConfigCacheTTL},
		{"widget.chat_cooldown", cfg.Widget.ChatCooldownRaw, &cfg.Widget.ChatCooldown},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", f.name)
		}
		*f.dst = d
	}

	return nil
}
