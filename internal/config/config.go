// Package config defines the server configuration and loads it from YAML.
//
// A Config is built once at startup from defaults, an optional YAML file,
// environment variables and flags, then validated and passed down. Nothing
// re-reads configuration after that.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/labstack/gommon/bytes"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/fileutil"
	"github.com/alnah/go-html2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrMissingToken   = errors.New("auth.bearerToken is required")
	ErrInvalidValue   = errors.New("invalid config value")
	ErrFieldTooLong   = errors.New("field exceeds maximum length")
)

// Field length limits.
const (
	MaxURLLength   = 2048
	MaxTokenLength = 4096
	MaxPathLength  = 4096
)

// Default values.
const (
	DefaultHost            = ""
	DefaultPort            = 3000
	DefaultBodyLimit       = "10M"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultStorageDir      = "pdfs"
	DefaultTTL             = 12 * time.Hour
	DefaultSweepInterval   = time.Hour
	DefaultRenderTimeout   = 60 * time.Second
	DefaultAcquireTimeout  = html2pdf.DefaultAcquireTimeout
	DefaultIdleWindow      = 500 * time.Millisecond
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Config holds all server configuration.
type Config struct {
	Server  ServerConfig          `yaml:"server"`
	Auth    AuthConfig            `yaml:"auth"`
	Storage StorageConfig         `yaml:"storage"`
	Browser BrowserConfig         `yaml:"browser"`
	Page    html2pdf.PageSettings `yaml:"page"`
	Log     LogConfig             `yaml:"log"`
	Metrics MetricsConfig         `yaml:"metrics"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	PublicBaseURL   string        `yaml:"publicBaseURL"` // Empty = derive from request scheme and Host
	BodyLimit       string        `yaml:"bodyLimit"`     // e.g. "10M", "512K"
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// AuthConfig holds the shared secret.
type AuthConfig struct {
	BearerToken string `yaml:"bearerToken"`
}

// StorageConfig defines where artifacts live and for how long.
type StorageConfig struct {
	Dir           string        `yaml:"dir"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

// BrowserConfig defines how Chromium is launched and shared.
type BrowserConfig struct {
	Mode           string        `yaml:"mode"` // "local" or "packaged"
	Bin            string        `yaml:"bin"`  // Required in packaged mode
	NoSandbox      bool          `yaml:"noSandbox"`
	Workers        int           `yaml:"workers"` // 0 = auto
	RenderTimeout  time.Duration `yaml:"renderTimeout"`
	AcquireTimeout time.Duration `yaml:"acquireTimeout"`
	IdleWindow     time.Duration `yaml:"idleWindow"`
}

// LogConfig defines log output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
// The bearer token is intentionally empty and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			BodyLimit:       DefaultBodyLimit,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageConfig{
			Dir:           DefaultStorageDir,
			TTL:           DefaultTTL,
			SweepInterval: DefaultSweepInterval,
		},
		Browser: BrowserConfig{
			Mode:           html2pdf.LauncherLocal,
			RenderTimeout:  DefaultRenderTimeout,
			AcquireTimeout: DefaultAcquireTimeout,
			IdleWindow:     DefaultIdleWindow,
		},
		Page:    *html2pdf.DefaultPageSettings(),
		Log:     LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Keys absent from the file
// keep their defaults; unknown keys are an error. The result is not validated
// because environment and flags may still fill in required fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- config path is operator-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return cfg, nil
}

// Validate checks the assembled configuration. It fails closed when no bearer
// token is configured.
func (c *Config) Validate() error {
	if c.Auth.BearerToken == "" {
		return ErrMissingToken
	}
	if err := validateFieldLength("auth.bearerToken", c.Auth.BearerToken, MaxTokenLength); err != nil {
		return err
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.PublicBaseURL != "" {
		if err := validateFieldLength("server.publicBaseURL", c.Server.PublicBaseURL, MaxURLLength); err != nil {
			return err
		}
		if !fileutil.IsURL(c.Server.PublicBaseURL) {
			return invalid("server.publicBaseURL", "must start with http:// or https://, got %q", c.Server.PublicBaseURL)
		}
	}
	if _, err := bytes.Parse(c.Server.BodyLimit); err != nil {
		return invalid("server.bodyLimit", "%q is not a size like 10M", c.Server.BodyLimit)
	}
	if err := positive(map[string]time.Duration{
		"server.readTimeout":     c.Server.ReadTimeout,
		"server.writeTimeout":    c.Server.WriteTimeout,
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
		"storage.ttl":            c.Storage.TTL,
		"storage.sweepInterval":  c.Storage.SweepInterval,
		"browser.renderTimeout":  c.Browser.RenderTimeout,
		"browser.acquireTimeout": c.Browser.AcquireTimeout,
		"browser.idleWindow":     c.Browser.IdleWindow,
	}); err != nil {
		return err
	}

	if c.Storage.Dir == "" {
		return invalid("storage.dir", "cannot be empty")
	}
	if err := validateFieldLength("storage.dir", c.Storage.Dir, MaxPathLength); err != nil {
		return err
	}

	switch c.Browser.Mode {
	case html2pdf.LauncherLocal:
	case html2pdf.LauncherPackaged:
		if c.Browser.Bin == "" {
			return invalid("browser.bin", "required when browser.mode is %q", html2pdf.LauncherPackaged)
		}
	default:
		return invalid("browser.mode", "must be %q or %q, got %q", html2pdf.LauncherLocal, html2pdf.LauncherPackaged, c.Browser.Mode)
	}
	if c.Browser.Workers < 0 {
		return invalid("browser.workers", "cannot be negative, got %d", c.Browser.Workers)
	}

	if err := c.Page.Validate(); err != nil {
		return fmt.Errorf("page: %w", err)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level", "must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return invalid("log.format", "must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// BodyLimitBytes returns the parsed request body limit.
func (c *Config) BodyLimitBytes() int64 {
	n, _ := bytes.Parse(c.Server.BodyLimit)
	return n
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Redacted returns a copy safe to print, with the bearer token masked.
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.Auth.BearerToken != "" {
		cp.Auth.BearerToken = "********"
	}
	return &cp
}

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidValue, field, fmt.Sprintf(format, args...))
}

// positive checks durations in a fixed order so errors are reproducible.
func positive(fields map[string]time.Duration) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if fields[name] <= 0 {
			return invalid(name, "must be positive, got %s", fields[name])
		}
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}
