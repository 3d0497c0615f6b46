package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-html2pdf/internal/config"
)

// envPrefix marks the server's own environment variables.
const envPrefix = "HTML2PDF_"

// envConfig holds configuration from environment variables.
// Empty strings and zero values mean "not set".
type envConfig struct {
	// Deployment conventions
	Port        int    // PORT
	BearerToken string // BEARER_TOKEN

	// Server
	ConfigPath string // HTML2PDF_CONFIG
	Host       string // HTML2PDF_HOST
	PublicURL  string // HTML2PDF_PUBLIC_URL

	// Storage
	StorageDir    string        // HTML2PDF_STORAGE_DIR
	TTL           time.Duration // HTML2PDF_TTL
	SweepInterval time.Duration // HTML2PDF_SWEEP_INTERVAL

	// Browser
	BrowserMode   string        // HTML2PDF_BROWSER_MODE
	BrowserBin    string        // HTML2PDF_BROWSER_BIN
	Workers       int           // HTML2PDF_WORKERS
	RenderTimeout time.Duration // HTML2PDF_RENDER_TIMEOUT

	// Logging
	LogLevel  string // HTML2PDF_LOG_LEVEL
	LogFormat string // HTML2PDF_LOG_FORMAT
}

// knownEnvVars lists valid HTML2PDF_* environment variables.
// Used to detect typos and warn about unknown variables.
var knownEnvVars = map[string]bool{
	"HTML2PDF_CONFIG":         true,
	"HTML2PDF_HOST":           true,
	"HTML2PDF_PUBLIC_URL":     true,
	"HTML2PDF_STORAGE_DIR":    true,
	"HTML2PDF_TTL":            true,
	"HTML2PDF_SWEEP_INTERVAL": true,
	"HTML2PDF_BROWSER_MODE":   true,
	"HTML2PDF_BROWSER_BIN":    true,
	"HTML2PDF_WORKERS":        true,
	"HTML2PDF_RENDER_TIMEOUT": true,
	"HTML2PDF_LOG_LEVEL":      true,
	"HTML2PDF_LOG_FORMAT":     true,
}

// loadEnvConfig reads configuration from the environment. Malformed numbers
// and durations are reported to w and otherwise ignored.
func loadEnvConfig(w io.Writer) *envConfig {
	cfg := &envConfig{
		BearerToken: os.Getenv("BEARER_TOKEN"),
		ConfigPath:  os.Getenv("HTML2PDF_CONFIG"),
		Host:        os.Getenv("HTML2PDF_HOST"),
		PublicURL:   os.Getenv("HTML2PDF_PUBLIC_URL"),
		StorageDir:  os.Getenv("HTML2PDF_STORAGE_DIR"),
		BrowserMode: os.Getenv("HTML2PDF_BROWSER_MODE"),
		BrowserBin:  os.Getenv("HTML2PDF_BROWSER_BIN"),
		LogLevel:    os.Getenv("HTML2PDF_LOG_LEVEL"),
		LogFormat:   os.Getenv("HTML2PDF_LOG_FORMAT"),
	}

	cfg.Port = envInt(w, "PORT")
	cfg.Workers = envInt(w, "HTML2PDF_WORKERS")
	cfg.TTL = envDuration(w, "HTML2PDF_TTL")
	cfg.SweepInterval = envDuration(w, "HTML2PDF_SWEEP_INTERVAL")
	cfg.RenderTimeout = envDuration(w, "HTML2PDF_RENDER_TIMEOUT")

	return cfg
}

func envInt(w io.Writer, name string) int {
	raw := os.Getenv(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		fmt.Fprintf(w, "warning: ignoring %s=%q (want a positive integer)\n", name, raw)
		return 0
	}
	return n
}

func envDuration(w io.Writer, name string) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		fmt.Fprintf(w, "warning: ignoring %s=%q (want a positive duration like 90s)\n", name, raw)
		return 0
	}
	return d
}

// warnUnknownEnvVars logs warnings for unrecognized HTML2PDF_* variables.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig overrides cfg with every variable that is set.
// Precedence: CLI flags > env vars > config file > defaults
// (CLI flags are applied later via applyFlags)
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Port != 0 {
		cfg.Server.Port = env.Port
	}
	if env.BearerToken != "" {
		cfg.Auth.BearerToken = env.BearerToken
	}
	if env.Host != "" {
		cfg.Server.Host = env.Host
	}
	if env.PublicURL != "" {
		cfg.Server.PublicBaseURL = env.PublicURL
	}
	if env.StorageDir != "" {
		cfg.Storage.Dir = env.StorageDir
	}
	if env.TTL != 0 {
		cfg.Storage.TTL = env.TTL
	}
	if env.SweepInterval != 0 {
		cfg.Storage.SweepInterval = env.SweepInterval
	}
	if env.BrowserMode != "" {
		cfg.Browser.Mode = env.BrowserMode
	}
	if env.BrowserBin != "" {
		cfg.Browser.Bin = env.BrowserBin
	}
	if env.Workers != 0 {
		cfg.Browser.Workers = env.Workers
	}
	if env.RenderTimeout != 0 {
		cfg.Browser.RenderTimeout = env.RenderTimeout
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
}
