package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-html2pdf/internal/config"
)

// ErrHelp is returned by parseFlags when --help was requested.
var ErrHelp = errors.New("help requested")

// serverFlags holds command-line flags. Only flags the user actually set are
// applied on top of file and environment configuration.
type serverFlags struct {
	config string

	host          string
	port          int
	publicURL     string
	bodyLimit     string
	storageDir    string
	ttl           time.Duration
	sweepInterval time.Duration

	browserMode    string
	browserBin     string
	noSandbox      bool
	workers        int
	renderTimeout  time.Duration
	acquireTimeout time.Duration

	pageSize    string
	orientation string
	margin      float64

	logLevel  string
	logFormat string
	noMetrics bool

	printConfig bool
	version     bool

	fs *flag.FlagSet
}

// parseFlags parses args (without the program name).
func parseFlags(args []string, stderr io.Writer) (*serverFlags, error) {
	f := &serverFlags{}
	fs := flag.NewFlagSet("html2pdf-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f.fs = fs

	fs.StringVarP(&f.config, "config", "c", "", "YAML config file path")

	fs.StringVar(&f.host, "host", "", "listen host (empty = all interfaces)")
	fs.IntVarP(&f.port, "port", "p", config.DefaultPort, "listen port")
	fs.StringVar(&f.publicURL, "public-url", "", "base URL used in returned PDF links")
	fs.StringVar(&f.bodyLimit, "body-limit", config.DefaultBodyLimit, "maximum request body size")
	fs.StringVar(&f.storageDir, "storage-dir", config.DefaultStorageDir, "directory for generated PDFs")
	fs.DurationVar(&f.ttl, "ttl", config.DefaultTTL, "how long generated PDFs are kept")
	fs.DurationVar(&f.sweepInterval, "sweep-interval", config.DefaultSweepInterval, "interval between stale PDF sweeps")

	fs.StringVar(&f.browserMode, "browser-mode", "local", "browser launcher: local, packaged")
	fs.StringVar(&f.browserBin, "browser-bin", "", "Chromium binary path (required for packaged)")
	fs.BoolVar(&f.noSandbox, "no-sandbox", false, "disable the Chromium sandbox")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent renders (0 = auto)")
	fs.DurationVar(&f.renderTimeout, "render-timeout", config.DefaultRenderTimeout, "maximum time for one render")
	fs.DurationVar(&f.acquireTimeout, "acquire-timeout", config.DefaultAcquireTimeout, "maximum wait for a free worker")

	fs.StringVar(&f.pageSize, "page-size", "", "default page size: letter, a4, legal")
	fs.StringVar(&f.orientation, "orientation", "", "default orientation: portrait, landscape")
	fs.Float64Var(&f.margin, "margin", 0, "default margin in inches (0-3)")

	fs.StringVar(&f.logLevel, "log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", config.DefaultLogFormat, "log format: text, json")
	fs.BoolVar(&f.noMetrics, "no-metrics", false, "disable the /metrics endpoint")

	fs.BoolVar(&f.printConfig, "print-config", false, "print the effective configuration and exit")
	fs.BoolVar(&f.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", ErrUsage, fs.Args())
	}
	return f, nil
}

// changed reports whether the named flag was set on the command line.
func (f *serverFlags) changed(name string) bool {
	return f.fs.Changed(name)
}

// applyFlags overrides cfg with explicitly set flags.
func applyFlags(f *serverFlags, cfg *config.Config) {
	if f.changed("host") {
		cfg.Server.Host = f.host
	}
	if f.changed("port") {
		cfg.Server.Port = f.port
	}
	if f.changed("public-url") {
		cfg.Server.PublicBaseURL = f.publicURL
	}
	if f.changed("body-limit") {
		cfg.Server.BodyLimit = f.bodyLimit
	}
	if f.changed("storage-dir") {
		cfg.Storage.Dir = f.storageDir
	}
	if f.changed("ttl") {
		cfg.Storage.TTL = f.ttl
	}
	if f.changed("sweep-interval") {
		cfg.Storage.SweepInterval = f.sweepInterval
	}
	if f.changed("browser-mode") {
		cfg.Browser.Mode = f.browserMode
	}
	if f.changed("browser-bin") {
		cfg.Browser.Bin = f.browserBin
	}
	if f.changed("no-sandbox") {
		cfg.Browser.NoSandbox = f.noSandbox
	}
	if f.changed("workers") {
		cfg.Browser.Workers = f.workers
	}
	if f.changed("render-timeout") {
		cfg.Browser.RenderTimeout = f.renderTimeout
	}
	if f.changed("acquire-timeout") {
		cfg.Browser.AcquireTimeout = f.acquireTimeout
	}
	if f.changed("page-size") {
		cfg.Page.Size = f.pageSize
	}
	if f.changed("orientation") {
		cfg.Page.Orientation = f.orientation
	}
	if f.changed("margin") {
		cfg.Page.Margin = f.margin
	}
	if f.changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if f.changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if f.changed("no-metrics") {
		cfg.Metrics.Enabled = !f.noMetrics
	}
}
