// Command html2pdf-server exposes HTML to PDF conversion over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/artifact"
	"github.com/alnah/go-html2pdf/internal/config"
	"github.com/alnah/go-html2pdf/internal/hints"
	"github.com/alnah/go-html2pdf/internal/yamlutil"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	os.Exit(run(os.Args, DefaultEnv()))
}

// run executes the server and returns the process exit code.
func run(args []string, env *Environment) int {
	flags, err := parseFlags(args[1:], env.Stderr)
	if err != nil {
		if errors.Is(err, ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}

	if flags.version {
		fmt.Fprintf(env.Stdout, "html2pdf-server %s\n", Version)
		return ExitSuccess
	}

	cfg, err := resolveConfig(flags, env)
	if err != nil {
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}

	if flags.printConfig {
		out, err := yamlutil.Marshal(cfg.Redacted())
		if err != nil {
			fmt.Fprintln(env.Stderr, err)
			return ExitGeneral
		}
		_, _ = env.Stdout.Write(out)
		return ExitSuccess
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(env.Stderr, withHint(err, cfg))
		return exitCodeFor(err)
	}

	logger := newLogger(env.Stderr, cfg.Log.Level, cfg.Log.Format)

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))

	ctx, stop := notifyContext(context.Background())
	defer stop()

	ln, err := listen(cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return exitCodeFor(err)
	}

	if err := serve(ctx, ln, cfg, logger); err != nil {
		logger.Error("server failed", "error", withHint(err, cfg))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// resolveConfig layers defaults, the YAML file, environment and flags.
// Precedence: CLI flags > env vars > config file > defaults
func resolveConfig(flags *serverFlags, env *Environment) (*config.Config, error) {
	warnUnknownEnvVars(env.Stderr)
	envCfg := loadEnvConfig(env.Stderr)

	path := envCfg.ConfigPath
	if flags.changed("config") {
		path = flags.config
	}

	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return nil, fmt.Errorf("%w%s", err, hints.ForConfigNotFound(path))
			}
			return nil, err
		}
		cfg = loaded
	}

	applyEnvConfig(envCfg, cfg)
	applyFlags(flags, cfg)
	return cfg, nil
}

// withHint appends an actionable hint for errors an operator can fix.
func withHint(err error, cfg *config.Config) error {
	var hint string
	switch {
	case errors.Is(err, config.ErrMissingToken):
		hint = hints.ForMissingToken()
	case errors.Is(err, artifact.ErrStoreDir):
		hint = hints.ForStorageDir()
	case errors.Is(err, html2pdf.ErrMissingBinary),
		errors.Is(err, config.ErrInvalidValue) && cfg.Browser.Mode == html2pdf.LauncherPackaged && cfg.Browser.Bin == "":
		hint = hints.ForPackagedBinary()
	case errors.Is(err, html2pdf.ErrBrowserConnect):
		hint = hints.ForBrowserConnect()
	}
	if hint == "" {
		return err
	}
	return fmt.Errorf("%w%s", err, hint)
}
