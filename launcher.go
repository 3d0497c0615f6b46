package html2pdf

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
)

// Launcher modes accepted by NewLauncher.
const (
	LauncherLocal    = "local"
	LauncherPackaged = "packaged"
)

// BrowserLauncher starts a headless Chrome process.
// It returns the rod launcher (kept for process control) and the DevTools control URL.
// Launch must give up when ctx is done; this includes a first-run browser download.
type BrowserLauncher interface {
	Launch(ctx context.Context) (*launcher.Launcher, string, error)
	Name() string
}

// Compile-time interface checks
var (
	_ BrowserLauncher = (*LocalLauncher)(nil)
	_ BrowserLauncher = (*PackagedLauncher)(nil)
)

// NewLauncher returns the launcher variant for mode.
// An empty mode selects the local launcher.
func NewLauncher(mode, bin string, noSandbox bool) (BrowserLauncher, error) {
	switch strings.ToLower(mode) {
	case "", LauncherLocal:
		return &LocalLauncher{Bin: bin, NoSandbox: noSandbox}, nil
	case LauncherPackaged:
		if bin == "" {
			return nil, fmt.Errorf("%w: %s launcher", ErrMissingBinary, LauncherPackaged)
		}
		return &PackagedLauncher{Bin: bin}, nil
	default:
		return nil, fmt.Errorf("%w: %q (must be %s or %s)", ErrUnknownLauncher, mode, LauncherLocal, LauncherPackaged)
	}
}

// LocalLauncher starts a locally installed Chrome, or the Chromium build rod
// downloads to ~/.cache/rod/browser when none is configured.
type LocalLauncher struct {
	Bin       string // Empty = ROD_BROWSER_BIN, then rod's managed browser
	NoSandbox bool
}

// Name returns the launcher mode.
func (l *LocalLauncher) Name() string { return LauncherLocal }

// Launch starts the browser.
func (l *LocalLauncher) Launch(ctx context.Context) (*launcher.Launcher, string, error) {
	return launch(ctx, l.configure())
}

func (l *LocalLauncher) configure() *launcher.Launcher {
	lch := launcher.New()

	bin := l.Bin
	if bin == "" {
		bin = os.Getenv("ROD_BROWSER_BIN")
	}
	if bin != "" {
		lch = lch.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if l.NoSandbox || os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" {
		lch = lch.NoSandbox(true)
	}
	return lch
}

// packagedArgs are the switches serverless Chromium builds expect.
var packagedArgs = []flags.Flag{
	"allow-pre-commit-input",
	"disable-background-networking",
	"disable-dev-shm-usage",
	"disable-gpu",
	"disable-setuid-sandbox",
	"disable-web-security",
	"hide-scrollbars",
	"ignore-certificate-errors",
	"mute-audio",
	"no-first-run",
	"no-zygote",
	"single-process",
}

// PackagedLauncher starts a Chromium binary shipped with the deployment
// (serverless layers, slim containers). Auto-download is never attempted.
type PackagedLauncher struct {
	Bin string
}

// Name returns the launcher mode.
func (l *PackagedLauncher) Name() string { return LauncherPackaged }

// Launch starts the browser.
func (l *PackagedLauncher) Launch(ctx context.Context) (*launcher.Launcher, string, error) {
	if l.Bin == "" {
		return nil, "", ErrMissingBinary
	}
	return launch(ctx, l.configure())
}

func (l *PackagedLauncher) configure() *launcher.Launcher {
	// Leakless extracts a helper binary at runtime, which read-only
	// serverless filesystems reject.
	lch := launcher.New().
		Bin(l.Bin).
		Headless(true).
		NoSandbox(true).
		Leakless(false)

	for _, f := range packagedArgs {
		lch = lch.Set(f)
	}
	return lch
}

// launch binds lch to ctx only for the start-up: rod cancels the launcher
// context when Launch returns and the browser process outlives it.
func launch(ctx context.Context, lch *launcher.Launcher) (*launcher.Launcher, string, error) {
	u, err := lch.Context(ctx).Launch()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return lch, u, nil
}
