// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-html2pdf/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for browser connection errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != "" ||
		os.Getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}

	if os.Getenv("ROD_BROWSER_BIN") == "" && os.Getenv("HTML2PDF_BROWSER_BIN") == "" {
		hints = append(hints, "set HTML2PDF_BROWSER_BIN to use custom Chrome")
	}

	return formatHints(hints)
}

// ForRenderTimeout returns a hint about raising the render timeout.
func ForRenderTimeout() string {
	return format("for heavy pages, raise --render-timeout or browser.renderTimeout")
}

// ForPoolBusy returns a hint about the worker pool being saturated.
func ForPoolBusy() string {
	return format("raise --workers or browser.acquireTimeout")
}

// ForMissingToken returns a hint for a server started without a shared secret.
func ForMissingToken() string {
	return format("set BEARER_TOKEN or auth.bearerToken in the config file")
}

// ForPackagedBinary returns a hint for packaged mode without a browser path.
func ForPackagedBinary() string {
	return format("packaged mode needs --browser-bin or HTML2PDF_BROWSER_BIN")
}

// ForConfigNotFound returns hints for config file not found errors.
func ForConfigNotFound(path string) string {
	if path == "" {
		return format("use --config /path/to/file.yaml")
	}
	return format("check that " + path + " exists or unset HTML2PDF_CONFIG")
}

// ForStorageDir returns hints for artifact directory creation errors.
func ForStorageDir() string {
	return format("check parent directory exists and is writable, or set HTML2PDF_STORAGE_DIR")
}

// Plain strips the leading "hint:" decoration so a hint can be used as a
// structured log value.
func Plain(hint string) string {
	return strings.TrimPrefix(hint, "\n  hint: ")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
