package html2pdf

import "errors"

// Sentinel errors for library operations.
var (
	ErrEmptyHTML      = errors.New("HTML content cannot be empty")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrBrowserContext = errors.New("failed to create browser context")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrRenderTimeout  = errors.New("PDF rendering timed out")

	// Launcher selection errors.
	ErrUnknownLauncher = errors.New("unknown browser launcher")
	ErrMissingBinary   = errors.New("browser binary path is required")

	// Pool errors.
	ErrPoolBusy   = errors.New("no converter available")
	ErrPoolClosed = errors.New("converter pool is closed")

	// Page settings validation errors.
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidMargin      = errors.New("invalid margin")
)
