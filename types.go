package html2pdf

import (
	"fmt"
	"strings"
	"time"
)

// Page size constants.
const (
	PageSizeLetter = "letter"
	PageSizeA4     = "a4"
	PageSizeLegal  = "legal"
)

// Orientation constants.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Margin bounds in inches.
const (
	MinMargin = 0.0
	MaxMargin = 3.0

	// DefaultMargin is 20 CSS pixels (96 px per inch).
	DefaultMargin = 20.0 / 96.0
)

// pageDimensions holds portrait width and height in inches per page size.
var pageDimensions = map[string]struct{ width, height float64 }{
	PageSizeLetter: {8.5, 11.0},
	PageSizeA4:     {8.27, 11.69},
	PageSizeLegal:  {8.5, 14.0},
}

// PageSettings configures PDF page dimensions.
type PageSettings struct {
	Size        string  `json:"size" yaml:"size"`               // "letter", "a4", "legal"
	Orientation string  `json:"orientation" yaml:"orientation"` // "portrait", "landscape"
	Margin      float64 `json:"margin" yaml:"margin"`           // inches, applied to all sides
}

// DefaultPageSettings returns legal portrait pages with 20px margins.
func DefaultPageSettings() *PageSettings {
	return &PageSettings{
		Size:        PageSizeLegal,
		Orientation: OrientationPortrait,
		Margin:      DefaultMargin,
	}
}

// Validate checks that page settings are valid.
// Returns nil if p is nil (nil means use defaults).
// Does not mutate - uses case-insensitive comparison.
func (p *PageSettings) Validate() error {
	if p == nil {
		return nil
	}

	if !isValidPageSize(p.Size) {
		return fmt.Errorf("%w: %q", ErrInvalidPageSize, p.Size)
	}

	if !isValidOrientation(p.Orientation) {
		return fmt.Errorf("%w: %q", ErrInvalidOrientation, p.Orientation)
	}

	if p.Margin < MinMargin || p.Margin > MaxMargin {
		return fmt.Errorf("%w: %.2f (must be between %.2f and %.2f)", ErrInvalidMargin, p.Margin, MinMargin, MaxMargin)
	}

	return nil
}

// isValidPageSize checks if size is a known page size (case-insensitive).
func isValidPageSize(size string) bool {
	_, ok := pageDimensions[strings.ToLower(size)]
	return ok
}

// isValidOrientation checks if orientation is valid (case-insensitive).
func isValidOrientation(orientation string) bool {
	switch strings.ToLower(orientation) {
	case OrientationPortrait, OrientationLandscape:
		return true
	}
	return false
}

// resolvePageDimensions returns paper width, height and margin in inches.
// A nil page falls back to DefaultPageSettings.
func resolvePageDimensions(page *PageSettings) (width, height, margin float64) {
	if page == nil {
		page = DefaultPageSettings()
	}

	dims, ok := pageDimensions[strings.ToLower(page.Size)]
	if !ok {
		dims = pageDimensions[PageSizeLegal]
	}

	width, height = dims.width, dims.height
	if strings.EqualFold(page.Orientation, OrientationLandscape) {
		width, height = height, width
	}

	return width, height, page.Margin
}

// Input contains conversion parameters.
type Input struct {
	HTML string        // HTML document (required)
	Page *PageSettings // Page settings (optional, nil = converter defaults)
}

// Option configures a Converter.
type Option func(*Converter)

// converterConfig holds internal configuration for Converter.
type converterConfig struct {
	timeout    time.Duration
	idleWindow time.Duration
	page       *PageSettings
	launcher   BrowserLauncher
}

// Defaults used when no option overrides them.
const (
	defaultTimeout    = 60 * time.Second
	defaultIdleWindow = 500 * time.Millisecond
)

// WithTimeout bounds a single conversion, from page creation to the last PDF byte.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("html2pdf: WithTimeout duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.timeout = d
	}
}

// WithIdleWindow sets how long the page must stay without in-flight network
// requests before it is considered loaded.
// Panics if d <= 0.
func WithIdleWindow(d time.Duration) Option {
	if d <= 0 {
		panic("html2pdf: WithIdleWindow duration must be positive")
	}
	return func(c *Converter) {
		c.cfg.idleWindow = d
	}
}

// WithPageSettings sets the page settings used when Input.Page is nil.
func WithPageSettings(p *PageSettings) Option {
	return func(c *Converter) {
		if p != nil {
			c.cfg.page = p
		}
	}
}

// WithLauncher selects how the browser process is obtained.
func WithLauncher(l BrowserLauncher) Option {
	return func(c *Converter) {
		if l != nil {
			c.cfg.launcher = l
		}
	}
}
