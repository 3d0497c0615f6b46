package html2pdf

import (
	"context"
	"fmt"
)

// Converter renders HTML documents to PDF with one headless Chrome instance.
// Create with NewConverter(), use Convert() for conversion, and Close() when done.
// A Converter serves one conversion at a time; use ConverterPool for concurrency.
type Converter struct {
	cfg      converterConfig
	renderer pdfRenderer
}

// NewConverter creates a Converter with default configuration.
// The browser is not started until the first conversion.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		cfg: converterConfig{
			timeout:    defaultTimeout,
			idleWindow: defaultIdleWindow,
			page:       DefaultPageSettings(),
			launcher:   &LocalLauncher{},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	// Create renderer if not injected (e.g., by tests)
	if c.renderer == nil {
		c.renderer = newRodRenderer(c.cfg.launcher, c.cfg.idleWindow)
	}

	return c
}

// Convert renders input.HTML and returns the PDF bytes.
// The conversion is bounded by the converter timeout as well as ctx; running
// out of time yields ErrRenderTimeout.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (c *Converter) Convert(ctx context.Context, input Input) (pdf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: internal error: %v", ErrPDFGeneration, r)
		}
	}()

	if err := c.validateInput(input); err != nil {
		return nil, err
	}

	page := input.Page
	if page == nil {
		page = c.cfg.page
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.timeout)
	defer cancel()

	pdf, err = c.renderer.Render(ctx, input.HTML, page)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF: %w", err)
	}
	return pdf, nil
}

// Close releases resources (headless Chrome browser).
func (c *Converter) Close() error {
	if c.renderer != nil {
		return c.renderer.Close()
	}
	return nil
}

// validateInput checks that required fields are present and valid.
func (c *Converter) validateInput(input Input) error {
	if input.HTML == "" {
		return ErrEmptyHTML
	}
	return input.Page.Validate()
}
