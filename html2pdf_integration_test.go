//go:build integration

package html2pdf

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func assertValidPDF(t *testing.T, data []byte) {
	t.Helper()

	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("data does not have PDF magic bytes, got prefix: %q", data[:min(10, len(data))])
	}

	if len(data) < 100 {
		t.Errorf("PDF data suspiciously small: %d bytes", len(data))
	}
}

// TestConverter_Convert_Integration renders through a real browser.
// Rod downloads Chromium on first run if none is found.
func TestConverter_Convert_Integration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		page *PageSettings
	}{
		{
			name: "simple document with default page",
			html: "<html><body><h1>Hello</h1><p>World</p></body></html>",
		},
		{
			name: "background colors are printed",
			html: `<html><body style="background:#0af"><p>Colored</p></body></html>`,
		},
		{
			name: "letter landscape",
			html: "<p>Wide</p>",
			page: &PageSettings{Size: PageSizeLetter, Orientation: OrientationLandscape, Margin: 0.5},
		},
		{
			name: "unicode content",
			html: "<p>日本語 Ελληνικά Ünïcödé</p>",
		},
		{
			name: "large document",
			html: "<html><body>" + strings.Repeat("<p>Lorem ipsum dolor sit amet.</p>", 2000) + "</body></html>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv := acquireConverter(t)
			ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
			defer cancel()

			pdf, err := conv.Convert(ctx, Input{HTML: tt.html, Page: tt.page})
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			assertValidPDF(t, pdf)
		})
	}
}

func TestConverter_Convert_IsolatedContexts_Integration(t *testing.T) {
	t.Parallel()

	conv := acquireConverter(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	// Storage written by one render must not be visible to the next.
	first := `<script>localStorage.setItem("k","leak")</script><p>first</p>`
	second := `<p id="out"></p><script>document.getElementById("out").textContent = localStorage.getItem("k") || "clean"</script>`

	for _, html := range []string{first, second} {
		pdf, err := conv.Convert(ctx, Input{HTML: html})
		if err != nil {
			t.Fatalf("Convert() error = %v", err)
		}
		assertValidPDF(t, pdf)
	}
}

func TestConverter_Convert_Timeout_Integration(t *testing.T) {
	t.Parallel()

	conv := NewConverter(WithTimeout(time.Millisecond))
	defer conv.Close()

	// An image that never finishes loading keeps the network busy.
	html := `<img src="http://10.255.255.1/never.png"><p>slow</p>`

	_, err := conv.Convert(context.Background(), Input{HTML: html})
	if !errors.Is(err, ErrRenderTimeout) {
		t.Fatalf("Convert() error = %v, want ErrRenderTimeout", err)
	}

	// The converter recovers and renders again.
	recovered := NewConverter(WithTimeout(testTimeout))
	defer recovered.Close()
	pdf, err := recovered.Convert(context.Background(), Input{HTML: "<p>after timeout</p>"})
	if err != nil {
		t.Fatalf("Convert() after timeout error = %v", err)
	}
	assertValidPDF(t, pdf)
}

func TestConverterPool_Convert_Integration(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	errCh := make(chan error, 6)
	for i := 0; i < cap(errCh); i++ {
		go func() {
			pdf, err := testPool.Convert(ctx, Input{HTML: "<p>concurrent</p>"})
			if err == nil && !bytes.HasPrefix(pdf, []byte("%PDF-")) {
				err = errors.New("missing PDF magic bytes")
			}
			errCh <- err
		}()
	}
	for i := 0; i < cap(errCh); i++ {
		if err := <-errCh; err != nil {
			t.Errorf("Convert() error = %v", err)
		}
	}
}
