package html2pdf

// Notes:
// - Converter is tested with mockRenderer: no browser is started.
// - Timeout behavior: the converter must hand the renderer a context with a
//   deadline no later than the configured timeout.

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockRenderer implements pdfRenderer for testing.
type mockRenderer struct {
	mu          sync.Mutex
	result      []byte
	err         error
	panicWith   any
	block       bool // wait for ctx to expire, then report a timeout
	calls       int
	closed      int
	gotHTML     string
	gotPage     *PageSettings
	gotDeadline time.Time
}

func (m *mockRenderer) Render(ctx context.Context, htmlContent string, page *PageSettings) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	m.gotHTML = htmlContent
	m.gotPage = page
	m.gotDeadline, _ = ctx.Deadline()
	m.mu.Unlock()

	if m.panicWith != nil {
		panic(m.panicWith)
	}
	if m.block {
		<-ctx.Done()
		return nil, classify(ctx, ErrPageLoad, ctx.Err())
	}
	return m.result, m.err
}

func (m *mockRenderer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *mockRenderer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// withRenderer injects a renderer, bypassing go-rod.
func withRenderer(r pdfRenderer) Option {
	return func(c *Converter) {
		c.renderer = r
	}
}

// ---------------------------------------------------------------------------
// TestConverter_Convert - Conversion Flow
// ---------------------------------------------------------------------------

func TestConverter_Convert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     Input
		mock      *mockRenderer
		wantErr   error
		wantCalls int
	}{
		{
			name:      "successful render returns PDF bytes",
			input:     Input{HTML: "<h1>Hi</h1>"},
			mock:      &mockRenderer{result: []byte("%PDF-1.7 fake")},
			wantCalls: 1,
		},
		{
			name:      "empty HTML rejected before rendering",
			input:     Input{HTML: ""},
			mock:      &mockRenderer{},
			wantErr:   ErrEmptyHTML,
			wantCalls: 0,
		},
		{
			name:      "invalid page rejected before rendering",
			input:     Input{HTML: "<p>x</p>", Page: &PageSettings{Size: "huge", Orientation: "portrait"}},
			mock:      &mockRenderer{},
			wantErr:   ErrInvalidPageSize,
			wantCalls: 0,
		},
		{
			name:      "renderer error propagates",
			input:     Input{HTML: "<p>x</p>"},
			mock:      &mockRenderer{err: ErrPDFGeneration},
			wantErr:   ErrPDFGeneration,
			wantCalls: 1,
		},
		{
			name:      "panic is recovered as generation failure",
			input:     Input{HTML: "<p>x</p>"},
			mock:      &mockRenderer{panicWith: "boom"},
			wantErr:   ErrPDFGeneration,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv := NewConverter(withRenderer(tt.mock))

			pdf, err := conv.Convert(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Convert() error = %v, want %v", err, tt.wantErr)
				}
				if pdf != nil {
					t.Error("expected nil PDF on error")
				}
			} else {
				if err != nil {
					t.Fatalf("Convert() unexpected error: %v", err)
				}
				if string(pdf) != string(tt.mock.result) {
					t.Errorf("Convert() = %q, want %q", pdf, tt.mock.result)
				}
			}

			if got := tt.mock.callCount(); got != tt.wantCalls {
				t.Errorf("renderer called %d times, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestConverter_Convert_PageSelection(t *testing.T) {
	t.Parallel()

	defaults := &PageSettings{Size: PageSizeA4, Orientation: OrientationPortrait, Margin: 0.5}

	t.Run("nil input page uses converter default", func(t *testing.T) {
		t.Parallel()

		mock := &mockRenderer{result: []byte("%PDF")}
		conv := NewConverter(WithPageSettings(defaults), withRenderer(mock))

		if _, err := conv.Convert(context.Background(), Input{HTML: "<p>x</p>"}); err != nil {
			t.Fatalf("Convert() error = %v", err)
		}
		if mock.gotPage != defaults {
			t.Errorf("renderer got page %+v, want converter default", mock.gotPage)
		}
	})

	t.Run("input page overrides default", func(t *testing.T) {
		t.Parallel()

		mock := &mockRenderer{result: []byte("%PDF")}
		conv := NewConverter(WithPageSettings(defaults), withRenderer(mock))
		page := &PageSettings{Size: PageSizeLetter, Orientation: OrientationLandscape, Margin: 1}

		if _, err := conv.Convert(context.Background(), Input{HTML: "<p>x</p>", Page: page}); err != nil {
			t.Fatalf("Convert() error = %v", err)
		}
		if mock.gotPage != page {
			t.Errorf("renderer got page %+v, want input page", mock.gotPage)
		}
	})
}

func TestConverter_Convert_Timeout(t *testing.T) {
	t.Parallel()

	mock := &mockRenderer{block: true}
	conv := NewConverter(WithTimeout(50*time.Millisecond), withRenderer(mock))

	start := time.Now()
	_, err := conv.Convert(context.Background(), Input{HTML: "<p>slow</p>"})

	if !errors.Is(err, ErrRenderTimeout) {
		t.Fatalf("Convert() error = %v, want ErrRenderTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Convert() took %v, timeout not enforced", elapsed)
	}
	if mock.gotDeadline.IsZero() {
		t.Error("renderer context had no deadline")
	}
}

func TestConverter_Convert_SlowLaunchTimesOut(t *testing.T) {
	t.Parallel()

	conv := NewConverter(
		WithTimeout(100*time.Millisecond),
		WithLauncher(newStuckLauncher(t, false)),
	)

	start := time.Now()
	_, err := conv.Convert(context.Background(), Input{HTML: "<p>x</p>"})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrRenderTimeout) {
		t.Fatalf("Convert() error = %v, want ErrRenderTimeout", err)
	}
	if elapsed > time.Second {
		t.Errorf("Convert() took %v with a 100ms timeout", elapsed)
	}
}

func TestConverter_Close(t *testing.T) {
	t.Parallel()

	mock := &mockRenderer{}
	conv := NewConverter(withRenderer(mock))

	if err := conv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if mock.closed != 1 {
		t.Errorf("renderer closed %d times, want 1", mock.closed)
	}

	var empty Converter
	if err := empty.Close(); err != nil {
		t.Errorf("Close() on zero Converter error = %v", err)
	}
}
