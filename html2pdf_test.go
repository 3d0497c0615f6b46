package html2pdf

// Notes:
// - rodRenderer paths that need a live browser are covered by
//   html2pdf_integration_test.go; here we test option building, error
//   classification and the paths that never reach Chrome.

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
)

// fakeLauncher implements BrowserLauncher without starting a process.
type fakeLauncher struct {
	err   error
	calls int
}

func (f *fakeLauncher) Launch(context.Context) (*launcher.Launcher, string, error) {
	f.calls++
	return nil, "", f.err
}

func (f *fakeLauncher) Name() string { return "fake" }

// stuckLauncher blocks until release is closed, or until ctx is done when
// honorCtx is set. It stands in for a hung binary or a slow browser download.
type stuckLauncher struct {
	release  chan struct{}
	honorCtx bool
	gotCtx   chan context.Context
}

func newStuckLauncher(t *testing.T, honorCtx bool) *stuckLauncher {
	t.Helper()
	l := &stuckLauncher{
		release:  make(chan struct{}),
		honorCtx: honorCtx,
		gotCtx:   make(chan context.Context, 1),
	}
	t.Cleanup(func() { close(l.release) })
	return l
}

func (l *stuckLauncher) Launch(ctx context.Context) (*launcher.Launcher, string, error) {
	l.gotCtx <- ctx
	if l.honorCtx {
		select {
		case <-ctx.Done():
			return nil, "", fmt.Errorf("%w: %v", ErrBrowserConnect, ctx.Err())
		case <-l.release:
		}
	} else {
		<-l.release
	}
	return nil, "", fmt.Errorf("%w: gave up", ErrBrowserConnect)
}

func (l *stuckLauncher) Name() string { return "stuck" }

// ---------------------------------------------------------------------------
// TestBuildPDFOptions - PDF Options Construction
// ---------------------------------------------------------------------------

func TestBuildPDFOptions(t *testing.T) {
	t.Parallel()

	t.Run("nil page uses legal with 20px margins", func(t *testing.T) {
		t.Parallel()

		opts := buildPDFOptions(nil)

		if *opts.PaperWidth != 8.5 || *opts.PaperHeight != 14.0 {
			t.Errorf("paper = %vx%v, want 8.5x14", *opts.PaperWidth, *opts.PaperHeight)
		}
		for name, m := range map[string]*float64{
			"top": opts.MarginTop, "bottom": opts.MarginBottom,
			"left": opts.MarginLeft, "right": opts.MarginRight,
		} {
			if *m != DefaultMargin {
				t.Errorf("margin %s = %v, want %v", name, *m, DefaultMargin)
			}
		}
		if !opts.PrintBackground {
			t.Error("expected backgrounds to be printed")
		}
	})

	t.Run("custom page settings", func(t *testing.T) {
		t.Parallel()

		opts := buildPDFOptions(&PageSettings{Size: "a4", Orientation: "landscape", Margin: 1.0})

		if *opts.PaperWidth != 11.69 {
			t.Errorf("PaperWidth = %v, want 11.69", *opts.PaperWidth)
		}
		if *opts.PaperHeight != 8.27 {
			t.Errorf("PaperHeight = %v, want 8.27", *opts.PaperHeight)
		}
		if *opts.MarginTop != 1.0 {
			t.Errorf("MarginTop = %v, want 1.0", *opts.MarginTop)
		}
		if !opts.PrintBackground {
			t.Error("expected backgrounds to be printed")
		}
	})
}

// ---------------------------------------------------------------------------
// TestClassify - Error Classification
// ---------------------------------------------------------------------------

func TestClassify(t *testing.T) {
	t.Parallel()

	cause := errors.New("cdp failure")

	t.Run("live context keeps sentinel", func(t *testing.T) {
		t.Parallel()

		err := classify(context.Background(), ErrPageLoad, cause)
		if !errors.Is(err, ErrPageLoad) {
			t.Errorf("error = %v, want ErrPageLoad", err)
		}
		if errors.Is(err, ErrRenderTimeout) {
			t.Error("live context must not classify as timeout")
		}
	})

	t.Run("expired deadline is a timeout", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-ctx.Done()

		err := classify(ctx, ErrPDFGeneration, cause)
		if !errors.Is(err, ErrRenderTimeout) {
			t.Errorf("error = %v, want ErrRenderTimeout", err)
		}
	})

	t.Run("cancellation stays cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := classify(ctx, ErrPageLoad, cause)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if errors.Is(err, ErrRenderTimeout) {
			t.Error("cancellation must not classify as timeout")
		}
	})
}

// ---------------------------------------------------------------------------
// TestRodRenderer - Paths Without a Browser
// ---------------------------------------------------------------------------

func TestRodRenderer_Render_CanceledContext(t *testing.T) {
	t.Parallel()

	fl := &fakeLauncher{}
	r := newRodRenderer(fl, defaultIdleWindow)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, "<p>x</p>", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
	if fl.calls != 0 {
		t.Errorf("launcher called %d times, want 0", fl.calls)
	}
}

func TestRodRenderer_Render_LaunchFailure(t *testing.T) {
	t.Parallel()

	fl := &fakeLauncher{err: fmt.Errorf("%w: no chrome", ErrBrowserConnect)}
	r := newRodRenderer(fl, defaultIdleWindow)

	_, err := r.Render(context.Background(), "<p>x</p>", nil)
	if !errors.Is(err, ErrBrowserConnect) {
		t.Errorf("Render() error = %v, want ErrBrowserConnect", err)
	}

	// A failed launch is retried on the next render.
	_, _ = r.Render(context.Background(), "<p>x</p>", nil)
	if fl.calls != 2 {
		t.Errorf("launcher called %d times, want 2", fl.calls)
	}
}

func TestRodRenderer_Render_LaunchBoundedByContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		honorCtx bool
	}{
		{name: "launcher honors cancellation", honorCtx: true},
		{name: "launcher ignores cancellation", honorCtx: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := newStuckLauncher(t, tt.honorCtx)
			r := newRodRenderer(l, defaultIdleWindow)

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			start := time.Now()
			_, err := r.Render(ctx, "<p>x</p>", nil)
			elapsed := time.Since(start)

			if !errors.Is(err, ErrRenderTimeout) {
				t.Errorf("Render() error = %v, want ErrRenderTimeout", err)
			}
			if elapsed > time.Second {
				t.Errorf("Render() returned after %v, want about 50ms", elapsed)
			}
			if r.browser != nil {
				t.Error("abandoned start-up left a browser behind")
			}
		})
	}
}

func TestRodRenderer_Render_LaunchContextCanceledOnTimeout(t *testing.T) {
	t.Parallel()

	l := newStuckLauncher(t, true)
	r := newRodRenderer(l, defaultIdleWindow)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _ = r.Render(ctx, "<p>x</p>", nil)

	launchCtx := <-l.gotCtx
	select {
	case <-launchCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("launch context still open after the render timed out")
	}
}

func TestRodRenderer_Close_Idempotent(t *testing.T) {
	t.Parallel()

	r := newRodRenderer(&fakeLauncher{}, defaultIdleWindow)

	for i := 0; i < 3; i++ {
		if err := r.Close(); err != nil {
			t.Errorf("Close() call %d error = %v", i+1, err)
		}
	}
}

func TestRodRenderer_Terminate_WithoutProcess(t *testing.T) {
	t.Parallel()

	r := newRodRenderer(&fakeLauncher{}, defaultIdleWindow)
	r.terminate()

	if r.browser != nil || r.proc != nil {
		t.Error("terminate() left browser state behind")
	}
}
