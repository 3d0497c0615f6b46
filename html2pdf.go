package html2pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-html2pdf/internal/process"
)

// pdfRenderer abstracts HTML to PDF rendering to enable testing without a browser.
type pdfRenderer interface {
	Render(ctx context.Context, htmlContent string, page *PageSettings) ([]byte, error)
	Close() error
}

// Compile-time interface checks
var _ pdfRenderer = (*rodRenderer)(nil)

// disposeTimeout bounds the teardown of a browser context after a render.
// A context that cannot be disposed in time marks the whole browser as wedged.
const disposeTimeout = 5 * time.Second

// idleIgnoredTypes are long-lived connections that never settle and must not
// hold back the network-idle condition. Images and fonts are waited for
// because they end up in the PDF.
var idleIgnoredTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeWebSocket,
	proto.NetworkResourceTypeEventSource,
}

// rodRenderer implements pdfRenderer using go-rod.
// The browser process is started lazily and shared by successive renders;
// every render gets its own incognito browser context.
// Not safe for concurrent use: ConverterPool hands a renderer to one caller at a time.
type rodRenderer struct {
	launcher   BrowserLauncher
	idleWindow time.Duration
	browser    *rod.Browser
	proc       *launcher.Launcher
}

// newRodRenderer creates a rodRenderer using the given launcher variant.
func newRodRenderer(l BrowserLauncher, idleWindow time.Duration) *rodRenderer {
	return &rodRenderer{launcher: l, idleWindow: idleWindow}
}

// startResult carries the outcome of a browser start-up.
type startResult struct {
	browser *rod.Browser
	proc    *launcher.Launcher
	err     error
}

// ensureBrowser lazily launches and connects to the browser within ctx.
// Start-up runs in its own goroutine so an expired ctx returns at once even
// when the launcher ignores cancellation; a browser that comes up after the
// caller gave up is shut down.
func (r *rodRenderer) ensureBrowser(ctx context.Context) error {
	if r.browser != nil {
		return nil
	}

	launchCtx, cancelLaunch := context.WithCancel(context.Background())
	started := make(chan startResult, 1)
	go func() {
		started <- r.start(launchCtx)
	}()

	select {
	case res := <-started:
		cancelLaunch()
		if res.err != nil {
			if ctx.Err() != nil {
				return classify(ctx, ErrBrowserConnect, res.err)
			}
			return res.err
		}
		r.browser, r.proc = res.browser, res.proc
		return nil
	case <-ctx.Done():
		cancelLaunch()
		go func() {
			if res := <-started; res.err == nil {
				_ = res.browser.Close()
				killProcessTree(res.proc)
			}
		}()
		return classify(ctx, ErrBrowserConnect, ctx.Err())
	}
}

// start launches the browser and opens the DevTools connection.
// The connection is not bound to ctx: rod ties the websocket lifetime to the
// context it connects with, and the browser serves many renders.
func (r *rodRenderer) start(ctx context.Context) startResult {
	proc, u, err := r.launcher.Launch(ctx)
	if err != nil {
		return startResult{err: err}
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		killProcessTree(proc)
		return startResult{err: fmt.Errorf("%w: %v", ErrBrowserConnect, err)}
	}
	return startResult{browser: browser, proc: proc}
}

// Render loads htmlContent into a fresh browser context, waits for the network
// to go idle and prints the page to PDF.
// The browser context is disposed on every return path, including failures and
// expiry of ctx.
func (r *rodRenderer) Render(ctx context.Context, htmlContent string, page *PageSettings) ([]byte, error) {
	// Check context before starting
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.ensureBrowser(ctx); err != nil {
		return nil, err
	}

	incognito, err := r.browser.Context(ctx).Incognito()
	if err != nil {
		err = classify(ctx, ErrBrowserContext, err)
		if errors.Is(err, ErrRenderTimeout) {
			// The browser did not even answer a context creation in time.
			r.terminate()
		}
		return nil, err
	}
	defer r.dispose(incognito)

	p, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, classify(ctx, ErrPageCreate, err)
	}

	waitIdle := p.WaitRequestIdle(r.idleWindow, nil, nil, idleIgnoredTypes)
	if err := p.SetDocumentContent(htmlContent); err != nil {
		return nil, classify(ctx, ErrPageLoad, err)
	}
	waitIdle()

	if err := p.WaitLoad(); err != nil {
		return nil, classify(ctx, ErrPageLoad, err)
	}

	// waitIdle returns silently when ctx expires
	if err := ctx.Err(); err != nil {
		return nil, classify(ctx, ErrPageLoad, err)
	}

	reader, err := p.PDF(buildPDFOptions(page))
	if err != nil {
		return nil, classify(ctx, ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, classify(ctx, ErrPDFGeneration, fmt.Errorf("reading PDF stream: %w", err))
	}

	return pdfBuf, nil
}

// dispose closes a browser context and every page in it.
// It runs detached from the render context so that an expired render still
// tears down its pages.
func (r *rodRenderer) dispose(bctx *rod.Browser) {
	if err := bctx.Context(context.Background()).Timeout(disposeTimeout).Close(); err != nil {
		r.terminate()
	}
}

// terminate kills the browser process tree and forgets it; the next render
// launches a new browser.
func (r *rodRenderer) terminate() {
	killProcessTree(r.proc)
	r.browser = nil
	r.proc = nil
}

// killProcessTree kills a launched browser and its children. Nil is a no-op.
func killProcessTree(proc *launcher.Launcher) {
	if proc == nil {
		return
	}
	process.KillProcessGroup(proc.PID())
	proc.Kill()
	// Cleanup blocks until the process exits, then removes its profile dir.
	go proc.Cleanup()
}

// Close releases browser resources.
func (r *rodRenderer) Close() error {
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.terminate()
	return err
}

// classify wraps a browser failure with its sentinel, or with ErrRenderTimeout
// when the failure comes from ctx expiring.
func classify(ctx context.Context, sentinel, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrRenderTimeout, err)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: %v", context.Canceled, err)
	default:
		return fmt.Errorf("%w: %v", sentinel, err)
	}
}

// buildPDFOptions constructs proto.PagePrintToPDF from page settings.
// Backgrounds are always printed.
func buildPDFOptions(page *PageSettings) *proto.PagePrintToPDF {
	width, height, margin := resolvePageDimensions(page)

	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(width),
		PaperHeight:     floatPtr(height),
		MarginTop:       floatPtr(margin),
		MarginBottom:    floatPtr(margin),
		MarginLeft:      floatPtr(margin),
		MarginRight:     floatPtr(margin),
		PrintBackground: true,
	}
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
