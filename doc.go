// Package html2pdf renders HTML documents to PDF using headless Chrome.
//
// # Quick Start
//
// Create a converter, convert HTML, and close when done:
//
//	conv := html2pdf.NewConverter()
//	defer conv.Close()
//
//	pdf, err := conv.Convert(ctx, html2pdf.Input{
//	    HTML: "<h1>Hello</h1>",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("output.pdf", pdf, 0644)
//
// # Rendering
//
// Each conversion opens a fresh incognito browser context, loads the HTML,
// waits until the page has had no in-flight network request for the idle
// window (500ms by default), then prints it. Pages default to legal paper,
// portrait, with 20px margins and backgrounds printed. The browser context is
// disposed whatever the outcome.
//
// Conversions are bounded by a timeout (WithTimeout, 60s by default). When it
// expires, Convert returns an error wrapping ErrRenderTimeout; a browser that
// cannot even dispose of the timed-out context is killed and relaunched on
// the next conversion.
//
// # Browser Launchers
//
// The browser process is obtained through a BrowserLauncher:
//
//   - LocalLauncher uses a local Chrome (ROD_BROWSER_BIN) or the Chromium
//     build go-rod downloads on first run (~/.cache/rod/browser/).
//   - PackagedLauncher starts a Chromium binary shipped with the deployment,
//     with the switches serverless builds expect.
//
// Select one by name with NewLauncher and pass it with WithLauncher.
//
// # Concurrency
//
// A Converter serves one conversion at a time. ConverterPool caps the number of
// browsers and therefore of simultaneous renders:
//
//	pool := html2pdf.NewConverterPool(html2pdf.ResolvePoolSize(0))
//	defer pool.Close()
//
//	pdf, err := pool.Convert(ctx, html2pdf.Input{HTML: doc})
//
// Convert fails with ErrPoolBusy when no converter frees up within the acquire
// timeout.
package html2pdf
