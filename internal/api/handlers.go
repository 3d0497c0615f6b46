// handlers.go - Conversion, artifact retrieval and health handlers
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/artifact"
	"github.com/alnah/go-html2pdf/internal/hints"
	"github.com/alnah/go-html2pdf/internal/metrics"
)

// StatusClientClosedRequest is recorded when the client disconnects before the
// PDF is ready. Nobody reads the response; it only shows up in request logs.
const StatusClientClosedRequest = 499

// ConvertRequest is the POST /convert body.
type ConvertRequest struct {
	HTML string       `json:"html"`
	Page *PageRequest `json:"page,omitempty"`
}

// PageRequest overrides the server's default page settings. Omitted fields
// keep the default.
type PageRequest struct {
	Size        string   `json:"size,omitempty"`
	Orientation string   `json:"orientation,omitempty"`
	Margin      *float64 `json:"margin,omitempty"`
}

// ConvertResponse is the POST /convert success body.
type ConvertResponse struct {
	PDFURL string `json:"pdfUrl"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Handler serves the conversion API.
type Handler struct {
	renderer      Renderer
	store         ArtifactStore
	ttl           time.Duration
	publicBaseURL string
	defaultPage   html2pdf.PageSettings
	metrics       metrics.Metrics
	logger        *slog.Logger
}

// NewHandler creates a Handler from deps, filling optional fields.
func NewHandler(deps *Dependencies) *Handler {
	h := &Handler{
		renderer:      deps.Renderer,
		store:         deps.Store,
		ttl:           deps.TTL,
		publicBaseURL: deps.PublicBaseURL,
		defaultPage:   *html2pdf.DefaultPageSettings(),
		metrics:       deps.Metrics,
		logger:        deps.Logger,
	}
	if deps.DefaultPage != nil {
		h.defaultPage = *deps.DefaultPage
	}
	if h.metrics == nil {
		h.metrics = metrics.Noop{}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// HandleConvert renders the posted HTML, stores the PDF, schedules its
// deletion and returns its public URL.
func (h *Handler) HandleConvert(c echo.Context) error {
	var req ConvertRequest
	if err := c.Echo().JSONSerializer.Deserialize(c, &req); err != nil && !errors.Is(err, io.EOF) {
		h.metrics.RejectConversion(metrics.StatusBadInput)
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) && httpErr.Code == http.StatusRequestEntityTooLarge {
			return httpErr
		}
		return NewBadRequestError(MsgInvalidJSON)
	}
	if req.HTML == "" {
		h.metrics.RejectConversion(metrics.StatusBadInput)
		return NewBadRequestError(MsgHTMLRequired)
	}

	page := h.resolvePage(req.Page)
	if err := page.Validate(); err != nil {
		h.metrics.RejectConversion(metrics.StatusBadInput)
		return NewBadRequestError(err.Error())
	}

	start := time.Now()
	pdf, err := h.renderer.Convert(c.Request().Context(), html2pdf.Input{HTML: req.HTML, Page: page})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		return h.renderFailure(c, err, elapsed)
	}

	art, err := h.store.Create(pdf)
	if err != nil {
		h.metrics.ObserveConversion(metrics.StatusError, elapsed)
		h.logger.Error("storing PDF failed", "request_id", requestID(c), "error", err)
		return NewInternalError(MsgRenderFailed)
	}
	h.store.ScheduleDeletion(art.Path, h.ttl)
	h.metrics.ObserveConversion(metrics.StatusOK, elapsed)

	h.logger.Info("PDF generated",
		"request_id", requestID(c),
		"name", art.Name,
		"bytes", len(pdf),
		"duration", time.Duration(elapsed*float64(time.Second)),
	)

	return c.JSON(http.StatusOK, ConvertResponse{
		PDFURL: artifact.URL(h.baseURL(c), art.Name),
	})
}

// renderFailure logs the full error and maps it to a client-safe response.
func (h *Handler) renderFailure(c echo.Context, err error, elapsed float64) error {
	attrs := []any{"request_id", requestID(c), "error", err}

	switch {
	case errors.Is(err, context.Canceled):
		h.metrics.RejectConversion(metrics.StatusCanceled)
		h.logger.Info("client gave up before the PDF was ready", attrs...)
		return c.NoContent(StatusClientClosedRequest)
	case errors.Is(err, html2pdf.ErrRenderTimeout):
		h.metrics.ObserveConversion(metrics.StatusTimeout, elapsed)
		h.logger.Warn("PDF rendering timed out", append(attrs, "hint", hints.Plain(hints.ForRenderTimeout()))...)
		return NewGatewayTimeoutError(MsgRenderTimeout)
	case errors.Is(err, html2pdf.ErrPoolBusy):
		h.metrics.ObserveConversion(metrics.StatusBusy, elapsed)
		h.logger.Warn("no converter available", append(attrs, "hint", hints.Plain(hints.ForPoolBusy()))...)
		c.Response().Header().Set("Retry-After", "5")
		return NewServiceUnavailableError(MsgBusy)
	case errors.Is(err, html2pdf.ErrEmptyHTML):
		h.metrics.ObserveConversion(metrics.StatusBadInput, elapsed)
		return NewBadRequestError(MsgHTMLRequired)
	default:
		h.metrics.ObserveConversion(metrics.StatusError, elapsed)
		if errors.Is(err, html2pdf.ErrBrowserConnect) {
			if hint := hints.Plain(hints.ForBrowserConnect()); hint != "" {
				attrs = append(attrs, "hint", hint)
			}
		}
		h.logger.Error("PDF generation failed", attrs...)
		return NewInternalError(MsgRenderFailed)
	}
}

// resolvePage overlays the request's page fields on the default.
func (h *Handler) resolvePage(req *PageRequest) *html2pdf.PageSettings {
	page := h.defaultPage
	if req == nil {
		return &page
	}
	if req.Size != "" {
		page.Size = req.Size
	}
	if req.Orientation != "" {
		page.Orientation = req.Orientation
	}
	if req.Margin != nil {
		page.Margin = *req.Margin
	}
	return &page
}

// baseURL prefers the configured public URL, else the request's scheme and Host.
func (h *Handler) baseURL(c echo.Context) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	return c.Scheme() + "://" + c.Request().Host
}

// HandleGetArtifact serves a stored PDF by name.
func (h *Handler) HandleGetArtifact(c echo.Context) error {
	path, err := h.store.Open(c.Param("name"))
	if err != nil {
		if !errors.Is(err, artifact.ErrNotFound) && !errors.Is(err, artifact.ErrInvalidName) {
			h.logger.Error("opening artifact failed", "request_id", requestID(c), "error", err)
		}
		return NewNotFoundError(MsgPDFNotFound)
	}
	if err := c.File(path); err != nil {
		// Expired between Open and File.
		if errors.Is(err, echo.ErrNotFound) {
			return NewNotFoundError(MsgPDFNotFound)
		}
		return err
	}
	return nil
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "OK",
		Message: "Server is running",
	})
}
