// routes.go - Server assembly and route registration
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/metrics"
)

// Dependencies holds everything the HTTP layer needs.
type Dependencies struct {
	Renderer      Renderer
	Store         ArtifactStore
	Guard         Authorizer
	TTL           time.Duration
	PublicBaseURL string                 // Empty = derive from request
	DefaultPage   *html2pdf.PageSettings // Nil = html2pdf.DefaultPageSettings
	BodyLimit     string                 // Echo size syntax, e.g. "10M"
	Metrics       metrics.Metrics
	Gatherer      prometheus.Gatherer // Nil = no /metrics route
	Logger        *slog.Logger
}

// NewServer builds the echo instance with middleware and routes.
func NewServer(deps *Dependencies) *echo.Echo {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Noop{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Use(RequestID())
	e.Use(RequestLogger(logger))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("panic recovered", "request_id", requestID(c), "error", err, "stack", string(stack))
			return NewInternalError(MsgInternal)
		},
	}))
	if deps.BodyLimit != "" {
		e.Use(middleware.BodyLimit(deps.BodyLimit))
	}

	RegisterRoutes(e, NewHandler(deps), RequireBearer(deps.Guard, m), deps.Gatherer)
	return e
}

// RegisterRoutes registers all routes on e.
func RegisterRoutes(e *echo.Echo, h *Handler, requireAuth echo.MiddlewareFunc, gatherer prometheus.Gatherer) {
	e.GET("/health", h.HandleHealth)
	e.POST("/convert", h.HandleConvert, requireAuth)
	e.GET("/pdfs/:name", h.HandleGetArtifact)
	e.HEAD("/pdfs/:name", h.HandleGetArtifact)

	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
	}

	e.RouteNotFound("/*", func(c echo.Context) error {
		return NewNotFoundError(http.StatusText(http.StatusNotFound))
	})
}
