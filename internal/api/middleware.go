// middleware.go - Authentication, request IDs and request logging
package api

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/alnah/go-html2pdf/internal/auth"
	"github.com/alnah/go-html2pdf/internal/metrics"
)

// Auth failure reasons reported to metrics.
const (
	reasonMalformed = "malformed"
	reasonInvalid   = "invalid"
)

// RequireBearer rejects requests whose Authorization header fails guard.
// Rejected requests never reach the wrapped handler.
func RequireBearer(guard Authorizer, m metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := guard.Authorize(c.Request().Header.Get(echo.HeaderAuthorization))
			switch {
			case err == nil:
				return next(c)
			case errors.Is(err, auth.ErrMalformedCredential):
				m.AuthFailure(reasonMalformed)
				return NewUnauthorizedError(MsgHeaderInvalid)
			default:
				m.AuthFailure(reasonInvalid)
				return NewUnauthorizedError(MsgInvalidToken)
			}
		}
	}
}

// RequestID assigns a UUID to each request that does not carry one.
func RequestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

// RequestLogger logs one structured line per request.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"request_id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Status >= 500 {
				logger.Error("request", attrs...)
			} else {
				logger.Info("request", attrs...)
			}
			return nil
		},
	})
}
