// errors.go - Structured error responses and the central error handler
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Client-facing messages. Internal detail is logged, never returned.
const (
	MsgHTMLRequired    = "HTML content is required"
	MsgInvalidJSON     = "Request body must be a JSON object"
	MsgHeaderInvalid   = "Authorization header missing or invalid"
	MsgInvalidToken    = "Invalid token"
	MsgRenderFailed    = "Failed to generate PDF"
	MsgRenderTimeout   = "PDF rendering timed out"
	MsgBusy            = "Server is busy, retry later"
	MsgPDFNotFound     = "PDF not found"
	MsgInternal        = "An unexpected error occurred"
	MsgRequestTooLarge = "Request body too large"
)

// APIError represents a structured API error response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error.
func NewBadRequestError(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Message: message}
}

// NewUnauthorizedError creates a 401 Unauthorized error.
func NewUnauthorizedError(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

// NewNotFoundError creates a 404 Not Found error.
func NewNotFoundError(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: message}
}

// NewInternalError creates a 500 Internal Server Error.
func NewInternalError(message string) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: message}
}

// NewServiceUnavailableError creates a 503 Service Unavailable error.
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{Status: http.StatusServiceUnavailable, Code: "SERVICE_UNAVAILABLE", Message: message}
}

// NewGatewayTimeoutError creates a 504 Gateway Timeout error.
func NewGatewayTimeoutError(message string) *APIError {
	return &APIError{Status: http.StatusGatewayTimeout, Code: "TIMEOUT", Message: message}
}

// ErrorHandler returns the echo.HTTPErrorHandler that renders every error as
// {"error": ..., "code": ...}. Unknown errors are logged and masked.
func ErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *APIError
		var httpErr *echo.HTTPError

		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &httpErr):
			apiErr = fromHTTPError(httpErr)
		default:
			logger.Error("unhandled error",
				"request_id", requestID(c),
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"error", err,
			)
			apiErr = NewInternalError(MsgInternal)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(apiErr.Status)
		} else {
			writeErr = c.JSON(apiErr.Status, apiErr)
		}
		if writeErr != nil {
			logger.Warn("writing error response failed", "error", writeErr)
		}
	}
}

func fromHTTPError(e *echo.HTTPError) *APIError {
	msg := http.StatusText(e.Code)
	switch m := e.Message.(type) {
	case string:
		msg = m
	case error:
		msg = m.Error()
	}
	if e.Code == http.StatusRequestEntityTooLarge {
		msg = MsgRequestTooLarge
	}
	return &APIError{
		Status:  e.Code,
		Code:    "HTTP_ERROR",
		Message: msg,
	}
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
