package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fyrsmithlabs/leavelens/internal/analysis"
	"github.com/fyrsmithlabs/leavelens/internal/ocr"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// apiError carries the status and client-facing message for a failed
// request. Cause is reported as detail on 5xx responses only.
type apiError struct {
	status  int
	message string
	cause   error
}

func (e *apiError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return fmt.Sprintf("%s: %v", e.message, e.cause)
}

func (e *apiError) Unwrap() error { return e.cause }

func badRequest(message string) error {
	return &apiError{status: http.StatusBadRequest, message: message}
}

// classify maps a pipeline error onto a response. Invalid input is a 400
// carrying the error text; anything else is a 500 with fallback as the
// message.
func classify(err error, fallback string) error {
	switch {
	case errors.Is(err, analysis.ErrInvalidInput),
		errors.Is(err, ocr.ErrInvalidPayload),
		errors.Is(err, ocr.ErrUnsupportedDocument):
		return &apiError{status: http.StatusBadRequest, message: err.Error(), cause: err}
	default:
		return &apiError{status: http.StatusInternalServerError, message: fallback, cause: err}
	}
}

// errorResponse renders err as a status and body.
func errorResponse(err error) (int, ErrorResponse) {
	var ae *apiError
	if errors.As(err, &ae) {
		body := ErrorResponse{Error: ae.message}
		if ae.status >= http.StatusInternalServerError && ae.cause != nil {
			body.Detail = ae.cause.Error()
		}
		return ae.status, body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return he.Code, ErrorResponse{Error: msg}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error:  http.StatusText(http.StatusInternalServerError),
		Detail: err.Error(),
	}
}

// handleError is the echo error handler. Server-side failures are logged
// with the request context so they carry the request ID.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, body := errorResponse(err)
	ctx := c.Request().Context()
	if status >= http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed",
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Warn(ctx, "writing error response", zap.Error(err))
	}
}
