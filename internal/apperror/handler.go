package apperror

import (
	"errors"
	"net/http"

	"sweetshop/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Body is the error part of the response envelope
type Body struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the JSON shape of every failed response
type Envelope struct {
	Error Body `json:"error"`
}

// HTTPErrorHandler renders errors returned by handlers and middleware as the
// error envelope. Install it as echo.Echo.HTTPErrorHandler.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	appErr := fromEcho(err)
	log := logger.FromContext(c)
	if appErr.Internal() {
		log.Error("Request failed with internal error",
			zap.String("code", string(appErr.Code)),
			zap.Error(err))
	}

	body := Body{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
	if appErr.Internal() {
		body.Details = nil
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(appErr.Status())
	} else {
		writeErr = c.JSON(appErr.Status(), Envelope{Error: body})
	}
	if writeErr != nil {
		log.Error("Failed to write error response", zap.Error(writeErr))
	}
}

// fromEcho maps echo's own errors (unknown route, bad method, bind failures,
// body limit) onto the taxonomy
func fromEcho(err error) *Error {
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		return From(err)
	}

	message := http.StatusText(httpErr.Code)
	if m, ok := httpErr.Message.(string); ok && m != "" {
		message = m
	}

	switch {
	case httpErr.Code == http.StatusNotFound:
		return NotFound("resource not found")
	case httpErr.Code == http.StatusUnauthorized:
		return Unauthorized(message)
	case httpErr.Code == http.StatusForbidden:
		return Forbidden(message)
	case httpErr.Code == http.StatusMethodNotAllowed:
		return &Error{Code: CodeNotFound, Message: "method not allowed for this resource"}
	case httpErr.Code >= 400 && httpErr.Code < 500:
		return &Error{Code: CodeValidation, Message: message}
	default:
		return InternalError(err)
	}
}
