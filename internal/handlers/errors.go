// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/remind/internal/apperr"
	"codeberg.org/oliverandrich/remind/internal/auth"
	"github.com/labstack/echo/v4"
)

const internalErrorMessage = "Internal server error"

// MessageResponse is the body of every error and of plain confirmations.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorHandler renders errors as {"message": ...}. Client errors keep their message,
// everything else becomes a logged 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message := statusAndMessage(err)
	ctx := c.Request().Context()
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request_failed",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"request_id", auth.RequestID(ctx),
			"error", err,
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, MessageResponse{Message: message})
	}
	if writeErr != nil {
		slog.ErrorContext(ctx, "error_response_failed", "error", writeErr)
	}
}

func statusAndMessage(err error) (int, string) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status := appErr.Kind.HTTPStatus()
		if status >= http.StatusInternalServerError {
			return status, internalErrorMessage
		}
		return status, appErr.Message
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Code >= http.StatusInternalServerError {
			return httpErr.Code, internalErrorMessage
		}
		if msg, ok := httpErr.Message.(string); ok && msg != "" {
			return httpErr.Code, msg
		}
		return httpErr.Code, http.StatusText(httpErr.Code)
	}

	return http.StatusInternalServerError, internalErrorMessage
}
