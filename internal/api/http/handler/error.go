package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/flashcards-server/internal/apperrors"
	"github.com/dtroode/flashcards-server/internal/model"
)

func handleError(err error) error {
	var apiErr *apperrors.APIError
	if errors.As(err, &apiErr) {
		return echo.NewHTTPError(apiErr.HTTPCode, apiErr.Message)
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrCorruptDocument):
		apiErr := apperrors.NewErrCorruptDocument()
		return echo.NewHTTPError(apiErr.HTTPCode, apiErr.Message)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}
