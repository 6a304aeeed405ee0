package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/flashcards-server/internal/logger"
)

// Logging logs HTTP requests and results.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// Handle logs method, route, duration and status for each request.
func (l *Logging) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		l.logger.Debug("HTTP request started",
			"method", req.Method,
			"path", req.URL.Path)

		err := next(c)

		status := c.Response().Status
		if err != nil {
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				status = httpErr.Code
			} else {
				status = http.StatusInternalServerError
			}
		}

		l.logger.Info("HTTP request completed",
			"method", req.Method,
			"route", c.Path(),
			"duration_ms", time.Since(start).Milliseconds(),
			"status", status)

		if status >= http.StatusInternalServerError {
			msg := http.StatusText(status)
			if err != nil {
				msg = err.Error()
			}
			l.logger.Error("HTTP request failed",
				"method", req.Method,
				"route", c.Path(),
				"error", msg,
				"status", status)
		}

		return err
	}
}
