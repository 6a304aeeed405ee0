package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/flashcards-server/internal/apperrors"
	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
)

// TokenParser resolves the username from a bearer token.
type TokenParser interface {
	ParseAccessToken(token string) (string, error)
}

// Authenticate validates bearer tokens and injects the username into the
// request context.
type Authenticate struct {
	tokenParser    TokenParser
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenParser TokenParser, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenParser: tokenParser, contextManager: contextManager, logger: logger}
}

// Handle rejects requests without a valid Authorization header.
func (m *Authenticate) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		username, apiErr := m.authenticateUser(c.Request().Header.Get(echo.HeaderAuthorization))
		if apiErr != nil {
			m.logger.Debug("Authenticate middleware: request rejected",
				"path", c.Request().URL.Path,
				"error", apiErr.Error())
			return echo.NewHTTPError(apiErr.HTTPCode, apiErr.Message)
		}

		req := c.Request()
		c.SetRequest(req.WithContext(m.contextManager.SetUsernameToContext(req.Context(), username)))
		return next(c)
	}
}

func (m *Authenticate) authenticateUser(header string) (string, *apperrors.APIError) {
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		return "", apperrors.NewErrMissingAuthorizationToken()
	}

	username, err := m.tokenParser.ParseAccessToken(strings.TrimSpace(tokenString))
	if err != nil || username == "" {
		return "", apperrors.NewErrInvalidAuthorizationToken()
	}

	return username, nil
}
