package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dtroode/flashcards-server/internal/apperrors"
	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
)

// AuthService defines account operations.
type AuthService interface {
	Register(ctx context.Context, params model.RegisterParams) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	FindUsernames(ctx context.Context, name string) ([]string, error)
	ResetPassword(ctx context.Context, name, username string) (string, error)
	ChangePassword(ctx context.Context, params model.ChangePasswordParams) error
	DeleteAccount(ctx context.Context, username, password string) error
}

type registerRequest struct {
	Name            string `json:"name" validate:"required"`
	Affiliation     string `json:"affiliation" validate:"required"`
	Username        string `json:"username" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type findUsernameRequest struct {
	Name string `json:"name" validate:"required"`
}

type resetPasswordRequest struct {
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type changePasswordRequest struct {
	Name               string `json:"name" validate:"required"`
	Username           string `json:"username" validate:"required"`
	CurrentPassword    string `json:"current_password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required,eqfield=NewPassword"`
}

type deleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Auth handles account endpoints.
type Auth struct {
	authService    AuthService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, contextManager model.ContextManager, logger *logger.Logger) *Auth {
	return &Auth{authService: authService, contextManager: contextManager, logger: logger}
}

// currentUser returns the username set by the authentication middleware.
func currentUser(c echo.Context, contextManager model.ContextManager) (string, error) {
	username, ok := contextManager.GetUsernameFromContext(c.Request().Context())
	if !ok {
		apiErr := apperrors.NewErrMissingAuthorizationToken()
		return "", echo.NewHTTPError(apiErr.HTTPCode, apiErr.Message)
	}
	return username, nil
}

// Register creates an account and returns an access token.
func (h *Auth) Register(c echo.Context) error {
	var req registerRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.authService.Register(c.Request().Context(), model.RegisterParams{
		Name:        req.Name,
		Affiliation: req.Affiliation,
		Username:    req.Username,
		Password:    req.Password,
	})
	if err != nil {
		h.logger.Info("Auth handler: registration failed",
			"username", req.Username,
			"error", err.Error())
		return handleError(err)
	}

	return c.JSON(http.StatusCreated, tokenResponse{AccessToken: token})
}

// Login returns an access token for valid credentials.
func (h *Auth) Login(c echo.Context) error {
	var req loginRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Info("Auth handler: login failed",
			"username", req.Username,
			"error", err.Error())
		return handleError(err)
	}

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token})
}

// FindUsername lists usernames registered under a display name.
func (h *Auth) FindUsername(c echo.Context) error {
	var req findUsernameRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	usernames, err := h.authService.FindUsernames(c.Request().Context(), req.Name)
	if err != nil {
		return handleError(err)
	}

	return c.JSON(http.StatusOK, map[string][]string{"usernames": usernames})
}

// ResetPassword issues a temporary password.
func (h *Auth) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	temp, err := h.authService.ResetPassword(c.Request().Context(), req.Name, req.Username)
	if err != nil {
		return handleError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{"temporary_password": temp})
}

// ChangePassword replaces the password after checking the current one.
func (h *Auth) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.authService.ChangePassword(c.Request().Context(), model.ChangePasswordParams{
		Name:            req.Name,
		Username:        req.Username,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return handleError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// DeleteAccount removes the authenticated user and all of their data.
func (h *Auth) DeleteAccount(c echo.Context) error {
	username, err := currentUser(c, h.contextManager)
	if err != nil {
		return err
	}

	var req deleteAccountRequest
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.DeleteAccount(c.Request().Context(), username, req.Password); err != nil {
		h.logger.Error("Auth handler: account deletion failed",
			"username", username,
			"error", err.Error())
		return handleError(err)
	}

	h.logger.Info("Auth handler: account deleted",
		"username", username)

	return c.NoContent(http.StatusNoContent)
}
