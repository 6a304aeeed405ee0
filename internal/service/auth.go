package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/flashcards-server/internal/apperrors"
	"github.com/dtroode/flashcards-server/internal/imagepath"
	"github.com/dtroode/flashcards-server/internal/logger"
	"github.com/dtroode/flashcards-server/internal/model"
)

const tempPasswordLength = 8

// SessionCleaner drops the practice sessions of a user.
type SessionCleaner interface {
	DeleteOwner(owner string) int
}

// LegacyAdopter attaches images stored before cards kept an explicit list.
type LegacyAdopter interface {
	AdoptLegacy(ctx context.Context, username string) (int, error)
}

type Auth struct {
	userStore    model.UserStore
	documents    *Documents
	blobs        *blobs
	sessions     SessionCleaner
	adopter      LegacyAdopter
	tokenManager model.TokenManager
	bcryptCost   int
	now          func() time.Time
	logger       *logger.Logger
}

func NewAuth(
	userStore model.UserStore,
	documents *Documents,
	storage model.Storage,
	sessions SessionCleaner,
	adopter LegacyAdopter,
	tokenManager model.TokenManager,
	bcryptCost int,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		userStore:    userStore,
		documents:    documents,
		blobs:        newBlobs(storage, logger),
		sessions:     sessions,
		adopter:      adopter,
		tokenManager: tokenManager,
		bcryptCost:   bcryptCost,
		now:          time.Now,
		logger:       logger,
	}
}

// validUsername reports whether username can name a directory and an
// object prefix as is.
func validUsername(username string) bool {
	return username != "." && username != ".." && imagepath.Sanitize(username) == username
}

func (a *Auth) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// isLegacyHash reports whether hash is an unsalted SHA-256 hex digest.
func isLegacyHash(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

// checkPassword compares password with hash. It also accepts legacy SHA-256
// digests and reports them so the caller can upgrade the hash.
func checkPassword(hash, password string) (ok bool, legacy bool) {
	if isLegacyHash(hash) {
		sum := sha256.Sum256([]byte(password))
		digest := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(digest)) == 1, true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, false
}

func (a *Auth) getUser(ctx context.Context, username string) (model.User, error) {
	user, err := a.userStore.GetByUsername(ctx, username)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, apperrors.NewErrUserNotFound(username)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// verify checks the password of username and upgrades a legacy hash.
func (a *Auth) verify(ctx context.Context, username, password string) (model.User, error) {
	user, err := a.getUser(ctx, username)
	if err != nil {
		return model.User{}, err
	}

	ok, legacy := checkPassword(user.PasswordHash, password)
	if !ok {
		a.logger.Info("Auth service: wrong password",
			"username", username)
		return model.User{}, apperrors.NewErrWrongPassword()
	}

	if legacy {
		hash, err := a.hash(password)
		if err != nil {
			return model.User{}, err
		}
		if err := a.userStore.UpdatePassword(ctx, username, hash); err != nil {
			return model.User{}, fmt.Errorf("failed to upgrade password hash: %w", err)
		}
		user.PasswordHash = hash
		a.logger.Info("Auth service: legacy password hash upgraded",
			"username", username)
	}

	return user, nil
}

// Register creates an account with its default document and returns an
// access token for it.
func (a *Auth) Register(ctx context.Context, params model.RegisterParams) (string, error) {
	a.logger.Debug("Auth service: starting user registration",
		"username", params.Username)

	switch {
	case strings.TrimSpace(params.Name) == "":
		return "", apperrors.NewErrRequiredField("name")
	case strings.TrimSpace(params.Affiliation) == "":
		return "", apperrors.NewErrRequiredField("affiliation")
	case params.Username == "":
		return "", apperrors.NewErrRequiredField("username")
	case params.Password == "":
		return "", apperrors.NewErrRequiredField("password")
	}
	if !validUsername(params.Username) {
		return "", apperrors.NewErrBadRequest(`username must not contain \ / : * ? " < > |`)
	}

	hash, err := a.hash(params.Password)
	if err != nil {
		return "", err
	}

	_, err = a.userStore.Create(ctx, model.User{
		Username:     params.Username,
		Name:         params.Name,
		Affiliation:  params.Affiliation,
		PasswordHash: hash,
		CreatedAt:    a.now(),
	})
	if errors.Is(err, model.ErrAlreadyExists) {
		a.logger.Info("Auth service: user already exists",
			"username", params.Username)
		return "", apperrors.NewErrUsernameIsTaken(params.Username)
	}
	if err != nil {
		a.logger.Error("Auth service: failed to create user",
			"username", params.Username,
			"error", err.Error())
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	if err := a.documents.Init(ctx, params.Username); err != nil {
		a.logger.Error("Auth service: failed to initialize document",
			"username", params.Username,
			"error", err.Error())
		return "", err
	}

	token, err := a.tokenManager.GenerateAccessToken(params.Username)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	a.logger.Info("Auth service: user registration completed successfully",
		"username", params.Username)

	return token, nil
}

// Login checks credentials and returns an access token.
func (a *Auth) Login(ctx context.Context, username, password string) (string, error) {
	a.logger.Debug("Auth service: starting user login",
		"username", username)

	if username == "" || password == "" {
		return "", apperrors.NewErrBadRequest("username and password are required")
	}

	if _, err := a.verify(ctx, username, password); err != nil {
		return "", err
	}

	if a.adopter != nil {
		if n, err := a.adopter.AdoptLegacy(ctx, username); err != nil {
			a.logger.Warn("Auth service: failed to adopt legacy images",
				"username", username,
				"error", err.Error())
		} else if n > 0 {
			a.logger.Info("Auth service: legacy images adopted",
				"username", username,
				"cards", n)
		}
	}

	token, err := a.tokenManager.GenerateAccessToken(username)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	a.logger.Info("Auth service: login completed successfully",
		"username", username)

	return token, nil
}

// FindUsernames lists the usernames registered under a display name.
func (a *Auth) FindUsernames(ctx context.Context, name string) ([]string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.NewErrRequiredField("name")
	}

	users, err := a.userStore.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by name: %w", err)
	}
	if len(users) == 0 {
		return nil, apperrors.NewErrAccountMismatch()
	}

	usernames := make([]string, len(users))
	for i, u := range users {
		usernames[i] = u.Username
	}
	return usernames, nil
}

// matchAccount returns the user when name is its display name.
func (a *Auth) matchAccount(ctx context.Context, name, username string) (model.User, error) {
	user, err := a.getUser(ctx, username)
	if err != nil {
		return model.User{}, err
	}
	if user.Name != name {
		return model.User{}, apperrors.NewErrAccountMismatch()
	}
	return user, nil
}

// ResetPassword replaces the password with a temporary one and returns it.
func (a *Auth) ResetPassword(ctx context.Context, name, username string) (string, error) {
	if name == "" || username == "" {
		return "", apperrors.NewErrBadRequest("name and username are required")
	}

	if _, err := a.matchAccount(ctx, name, username); err != nil {
		return "", err
	}

	temp := uuid.NewString()[:tempPasswordLength]
	hash, err := a.hash(temp)
	if err != nil {
		return "", err
	}
	if err := a.userStore.UpdatePassword(ctx, username, hash); err != nil {
		return "", fmt.Errorf("failed to update password: %w", err)
	}

	a.logger.Info("Auth service: temporary password issued",
		"username", username)

	return temp, nil
}

// ChangePassword sets a new password after checking the current one.
func (a *Auth) ChangePassword(ctx context.Context, params model.ChangePasswordParams) error {
	if params.Name == "" || params.Username == "" || params.CurrentPassword == "" || params.NewPassword == "" {
		return apperrors.NewErrBadRequest("all fields are required")
	}

	if _, err := a.matchAccount(ctx, params.Name, params.Username); err != nil {
		return err
	}
	if _, err := a.verify(ctx, params.Username, params.CurrentPassword); err != nil {
		return err
	}

	hash, err := a.hash(params.NewPassword)
	if err != nil {
		return err
	}
	if err := a.userStore.UpdatePassword(ctx, params.Username, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	a.logger.Info("Auth service: password changed",
		"username", params.Username)

	return nil
}

// DeleteAccount removes the user together with sessions, images and
// flashcards.
func (a *Auth) DeleteAccount(ctx context.Context, username, password string) error {
	if password == "" {
		return apperrors.NewErrRequiredField("password")
	}
	if _, err := a.verify(ctx, username, password); err != nil {
		return err
	}

	// The user record goes first: a failure here leaves the account whole.
	if err := a.userStore.Delete(ctx, username); err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	sessions := a.sessions.DeleteOwner(username)

	if err := a.documents.Delete(ctx, username); err != nil {
		a.logger.Error("Auth service: failed to delete document of removed user",
			"username", username,
			"error", err.Error())
		return err
	}

	objects, err := a.blobs.storage.List(ctx, imagepath.UserPrefix(username))
	if err != nil {
		return fmt.Errorf("failed to list user images: %w", err)
	}
	keys := make([]string, len(objects))
	for i, obj := range objects {
		keys[i] = obj.Key
	}
	a.blobs.remove(ctx, keys)

	a.logger.Info("Auth service: account deleted",
		"username", username,
		"sessions", sessions,
		"images", len(keys))

	return nil
}
