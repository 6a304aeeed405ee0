package model

import (
	"context"
	"time"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByName(ctx context.Context, name string) ([]User, error)
	Create(ctx context.Context, user User) (User, error)
	UpdatePassword(ctx context.Context, username string, passwordHash string) error
	Delete(ctx context.Context, username string) error
}

// User represents a registered account.
type User struct {
	Username     string
	Name         string
	Affiliation  string
	PasswordHash string
	CreatedAt    time.Time
}

// CreatedAtLayout is the timestamp layout persisted for users.
const CreatedAtLayout = "2006-01-02 15:04:05"

// RegisterParams contains parameters to register a user.
type RegisterParams struct {
	Name        string
	Affiliation string
	Username    string
	Password    string
}

// ChangePasswordParams contains parameters to change a password.
type ChangePasswordParams struct {
	Name            string
	Username        string
	CurrentPassword string
	NewPassword     string
}
