package domain

import (
	"context"
	"errors"
	"time"
)

// ErrUserExists is returned when the username or email is already registered.
var ErrUserExists = errors.New("user already exists")

// User is a registered account. PasswordHash never leaves the service layer.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	// FindUser looks the user up by email or username; nil when absent.
	FindUser(ctx context.Context, identifier string) (*User, error)
}
