// Package identity talks to the hosted identity provider: password and
// Google sign-in, registration, reset emails and password updates.
package identity

import (
	"context"
	"errors"
)

// PasswordProvider is the provider id of an email/password credential
const PasswordProvider = "password"

// Auth errors carry user-facing text and are shown as-is
var (
	ErrInvalidCredentials  = errors.New("Invalid email or password.")
	ErrEmailExists         = errors.New("An account with this email already exists.")
	ErrWeakPassword        = errors.New("Password should be at least 6 characters.")
	ErrTooManyAttempts     = errors.New("Too many attempts. Please try again later.")
	ErrUserDisabled        = errors.New("This account has been disabled.")
	ErrRequiresRecentLogin = errors.New("For security, please sign out and sign in again before setting a password.")
	ErrInvalidToken        = errors.New("Your session has expired. Please sign in again.")
)

// Identity is an authenticated user as the provider sees them
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	IDToken     string
	Providers   []string
}

// HasPassword reports whether a password credential is linked
func (i *Identity) HasPassword() bool {
	for _, p := range i.Providers {
		if p == PasswordProvider {
			return true
		}
	}
	return false
}

// Provider is the identity provider surface the auth flow consumes
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignInWithGoogle(ctx context.Context, googleIDToken string) (*Identity, error)
	SendPasswordReset(ctx context.Context, email string) error
	// UpdatePassword attaches or replaces the password credential and
	// returns the refreshed ID token
	UpdatePassword(ctx context.Context, idToken, password string) (string, error)
	Verify(ctx context.Context, idToken string) (*Identity, error)
}
