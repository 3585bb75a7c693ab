package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eventease/internal/api"
	"eventease/internal/config"
	"eventease/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown email or wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Authenticator checks sign-in credentials and yields a session identity.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (models.Identity, error)
}

// LoginBackend is the backend call behind BackendAuthenticator.
type LoginBackend interface {
	Login(ctx context.Context, email, password string) (*api.TokenResponse, error)
}

// BackendAuthenticator signs in against the backend's /login endpoint.
type BackendAuthenticator struct {
	backend LoginBackend
}

func NewBackendAuthenticator(backend LoginBackend) *BackendAuthenticator {
	return &BackendAuthenticator{backend: backend}
}

func (a *BackendAuthenticator) Authenticate(ctx context.Context, email, password string) (models.Identity, error) {
	resp, err := a.backend.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		var he *api.HTTPError
		if errors.As(err, &he) && he.StatusCode >= 400 && he.StatusCode < 500 {
			return models.Identity{}, fmt.Errorf("%w: %s", ErrInvalidCredentials, he.Detail)
		}
		return models.Identity{}, fmt.Errorf("sign in: %w", err)
	}
	return IdentityFromToken(resp.AccessToken)
}

// StaticAuthenticator checks credentials against configured accounts with
// bcrypt password hashes.
type StaticAuthenticator struct {
	users map[string]config.StaticUser
}

func NewStaticAuthenticator(users []config.StaticUser) *StaticAuthenticator {
	m := make(map[string]config.StaticUser, len(users))
	for _, u := range users {
		m[strings.ToLower(u.Email)] = u
	}
	return &StaticAuthenticator{users: m}
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, email, password string) (models.Identity, error) {
	u, ok := a.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return models.Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.Identity{}, ErrInvalidCredentials
	}
	return models.Identity{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}.WithDefaults(), nil
}

// HashPassword produces a hash suitable for config.StaticUser.PasswordHash.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
