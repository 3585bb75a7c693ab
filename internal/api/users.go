package api

import (
	"context"
	"net/http"

	"eventease/internal/models"
)

// TokenResponse is returned by /auth/validate and /login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Health pings the backend.
func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var h models.Health
	if err := c.do(ctx, request{op: "health", method: http.MethodGet, path: "/health"}, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateUser signs up a new account.
func (c *Client) CreateUser(ctx context.Context, u models.NewUser) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, request{op: "create_user", method: http.MethodPost, path: "/users/", body: u}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns all users.
func (c *Client) ListUsers(ctx context.Context, token string) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, request{op: "list_users", method: http.MethodGet, path: "/users/", token: token}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ValidateIdentity exchanges a session identity for a backend access token.
func (c *Client) ValidateIdentity(ctx context.Context, id models.Identity) (*TokenResponse, error) {
	var tr TokenResponse
	req := request{op: "validate_identity", method: http.MethodPost, path: "/auth/validate", body: id.WithDefaults()}
	if err := c.do(ctx, req, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// Login checks email/password against the backend and returns its token.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var tr TokenResponse
	if err := c.do(ctx, request{op: "login", method: http.MethodPost, path: "/login", body: body}, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}
