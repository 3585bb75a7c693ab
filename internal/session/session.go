package session

import (
	"context"
	"errors"
	"fmt"

	"eventease/internal/auth"
	"eventease/internal/models"

	"golang.org/x/oauth2"
)

// ErrNoSession is returned when an authorized action runs without a session.
var ErrNoSession = errors.New("not signed in")

// Session is the signed-in user plus the token bridge used for authorized
// calls. It is handed to each controller explicitly; a nil *Session is an
// anonymous visitor.
type Session struct {
	Identity models.Identity
	Tokens   auth.TokenProvider
}

// New creates a session for identity.
func New(identity models.Identity, tokens auth.TokenProvider) *Session {
	return &Session{Identity: identity.WithDefaults(), Tokens: tokens}
}

// Authenticated reports whether s carries an identity.
func (s *Session) Authenticated() bool {
	return s != nil && s.Identity.ID != ""
}

// UserID is the identity id, or "" for anonymous sessions.
func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.Identity.ID
}

// AccessToken exchanges the identity for a backend token. The exchange runs
// on every call unless Tokens caches.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	if !s.Authenticated() {
		return "", ErrNoSession
	}
	if s.Tokens == nil {
		return "", fmt.Errorf("session has no token provider")
	}
	tok, err := s.Tokens.Token(ctx, s.Identity)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// TokenSource adapts the session for oauth2-aware callers.
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	return auth.TokenSource(ctx, s.Tokens, s.Identity)
}
