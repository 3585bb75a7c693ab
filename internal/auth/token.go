package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eventease/internal/api"
	"eventease/internal/models"

	"golang.org/x/oauth2"
)

// TokenProvider turns a session identity into a backend access token.
type TokenProvider interface {
	Token(ctx context.Context, id models.Identity) (*oauth2.Token, error)
}

// Validator is the backend call behind BackendExchanger.
type Validator interface {
	ValidateIdentity(ctx context.Context, id models.Identity) (*api.TokenResponse, error)
}

// BackendExchanger performs the /auth/validate exchange on every call.
type BackendExchanger struct {
	backend Validator
}

// NewBackendExchanger returns a provider that never caches.
func NewBackendExchanger(backend Validator) *BackendExchanger {
	return &BackendExchanger{backend: backend}
}

// Token exchanges id for a fresh backend token.
func (e *BackendExchanger) Token(ctx context.Context, id models.Identity) (*oauth2.Token, error) {
	resp, err := e.backend.ValidateIdentity(ctx, id.WithDefaults())
	if err != nil {
		return nil, fmt.Errorf("exchange session for backend token: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("exchange session for backend token: empty access token")
	}
	tok := &oauth2.Token{AccessToken: resp.AccessToken, TokenType: resp.TokenType}
	if exp, ok := TokenExpiry(resp.AccessToken); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

// CachingProvider reuses tokens per identity for at most TTL, and never past
// the token's own expiry.
type CachingProvider struct {
	next   TokenProvider
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	cache map[models.Identity]cachedToken
}

type cachedToken struct {
	token   *oauth2.Token
	validTo time.Time
}

// NewCachingProvider wraps next. A ttl <= 0 returns next unchanged.
func NewCachingProvider(logger *slog.Logger, next TokenProvider, ttl time.Duration) TokenProvider {
	if ttl <= 0 {
		return next
	}
	return &CachingProvider{
		next:   next,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
		cache:  make(map[models.Identity]cachedToken),
	}
}

// Token returns a cached token for id or fetches a new one.
func (c *CachingProvider) Token(ctx context.Context, id models.Identity) (*oauth2.Token, error) {
	id = id.WithDefaults()
	now := c.now()

	c.mu.Lock()
	if ct, ok := c.cache[id]; ok && now.Before(ct.validTo) {
		c.mu.Unlock()
		c.logger.Debug("Reusing cached backend token", "userID", id.ID)
		return ct.token, nil
	}
	c.mu.Unlock()

	tok, err := c.next.Token(ctx, id)
	if err != nil {
		return nil, err
	}
	validTo := now.Add(c.ttl)
	if !tok.Expiry.IsZero() && tok.Expiry.Before(validTo) {
		validTo = tok.Expiry
	}

	c.mu.Lock()
	c.cache[id] = cachedToken{token: tok, validTo: validTo}
	c.mu.Unlock()
	return tok, nil
}

// Forget drops any cached token for id.
func (c *CachingProvider) Forget(id models.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, id.WithDefaults())
}

// TokenSource binds a provider and identity into an oauth2.TokenSource.
func TokenSource(ctx context.Context, p TokenProvider, id models.Identity) oauth2.TokenSource {
	return tokenSourceFunc(func() (*oauth2.Token, error) { return p.Token(ctx, id) })
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }
