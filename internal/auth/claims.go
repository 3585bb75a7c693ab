package auth

import (
	"fmt"
	"time"

	"eventease/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of tokens minted by the backend's /login.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims decodes a backend JWT without verifying its signature. The
// signing key belongs to the backend, which verifies tokens on every call.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token claims: %w", err)
	}
	return claims, nil
}

// IdentityFromToken builds a session identity from backend claims.
func IdentityFromToken(token string) (models.Identity, error) {
	claims, err := ParseClaims(token)
	if err != nil {
		return models.Identity{}, err
	}
	if claims.Subject == "" {
		return models.Identity{}, fmt.Errorf("decode token claims: missing subject")
	}
	return models.Identity{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
		Role:  claims.Role,
	}.WithDefaults(), nil
}

// TokenExpiry reads the exp claim. Opaque or exp-less tokens report false.
func TokenExpiry(token string) (time.Time, bool) {
	claims, err := ParseClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
