package models

import "time"

// DefaultRole is assigned when an identity carries no role.
const DefaultRole = "USER"

// Identity is the locally held session identity.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// WithDefaults fills in the default role.
func (i Identity) WithDefaults() Identity {
	if i.Role == "" {
		i.Role = DefaultRole
	}
	return i
}

// DisplayName prefers the name and falls back to the email.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Email
}

// User is a backend user record.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// NewUser is the sign-up payload.
type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Health is the backend health response.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
