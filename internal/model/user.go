package model

import "time"

// Role names stored in users.role and carried in the "role" JWT claim.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is an account that can own programs.  Administrators may read and
// edit every program; they are created by the admin CLI, never through
// registration.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email, stored lowercase
	PasswordHash string    // users.password_hash (bcrypt)
	Role         string    // RoleUser or RoleAdmin
	IsActive     bool      // inactive accounts cannot log in
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RefreshToken mirrors a refresh_tokens row.  Only the SHA-256 hex digest
// of the raw token is persisted.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time // nil while the token is usable
	CreatedAt time.Time
}

// Usable reports whether the token is neither revoked nor expired at now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
