package model

import "time"

// Roles stored in users.role.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// User represents an account row in the `users` table, joined with
// its customer_profiles row.  Customer accounts may be created
// automatically at booking time, in which case the email is marked
// verified and the password is random until reset.  Email is stored
// lower-cased.
type User struct {
	ID            uint64
	Email         string
	PasswordHash  string
	Role          string
	FullName      string
	Phone         string
	EmailVerified bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
