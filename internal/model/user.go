package model

import "time"

// Role names stored in users.role and carried in the JWT "role" claim.
const (
	RoleUser   = "USER"
	RoleAuthor = "AUTHOR"
	RoleAdmin  = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table.  The json tags are omitted because these structs are
// used by the repository layer; handlers define their own response types.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name.
//	NPM          – student registration number, unique.
//	Email        – unique email address.
//	Prodi        – study programme.
//	PasswordHash – bcrypt hashed password.
//	Role         – USER, AUTHOR or ADMIN.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	NPM          string    // users.npm
	Email        string    // users.email
	Prodi        string    // users.prodi
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token handed to the client is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
