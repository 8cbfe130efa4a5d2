package model

import (
	"database/sql"
	"time"
)

// RefreshToken models an entry in the `refresh_tokens` table. Each token
// belongs to a user; a user may hold several at once (one per device).
// The plain token is never stored — only its SHA-256 hex digest. A token
// is usable iff RevokedAt is null and ExpiresAt is in the future.
//
// Fields:
//  ID        – UUID primary key.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the raw token value.
//  ExpiresAt – expiration timestamp.
//  RevokedAt – when the token was revoked (null while active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        string       // refresh_tokens.id
	UserID    string       // refresh_tokens.user_id
	TokenHash string       // refresh_tokens.token_hash
	ExpiresAt time.Time    // refresh_tokens.expires_at
	RevokedAt sql.NullTime // refresh_tokens.revoked_at
	CreatedAt time.Time    // refresh_tokens.created_at
}
