package model

import "time"

// Role names stored in the `users.role` column. Almost every account is a
// plain USER; the remaining roles exist for partner integrations, automated
// accounts and moderation.
const (
	RoleUser    = "USER"
	RolePartner = "PARTNER"
	RoleBot     = "BOT"
	RoleAdmin   = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table. Accounts are created on first Google login; email, link_id and
// role never change after creation, while name and profile_url are
// refreshed from the identity provider on every login.
//
// Fields:
//  ID         – UUID primary key.
//  Email      – unique, lowercased email address.
//  Name       – display name from the identity provider.
//  LinkID     – unique public inbox token ([a-z0-9], fixed length).
//  Role       – one of the Role* constants.
//  ProfileURL – avatar URL from the identity provider (may be empty).
//  CreatedAt  – timestamp of creation.
//  UpdatedAt  – timestamp of last update.
type User struct {
	ID         string    // users.id
	Email      string    // users.email
	Name       string    // users.name
	LinkID     string    // users.link_id
	Role       string    // users.role
	ProfileURL string    // users.profile_url
	CreatedAt  time.Time // users.created_at
	UpdatedAt  time.Time // users.updated_at
}
