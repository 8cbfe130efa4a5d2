package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/kisara-app/kisara-api/internal/model"
	"github.com/kisara-app/kisara-api/internal/utils"
)

const mysqlDupEntry = 1062

// UserRepo persists users and owns link-id assignment.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,name,link_id,role,profile_url,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.LinkID, &u.Role, &u.ProfileURL, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByLinkID resolves a public inbox token to its owner.
func (r *UserRepo) GetByLinkID(ctx context.Context, linkID string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE link_id=? LIMIT 1", linkID))
}

// FindOrCreate returns the user for email, creating the account on first
// login. New accounts get a fresh unique link id and role USER. Existing
// accounts have name/profile_url refreshed in place; email, link_id and
// role are never touched. A lost unique-constraint race on email is
// resolved by retrying the lookup once, then surfaced as ErrConflict.
func (r *UserRepo) FindOrCreate(ctx context.Context, email, name, picture string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := r.GetByEmail(ctx, email)
	if err == nil {
		if u.Name != name || u.ProfileURL != picture {
			if _, err := r.DB.ExecContext(ctx,
				"UPDATE users SET name=?, profile_url=?, updated_at=NOW() WHERE id=?",
				name, picture, u.ID); err != nil {
				return model.User{}, err
			}
			u.Name, u.ProfileURL = name, picture
		}
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return model.User{}, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		linkID, err := r.uniqueLinkID(ctx)
		if err != nil {
			return model.User{}, err
		}
		id := uuid.NewString()
		now := time.Now().UTC()
		_, err = r.DB.ExecContext(ctx,
			"INSERT INTO users (id,email,name,link_id,role,profile_url,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)",
			id, email, name, linkID, model.RoleUser, picture, now, now)
		if err == nil {
			return model.User{
				ID: id, Email: email, Name: name, LinkID: linkID,
				Role: model.RoleUser, ProfileURL: picture,
				CreatedAt: now, UpdatedAt: now,
			}, nil
		}
		if !isDupEntry(err) {
			return model.User{}, err
		}
		// Either a concurrent first login for the same email won, or the
		// link id draw collided between check and insert. The lookup
		// settles the first case; a redraw handles the second.
		if u, lookErr := r.GetByEmail(ctx, email); lookErr == nil {
			return u, nil
		}
	}
	return model.User{}, ErrConflict
}

// UpdateName changes the display name only.
func (r *UserRepo) UpdateName(ctx context.Context, id, name string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, updated_at=NOW() WHERE id=?", name, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of users.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// uniqueLinkID draws random link ids until one is free. Expected O(1)
// iterations at this keyspace; the loop, not the draw, is the uniqueness
// mechanism.
func (r *UserRepo) uniqueLinkID(ctx context.Context) (string, error) {
	for {
		linkID, err := utils.GenerateLinkID()
		if err != nil {
			return "", err
		}
		var n int
		if err := r.DB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM users WHERE link_id=?", linkID).Scan(&n); err != nil {
			return "", err
		}
		if n == 0 {
			return linkID, nil
		}
	}
}

func isDupEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDupEntry
}
