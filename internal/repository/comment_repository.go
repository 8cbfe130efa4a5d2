package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kisara-app/kisara-api/internal/model"
)

// CommentRepo persists anonymous inbox messages.
type CommentRepo struct{ DB *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{DB: db} }

const commentColumns = "id,user_id,user_email,message_content,like_by_creator,created_at,updated_at"

// Create inserts a comment addressed to the given recipient. The
// recipient's email is denormalized onto the row so later ownership
// checks need no join.
func (r *CommentRepo) Create(ctx context.Context, userID, userEmail, content string) (model.Comment, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (id,user_id,user_email,message_content,like_by_creator,created_at,updated_at) VALUES (?,?,?,?,FALSE,?,?)",
		id, userID, userEmail, content, now, now)
	if err != nil {
		return model.Comment{}, err
	}
	return model.Comment{
		ID: id, UserID: userID, UserEmail: userEmail,
		MessageContent: content, CreatedAt: now, UpdatedAt: now,
	}, nil
}

// GetByID fetches a single comment.
func (r *CommentRepo) GetByID(ctx context.Context, id string) (model.Comment, error) {
	var cm model.Comment
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE id=? LIMIT 1", id).
		Scan(&cm.ID, &cm.UserID, &cm.UserEmail, &cm.MessageContent, &cm.LikeByCreator, &cm.CreatedAt, &cm.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return cm, ErrNotFound
	}
	return cm, err
}

// ListByRecipient returns one page of a recipient's inbox ordered by
// created_at, plus the total matching count independent of the window.
func (r *CommentRepo) ListByRecipient(ctx context.Context, email, sort string, page, limit int) ([]model.Comment, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM comments WHERE user_email=?", email).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	q := fmt.Sprintf("SELECT "+commentColumns+" FROM comments WHERE user_email=? ORDER BY created_at %s LIMIT ? OFFSET ?",
		sortDirection(sort))
	rows, err := r.DB.QueryContext(ctx, q, email, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Comment, 0, limit)
	for rows.Next() {
		var cm model.Comment
		if err := rows.Scan(&cm.ID, &cm.UserID, &cm.UserEmail, &cm.MessageContent, &cm.LikeByCreator, &cm.CreatedAt, &cm.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, cm)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DeleteCascade removes a comment and all of its replies in one
// transaction, so a failed delete never strands orphaned replies.
func (r *CommentRepo) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM reply_comments WHERE comment_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// SetLike stores the recipient's favorite flag.
func (r *CommentRepo) SetLike(ctx context.Context, id string, liked bool) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE comments SET like_by_creator=?, updated_at=NOW() WHERE id=?", liked, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of comments.
func (r *CommentRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&n)
	return n, err
}

// sortDirection maps a client sort value onto a SQL keyword. Anything but
// "asc" sorts newest-first.
func sortDirection(sort string) string {
	if sort == "asc" {
		return "ASC"
	}
	return "DESC"
}
