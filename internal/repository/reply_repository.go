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

// ReplyRepo persists the recipient's replies under their comments.
type ReplyRepo struct{ DB *sql.DB }

func NewReplyRepo(db *sql.DB) *ReplyRepo { return &ReplyRepo{DB: db} }

const replyColumns = "id,comment_id,message_content,created_at,updated_at"

// Create inserts a reply under the given parent comment.
func (r *ReplyRepo) Create(ctx context.Context, commentID, content string) (model.ReplyComment, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO reply_comments (id,comment_id,message_content,created_at,updated_at) VALUES (?,?,?,?,?)",
		id, commentID, content, now, now)
	if err != nil {
		return model.ReplyComment{}, err
	}
	return model.ReplyComment{
		ID: id, CommentID: commentID, MessageContent: content,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

// GetByID fetches a single reply.
func (r *ReplyRepo) GetByID(ctx context.Context, id string) (model.ReplyComment, error) {
	var rc model.ReplyComment
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+replyColumns+" FROM reply_comments WHERE id=? LIMIT 1", id).
		Scan(&rc.ID, &rc.CommentID, &rc.MessageContent, &rc.CreatedAt, &rc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rc, ErrNotFound
	}
	return rc, err
}

// ListByComment returns one page of replies under a parent comment plus
// the total count; same pagination contract as the comment feed.
func (r *ReplyRepo) ListByComment(ctx context.Context, commentID, sort string, page, limit int) ([]model.ReplyComment, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reply_comments WHERE comment_id=?", commentID).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	q := fmt.Sprintf("SELECT "+replyColumns+" FROM reply_comments WHERE comment_id=? ORDER BY created_at %s LIMIT ? OFFSET ?",
		sortDirection(sort))
	rows, err := r.DB.QueryContext(ctx, q, commentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.ReplyComment, 0, limit)
	for rows.Next() {
		var rc model.ReplyComment
		if err := rows.Scan(&rc.ID, &rc.CommentID, &rc.MessageContent, &rc.CreatedAt, &rc.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Delete removes a single reply.
func (r *ReplyRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM reply_comments WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of replies.
func (r *ReplyRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM reply_comments").Scan(&n)
	return n, err
}
