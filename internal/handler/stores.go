// Package handler implements the HTTP endpoints. Handlers depend on
// narrow store interfaces rather than concrete repositories so tests can
// run against in-memory fakes; the repository types satisfy them.
package handler

import (
	"context"
	"time"

	"github.com/kisara-app/kisara-api/internal/auth"
	"github.com/kisara-app/kisara-api/internal/model"
	"github.com/kisara-app/kisara-api/internal/queue"
)

// dbTimeout bounds every storage round-trip made from a handler.
const dbTimeout = 5 * time.Second

// UserStore is the user directory as seen by handlers.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByLinkID(ctx context.Context, linkID string) (model.User, error)
	FindOrCreate(ctx context.Context, email, name, picture string) (model.User, error)
	UpdateName(ctx context.Context, id, name string) error
	Count(ctx context.Context) (int64, error)
}

// CommentStore owns the anonymous message lifecycle.
type CommentStore interface {
	Create(ctx context.Context, userID, userEmail, content string) (model.Comment, error)
	GetByID(ctx context.Context, id string) (model.Comment, error)
	ListByRecipient(ctx context.Context, email, sort string, page, limit int) ([]model.Comment, int64, error)
	DeleteCascade(ctx context.Context, id string) error
	SetLike(ctx context.Context, id string, liked bool) error
	Count(ctx context.Context) (int64, error)
}

// ReplyStore owns replies under a comment.
type ReplyStore interface {
	Create(ctx context.Context, commentID, content string) (model.ReplyComment, error)
	GetByID(ctx context.Context, id string) (model.ReplyComment, error)
	ListByComment(ctx context.Context, commentID, sort string, page, limit int) ([]model.ReplyComment, int64, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
	Store(ctx context.Context, userID, tokenHash string, exp time.Time) error
	Validate(ctx context.Context, tokenHash string) (string, error)
	Revoke(ctx context.Context, tokenHash string) error
}

// IdentityResolver is the external identity provider boundary.
type IdentityResolver interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (auth.Profile, error)
	VerifyIDToken(ctx context.Context, idToken string) (auth.Profile, error)
}

// EventPublisher emits broker events off the write path.
type EventPublisher interface {
	PublishMessageReceived(ctx context.Context, event queue.MessageReceivedEvent) error
}
