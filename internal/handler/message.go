package handler

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/kisara-app/kisara-api/internal/middleware"
	"github.com/kisara-app/kisara-api/internal/model"
	"github.com/kisara-app/kisara-api/internal/queue"
	"github.com/kisara-app/kisara-api/internal/repository"
	"github.com/kisara-app/kisara-api/internal/utils"
)

// maxContentRunes bounds message and reply bodies.
const maxContentRunes = 500

// MessageHandler serves the anonymous inbox: posting, reading, replying,
// liking and deleting messages under a public link id.
type MessageHandler struct {
	Users     UserStore
	Comments  CommentStore
	Replies   ReplyStore
	Publisher EventPublisher
}

func NewMessageHandler(users UserStore, comments CommentStore, replies ReplyStore, pub EventPublisher) *MessageHandler {
	return &MessageHandler{Users: users, Comments: comments, Replies: replies, Publisher: pub}
}

// ----- DTOs -----

type contentReq struct {
	MessageContent string `json:"message_content"`
}

type commentPart struct {
	ID             string `json:"id"`
	MessageContent string `json:"message_content"`
	LikeByCreator  bool   `json:"like_by_creator"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type replyPart struct {
	ID             string `json:"id"`
	CommentID      string `json:"comment_id"`
	MessageContent string `json:"message_content"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type profilePart struct {
	Name       string `json:"name"`
	LinkID     string `json:"link_id"`
	ProfileURL string `json:"profile_url"`
}

type pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"total_pages"`
}

func toCommentPart(c model.Comment) commentPart {
	return commentPart{
		ID:             c.ID,
		MessageContent: c.MessageContent,
		LikeByCreator:  c.LikeByCreator,
		CreatedAt:      c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toReplyPart(r model.ReplyComment) replyPart {
	return replyPart{
		ID:             r.ID,
		CommentID:      r.CommentID,
		MessageContent: r.MessageContent,
		CreatedAt:      r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func newPagination(total int64, page, limit int) pagination {
	return pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int64(math.Ceil(float64(total) / float64(limit))),
	}
}

// parsePageQuery reads sortBy/page/limit with the feed defaults: newest
// first, page 1, 10 items. Values below 1 are clamped to the default.
func parsePageQuery(c echo.Context) (sort string, page, limit int) {
	sort = c.QueryParam("sortBy")
	if sort != "asc" {
		sort = "desc"
	}
	page = 1
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v >= 1 {
		page = v
	}
	limit = 10
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v >= 1 {
		limit = v
	}
	return sort, page, limit
}

func validateContent(content string) []utils.FieldError {
	n := utf8.RuneCountInString(content)
	switch {
	case n == 0:
		return []utils.FieldError{{Field: "message_content", Message: "message_content is required"}}
	case n > maxContentRunes:
		return []utils.FieldError{{Field: "message_content", Message: "message_content must be at most 500 characters"}}
	}
	return nil
}

// Post creates an anonymous message in the inbox behind :link_id and
// fires a message.received event for the notification consumer.
func (h *MessageHandler) Post(c echo.Context) error {
	var req contentReq
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if fields := validateContent(req.MessageContent); fields != nil {
		return utils.Fail(c, http.StatusBadRequest, "Validation failed", fields...)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	owner, err := h.Users.GetByLinkID(ctx, c.Param("link_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "User not found")
		}
		return utils.Fail(c, http.StatusInternalServerError, "Failed to send message")
	}

	comment, err := h.Comments.Create(ctx, owner.ID, owner.Email, req.MessageContent)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to send message")
	}

	// Best effort: the write path never waits on the broker.
	if h.Publisher != nil {
		event := queue.MessageReceivedEvent{
			MessageID:      comment.ID,
			LinkID:         owner.LinkID,
			RecipientEmail: owner.Email,
			Content:        comment.MessageContent,
			CreatedAt:      comment.CreatedAt.UTC().Format(time.RFC3339),
		}
		go func() {
			pubCtx, pubCancel := context.WithTimeout(context.Background(), dbTimeout)
			defer pubCancel()
			if err := h.Publisher.PublishMessageReceived(pubCtx, event); err != nil {
				log.Printf("message: publish failed for comment %s: %v", comment.ID, err)
			}
		}()
	}

	return utils.OK(c, http.StatusCreated, "Message sent successfully", toCommentPart(comment))
}

// List returns a page of the inbox feed with the owner's public profile.
// The feed is readable by anyone holding the link.
func (h *MessageHandler) List(c echo.Context) error {
	sort, page, limit := parsePageQuery(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	owner, err := h.Users.GetByLinkID(ctx, c.Param("link_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "User not found")
		}
		return utils.Fail(c, http.StatusInternalServerError, "Failed to load messages")
	}

	comments, total, err := h.Comments.ListByRecipient(ctx, owner.Email, sort, page, limit)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to load messages")
	}

	items := make([]commentPart, 0, len(comments))
	for _, cm := range comments {
		items = append(items, toCommentPart(cm))
	}
	return utils.OK(c, http.StatusOK, "Messages retrieved successfully", echo.Map{
		"user":       profilePart{Name: owner.Name, LinkID: owner.LinkID, ProfileURL: owner.ProfileURL},
		"comments":   items,
		"pagination": newPagination(total, page, limit),
	})
}

// ListReplies returns a page of replies under one message. Reads are
// anonymous, but the parent must exist and belong to the link's owner.
func (h *MessageHandler) ListReplies(c echo.Context) error {
	sort, page, limit := parsePageQuery(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	comment, err := h.commentUnderLink(ctx, c.Param("link_id"), c.Param("message_id"))
	if err != nil {
		return threadFail(c, err, "Failed to load replies")
	}

	replies, total, err := h.Replies.ListByComment(ctx, comment.ID, sort, page, limit)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to load replies")
	}

	items := make([]replyPart, 0, len(replies))
	for _, r := range replies {
		items = append(items, toReplyPart(r))
	}
	return utils.OK(c, http.StatusOK, "Replies retrieved successfully", echo.Map{
		"comment":    toCommentPart(comment),
		"replies":    items,
		"pagination": newPagination(total, page, limit),
	})
}

// Delete removes a message and all of its replies. Only the recipient may
// delete, and the delete is atomic across the comment and its replies.
func (h *MessageHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	comment, err := h.ownedComment(ctx, c)
	if err != nil {
		return threadFail(c, err, "Failed to delete message")
	}
	if err := h.Comments.DeleteCascade(ctx, comment.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Message not found")
		}
		return utils.Fail(c, http.StatusInternalServerError, "Failed to delete message")
	}
	return utils.OK(c, http.StatusOK, "Message deleted successfully", nil)
}

// Reply creates the recipient's reply under one of their messages.
func (h *MessageHandler) Reply(c echo.Context) error {
	var req contentReq
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if fields := validateContent(req.MessageContent); fields != nil {
		return utils.Fail(c, http.StatusBadRequest, "Validation failed", fields...)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	comment, err := h.ownedComment(ctx, c)
	if err != nil {
		return threadFail(c, err, "Failed to send reply")
	}
	reply, err := h.Replies.Create(ctx, comment.ID, req.MessageContent)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to send reply")
	}
	return utils.OK(c, http.StatusCreated, "Reply sent successfully", toReplyPart(reply))
}

// DeleteReply removes one reply. The reply must hang off the message in
// the path, so a valid reply id cannot be used against another thread.
func (h *MessageHandler) DeleteReply(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	comment, err := h.ownedComment(ctx, c)
	if err != nil {
		return threadFail(c, err, "Failed to delete reply")
	}

	reply, err := h.Replies.GetByID(ctx, c.Param("reply_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Reply not found")
		}
		return utils.Fail(c, http.StatusInternalServerError, "Failed to delete reply")
	}
	if reply.CommentID != comment.ID {
		return utils.Fail(c, http.StatusNotFound, "Reply not found")
	}

	if err := h.Replies.Delete(ctx, reply.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "Reply not found")
		}
		return utils.Fail(c, http.StatusInternalServerError, "Failed to delete reply")
	}
	return utils.OK(c, http.StatusOK, "Reply deleted successfully", nil)
}

// Like toggles like_by_creator. Only the recipient may mark a message as
// a favorite; there is no liking of other people's inboxes.
func (h *MessageHandler) Like(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	comment, err := h.ownedComment(ctx, c)
	if err != nil {
		return threadFail(c, err, "Failed to update like")
	}

	liked := !comment.LikeByCreator
	if err := h.Comments.SetLike(ctx, comment.ID, liked); err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to update like")
	}
	comment.LikeByCreator = liked
	return utils.OK(c, http.StatusOK, "Like updated successfully", toCommentPart(comment))
}

// commentUnderLink resolves :link_id and :message_id together, requiring
// the message to actually sit in that link's inbox.
func (h *MessageHandler) commentUnderLink(ctx context.Context, linkID, messageID string) (model.Comment, error) {
	owner, err := h.Users.GetByLinkID(ctx, linkID)
	if err != nil {
		return model.Comment{}, err
	}
	comment, err := h.Comments.GetByID(ctx, messageID)
	if err != nil {
		return model.Comment{}, err
	}
	if comment.UserEmail != owner.Email {
		return model.Comment{}, repository.ErrNotFound
	}
	return comment, nil
}

// ownedComment resolves the path pair and enforces the ownership gate:
// the authenticated requester must be the message's recipient.
func (h *MessageHandler) ownedComment(ctx context.Context, c echo.Context) (model.Comment, error) {
	comment, err := h.commentUnderLink(ctx, c.Param("link_id"), c.Param("message_id"))
	if err != nil {
		return model.Comment{}, err
	}
	email, _ := c.Get(middleware.ContextEmail).(string)
	if email == "" || comment.UserEmail != email {
		return model.Comment{}, repository.ErrForbidden
	}
	return comment, nil
}

// threadFail maps thread lookup errors to the wire envelope. The gate
// never leaks whether a message exists in someone else's inbox.
func threadFail(c echo.Context, err error, internalMsg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return utils.Fail(c, http.StatusNotFound, "Message not found")
	case errors.Is(err, repository.ErrForbidden):
		return utils.Fail(c, http.StatusForbidden, "You do not have access to this message")
	}
	return utils.Fail(c, http.StatusInternalServerError, internalMsg)
}
