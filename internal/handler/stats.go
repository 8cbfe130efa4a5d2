package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kisara-app/kisara-api/internal/utils"
)

// StatsHandler exposes public aggregate counters.
type StatsHandler struct {
	Users    UserStore
	Comments CommentStore
	Replies  ReplyStore
}

func NewStatsHandler(users UserStore, comments CommentStore, replies ReplyStore) *StatsHandler {
	return &StatsHandler{Users: users, Comments: comments, Replies: replies}
}

// Stats returns total users, messages and replies.
func (h *StatsHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	users, err := h.Users.Count(ctx)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to load stats")
	}
	comments, err := h.Comments.Count(ctx)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to load stats")
	}
	replies, err := h.Replies.Count(ctx)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to load stats")
	}

	return utils.OK(c, http.StatusOK, "Stats retrieved successfully", echo.Map{
		"user_count":    users,
		"comment_count": comments,
		"reply_count":   replies,
	})
}
