package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/kisara-app/kisara-api/internal/middleware"
	"github.com/kisara-app/kisara-api/internal/repository"
	"github.com/kisara-app/kisara-api/internal/utils"
)

// maxNameRunes bounds the display name on profile updates.
const maxNameRunes = 100

// UserHandler serves the authenticated user's own profile.
type UserHandler struct {
	Users UserStore
}

func NewUserHandler(users UserStore) *UserHandler {
	return &UserHandler{Users: users}
}

type updateNameReq struct {
	Name string `json:"name"`
}

// Profile returns the caller's profile, including the shareable link id.
func (h *UserHandler) Profile(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	email, _ := c.Get(middleware.ContextEmail).(string)
	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "User not found")
		}
		return utils.Fail(c, http.StatusInternalServerError, "Failed to load profile")
	}
	return utils.OK(c, http.StatusOK, "Profile retrieved successfully", userPart{
		ID: u.ID, Email: u.Email, Name: u.Name,
		LinkID: u.LinkID, ProfileURL: u.ProfileURL, Role: u.Role,
	})
}

// UpdateName changes the caller's display name. Email, link_id and role
// are immutable.
func (h *UserHandler) UpdateName(c echo.Context) error {
	var req updateNameReq
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > maxNameRunes {
		return utils.Fail(c, http.StatusBadRequest, "Validation failed",
			utils.FieldError{Field: "name", Message: "name must be between 1 and 100 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	userID, _ := c.Get(middleware.ContextUserID).(string)
	if err := h.Users.UpdateName(ctx, userID, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.Fail(c, http.StatusNotFound, "User not found")
		}
		return utils.Fail(c, http.StatusInternalServerError, "Failed to update profile")
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to update profile")
	}
	return utils.OK(c, http.StatusOK, "Profile updated successfully", userPart{
		ID: u.ID, Email: u.Email, Name: u.Name,
		LinkID: u.LinkID, ProfileURL: u.ProfileURL, Role: u.Role,
	})
}
