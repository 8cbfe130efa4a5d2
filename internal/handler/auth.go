package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kisara-app/kisara-api/internal/auth"
	"github.com/kisara-app/kisara-api/internal/config"
	"github.com/kisara-app/kisara-api/internal/model"
	"github.com/kisara-app/kisara-api/internal/repository"
	"github.com/kisara-app/kisara-api/internal/utils"
)

// AuthHandler bundles dependencies for the Google login endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Tokens   TokenStore
	Resolver IdentityResolver
}

func NewAuthHandler(cfg config.Config, users UserStore, tokens TokenStore, resolver IdentityResolver) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens, Resolver: resolver}
}

// ----- DTOs -----

type callbackReq struct {
	Code  string `json:"code"`
	State string `json:"state"`
}
type mobileLoginReq struct {
	IDToken string `json:"id_token"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type userPart struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	LinkID     string `json:"link_id"`
	ProfileURL string `json:"profile_url"`
	Role       string `json:"role"`
}

// GoogleURL returns the provider consent URL with a fresh opaque state.
func (h *AuthHandler) GoogleURL(c echo.Context) error {
	state, err := utils.GenerateState(13)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to generate Google URL")
	}
	return utils.OK(c, http.StatusOK, "Google URL generated successfully", echo.Map{
		"url": h.Resolver.AuthURL(state),
	})
}

// GoogleCallback exchanges a web authorization code, upserts the user and
// returns a short-lived access token.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	var req callbackReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		return utils.Fail(c, http.StatusBadRequest, "Validation failed",
			utils.FieldError{Field: "code", Message: "code is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	profile, err := h.Resolver.ExchangeCode(ctx, req.Code)
	if err != nil {
		return utils.Fail(c, http.StatusUnauthorized, "Google login failed")
	}

	user, err := h.upsertUser(ctx, profile)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return utils.Fail(c, http.StatusConflict, "Account already being created")
		}
		return utils.Fail(c, http.StatusInternalServerError, "Failed to process Google callback")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, user.Email, user.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to issue access token")
	}
	return utils.OK(c, http.StatusOK, "Google login successful", echo.Map{
		"access_token": access.Token,
		"expires_in":   h.Cfg.AccessTTLMin * 60,
	})
}

// GoogleMobile verifies a mobile ID token, upserts the user and returns a
// full access+refresh token pair with the public profile.
func (h *AuthHandler) GoogleMobile(c echo.Context) error {
	var req mobileLoginReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.IDToken) == "" {
		return utils.Fail(c, http.StatusBadRequest, "Validation failed",
			utils.FieldError{Field: "id_token", Message: "id_token is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	profile, err := h.Resolver.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return utils.Fail(c, http.StatusUnauthorized, "Invalid Google token")
	}

	user, err := h.upsertUser(ctx, profile)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return utils.Fail(c, http.StatusConflict, "Account already being created")
		}
		return utils.Fail(c, http.StatusInternalServerError, "Failed to process Google login")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, user.Email, user.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to issue access token")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to issue refresh token")
	}
	if err := h.Tokens.Store(ctx, user.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to save refresh token")
	}

	return utils.OK(c, http.StatusOK, "Google mobile login successful", echo.Map{
		"access_token":  access.Token,
		"refresh_token": refresh.Raw,
		"expires_in":    h.Cfg.AccessTTLMin * 60,
		"user": userPart{
			ID: user.ID, Email: user.Email, Name: user.Name,
			LinkID: user.LinkID, ProfileURL: user.ProfileURL, Role: user.Role,
		},
	})
}

// Refresh mints a new access token for a valid refresh token. The
// refresh token itself is not rotated: concurrent devices share it, and
// the server-side revocation list bounds the replay window.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return utils.Fail(c, http.StatusBadRequest, "Validation failed",
			utils.FieldError{Field: "refresh_token", Message: "refresh_token is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	userID, err := h.Tokens.Validate(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)))
	if err != nil {
		return utils.Fail(c, http.StatusUnauthorized, "Invalid refresh token")
	}
	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return utils.Fail(c, http.StatusUnauthorized, "Invalid refresh token")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, user.Email, user.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to issue access token")
	}
	return utils.OK(c, http.StatusOK, "Token refreshed successfully", echo.Map{
		"access_token": access.Token,
		"expires_in":   h.Cfg.AccessTTLMin * 60,
	})
}

// Logout revokes a refresh token. Revoking an unknown or already-revoked
// token succeeds too, so retries and double-logouts are harmless.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return utils.Fail(c, http.StatusBadRequest, "Validation failed",
			utils.FieldError{Field: "refresh_token", Message: "refresh_token is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Tokens.Revoke(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))); err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Logout failed")
	}
	return utils.OK(c, http.StatusOK, "Logged out successfully", nil)
}

// upsertUser maps a verified provider profile onto the user directory,
// substituting safe defaults for missing optional fields.
func (h *AuthHandler) upsertUser(ctx context.Context, p auth.Profile) (model.User, error) {
	name := p.Name
	if name == "" {
		name = "Unknown"
	}
	return h.Users.FindOrCreate(ctx, p.Email, name, p.Picture)
}
