package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kisara-app/kisara-api/internal/middleware"
	"github.com/kisara-app/kisara-api/internal/model"
	"github.com/kisara-app/kisara-api/internal/repository"
	"github.com/kisara-app/kisara-api/internal/utils"
)

// Notifier is the settings side of the notification service as seen by
// handlers.
type Notifier interface {
	UpdateFCMToken(ctx context.Context, email, token string) error
	GetSettings(ctx context.Context, email string) (model.NotificationSetting, error)
	UpdateSettings(ctx context.Context, email string, newMessage *bool, frequency *string) (model.NotificationSetting, error)
}

// NotificationHandler serves device-token registration and notification
// preferences for the authenticated user.
type NotificationHandler struct {
	Svc Notifier
}

func NewNotificationHandler(svc Notifier) *NotificationHandler {
	return &NotificationHandler{Svc: svc}
}

type fcmTokenReq struct {
	FCMToken string `json:"fcm_token"`
}

type settingsReq struct {
	NewMessageNotifications *bool   `json:"new_message_notifications"`
	NotificationFrequency   *string `json:"notification_frequency"`
}

type settingsPart struct {
	FCMTokenRegistered      bool   `json:"fcm_token_registered"`
	NewMessageNotifications bool   `json:"new_message_notifications"`
	NotificationFrequency   string `json:"notification_frequency"`
	UpdatedAt               string `json:"updated_at"`
}

func toSettingsPart(s model.NotificationSetting) settingsPart {
	return settingsPart{
		FCMTokenRegistered:      s.FCMToken != "",
		NewMessageNotifications: s.NewMessage,
		NotificationFrequency:   s.Frequency,
		UpdatedAt:               s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// RegisterToken stores the caller's FCM device token, creating the default
// settings row on first registration.
func (h *NotificationHandler) RegisterToken(c echo.Context) error {
	var req fcmTokenReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.FCMToken) == "" {
		return utils.Fail(c, http.StatusBadRequest, "Validation failed",
			utils.FieldError{Field: "fcm_token", Message: "fcm_token is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	email, _ := c.Get(middleware.ContextEmail).(string)
	if err := h.Svc.UpdateFCMToken(ctx, email, strings.TrimSpace(req.FCMToken)); err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to register FCM token")
	}
	return utils.OK(c, http.StatusOK, "FCM token registered successfully", nil)
}

// GetSettings returns the caller's notification preferences. Before the
// first token registration or settings write there is no row yet; that is
// reported as a null payload, not an error.
func (h *NotificationHandler) GetSettings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	email, _ := c.Get(middleware.ContextEmail).(string)
	st, err := h.Svc.GetSettings(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.OK(c, http.StatusOK, "Notification settings retrieved successfully", nil)
		}
		return utils.Fail(c, http.StatusInternalServerError, "Failed to load notification settings")
	}
	return utils.OK(c, http.StatusOK, "Notification settings retrieved successfully", toSettingsPart(st))
}

// UpdateSettings applies a partial update of the caller's preferences.
func (h *NotificationHandler) UpdateSettings(c echo.Context) error {
	var req settingsReq
	if err := c.Bind(&req); err != nil {
		return utils.Fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.NewMessageNotifications == nil && req.NotificationFrequency == nil {
		return utils.Fail(c, http.StatusBadRequest, "Validation failed",
			utils.FieldError{Field: "body", Message: "at least one setting is required"})
	}
	if req.NotificationFrequency != nil && !validFrequency(*req.NotificationFrequency) {
		return utils.Fail(c, http.StatusBadRequest, "Validation failed",
			utils.FieldError{Field: "notification_frequency", Message: "notification_frequency must be one of all, important, none"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	email, _ := c.Get(middleware.ContextEmail).(string)
	st, err := h.Svc.UpdateSettings(ctx, email, req.NewMessageNotifications, req.NotificationFrequency)
	if err != nil {
		return utils.Fail(c, http.StatusInternalServerError, "Failed to update notification settings")
	}
	return utils.OK(c, http.StatusOK, "Notification settings updated successfully", toSettingsPart(st))
}

func validFrequency(f string) bool {
	switch f {
	case model.FrequencyAll, model.FrequencyImportant, model.FrequencyNone:
		return true
	}
	return false
}
