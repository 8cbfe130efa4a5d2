// Package notify decides whether and what to push when a new message
// arrives. Dispatch is strictly best-effort: every failure in this
// package is logged and swallowed, and must never surface to the write
// path that triggered it.
package notify

import (
	"context"
	"log"

	"github.com/kisara-app/kisara-api/internal/model"
)

// previewLength is how many characters of the message survive into the
// push body before the ellipsis.
const previewLength = 15

// MessageData identifies the new message behind a push.
type MessageData struct {
	MessageID string
	Content   string
	LinkID    string
}

// Notification is the provider-agnostic push payload.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers a payload to one device token. Implementations are
// fire-and-forget from the service's perspective.
type Sender interface {
	Send(ctx context.Context, token string, n Notification) error
}

// SettingsStore is the slice of the settings repository the dispatcher
// needs.
type SettingsStore interface {
	FindByUserEmail(ctx context.Context, email string) (model.NotificationSetting, error)
	EnsureDefault(ctx context.Context, userID, fcmToken string) (model.NotificationSetting, error)
	UpdateFCMToken(ctx context.Context, userID, token string) error
	UpdatePreferences(ctx context.Context, userID string, newMessage *bool, frequency *string) (model.NotificationSetting, error)
}

// UserLookup resolves emails to users for the settings write paths.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// Service owns notification settings and the dispatch decision.
type Service struct {
	settings SettingsStore
	users    UserLookup
	sender   Sender
}

func NewService(settings SettingsStore, users UserLookup, sender Sender) *Service {
	return &Service{settings: settings, users: users, sender: sender}
}

// SendMessageNotification pushes a truncated preview of a new message to
// its recipient. It is a silent no-op when the recipient has no device
// token, has disabled new-message pushes, or set frequency to "none".
func (s *Service) SendMessageNotification(ctx context.Context, recipientEmail string, data MessageData) {
	st, err := s.settings.FindByUserEmail(ctx, recipientEmail)
	if err != nil || st.FCMToken == "" {
		log.Printf("notify: no device token for %s", recipientEmail)
		return
	}
	if !st.NewMessage || st.Frequency == model.FrequencyNone {
		log.Printf("notify: pushes disabled for %s", recipientEmail)
		return
	}

	if err := s.sender.Send(ctx, st.FCMToken, buildMessagePayload(data)); err != nil {
		log.Printf("notify: send to %s failed: %v", recipientEmail, err)
		return
	}
	log.Printf("notify: sent new-message push to %s", recipientEmail)
}

func buildMessagePayload(data MessageData) Notification {
	return Notification{
		Title: "✨ Pesan Misterius Baru!",
		Body:  `Seseorang mengirim: "` + truncate(data.Content, previewLength) + `". Tap untuk melihat detail`,
		Data: map[string]string{
			"type":        "new_message",
			"messageId":   data.MessageID,
			"senderId":    "anonymous",
			"senderName":  "Seseorang",
			"linkId":      data.LinkID,
			"clickAction": "FLUTTER_NOTIFICATION_CLICK",
		},
	}
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// UpdateFCMToken stores a device token for the user, creating the default
// settings row on first registration.
func (s *Service) UpdateFCMToken(ctx context.Context, email, token string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	st, err := s.settings.EnsureDefault(ctx, u.ID, token)
	if err != nil {
		return err
	}
	if st.FCMToken != token {
		return s.settings.UpdateFCMToken(ctx, u.ID, token)
	}
	return nil
}

// GetSettings returns the user's settings row; ErrNotFound when none has
// been materialized yet.
func (s *Service) GetSettings(ctx context.Context, email string) (model.NotificationSetting, error) {
	return s.settings.FindByUserEmail(ctx, email)
}

// UpdateSettings applies a partial preferences update, materializing the
// default row first if needed.
func (s *Service) UpdateSettings(ctx context.Context, email string, newMessage *bool, frequency *string) (model.NotificationSetting, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return model.NotificationSetting{}, err
	}
	if _, err := s.settings.EnsureDefault(ctx, u.ID, ""); err != nil {
		return model.NotificationSetting{}, err
	}
	return s.settings.UpdatePreferences(ctx, u.ID, newMessage, frequency)
}
