package model

import "time"

// Notification frequency values for NotificationSetting.Frequency.
const (
	FrequencyAll       = "all"
	FrequencyImportant = "important"
	FrequencyNone      = "none"
)

// NotificationSetting holds a user's push preferences, one row per user in
// the `user_notification_settings` table. The row is created lazily on the
// first token registration or settings update with NewMessage=true and
// Frequency="all".
//
// Fields:
//  ID         – UUID primary key.
//  UserID     – owning user (unique).
//  FCMToken   – device push token (empty until the client registers one).
//  NewMessage – whether new-message pushes are enabled.
//  Frequency  – one of the Frequency* constants.
//  CreatedAt  – timestamp of creation.
//  UpdatedAt  – timestamp of last update.
type NotificationSetting struct {
	ID         string    // user_notification_settings.id
	UserID     string    // user_notification_settings.user_id
	FCMToken   string    // user_notification_settings.fcm_token
	NewMessage bool      // user_notification_settings.new_message_notifications
	Frequency  string    // user_notification_settings.notification_frequency
	CreatedAt  time.Time // user_notification_settings.created_at
	UpdatedAt  time.Time // user_notification_settings.updated_at
}
