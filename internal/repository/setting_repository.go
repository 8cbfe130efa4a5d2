package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kisara-app/kisara-api/internal/model"
)

// SettingRepo persists per-user notification preferences. Rows are created
// lazily: a user has no settings row until they register a device token or
// touch their preferences.
type SettingRepo struct{ DB *sql.DB }

func NewSettingRepo(db *sql.DB) *SettingRepo { return &SettingRepo{DB: db} }

const settingColumns = "id,user_id,fcm_token,new_message_notifications,notification_frequency,created_at,updated_at"

func scanSetting(row *sql.Row) (model.NotificationSetting, error) {
	var s model.NotificationSetting
	err := row.Scan(&s.ID, &s.UserID, &s.FCMToken, &s.NewMessage, &s.Frequency, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

// FindByUserID fetches the settings row for a user id.
func (r *SettingRepo) FindByUserID(ctx context.Context, userID string) (model.NotificationSetting, error) {
	return scanSetting(r.DB.QueryRowContext(ctx,
		"SELECT "+settingColumns+" FROM user_notification_settings WHERE user_id=? LIMIT 1", userID))
}

// FindByUserEmail fetches a settings row through the owning user's email.
// Used on the dispatch path, where only the recipient email is known.
func (r *SettingRepo) FindByUserEmail(ctx context.Context, email string) (model.NotificationSetting, error) {
	return scanSetting(r.DB.QueryRowContext(ctx,
		`SELECT s.id,s.user_id,s.fcm_token,s.new_message_notifications,s.notification_frequency,s.created_at,s.updated_at
		 FROM user_notification_settings s
		 JOIN users u ON u.id = s.user_id
		 WHERE u.email=? LIMIT 1`, email))
}

// EnsureDefault returns the user's settings row, materializing the default
// one (notifications on, frequency "all") if none exists. A lost insert
// race falls back to reading the row the winner created.
func (r *SettingRepo) EnsureDefault(ctx context.Context, userID, fcmToken string) (model.NotificationSetting, error) {
	if s, err := r.FindByUserID(ctx, userID); err == nil {
		return s, nil
	} else if !errors.Is(err, ErrNotFound) {
		return model.NotificationSetting{}, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_notification_settings (id,user_id,fcm_token,new_message_notifications,notification_frequency,created_at,updated_at) VALUES (?,?,?,TRUE,?,?,?)",
		id, userID, fcmToken, model.FrequencyAll, now, now)
	if err != nil {
		if isDupEntry(err) {
			return r.FindByUserID(ctx, userID)
		}
		return model.NotificationSetting{}, err
	}
	return model.NotificationSetting{
		ID: id, UserID: userID, FCMToken: fcmToken,
		NewMessage: true, Frequency: model.FrequencyAll,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

// UpdateFCMToken replaces the stored device token.
func (r *SettingRepo) UpdateFCMToken(ctx context.Context, userID, token string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE user_notification_settings SET fcm_token=?, updated_at=NOW() WHERE user_id=?",
		token, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePreferences applies a partial settings update; nil fields are
// left untouched. Returns the resulting row.
func (r *SettingRepo) UpdatePreferences(ctx context.Context, userID string, newMessage *bool, frequency *string) (model.NotificationSetting, error) {
	s, err := r.FindByUserID(ctx, userID)
	if err != nil {
		return model.NotificationSetting{}, err
	}
	if newMessage != nil {
		s.NewMessage = *newMessage
	}
	if frequency != nil {
		s.Frequency = *frequency
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE user_notification_settings SET new_message_notifications=?, notification_frequency=?, updated_at=NOW() WHERE user_id=?",
		s.NewMessage, s.Frequency, userID)
	if err != nil {
		return model.NotificationSetting{}, err
	}
	return s, nil
}
