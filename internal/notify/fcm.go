package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// FCMSender delivers payloads through the Firebase Cloud Messaging HTTP
// gateway. The client timeout bounds how long a dispatch can hold a
// worker; the consumer treats any error as a logged no-op.
type FCMSender struct {
	endpoint  string
	serverKey string
	client    *http.Client
}

func NewFCMSender(endpoint, serverKey string) *FCMSender {
	return &FCMSender{
		endpoint:  endpoint,
		serverKey: serverKey,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

type fcmMessage struct {
	To           string            `json:"to"`
	Priority     string            `json:"priority"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send posts one message to the gateway.
func (f *FCMSender) Send(ctx context.Context, token string, n Notification) error {
	if f.serverKey == "" {
		return errors.New("fcm: server key not configured")
	}

	body, err := json.Marshal(fcmMessage{
		To:           token,
		Priority:     "high",
		Notification: fcmNotification{Title: n.Title, Body: n.Body},
		Data:         n.Data,
	})
	if err != nil {
		return fmt.Errorf("fcm: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+f.serverKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("fcm: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fcm: gateway returned %d", resp.StatusCode)
	}
	return nil
}
