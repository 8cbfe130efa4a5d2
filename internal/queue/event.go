// Package queue defines message payloads exchanged over the broker and
// the background consumer that turns them into push notifications.
package queue

// MessageReceivedQueue carries one event per anonymous message posted.
const MessageReceivedQueue = "message.received"

// MessageReceivedEvent is published when an anonymous message lands in an
// inbox. It carries enough for the notification consumer to build a push
// payload without querying the primary database.
type MessageReceivedEvent struct {
	MessageID      string `json:"message_id"`
	LinkID         string `json:"link_id"`
	RecipientEmail string `json:"recipient_email"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}
