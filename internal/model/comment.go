package model

import "time"

// Comment is an anonymous message left in a user's inbox, mirroring the
// `comments` table. The recipient's email is denormalized onto the row at
// creation time so that ownership checks never need to join back to
// `users`.
//
// Fields:
//  ID             – UUID primary key.
//  UserID         – recipient user id.
//  UserEmail      – snapshot of the recipient's email at creation time.
//  MessageContent – the anonymous message body (1..500 characters).
//  LikeByCreator  – whether the recipient marked the message as a favorite.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type Comment struct {
	ID             string    // comments.id
	UserID         string    // comments.user_id
	UserEmail      string    // comments.user_email
	MessageContent string    // comments.message_content
	LikeByCreator  bool      // comments.like_by_creator
	CreatedAt      time.Time // comments.created_at
	UpdatedAt      time.Time // comments.updated_at
}

// ReplyComment is the recipient's answer under one of their comments,
// mirroring the `reply_comments` table. The parent reference is used only
// for lookup; cascading always runs parent→child.
//
// Fields:
//  ID             – UUID primary key.
//  CommentID      – parent comment id.
//  MessageContent – reply body (1..500 characters).
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type ReplyComment struct {
	ID             string    // reply_comments.id
	CommentID      string    // reply_comments.comment_id
	MessageContent string    // reply_comments.message_content
	CreatedAt      time.Time // reply_comments.created_at
	UpdatedAt      time.Time // reply_comments.updated_at
}
