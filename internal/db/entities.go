package db

import (
	"database/sql"
	"time"
)

type (
	// User is created on first observed activity or moderation action and
	// never deleted. Warnings is a running counter, not per-incident rows.
	User struct {
		ID           int64  `db:"user_id"`
		UserName     string `db:"username"`
		MessagesSent int    `db:"messages_sent"`
		Warnings     int    `db:"warnings"`
	}

	// PendingLink holds a flagged message awaiting admin review. Once
	// approved or rejected (deleted) it is terminal.
	PendingLink struct {
		ID        int64     `db:"id"`
		UserID    int64     `db:"user_id"`
		Text      string    `db:"original_message"`
		Approved  bool      `db:"approved"`
		CreatedAt time.Time `db:"created_at"`
	}

	// PendingLinkReview is the approve projection: the link row joined with
	// its author, used to repost the original text.
	PendingLinkReview struct {
		ID       int64  `db:"id"`
		UserID   int64  `db:"user_id"`
		Text     string `db:"original_message"`
		UserName string `db:"username"`
	}

	Mute struct {
		ID              int64          `db:"id"`
		UserID          int64          `db:"user_id"`
		MutedBy         int64          `db:"muted_by"`
		DurationMinutes int            `db:"duration_minutes"`
		Reason          sql.NullString `db:"reason"`
		Active          bool           `db:"active"`
		MutedAt         time.Time      `db:"muted_at"`
	}

	Ban struct {
		ID       int64          `db:"id"`
		UserID   int64          `db:"user_id"`
		BannedBy int64          `db:"banned_by"`
		Reason   sql.NullString `db:"reason"`
		Active   bool           `db:"active"`
		BannedAt time.Time      `db:"banned_at"`
	}
)
