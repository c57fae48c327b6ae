package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

func (c *sqliteClient) CreateMute(ctx context.Context, userID, mutedBy int64, durationMinutes int, reason string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO mutes (user_id, muted_by, duration_minutes, reason)
		VALUES (?, ?, ?, ?)
	`
	_, err := c.db.ExecContext(ctx, query, userID, mutedBy, durationMinutes, nullable(reason))
	if err != nil {
		return fmt.Errorf("failed to create mute for user %d: %w", userID, err)
	}
	return nil
}

func (c *sqliteClient) DeactivateMutes(ctx context.Context, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `
		UPDATE mutes SET active = 0
		WHERE user_id = ? AND active = 1`, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate mutes for user %d: %w", userID, err)
	}
	return nil
}

func (c *sqliteClient) CreateBan(ctx context.Context, userID, bannedBy int64, reason string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO bans (user_id, banned_by, reason)
		VALUES (?, ?, ?)
	`
	_, err := c.db.ExecContext(ctx, query, userID, bannedBy, nullable(reason))
	if err != nil {
		return fmt.Errorf("failed to create ban for user %d: %w", userID, err)
	}
	return nil
}

func (c *sqliteClient) DeactivateBans(ctx context.Context, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `
		UPDATE bans SET active = 0
		WHERE user_id = ? AND active = 1`, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate bans for user %d: %w", userID, err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
