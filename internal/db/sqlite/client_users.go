package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iamwavecut/sgbot/internal/db"
	errs "github.com/iamwavecut/sgbot/internal/errors"
)

func (c *sqliteClient) UpsertUserActivity(ctx context.Context, userID int64, userName string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO users (user_id, username, messages_sent)
		VALUES (?, ?, 1)
		ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		messages_sent = users.messages_sent + 1
	`
	_, err := c.db.ExecContext(ctx, query, userID, userName)
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", userID, err)
	}
	return nil
}

func (c *sqliteClient) EnsureUser(ctx context.Context, userID int64, userName string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO users (user_id, username)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`
	_, err := c.db.ExecContext(ctx, query, userID, userName)
	if err != nil {
		return fmt.Errorf("failed to ensure user %d: %w", userID, err)
	}
	return nil
}

func (c *sqliteClient) FindUserIDByName(ctx context.Context, userName string) (int64, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var userID int64
	err := c.db.GetContext(ctx, &userID, `SELECT user_id FROM users WHERE username = ?`, userName)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, errs.ErrNotFound
		}
		return 0, fmt.Errorf("failed to find user %q: %w", userName, err)
	}
	return userID, nil
}

func (c *sqliteClient) FindUserByName(ctx context.Context, userName string) (*db.User, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	user := &db.User{}
	err := c.db.GetContext(ctx, user, `
		SELECT user_id, username, messages_sent, warnings
		FROM users WHERE username = ?`, userName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user %q: %w", userName, err)
	}
	return user, nil
}

func (c *sqliteClient) IncrementWarning(ctx context.Context, userID int64) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var count int
	err := c.db.GetContext(ctx, &count, `
		UPDATE users SET warnings = warnings + 1
		WHERE user_id = ?
		RETURNING warnings`, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, errs.ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment warning for user %d: %w", userID, err)
	}
	return count, nil
}
