package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iamwavecut/sgbot/internal/db"
	errs "github.com/iamwavecut/sgbot/internal/errors"
)

func (c *sqliteClient) CreatePendingLink(ctx context.Context, userID int64, text string) (int64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var id int64
	err := c.db.GetContext(ctx, &id, `
		INSERT INTO pending_links (user_id, original_message)
		VALUES (?, ?)
		RETURNING id`, userID, text)
	if err != nil {
		return 0, fmt.Errorf("failed to create pending link: %w", err)
	}
	return id, nil
}

// ApprovePendingLink flips the approved flag and returns the original text
// with its author. A link that is already approved or was rejected is
// terminal, so the call reports not found instead of transitioning twice.
func (c *sqliteClient) ApprovePendingLink(ctx context.Context, id int64) (*db.PendingLinkReview, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	review := &db.PendingLinkReview{}
	err := c.db.GetContext(ctx, review, `
		SELECT p.id, p.user_id, p.original_message, u.username
		FROM pending_links p
		JOIN users u ON u.user_id = p.user_id
		WHERE p.id = ? AND p.approved = 0`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load pending link %d: %w", id, err)
	}

	res, err := c.db.ExecContext(ctx, `
		UPDATE pending_links SET approved = 1
		WHERE id = ? AND approved = 0`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to approve pending link %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, errs.ErrNotFound
	}
	return review, nil
}

func (c *sqliteClient) RejectPendingLink(ctx context.Context, id int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		DELETE FROM pending_links
		WHERE id = ? AND approved = 0`, id)
	if err != nil {
		return fmt.Errorf("failed to reject pending link %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (c *sqliteClient) ListPendingLinks(ctx context.Context) ([]*db.PendingLink, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	links := []*db.PendingLink{}
	err := c.db.SelectContext(ctx, &links, `
		SELECT id, user_id, original_message, approved, created_at
		FROM pending_links
		WHERE approved = 0
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending links: %w", err)
	}
	return links, nil
}
