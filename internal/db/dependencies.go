package db

import "context"

// Client is the repository surface of the bot. Every call acquires and
// releases its connection around the single operation, so chat-side latency
// never pins store resources.
//
// Mute/ban deactivation flips every active row for the user. At most one row
// should be active at a time, but this is best effort: a race between
// deactivation and creation can leave an extra historical row, never a stuck
// restriction.
type Client interface {
	Close() error

	// UpsertUserActivity creates the user if needed and increments their
	// message counter.
	UpsertUserActivity(ctx context.Context, userID int64, userName string) error
	// EnsureUser creates the user row if absent, without touching counters.
	EnsureUser(ctx context.Context, userID int64, userName string) error
	FindUserIDByName(ctx context.Context, userName string) (int64, error)
	FindUserByName(ctx context.Context, userName string) (*User, error)
	IncrementWarning(ctx context.Context, userID int64) (int, error)

	CreatePendingLink(ctx context.Context, userID int64, text string) (int64, error)
	ApprovePendingLink(ctx context.Context, id int64) (*PendingLinkReview, error)
	RejectPendingLink(ctx context.Context, id int64) error
	ListPendingLinks(ctx context.Context) ([]*PendingLink, error)

	CreateMute(ctx context.Context, userID, mutedBy int64, durationMinutes int, reason string) error
	DeactivateMutes(ctx context.Context, userID int64) error
	CreateBan(ctx context.Context, userID, bannedBy int64, reason string) error
	DeactivateBans(ctx context.Context, userID int64) error
}
