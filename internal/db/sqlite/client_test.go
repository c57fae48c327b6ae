package sqlite

import (
	"context"
	"testing"

	errs "github.com/iamwavecut/sgbot/internal/errors"
)

func newTestClient(t *testing.T) *sqliteClient {
	t.Helper()
	client, err := NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestUpsertUserActivityIncrementsCounter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	for i := 0; i < 3; i++ {
		if err := client.UpsertUserActivity(ctx, 7, "alice"); err != nil {
			t.Fatalf("upsert user: %v", err)
		}
	}

	user, err := client.FindUserByName(ctx, "alice")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("unexpected user id %d", user.ID)
	}
	if user.MessagesSent != 3 {
		t.Fatalf("expected 3 messages sent, got %d", user.MessagesSent)
	}

	var count int
	if err := client.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users WHERE user_id = 7"); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("upsert duplicated the user row, count=%d", count)
	}
}

func TestEnsureUserDoesNotTouchCounters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.UpsertUserActivity(ctx, 7, "alice"); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	if err := client.EnsureUser(ctx, 7, "alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	user, err := client.FindUserByName(ctx, "alice")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if user.MessagesSent != 1 {
		t.Fatalf("ensure must not increment counter, got %d", user.MessagesSent)
	}
}

func TestPendingLinkApproveIsTerminal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.EnsureUser(ctx, 7, "alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	id, err := client.CreatePendingLink(ctx, 7, "check this out https://example.com")
	if err != nil {
		t.Fatalf("create pending link: %v", err)
	}

	review, err := client.ApprovePendingLink(ctx, id)
	if err != nil {
		t.Fatalf("approve pending link: %v", err)
	}
	if review.Text != "check this out https://example.com" {
		t.Fatalf("unexpected review text %q", review.Text)
	}
	if review.UserName != "alice" {
		t.Fatalf("unexpected review username %q", review.UserName)
	}

	if _, err := client.ApprovePendingLink(ctx, id); err != errs.ErrNotFound {
		t.Fatalf("second approve must be rejected, got %v", err)
	}
	if err := client.RejectPendingLink(ctx, id); err != errs.ErrNotFound {
		t.Fatalf("reject after approve must be rejected, got %v", err)
	}
}

func TestPendingLinkRejectIsTerminal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.EnsureUser(ctx, 7, "alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	id, err := client.CreatePendingLink(ctx, 7, "https://example.com")
	if err != nil {
		t.Fatalf("create pending link: %v", err)
	}

	if err := client.RejectPendingLink(ctx, id); err != nil {
		t.Fatalf("reject pending link: %v", err)
	}
	if _, err := client.ApprovePendingLink(ctx, id); err != errs.ErrNotFound {
		t.Fatalf("approve after reject must be rejected, got %v", err)
	}
	if err := client.RejectPendingLink(ctx, id); err != errs.ErrNotFound {
		t.Fatalf("second reject must be rejected, got %v", err)
	}
}

func TestListPendingLinksSkipsApproved(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.EnsureUser(ctx, 7, "alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	first, err := client.CreatePendingLink(ctx, 7, "https://one.example")
	if err != nil {
		t.Fatalf("create pending link: %v", err)
	}
	second, err := client.CreatePendingLink(ctx, 7, "https://two.example")
	if err != nil {
		t.Fatalf("create pending link: %v", err)
	}
	if _, err := client.ApprovePendingLink(ctx, first); err != nil {
		t.Fatalf("approve pending link: %v", err)
	}

	links, err := client.ListPendingLinks(ctx)
	if err != nil {
		t.Fatalf("list pending links: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 pending link, got %d", len(links))
	}
	if links[0].ID != second {
		t.Fatalf("unexpected pending link id %d", links[0].ID)
	}
}

func TestMuteLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.EnsureUser(ctx, 7, "alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if err := client.CreateMute(ctx, 7, 1, 10, "spamming"); err != nil {
		t.Fatalf("create mute: %v", err)
	}

	var active int
	if err := client.db.GetContext(ctx, &active, "SELECT COUNT(*) FROM mutes WHERE user_id = 7 AND active = 1"); err != nil {
		t.Fatalf("count active mutes: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected 1 active mute, got %d", active)
	}

	if err := client.DeactivateMutes(ctx, 7); err != nil {
		t.Fatalf("deactivate mutes: %v", err)
	}
	if err := client.db.GetContext(ctx, &active, "SELECT COUNT(*) FROM mutes WHERE user_id = 7 AND active = 1"); err != nil {
		t.Fatalf("count active mutes: %v", err)
	}
	if active != 0 {
		t.Fatalf("expected 0 active mutes, got %d", active)
	}

	// History is retained, only the active flag flips.
	var total int
	if err := client.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM mutes WHERE user_id = 7"); err != nil {
		t.Fatalf("count mutes: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 historical mute, got %d", total)
	}
}

func TestBanLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.EnsureUser(ctx, 7, "alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if err := client.CreateBan(ctx, 7, 1, ""); err != nil {
		t.Fatalf("create ban: %v", err)
	}
	if err := client.DeactivateBans(ctx, 7); err != nil {
		t.Fatalf("deactivate bans: %v", err)
	}

	var active int
	if err := client.db.GetContext(ctx, &active, "SELECT COUNT(*) FROM bans WHERE user_id = 7 AND active = 1"); err != nil {
		t.Fatalf("count active bans: %v", err)
	}
	if active != 0 {
		t.Fatalf("expected 0 active bans, got %d", active)
	}
}

func TestIncrementWarningIsMonotonic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.EnsureUser(ctx, 7, "alice"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	last := 0
	for i := 1; i <= 3; i++ {
		count, err := client.IncrementWarning(ctx, 7)
		if err != nil {
			t.Fatalf("increment warning: %v", err)
		}
		if count != i {
			t.Fatalf("expected warning count %d, got %d", i, count)
		}
		if count <= last {
			t.Fatalf("warning count must grow, got %d after %d", count, last)
		}
		last = count
	}
}

func TestIncrementWarningUnknownUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if _, err := client.IncrementWarning(ctx, 404); err != errs.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindUserIDByNameUnknownUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if _, err := client.FindUserIDByName(ctx, "nobody"); err != errs.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
