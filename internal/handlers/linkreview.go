package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/sgbot/internal/bot"
	"github.com/iamwavecut/sgbot/internal/cleanup"
	"github.com/iamwavecut/sgbot/internal/config"
	"github.com/iamwavecut/sgbot/internal/db"
	errs "github.com/iamwavecut/sgbot/internal/errors"
	"github.com/iamwavecut/sgbot/internal/i18n"
	"github.com/iamwavecut/sgbot/internal/observability"
)

var linkPattern = regexp.MustCompile(`https?://\S+`)

const (
	approveCallbackPrefix = "approve_link_"
	rejectCallbackPrefix  = "reject_link_"
)

type linkStore interface {
	UpsertUserActivity(ctx context.Context, userID int64, userName string) error
	CreatePendingLink(ctx context.Context, userID int64, text string) (int64, error)
	ApprovePendingLink(ctx context.Context, id int64) (*db.PendingLinkReview, error)
	RejectPendingLink(ctx context.Context, id int64) error
	ListPendingLinks(ctx context.Context) ([]*db.PendingLink, error)
}

// LinkReview intercepts messages carrying links, hides them behind an admin
// review, and resolves the review either from an inline button or from the
// /approve command. The flagged text is persisted before the message is
// deleted from the group, so a failure later in the flow can never lose it.
type LinkReview struct {
	s       bot.Service
	store   linkStore
	gateway bot.Gateway
	cleaner *cleanup.Cleaner
	cfg     config.Config
}

func NewLinkReview(s bot.Service, cleaner *cleanup.Cleaner) *LinkReview {
	l := &LinkReview{
		s:       s,
		store:   s.GetDB(),
		gateway: s.GetGateway(),
		cleaner: cleaner,
		cfg:     s.GetConfig(),
	}
	l.getLogEntry().Debug("created new link review handler")
	return l
}

func (l *LinkReview) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if u == nil {
		return true, nil
	}

	if u.CallbackQuery != nil {
		return l.handleCallback(ctx, u.CallbackQuery, user)
	}

	if u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	msg := u.Message

	if msg.IsCommand() {
		switch msg.Command() {
		case "approve":
			l.approveCommand(ctx, msg, chat)
			return false, nil
		case "pending":
			l.pendingCommand(ctx, chat)
			return false, nil
		}
		return true, nil
	}

	if msg.Text != "" && linkPattern.MatchString(msg.Text) {
		l.handleLinkMessage(ctx, msg, chat, user)
		return false, nil
	}

	return true, nil
}

func (l *LinkReview) handleLinkMessage(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) {
	entry := l.getLogEntry().WithField("method", "handleLinkMessage")
	lang := l.cfg.DefaultLanguage

	if err := l.store.UpsertUserActivity(ctx, user.ID, bot.GetUN(user)); err != nil {
		entry.WithField("error", err.Error()).Error("failed to upsert author")
		return
	}

	// Persist first. The original text must survive even if every later step
	// fails.
	linkID, err := l.store.CreatePendingLink(ctx, user.ID, msg.Text)
	if err != nil {
		entry.WithField("error", err.Error()).Error("failed to create pending link")
		return
	}

	l.fanOutReviewRequests(ctx, linkID, bot.GetUN(user), msg.Text)

	if err := l.gateway.DeleteMessage(ctx, chat.ID, msg.MessageID); err != nil {
		entry.WithField("error", err.Error()).Error("failed to delete flagged message")
	}

	notice := fmt.Sprintf(i18n.Get("Message from %s has been hidden for admin review.", lang), bot.GetUN(user))
	sent, err := l.gateway.SendMessage(ctx, chat.ID, notice)
	if err != nil {
		entry.WithField("error", err.Error()).Error("failed to send review notice")
	} else {
		l.cleaner.DeleteAfter(chat.ID, sent.MessageID, l.cfg.BannerTTL)
	}
	observability.RecordLinkReview("filed")
}

// fanOutReviewRequests notifies every admin independently in the background.
// One unreachable admin must not hold back or fail the others.
func (l *LinkReview) fanOutReviewRequests(ctx context.Context, linkID int64, userName, text string) {
	entry := l.getLogEntry().WithField("method", "fanOutReviewRequests")
	lang := l.cfg.DefaultLanguage

	markup := api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(i18n.Get("✅ Accept", lang), fmt.Sprintf("%s%d", approveCallbackPrefix, linkID)),
			api.NewInlineKeyboardButtonData(i18n.Get("❌ Reject", lang), fmt.Sprintf("%s%d", rejectCallbackPrefix, linkID)),
		),
	)
	body := fmt.Sprintf(i18n.Get("💬 Message from %s:", lang), userName) + "\n\n" + text

	admins := l.cfg.AdminIDs
	go func() {
		var g errgroup.Group
		for _, adminID := range admins {
			adminID := adminID
			g.Go(func() error {
				if _, err := l.gateway.SendMessageWithMarkup(ctx, adminID, body, markup); err != nil {
					entry.WithFields(log.Fields{
						"admin_id": adminID,
						"error":    err.Error(),
					}).Error("failed to notify admin")
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
}

func (l *LinkReview) handleCallback(ctx context.Context, query *api.CallbackQuery, user *api.User) (bool, error) {
	entry := l.getLogEntry().WithField("method", "handleCallback")
	lang := l.cfg.DefaultLanguage

	data := query.Data
	approve := strings.HasPrefix(data, approveCallbackPrefix)
	if !approve && !strings.HasPrefix(data, rejectCallbackPrefix) {
		return true, nil
	}

	if err := l.gateway.AnswerCallback(ctx, query.ID); err != nil {
		entry.WithField("error", err.Error()).Debug("failed to answer callback")
	}

	if query.Message == nil {
		return false, nil
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	// A button click does not come through the command gate, so the actor is
	// checked again here.
	if user == nil || !l.cfg.IsAdmin(user.ID) {
		l.editNotice(ctx, entry, chatID, messageID, i18n.Get("You do not have permission for this.", lang))
		return false, nil
	}

	linkID, err := strconv.ParseInt(data[strings.LastIndex(data, "_")+1:], 10, 64)
	if err != nil {
		l.editNotice(ctx, entry, chatID, messageID, i18n.Get("❌ Error while processing the message.", lang))
		return false, nil
	}

	if approve {
		review, err := l.store.ApprovePendingLink(ctx, linkID)
		if err != nil {
			entry.WithField("error", err.Error()).Error("failed to approve link")
			l.editNotice(ctx, entry, chatID, messageID, i18n.Get("❌ Error while processing the message.", lang))
			return false, nil
		}
		l.editNotice(ctx, entry, chatID, messageID, i18n.Get("✅ Message has been approved and sent to the group.", lang))
		if _, err := l.gateway.SendMessage(ctx, l.cfg.GroupID, review.Text); err != nil {
			entry.WithField("error", err.Error()).Error("failed to repost approved message")
		}
		observability.RecordLinkReview("approved")
		return false, nil
	}

	if err := l.store.RejectPendingLink(ctx, linkID); err != nil {
		entry.WithField("error", err.Error()).Error("failed to reject link")
		l.editNotice(ctx, entry, chatID, messageID, i18n.Get("❌ Error while processing the message.", lang))
		return false, nil
	}
	l.editNotice(ctx, entry, chatID, messageID, i18n.Get("❌ Message has been rejected.", lang))
	observability.RecordLinkReview("rejected")
	return false, nil
}

func (l *LinkReview) approveCommand(ctx context.Context, msg *api.Message, chat *api.Chat) {
	entry := l.getLogEntry().WithField("command", "approve")
	lang := l.cfg.DefaultLanguage

	if err := l.gateway.DeleteMessage(ctx, chat.ID, msg.MessageID); err != nil {
		entry.WithField("error", err.Error()).Debug("failed to delete command message")
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		l.sendBanner(ctx, entry, chat.ID, "❌ "+i18n.Get("Please specify a link ID. Example: /approve 123", lang))
		return
	}
	linkID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		l.sendBanner(ctx, entry, chat.ID, "❌ "+i18n.Get("Please specify a link ID. Example: /approve 123", lang))
		return
	}

	if _, err := l.store.ApprovePendingLink(ctx, linkID); err != nil {
		if err == errs.ErrNotFound {
			l.sendBanner(ctx, entry, chat.ID, "❌ "+i18n.Get("Link not found.", lang))
			return
		}
		entry.WithField("error", err.Error()).Error("failed to approve link")
		l.sendBanner(ctx, entry, chat.ID, "❌ "+i18n.Get("Internal error, please try again.", lang))
		return
	}

	l.sendBanner(ctx, entry, chat.ID, fmt.Sprintf(i18n.Get("✅ Link %d has been approved.", lang), linkID))
	observability.RecordLinkReview("approved")
}

func (l *LinkReview) pendingCommand(ctx context.Context, chat *api.Chat) {
	entry := l.getLogEntry().WithField("command", "pending")

	links, err := l.store.ListPendingLinks(ctx)
	if err != nil {
		entry.WithField("error", err.Error()).Error("failed to list pending links")
		return
	}
	if len(links) == 0 {
		if _, err := l.gateway.SendMessage(ctx, chat.ID, "No pending links."); err != nil {
			entry.WithField("error", err.Error()).Error("failed to send pending list")
		}
		return
	}

	lines := make([]string, 0, len(links))
	for _, link := range links {
		lines = append(lines, fmt.Sprintf("%d: %s", link.ID, link.Text))
	}
	if _, err := l.gateway.SendMessage(ctx, chat.ID, "Pending links:\n"+strings.Join(lines, "\n")); err != nil {
		entry.WithField("error", err.Error()).Error("failed to send pending list")
	}
}

// sendBanner posts a short-lived notice, cleaned up after the banner TTL.
func (l *LinkReview) sendBanner(ctx context.Context, entry *log.Entry, chatID int64, text string) {
	sent, err := l.gateway.SendMessage(ctx, chatID, text)
	if err != nil {
		entry.WithField("error", err.Error()).Error("failed to send banner")
		return
	}
	l.cleaner.DeleteAfter(chatID, sent.MessageID, l.cfg.BannerTTL)
}

func (l *LinkReview) editNotice(ctx context.Context, entry *log.Entry, chatID int64, messageID int, text string) {
	if err := l.gateway.EditMessageText(ctx, chatID, messageID, text); err != nil {
		entry.WithField("error", err.Error()).Error("failed to edit review message")
	}
}

func (l *LinkReview) getLogEntry() *log.Entry {
	return log.WithField("object", "LinkReview")
}
