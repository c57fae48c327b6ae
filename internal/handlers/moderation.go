package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/sgbot/internal/bot"
	"github.com/iamwavecut/sgbot/internal/cleanup"
	"github.com/iamwavecut/sgbot/internal/config"
	errs "github.com/iamwavecut/sgbot/internal/errors"
	"github.com/iamwavecut/sgbot/internal/i18n"
	"github.com/iamwavecut/sgbot/internal/observability"
)

type moderationStore interface {
	EnsureUser(ctx context.Context, userID int64, userName string) error
	FindUserIDByName(ctx context.Context, userName string) (int64, error)
	IncrementWarning(ctx context.Context, userID int64) (int, error)
	CreateMute(ctx context.Context, userID, mutedBy int64, durationMinutes int, reason string) error
	DeactivateMutes(ctx context.Context, userID int64) error
	CreateBan(ctx context.Context, userID, bannedBy int64, reason string) error
	DeactivateBans(ctx context.Context, userID int64) error
}

// Moderation executes the mute/unmute/ban/unban/warn commands. Every command
// is a failure boundary: the command message is deleted up front, and any
// failure surfaces either as a short-lived error banner or not at all.
// Compliance confirmations stay in the chat; error banners are cleaned up.
type Moderation struct {
	s       bot.Service
	store   moderationStore
	gateway bot.Gateway
	cleaner *cleanup.Cleaner
	cfg     config.Config
}

func NewModeration(s bot.Service, cleaner *cleanup.Cleaner) *Moderation {
	m := &Moderation{
		s:       s,
		store:   s.GetDB(),
		gateway: s.GetGateway(),
		cleaner: cleaner,
		cfg:     s.GetConfig(),
	}
	m.getLogEntry().Debug("created new moderation handler")
	return m
}

func (m *Moderation) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if u == nil || u.Message == nil || chat == nil || user == nil || !u.Message.IsCommand() {
		return true, nil
	}
	msg := u.Message

	switch msg.Command() {
	case "mute":
		m.muteCommand(ctx, msg, chat, user)
	case "unmute":
		m.unmuteCommand(ctx, msg, chat, user)
	case "ban":
		m.banCommand(ctx, msg, chat, user)
	case "unban":
		m.unbanCommand(ctx, msg, chat, user)
	case "warn":
		m.warnCommand(ctx, msg, chat, user)
	case "chatid":
		m.chatIDCommand(ctx, msg, chat)
	default:
		return true, nil
	}
	return false, nil
}

func (m *Moderation) muteCommand(ctx context.Context, msg *api.Message, chat *api.Chat, admin *api.User) {
	entry := m.getLogEntry().WithField("command", "mute")
	lang := m.cfg.DefaultLanguage
	m.deleteCommand(ctx, chat.ID, msg.MessageID)

	args := strings.Fields(msg.CommandArguments())
	duration, durationIdx := findDurationToken(args)
	if durationIdx < 0 {
		m.sendErrorBanner(ctx, chat.ID, i18n.Get("Please specify a duration. Example: /mute @user 10m [reason]", lang))
		return
	}

	target := resolveTarget(msg)
	if target == nil {
		m.sendErrorBanner(ctx, chat.ID, i18n.Get("Please reply to the user's message or tag them.", lang))
		return
	}

	reason := strings.Join(args[durationIdx+1:], " ")

	if err := m.store.EnsureUser(ctx, target.ID, bot.GetUN(target)); err != nil {
		m.failCommand(ctx, entry, chat.ID, err)
		return
	}
	if err := m.store.CreateMute(ctx, target.ID, admin.ID, duration, reason); err != nil {
		m.failCommand(ctx, entry, chat.ID, err)
		return
	}
	until := time.Now().Add(time.Duration(duration) * time.Minute)
	if err := m.gateway.RestrictSending(ctx, chat.ID, target.ID, false, until); err != nil {
		m.failCommand(ctx, entry, chat.ID, err)
		return
	}

	text := fmt.Sprintf(i18n.Get("👤 %s has been muted for %d minutes.", lang), target.FirstName, duration)
	if reason != "" {
		text += "\n" + fmt.Sprintf(i18n.Get("📝 Reason: %s", lang), reason)
	}
	m.sendConfirmation(ctx, chat.ID, text)
	observability.RecordModerationAction("mute")
}

func (m *Moderation) unmuteCommand(ctx context.Context, msg *api.Message, chat *api.Chat, admin *api.User) {
	entry := m.getLogEntry().WithField("command", "unmute")
	lang := m.cfg.DefaultLanguage
	m.deleteCommand(ctx, chat.ID, msg.MessageID)

	target := resolveTarget(msg)
	if target == nil {
		m.sendErrorBanner(ctx, chat.ID, i18n.Get("Please reply to the user's message or tag them.", lang))
		return
	}

	if err := m.store.DeactivateMutes(ctx, target.ID); err != nil {
		m.failCommand(ctx, entry, chat.ID, err)
		return
	}
	if err := m.gateway.RestrictSending(ctx, chat.ID, target.ID, true, time.Time{}); err != nil {
		m.failCommand(ctx, entry, chat.ID, err)
		return
	}

	m.sendConfirmation(ctx, chat.ID, fmt.Sprintf(i18n.Get("✅ %s has been unmuted.", lang), target.FirstName))
	observability.RecordModerationAction("unmute")
}

func (m *Moderation) banCommand(ctx context.Context, msg *api.Message, chat *api.Chat, admin *api.User) {
	entry := m.getLogEntry().WithField("command", "ban")
	lang := m.cfg.DefaultLanguage
	m.deleteCommand(ctx, chat.ID, msg.MessageID)

	target := resolveTarget(msg)
	if target == nil {
		m.sendErrorBanner(ctx, chat.ID, i18n.Get("Please reply to the user's message or tag them.", lang))
		return
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) > 0 && strings.HasPrefix(args[0], "@") {
		args = args[1:]
	}
	reason := strings.Join(args, " ")

	if err := m.store.EnsureUser(ctx, target.ID, bot.GetUN(target)); err != nil {
		m.failCommand(ctx, entry, chat.ID, err)
		return
	}
	if err := m.store.CreateBan(ctx, target.ID, admin.ID, reason); err != nil {
		m.failCommand(ctx, entry, chat.ID, err)
		return
	}
	if err := m.gateway.BanMember(ctx, chat.ID, target.ID); err != nil {
		m.failCommand(ctx, entry, chat.ID, err)
		return
	}

	text := fmt.Sprintf(i18n.Get("⛔️ %s has been banned.", lang), target.FirstName)
	if reason != "" {
		text += "\n" + fmt.Sprintf(i18n.Get("📝 Reason: %s", lang), reason)
	}
	m.sendConfirmation(ctx, chat.ID, text)
	observability.RecordModerationAction("ban")
}

func (m *Moderation) unbanCommand(ctx context.Context, msg *api.Message, chat *api.Chat, admin *api.User) {
	entry := m.getLogEntry().WithField("command", "unban")
	lang := m.cfg.DefaultLanguage
	m.deleteCommand(ctx, chat.ID, msg.MessageID)

	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		m.sendErrorBanner(ctx, chat.ID, i18n.Get("Please specify a username. Example: /unban @username", lang))
		return
	}
	userName := strings.TrimPrefix(args[0], "@")

	userID, err := m.store.FindUserIDByName(ctx, userName)
	if err != nil {
		if err == errs.ErrNotFound {
			m.sendErrorBanner(ctx, chat.ID, i18n.Get("User not found.", lang))
			return
		}
		m.failCommand(ctx, entry, chat.ID, err)
		return
	}

	if err := m.store.DeactivateBans(ctx, userID); err != nil {
		m.failCommand(ctx, entry, chat.ID, err)
		return
	}
	if err := m.gateway.UnbanMember(ctx, chat.ID, userID); err != nil {
		m.failCommand(ctx, entry, chat.ID, err)
		return
	}

	m.sendConfirmation(ctx, chat.ID, i18n.Get("✅ User has been unbanned.", lang))
	observability.RecordModerationAction("unban")
}

func (m *Moderation) warnCommand(ctx context.Context, msg *api.Message, chat *api.Chat, admin *api.User) {
	entry := m.getLogEntry().WithField("command", "warn")
	lang := m.cfg.DefaultLanguage
	m.deleteCommand(ctx, chat.ID, msg.MessageID)

	target := resolveTarget(msg)
	if target == nil {
		m.sendErrorBanner(ctx, chat.ID, i18n.Get("Please reply to the user's message.", lang))
		return
	}

	if err := m.store.EnsureUser(ctx, target.ID, bot.GetUN(target)); err != nil {
		m.failCommand(ctx, entry, chat.ID, err)
		return
	}
	count, err := m.store.IncrementWarning(ctx, target.ID)
	if err != nil {
		m.failCommand(ctx, entry, chat.ID, err)
		return
	}

	if count >= m.cfg.MaxWarnings {
		if err := m.gateway.BanMember(ctx, chat.ID, target.ID); err != nil {
			m.failCommand(ctx, entry, chat.ID, err)
			return
		}
		m.sendConfirmation(ctx, chat.ID, fmt.Sprintf(i18n.Get("%s has been banned after %d warnings.", lang), target.FirstName, m.cfg.MaxWarnings))
	} else {
		m.sendConfirmation(ctx, chat.ID, fmt.Sprintf(i18n.Get("%s has been warned (%d/%d).", lang), target.FirstName, count, m.cfg.MaxWarnings))
	}
	observability.RecordModerationAction("warn")
}

func (m *Moderation) chatIDCommand(ctx context.Context, msg *api.Message, chat *api.Chat) {
	text := fmt.Sprintf("Chat ID: %d\nType: %s", chat.ID, chat.Type)
	if _, err := m.gateway.SendMessage(ctx, chat.ID, text); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("failed to send chat id")
	}
}

// deleteCommand removes the triggering command message regardless of how the
// command turns out.
func (m *Moderation) deleteCommand(ctx context.Context, chatID int64, messageID int) {
	if err := m.gateway.DeleteMessage(ctx, chatID, messageID); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Debug("failed to delete command message")
	}
}

func (m *Moderation) sendErrorBanner(ctx context.Context, chatID int64, text string) {
	banner, err := m.gateway.SendMessage(ctx, chatID, "❌ "+text)
	if err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("failed to send error banner")
		return
	}
	m.cleaner.DeleteAfter(chatID, banner.MessageID, m.cfg.BannerTTL)
}

func (m *Moderation) sendConfirmation(ctx context.Context, chatID int64, text string) {
	if _, err := m.gateway.SendMessage(ctx, chatID, text); err != nil {
		m.getLogEntry().WithField("error", err.Error()).Error("failed to send confirmation")
	}
}

func (m *Moderation) failCommand(ctx context.Context, entry *log.Entry, chatID int64, err error) {
	entry.WithField("error", err.Error()).Error("command failed")
	m.sendErrorBanner(ctx, chatID, i18n.Get("Internal error, please try again.", m.cfg.DefaultLanguage))
}

// findDurationToken scans the free-form arguments for a positive integer
// followed by the minute marker, e.g. "10m". Returns the parsed minutes and
// the token's index, or -1 when absent.
func findDurationToken(args []string) (int, int) {
	for i, arg := range args {
		if len(arg) < 2 || !strings.HasSuffix(arg, "m") {
			continue
		}
		digits := arg[:len(arg)-1]
		minutes := 0
		ok := true
		for _, r := range digits {
			if r < '0' || r > '9' {
				ok = false
				break
			}
			minutes = minutes*10 + int(r-'0')
		}
		if ok && minutes > 0 {
			return minutes, i
		}
	}
	return 0, -1
}

// resolveTarget picks the command target in fixed precedence: the replied-to
// author first, then a text-mention entity, then nothing.
func resolveTarget(msg *api.Message) *api.User {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		return msg.ReplyToMessage.From
	}
	for _, entity := range msg.Entities {
		if entity.Type == "text_mention" && entity.User != nil {
			return entity.User
		}
	}
	return nil
}

func (m *Moderation) getLogEntry() *log.Entry {
	return log.WithField("object", "Moderation")
}
