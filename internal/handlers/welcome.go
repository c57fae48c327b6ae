package handlers

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/sgbot/internal/bot"
	"github.com/iamwavecut/sgbot/internal/cleanup"
	"github.com/iamwavecut/sgbot/internal/config"
)

const welcomeMessage = `👋 Selamat datang {{ .username }} ke dalam group ini!

📜 Peraturan Kumpulan:
• Sila berkelakuan baik
• Tiada spam
• Tiada link tanpa kebenaran admin
• Hormati semua ahli

🤖 Bot kami akan memantau aktiviti anda.`

type welcomeStore interface {
	UpsertUserActivity(ctx context.Context, userID int64, userName string) error
}

// Welcome greets new members and, as the lowest-priority handler, keeps the
// per-user message counters current for everything the other handlers let
// through.
type Welcome struct {
	s       bot.Service
	store   welcomeStore
	gateway bot.Gateway
	cleaner *cleanup.Cleaner
	cfg     config.Config
}

func NewWelcome(s bot.Service, cleaner *cleanup.Cleaner) *Welcome {
	w := &Welcome{
		s:       s,
		store:   s.GetDB(),
		gateway: s.GetGateway(),
		cleaner: cleaner,
		cfg:     s.GetConfig(),
	}
	w.getLogEntry().Debug("created new welcome handler")
	return w
}

func (w *Welcome) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if u == nil || u.Message == nil || chat == nil {
		return true, nil
	}
	msg := u.Message

	if len(msg.NewChatMembers) > 0 {
		w.greetNewMembers(ctx, msg, chat)
		return false, nil
	}

	if user != nil && msg.Text != "" && !msg.IsCommand() {
		if err := w.store.UpsertUserActivity(ctx, user.ID, bot.GetUN(user)); err != nil {
			w.getLogEntry().WithField("error", err.Error()).Error("failed to track user activity")
		}
		return false, nil
	}

	return true, nil
}

func (w *Welcome) greetNewMembers(ctx context.Context, msg *api.Message, chat *api.Chat) {
	entry := w.getLogEntry().WithField("method", "greetNewMembers")

	for _, member := range msg.NewChatMembers {
		member := member
		if member.IsBot {
			continue
		}
		if err := w.store.UpsertUserActivity(ctx, member.ID, bot.GetUN(&member)); err != nil {
			entry.WithFields(log.Fields{
				"user_id": member.ID,
				"error":   err.Error(),
			}).Error("failed to upsert new member")
			continue
		}

		text := tool.ExecTemplate(welcomeMessage, map[string]any{
			"username": bot.GetUN(&member),
		})
		sent, err := w.gateway.SendMessage(ctx, chat.ID, text)
		if err != nil {
			entry.WithFields(log.Fields{
				"user_id": member.ID,
				"error":   err.Error(),
			}).Error("failed to welcome new member")
			continue
		}
		w.cleaner.DeleteAfter(chat.ID, sent.MessageID, w.cfg.WelcomeTTL)
	}
}

func (w *Welcome) getLogEntry() *log.Entry {
	return log.WithField("object", "Welcome")
}
