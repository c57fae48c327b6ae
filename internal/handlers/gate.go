package handlers

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/sgbot/internal/bot"
	"github.com/iamwavecut/sgbot/internal/config"
	"github.com/iamwavecut/sgbot/internal/i18n"
)

// privilegedCommands are the commands the gate only lets through for admins
// of the configured group. Everything else a non-admin learns nothing about.
var privilegedCommands = []string{"mute", "unmute", "ban", "unban", "warn", "approve", "pending"}

// Gate authorizes every inbound update before the rest of the chain sees it.
// The denial behavior is deliberately asymmetric: unprivileged events from a
// foreign chat get a best-effort notice, privileged commands are dropped in
// silence.
type Gate struct {
	s       bot.Service
	gateway bot.Gateway
	cfg     config.Config
}

func NewGate(s bot.Service) *Gate {
	g := &Gate{
		s:       s,
		gateway: s.GetGateway(),
		cfg:     s.GetConfig(),
	}
	g.getLogEntry().Debug("created new gate handler")
	return g
}

func (g *Gate) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if u == nil {
		return false, nil
	}

	// Button clicks arrive from admin private chats; the link review handler
	// re-validates the actor itself.
	if u.CallbackQuery != nil {
		return true, nil
	}

	if u.Message == nil || chat == nil {
		return true, nil
	}
	msg := u.Message

	if msg.IsCommand() {
		return g.gateCommand(ctx, msg, chat, user)
	}

	if chat.ID == g.cfg.GroupID {
		return true, nil
	}

	// Membership updates from foreign chats carry no one to notify.
	if len(msg.NewChatMembers) > 0 {
		return false, nil
	}

	g.getLogEntry().WithField("chat_id", chat.ID).Warn("unauthorized access attempt")
	if _, err := g.gateway.SendMessage(ctx, chat.ID, i18n.Get("This bot is configured for a specific group only.", g.cfg.DefaultLanguage)); err != nil {
		g.getLogEntry().WithField("error", err.Error()).Debug("failed to send unauthorized notice")
	}
	return false, nil
}

func (g *Gate) gateCommand(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) (bool, error) {
	command := msg.Command()

	// Diagnostic command, allowed from anywhere.
	if command == "chatid" {
		return true, nil
	}

	if !tool.In(command, privilegedCommands...) {
		return false, nil
	}

	if chat.ID == g.cfg.GroupID && user != nil && g.cfg.IsAdmin(user.ID) {
		return true, nil
	}

	g.getLogEntry().WithFields(log.Fields{
		"chat_id": chat.ID,
		"command": command,
	}).Debug("dropping privileged command")
	if err := g.gateway.DeleteMessage(ctx, chat.ID, msg.MessageID); err != nil {
		g.getLogEntry().WithField("error", err.Error()).Debug("failed to delete denied command")
	}
	return false, nil
}

func (g *Gate) getLogEntry() *log.Entry {
	return log.WithField("object", "Gate")
}
