package bot

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
)

// Gateway is the chat transport surface used by handlers and background
// tasks. Everything that touches Telegram goes through it, so tests can
// substitute a fake.
type Gateway interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendMessage(ctx context.Context, chatID int64, text string) (api.Message, error)
	SendMessageWithMarkup(ctx context.Context, chatID int64, text string, markup api.InlineKeyboardMarkup) (api.Message, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	RestrictSending(ctx context.Context, chatID, userID int64, allowed bool, until time.Time) error
	BanMember(ctx context.Context, chatID, userID int64) error
	UnbanMember(ctx context.Context, chatID, userID int64) error
	AnswerCallback(ctx context.Context, callbackQueryID string) error
}

type tgGateway struct {
	bot *api.BotAPI
}

func NewGateway(bot *api.BotAPI) *tgGateway {
	return &tgGateway{bot: bot}
}

func (g *tgGateway) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
			return errors.WithMessage(err, "cant delete")
		}
		return nil
	}
}

func (g *tgGateway) SendMessage(ctx context.Context, chatID int64, text string) (api.Message, error) {
	select {
	case <-ctx.Done():
		return api.Message{}, ctx.Err()
	default:
		msg, err := g.bot.Send(api.NewMessage(chatID, text))
		if err != nil {
			return api.Message{}, errors.WithMessage(err, "cant send")
		}
		return msg, nil
	}
}

func (g *tgGateway) SendMessageWithMarkup(ctx context.Context, chatID int64, text string, markup api.InlineKeyboardMarkup) (api.Message, error) {
	select {
	case <-ctx.Done():
		return api.Message{}, ctx.Err()
	default:
		msg := api.NewMessage(chatID, text)
		msg.ReplyMarkup = markup
		sent, err := g.bot.Send(msg)
		if err != nil {
			return api.Message{}, errors.WithMessage(err, "cant send with markup")
		}
		return sent, nil
	}
}

func (g *tgGateway) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Send(api.NewEditMessageText(chatID, messageID, text)); err != nil {
			return errors.WithMessage(err, "cant edit")
		}
		return nil
	}
}

func (g *tgGateway) RestrictSending(ctx context.Context, chatID, userID int64, allowed bool, until time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.RestrictChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{
					ChatID: chatID,
				},
				UserID: userID,
			},
			UntilDate: until.Unix(),
			Permissions: &api.ChatPermissions{
				CanSendMessages:       allowed,
				CanSendAudios:         allowed,
				CanSendDocuments:      allowed,
				CanSendPhotos:         allowed,
				CanSendVideos:         allowed,
				CanSendVideoNotes:     allowed,
				CanSendVoiceNotes:     allowed,
				CanSendPolls:          allowed,
				CanSendOtherMessages:  allowed,
				CanAddWebPagePreviews: allowed,
				CanChangeInfo:         allowed,
				CanInviteUsers:        allowed,
				CanPinMessages:        allowed,
				CanManageTopics:       allowed,
			},
		}); err != nil {
			if allowed {
				return errors.WithMessage(err, "cant unrestrict")
			}
			return errors.WithMessage(err, "cant restrict")
		}
		return nil
	}
}

func (g *tgGateway) BanMember(ctx context.Context, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.BanChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{
					ChatID: chatID,
				},
				UserID: userID,
			},
			RevokeMessages: true,
		}); err != nil {
			return errors.WithMessage(err, "cant ban")
		}
		return nil
	}
}

func (g *tgGateway) UnbanMember(ctx context.Context, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.UnbanChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{
					ChatID: chatID,
				},
				UserID: userID,
			},
		}); err != nil {
			return errors.WithMessage(err, "cant unban")
		}
		return nil
	}
}

func (g *tgGateway) AnswerCallback(ctx context.Context, callbackQueryID string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		if _, err := g.bot.Request(api.NewCallback(callbackQueryID, "")); err != nil {
			return errors.WithMessage(err, "cant answer callback")
		}
		return nil
	}
}
