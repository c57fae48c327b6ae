package bot

import (
	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/sgbot/internal/config"
	"github.com/iamwavecut/sgbot/internal/db"
)

type service struct {
	bot     *api.BotAPI
	db      db.Client
	gateway Gateway
	cfg     config.Config
}

func NewService(bot *api.BotAPI, db db.Client, cfg config.Config) *service {
	return &service{
		bot:     bot,
		db:      db,
		gateway: NewGateway(bot),
		cfg:     cfg,
	}
}

func (s *service) GetBot() *api.BotAPI {
	return s.bot
}

func (s *service) GetDB() db.Client {
	return s.db
}

func (s *service) GetGateway() Gateway {
	return s.gateway
}

func (s *service) GetConfig() config.Config {
	return s.cfg
}
