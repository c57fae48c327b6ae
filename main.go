package main

import (
	"context"
	"os"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/sgbot/internal/bot"
	"github.com/iamwavecut/sgbot/internal/cleanup"
	"github.com/iamwavecut/sgbot/internal/config"
	"github.com/iamwavecut/sgbot/internal/db/sqlite"
	"github.com/iamwavecut/sgbot/internal/handlers"
	"github.com/iamwavecut/sgbot/internal/infra"
	"github.com/iamwavecut/sgbot/internal/lifecycle"
	"github.com/iamwavecut/sgbot/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&config.SgFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	infra.GoRecoverable(-1, "process_updates", func() {
		ctx, cancelFunc := context.WithCancel(context.Background())
		defer cancelFunc()

		if err := observability.Init(ctx, cfg.MetricsAddr); err != nil {
			log.WithError(err).Fatalln("cant initialize observability")
		}

		botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
		if err != nil {
			log.WithError(err).Errorln("cant initialize bot api")
			time.Sleep(1 * time.Second)
			log.Fatalln("exiting")
		}
		if log.Level(cfg.LogLevel) == log.TraceLevel {
			botAPI.Debug = true
		}
		defer botAPI.StopReceivingUpdates()

		dbClient, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(), "bot.db")
		if err != nil {
			log.WithError(err).Fatalln("cant open store")
		}
		defer dbClient.Close()

		service := bot.NewService(botAPI, dbClient, cfg)
		cleaner := cleanup.NewCleaner(service.GetGateway())

		runtime := lifecycle.NewRuntime(cleaner)
		if err := runtime.Start(ctx); err != nil {
			log.WithError(err).Fatalln("cant start runtime")
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := runtime.Stop(stopCtx); err != nil {
				log.WithError(err).Errorln("runtime stop failed")
			}
		}()

		bot.RegisterUpdateHandler("gate", handlers.NewGate(service))
		bot.RegisterUpdateHandler("moderation", handlers.NewModeration(service, cleaner))
		bot.RegisterUpdateHandler("linkreview", handlers.NewLinkReview(service, cleaner))
		bot.RegisterUpdateHandler("welcome", handlers.NewWelcome(service, cleaner))

		updateConfig := api.NewUpdate(0)
		updateConfig.Timeout = 60
		updateProcessor := bot.NewUpdateProcessor(service)

		updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)

		log.WithField("group_id", cfg.GroupID).Infoln("starting bot")
		for {
			select {
			case err := <-errorChan:
				log.WithError(err).Fatalln("bot api get updates error")
			case update := <-updateChan:
				if err := updateProcessor.Process(ctx, &update); err != nil {
					log.WithError(err).Errorln("cant process update")
				}
			case <-ctx.Done():
				log.WithError(ctx.Err()).Errorln("no more updates")
				return
			}
		}
	})
	os.Exit(0)
}
