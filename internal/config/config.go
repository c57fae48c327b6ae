package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	TelegramAPIToken string   `env:"TOKEN,required"`
	GroupID          int64    `env:"GROUP_ID,required"`
	AdminIDs         []int64  `env:"ADMIN_IDS,required"`
	DefaultLanguage  string   `env:"LANG,default=ms"`
	EnabledHandlers  []string `env:"HANDLERS,default=gate,moderation,linkreview,welcome"`
	LogLevel         int      `env:"LOG_LEVEL,default=4"`
	DotPath          string   `env:"DOT_PATH,default=~/.sgbot"`
	MetricsAddr      string   `env:"METRICS_ADDR,default=:2112"`

	MaxWarnings int           `env:"MAX_WARNINGS,default=3"`
	BannerTTL   time.Duration `env:"BANNER_TTL,default=3s"`
	WelcomeTTL  time.Duration `env:"WELCOME_TTL,default=900s"`
}

// IsAdmin reports whether the user belongs to the fixed admin set.
func (c Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

func Load() (Config, error) {
	once.Do(func() {
		cfg := &Config{}
		envcfg := envconfig.Config{
			Lookuper: envconfig.PrefixLookuper("SG_", envconfig.OsLookuper()),
			Target:   cfg,
		}
		if err := envconfig.ProcessWith(context.Background(), &envcfg); err != nil {
			globalErr = fmt.Errorf("process env config: %w", err)
			return
		}
		home, err := os.UserHomeDir()
		if err != nil {
			globalErr = fmt.Errorf("get user home directory: %w", err)
			return
		}
		cfg.DotPath = strings.Replace(cfg.DotPath, "~", home, 1)
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

func Get() Config {
	cfg, err := Load()
	if err != nil {
		log.WithField("error", err.Error()).Error("cant load config")
	}
	return cfg
}
