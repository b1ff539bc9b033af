package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	DatabaseURL   string `env:"DATABASE_URL,required"`
	OpenRouterKey string `env:"OPENROUTER_API_KEY,required"`

	// Server
	Port               int      `env:"PORT" envDefault:"8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Scene engine
	DefaultModel  string `env:"DEFAULT_MODEL" envDefault:"z-ai/glm-4.5-air:free"`
	ContextWindow int    `env:"CONTEXT_WINDOW" envDefault:"20"`
	SchedulerSeed int64  `env:"SCHEDULER_SEED"` // 0 picks a crypto seed at startup

	// Ops notifications (optional)
	NotifyBotToken string `env:"NOTIFY_BOT_TOKEN"`
	NotifyChatID   int64  `env:"NOTIFY_CHAT_ID"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
