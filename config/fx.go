package config

import "go.uber.org/fx"

// Result provides config parts for fx dependency injection using fx.Out pattern
type Result struct {
	fx.Out

	Config   *Config
	Telegram *TelegramConfig
	Bot      *BotConfig
	Database *DatabaseConfig
	Watch    *WatchConfig
	Logging  *LoggingConfig
	Service  *ServiceConfig
}

// Out loads configuration and returns Result for fx injection
func Out() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Config:   cfg,
		Telegram: &cfg.Telegram,
		Bot:      &cfg.Bot,
		Database: &cfg.Database,
		Watch:    &cfg.Watch,
		Logging:  &cfg.Logging,
		Service:  &cfg.Service,
	}, nil
}
