package bot

import (
	"context"

	"github.com/Conte777/ChatSentinel/config"
	deliveryhttp "github.com/Conte777/ChatSentinel/internal/delivery/http"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module provides the delivery bot for fx DI
var Module = fx.Module("bot",
	fx.Provide(NewBotFx),
	fx.Provide(NewNotifier),
	fx.Provide(func(b *Bot) deliveryhttp.BotHealthChecker {
		return b
	}),
)

// NewBotFx creates the delivery bot with lifecycle management
func NewBotFx(
	lc fx.Lifecycle,
	cfg *config.BotConfig,
	logger zerolog.Logger,
) (*Bot, error) {
	b, err := NewBot(cfg.Token, logger.With().Str("component", "bot").Logger())
	if err != nil {
		return nil, err
	}

	botCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				_ = b.Start(botCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})

	return b, nil
}
