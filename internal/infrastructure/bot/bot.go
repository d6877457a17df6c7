// Package bot contains delivery bot infrastructure
package bot

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
)

// Bot wraps the Telegram delivery bot for infrastructure layer
type Bot struct {
	bot     *tgbot.Bot
	logger  zerolog.Logger
	healthy bool
}

// NewBot creates a new delivery bot wrapper
func NewBot(token string, logger zerolog.Logger) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}

	opts := []tgbot.Option{
		tgbot.WithDefaultHandler(defaultHandler),
	}

	b, err := tgbot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	logger.Info().Msg("Delivery bot created successfully")

	return &Bot{
		bot:     b,
		logger:  logger,
		healthy: true,
	}, nil
}

// Raw returns the underlying telegram bot for handler registration
func (b *Bot) Raw() *tgbot.Bot {
	return b.bot
}

// Start starts the bot update loop (blocking call)
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info().Msg("Starting delivery bot...")
	b.bot.Start(ctx)
	b.logger.Info().Msg("Delivery bot stopped")
	return nil
}

// IsHealthy reports whether the bot is usable
func (b *Bot) IsHealthy() bool {
	return b.healthy
}

// defaultHandler handles messages that matched no registered command
func defaultHandler(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	_, _ = bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   "🤖 Use commands to interact with the bot. Send /help for the list of available commands.",
	})
}
