package telegram

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/rs/zerolog"
)

// Router registers Telegram bot handlers
type Router struct {
	handlers *Handlers
	logger   zerolog.Logger
}

// NewRouter creates new Telegram router
func NewRouter(handlers *Handlers, logger zerolog.Logger) *Router {
	return &Router{
		handlers: handlers,
		logger:   logger,
	}
}

// RegisterRoutes registers all command handlers on the bot
func (r *Router) RegisterRoutes(bot *tgbot.Bot) {
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, r.handlers.HandleStart)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/help", tgbot.MatchTypeExact, r.handlers.HandleHelp)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/watch", tgbot.MatchTypePrefix, r.handlers.HandleWatch)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/code", tgbot.MatchTypePrefix, r.handlers.HandleCode)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/password", tgbot.MatchTypePrefix, r.handlers.HandlePassword)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/cancel", tgbot.MatchTypeExact, r.handlers.HandleCancel)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/unwatch", tgbot.MatchTypeExact, r.handlers.HandleUnwatch)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/exclude", tgbot.MatchTypePrefix, r.handlers.HandleExclude)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/include", tgbot.MatchTypePrefix, r.handlers.HandleInclude)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/excluded", tgbot.MatchTypeExact, r.handlers.HandleExcluded)
	bot.RegisterHandler(tgbot.HandlerTypeMessageText, "/status", tgbot.MatchTypeExact, r.handlers.HandleStatus)

	r.logger.Info().Msg("All Telegram command handlers registered successfully")
}
