package telegram

import (
	"go.uber.org/fx"

	"github.com/Conte777/ChatSentinel/internal/infrastructure/bot"
)

// Module provides Telegram delivery handlers for fx DI
var Module = fx.Module("telegram-delivery",
	fx.Provide(NewHandlers),
	fx.Provide(NewRouter),
	fx.Invoke(registerRoutes),
)

// registerRoutes mounts the command handlers on the delivery bot
func registerRoutes(router *Router, b *bot.Bot) {
	router.RegisterRoutes(b.Raw())
}
