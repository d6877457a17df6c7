// Package app contains application bootstrap
package app

import (
	"go.uber.org/fx"

	"github.com/Conte777/ChatSentinel/config"
	deliverytelegram "github.com/Conte777/ChatSentinel/internal/delivery/telegram"
	"github.com/Conte777/ChatSentinel/internal/domain/watch"
	"github.com/Conte777/ChatSentinel/internal/infrastructure"
)

// CreateApp creates fx application with all modules
func CreateApp() fx.Option {
	return fx.Options(
		// Configuration
		fx.Provide(config.Out),

		// Infrastructure (logger, database, metrics, bot, watcher sessions, http)
		infrastructure.Module,

		// Domain (watch pipeline)
		watch.Module,

		// Delivery (bot commands)
		deliverytelegram.Module,
	)
}
