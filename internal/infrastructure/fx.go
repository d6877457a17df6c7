// Package infrastructure aggregates infrastructure modules for fx DI
package infrastructure

import (
	"go.uber.org/fx"

	"github.com/Conte777/ChatSentinel/internal/infrastructure/bot"
	"github.com/Conte777/ChatSentinel/internal/infrastructure/database"
	"github.com/Conte777/ChatSentinel/internal/infrastructure/http"
	"github.com/Conte777/ChatSentinel/internal/infrastructure/logger"
	"github.com/Conte777/ChatSentinel/internal/infrastructure/metrics"
	"github.com/Conte777/ChatSentinel/internal/infrastructure/telegram"
)

// Module combines all infrastructure modules
var Module = fx.Options(
	logger.Module,
	database.Module,
	metrics.Module,
	bot.Module,
	telegram.Module,
	http.Module,
)
