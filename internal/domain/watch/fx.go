// Package watch wires the watch pipeline components together.
package watch

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/ChatSentinel/config"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/deps"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/handlers"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/secret"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/workers"
	"github.com/Conte777/ChatSentinel/internal/repository/postgres"
)

// Module provides watch domain components for fx DI
var Module = fx.Module("watch",
	fx.Provide(postgres.NewMessageRepository),
	fx.Provide(postgres.NewExclusionRepository),
	fx.Provide(postgres.NewCredentialRepository),
	fx.Provide(secret.NewClassifier),
	fx.Provide(NewCapturerFx),
	fx.Provide(handlers.NewSinkFactory),
	workers.Module,
)

// NewCapturerFx creates the secret media capturer from config
func NewCapturerFx(
	telegramCfg *config.TelegramConfig,
	notifier deps.Notifier,
	metrics deps.MetricsRecorder,
	logger zerolog.Logger,
) *secret.Capturer {
	return secret.NewCapturer(notifier, metrics, telegramCfg.ArtifactDir, logger)
}
