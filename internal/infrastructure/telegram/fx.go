package telegram

import (
	"context"

	"github.com/Conte777/ChatSentinel/config"
	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/Conte777/ChatSentinel/internal/infrastructure/metrics"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module provides the watcher session manager for fx DI
var Module = fx.Module("telegram",
	fx.Provide(NewSessionManagerFx),
	fx.Provide(NewAuthManager),
)

// NewSessionManagerFx creates the session manager with lifecycle hooks for fx DI
func NewSessionManagerFx(
	lc fx.Lifecycle,
	telegramCfg *config.TelegramConfig,
	creds domain.CredentialStore,
	sinkFactory domain.SinkFactory,
	m *metrics.Metrics,
	logger zerolog.Logger,
) domain.SessionManager {
	manager := NewSessionManager(telegramCfg, creds, sinkFactory, m, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Restore in the background, startup must not block on
			// slow or broken individual sessions
			go func() {
				report := manager.RestoreAll(context.Background())
				logger.Info().
					Int("successful", report.Successful).
					Int("failed", report.Failed).
					Int("total", report.Total).
					Msg("Watcher sessions restored")
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			disconnected := manager.Shutdown(ctx)
			logger.Info().
				Int("disconnected", disconnected).
				Msg("Watcher sessions disconnected")
			return nil
		},
	})

	return manager
}
