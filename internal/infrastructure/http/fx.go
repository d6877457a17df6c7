package http

import (
	"context"

	"github.com/Conte777/ChatSentinel/config"
	deliveryhttp "github.com/Conte777/ChatSentinel/internal/delivery/http"
	"github.com/Conte777/ChatSentinel/internal/infrastructure/database"
	"github.com/Conte777/ChatSentinel/internal/infrastructure/http/server"
	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/fx"
)

// Module provides HTTP server for fx DI
var Module = fx.Module("http",
	fx.Provide(NewServerFx),
	fx.Invoke(RegisterHealth),
)

// NewServerFx creates HTTP server with lifecycle hooks for fx DI
func NewServerFx(
	lc fx.Lifecycle,
	serviceCfg *config.ServiceConfig,
	logger zerolog.Logger,
) *server.Server {
	srv := server.NewServer(serviceCfg.Name, serviceCfg.Port, logger)

	// Register Prometheus metrics endpoint
	srv.RegisterMetrics()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	return srv
}

// RegisterHealth mounts the health endpoint on the server router
func RegisterHealth(
	srv *server.Server,
	sessions domain.SessionManager,
	dbChecker *database.HealthChecker,
	bot deliveryhttp.BotHealthChecker,
	logger zerolog.Logger,
) {
	handler := deliveryhttp.NewHealthHandler(
		sessions,
		dbChecker,
		bot,
		logger.With().Str("component", "health").Logger(),
	)
	srv.Router.GET("/health", fasthttpadaptor.NewFastHTTPHandler(handler))
}
