package metrics

import (
	"github.com/Conte777/ChatSentinel/internal/domain/watch/deps"
	"go.uber.org/fx"
)

// Module provides metrics for fx DI
var Module = fx.Module("metrics",
	fx.Provide(func() *Metrics {
		return GetDefaultMetrics()
	}),
	fx.Provide(func(m *Metrics) deps.MetricsRecorder {
		return m
	}),
)
