package workers

import (
	"context"

	"go.uber.org/fx"
)

// Module provides watch workers for fx DI
var Module = fx.Module("watch-workers",
	fx.Provide(NewDeletionChecker),
	fx.Provide(NewRetentionSweeper),
	fx.Invoke(registerLifecycle),
)

// registerLifecycle registers the workers with fx.Lifecycle
func registerLifecycle(lc fx.Lifecycle, checker *DeletionChecker, retention *RetentionSweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			checker.Start()
			retention.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			checker.Stop()
			retention.Stop()
			return nil
		},
	})
}
