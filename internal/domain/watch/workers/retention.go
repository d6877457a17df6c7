package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/ChatSentinel/config"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/deps"
)

// RetentionSweeper removes cached messages older than the retention window
type RetentionSweeper struct {
	messages deps.MessageRepository
	logger   zerolog.Logger

	interval time.Duration
	maxAge   time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

// NewRetentionSweeper creates the retention worker
func NewRetentionSweeper(
	watchCfg *config.WatchConfig,
	messages deps.MessageRepository,
	logger zerolog.Logger,
) *RetentionSweeper {
	return &RetentionSweeper{
		messages: messages,
		logger:   logger.With().Str("component", "retention_sweeper").Logger(),
		interval: watchCfg.RetentionInterval,
		maxAge:   watchCfg.RetentionMaxAge,
		done:     make(chan struct{}),
	}
}

// Start launches the periodic purge loop
func (r *RetentionSweeper) Start() {
	r.wg.Add(1)
	go r.run()

	r.logger.Info().
		Dur("interval", r.interval).
		Dur("max_age", r.maxAge).
		Msg("Retention sweeper started")
}

// Stop terminates the loop and waits for an in-flight purge
func (r *RetentionSweeper) Stop() {
	close(r.done)
	r.wg.Wait()
	r.logger.Info().Msg("Retention sweeper stopped")
}

func (r *RetentionSweeper) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.purge()

	for {
		select {
		case <-ticker.C:
			r.purge()
		case <-r.done:
			return
		}
	}
}

func (r *RetentionSweeper) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := r.messages.PurgeOlderThan(ctx, r.maxAge)
	if err != nil {
		r.logger.Error().Err(err).Msg("Retention purge failed")
		return
	}
	if removed > 0 {
		r.logger.Info().Int64("removed", removed).Msg("Purged expired cached messages")
	}
}
