// Package workers contains the background sweeps of the watch pipeline.
package workers

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/ChatSentinel/config"
	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/deps"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
)

// maxConcurrentSweeps caps how many reconciliation sweeps may overlap
const maxConcurrentSweeps = 2

// DeletionChecker periodically reconciles cached messages against the
// backend and alerts users about messages that disappeared.
type DeletionChecker struct {
	sessions   domain.SessionManager
	messages   deps.MessageRepository
	exclusions deps.ExclusionRepository
	notifier   deps.Notifier
	metrics    deps.MetricsRecorder
	logger     zerolog.Logger

	interval time.Duration
	lookback int
	timeout  time.Duration

	// sweepSlots is a counting semaphore; a tick that finds it full is skipped
	sweepSlots chan struct{}

	done chan struct{}
	wg   sync.WaitGroup
}

// NewDeletionChecker creates the reconciliation worker
func NewDeletionChecker(
	watchCfg *config.WatchConfig,
	sessions domain.SessionManager,
	messages deps.MessageRepository,
	exclusions deps.ExclusionRepository,
	notifier deps.Notifier,
	metrics deps.MetricsRecorder,
	logger zerolog.Logger,
) *DeletionChecker {
	return &DeletionChecker{
		sessions:   sessions,
		messages:   messages,
		exclusions: exclusions,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger.With().Str("component", "deletion_checker").Logger(),
		interval:   watchCfg.DeletionCheckInterval,
		lookback:   watchCfg.DeletionCheckLookback,
		timeout:    watchCfg.DeletionCheckTimeout,
		sweepSlots: make(chan struct{}, maxConcurrentSweeps),
		done:       make(chan struct{}),
	}
}

// Start launches the periodic sweep loop
func (d *DeletionChecker) Start() {
	d.wg.Add(1)
	go d.run()

	d.logger.Info().
		Dur("interval", d.interval).
		Int("lookback", d.lookback).
		Msg("Deletion checker started")
}

// Stop terminates the loop and waits for in-flight sweeps
func (d *DeletionChecker) Stop() {
	close(d.done)
	d.wg.Wait()
	d.logger.Info().Msg("Deletion checker stopped")
}

func (d *DeletionChecker) run() {
	defer d.wg.Done()

	// Let session restore make some progress before the first sweep
	select {
	case <-time.After(5 * time.Second):
	case <-d.done:
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.dispatchSweep()

	for {
		select {
		case <-ticker.C:
			d.dispatchSweep()
		case <-d.done:
			return
		}
	}
}

// dispatchSweep runs a sweep unless the concurrency cap is reached
func (d *DeletionChecker) dispatchSweep() {
	select {
	case d.sweepSlots <- struct{}{}:
	default:
		d.metrics.SweepSkipped()
		d.logger.Warn().Msg("Sweep skipped, previous sweeps still running")
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.sweepSlots }()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		d.sweep(ctx)
	}()
}

// sweep reconciles every active session once
func (d *DeletionChecker) sweep(ctx context.Context) {
	start := time.Now()
	users := d.sessions.ListActive()

	for _, userID := range users {
		select {
		case <-ctx.Done():
			d.logger.Warn().Err(ctx.Err()).Msg("Sweep aborted")
			return
		default:
		}

		d.sweepUser(ctx, userID)
	}

	d.metrics.SweepCompleted(time.Since(start))
	d.logger.Debug().
		Int("users", len(users)).
		Dur("duration", time.Since(start)).
		Msg("Sweep completed")
}

// sweepUser reconciles the newest cached messages of one user
func (d *DeletionChecker) sweepUser(ctx context.Context, userID int64) {
	client, err := d.sessions.Get(userID)
	if err != nil {
		return
	}

	cached, err := d.messages.RecentForOwner(ctx, userID, d.lookback)
	if err != nil {
		d.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load cached messages")
		return
	}
	if len(cached) == 0 {
		return
	}

	excluded, err := d.exclusions.ListChatIDs(ctx, userID)
	if err != nil {
		d.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load exclusions")
		excluded = nil
	}
	excludedSet := make(map[int64]struct{}, len(excluded))
	for _, chatID := range excluded {
		excludedSet[chatID] = struct{}{}
	}

	// One batched lookup per chat
	byChat := make(map[int64][]entities.CachedMessage)
	for _, msg := range cached {
		if _, skip := excludedSet[msg.ChatID]; skip {
			continue
		}
		byChat[msg.ChatID] = append(byChat[msg.ChatID], msg)
	}

	for chatID, msgs := range byChat {
		d.sweepChat(ctx, userID, chatID, client, msgs)
	}
}

// sweepChat looks up the cached ids of one chat and handles the absent ones.
// A failed lookup retains the cached rows for the next sweep.
func (d *DeletionChecker) sweepChat(ctx context.Context, userID, chatID int64, client domain.WatcherClient, msgs []entities.CachedMessage) {
	ids := make([]int, len(msgs))
	index := make(map[int]entities.CachedMessage, len(msgs))
	for i, msg := range msgs {
		ids[i] = msg.MessageID
		index[msg.MessageID] = msg
	}

	fetched, err := client.FetchMessages(ctx, chatID, ids)
	if err != nil {
		d.logger.Warn().Err(err).
			Int64("user_id", userID).
			Int64("chat_id", chatID).
			Int("ids", len(ids)).
			Msg("Batched lookup failed, retaining cached messages")
		return
	}

	for _, f := range fetched {
		if !f.Absent {
			continue
		}
		msg, ok := index[f.ID]
		if !ok {
			continue
		}
		d.handleDeleted(ctx, userID, &msg)
	}
}

// handleDeleted restores the deleted message to its owner and evicts it
func (d *DeletionChecker) handleDeleted(ctx context.Context, userID int64, msg *entities.CachedMessage) {
	d.metrics.DeletionDetected()
	d.logger.Info().
		Int64("user_id", userID).
		Int64("chat_id", msg.ChatID).
		Int("msg_id", msg.MessageID).
		Msg("Deleted message detected")

	restored := false
	if msg.MediaRef != "" {
		caption := fmt.Sprintf("🗑 Deleted %s from %s", kindLabel(msg.MediaKind), senderDisplay(msg))
		if err := d.notifier.SendMediaRef(ctx, userID, msg.MediaKind, msg.MediaRef, caption); err != nil {
			d.metrics.NotifyError()
			d.logger.Warn().Err(err).
				Int("msg_id", msg.MessageID).
				Msg("Failed to restore media by reference")
		} else {
			restored = true
		}
	}

	if err := d.notifier.SendAlert(ctx, userID, formatDeletionAlert(msg, restored)); err != nil {
		d.metrics.NotifyError()
		d.logger.Error().Err(err).
			Int("msg_id", msg.MessageID).
			Msg("Failed to send deletion alert")
	}

	if err := d.messages.Delete(ctx, msg.MessageID, msg.ChatID, userID); err != nil {
		d.logger.Error().Err(err).
			Int("msg_id", msg.MessageID).
			Msg("Failed to evict cached message")
	}
}

// formatDeletionAlert builds the user-facing deletion notification
func formatDeletionAlert(msg *entities.CachedMessage, mediaRestored bool) string {
	text := fmt.Sprintf(
		"🗑 <b>Message deleted!</b>\n👤 %s\n📁 Chat: %s\n📜 Content: %s",
		html.EscapeString(senderDisplay(msg)),
		html.EscapeString(chatDisplay(msg)),
		html.EscapeString(msg.Content),
	)
	if msg.MediaKind != entities.MediaNone {
		if mediaRestored {
			text += "\n📎 Media restored above"
		} else if msg.MediaRef != "" {
			text += "\n📎 Media could not be restored"
		}
	}
	return text
}

// chatDisplay names the chat for user-facing alerts
func chatDisplay(msg *entities.CachedMessage) string {
	if msg.ChatTitle != "" {
		return msg.ChatTitle
	}
	return fmt.Sprintf("id %d", msg.ChatID)
}

// senderDisplay mirrors the live-event sender formatting for cached rows
func senderDisplay(msg *entities.CachedMessage) string {
	if msg.SenderUsername != "" {
		return msg.SenderName + " (@" + msg.SenderUsername + ")"
	}
	if msg.SenderName != "" {
		return msg.SenderName
	}
	return fmt.Sprintf("id %d", msg.SenderID)
}

// kindLabel names the media kind for user-facing alerts
func kindLabel(kind entities.MediaKind) string {
	switch kind {
	case entities.MediaNone, entities.MediaUnsupported, entities.MediaOther:
		return "media"
	default:
		return string(kind)
	}
}
