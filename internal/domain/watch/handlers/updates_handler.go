// Package handlers contains the per-session ingestion pipeline.
package handlers

import (
	"context"
	"fmt"
	"html"

	"github.com/rs/zerolog"

	"github.com/Conte777/ChatSentinel/config"
	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/deps"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/secret"
)

// WatchHandler consumes update events for one watcher session.
// Implements domain.EventSink. One instance is bound to one user.
type WatchHandler struct {
	userID    int64
	botUserID int64

	client     domain.WatcherClient
	messages   deps.MessageRepository
	notifier   deps.Notifier
	classifier *secret.Classifier
	capturer   *secret.Capturer
	metrics    deps.MetricsRecorder
	logger     zerolog.Logger
}

// NewWatchHandler creates the event sink for one session
func NewWatchHandler(
	userID int64,
	botUserID int64,
	client domain.WatcherClient,
	messages deps.MessageRepository,
	notifier deps.Notifier,
	classifier *secret.Classifier,
	capturer *secret.Capturer,
	metrics deps.MetricsRecorder,
	logger zerolog.Logger,
) *WatchHandler {
	return &WatchHandler{
		userID:     userID,
		botUserID:  botUserID,
		client:     client,
		messages:   messages,
		notifier:   notifier,
		classifier: classifier,
		capturer:   capturer,
		metrics:    metrics,
		logger:     logger.With().Str("component", "watch_handler").Int64("user_id", userID).Logger(),
	}
}

// NewSinkFactory builds the per-session sink constructor for the session manager
func NewSinkFactory(
	botCfg *config.BotConfig,
	messages deps.MessageRepository,
	notifier deps.Notifier,
	classifier *secret.Classifier,
	capturer *secret.Capturer,
	metrics deps.MetricsRecorder,
	logger zerolog.Logger,
) domain.SinkFactory {
	botUserID := botCfg.BotUserID()
	return func(userID int64, client domain.WatcherClient) domain.EventSink {
		return NewWatchHandler(userID, botUserID, client, messages, notifier, classifier, capturer, metrics, logger)
	}
}

// inScope applies the watch scope filter: only incoming messages in
// one-to-one private conversations are processed, and traffic with the
// delivery bot itself is invisible to the pipeline
func (h *WatchHandler) inScope(evt *entities.MessageEvent) bool {
	if !evt.Private {
		return false
	}
	if evt.Out {
		return false
	}
	if h.botUserID != 0 && (evt.ChatID == h.botUserID || evt.SenderID == h.botUserID) {
		return false
	}
	return true
}

// HandleNewMessage ingests one incoming message
func (h *WatchHandler) HandleNewMessage(ctx context.Context, evt *entities.MessageEvent) {
	if !h.inScope(evt) {
		return
	}

	// The snapshot must be durable before anything talks to the backend
	if err := h.persist(ctx, evt); err != nil {
		h.logger.Error().Err(err).
			Int("msg_id", evt.MsgID).
			Int64("chat_id", evt.ChatID).
			Msg("failed to cache message, skipping capture")
		return
	}
	h.metrics.EventIngested(string(evt.MediaKind))

	verdict := h.classifier.Classify(ctx, evt, h.client)
	if !verdict.Secret {
		return
	}

	h.metrics.SecretDetected(verdict.Tier)
	h.logger.Info().
		Int("msg_id", evt.MsgID).
		Int64("chat_id", evt.ChatID).
		Str("tier", verdict.Tier).
		Str("kind", string(verdict.Kind)).
		Msg("secret media detected")

	// Protected text carries nothing to download
	if !evt.HasMedia() {
		return
	}

	h.capturer.Capture(ctx, h.userID, h.client, evt, verdict.Kind)
}

// HandleEditMessage compares the edit against the cached snapshot and
// alerts the user when the visible content changed
func (h *WatchHandler) HandleEditMessage(ctx context.Context, evt *entities.MessageEvent) {
	if !h.inScope(evt) {
		return
	}

	cached, err := h.messages.Get(ctx, evt.MsgID, evt.ChatID, h.userID)
	if err != nil {
		// Never-seen message: cache it like a new one, nothing to diff
		if persistErr := h.persist(ctx, evt); persistErr != nil {
			h.logger.Error().Err(persistErr).Int("msg_id", evt.MsgID).Msg("failed to cache edited message")
		}
		return
	}

	newContent := contentOf(evt)
	if cached.Content != newContent {
		h.metrics.EditDetected()

		alert := formatEditAlert(evt, cached.Content, newContent)
		if err := h.notifier.SendAlert(ctx, h.userID, alert); err != nil {
			h.metrics.NotifyError()
			h.logger.Error().Err(err).Int("msg_id", evt.MsgID).Msg("failed to send edit alert")
		}
	}

	// Replace the snapshot so later diffs and restores see the new state.
	// An edit that dropped the media clears the stored media fields too.
	if err := h.persist(ctx, evt); err != nil {
		h.logger.Error().Err(err).Int("msg_id", evt.MsgID).Msg("failed to update cached message")
	}
}

// persist writes the event snapshot through the upsert
func (h *WatchHandler) persist(ctx context.Context, evt *entities.MessageEvent) error {
	return h.messages.Upsert(ctx, &entities.CachedMessage{
		MessageID:      evt.MsgID,
		ChatID:         evt.ChatID,
		UserID:         h.userID,
		SenderID:       evt.SenderID,
		SenderName:     evt.SenderName,
		SenderUsername: evt.SenderUsername,
		ChatTitle:      evt.ChatTitle,
		Content:        contentOf(evt),
		MediaKind:      evt.MediaKind,
		MediaRef:       evt.MediaRef,
		CapturedAt:     evt.Date,
	})
}

// contentOf returns the message text or the media placeholder
func contentOf(evt *entities.MessageEvent) string {
	if evt.Text != "" {
		return evt.Text
	}
	return evt.MediaKind.Placeholder()
}

// formatEditAlert builds the user-facing edit notification
func formatEditAlert(evt *entities.MessageEvent, oldContent, newContent string) string {
	return fmt.Sprintf(
		"✏️ <b>Message edited!</b>\n👤 %s\n📜 Was: %s\n🆕 Now: %s",
		html.EscapeString(evt.SenderDisplay()),
		html.EscapeString(oldContent),
		html.EscapeString(newContent),
	)
}
