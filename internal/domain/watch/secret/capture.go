package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/ChatSentinel/internal/domain/watch/deps"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
)

// Capture outcomes reported to metrics
const (
	OutcomeForwarded    = "forwarded"
	OutcomeSelfArchived = "self_archived"
	OutcomeUnavailable  = "unavailable"
	OutcomeLost         = "lost"
)

// Downloader is the per-session media access the capturer needs
type Downloader interface {
	DownloadInMemory(ctx context.Context, evt *entities.MessageEvent) ([]byte, error)
	DownloadToFile(ctx context.Context, evt *entities.MessageEvent, path string) error
	SaveToSelfArchive(ctx context.Context, path string, caption string) error
}

// Capturer downloads secret media and forwards it to the owning user
type Capturer struct {
	notifier    deps.Notifier
	metrics     deps.MetricsRecorder
	artifactDir string
	logger      zerolog.Logger
}

// NewCapturer creates a capturer writing artifacts to the given directory
func NewCapturer(
	notifier deps.Notifier,
	metrics deps.MetricsRecorder,
	artifactDir string,
	logger zerolog.Logger,
) *Capturer {
	if err := os.MkdirAll(artifactDir, 0o700); err != nil {
		logger.Warn().Err(err).Str("dir", artifactDir).Msg("failed to create artifact directory")
	}

	return &Capturer{
		notifier:    notifier,
		metrics:     metrics,
		artifactDir: artifactDir,
		logger:      logger.With().Str("component", "secret_capturer").Logger(),
	}
}

// Capture downloads the media and forwards it to the user.
// Every failure degrades to the next fallback; the worst case is a text
// alert telling the user the media existed but could not be saved.
func (c *Capturer) Capture(ctx context.Context, userID int64, client Downloader, evt *entities.MessageEvent, kind entities.MediaKind) {
	path := c.artifactPath(kind)

	if !c.download(ctx, client, evt, path) {
		c.metrics.CaptureResult(OutcomeUnavailable)
		alert := fmt.Sprintf(
			"👀 Secret media detected (%s) from %s, but it could not be downloaded.",
			kindLabel(kind), evt.SenderDisplay(),
		)
		if err := c.notifier.SendAlert(ctx, userID, alert); err != nil {
			c.metrics.NotifyError()
			c.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to send unavailable alert")
		}
		return
	}

	// The artifact is temporary regardless of what happens next
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn().Err(err).Str("path", path).Msg("failed to remove artifact")
		}
	}()

	caption := fmt.Sprintf("🔐 Secret media from %s\n📁 Chat: %s", evt.SenderDisplay(), evt.ChatTitle)

	if err := c.notifier.SendMediaFile(ctx, userID, kind, path, caption); err == nil {
		c.metrics.CaptureResult(OutcomeForwarded)
		c.logger.Info().
			Int64("user_id", userID).
			Str("kind", string(kind)).
			Msg("secret media forwarded")
		return
	}
	c.metrics.NotifyError()

	// Forwarding failed, keep the payload in the watcher's saved messages
	if err := client.SaveToSelfArchive(ctx, path, caption); err == nil {
		c.metrics.CaptureResult(OutcomeSelfArchived)
		c.logger.Info().
			Int64("user_id", userID).
			Str("kind", string(kind)).
			Msg("secret media saved to self archive")
		return
	}

	c.metrics.CaptureResult(OutcomeLost)
	alert := fmt.Sprintf(
		"👀 Secret media detected (%s) from %s, but it could not be delivered.",
		kindLabel(kind), evt.SenderDisplay(),
	)
	if err := c.notifier.SendAlert(ctx, userID, alert); err != nil {
		c.metrics.NotifyError()
		c.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to send capture failure alert")
	}
}

// download tries in-memory first and falls back to a direct disk download
func (c *Capturer) download(ctx context.Context, client Downloader, evt *entities.MessageEvent, path string) bool {
	data, err := client.DownloadInMemory(ctx, evt)
	if err == nil {
		if err := os.WriteFile(path, data, 0o600); err == nil {
			return true
		}
		c.logger.Warn().Err(err).Str("path", path).Msg("failed to write artifact")
	}

	if err := client.DownloadToFile(ctx, evt, path); err == nil {
		return true
	}

	c.logger.Warn().
		Int("msg_id", evt.MsgID).
		Int64("chat_id", evt.ChatID).
		Msg("both download paths failed")
	return false
}

// artifactPath builds a unique artifact file name for the media kind
func (c *Capturer) artifactPath(kind entities.MediaKind) string {
	name := fmt.Sprintf("secret_%d%s", time.Now().UnixNano(), kind.ArtifactExt())
	return filepath.Join(c.artifactDir, name)
}

// kindLabel names the media kind for user-facing alerts
func kindLabel(kind entities.MediaKind) string {
	if kind == entities.MediaNone || kind == entities.MediaUnsupported {
		return "unknown"
	}
	return string(kind)
}
