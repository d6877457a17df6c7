package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/Conte777/ChatSentinel/internal/domain/watch/deps"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
)

// RequestTimeout bounds every outgoing Bot API call
const RequestTimeout = 30 * time.Second

// Notifier delivers alerts and recovered media through the bot.
// Implements deps.Notifier.
type Notifier struct {
	bot    *Bot
	logger zerolog.Logger
}

// NewNotifier creates a new bot-backed notifier
func NewNotifier(b *Bot, logger zerolog.Logger) deps.Notifier {
	return &Notifier{
		bot:    b,
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

// SendAlert sends a text notification to the user
func (n *Notifier) SendAlert(ctx context.Context, userID int64, text string) error {
	if text == "" {
		return fmt.Errorf("alert text cannot be empty")
	}

	msgCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	_, err := n.bot.Raw().SendMessage(msgCtx, &tgbot.SendMessageParams{
		ChatID:    userID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		n.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to send alert")
		return fmt.Errorf("failed to send alert: %w", err)
	}
	return nil
}

// SendMediaFile uploads a local artifact to the user with a caption
func (n *Notifier) SendMediaFile(ctx context.Context, userID int64, kind entities.MediaKind, path, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	upload := &models.InputFileUpload{
		Filename: filepath.Base(path),
		Data:     f,
	}

	msgCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	if err := n.sendMedia(msgCtx, userID, kind, upload, caption); err != nil {
		n.logger.Error().Err(err).
			Int64("user_id", userID).
			Str("kind", string(kind)).
			Msg("Failed to send media file")
		return fmt.Errorf("failed to send media file: %w", err)
	}
	return nil
}

// SendMediaRef sends media referenced by a Bot API file id with a caption
func (n *Notifier) SendMediaRef(ctx context.Context, userID int64, kind entities.MediaKind, fileID, caption string) error {
	if fileID == "" {
		return fmt.Errorf("file id cannot be empty")
	}

	msgCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	ref := &models.InputFileString{Data: fileID}
	if err := n.sendMedia(msgCtx, userID, kind, ref, caption); err != nil {
		n.logger.Error().Err(err).
			Int64("user_id", userID).
			Str("kind", string(kind)).
			Msg("Failed to send media reference")
		return fmt.Errorf("failed to send media reference: %w", err)
	}
	return nil
}

// sendMedia dispatches to the kind-appropriate Bot API method
func (n *Notifier) sendMedia(ctx context.Context, userID int64, kind entities.MediaKind, file models.InputFile, caption string) error {
	bot := n.bot.Raw()

	switch kind {
	case entities.MediaPhoto, entities.MediaSticker:
		_, err := bot.SendPhoto(ctx, &tgbot.SendPhotoParams{
			ChatID:    userID,
			Photo:     file,
			Caption:   caption,
			ParseMode: models.ParseModeHTML,
		})
		return err
	case entities.MediaVideo, entities.MediaAnimation:
		_, err := bot.SendVideo(ctx, &tgbot.SendVideoParams{
			ChatID:    userID,
			Video:     file,
			Caption:   caption,
			ParseMode: models.ParseModeHTML,
		})
		return err
	case entities.MediaVoice, entities.MediaAudio:
		_, err := bot.SendVoice(ctx, &tgbot.SendVoiceParams{
			ChatID:    userID,
			Voice:     file,
			Caption:   caption,
			ParseMode: models.ParseModeHTML,
		})
		return err
	case entities.MediaVideoNote:
		// Video notes have no caption field, send the caption separately
		_, err := bot.SendVideoNote(ctx, &tgbot.SendVideoNoteParams{
			ChatID:    userID,
			VideoNote: file,
		})
		if err != nil {
			return err
		}
		if caption != "" {
			_, err = bot.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID:    userID,
				Text:      caption,
				ParseMode: models.ParseModeHTML,
			})
		}
		return err
	default:
		_, err := bot.SendDocument(ctx, &tgbot.SendDocumentParams{
			ChatID:    userID,
			Document:  file,
			Caption:   caption,
			ParseMode: models.ParseModeHTML,
		})
		return err
	}
}
