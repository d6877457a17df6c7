// Package telegram contains Telegram delivery handlers
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/deps"
)

// RequestTimeout bounds each Bot API call
const RequestTimeout = 30 * time.Second

const helpText = `🛡 <b>ChatSentinel</b> watches your private chats and alerts you when messages are deleted or edited.

<b>Commands:</b>
/watch &lt;phone&gt; - connect your account and start watching
/code &lt;code&gt; - submit the verification code
/password &lt;password&gt; - submit the 2FA password
/cancel - abort the pending authorization
/unwatch - stop watching and forget your credentials
/exclude &lt;chat_id&gt; - stop alerting for a chat
/include &lt;chat_id&gt; - resume alerting for a chat
/excluded - list excluded chats
/status - show watcher status`

// Handlers contains Telegram command handlers
type Handlers struct {
	auth       domain.AuthManager
	sessions   domain.SessionManager
	exclusions deps.ExclusionRepository
	logger     zerolog.Logger
}

// NewHandlers creates new Telegram handlers
func NewHandlers(
	auth domain.AuthManager,
	sessions domain.SessionManager,
	exclusions deps.ExclusionRepository,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		auth:       auth,
		sessions:   sessions,
		exclusions: exclusions,
		logger:     logger.With().Str("component", "telegram_handlers").Logger(),
	}
}

// HandleStart handles /start command
func (h *Handlers) HandleStart(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	h.logCommand(userID, "/start", "processing")

	h.sendResponse(ctx, bot, update.Message.Chat.ID,
		"🛡 Welcome to <b>ChatSentinel</b>!\n\nSend /watch with your phone number to connect your account. Send /help for the full command list.")
	h.logCommand(userID, "/start", "success")
}

// HandleHelp handles /help command
func (h *Handlers) HandleHelp(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	h.sendResponse(ctx, bot, update.Message.Chat.ID, helpText)
}

// HandleWatch handles /watch command and begins the authorization flow
func (h *Handlers) HandleWatch(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	phone := commandArgument(update.Message.Text)
	if phone == "" {
		h.sendResponse(ctx, bot, chatID, "📱 Usage: /watch +1234567890")
		return
	}

	h.logCommand(userID, "/watch", "processing")

	session, err := h.auth.BeginAuth(ctx, userID, phone)
	if err != nil {
		if err == domain.ErrAuthInProgress {
			h.sendResponse(ctx, bot, chatID, "⏳ An authorization is already in progress. Send /cancel to abort it first.")
			return
		}
		h.logError(userID, "/watch", err)
		h.sendResponse(ctx, bot, chatID, "❌ Failed to start authorization. Check the phone number and try again.")
		return
	}

	switch session.Status {
	case domain.AuthStatusWaitingCode:
		h.sendResponse(ctx, bot, chatID, "🔑 Verification code sent. Reply with /code <code>.")
	case domain.AuthStatusSuccess:
		h.sendResponse(ctx, bot, chatID, "✅ Account connected, watching started.")
	default:
		h.sendResponse(ctx, bot, chatID, "⏳ Authorization started, waiting for the backend.")
	}
	h.logCommand(userID, "/watch", "success")
}

// HandleCode handles /code command
func (h *Handlers) HandleCode(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	code := commandArgument(update.Message.Text)
	if code == "" {
		h.sendResponse(ctx, bot, chatID, "🔑 Usage: /code 12345")
		return
	}

	session, err := h.auth.SubmitCode(ctx, userID, code)
	if err != nil {
		if err == domain.ErrAuthNotFound {
			h.sendResponse(ctx, bot, chatID, "❌ No authorization in progress. Start with /watch <phone>.")
			return
		}
		h.logError(userID, "/code", err)
		h.sendResponse(ctx, bot, chatID, "❌ Failed to submit the code. Try again.")
		return
	}

	h.reportAuthProgress(ctx, bot, chatID, session)
}

// HandlePassword handles /password command for 2FA accounts
func (h *Handlers) HandlePassword(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	password := commandArgument(update.Message.Text)
	if password == "" {
		h.sendResponse(ctx, bot, chatID, "🔒 Usage: /password <your 2FA password>")
		return
	}

	session, err := h.auth.SubmitPassword(ctx, userID, password)
	if err != nil {
		if err == domain.ErrAuthNotFound {
			h.sendResponse(ctx, bot, chatID, "❌ No authorization in progress. Start with /watch <phone>.")
			return
		}
		h.logError(userID, "/password", err)
		h.sendResponse(ctx, bot, chatID, "❌ Failed to submit the password. Try again.")
		return
	}

	h.reportAuthProgress(ctx, bot, chatID, session)
}

// HandleCancel handles /cancel command
func (h *Handlers) HandleCancel(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if err := h.auth.Cancel(ctx, userID); err != nil {
		h.sendResponse(ctx, bot, chatID, "ℹ️ No authorization in progress.")
		return
	}

	h.logCommand(userID, "/cancel", "success")
	h.sendResponse(ctx, bot, chatID, "🚫 Authorization cancelled.")
}

// HandleUnwatch handles /unwatch command
func (h *Handlers) HandleUnwatch(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	h.logCommand(userID, "/unwatch", "processing")

	result := h.sessions.StopSession(ctx, userID)
	if result == domain.StopNotFound {
		h.sendResponse(ctx, bot, chatID, "ℹ️ Nothing is being watched for your account.")
		return
	}

	h.logCommand(userID, "/unwatch", "success")
	h.sendResponse(ctx, bot, chatID, "👋 Watching stopped and your credentials were removed.")
}

// HandleExclude handles /exclude command
func (h *Handlers) HandleExclude(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	target, err := parseChatID(update.Message.Text)
	if err != nil {
		h.sendResponse(ctx, bot, chatID, "📁 Usage: /exclude <chat_id>")
		return
	}

	if err := h.exclusions.Add(ctx, userID, target, ""); err != nil {
		h.logError(userID, "/exclude", err)
		h.sendResponse(ctx, bot, chatID, "❌ Failed to exclude the chat.")
		return
	}

	h.logCommand(userID, "/exclude", "success")
	h.sendResponse(ctx, bot, chatID, fmt.Sprintf("🔕 Chat <code>%d</code> excluded from alerts.", target))
}

// HandleInclude handles /include command
func (h *Handlers) HandleInclude(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	target, err := parseChatID(update.Message.Text)
	if err != nil {
		h.sendResponse(ctx, bot, chatID, "📁 Usage: /include <chat_id>")
		return
	}

	if err := h.exclusions.Remove(ctx, userID, target); err != nil {
		h.logError(userID, "/include", err)
		h.sendResponse(ctx, bot, chatID, "❌ Failed to include the chat.")
		return
	}

	h.logCommand(userID, "/include", "success")
	h.sendResponse(ctx, bot, chatID, fmt.Sprintf("🔔 Chat <code>%d</code> is watched again.", target))
}

// HandleExcluded handles /excluded command
func (h *Handlers) HandleExcluded(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	excluded, err := h.exclusions.List(ctx, userID)
	if err != nil {
		h.logError(userID, "/excluded", err)
		h.sendResponse(ctx, bot, chatID, "❌ Failed to load the exclusion list.")
		return
	}

	if len(excluded) == 0 {
		h.sendResponse(ctx, bot, chatID, "📋 No excluded chats.")
		return
	}

	var result strings.Builder
	result.WriteString("📋 <b>Excluded chats:</b>\n")
	for _, chat := range excluded {
		if chat.Title != "" {
			result.WriteString(fmt.Sprintf("• <code>%d</code> %s\n", chat.ChatID, chat.Title))
		} else {
			result.WriteString(fmt.Sprintf("• <code>%d</code>\n", chat.ChatID))
		}
	}

	h.sendResponse(ctx, bot, chatID, result.String())
}

// HandleStatus handles /status command
func (h *Handlers) HandleStatus(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	client, err := h.sessions.Get(userID)
	if err != nil || !client.IsConnected() {
		h.sendResponse(ctx, bot, chatID, "💤 Your account is not being watched. Connect with /watch <phone>.")
		return
	}

	h.sendResponse(ctx, bot, chatID, "👁 Your account is being watched.")
}

// reportAuthProgress tells the user what the flow expects next
func (h *Handlers) reportAuthProgress(ctx context.Context, bot *tgbot.Bot, chatID int64, session *domain.AuthSession) {
	switch session.Status {
	case domain.AuthStatusSuccess:
		h.sendResponse(ctx, bot, chatID, "✅ Account connected, watching started.")
	case domain.AuthStatusWaitingPassword:
		h.sendResponse(ctx, bot, chatID, "🔒 2FA is enabled. Reply with /password <password>.")
	case domain.AuthStatusWaitingCode:
		h.sendResponse(ctx, bot, chatID, "🔑 Waiting for the verification code. Reply with /code <code>.")
	case domain.AuthStatusFailed:
		text := "❌ Authorization failed."
		if session.Error != "" {
			text = "❌ Authorization failed: " + session.Error
		}
		h.sendResponse(ctx, bot, chatID, text)
	default:
		h.sendResponse(ctx, bot, chatID, "⏳ Authorization in progress.")
	}
}

func (h *Handlers) sendResponse(ctx context.Context, bot *tgbot.Bot, chatID int64, text string) {
	msgCtx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	_, err := bot.SendMessage(msgCtx, &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		h.logger.Error().Int64("chat_id", chatID).Err(err).Msg("Failed to send Telegram response")
	}
}

// commandArgument returns the text after the command itself
func commandArgument(text string) string {
	_, arg, found := strings.Cut(strings.TrimSpace(text), " ")
	if !found {
		return ""
	}
	return strings.TrimSpace(arg)
}

// parseChatID parses the numeric chat id argument of a command
func parseChatID(text string) (int64, error) {
	arg := commandArgument(text)
	if arg == "" {
		return 0, fmt.Errorf("chat id is required")
	}
	return strconv.ParseInt(arg, 10, 64)
}

// logCommand logs successful commands
func (h *Handlers) logCommand(userID int64, command, result string) {
	h.logger.Info().Int64("user_id", userID).Str("command", command).Str("result", result).Msg("Telegram command processed")
}

// logError logs command errors
func (h *Handlers) logError(userID int64, command string, err error) {
	h.logger.Error().Int64("user_id", userID).Str("command", command).Err(err).Msg("Telegram command failed")
}
