package deps

import (
	"context"
	"time"

	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
)

// MessageRepository persists cached message snapshots.
// Upsert replaces any existing row with the same (message_id, chat_id, user_id).
type MessageRepository interface {
	Upsert(ctx context.Context, msg *entities.CachedMessage) error
	Get(ctx context.Context, msgID int, chatID, userID int64) (*entities.CachedMessage, error)
	RecentForOwner(ctx context.Context, userID int64, limit int) ([]entities.CachedMessage, error)
	Delete(ctx context.Context, msgID int, chatID, userID int64) error
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// ExclusionRepository persists per-user chat exclusion lists
type ExclusionRepository interface {
	Add(ctx context.Context, userID, chatID int64, title string) error
	Remove(ctx context.Context, userID, chatID int64) error
	ListChatIDs(ctx context.Context, userID int64) ([]int64, error)
	List(ctx context.Context, userID int64) ([]entities.ExcludedChat, error)
}

// Notifier delivers alerts and recovered media to the owning user
type Notifier interface {
	// SendAlert sends a text notification
	SendAlert(ctx context.Context, userID int64, text string) error

	// SendMediaFile uploads a local artifact with a caption
	SendMediaFile(ctx context.Context, userID int64, kind entities.MediaKind, path, caption string) error

	// SendMediaRef sends media referenced by a delivery-side file id with a caption
	SendMediaRef(ctx context.Context, userID int64, kind entities.MediaKind, fileID, caption string) error
}

// MetricsRecorder records watch pipeline metrics
type MetricsRecorder interface {
	EventIngested(kind string)
	EditDetected()
	SecretDetected(tier string)
	CaptureResult(outcome string)
	DeletionDetected()
	SweepCompleted(duration time.Duration)
	SweepSkipped()
	NotifyError()
}
