package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/deps"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new cached message repository
func NewMessageRepository(db *gorm.DB) deps.MessageRepository {
	return &messageRepository{
		db: db,
	}
}

// Upsert inserts the snapshot or replaces an existing row with the same key
func (r *messageRepository) Upsert(ctx context.Context, msg *entities.CachedMessage) error {
	model := fromEntity(msg)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "message_id"},
				{Name: "chat_id"},
				{Name: "user_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"sender_id", "sender_name", "sender_username",
				"chat_title", "content", "media_kind", "media_ref", "captured_at",
			}),
		}).
		Create(model)

	if result.Error != nil {
		return domain.ErrDatabaseOperation
	}
	return nil
}

// Get retrieves a cached message by its composite key
func (r *messageRepository) Get(ctx context.Context, msgID int, chatID, userID int64) (*entities.CachedMessage, error) {
	var model cachedMessageModel
	result := r.db.WithContext(ctx).
		Where("message_id = ? AND chat_id = ? AND user_id = ?", msgID, chatID, userID).
		First(&model)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, domain.ErrDatabaseOperation
	}

	return model.toEntity(), nil
}

// RecentForOwner returns the newest cached messages for the user, newest first
func (r *messageRepository) RecentForOwner(ctx context.Context, userID int64, limit int) ([]entities.CachedMessage, error) {
	var models []cachedMessageModel
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("captured_at DESC").
		Limit(limit).
		Find(&models)

	if result.Error != nil {
		return nil, domain.ErrDatabaseOperation
	}

	messages := make([]entities.CachedMessage, 0, len(models))
	for i := range models {
		messages = append(messages, *models[i].toEntity())
	}
	return messages, nil
}

// Delete removes a cached message. Deleting an absent row is not an error.
func (r *messageRepository) Delete(ctx context.Context, msgID int, chatID, userID int64) error {
	result := r.db.WithContext(ctx).
		Where("message_id = ? AND chat_id = ? AND user_id = ?", msgID, chatID, userID).
		Delete(&cachedMessageModel{})

	if result.Error != nil {
		return domain.ErrDatabaseOperation
	}
	return nil
}

// PurgeOlderThan removes cached messages captured before now-age and
// returns the number of removed rows
func (r *messageRepository) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age)

	result := r.db.WithContext(ctx).
		Where("captured_at < ?", cutoff).
		Delete(&cachedMessageModel{})

	if result.Error != nil {
		return 0, domain.ErrDatabaseOperation
	}
	return result.RowsAffected, nil
}
