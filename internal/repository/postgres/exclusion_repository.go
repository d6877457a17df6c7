package postgres

import (
	"context"

	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/deps"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type exclusionRepository struct {
	db *gorm.DB
}

// NewExclusionRepository creates a new chat exclusion repository
func NewExclusionRepository(db *gorm.DB) deps.ExclusionRepository {
	return &exclusionRepository{
		db: db,
	}
}

// Add puts a chat on the user's exclusion list. Adding twice is a no-op.
func (r *exclusionRepository) Add(ctx context.Context, userID, chatID int64, title string) error {
	model := &excludedChatModel{
		UserID: userID,
		ChatID: chatID,
		Title:  title,
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "chat_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"title"}),
		}).
		Create(model)

	if result.Error != nil {
		return domain.ErrDatabaseOperation
	}
	return nil
}

// Remove takes a chat off the user's exclusion list
func (r *exclusionRepository) Remove(ctx context.Context, userID, chatID int64) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND chat_id = ?", userID, chatID).
		Delete(&excludedChatModel{})

	if result.Error != nil {
		return domain.ErrDatabaseOperation
	}
	return nil
}

// ListChatIDs returns the chat ids excluded by the user
func (r *exclusionRepository) ListChatIDs(ctx context.Context, userID int64) ([]int64, error) {
	var chatIDs []int64
	result := r.db.WithContext(ctx).
		Model(&excludedChatModel{}).
		Where("user_id = ?", userID).
		Pluck("chat_id", &chatIDs)

	if result.Error != nil {
		return nil, domain.ErrDatabaseOperation
	}
	return chatIDs, nil
}

// List returns the user's exclusion list with chat titles
func (r *exclusionRepository) List(ctx context.Context, userID int64) ([]entities.ExcludedChat, error) {
	var models []excludedChatModel
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("chat_id").
		Find(&models)

	if result.Error != nil {
		return nil, domain.ErrDatabaseOperation
	}

	excluded := make([]entities.ExcludedChat, 0, len(models))
	for _, m := range models {
		excluded = append(excluded, entities.ExcludedChat{
			UserID: m.UserID,
			ChatID: m.ChatID,
			Title:  m.Title,
		})
	}
	return excluded, nil
}
