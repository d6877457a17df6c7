package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Conte777/ChatSentinel/internal/domain"
	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new watcher credential repository
func NewCredentialRepository(db *gorm.DB) domain.CredentialStore {
	return &credentialRepository{
		db: db,
	}
}

// List returns all stored credentials
func (r *credentialRepository) List(ctx context.Context) ([]entities.Credential, error) {
	var models []credentialModel
	result := r.db.WithContext(ctx).Find(&models)
	if result.Error != nil {
		return nil, domain.ErrDatabaseOperation
	}

	creds := make([]entities.Credential, 0, len(models))
	for _, m := range models {
		creds = append(creds, entities.Credential{
			UserID:  m.UserID,
			Session: m.Session,
		})
	}
	return creds, nil
}

// Get returns the stored session blob for the user
func (r *credentialRepository) Get(ctx context.Context, userID int64) ([]byte, error) {
	var model credentialModel
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&model)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoCredentials
		}
		return nil, domain.ErrDatabaseOperation
	}
	return model.Session, nil
}

// Save stores or replaces the session blob for the user
func (r *credentialRepository) Save(ctx context.Context, userID int64, session []byte) error {
	now := time.Now().UTC()
	model := &credentialModel{
		UserID:    userID,
		Session:   session,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"session", "updated_at"}),
		}).
		Create(model)

	if result.Error != nil {
		return domain.ErrDatabaseOperation
	}
	return nil
}

// Delete removes the stored session for the user
func (r *credentialRepository) Delete(ctx context.Context, userID int64) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&credentialModel{})

	if result.Error != nil {
		return domain.ErrDatabaseOperation
	}
	return nil
}
