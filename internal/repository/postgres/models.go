package postgres

import (
	"time"

	"github.com/Conte777/ChatSentinel/internal/domain/watch/entities"
)

// cachedMessageModel maps entities.CachedMessage onto the cached_messages table
type cachedMessageModel struct {
	MessageID      int    `gorm:"column:message_id;primaryKey"`
	ChatID         int64  `gorm:"column:chat_id;primaryKey"`
	UserID         int64  `gorm:"column:user_id;primaryKey"`
	SenderID       int64  `gorm:"column:sender_id"`
	SenderName     string `gorm:"column:sender_name"`
	SenderUsername string `gorm:"column:sender_username"`
	ChatTitle      string `gorm:"column:chat_title"`
	Content        string `gorm:"column:content"`
	MediaKind      string `gorm:"column:media_kind"`
	MediaRef       string `gorm:"column:media_ref"`
	CapturedAt     time.Time `gorm:"column:captured_at"`
}

func (cachedMessageModel) TableName() string { return "cached_messages" }

func (m *cachedMessageModel) toEntity() *entities.CachedMessage {
	return &entities.CachedMessage{
		MessageID:      m.MessageID,
		ChatID:         m.ChatID,
		UserID:         m.UserID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		SenderUsername: m.SenderUsername,
		ChatTitle:      m.ChatTitle,
		Content:        m.Content,
		MediaKind:      entities.MediaKind(m.MediaKind),
		MediaRef:       m.MediaRef,
		CapturedAt:     m.CapturedAt,
	}
}

func fromEntity(e *entities.CachedMessage) *cachedMessageModel {
	capturedAt := e.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}
	return &cachedMessageModel{
		MessageID:      e.MessageID,
		ChatID:         e.ChatID,
		UserID:         e.UserID,
		SenderID:       e.SenderID,
		SenderName:     e.SenderName,
		SenderUsername: e.SenderUsername,
		ChatTitle:      e.ChatTitle,
		Content:        e.Content,
		MediaKind:      string(e.MediaKind),
		MediaRef:       e.MediaRef,
		CapturedAt:     capturedAt,
	}
}

// excludedChatModel maps entities.ExcludedChat onto the excluded_chats table
type excludedChatModel struct {
	UserID int64  `gorm:"column:user_id;primaryKey"`
	ChatID int64  `gorm:"column:chat_id;primaryKey"`
	Title  string `gorm:"column:title"`
}

func (excludedChatModel) TableName() string { return "excluded_chats" }

// credentialModel maps entities.Credential onto the watcher_credentials table
type credentialModel struct {
	UserID    int64     `gorm:"column:user_id;primaryKey"`
	Session   []byte    `gorm:"column:session"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (credentialModel) TableName() string { return "watcher_credentials" }
