package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Conversation is the single thread between a user and the companion.
// Exactly zero or one per user; created lazily on the first message.
// ClearedAt is a visibility boundary, never a physical delete: reads of
// history exclude messages at or before it.
type Conversation struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	MessageCount  int            `gorm:"not null;default:0" json:"message_count"`
	TotalTokens   int64          `gorm:"not null;default:0" json:"total_tokens"`
	LastMessageAt *time.Time     `json:"last_message_at"`
	ClearedAt     *time.Time     `json:"cleared_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// Message is immutable once created. Messages are written in pairs
// within a turn: one user message, then one assistant message; both
// carry the turn's token breakdown.
type Message struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ConversationID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_conv_created,priority:1" json:"conversation_id"`
	Role                string         `gorm:"type:varchar(16);not null;check:role IN ('user','assistant')" json:"role"`
	Content             string         `gorm:"type:text;not null" json:"content"`
	InputTokens         int            `gorm:"not null;default:0" json:"input_tokens"`
	OutputTokens        int            `gorm:"not null;default:0" json:"output_tokens"`
	CacheCreationTokens int            `gorm:"not null;default:0" json:"cache_creation_tokens"`
	CacheReadTokens     int            `gorm:"not null;default:0" json:"cache_read_tokens"`
	ContextSnapshot     datatypes.JSON `gorm:"type:jsonb" json:"context_snapshot,omitempty"`
	CreatedAt           time.Time      `gorm:"index:idx_conv_created,priority:2" json:"created_at"`
}
