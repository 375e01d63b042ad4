package store

import (
	"context"
	"time"

	"github.com/ekinacar/solace/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrProfileNotFound      = errors.New("profile not found")
)

type ConversationStore struct {
	db *gorm.DB
}

func NewConversationStore(db *gorm.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

func (s *ConversationStore) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Conversation, error) {
	conv := new(models.Conversation)
	err := s.db.WithContext(ctx).First(conv, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "convStore.FindByUser")
	}
	return conv, nil
}

func (s *ConversationStore) Create(ctx context.Context, conv *models.Conversation) error {
	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		return errors.Wrap(err, "convStore.Create")
	}
	return nil
}

// VisibleMessages returns the most recent messages after the cleared-at
// boundary, capped at limit, in creation order (oldest first).
func (s *ConversationStore) VisibleMessages(ctx context.Context, convID uuid.UUID, clearedAt *time.Time, limit int) ([]models.Message, error) {
	q := s.db.WithContext(ctx).Where("conversation_id = ?", convID)
	if clearedAt != nil {
		q = q.Where("created_at > ?", *clearedAt)
	}

	var msgs []models.Message
	if err := q.Order("created_at DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, errors.Wrap(err, "convStore.VisibleMessages")
	}

	// Query newest-first to apply the cap, then flip to creation order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *ConversationStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return errors.Wrap(err, "convStore.CreateMessage")
	}
	return nil
}

// ApplyTurn bumps the conversation counters for one committed turn.
// Increments are atomic in the database so concurrent turns for the
// same user (multiple devices) never lose an update.
func (s *ConversationStore) ApplyTurn(ctx context.Context, convID uuid.UUID, turnTokens int64, at time.Time) error {
	err := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", convID).
		Updates(map[string]interface{}{
			"total_tokens":    gorm.Expr("total_tokens + ?", turnTokens),
			"message_count":   gorm.Expr("message_count + ?", 2),
			"last_message_at": at,
		}).Error
	if err != nil {
		return errors.Wrap(err, "convStore.ApplyTurn")
	}
	return nil
}

// Clear sets the visibility boundary to now. History is never deleted.
func (s *ConversationStore) Clear(ctx context.Context, userID uuid.UUID, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("user_id = ?", userID).
		Update("cleared_at", at)
	if res.Error != nil {
		return errors.Wrap(res.Error, "convStore.Clear")
	}
	if res.RowsAffected == 0 {
		return ErrConversationNotFound
	}
	return nil
}
