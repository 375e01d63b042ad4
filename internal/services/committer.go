package services

import (
	"context"
	"time"

	"github.com/ekinacar/solace/internal/chat"
	"github.com/ekinacar/solace/internal/models"
	"github.com/ekinacar/solace/pkg/apperrors"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TurnCommitter persists one logical turn: the user message, the assistant
// message, then the conversation counter bump. Both messages carry the full
// usage breakdown; the usage reflects the whole turn's cost, attributed to
// both sides for accounting symmetry.
type TurnCommitter struct {
	conversations ConversationStore
}

func NewTurnCommitter(conversations ConversationStore) *TurnCommitter {
	return &TurnCommitter{conversations: conversations}
}

// Commit writes the turn. A failure after the user message is written leaves
// the turn partially committed and is surfaced as such; it is never retried
// here, since retrying would duplicate the completion call.
func (tc *TurnCommitter) Commit(ctx context.Context, convID uuid.UUID, userText, assistantText string, usage Usage, snapshot datatypes.JSON) (*models.Message, error) {
	userMsg := &models.Message{
		ConversationID:      convID,
		Role:                chat.RoleUser.String(),
		Content:             userText,
		InputTokens:         usage.InputTokens,
		OutputTokens:        usage.OutputTokens,
		CacheCreationTokens: usage.CacheCreationTokens,
		CacheReadTokens:     usage.CacheReadTokens,
	}
	if err := tc.conversations.CreateMessage(ctx, userMsg); err != nil {
		return nil, apperrors.ErrTurnCommitFailed(err)
	}

	assistantMsg := &models.Message{
		ConversationID:      convID,
		Role:                chat.RoleAssistant.String(),
		Content:             assistantText,
		InputTokens:         usage.InputTokens,
		OutputTokens:        usage.OutputTokens,
		CacheCreationTokens: usage.CacheCreationTokens,
		CacheReadTokens:     usage.CacheReadTokens,
		ContextSnapshot:     snapshot,
	}
	if err := tc.conversations.CreateMessage(ctx, assistantMsg); err != nil {
		return nil, apperrors.ErrTurnCommitFailed(err)
	}

	turnTokens := int64(usage.InputTokens) + int64(usage.OutputTokens)
	if err := tc.conversations.ApplyTurn(ctx, convID, turnTokens, time.Now()); err != nil {
		return nil, apperrors.ErrTurnCommitFailed(err)
	}

	return assistantMsg, nil
}
