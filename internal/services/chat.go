package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ekinacar/solace/pkg/apperrors"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Completer is the upstream completion dependency.
type Completer interface {
	Complete(ctx context.Context, staticTier, dynamicTier string, messages []TurnMessage) (string, Usage, error)
}

// TurnResult is what the realtime layer delivers to the user's group.
type TurnResult struct {
	MessageID        uuid.UUID
	Content          string
	Usage            Usage
	ContextRefreshed bool
	Timestamp        time.Time
}

// ChatService runs the whole turn pipeline: assemble context, build the
// prompt, call the completion API, commit the turn. Turns for one user are
// serialized through a per-user mutex so a second message never reads
// history mid-commit; turns for different users run concurrently.
type ChatService struct {
	assembler   *ContextAssembler
	prompts     PromptBuilder
	completions Completer
	committer   *TurnCommitter
	turnTimeout time.Duration

	mu        sync.Mutex
	userLocks map[uuid.UUID]*sync.Mutex
}

func NewChatService(assembler *ContextAssembler, completions Completer, committer *TurnCommitter, turnTimeout time.Duration) *ChatService {
	return &ChatService{
		assembler:   assembler,
		completions: completions,
		committer:   committer,
		turnTimeout: turnTimeout,
		userLocks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *ChatService) lockFor(userID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.userLocks[userID]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.userLocks[userID] = l
	return l
}

// Send processes one turn for one user.
func (s *ChatService) Send(ctx context.Context, userID uuid.UUID, text string) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ErrEmptyMessage
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()

	start := time.Now()

	snap, err := s.assembler.LoadContext(ctx, userID)
	if err != nil {
		return nil, err
	}

	refreshed := false
	if s.assembler.ShouldRefresh(snap, start) {
		if err := s.assembler.RefreshCheckIns(ctx, snap); err != nil {
			return nil, err
		}
		refreshed = true
	}

	dynamicTier := s.prompts.DynamicTier(snap, refreshed, start)
	messages, err := s.prompts.BuildMessages(snap, text)
	if err != nil {
		return nil, err
	}

	reply, usage, err := s.completions.Complete(ctx, s.prompts.StaticTier(), dynamicTier, messages)
	if err != nil {
		return nil, err
	}

	// The completion is already consumed; commit even if the caller has
	// gone away so the stored history stays consistent. Delivery is the
	// hub's problem, not ours.
	commitCtx, commitCancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer commitCancel()

	assistantMsg, err := s.committer.Commit(commitCtx, snap.ConversationID, text, reply, usage, snapshotSummary(snap, refreshed))
	if err != nil {
		return nil, err
	}

	slog.Info("turn committed",
		"user_id", userID,
		"conversation_id", snap.ConversationID,
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"cache_read_tokens", usage.CacheReadTokens,
		"refreshed", refreshed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &TurnResult{
		MessageID:        assistantMsg.ID,
		Content:          reply,
		Usage:            usage,
		ContextRefreshed: refreshed,
		Timestamp:        assistantMsg.CreatedAt,
	}, nil
}

// snapshotSummary records what context produced the assistant message.
func snapshotSummary(snap *ContextSnapshot, refreshed bool) datatypes.JSON {
	summary := map[string]interface{}{
		"history_messages": len(snap.History),
		"check_ins":        len(snap.CheckIns),
		"refreshed":        refreshed,
	}
	if snap.LastMessageAt != nil {
		summary["last_message_at"] = snap.LastMessageAt.UTC().Format(time.RFC3339)
	}
	data, _ := json.Marshal(summary)
	return datatypes.JSON(data)
}
