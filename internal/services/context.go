package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ekinacar/solace/internal/models"
	"github.com/ekinacar/solace/internal/store"
	"github.com/ekinacar/solace/pkg/apperrors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ConversationStore is the slice of persistence the chat core needs.
type ConversationStore interface {
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Conversation, error)
	Create(ctx context.Context, conv *models.Conversation) error
	VisibleMessages(ctx context.Context, convID uuid.UUID, clearedAt *time.Time, limit int) ([]models.Message, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	ApplyTurn(ctx context.Context, convID uuid.UUID, turnTokens int64, at time.Time) error
}

type ProfileStore interface {
	FindProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	RecentCheckIns(ctx context.Context, userID uuid.UUID, since time.Time) ([]models.CheckIn, error)
}

// ProfileFacts is the decoded, prompt-ready view of a profile row.
type ProfileFacts struct {
	Name                string
	Struggles           []string
	SignificantDate     *time.Time
	SignificantDateNote string
	InTherapy           bool
	TherapyDetails      string
}

type CheckInEntry struct {
	Date      time.Time
	MoodScore int
	Steps     []models.CheckInStep
}

// ContextSnapshot is built fresh per turn and discarded after it.
type ContextSnapshot struct {
	UserID         uuid.UUID
	ConversationID uuid.UUID
	ClearedAt      *time.Time
	Profile        ProfileFacts
	CheckIns       []CheckInEntry
	History        []models.Message
	LastMessageAt  *time.Time
}

type ContextAssembler struct {
	conversations ConversationStore
	profiles      ProfileStore
	staleAfter    time.Duration
	historyLimit  int
	checkInWindow time.Duration
}

func NewContextAssembler(conversations ConversationStore, profiles ProfileStore, staleAfter time.Duration, historyLimit int, checkInWindow time.Duration) *ContextAssembler {
	return &ContextAssembler{
		conversations: conversations,
		profiles:      profiles,
		staleAfter:    staleAfter,
		historyLimit:  historyLimit,
		checkInWindow: checkInWindow,
	}
}

// LoadContext gathers everything a turn needs: profile facts, the recent
// check-in window, and the visible message history. A missing profile is a
// precondition failure; chatting requires completed onboarding.
func (a *ContextAssembler) LoadContext(ctx context.Context, userID uuid.UUID) (*ContextSnapshot, error) {
	profile, err := a.profiles.FindProfile(ctx, userID)
	if errors.Is(err, store.ErrProfileNotFound) {
		return nil, apperrors.ErrProfileMissing
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to load profile", err)
	}

	conv, err := a.conversations.FindByUser(ctx, userID)
	if errors.Is(err, store.ErrConversationNotFound) {
		conv = &models.Conversation{UserID: userID}
		if cerr := a.conversations.Create(ctx, conv); cerr != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to create conversation", cerr)
		}
	} else if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to load conversation", err)
	}

	history, err := a.conversations.VisibleMessages(ctx, conv.ID, conv.ClearedAt, a.historyLimit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to load message history", err)
	}

	checkIns, err := a.loadCheckIns(ctx, userID)
	if err != nil {
		return nil, err
	}

	snap := &ContextSnapshot{
		UserID:         userID,
		ConversationID: conv.ID,
		ClearedAt:      conv.ClearedAt,
		Profile:        decodeProfile(profile),
		CheckIns:       checkIns,
		History:        history,
		LastMessageAt:  conv.LastMessageAt,
	}
	return snap, nil
}

// ShouldRefresh reports whether enough wall-clock time has passed since the
// last message that the check-in window is worth re-reading. A freshness
// heuristic, not a correctness requirement: a false positive only costs a read.
func (a *ContextAssembler) ShouldRefresh(snap *ContextSnapshot, now time.Time) bool {
	if snap.LastMessageAt == nil {
		return false
	}
	return now.Sub(*snap.LastMessageAt) >= a.staleAfter
}

// RefreshCheckIns re-reads only the check-in window. Profile facts and
// message history are not time-sensitive at this granularity.
func (a *ContextAssembler) RefreshCheckIns(ctx context.Context, snap *ContextSnapshot) error {
	checkIns, err := a.loadCheckIns(ctx, snap.UserID)
	if err != nil {
		return err
	}
	snap.CheckIns = checkIns
	return nil
}

func (a *ContextAssembler) loadCheckIns(ctx context.Context, userID uuid.UUID) ([]CheckInEntry, error) {
	rows, err := a.profiles.RecentCheckIns(ctx, userID, time.Now().Add(-a.checkInWindow))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to load check-ins", err)
	}

	entries := make([]CheckInEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, CheckInEntry{
			Date:      row.Date,
			MoodScore: row.MoodScore,
			Steps:     normalizeSteps(row.Steps),
		})
	}
	return entries, nil
}

// normalizeSteps validates step data to a non-empty sequence or nothing.
func normalizeSteps(raw []byte) []models.CheckInStep {
	if len(raw) == 0 {
		return nil
	}
	var steps []models.CheckInStep
	if err := json.Unmarshal(raw, &steps); err != nil || len(steps) == 0 {
		return nil
	}
	return steps
}

func decodeProfile(p *models.Profile) ProfileFacts {
	var struggles []string
	if len(p.Struggles) > 0 {
		json.Unmarshal(p.Struggles, &struggles)
	}
	return ProfileFacts{
		Name:                p.Name,
		Struggles:           struggles,
		SignificantDate:     p.SignificantDate,
		SignificantDateNote: p.SignificantDateNote,
		InTherapy:           p.InTherapy,
		TherapyDetails:      p.TherapyDetails,
	}
}
