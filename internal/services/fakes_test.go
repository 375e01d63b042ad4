package services

import (
	"context"
	"time"

	"github.com/ekinacar/solace/internal/models"
	"github.com/ekinacar/solace/internal/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// fakeConvStore implements ConversationStore in memory and records calls.
type fakeConvStore struct {
	conv    *models.Conversation
	history []models.Message

	createdConvs    []*models.Conversation
	createdMessages []*models.Message
	visibleCalls    int
	lastClearedAt   *time.Time
	lastLimit       int

	turnApplied bool
	turnConvID  uuid.UUID
	turnTokens  int64
	turnAt      time.Time

	failMessageAt int // fail the nth CreateMessage call (1-based), 0 = never
	failApplyTurn bool
	msgCalls      int
}

func (f *fakeConvStore) FindByUser(_ context.Context, userID uuid.UUID) (*models.Conversation, error) {
	if f.conv == nil {
		return nil, store.ErrConversationNotFound
	}
	return f.conv, nil
}

func (f *fakeConvStore) Create(_ context.Context, conv *models.Conversation) error {
	conv.ID = uuid.New()
	f.conv = conv
	f.createdConvs = append(f.createdConvs, conv)
	return nil
}

func (f *fakeConvStore) VisibleMessages(_ context.Context, convID uuid.UUID, clearedAt *time.Time, limit int) ([]models.Message, error) {
	f.visibleCalls++
	f.lastClearedAt = clearedAt
	f.lastLimit = limit
	return f.history, nil
}

func (f *fakeConvStore) CreateMessage(_ context.Context, msg *models.Message) error {
	f.msgCalls++
	if f.failMessageAt != 0 && f.msgCalls == f.failMessageAt {
		return errors.New("store unavailable")
	}
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	f.createdMessages = append(f.createdMessages, msg)
	return nil
}

func (f *fakeConvStore) ApplyTurn(_ context.Context, convID uuid.UUID, turnTokens int64, at time.Time) error {
	if f.failApplyTurn {
		return errors.New("store unavailable")
	}
	f.turnApplied = true
	f.turnConvID = convID
	f.turnTokens = turnTokens
	f.turnAt = at
	return nil
}

// fakeProfileStore implements ProfileStore.
type fakeProfileStore struct {
	profile  *models.Profile
	checkIns []models.CheckIn

	checkInCalls int
	lastSince    time.Time
}

func (f *fakeProfileStore) FindProfile(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	if f.profile == nil {
		return nil, store.ErrProfileNotFound
	}
	return f.profile, nil
}

func (f *fakeProfileStore) RecentCheckIns(_ context.Context, userID uuid.UUID, since time.Time) ([]models.CheckIn, error) {
	f.checkInCalls++
	f.lastSince = since
	return f.checkIns, nil
}

// fakeCompleter counts calls and returns a canned reply.
type fakeCompleter struct {
	reply string
	usage Usage
	err   error

	calls       int
	lastStatic  string
	lastDynamic string
	lastMsgs    []TurnMessage
}

func (f *fakeCompleter) Complete(_ context.Context, staticTier, dynamicTier string, messages []TurnMessage) (string, Usage, error) {
	f.calls++
	f.lastStatic = staticTier
	f.lastDynamic = dynamicTier
	f.lastMsgs = messages
	if f.err != nil {
		return "", Usage{}, f.err
	}
	return f.reply, f.usage, nil
}
