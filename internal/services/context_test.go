package services

import (
	"context"
	"testing"
	"time"

	"github.com/ekinacar/solace/internal/models"
	"github.com/ekinacar/solace/pkg/apperrors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newAssembler(convs *fakeConvStore, profiles *fakeProfileStore) *ContextAssembler {
	return NewContextAssembler(convs, profiles, 8*time.Hour, 1000, 7*24*time.Hour)
}

func TestLoadContext(t *testing.T) {
	userID := uuid.New()
	profile := &models.Profile{
		UserID:    userID,
		Name:      "Deniz",
		Struggles: datatypes.JSON(`["anxiety","sleep"]`),
		InTherapy: true,
	}

	t.Run("missing profile is a precondition failure", func(t *testing.T) {
		a := newAssembler(&fakeConvStore{}, &fakeProfileStore{})

		_, err := a.LoadContext(context.Background(), userID)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrProfileMissing)
	})

	t.Run("creates conversation lazily on first message", func(t *testing.T) {
		convs := &fakeConvStore{}
		a := newAssembler(convs, &fakeProfileStore{profile: profile})

		snap, err := a.LoadContext(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, convs.createdConvs, 1)
		assert.Equal(t, userID, convs.createdConvs[0].UserID)
		assert.Equal(t, convs.createdConvs[0].ID, snap.ConversationID)
		assert.Nil(t, snap.LastMessageAt)
	})

	t.Run("passes the cleared-at boundary and history cap to the store", func(t *testing.T) {
		cleared := time.Now().Add(-time.Hour)
		convs := &fakeConvStore{conv: &models.Conversation{ID: uuid.New(), UserID: userID, ClearedAt: &cleared}}
		a := newAssembler(convs, &fakeProfileStore{profile: profile})

		_, err := a.LoadContext(context.Background(), userID)
		require.NoError(t, err)
		require.NotNil(t, convs.lastClearedAt)
		assert.Equal(t, cleared, *convs.lastClearedAt)
		assert.Equal(t, 1000, convs.lastLimit)
	})

	t.Run("decodes profile facts", func(t *testing.T) {
		convs := &fakeConvStore{conv: &models.Conversation{ID: uuid.New(), UserID: userID}}
		a := newAssembler(convs, &fakeProfileStore{profile: profile})

		snap, err := a.LoadContext(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, "Deniz", snap.Profile.Name)
		assert.Equal(t, []string{"anxiety", "sleep"}, snap.Profile.Struggles)
		assert.True(t, snap.Profile.InTherapy)
	})

	t.Run("normalizes check-in steps to empty when malformed or empty", func(t *testing.T) {
		now := time.Now()
		profiles := &fakeProfileStore{
			profile: profile,
			checkIns: []models.CheckIn{
				{Date: now, MoodScore: 7, Steps: datatypes.JSON(`[{"dimension":"sleep","note":"slept well"}]`)},
				{Date: now.Add(-24 * time.Hour), MoodScore: 4, Steps: datatypes.JSON(`[]`)},
				{Date: now.Add(-48 * time.Hour), MoodScore: 5, Steps: datatypes.JSON(`not json`)},
				{Date: now.Add(-72 * time.Hour), MoodScore: 6},
			},
		}
		convs := &fakeConvStore{conv: &models.Conversation{ID: uuid.New(), UserID: userID}}
		a := newAssembler(convs, profiles)

		snap, err := a.LoadContext(context.Background(), userID)
		require.NoError(t, err)
		require.Len(t, snap.CheckIns, 4)
		assert.Len(t, snap.CheckIns[0].Steps, 1)
		assert.Empty(t, snap.CheckIns[1].Steps)
		assert.Empty(t, snap.CheckIns[2].Steps)
		assert.Empty(t, snap.CheckIns[3].Steps)
	})
}

func TestShouldRefresh(t *testing.T) {
	a := newAssembler(&fakeConvStore{}, &fakeProfileStore{})
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("false when no prior message", func(t *testing.T) {
		assert.False(t, a.ShouldRefresh(&ContextSnapshot{}, now))
	})

	t.Run("true exactly at the window", func(t *testing.T) {
		last := now.Add(-8 * time.Hour)
		assert.True(t, a.ShouldRefresh(&ContextSnapshot{LastMessageAt: &last}, now))
	})

	t.Run("false one minute below the window", func(t *testing.T) {
		last := now.Add(-8*time.Hour + time.Minute)
		assert.False(t, a.ShouldRefresh(&ContextSnapshot{LastMessageAt: &last}, now))
	})

	t.Run("true well past the window", func(t *testing.T) {
		last := now.Add(-8 * 24 * time.Hour)
		assert.True(t, a.ShouldRefresh(&ContextSnapshot{LastMessageAt: &last}, now))
	})
}

func TestRefreshCheckIns(t *testing.T) {
	userID := uuid.New()
	profiles := &fakeProfileStore{
		profile: &models.Profile{UserID: userID, Name: "Deniz"},
	}
	convs := &fakeConvStore{conv: &models.Conversation{ID: uuid.New(), UserID: userID}}
	a := newAssembler(convs, profiles)

	snap, err := a.LoadContext(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, profiles.checkInCalls)
	assert.Equal(t, 1, convs.visibleCalls)

	// Only the check-in window is re-read; history is not.
	profiles.checkIns = []models.CheckIn{{Date: time.Now(), MoodScore: 9}}
	require.NoError(t, a.RefreshCheckIns(context.Background(), snap))
	assert.Equal(t, 2, profiles.checkInCalls)
	assert.Equal(t, 1, convs.visibleCalls)
	require.Len(t, snap.CheckIns, 1)
	assert.Equal(t, 9, snap.CheckIns[0].MoodScore)
}
