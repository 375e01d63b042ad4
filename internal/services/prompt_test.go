package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ekinacar/solace/internal/chat"
	"github.com/ekinacar/solace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicTier(t *testing.T) {
	var b PromptBuilder
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	baseSnap := func() *ContextSnapshot {
		return &ContextSnapshot{
			Profile: ProfileFacts{
				Name:      "Deniz",
				Struggles: []string{"anxiety", "sleep"},
				InTherapy: true,
			},
		}
	}

	t.Run("is deterministic for identical facts", func(t *testing.T) {
		assert.Equal(t, b.DynamicTier(baseSnap(), false, now), b.DynamicTier(baseSnap(), false, now))
	})

	t.Run("renders profile facts and check-ins newest first", func(t *testing.T) {
		snap := baseSnap()
		snap.CheckIns = []CheckInEntry{
			{Date: now.Add(-24 * time.Hour), MoodScore: 7, Steps: []models.CheckInStep{{Dimension: "sleep", Note: "slept well"}}},
			{Date: now.Add(-48 * time.Hour), MoodScore: 3},
		}

		tier := b.DynamicTier(snap, false, now)
		assert.Contains(t, tier, "Name: Deniz")
		assert.Contains(t, tier, "anxiety, sleep")
		assert.Contains(t, tier, "Currently in therapy")
		assert.Contains(t, tier, "mood 7/10")
		assert.Contains(t, tier, "sleep: slept well")
		assert.Less(t, strings.Index(tier, "mood 7/10"), strings.Index(tier, "mood 3/10"))
	})

	t.Run("renders zero check-in lines when there are none", func(t *testing.T) {
		tier := b.DynamicTier(baseSnap(), false, now)
		assert.NotContains(t, tier, "Recent check-ins")
	})

	t.Run("appends elapsed hours note only when refreshed", func(t *testing.T) {
		last := now.Add(-8 * 24 * time.Hour) // 8 days -> 192 hours
		snap := baseSnap()
		snap.LastMessageAt = &last

		withNote := b.DynamicTier(snap, true, now)
		assert.Contains(t, withNote, "It has been 192 hours")

		withoutNote := b.DynamicTier(snap, false, now)
		assert.NotContains(t, withoutNote, "It has been")
	})
}

func TestBuildMessages(t *testing.T) {
	var b PromptBuilder

	t.Run("history oldest first with the new user message last", func(t *testing.T) {
		snap := &ContextSnapshot{
			History: []models.Message{
				{Role: "user", Content: "hello"},
				{Role: "assistant", Content: "hi there"},
			},
		}

		msgs, err := b.BuildMessages(snap, "how are you?")
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, chat.RoleUser, msgs[0].Role)
		assert.Equal(t, "hello", msgs[0].Content)
		assert.Equal(t, chat.RoleAssistant, msgs[1].Role)
		assert.Equal(t, chat.RoleUser, msgs[2].Role)
		assert.Equal(t, "how are you?", msgs[2].Content)
	})

	t.Run("a third role value in history is a data-integrity fault", func(t *testing.T) {
		snap := &ContextSnapshot{
			History: []models.Message{{Role: "system", Content: "oops"}},
		}
		_, err := b.BuildMessages(snap, "hi")
		assert.Error(t, err)
	})
}

func TestStaticTierIsContextFree(t *testing.T) {
	var b PromptBuilder
	tier := b.StaticTier()
	require.NotEmpty(t, tier)

	// The static tier must not vary per call or embed user facts; the
	// upstream cache depends on it being byte-identical.
	for i := 0; i < 3; i++ {
		assert.Equal(t, tier, b.StaticTier(), fmt.Sprintf("call %d", i))
	}
}
