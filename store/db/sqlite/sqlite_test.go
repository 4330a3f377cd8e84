package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/memorychat/internal/profile"
	"github.com/hrygo/memorychat/store"
)

func newTestDriver(t *testing.T) store.Driver {
	t.Helper()
	driver, err := NewDB(&profile.Profile{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "memorychat_test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	require.NoError(t, driver.Migrate(context.Background()))
	return driver
}

func TestNewDBRequiresDSN(t *testing.T) {
	_, err := NewDB(&profile.Profile{Driver: "sqlite"})
	require.Error(t, err)
}

func TestFactRoundTrip(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	created, err := driver.CreateFact(ctx, &store.Fact{
		ID:                "fact-1",
		UserID:            "dana",
		Type:              store.FactTypeLocation,
		Value:             "Denver",
		Confidence:        0.9,
		Importance:        0.8,
		TemporalStatus:    store.TemporalCurrent,
		ReferenceSentence: "I just moved to Denver",
		OriginMessage:     "I just moved to Denver from Austin",
		CreatedTs:         100,
	})
	require.NoError(t, err)
	assert.Equal(t, store.NamespaceCategory, created.Category)

	userID := "dana"
	facts, err := driver.ListFacts(ctx, &store.FindFact{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, facts, 1)

	got := facts[0]
	assert.Equal(t, "fact-1", got.ID)
	assert.Equal(t, store.NamespaceCategory, got.Category)
	assert.Equal(t, "dana", got.UserID)
	assert.Equal(t, store.FactTypeLocation, got.Type)
	assert.Equal(t, "Denver", got.Value)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.InDelta(t, 0.8, got.Importance, 1e-9)
	assert.Equal(t, store.TemporalCurrent, got.TemporalStatus)
	assert.Equal(t, "I just moved to Denver", got.ReferenceSentence)
	assert.Equal(t, "I just moved to Denver from Austin", got.OriginMessage)
	assert.Equal(t, int64(100), got.CreatedTs)
}

func TestListFactsScopedToUser(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	for i, userID := range []string{"dana", "dana", "erik"} {
		_, err := driver.CreateFact(ctx, &store.Fact{
			ID:        string(rune('a' + i)),
			UserID:    userID,
			Type:      store.FactTypeFact,
			Value:     "v",
			CreatedTs: int64(i),
		})
		require.NoError(t, err)
	}

	userID := "dana"
	facts, err := driver.ListFacts(ctx, &store.FindFact{UserID: &userID})
	require.NoError(t, err)
	assert.Len(t, facts, 2)

	all, err := driver.ListFacts(ctx, &store.FindFact{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	id := "b"
	byID, err := driver.ListFacts(ctx, &store.FindFact{ID: &id})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "b", byID[0].ID)
}

func TestListFactsOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	for i, id := range []string{"newer", "older"} {
		_, err := driver.CreateFact(ctx, &store.Fact{
			ID:        id,
			UserID:    "dana",
			Type:      store.FactTypeFact,
			Value:     id,
			CreatedTs: int64(100 - i*50),
		})
		require.NoError(t, err)
	}

	userID := "dana"
	facts, err := driver.ListFacts(ctx, &store.FindFact{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "older", facts[0].ID)
	assert.Equal(t, "newer", facts[1].ID)
}

func TestDeleteFacts(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	for i, userID := range []string{"dana", "dana", "erik"} {
		_, err := driver.CreateFact(ctx, &store.Fact{
			ID:        string(rune('a' + i)),
			UserID:    userID,
			Type:      store.FactTypeFact,
			Value:     "v",
			CreatedTs: int64(i),
		})
		require.NoError(t, err)
	}

	deleted, err := driver.DeleteFacts(ctx, &store.DeleteFact{UserID: "dana"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	deleted, err = driver.DeleteFacts(ctx, &store.DeleteFact{UserID: "dana"})
	require.NoError(t, err)
	assert.Zero(t, deleted)

	all, err := driver.ListFacts(ctx, &store.FindFact{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, driver.DeleteAllFacts(ctx))
	all, err = driver.ListFacts(ctx, &store.FindFact{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestConversationTurnLog(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)
	threadID := "alice"

	maxSeq, err := driver.MaxSequence(ctx, threadID)
	require.NoError(t, err)
	assert.Zero(t, maxSeq)

	contents := []string{"q1", "a1", "q2", "a2", "q3", "a3"}
	var creates []*store.ConversationTurn
	for i, content := range contents {
		role := store.RoleUser
		if i%2 == 1 {
			role = store.RoleAssistant
		}
		creates = append(creates, &store.ConversationTurn{
			ThreadID:  threadID,
			Sequence:  int64(i + 1),
			Role:      role,
			Content:   content,
			CreatedTs: int64(i),
		})
	}
	require.NoError(t, driver.CreateConversationTurns(ctx, creates))

	maxSeq, err = driver.MaxSequence(ctx, threadID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), maxSeq)

	t.Run("window keeps most recent turns in order", func(t *testing.T) {
		limit := 4
		turns, err := driver.ListConversationTurns(ctx, &store.FindConversationTurn{
			ThreadID: &threadID,
			Limit:    &limit,
		})
		require.NoError(t, err)
		require.Len(t, turns, 4)
		assert.Equal(t, "q2", turns[0].Content)
		assert.Equal(t, "a3", turns[3].Content)
	})

	t.Run("threads are isolated", func(t *testing.T) {
		other := "alice_long_only"
		turns, err := driver.ListConversationTurns(ctx, &store.FindConversationTurn{ThreadID: &other})
		require.NoError(t, err)
		assert.Empty(t, turns)
	})

	t.Run("clear removes the log", func(t *testing.T) {
		require.NoError(t, driver.DeleteAllConversationTurns(ctx))
		turns, err := driver.ListConversationTurns(ctx, &store.FindConversationTurn{ThreadID: &threadID})
		require.NoError(t, err)
		assert.Empty(t, turns)
	})
}

func TestCreateConversationTurnsAtomic(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)
	threadID := "alice"

	require.NoError(t, driver.CreateConversationTurns(ctx, []*store.ConversationTurn{
		{ThreadID: threadID, Sequence: 2, Role: store.RoleAssistant, Content: "stale"},
	}))

	// The second insert collides with the existing sequence, so the whole
	// exchange must roll back, including the first insert.
	err := driver.CreateConversationTurns(ctx, []*store.ConversationTurn{
		{ThreadID: threadID, Sequence: 1, Role: store.RoleUser, Content: "hello"},
		{ThreadID: threadID, Sequence: 2, Role: store.RoleAssistant, Content: "hi there"},
	})
	require.Error(t, err)

	turns, err := driver.ListConversationTurns(ctx, &store.FindConversationTurn{ThreadID: &threadID})
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "stale", turns[0].Content)
}
