package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/memorychat/store"
)

type fakeFactStore struct {
	facts []*store.Fact
	err   error
	calls int
}

func (f *fakeFactStore) ListFacts(_ context.Context, find *store.FindFact) ([]*store.Fact, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if find.UserID == nil {
		return f.facts, nil
	}
	var out []*store.Fact
	for _, fact := range f.facts {
		if fact.UserID == *find.UserID {
			out = append(out, fact)
		}
	}
	return out, nil
}

func TestComposeInjectsStoredMemories(t *testing.T) {
	facts := &fakeFactStore{facts: []*store.Fact{
		{UserID: "alice", Type: store.FactTypeLocation, Value: "Denver", TemporalStatus: store.TemporalCurrent, ReferenceSentence: "I live in Denver"},
		{UserID: "alice", Type: store.FactTypePreference, Value: "hiking", TemporalStatus: store.TemporalNone},
	}}
	composer := NewComposer(facts, 30)

	composed, err := composer.Compose(context.Background(), &Request{
		UserID:  "alice",
		Mode:    ModeBoth,
		Message: "where do I live?",
	})
	require.NoError(t, err)

	require.NotEmpty(t, composed.Messages)
	last := composed.Messages[len(composed.Messages)-1]
	assert.Equal(t, "user", last.Role)
	assert.Contains(t, last.Content, "where do I live?")
	assert.Contains(t, last.Content, "[STORED MEMORIES from previous conversations:")
	assert.Contains(t, last.Content, "location: Denver (current) [Reference: 'I live in Denver']")
	assert.Contains(t, last.Content, "preference: hiking")
	assert.Contains(t, last.Content, "Use these memories to answer the user's question if relevant.]")

	assert.Len(t, composed.MemoriesUsed, 2)
	assert.Equal(t, "alice", composed.ThreadID)
}

func TestComposeShortModeSkipsFactStore(t *testing.T) {
	facts := &fakeFactStore{facts: []*store.Fact{
		{UserID: "alice", Type: store.FactTypeLocation, Value: "Denver"},
	}}
	composer := NewComposer(facts, 30)

	composed, err := composer.Compose(context.Background(), &Request{
		UserID:  "alice",
		Mode:    ModeShort,
		Message: "hello",
	})
	require.NoError(t, err)

	assert.Zero(t, facts.calls)
	assert.Empty(t, composed.MemoriesUsed)
	last := composed.Messages[len(composed.Messages)-1]
	assert.Equal(t, "hello", last.Content)
}

func TestComposeNoMemoriesLeavesMessageUntouched(t *testing.T) {
	composer := NewComposer(&fakeFactStore{}, 30)

	composed, err := composer.Compose(context.Background(), &Request{
		UserID:  "bob",
		Mode:    ModeBoth,
		Message: "hi there",
	})
	require.NoError(t, err)

	last := composed.Messages[len(composed.Messages)-1]
	assert.Equal(t, "hi there", last.Content)
	assert.NotContains(t, last.Content, "[STORED MEMORIES")
}

func TestComposeTrimsHistoryToWindow(t *testing.T) {
	composer := NewComposer(&fakeFactStore{}, 4)

	history := make([]TurnView, 0, 10)
	for i := 0; i < 5; i++ {
		history = append(history, TurnView{Role: store.RoleUser, Content: fmt.Sprintf("question %d", i)})
		history = append(history, TurnView{Role: store.RoleAssistant, Content: fmt.Sprintf("answer %d", i)})
	}

	composed, err := composer.Compose(context.Background(), &Request{
		UserID:  "alice",
		Mode:    ModeShort,
		Message: "next",
		History: history,
	})
	require.NoError(t, err)

	// system + 4 history turns + new message
	require.Len(t, composed.Messages, 6)
	assert.Equal(t, "question 3", composed.Messages[1].Content)
	assert.Equal(t, "answer 3", composed.Messages[2].Content)
	assert.Equal(t, "question 4", composed.Messages[3].Content)
	assert.Equal(t, "answer 4", composed.Messages[4].Content)
}

func TestComposeLongModeExcludesHistory(t *testing.T) {
	composer := NewComposer(&fakeFactStore{}, 30)

	composed, err := composer.Compose(context.Background(), &Request{
		UserID:  "alice",
		Mode:    ModeLong,
		Message: "what do you know about me?",
		History: []TurnView{
			{Role: store.RoleUser, Content: "earlier chatter"},
			{Role: store.RoleAssistant, Content: "earlier reply"},
		},
	})
	require.NoError(t, err)

	// system + new message only
	assert.Len(t, composed.Messages, 2)
	assert.Equal(t, "alice_long_only", composed.ThreadID)
	for _, m := range composed.Messages {
		assert.NotContains(t, m.Content, "earlier chatter")
	}
}

func TestComposeAppendsServicePrompt(t *testing.T) {
	composer := NewComposer(&fakeFactStore{}, 30)

	composed, err := composer.Compose(context.Background(), &Request{
		UserID:        "alice",
		Mode:          ModeShort,
		Message:       "book a room",
		ServicePrompt: "You are a hotel booking assistant.",
	})
	require.NoError(t, err)

	system := composed.Messages[0]
	assert.Equal(t, "system", system.Role)
	assert.True(t, strings.HasSuffix(system.Content, "You are a hotel booking assistant."))
}

func TestComposeFactStoreError(t *testing.T) {
	composer := NewComposer(&fakeFactStore{err: errors.New("db unavailable")}, 30)

	_, err := composer.Compose(context.Background(), &Request{
		UserID:  "alice",
		Mode:    ModeBoth,
		Message: "hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to retrieve facts")
}

func TestNewComposerDefaultsLimit(t *testing.T) {
	composer := NewComposer(&fakeFactStore{}, 0)
	assert.Equal(t, 30, composer.ShortTermLimit())
}

func TestFormatMemoriesOrderPreserved(t *testing.T) {
	facts := []*store.Fact{
		{Type: store.FactTypePersonName, Value: "Dana"},
		{Type: store.FactTypeLocation, Value: "Austin", TemporalStatus: store.TemporalPast},
		{Type: store.FactTypeLocation, Value: "Denver", TemporalStatus: store.TemporalCurrent},
	}

	got := formatMemories(facts)
	assert.Equal(t, "person_name: Dana location: Austin (past) location: Denver (current)", got)
}
