package store

import (
	"context"

	"github.com/hrygo/memorychat/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateFact(ctx context.Context, create *Fact) (*Fact, error) {
	return s.driver.CreateFact(ctx, create)
}

func (s *Store) ListFacts(ctx context.Context, find *FindFact) ([]*Fact, error) {
	return s.driver.ListFacts(ctx, find)
}

func (s *Store) DeleteFacts(ctx context.Context, delete *DeleteFact) (int64, error) {
	return s.driver.DeleteFacts(ctx, delete)
}

func (s *Store) DeleteAllFacts(ctx context.Context) error {
	return s.driver.DeleteAllFacts(ctx)
}

func (s *Store) CreateConversationTurns(ctx context.Context, creates []*ConversationTurn) error {
	return s.driver.CreateConversationTurns(ctx, creates)
}

func (s *Store) ListConversationTurns(ctx context.Context, find *FindConversationTurn) ([]*ConversationTurn, error) {
	return s.driver.ListConversationTurns(ctx, find)
}

func (s *Store) MaxSequence(ctx context.Context, threadID string) (int64, error) {
	return s.driver.MaxSequence(ctx, threadID)
}

func (s *Store) DeleteAllConversationTurns(ctx context.Context) error {
	return s.driver.DeleteAllConversationTurns(ctx)
}
