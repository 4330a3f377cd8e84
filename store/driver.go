package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for database driver.
type Driver interface {
	GetDB() *sql.DB
	Close() error
	Migrate(ctx context.Context) error

	// Fact storage (long-term memory).
	CreateFact(ctx context.Context, create *Fact) (*Fact, error)
	ListFacts(ctx context.Context, find *FindFact) ([]*Fact, error)
	DeleteFacts(ctx context.Context, delete *DeleteFact) (int64, error)
	DeleteAllFacts(ctx context.Context) error

	// Conversation turn log (short-term memory).
	CreateConversationTurns(ctx context.Context, creates []*ConversationTurn) error
	ListConversationTurns(ctx context.Context, find *FindConversationTurn) ([]*ConversationTurn, error)
	MaxSequence(ctx context.Context, threadID string) (int64, error)
	DeleteAllConversationTurns(ctx context.Context) error
}
