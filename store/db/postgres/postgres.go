package postgres

import (
	"context"
	"database/sql"
	"fmt"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/hrygo/memorychat/internal/profile"
	"github.com/hrygo/memorychat/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database with the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, fmt.Errorf("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if err := pgDB.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &DB{db: pgDB, profile: profile}, nil
}

func (db *DB) GetDB() *sql.DB {
	return db.db
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fact (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL DEFAULT 'memories',
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			value TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			importance DOUBLE PRECISION NOT NULL DEFAULT 0,
			temporal_status TEXT NOT NULL DEFAULT 'none',
			reference_sentence TEXT NOT NULL DEFAULT '',
			origin_message TEXT NOT NULL DEFAULT '',
			context TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fact_namespace ON fact (category, user_id)`,
		`CREATE TABLE IF NOT EXISTS conversation_turn (
			thread_id TEXT NOT NULL,
			sequence BIGINT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_ts BIGINT NOT NULL,
			PRIMARY KEY (thread_id, sequence)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}
