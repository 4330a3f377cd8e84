package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hrygo/memorychat/store"
)

// CreateConversationTurns appends turns in a single transaction so an
// exchange is never half-written.
func (db *DB) CreateConversationTurns(ctx context.Context, creates []*store.ConversationTurn) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO conversation_turn (thread_id, sequence, role, content, created_ts)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, create := range creates {
		if create.CreatedTs == 0 {
			create.CreatedTs = time.Now().Unix()
		}
		if _, err := tx.ExecContext(ctx, query,
			create.ThreadID,
			create.Sequence,
			create.Role,
			create.Content,
			create.CreatedTs,
		); err != nil {
			return fmt.Errorf("failed to append conversation turn: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation turns: %w", err)
	}
	return nil
}

func (db *DB) ListConversationTurns(ctx context.Context, find *store.FindConversationTurn) ([]*store.ConversationTurn, error) {
	query := `
		SELECT thread_id, sequence, role, content, created_ts
		FROM conversation_turn
		WHERE 1=1
	`
	var args []interface{}
	argIndex := 1

	if find.ThreadID != nil {
		query += fmt.Sprintf(" AND thread_id = $%d", argIndex)
		args = append(args, *find.ThreadID)
		argIndex++
	}
	query += " ORDER BY sequence DESC"
	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, *find.Limit)
		argIndex++
	}

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation turns: %w", err)
	}
	defer rows.Close()

	var turns []*store.ConversationTurn
	for rows.Next() {
		var turn store.ConversationTurn
		if err := rows.Scan(
			&turn.ThreadID,
			&turn.Sequence,
			&turn.Role,
			&turn.Content,
			&turn.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation turn: %w", err)
		}
		turns = append(turns, &turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (db *DB) MaxSequence(ctx context.Context, threadID string) (int64, error) {
	var max sql.NullInt64
	query := `SELECT MAX(sequence) FROM conversation_turn WHERE thread_id = $1`
	if err := db.db.QueryRowContext(ctx, query, threadID).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to get max sequence: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

func (db *DB) DeleteAllConversationTurns(ctx context.Context) error {
	if _, err := db.db.ExecContext(ctx, `DELETE FROM conversation_turn`); err != nil {
		return fmt.Errorf("failed to clear conversation turns: %w", err)
	}
	return nil
}
