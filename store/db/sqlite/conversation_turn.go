package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/memorychat/store"
)

// CreateConversationTurns appends turns in a single transaction so an
// exchange is never half-written.
func (d *DB) CreateConversationTurns(ctx context.Context, creates []*store.ConversationTurn) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt := `
		INSERT INTO conversation_turn (thread_id, sequence, role, content, created_ts)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, create := range creates {
		if create.CreatedTs == 0 {
			create.CreatedTs = time.Now().Unix()
		}
		if _, err := tx.ExecContext(ctx, stmt,
			create.ThreadID,
			create.Sequence,
			create.Role,
			create.Content,
			create.CreatedTs,
		); err != nil {
			return errors.Wrap(err, "failed to append conversation turn")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit conversation turns")
	}
	return nil
}

// ListConversationTurns returns turns for a thread in ascending sequence
// order. When Limit is set, only the most recent N turns are returned.
func (d *DB) ListConversationTurns(ctx context.Context, find *store.FindConversationTurn) ([]*store.ConversationTurn, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.ThreadID != nil {
		where, args = append(where, "thread_id = ?"), append(args, *find.ThreadID)
	}

	query := `SELECT thread_id, sequence, role, content, created_ts
		FROM conversation_turn
		WHERE ` + where[0]
	for _, cond := range where[1:] {
		query += " AND " + cond
	}
	// Select the most recent N by descending sequence, then flip back to
	// chronological order for the caller.
	query += " ORDER BY sequence DESC"
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list conversation turns")
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
			return nil, errors.Wrap(err, "failed to scan conversation turn")
		}
		turns = append(turns, &turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into ascending sequence order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (d *DB) MaxSequence(ctx context.Context, threadID string) (int64, error) {
	var max sql.NullInt64
	stmt := `SELECT MAX(sequence) FROM conversation_turn WHERE thread_id = ?`
	if err := d.db.QueryRowContext(ctx, stmt, threadID).Scan(&max); err != nil {
		return 0, errors.Wrap(err, "failed to get max sequence")
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

func (d *DB) DeleteAllConversationTurns(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM conversation_turn`); err != nil {
		return errors.Wrap(err, "failed to clear conversation turns")
	}
	return nil
}
