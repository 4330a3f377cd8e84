package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hrygo/memorychat/store"
)

func (db *DB) CreateFact(ctx context.Context, create *store.Fact) (*store.Fact, error) {
	if create.Category == "" {
		create.Category = store.NamespaceCategory
	}
	if create.TemporalStatus == "" {
		create.TemporalStatus = store.TemporalNone
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	query := `
		INSERT INTO fact (
			id, category, user_id, type, value, confidence, importance,
			temporal_status, reference_sentence, origin_message, context, created_ts
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if _, err := db.db.ExecContext(ctx, query,
		create.ID,
		create.Category,
		create.UserID,
		create.Type,
		create.Value,
		create.Confidence,
		create.Importance,
		create.TemporalStatus,
		create.ReferenceSentence,
		create.OriginMessage,
		create.Context,
		create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create fact: %w", err)
	}
	return create, nil
}

func (db *DB) ListFacts(ctx context.Context, find *store.FindFact) ([]*store.Fact, error) {
	query := `
		SELECT id, category, user_id, type, value, confidence, importance,
			temporal_status, reference_sentence, origin_message, context, created_ts
		FROM fact
		WHERE category = $1
	`
	args := []interface{}{store.NamespaceCategory}
	argIndex := 2

	if find.ID != nil {
		query += fmt.Sprintf(" AND id = $%d", argIndex)
		args = append(args, *find.ID)
		argIndex++
	}
	if find.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, *find.UserID)
		argIndex++
	}
	query += " ORDER BY created_ts ASC, id ASC"

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list facts: %w", err)
	}
	defer rows.Close()

	var facts []*store.Fact
	for rows.Next() {
		var fact store.Fact
		if err := rows.Scan(
			&fact.ID,
			&fact.Category,
			&fact.UserID,
			&fact.Type,
			&fact.Value,
			&fact.Confidence,
			&fact.Importance,
			&fact.TemporalStatus,
			&fact.ReferenceSentence,
			&fact.OriginMessage,
			&fact.Context,
			&fact.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		facts = append(facts, &fact)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return facts, nil
}

func (db *DB) DeleteFacts(ctx context.Context, delete *store.DeleteFact) (int64, error) {
	query := `DELETE FROM fact WHERE category = $1 AND user_id = $2`
	result, err := db.db.ExecContext(ctx, query, store.NamespaceCategory, delete.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete facts: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected, nil
}

func (db *DB) DeleteAllFacts(ctx context.Context) error {
	if _, err := db.db.ExecContext(ctx, `DELETE FROM fact`); err != nil {
		return fmt.Errorf("failed to clear facts: %w", err)
	}
	return nil
}
