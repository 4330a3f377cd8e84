package sqlite

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/memorychat/store"
)

// CreateFact inserts a fact. Facts are immutable; there is no update path.
func (d *DB) CreateFact(ctx context.Context, create *store.Fact) (*store.Fact, error) {
	if create.Category == "" {
		create.Category = store.NamespaceCategory
	}
	if create.TemporalStatus == "" {
		create.TemporalStatus = store.TemporalNone
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `
		INSERT INTO fact (
			id, category, user_id, type, value, confidence, importance,
			temporal_status, reference_sentence, origin_message, context, created_ts
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
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
		return nil, errors.Wrap(err, "failed to create fact")
	}
	return create, nil
}

// ListFacts performs a namespace-scoped scan. Retrieval is deliberately
// unfiltered: ranking and selection of relevant facts is left to the model.
func (d *DB) ListFacts(ctx context.Context, find *store.FindFact) ([]*store.Fact, error) {
	where, args := []string{"category = ?"}, []any{store.NamespaceCategory}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}

	query := `SELECT id, category, user_id, type, value, confidence, importance,
			temporal_status, reference_sentence, origin_message, context, created_ts
		FROM fact
		WHERE ` + where[0]
	for _, cond := range where[1:] {
		query += " AND " + cond
	}
	query += " ORDER BY created_ts ASC, id ASC"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list facts")
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
			return nil, errors.Wrap(err, "failed to scan fact")
		}
		facts = append(facts, &fact)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return facts, nil
}

// DeleteFacts deletes all facts in a user's namespace and reports the count.
func (d *DB) DeleteFacts(ctx context.Context, delete *store.DeleteFact) (int64, error) {
	stmt := `DELETE FROM fact WHERE category = ? AND user_id = ?`
	result, err := d.db.ExecContext(ctx, stmt, store.NamespaceCategory, delete.UserID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete facts")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get affected rows")
	}
	return affected, nil
}

func (d *DB) DeleteAllFacts(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM fact`); err != nil {
		return errors.Wrap(err, "failed to clear facts")
	}
	return nil
}
