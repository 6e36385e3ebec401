package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"simtrack/internal/transition"
	id "simtrack/pkg/domain"
	"simtrack/pkg/platform/tx"
)

// PostgresStore persists the transition log in PostgreSQL. Append resolves
// its executor from the context so it commits atomically with the card
// update that produced the entry.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry *transition.Entry) error {
	query := `
		INSERT INTO status_transitions (id, simcard_id, simcard_code, old_status, new_status, source, ts, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		entry.ID.String(),
		entry.CardID.String(),
		entry.CardCode,
		string(entry.OldStatus),
		string(entry.NewStatus),
		entry.Source,
		entry.Timestamp,
		[]byte(entry.Details),
	)
	if err != nil {
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]*transition.Entry, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	query := `
		SELECT id, simcard_id, simcard_code, old_status, new_status, source, ts, details
		FROM status_transitions
		ORDER BY ts DESC
		LIMIT $1
	`
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []*transition.Entry
	for rows.Next() {
		var (
			entry     transition.Entry
			rawID     string
			rawCardID string
			oldStatus string
			newStatus string
			details   []byte
		)
		err := rows.Scan(&rawID, &rawCardID, &entry.CardCode, &oldStatus, &newStatus,
			&entry.Source, &entry.Timestamp, &details)
		if err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if entry.ID, err = parseUUID(rawID); err != nil {
			return nil, err
		}
		if entry.CardID, err = id.ParseCardID(rawCardID); err != nil {
			return nil, fmt.Errorf("parse transition card id: %w", err)
		}
		entry.OldStatus = id.CardStatus(oldStatus)
		entry.NewStatus = id.CardStatus(newStatus)
		entry.Details = details
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	return out, nil
}

func parseUUID(s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse transition id: %w", err)
	}
	return u, nil
}
