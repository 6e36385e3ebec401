package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"simtrack/internal/card/models"
	id "simtrack/pkg/domain"
	"simtrack/pkg/platform/sentinel"
	"simtrack/pkg/platform/tx"
)

const cardColumns = `id, code, status, assigned_to, assigned_shop_name, added_date,
	sale_date, last_checked, last_external_check, external_status, check_history`

// PostgresStore persists cards in PostgreSQL. Every method resolves its
// executor from the context so calls made inside a transaction share it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, card *models.SimCard) error {
	history, err := json.Marshal(card.CheckHistory)
	if err != nil {
		return fmt.Errorf("marshal check history: %w", err)
	}
	query := `
		INSERT INTO simcards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		card.ID.String(),
		card.Code,
		string(card.Status),
		shopIDOrNil(card.AssignedTo),
		card.AssignedShopName,
		card.AddedDate,
		card.SaleDate,
		card.LastChecked,
		card.LastExternalCheck,
		card.ExternalStatus,
		history,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("card code %q: %w", card.Code, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create card: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, cardID id.CardID) (*models.SimCard, error) {
	query := `SELECT ` + cardColumns + ` FROM simcards WHERE id = $1`
	return s.findOne(ctx, query, cardID.String())
}

func (s *PostgresStore) FindByIDForUpdate(ctx context.Context, cardID id.CardID) (*models.SimCard, error) {
	query := `SELECT ` + cardColumns + ` FROM simcards WHERE id = $1 FOR UPDATE`
	return s.findOne(ctx, query, cardID.String())
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.SimCard, error) {
	query := `SELECT ` + cardColumns + ` FROM simcards WHERE code = $1`
	return s.findOne(ctx, query, code)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.SimCard, error) {
	card, err := scanCard(tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("card %v: %w", arg, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find card: %w", err)
	}
	return card, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*models.SimCard, error) {
	query := `SELECT ` + cardColumns + ` FROM simcards WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !filter.ShopID.IsNil() {
		args = append(args, filter.ShopID.String())
		query += fmt.Sprintf(" AND assigned_to = $%d", len(args))
	}
	query += " ORDER BY added_date, code"
	return s.queryCards(ctx, query, args...)
}

func (s *PostgresStore) ListAvailableForUpdate(ctx context.Context, limit int) ([]*models.SimCard, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM simcards
		WHERE status = $1
		ORDER BY added_date, code
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	return s.queryCards(ctx, query, string(id.CardStatusAvailable), limit)
}

func (s *PostgresStore) queryCards(ctx context.Context, query string, args ...any) ([]*models.SimCard, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var out []*models.SimCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, card *models.SimCard) error {
	history, err := json.Marshal(card.CheckHistory)
	if err != nil {
		return fmt.Errorf("marshal check history: %w", err)
	}
	query := `
		UPDATE simcards SET
			status = $2,
			assigned_to = $3,
			assigned_shop_name = $4,
			sale_date = $5,
			last_checked = $6,
			last_external_check = $7,
			external_status = $8,
			check_history = $9
		WHERE id = $1
	`
	result, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		card.ID.String(),
		string(card.Status),
		shopIDOrNil(card.AssignedTo),
		card.AssignedShopName,
		card.SaleDate,
		card.LastChecked,
		card.LastExternalCheck,
		card.ExternalStatus,
		history,
	)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	return requireRow(result, card.ID)
}

func (s *PostgresStore) Delete(ctx context.Context, cardID id.CardID) error {
	result, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx,
		`DELETE FROM simcards WHERE id = $1`, cardID.String())
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return requireRow(result, cardID)
}

func (s *PostgresStore) ReleaseByShop(ctx context.Context, shopID id.ShopID) (int, error) {
	query := `
		UPDATE simcards
		SET status = $2, assigned_to = NULL, assigned_shop_name = ''
		WHERE assigned_to = $1 AND status <> $3
	`
	result, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		shopID.String(), string(id.CardStatusAvailable), string(id.CardStatusSold))
	if err != nil {
		return 0, fmt.Errorf("release cards by shop: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release cards rows affected: %w", err)
	}
	return int(rows), nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[id.CardStatus]int, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT status, COUNT(*) FROM simcards GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count cards by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[id.CardStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[id.CardStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count cards by status: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) CountByShop(ctx context.Context, shopID id.ShopID) (assigned, sold int, err error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3)
		FROM simcards
		WHERE assigned_to = $1
	`
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query,
		shopID.String(), string(id.CardStatusAssigned), string(id.CardStatusSold))
	if err := row.Scan(&assigned, &sold); err != nil {
		return 0, 0, fmt.Errorf("count cards by shop: %w", err)
	}
	return assigned, sold, nil
}

func (s *PostgresStore) CountAllByShop(ctx context.Context) (map[id.ShopID]ShopTally, error) {
	query := `
		SELECT
			assigned_to,
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2)
		FROM simcards
		WHERE assigned_to IS NOT NULL
		GROUP BY assigned_to
	`
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query,
		string(id.CardStatusAssigned), string(id.CardStatusSold))
	if err != nil {
		return nil, fmt.Errorf("count cards grouped by shop: %w", err)
	}
	defer rows.Close()

	tallies := make(map[id.ShopID]ShopTally)
	for rows.Next() {
		var rawShopID string
		var tally ShopTally
		if err := rows.Scan(&rawShopID, &tally.Assigned, &tally.Sold); err != nil {
			return nil, fmt.Errorf("scan shop tally: %w", err)
		}
		shopID, err := id.ParseShopID(rawShopID)
		if err != nil {
			return nil, fmt.Errorf("parse shop id: %w", err)
		}
		tallies[shopID] = tally
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count cards grouped by shop: %w", err)
	}
	return tallies, nil
}

func (s *PostgresStore) SalesByDay(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `
		SELECT TO_CHAR(sale_date, 'YYYY-MM-DD'), COUNT(*)
		FROM simcards
		WHERE sale_date IS NOT NULL AND sale_date >= $1
		GROUP BY 1
	`
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("count sales by day: %w", err)
	}
	defer rows.Close()

	sales := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan sales day: %w", err)
		}
		sales[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count sales by day: %w", err)
	}
	return sales, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*models.SimCard, error) {
	var (
		card       models.SimCard
		rawID      string
		rawStatus  string
		assignedTo sql.NullString
		shopName   sql.NullString
		extStatus  sql.NullString
		history    []byte
		saleDate   sql.NullTime
		lastCheck  sql.NullTime
		lastExt    sql.NullTime
	)
	err := row.Scan(&rawID, &card.Code, &rawStatus, &assignedTo, &shopName,
		&card.AddedDate, &saleDate, &lastCheck, &lastExt, &extStatus, &history)
	if err != nil {
		return nil, err
	}
	card.ID, err = id.ParseCardID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse card id: %w", err)
	}
	card.Status = id.CardStatus(rawStatus)
	if assignedTo.Valid {
		shopID, err := id.ParseShopID(assignedTo.String)
		if err != nil {
			return nil, fmt.Errorf("parse assigned shop id: %w", err)
		}
		card.AssignedTo = &shopID
	}
	card.AssignedShopName = shopName.String
	card.ExternalStatus = extStatus.String
	card.SaleDate = nullableTime(saleDate)
	card.LastChecked = nullableTime(lastCheck)
	card.LastExternalCheck = nullableTime(lastExt)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &card.CheckHistory); err != nil {
			return nil, fmt.Errorf("unmarshal check history: %w", err)
		}
	}
	return &card, nil
}

func requireRow(result sql.Result, cardID id.CardID) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("card %s: %w", cardID, sentinel.ErrNotFound)
	}
	return nil
}

func shopIDOrNil(shopID *id.ShopID) any {
	if shopID == nil {
		return nil
	}
	return shopID.String()
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
