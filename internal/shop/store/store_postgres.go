package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"simtrack/internal/shop/models"
	id "simtrack/pkg/domain"
	"simtrack/pkg/platform/sentinel"
	"simtrack/pkg/platform/tx"
)

const shopColumns = `id, name, owner_name, owner_phone, address, latitude, longitude,
	status, region, added_date`

// PostgresStore persists shops in PostgreSQL. Methods resolve their executor
// from the context so shop deletion and card release share one transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, shop *models.Shop) error {
	query := `
		INSERT INTO shops (` + shopColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		shop.ID.String(),
		shop.Name,
		shop.OwnerName,
		shop.OwnerPhone,
		shop.Address,
		shop.Latitude,
		shop.Longitude,
		string(shop.Status),
		shop.Region,
		shop.AddedDate,
	)
	if err != nil {
		return fmt.Errorf("create shop: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, shopID id.ShopID) (*models.Shop, error) {
	query := `SELECT ` + shopColumns + ` FROM shops WHERE id = $1`
	shop, err := scanShop(tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, shopID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("shop %s: %w", shopID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find shop: %w", err)
	}
	return shop, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Shop, error) {
	query := `SELECT ` + shopColumns + ` FROM shops ORDER BY added_date DESC, name`
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	var out []*models.Shop
	for rows.Next() {
		shop, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		out = append(out, shop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, shop *models.Shop) error {
	query := `
		UPDATE shops SET
			name = $2,
			owner_name = $3,
			owner_phone = $4,
			address = $5,
			latitude = $6,
			longitude = $7,
			status = $8,
			region = $9
		WHERE id = $1
	`
	result, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		shop.ID.String(),
		shop.Name,
		shop.OwnerName,
		shop.OwnerPhone,
		shop.Address,
		shop.Latitude,
		shop.Longitude,
		string(shop.Status),
		shop.Region,
	)
	if err != nil {
		return fmt.Errorf("update shop: %w", err)
	}
	return requireShopRow(result, shop.ID)
}

func (s *PostgresStore) Delete(ctx context.Context, shopID id.ShopID) error {
	result, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx,
		`DELETE FROM shops WHERE id = $1`, shopID.String())
	if err != nil {
		return fmt.Errorf("delete shop: %w", err)
	}
	return requireShopRow(result, shopID)
}

func (s *PostgresStore) Count(ctx context.Context) (total, active int, err error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $1) FROM shops`
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, string(models.ShopStatusActive))
	if err := row.Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("count shops: %w", err)
	}
	return total, active, nil
}

func (s *PostgresStore) CountByRegion(ctx context.Context) (map[string]int, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT region, COUNT(*) FROM shops GROUP BY region`)
	if err != nil {
		return nil, fmt.Errorf("count shops by region: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var region string
		var count int
		if err := rows.Scan(&region, &count); err != nil {
			return nil, fmt.Errorf("scan region count: %w", err)
		}
		counts[region] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count shops by region: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShop(row rowScanner) (*models.Shop, error) {
	var (
		shop      models.Shop
		rawID     string
		rawStatus string
		latitude  sql.NullFloat64
		longitude sql.NullFloat64
	)
	err := row.Scan(&rawID, &shop.Name, &shop.OwnerName, &shop.OwnerPhone,
		&shop.Address, &latitude, &longitude, &rawStatus, &shop.Region, &shop.AddedDate)
	if err != nil {
		return nil, err
	}
	shop.ID, err = id.ParseShopID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse shop id: %w", err)
	}
	shop.Status = models.ShopStatus(rawStatus)
	if latitude.Valid {
		shop.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		shop.Longitude = &longitude.Float64
	}
	return &shop, nil
}

func requireShopRow(result sql.Result, shopID id.ShopID) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("shop %s: %w", shopID, sentinel.ErrNotFound)
	}
	return nil
}
