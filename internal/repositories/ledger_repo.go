package repositories

import (
	"context"
	"errors"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepository persists ledger entries. It satisfies ledger.Store.
type LedgerRepository interface {
	Get(ctx context.Context, productID, locationID uuid.UUID) (*models.LedgerEntry, error)
	Save(ctx context.Context, entry *models.LedgerEntry) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*models.LedgerEntry, error)
	ListByLocation(ctx context.Context, locationID uuid.UUID) ([]*models.LedgerEntry, error)
}

type ledgerRepo struct {
	db DB
}

func NewLedgerRepository(db DB) LedgerRepository {
	return &ledgerRepo{db: db}
}

// Get returns nil, nil when no entry exists for the pair
func (r *ledgerRepo) Get(ctx context.Context, productID, locationID uuid.UUID) (*models.LedgerEntry, error) {
	query := `
		SELECT product_id, location_id, quantity, reserved_quantity, updated_at
		FROM ledger_entries
		WHERE product_id = $1 AND location_id = $2
	`
	e := &models.LedgerEntry{}
	err := r.db.QueryRow(ctx, query, productID, locationID).
		Scan(&e.ProductID, &e.LocationID, &e.Quantity, &e.ReservedQuantity, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *ledgerRepo) Save(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (product_id, location_id, quantity, reserved_quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, location_id) DO UPDATE
		SET quantity = EXCLUDED.quantity, reserved_quantity = EXCLUDED.reserved_quantity, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query, entry.ProductID, entry.LocationID, entry.Quantity, entry.ReservedQuantity, entry.UpdatedAt)
	return err
}

func (r *ledgerRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*models.LedgerEntry, error) {
	query := `
		SELECT product_id, location_id, quantity, reserved_quantity, updated_at
		FROM ledger_entries
		WHERE product_id = $1
		ORDER BY location_id
	`
	return r.list(ctx, query, productID)
}

func (r *ledgerRepo) ListByLocation(ctx context.Context, locationID uuid.UUID) ([]*models.LedgerEntry, error) {
	query := `
		SELECT product_id, location_id, quantity, reserved_quantity, updated_at
		FROM ledger_entries
		WHERE location_id = $1
		ORDER BY product_id
	`
	return r.list(ctx, query, locationID)
}

func (r *ledgerRepo) list(ctx context.Context, query string, arg uuid.UUID) ([]*models.LedgerEntry, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		e := &models.LedgerEntry{}
		if err := rows.Scan(&e.ProductID, &e.LocationID, &e.Quantity, &e.ReservedQuantity, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
