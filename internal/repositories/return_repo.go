package repositories

import (
	"context"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ReturnRepository interface {
	Create(ctx context.Context, ret *models.ProductReturn) error
	AddItem(ctx context.Context, item *models.ReturnItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProductReturn, error)
	List(ctx context.Context, status *models.ReturnStatus, limit, offset int) ([]*models.ProductReturn, error)
	UpdateStatus(ctx context.Context, ret *models.ProductReturn) error
	UpdateItem(ctx context.Context, item *models.ReturnItem) error
}

type returnRepo struct {
	db DB
}

func NewReturnRepository(db DB) ReturnRepository {
	return &returnRepo{db: db}
}

const returnColumns = `id, return_number, original_order_id, reason, status, notes, created_at, completed_at`

const returnItemColumns = `id, return_id, product_id, quantity, condition, restockable, restocked, allocated_location_id, notes`

func (r *returnRepo) Create(ctx context.Context, ret *models.ProductReturn) error {
	query := `
		INSERT INTO product_returns (` + returnColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query, ret.ID, ret.ReturnNumber, ret.OriginalOrderID, ret.Reason, string(ret.Status),
		ret.Notes, ret.CreatedAt, ret.CompletedAt)
	return err
}

func (r *returnRepo) AddItem(ctx context.Context, it *models.ReturnItem) error {
	query := `
		INSERT INTO return_items (` + returnItemColumns + `, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`
	_, err := r.db.Exec(ctx, query, it.ID, it.ReturnID, it.ProductID, it.Quantity, string(it.Condition), it.Restockable,
		it.Restocked, it.AllocatedLocationID, it.Notes)
	return err
}

func (r *returnRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ProductReturn, error) {
	query := `SELECT ` + returnColumns + ` FROM product_returns WHERE id = $1`
	ret, err := scanReturn(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *returnRepo) List(ctx context.Context, status *models.ReturnStatus, limit, offset int) ([]*models.ProductReturn, error) {
	limit, offset = pageDefaults(limit, offset)
	var (
		rows pgx.Rows
		err  error
	)
	if status != nil {
		query := `SELECT ` + returnColumns + ` FROM product_returns WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = r.db.Query(ctx, query, string(*status), limit, offset)
	} else {
		query := `SELECT ` + returnColumns + ` FROM product_returns ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = r.db.Query(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, err
	}

	var returns []*models.ProductReturn
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		returns = append(returns, ret)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, ret := range returns {
		if err := r.loadItems(ctx, ret); err != nil {
			return nil, err
		}
	}
	return returns, nil
}

func (r *returnRepo) UpdateStatus(ctx context.Context, ret *models.ProductReturn) error {
	query := `UPDATE product_returns SET status = $2, notes = $3, completed_at = $4 WHERE id = $1`
	return affectedOne(r.db.Exec(ctx, query, ret.ID, string(ret.Status), ret.Notes, ret.CompletedAt))
}

func (r *returnRepo) UpdateItem(ctx context.Context, it *models.ReturnItem) error {
	query := `
		UPDATE return_items
		SET condition = $2, restockable = $3, restocked = $4, allocated_location_id = $5, notes = $6
		WHERE id = $1
	`
	return affectedOne(r.db.Exec(ctx, query, it.ID, string(it.Condition), it.Restockable, it.Restocked, it.AllocatedLocationID, it.Notes))
}

func (r *returnRepo) loadItems(ctx context.Context, ret *models.ProductReturn) error {
	query := `SELECT ` + returnItemColumns + ` FROM return_items WHERE return_id = $1 ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, ret.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	ret.Items = nil
	for rows.Next() {
		it := &models.ReturnItem{}
		var condition string
		err := rows.Scan(&it.ID, &it.ReturnID, &it.ProductID, &it.Quantity, &condition, &it.Restockable,
			&it.Restocked, &it.AllocatedLocationID, &it.Notes)
		if err != nil {
			return err
		}
		it.Condition = models.ItemCondition(condition)
		ret.Items = append(ret.Items, it)
	}
	return rows.Err()
}

func scanReturn(row pgx.Row) (*models.ProductReturn, error) {
	ret := &models.ProductReturn{}
	var status string
	err := row.Scan(&ret.ID, &ret.ReturnNumber, &ret.OriginalOrderID, &ret.Reason, &status, &ret.Notes, &ret.CreatedAt, &ret.CompletedAt)
	if err != nil {
		return nil, notFound(err)
	}
	ret.Status = models.ReturnStatus(status)
	return ret, nil
}
