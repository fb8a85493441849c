package repositories

import (
	"context"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PickListRepository interface {
	Create(ctx context.Context, pickList *models.PickList) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PickList, error)
	GetByNumber(ctx context.Context, number string) (*models.PickList, error)
	// GetActiveByOrderID returns the order's pick list that is not cancelled
	GetActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PickList, error)
	List(ctx context.Context, status *models.PickListStatus, limit, offset int) ([]*models.PickList, error)
	UpdateStatus(ctx context.Context, pickList *models.PickList) error
	UpdateItem(ctx context.Context, item *models.PickPlanItem) error
}

type pickListRepo struct {
	db DB
}

func NewPickListRepository(db DB) PickListRepository {
	return &pickListRepo{db: db}
}

const pickListColumns = `id, pick_list_number, order_id, status, created_at, started_at, completed_at, cancelled_at`

const pickItemColumns = `id, pick_list_id, sequence, product_id, location_id, location_code, location_label, aisle, rack, level,
	requested_quantity, picked_quantity, state, scanned_barcode, picked_at, reservation_released`

func (r *pickListRepo) Create(ctx context.Context, pl *models.PickList) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO pick_lists (id, pick_list_number, order_id, status, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.Exec(ctx, query, pl.ID, pl.PickListNumber, pl.OrderID, string(pl.Status), pl.CreatedAt); err != nil {
			return err
		}

		itemQuery := `
			INSERT INTO pick_list_items (` + pickItemColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`
		for _, it := range pl.Items {
			_, err := tx.Exec(ctx, itemQuery, it.ID, it.PickListID, it.Sequence, it.ProductID, it.LocationID, it.LocationCode,
				it.LocationLabel, it.Aisle, it.Rack, it.Level, it.RequestedQuantity, it.PickedQuantity, string(it.State),
				it.ScannedBarcode, it.PickedAt, it.ReservationReleased)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *pickListRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PickList, error) {
	query := `SELECT ` + pickListColumns + ` FROM pick_lists WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *pickListRepo) GetByNumber(ctx context.Context, number string) (*models.PickList, error) {
	query := `SELECT ` + pickListColumns + ` FROM pick_lists WHERE pick_list_number = $1`
	return r.getOne(ctx, query, number)
}

func (r *pickListRepo) GetActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PickList, error) {
	query := `
		SELECT ` + pickListColumns + `
		FROM pick_lists
		WHERE order_id = $1 AND status <> 'cancelled'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.getOne(ctx, query, orderID)
}

func (r *pickListRepo) getOne(ctx context.Context, query string, arg any) (*models.PickList, error) {
	pl, err := scanPickList(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, pl); err != nil {
		return nil, err
	}
	return pl, nil
}

func (r *pickListRepo) List(ctx context.Context, status *models.PickListStatus, limit, offset int) ([]*models.PickList, error) {
	limit, offset = pageDefaults(limit, offset)
	var (
		rows pgx.Rows
		err  error
	)
	if status != nil {
		query := `SELECT ` + pickListColumns + ` FROM pick_lists WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = r.db.Query(ctx, query, string(*status), limit, offset)
	} else {
		query := `SELECT ` + pickListColumns + ` FROM pick_lists ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = r.db.Query(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, err
	}

	var lists []*models.PickList
	for rows.Next() {
		pl, err := scanPickList(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		lists = append(lists, pl)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, pl := range lists {
		if err := r.loadItems(ctx, pl); err != nil {
			return nil, err
		}
	}
	return lists, nil
}

func (r *pickListRepo) UpdateStatus(ctx context.Context, pl *models.PickList) error {
	query := `
		UPDATE pick_lists
		SET status = $2, started_at = $3, completed_at = $4, cancelled_at = $5
		WHERE id = $1
	`
	return affectedOne(r.db.Exec(ctx, query, pl.ID, string(pl.Status), pl.StartedAt, pl.CompletedAt, pl.CancelledAt))
}

func (r *pickListRepo) UpdateItem(ctx context.Context, it *models.PickPlanItem) error {
	query := `
		UPDATE pick_list_items
		SET picked_quantity = $2, state = $3, scanned_barcode = $4, picked_at = $5, reservation_released = $6
		WHERE id = $1
	`
	return affectedOne(r.db.Exec(ctx, query, it.ID, it.PickedQuantity, string(it.State), it.ScannedBarcode, it.PickedAt, it.ReservationReleased))
}

func (r *pickListRepo) loadItems(ctx context.Context, pl *models.PickList) error {
	query := `SELECT ` + pickItemColumns + ` FROM pick_list_items WHERE pick_list_id = $1 ORDER BY sequence`
	rows, err := r.db.Query(ctx, query, pl.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	pl.Items = nil
	for rows.Next() {
		it := &models.PickPlanItem{}
		var state string
		err := rows.Scan(&it.ID, &it.PickListID, &it.Sequence, &it.ProductID, &it.LocationID, &it.LocationCode,
			&it.LocationLabel, &it.Aisle, &it.Rack, &it.Level, &it.RequestedQuantity, &it.PickedQuantity, &state,
			&it.ScannedBarcode, &it.PickedAt, &it.ReservationReleased)
		if err != nil {
			return err
		}
		it.State = models.PickItemState(state)
		pl.Items = append(pl.Items, it)
	}
	return rows.Err()
}

func scanPickList(row pgx.Row) (*models.PickList, error) {
	pl := &models.PickList{}
	var status string
	err := row.Scan(&pl.ID, &pl.PickListNumber, &pl.OrderID, &status, &pl.CreatedAt, &pl.StartedAt, &pl.CompletedAt, &pl.CancelledAt)
	if err != nil {
		return nil, notFound(err)
	}
	pl.Status = models.PickListStatus(status)
	return pl, nil
}
