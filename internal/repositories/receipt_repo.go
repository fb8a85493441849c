package repositories

import (
	"context"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ReceiptRepository interface {
	Create(ctx context.Context, receipt *models.GoodsReceipt) error
	AddItem(ctx context.Context, item *models.GoodsReceiptItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.GoodsReceipt, error)
	List(ctx context.Context, status *models.ReceiptStatus, limit, offset int) ([]*models.GoodsReceipt, error)
	UpdateStatus(ctx context.Context, receipt *models.GoodsReceipt) error
	UpdateItem(ctx context.Context, item *models.GoodsReceiptItem) error
	CountByStatus(ctx context.Context) (map[models.ReceiptStatus]int, error)
}

type receiptRepo struct {
	db DB
}

func NewReceiptRepository(db DB) ReceiptRepository {
	return &receiptRepo{db: db}
}

const receiptColumns = `id, receipt_number, supplier_name, purchase_order_number, status, notes, created_at, started_at, completed_at, cancelled_at`

const receiptItemColumns = `id, receipt_id, product_id, expected_quantity, received_quantity, scanned_barcode, scanned_at, stocked, allocated_location_id`

func (r *receiptRepo) Create(ctx context.Context, gr *models.GoodsReceipt) error {
	query := `
		INSERT INTO goods_receipts (` + receiptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query, gr.ID, gr.ReceiptNumber, gr.SupplierName, gr.PurchaseOrderNumber, string(gr.Status),
		gr.Notes, gr.CreatedAt, gr.StartedAt, gr.CompletedAt, gr.CancelledAt)
	return duplicate(err)
}

func (r *receiptRepo) AddItem(ctx context.Context, it *models.GoodsReceiptItem) error {
	query := `
		INSERT INTO goods_receipt_items (` + receiptItemColumns + `, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`
	_, err := r.db.Exec(ctx, query, it.ID, it.ReceiptID, it.ProductID, it.ExpectedQuantity, it.ReceivedQuantity,
		it.ScannedBarcode, it.ScannedAt, it.Stocked, it.AllocatedLocationID)
	return err
}

func (r *receiptRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.GoodsReceipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM goods_receipts WHERE id = $1`
	gr, err := scanReceipt(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, gr); err != nil {
		return nil, err
	}
	return gr, nil
}

func (r *receiptRepo) List(ctx context.Context, status *models.ReceiptStatus, limit, offset int) ([]*models.GoodsReceipt, error) {
	limit, offset = pageDefaults(limit, offset)
	var (
		rows pgx.Rows
		err  error
	)
	if status != nil {
		query := `SELECT ` + receiptColumns + ` FROM goods_receipts WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = r.db.Query(ctx, query, string(*status), limit, offset)
	} else {
		query := `SELECT ` + receiptColumns + ` FROM goods_receipts ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = r.db.Query(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, err
	}

	var receipts []*models.GoodsReceipt
	for rows.Next() {
		gr, err := scanReceipt(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		receipts = append(receipts, gr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, gr := range receipts {
		if err := r.loadItems(ctx, gr); err != nil {
			return nil, err
		}
	}
	return receipts, nil
}

func (r *receiptRepo) UpdateStatus(ctx context.Context, gr *models.GoodsReceipt) error {
	query := `
		UPDATE goods_receipts
		SET status = $2, notes = $3, started_at = $4, completed_at = $5, cancelled_at = $6
		WHERE id = $1
	`
	return affectedOne(r.db.Exec(ctx, query, gr.ID, string(gr.Status), gr.Notes, gr.StartedAt, gr.CompletedAt, gr.CancelledAt))
}

func (r *receiptRepo) UpdateItem(ctx context.Context, it *models.GoodsReceiptItem) error {
	query := `
		UPDATE goods_receipt_items
		SET received_quantity = $2, scanned_barcode = $3, scanned_at = $4, stocked = $5, allocated_location_id = $6
		WHERE id = $1
	`
	return affectedOne(r.db.Exec(ctx, query, it.ID, it.ReceivedQuantity, it.ScannedBarcode, it.ScannedAt, it.Stocked, it.AllocatedLocationID))
}

func (r *receiptRepo) CountByStatus(ctx context.Context) (map[models.ReceiptStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM goods_receipts GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.ReceiptStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.ReceiptStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *receiptRepo) loadItems(ctx context.Context, gr *models.GoodsReceipt) error {
	query := `SELECT ` + receiptItemColumns + ` FROM goods_receipt_items WHERE receipt_id = $1 ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, gr.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	gr.Items = nil
	for rows.Next() {
		it := &models.GoodsReceiptItem{}
		err := rows.Scan(&it.ID, &it.ReceiptID, &it.ProductID, &it.ExpectedQuantity, &it.ReceivedQuantity,
			&it.ScannedBarcode, &it.ScannedAt, &it.Stocked, &it.AllocatedLocationID)
		if err != nil {
			return err
		}
		gr.Items = append(gr.Items, it)
	}
	return rows.Err()
}

func scanReceipt(row pgx.Row) (*models.GoodsReceipt, error) {
	gr := &models.GoodsReceipt{}
	var status string
	err := row.Scan(&gr.ID, &gr.ReceiptNumber, &gr.SupplierName, &gr.PurchaseOrderNumber, &status, &gr.Notes,
		&gr.CreatedAt, &gr.StartedAt, &gr.CompletedAt, &gr.CancelledAt)
	if err != nil {
		return nil, notFound(err)
	}
	gr.Status = models.ReceiptStatus(status)
	return gr, nil
}
