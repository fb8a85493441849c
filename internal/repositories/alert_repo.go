package repositories

import (
	"context"
	"fmt"
	"strings"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AlertRepository interface {
	Create(ctx context.Context, alert *models.LowStockAlert) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.LowStockAlert, error)
	// GetOpenByProduct returns the product's active or acknowledged alert, or ErrNotFound
	GetOpenByProduct(ctx context.Context, productID uuid.UUID) (*models.LowStockAlert, error)
	Update(ctx context.Context, alert *models.LowStockAlert) error
	List(ctx context.Context, status *models.AlertStatus, severity *models.AlertSeverity, limit, offset int) ([]*models.LowStockAlert, error)
	CountOpenBySeverity(ctx context.Context) (map[models.AlertSeverity]int, error)
}

type alertRepo struct {
	db DB
}

func NewAlertRepository(db DB) AlertRepository {
	return &alertRepo{db: db}
}

const alertColumns = `id, product_id, current_stock, min_stock_level, severity, status, notes, created_at, acknowledged_at, resolved_at`

func scanAlert(row pgx.Row) (*models.LowStockAlert, error) {
	a := &models.LowStockAlert{}
	var severity, status string
	err := row.Scan(&a.ID, &a.ProductID, &a.CurrentStock, &a.MinStockLevel, &severity, &status, &a.Notes,
		&a.CreatedAt, &a.AcknowledgedAt, &a.ResolvedAt)
	if err != nil {
		return nil, notFound(err)
	}
	a.Severity = models.AlertSeverity(severity)
	a.Status = models.AlertStatus(status)
	return a, nil
}

// Create relies on the partial unique index over open alerts per product, so a
// racing second insert fails instead of producing a duplicate.
func (r *alertRepo) Create(ctx context.Context, a *models.LowStockAlert) error {
	query := `
		INSERT INTO low_stock_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query, a.ID, a.ProductID, a.CurrentStock, a.MinStockLevel, string(a.Severity), string(a.Status),
		a.Notes, a.CreatedAt, a.AcknowledgedAt, a.ResolvedAt)
	return duplicate(err)
}

func (r *alertRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.LowStockAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM low_stock_alerts WHERE id = $1`
	return scanAlert(r.db.QueryRow(ctx, query, id))
}

func (r *alertRepo) GetOpenByProduct(ctx context.Context, productID uuid.UUID) (*models.LowStockAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM low_stock_alerts
		WHERE product_id = $1 AND status IN ('active', 'acknowledged')
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanAlert(r.db.QueryRow(ctx, query, productID))
}

func (r *alertRepo) Update(ctx context.Context, a *models.LowStockAlert) error {
	query := `
		UPDATE low_stock_alerts
		SET current_stock = $2, severity = $3, status = $4, notes = $5, acknowledged_at = $6, resolved_at = $7
		WHERE id = $1
	`
	return affectedOne(r.db.Exec(ctx, query, a.ID, a.CurrentStock, string(a.Severity), string(a.Status), a.Notes, a.AcknowledgedAt, a.ResolvedAt))
}

func (r *alertRepo) List(ctx context.Context, status *models.AlertStatus, severity *models.AlertSeverity, limit, offset int) ([]*models.LowStockAlert, error) {
	limit, offset = pageDefaults(limit, offset)

	var conditions []string
	var args []any
	if status != nil {
		args = append(args, string(*status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if severity != nil {
		args = append(args, string(*severity))
		conditions = append(conditions, fmt.Sprintf("severity = $%d", len(args)))
	}

	query := `SELECT ` + alertColumns + ` FROM low_stock_alerts`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*models.LowStockAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (r *alertRepo) CountOpenBySeverity(ctx context.Context) (map[models.AlertSeverity]int, error) {
	query := `
		SELECT severity, COUNT(*)
		FROM low_stock_alerts
		WHERE status IN ('active', 'acknowledged')
		GROUP BY severity
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.AlertSeverity]int)
	for rows.Next() {
		var severity string
		var n int
		if err := rows.Scan(&severity, &n); err != nil {
			return nil, err
		}
		counts[models.AlertSeverity(severity)] = n
	}
	return counts, rows.Err()
}
