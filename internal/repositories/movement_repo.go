package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockflow/internal/models"

	"github.com/jackc/pgx/v5"
)

// MovementRepository is append-only: there is no update or delete.
type MovementRepository interface {
	Create(ctx context.Context, movement *models.MovementRecord) error
	List(ctx context.Context, filter models.MovementFilter) ([]*models.MovementRecord, error)
	DailySummary(ctx context.Context, from, to time.Time) ([]*models.DailyMovementSummary, error)
}

type movementRepo struct {
	db DB
}

func NewMovementRepository(db DB) MovementRepository {
	return &movementRepo{db: db}
}

func (r *movementRepo) Create(ctx context.Context, m *models.MovementRecord) error {
	query := `
		INSERT INTO stock_movements (id, product_id, from_location_id, to_location_id, kind, quantity,
			previous_quantity, new_quantity, reference, notes, performed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query, m.ID, m.ProductID, m.FromLocationID, m.ToLocationID, string(m.Kind), m.Quantity,
		m.PreviousQuantity, m.NewQuantity, m.Reference, m.Notes, m.PerformedBy, m.CreatedAt)
	return err
}

func (r *movementRepo) List(ctx context.Context, filter models.MovementFilter) ([]*models.MovementRecord, error) {
	query, args := buildMovementQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []*models.MovementRecord
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func buildMovementQuery(filter models.MovementFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(`
		SELECT id, product_id, from_location_id, to_location_id, kind, quantity,
			previous_quantity, new_quantity, reference, notes, performed_by, created_at
		FROM stock_movements
		WHERE 1=1`)

	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ProductID != nil {
		b.WriteString(" AND product_id = " + arg(*filter.ProductID))
	}
	if filter.LocationID != nil {
		p := arg(*filter.LocationID)
		b.WriteString(" AND (from_location_id = " + p + " OR to_location_id = " + p + ")")
	}
	if filter.Kind != nil {
		b.WriteString(" AND kind = " + arg(string(*filter.Kind)))
	}
	if filter.From != nil {
		b.WriteString(" AND created_at >= " + arg(*filter.From))
	}
	if filter.To != nil {
		b.WriteString(" AND created_at < " + arg(*filter.To))
	}

	limit, offset := pageDefaults(filter.Limit, filter.Offset)
	b.WriteString(" ORDER BY created_at DESC, id")
	b.WriteString(" LIMIT " + arg(limit) + " OFFSET " + arg(offset))
	return b.String(), args
}

func scanMovement(row pgx.Row) (*models.MovementRecord, error) {
	m := &models.MovementRecord{}
	var kind string
	err := row.Scan(&m.ID, &m.ProductID, &m.FromLocationID, &m.ToLocationID, &kind, &m.Quantity,
		&m.PreviousQuantity, &m.NewQuantity, &m.Reference, &m.Notes, &m.PerformedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Kind = models.MovementKind(kind)
	return m, nil
}

func (r *movementRepo) DailySummary(ctx context.Context, from, to time.Time) ([]*models.DailyMovementSummary, error) {
	query := `
		SELECT date_trunc('day', created_at) AS day, kind, COUNT(*), COALESCE(SUM(quantity), 0)
		FROM stock_movements
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY day, kind
		ORDER BY day, kind
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*models.DailyMovementSummary
	for rows.Next() {
		s := &models.DailyMovementSummary{}
		var kind string
		if err := rows.Scan(&s.Day, &kind, &s.Movements, &s.TotalQuantity); err != nil {
			return nil, err
		}
		s.Kind = models.MovementKind(kind)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
