package repositories

import (
	"context"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type LocationRepository interface {
	Create(ctx context.Context, location *models.Location) error
	Update(ctx context.Context, location *models.Location) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error)
	GetByCode(ctx context.Context, code string) (*models.Location, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Location, error)
	ListActive(ctx context.Context) ([]*models.Location, error)
	List(ctx context.Context, limit, offset int) ([]*models.Location, error)
}

type locationRepo struct {
	db DB
}

func NewLocationRepository(db DB) LocationRepository {
	return &locationRepo{db: db}
}

const locationColumns = `id, code, aisle, rack, level, max_capacity, is_active, created_at, updated_at`

func scanLocation(row pgx.Row) (*models.Location, error) {
	l := &models.Location{}
	if err := row.Scan(&l.ID, &l.Code, &l.Aisle, &l.Rack, &l.Level, &l.MaxCapacity, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return l, nil
}

func (r *locationRepo) collect(rows pgx.Rows, err error) ([]*models.Location, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []*models.Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (r *locationRepo) Create(ctx context.Context, location *models.Location) error {
	query := `
		INSERT INTO locations (id, code, aisle, rack, level, max_capacity, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, location.ID, location.Code, location.Aisle, location.Rack, location.Level, location.MaxCapacity, location.IsActive).
		Scan(&location.CreatedAt, &location.UpdatedAt)
	return duplicate(err)
}

func (r *locationRepo) Update(ctx context.Context, location *models.Location) error {
	query := `
		UPDATE locations
		SET aisle = $2, rack = $3, level = $4, max_capacity = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
	`
	return affectedOne(r.db.Exec(ctx, query, location.ID, location.Aisle, location.Rack, location.Level, location.MaxCapacity, location.IsActive))
}

func (r *locationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`
	return scanLocation(r.db.QueryRow(ctx, query, id))
}

func (r *locationRepo) GetByCode(ctx context.Context, code string) (*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE code = $1`
	return scanLocation(r.db.QueryRow(ctx, query, code))
}

func (r *locationRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Location, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = ANY($1::uuid[]) ORDER BY code`
	return r.collect(r.db.Query(ctx, query, raw))
}

func (r *locationRepo) ListActive(ctx context.Context) ([]*models.Location, error) {
	query := `SELECT ` + locationColumns + ` FROM locations WHERE is_active ORDER BY code`
	return r.collect(r.db.Query(ctx, query))
}

func (r *locationRepo) List(ctx context.Context, limit, offset int) ([]*models.Location, error) {
	limit, offset = pageDefaults(limit, offset)
	query := `SELECT ` + locationColumns + ` FROM locations ORDER BY aisle, rack, level, code LIMIT $1 OFFSET $2`
	return r.collect(r.db.Query(ctx, query, limit, offset))
}
