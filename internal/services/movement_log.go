package services

import (
	"context"
	"time"

	"stockflow/internal/common"
	"stockflow/internal/models"
	"stockflow/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MovementLog appends one immutable record per ledger mutation and serves read-only projections.
type MovementLog interface {
	Record(ctx context.Context, movement *models.MovementRecord) *models.MovementRecord
	List(ctx context.Context, filter models.MovementFilter) ([]*models.MovementRecord, error)
	DailySummary(ctx context.Context, from, to time.Time) ([]*models.DailyMovementSummary, error)
}

type movementLog struct {
	repo   repositories.MovementRepository
	now    func() time.Time
	logger zerolog.Logger
}

func NewMovementLog(repo repositories.MovementRepository, logger zerolog.Logger) MovementLog {
	return &movementLog{repo: repo, now: time.Now, logger: logger}
}

// Record stamps and appends the movement. The ledger mutation it describes has
// already committed, so a failed append is logged rather than returned.
func (l *movementLog) Record(ctx context.Context, m *models.MovementRecord) *models.MovementRecord {
	m.ID = uuid.New()
	m.CreatedAt = l.now().UTC()
	if userID, ok := common.GetUserIDFromContext(ctx); ok {
		m.PerformedBy = &userID
	}

	if err := l.repo.Create(ctx, m); err != nil {
		l.logger.Error().Err(err).
			Str("movement_id", m.ID.String()).
			Str("product_id", m.ProductID.String()).
			Str("kind", string(m.Kind)).
			Int("quantity", m.Quantity).
			Str("reference", m.Reference).
			Msg("failed to append movement record")
	}
	return m
}

func (l *movementLog) List(ctx context.Context, filter models.MovementFilter) ([]*models.MovementRecord, error) {
	return l.repo.List(ctx, filter)
}

func (l *movementLog) DailySummary(ctx context.Context, from, to time.Time) ([]*models.DailyMovementSummary, error) {
	return l.repo.DailySummary(ctx, from, to)
}
