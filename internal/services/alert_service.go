package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockflow/internal/caching"
	"stockflow/internal/ledger"
	"stockflow/internal/models"
	"stockflow/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const sweepPageSize = 200

// AlertService watches total stock against each product's minimum and keeps at most
// one open alert per product.
type AlertService interface {
	Sweep(ctx context.Context) (*models.SweepResult, error)
	CheckProduct(ctx context.Context, productID uuid.UUID) (*models.LowStockAlert, error)
	AcknowledgeAlert(ctx context.Context, alertID uuid.UUID, notes string) (*models.LowStockAlert, error)
	ResolveAlert(ctx context.Context, alertID uuid.UUID, notes string) (*models.LowStockAlert, error)
	ListAlerts(ctx context.Context, status *models.AlertStatus, severity *models.AlertSeverity, limit, offset int) ([]*models.LowStockAlert, error)
	Summary(ctx context.Context) (*models.AlertSummary, error)
}

type alertService struct {
	productRepo repositories.ProductRepository
	alertRepo   repositories.AlertRepository
	ledger      *ledger.Ledger
	cache       caching.CacheService
	now         func() time.Time
	logger      zerolog.Logger
}

func NewAlertService(productRepo repositories.ProductRepository, alertRepo repositories.AlertRepository,
	stockLedger *ledger.Ledger, cache caching.CacheService, logger zerolog.Logger) AlertService {
	return &alertService{
		productRepo: productRepo,
		alertRepo:   alertRepo,
		ledger:      stockLedger,
		cache:       cache,
		now:         time.Now,
		logger:      logger,
	}
}

// Sweep checks every product. A product that fails to check is counted and skipped.
func (s *alertService) Sweep(ctx context.Context) (*models.SweepResult, error) {
	result := &models.SweepResult{StartedAt: s.now().UTC()}

	for offset := 0; ; offset += sweepPageSize {
		products, err := s.productRepo.List(ctx, sweepPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		for _, product := range products {
			result.ProductsChecked++
			created, resolved, err := s.check(ctx, product)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				result.Failed++
				s.logger.Error().Err(err).Str("product_id", product.ID.String()).Msg("low stock check failed")
				continue
			}
			if created != nil {
				result.Created = append(result.Created, created)
			}
			if resolved != nil {
				result.Resolved = append(result.Resolved, resolved)
			}
		}
		if len(products) < sweepPageSize {
			break
		}
	}

	result.FinishedAt = s.now().UTC()
	s.logger.Info().
		Int("checked", result.ProductsChecked).
		Int("created", len(result.Created)).
		Int("resolved", len(result.Resolved)).
		Int("failed", result.Failed).
		Dur("took", result.FinishedAt.Sub(result.StartedAt)).
		Msg("low stock sweep finished")
	return result, nil
}

// CheckProduct re-evaluates one product and returns its open alert, if any, afterwards.
func (s *alertService) CheckProduct(ctx context.Context, productID uuid.UUID) (*models.LowStockAlert, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, mapNotFound(err, ErrProductNotFound)
	}
	created, _, err := s.check(ctx, product)
	if err != nil {
		return nil, err
	}
	if created != nil {
		return created, nil
	}
	return s.openAlert(ctx, productID)
}

func (s *alertService) openAlert(ctx context.Context, productID uuid.UUID) (*models.LowStockAlert, error) {
	alert, err := s.alertRepo.GetOpenByProduct(ctx, productID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return alert, err
}

// check creates or resolves the product's alert under the per-product lock
func (s *alertService) check(ctx context.Context, product *models.Product) (created, resolved *models.LowStockAlert, err error) {
	err = s.ledger.WithLock(ctx, ledger.AlertKey(product.ID), func() error {
		total, err := s.ledger.TotalForProduct(ctx, product.ID)
		if err != nil {
			return err
		}
		open, err := s.openAlert(ctx, product.ID)
		if err != nil {
			return err
		}

		switch {
		case product.IsLowStock(total) && open == nil:
			alert := &models.LowStockAlert{
				ID:            uuid.New(),
				ProductID:     product.ID,
				CurrentStock:  total,
				MinStockLevel: product.MinStockLevel,
				Severity:      models.CalculateSeverity(total, product.MinStockLevel),
				Status:        models.AlertActive,
				CreatedAt:     s.now().UTC(),
			}
			if err := s.alertRepo.Create(ctx, alert); err != nil {
				if errors.Is(err, repositories.ErrDuplicate) {
					// another instance raised it first
					return nil
				}
				return err
			}
			created = alert
		case !product.IsLowStock(total) && open != nil:
			now := s.now().UTC()
			open.Status = models.AlertResolved
			open.ResolvedAt = &now
			open.CurrentStock = total
			if err := s.alertRepo.Update(ctx, open); err != nil {
				return err
			}
			resolved = open
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if created != nil {
		s.logger.Warn().
			Str("product_id", product.ID.String()).
			Str("sku", product.SKU).
			Int("current", created.CurrentStock).
			Int("min", created.MinStockLevel).
			Str("severity", string(created.Severity)).
			Msg("low stock alert raised")
		if err := s.cache.PublishAlert(ctx, created); err != nil {
			s.logger.Error().Err(err).Str("alert_id", created.ID.String()).Msg("failed to publish alert")
		}
	}
	return created, resolved, nil
}

func (s *alertService) AcknowledgeAlert(ctx context.Context, alertID uuid.UUID, notes string) (*models.LowStockAlert, error) {
	return s.transition(ctx, alertID, func(alert *models.LowStockAlert, now time.Time) error {
		if alert.Status != models.AlertActive {
			return fmt.Errorf("%w: cannot acknowledge %s alert", ErrInvalidTransition, alert.Status)
		}
		alert.Status = models.AlertAcknowledged
		alert.AcknowledgedAt = &now
		if notes = strings.TrimSpace(notes); notes != "" {
			alert.Notes = &notes
		}
		return nil
	})
}

func (s *alertService) ResolveAlert(ctx context.Context, alertID uuid.UUID, notes string) (*models.LowStockAlert, error) {
	return s.transition(ctx, alertID, func(alert *models.LowStockAlert, now time.Time) error {
		if !alert.IsOpen() {
			return fmt.Errorf("%w: alert already resolved", ErrInvalidTransition)
		}
		alert.Status = models.AlertResolved
		alert.ResolvedAt = &now
		if notes = strings.TrimSpace(notes); notes != "" {
			combined := "Resolution: " + notes
			if alert.Notes != nil && *alert.Notes != "" {
				combined = *alert.Notes + "\n" + combined
			}
			alert.Notes = &combined
		}
		return nil
	})
}

func (s *alertService) transition(ctx context.Context, alertID uuid.UUID, apply func(*models.LowStockAlert, time.Time) error) (*models.LowStockAlert, error) {
	alert, err := s.alertRepo.GetByID(ctx, alertID)
	if err != nil {
		return nil, mapNotFound(err, ErrAlertNotFound)
	}

	err = s.ledger.WithLock(ctx, ledger.AlertKey(alert.ProductID), func() error {
		// reload under the lock so a concurrent sweep is not overwritten
		alert, err = s.alertRepo.GetByID(ctx, alertID)
		if err != nil {
			return mapNotFound(err, ErrAlertNotFound)
		}
		if err := apply(alert, s.now().UTC()); err != nil {
			return err
		}
		return s.alertRepo.Update(ctx, alert)
	})
	if err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *alertService) ListAlerts(ctx context.Context, status *models.AlertStatus, severity *models.AlertSeverity, limit, offset int) ([]*models.LowStockAlert, error) {
	return s.alertRepo.List(ctx, status, severity, limit, offset)
}

func (s *alertService) Summary(ctx context.Context) (*models.AlertSummary, error) {
	counts, err := s.alertRepo.CountOpenBySeverity(ctx)
	if err != nil {
		return nil, err
	}
	summary := &models.AlertSummary{BySeverity: make(map[models.AlertSeverity]int, len(models.Severities))}
	for _, severity := range models.Severities {
		summary.BySeverity[severity] = counts[severity]
		summary.Total += counts[severity]
	}
	return summary, nil
}
