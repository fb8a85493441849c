package jobs

import (
	"context"
	"fmt"

	"stockflow/internal/models"
	"stockflow/internal/services"

	"github.com/rs/zerolog"
)

// LowStockSweep re-evaluates every product against its minimum stock level.
type LowStockSweep struct {
	alerts services.AlertService
	logger zerolog.Logger
}

func NewLowStockSweep(alerts services.AlertService, logger zerolog.Logger) *LowStockSweep {
	return &LowStockSweep{alerts: alerts, logger: logger}
}

func (j *LowStockSweep) Run(ctx context.Context) (*models.SweepResult, error) {
	result, err := j.alerts.Sweep(ctx)
	if err != nil {
		return nil, fmt.Errorf("low stock sweep: %w", err)
	}
	if result.Failed > 0 {
		j.logger.Warn().Int("failed", result.Failed).Int("checked", result.ProductsChecked).Msg("sweep finished with failures")
	}
	for _, alert := range result.Created {
		if alert.Severity == models.SeverityCritical {
			j.logger.Error().
				Str("product_id", alert.ProductID.String()).
				Int("min", alert.MinStockLevel).
				Msg("product is out of stock")
		}
	}
	return result, nil
}
