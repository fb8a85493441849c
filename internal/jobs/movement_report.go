package jobs

import (
	"context"
	"fmt"
	"time"

	"stockflow/internal/models"
	"stockflow/internal/services"

	"github.com/rs/zerolog"
)

// MovementReport exports the previous UTC day's movement log.
type MovementReport struct {
	reports services.ReportService
	now     func() time.Time
	logger  zerolog.Logger
}

func NewMovementReport(reports services.ReportService, logger zerolog.Logger) *MovementReport {
	return &MovementReport{reports: reports, now: time.Now, logger: logger}
}

func (j *MovementReport) Run(ctx context.Context) (*models.ReportExport, error) {
	yesterday := j.now().UTC().AddDate(0, 0, -1)
	export, err := j.reports.ExportMovements(ctx, yesterday)
	if err != nil {
		return nil, fmt.Errorf("movement report for %s: %w", yesterday.Format("2006-01-02"), err)
	}
	j.logger.Info().Str("object", export.ObjectName).Int("rows", export.Rows).Msg("nightly movement report ready")
	return export, nil
}
