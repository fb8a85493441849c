package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const reportPageSize = 500

var movementReportHeader = []string{
	"id", "created_at", "kind", "product_id", "from_location_id", "to_location_id",
	"quantity", "previous_quantity", "new_quantity", "reference", "performed_by",
}

// ReportService exports the movement log as CSV files in object storage.
type ReportService interface {
	ExportMovements(ctx context.Context, day time.Time) (*models.ReportExport, error)
}

type reportService struct {
	movements MovementLog
	storage   ReportStorage
	urlExpiry time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func NewReportService(movements MovementLog, storage ReportStorage, urlExpiry time.Duration, logger zerolog.Logger) ReportService {
	return &reportService{
		movements: movements,
		storage:   storage,
		urlExpiry: urlExpiry,
		now:       time.Now,
		logger:    logger,
	}
}

// ExportMovements writes every movement of the UTC day containing day and returns a
// presigned download link.
func (s *reportService) ExportMovements(ctx context.Context, day time.Time) (*models.ReportExport, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(movementReportHeader); err != nil {
		return nil, err
	}

	rows := 0
	for offset := 0; ; offset += reportPageSize {
		page, err := s.movements.List(ctx, models.MovementFilter{From: &start, To: &end, Limit: reportPageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("list movements: %w", err)
		}
		for _, m := range page {
			if err := w.Write(movementRow(m)); err != nil {
				return nil, err
			}
			rows++
		}
		if len(page) < reportPageSize {
			break
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("movements/%s.csv", start.Format("2006-01-02"))
	if err := s.storage.UploadReport(ctx, objectName, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "text/csv"); err != nil {
		return nil, fmt.Errorf("upload report: %w", err)
	}
	url, err := s.storage.GetPresignedURL(ctx, objectName, s.urlExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign report: %w", err)
	}

	now := s.now().UTC()
	s.logger.Info().Str("object", objectName).Int("rows", rows).Msg("movement report exported")
	return &models.ReportExport{
		Day:         start,
		ObjectName:  objectName,
		Rows:        rows,
		URL:         url,
		ExpiresAt:   now.Add(s.urlExpiry),
		GeneratedAt: now,
	}, nil
}

func movementRow(m *models.MovementRecord) []string {
	return []string{
		m.ID.String(),
		m.CreatedAt.UTC().Format(time.RFC3339),
		string(m.Kind),
		m.ProductID.String(),
		optionalID(m.FromLocationID),
		optionalID(m.ToLocationID),
		strconv.Itoa(m.Quantity),
		strconv.Itoa(m.PreviousQuantity),
		strconv.Itoa(m.NewQuantity),
		m.Reference,
		optionalID(m.PerformedBy),
	}
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
