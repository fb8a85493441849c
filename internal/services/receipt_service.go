package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockflow/internal/ledger"
	"stockflow/internal/models"
	"stockflow/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type CreateReceiptInput struct {
	SupplierName        *string `json:"supplier_name,omitempty"`
	PurchaseOrderNumber *string `json:"purchase_order_number,omitempty"`
	Notes               *string `json:"notes,omitempty"`
}

// ReceiptItemInput announces an expected line, identified by product id or SKU
type ReceiptItemInput struct {
	ProductID        *uuid.UUID `json:"product_id,omitempty"`
	SKU              string     `json:"sku,omitempty"`
	ExpectedQuantity int        `json:"expected_quantity"`
}

// ReceiptScanRequest counts goods in against one receipt line. Quantity defaults to 1.
type ReceiptScanRequest struct {
	ReceiptID uuid.UUID
	ItemID    uuid.UUID
	Barcode   string
	Quantity  int
}

// ReceiptService checks inbound deliveries in line by line and shelves them on completion.
type ReceiptService interface {
	CreateReceipt(ctx context.Context, input CreateReceiptInput) (*models.GoodsReceipt, error)
	AddItem(ctx context.Context, receiptID uuid.UUID, input ReceiptItemInput) (*models.GoodsReceiptItem, error)
	StartProcessing(ctx context.Context, receiptID uuid.UUID) (*models.GoodsReceipt, error)
	ScanItem(ctx context.Context, req ReceiptScanRequest) (*models.ReceiptScanResult, error)
	CompleteReceipt(ctx context.Context, receiptID uuid.UUID) (*models.ReceiptCompletion, error)
	CancelReceipt(ctx context.Context, receiptID uuid.UUID) (*models.GoodsReceipt, error)
	GetReceipt(ctx context.Context, receiptID uuid.UUID) (*models.GoodsReceipt, error)
	ListReceipts(ctx context.Context, status *models.ReceiptStatus, limit, offset int) ([]*models.GoodsReceipt, error)
	Stats(ctx context.Context) (*models.ReceiptStats, error)
}

type receiptService struct {
	receiptRepo repositories.ReceiptRepository
	productRepo repositories.ProductRepository
	allocator   AllocationService
	ledger      *ledger.Ledger
	now         func() time.Time
	logger      zerolog.Logger
}

func NewReceiptService(receiptRepo repositories.ReceiptRepository, productRepo repositories.ProductRepository,
	allocator AllocationService, stockLedger *ledger.Ledger, logger zerolog.Logger) ReceiptService {
	return &receiptService{
		receiptRepo: receiptRepo,
		productRepo: productRepo,
		allocator:   allocator,
		ledger:      stockLedger,
		now:         time.Now,
		logger:      logger,
	}
}

func (s *receiptService) CreateReceipt(ctx context.Context, input CreateReceiptInput) (*models.GoodsReceipt, error) {
	now := s.now().UTC()
	gr := &models.GoodsReceipt{
		ID:                  uuid.New(),
		ReceiptNumber:       models.NewReceiptNumber(now),
		SupplierName:        trimmed(input.SupplierName),
		PurchaseOrderNumber: trimmed(input.PurchaseOrderNumber),
		Status:              models.ReceiptPending,
		Notes:               input.Notes,
		CreatedAt:           now,
	}
	if err := s.receiptRepo.Create(ctx, gr); err != nil {
		return nil, fmt.Errorf("create goods receipt: %w", err)
	}
	return gr, nil
}

func (s *receiptService) AddItem(ctx context.Context, receiptID uuid.UUID, input ReceiptItemInput) (*models.GoodsReceiptItem, error) {
	if input.ExpectedQuantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.resolveProduct(ctx, input)
	if err != nil {
		return nil, err
	}

	var item *models.GoodsReceiptItem
	err = s.ledger.WithLock(ctx, ledger.ReceiptKey(receiptID), func() error {
		gr, err := s.load(ctx, receiptID)
		if err != nil {
			return err
		}
		if !gr.IsOpen() {
			return fmt.Errorf("%w: goods receipt %s is %s", ErrInvalidTransition, gr.ReceiptNumber, gr.Status)
		}
		item = &models.GoodsReceiptItem{
			ID:               uuid.New(),
			ReceiptID:        gr.ID,
			ProductID:        product.ID,
			ExpectedQuantity: input.ExpectedQuantity,
		}
		return s.receiptRepo.AddItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *receiptService) resolveProduct(ctx context.Context, input ReceiptItemInput) (*models.Product, error) {
	var (
		product *models.Product
		err     error
	)
	switch sku := strings.TrimSpace(input.SKU); {
	case input.ProductID != nil:
		product, err = s.productRepo.GetByID(ctx, *input.ProductID)
	case sku != "":
		product, err = s.productRepo.GetBySKU(ctx, sku)
	default:
		return nil, fmt.Errorf("%w: product_id or sku is required", ErrInvalidInput)
	}
	if err != nil {
		return nil, mapNotFound(err, ErrProductNotFound)
	}
	return product, nil
}

func (s *receiptService) StartProcessing(ctx context.Context, receiptID uuid.UUID) (*models.GoodsReceipt, error) {
	var gr *models.GoodsReceipt
	err := s.ledger.WithLock(ctx, ledger.ReceiptKey(receiptID), func() error {
		var err error
		gr, err = s.load(ctx, receiptID)
		if err != nil {
			return err
		}
		if gr.Status != models.ReceiptPending {
			return fmt.Errorf("%w: cannot start goods receipt in status %s", ErrInvalidTransition, gr.Status)
		}
		now := s.now().UTC()
		gr.Status = models.ReceiptInProgress
		gr.StartedAt = &now
		return s.receiptRepo.UpdateStatus(ctx, gr)
	})
	if err != nil {
		return nil, err
	}
	return gr, nil
}

// ScanItem counts goods in. Receiving more than expected is allowed and reported
// as over_received; a barcode for another product changes nothing.
func (s *receiptService) ScanItem(ctx context.Context, req ReceiptScanRequest) (*models.ReceiptScanResult, error) {
	qty := req.Quantity
	switch {
	case qty == 0:
		qty = 1
	case qty < 0:
		return nil, ErrInvalidQuantity
	}
	barcode := strings.TrimSpace(req.Barcode)

	var result *models.ReceiptScanResult
	err := s.ledger.WithLock(ctx, ledger.ReceiptKey(req.ReceiptID), func() error {
		gr, err := s.load(ctx, req.ReceiptID)
		if err != nil {
			return err
		}
		if gr.Status != models.ReceiptInProgress {
			return fmt.Errorf("%w: goods receipt %s is %s, start it before scanning", ErrInvalidTransition, gr.ReceiptNumber, gr.Status)
		}
		item := gr.FindItem(req.ItemID)
		if item == nil {
			return ErrReceiptItemNotFound
		}

		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if err != nil {
			return mapNotFound(err, ErrProductNotFound)
		}
		if barcode != product.Barcode {
			return &ScanError{Reason: ErrBarcodeMismatch, Expected: product.Barcode, Scanned: barcode}
		}

		before := *item
		item.RecordScan(qty, barcode, s.now().UTC())
		if err := s.receiptRepo.UpdateItem(ctx, item); err != nil {
			*item = before
			return fmt.Errorf("save receipt item: %w", err)
		}
		result = &models.ReceiptScanResult{
			ReceiptID:   gr.ID,
			Item:        item,
			ScannedNow:  qty,
			Status:      item.ReceiveStatus(),
			Discrepancy: item.Discrepancy(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CompleteReceipt shelves every received line that is not yet on a shelf. The receipt
// only completes once every such line is placed; failed lines are reported and the
// receipt stays in progress so completion can be retried.
func (s *receiptService) CompleteReceipt(ctx context.Context, receiptID uuid.UUID) (*models.ReceiptCompletion, error) {
	var report *models.ReceiptCompletion
	err := s.ledger.WithLock(ctx, ledger.ReceiptKey(receiptID), func() error {
		gr, err := s.load(ctx, receiptID)
		if err != nil {
			return err
		}
		if gr.Status != models.ReceiptInProgress {
			return fmt.Errorf("%w: cannot complete goods receipt in status %s", ErrInvalidTransition, gr.Status)
		}

		report = &models.ReceiptCompletion{Receipt: gr}
		for _, item := range gr.Items {
			if !item.NeedsStocking() {
				report.Skipped++
				continue
			}
			outcome := s.stockItem(ctx, gr, item)
			if outcome.Success {
				report.Stocked++
			} else {
				report.Failed++
			}
			report.Outcomes = append(report.Outcomes, outcome)
		}
		if report.Failed > 0 {
			return nil
		}

		now := s.now().UTC()
		gr.Status = models.ReceiptCompleted
		gr.CompletedAt = &now
		return s.receiptRepo.UpdateStatus(ctx, gr)
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.With().
		Str("receipt", report.Receipt.ReceiptNumber).
		Int("stocked", report.Stocked).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Logger()
	if report.Failed > 0 {
		log.Warn().Msg("goods receipt left in progress, some lines could not be shelved")
	} else {
		log.Info().Int("received", report.Receipt.TotalReceived()).Msg("goods receipt completed")
	}
	return report, nil
}

// stockItem marks the line stocked before placing it, so a retried completion never
// shelves the same goods twice. A failed placement clears the mark again.
func (s *receiptService) stockItem(ctx context.Context, gr *models.GoodsReceipt, item *models.GoodsReceiptItem) models.RestockOutcome {
	outcome := models.RestockOutcome{ItemID: item.ID, ProductID: item.ProductID, Quantity: item.ReceivedQuantity}
	fail := func(err error) models.RestockOutcome {
		msg := err.Error()
		outcome.Error = &msg
		return outcome
	}

	item.Stocked = true
	if err := s.receiptRepo.UpdateItem(ctx, item); err != nil {
		item.Stocked = false
		return fail(fmt.Errorf("save receipt item: %w", err))
	}

	placed, err := s.allocator.PlaceIncoming(ctx, models.PlacementRequest{
		ProductID: item.ProductID,
		Quantity:  item.ReceivedQuantity,
		Kind:      models.MovementReceipt,
		Reference: gr.ReceiptNumber,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("receipt", gr.ReceiptNumber).Str("product_id", item.ProductID.String()).Msg("could not shelve receipt line")
		item.Stocked = false
		if rbErr := s.receiptRepo.UpdateItem(ctx, item); rbErr != nil {
			s.logger.Error().Err(rbErr).Str("receipt", gr.ReceiptNumber).Str("item_id", item.ID.String()).Msg("failed to clear stocked mark after placement failure")
		}
		return fail(err)
	}

	locationID := placed.LocationID
	item.AllocatedLocationID = &locationID
	if err := s.receiptRepo.UpdateItem(ctx, item); err != nil {
		s.logger.Error().Err(err).Str("receipt", gr.ReceiptNumber).Str("item_id", item.ID.String()).Msg("stock shelved but receipt line location not saved")
	}

	outcome.Success = true
	outcome.LocationID = &locationID
	outcome.LocationCode = placed.LocationCode
	outcome.PreviousQuantity = placed.PreviousQuantity
	outcome.NewQuantity = placed.NewQuantity
	return outcome
}

// CancelReceipt abandons a receipt that has nothing on the shelves yet
func (s *receiptService) CancelReceipt(ctx context.Context, receiptID uuid.UUID) (*models.GoodsReceipt, error) {
	var gr *models.GoodsReceipt
	err := s.ledger.WithLock(ctx, ledger.ReceiptKey(receiptID), func() error {
		var err error
		gr, err = s.load(ctx, receiptID)
		if err != nil {
			return err
		}
		if !gr.IsOpen() {
			return fmt.Errorf("%w: goods receipt %s is %s", ErrInvalidTransition, gr.ReceiptNumber, gr.Status)
		}
		for _, item := range gr.Items {
			if item.Stocked {
				return fmt.Errorf("%w: goods receipt %s already has shelved lines", ErrInvalidTransition, gr.ReceiptNumber)
			}
		}
		now := s.now().UTC()
		gr.Status = models.ReceiptCancelled
		gr.CancelledAt = &now
		return s.receiptRepo.UpdateStatus(ctx, gr)
	})
	if err != nil {
		return nil, err
	}
	return gr, nil
}

func (s *receiptService) GetReceipt(ctx context.Context, receiptID uuid.UUID) (*models.GoodsReceipt, error) {
	return s.load(ctx, receiptID)
}

func (s *receiptService) ListReceipts(ctx context.Context, status *models.ReceiptStatus, limit, offset int) ([]*models.GoodsReceipt, error) {
	return s.receiptRepo.List(ctx, status, limit, offset)
}

func (s *receiptService) Stats(ctx context.Context) (*models.ReceiptStats, error) {
	counts, err := s.receiptRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &models.ReceiptStats{
		Pending:    counts[models.ReceiptPending],
		InProgress: counts[models.ReceiptInProgress],
		Completed:  counts[models.ReceiptCompleted],
		Cancelled:  counts[models.ReceiptCancelled],
	}
	stats.Total = stats.Pending + stats.InProgress + stats.Completed + stats.Cancelled
	return stats, nil
}

func (s *receiptService) load(ctx context.Context, id uuid.UUID) (*models.GoodsReceipt, error) {
	gr, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrReceiptNotFound)
	}
	return gr, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
