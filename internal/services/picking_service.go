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

// ScanRequest is one barcode scan against a pick list item. Quantity defaults to 1;
// PickAll picks whatever remains. ExpectedLocation, when set, is checked against the
// item's location code and shelf label before anything else.
type ScanRequest struct {
	PickListID       uuid.UUID
	ItemID           uuid.UUID
	Barcode          string
	Quantity         int
	ExpectedLocation string
	PickAll          bool
}

// PickingService executes pick lists on the warehouse floor.
type PickingService interface {
	ScanPick(ctx context.Context, req ScanRequest) (*models.ScanResult, error)
	PickRemaining(ctx context.Context, pickListID, itemID uuid.UUID, barcode, expectedLocation string) (*models.ScanResult, error)
	QuickScan(ctx context.Context, pickListID uuid.UUID, barcode string, quantity int) (*models.ScanResult, error)
	StartPicking(ctx context.Context, pickListID uuid.UUID) (*models.PickList, error)
	CompletePicking(ctx context.Context, pickListID uuid.UUID) (*models.PickList, error)
	CancelPickList(ctx context.Context, pickListID uuid.UUID) (*models.CancelResult, error)
	Progress(ctx context.Context, pickListID uuid.UUID) (*models.PickProgress, error)
}

type pickingService struct {
	pickListRepo repositories.PickListRepository
	orderRepo    repositories.OrderRepository
	productRepo  repositories.ProductRepository
	ledger       *ledger.Ledger
	movements    MovementLog
	now          func() time.Time
	logger       zerolog.Logger
}

func NewPickingService(pickListRepo repositories.PickListRepository, orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository, stockLedger *ledger.Ledger, movements MovementLog, logger zerolog.Logger) PickingService {
	return &pickingService{
		pickListRepo: pickListRepo,
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		ledger:       stockLedger,
		movements:    movements,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *pickingService) load(ctx context.Context, id uuid.UUID) (*models.PickList, error) {
	pl, err := s.pickListRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrPickListNotFound)
	}
	return pl, nil
}

func (s *pickingService) ScanPick(ctx context.Context, req ScanRequest) (*models.ScanResult, error) {
	var result *models.ScanResult
	err := s.ledger.WithLock(ctx, ledger.PickListKey(req.PickListID), func() error {
		pl, err := s.load(ctx, req.PickListID)
		if err != nil {
			return err
		}
		if pl.IsClosed() {
			return fmt.Errorf("%w: pick list %s is %s", ErrInvalidTransition, pl.PickListNumber, pl.Status)
		}
		item := pl.FindItem(req.ItemID)
		if item == nil {
			return ErrPickItemNotFound
		}
		result, err = s.pick(ctx, pl, item, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// pick validates a scan and applies it. Must run under the pick list lock.
// A rejected scan leaves the item, the ledger and the movement log untouched.
func (s *pickingService) pick(ctx context.Context, pl *models.PickList, item *models.PickPlanItem, req ScanRequest) (*models.ScanResult, error) {
	if req.ExpectedLocation != "" && !item.MatchesLocation(req.ExpectedLocation) {
		return nil, &ScanError{Reason: ErrLocationMismatch, Expected: item.LocationLabel, Scanned: req.ExpectedLocation}
	}

	product, err := s.productRepo.GetByID(ctx, item.ProductID)
	if err != nil {
		return nil, mapNotFound(err, ErrProductNotFound)
	}
	barcode := strings.TrimSpace(req.Barcode)
	if barcode != product.Barcode {
		return nil, &ScanError{Reason: ErrBarcodeMismatch, Expected: product.Barcode, Scanned: barcode}
	}

	if item.IsPicked() {
		return nil, &ScanError{Reason: ErrItemAlreadyPicked}
	}

	qty := req.Quantity
	switch {
	case req.PickAll:
		qty = item.Remaining()
	case qty == 0:
		qty = 1
	case qty < 0:
		return nil, ErrInvalidQuantity
	}
	if qty > item.Remaining() {
		return nil, fmt.Errorf("%w: %d scanned, %d remaining", ErrQuantityExceedsRemaining, qty, item.Remaining())
	}

	// The item is saved before the ledger moves. A failed save leaves stock alone,
	// a failed consume puts the saved item back.
	before := *item
	item.RecordPick(qty, barcode, s.now().UTC())
	if err := s.pickListRepo.UpdateItem(ctx, item); err != nil {
		*item = before
		return nil, fmt.Errorf("save pick item: %w", err)
	}

	change, err := s.ledger.Consume(ctx, item.ProductID, item.LocationID, qty)
	if err != nil {
		*item = before
		if rbErr := s.pickListRepo.UpdateItem(ctx, item); rbErr != nil {
			s.logger.Error().Err(rbErr).
				Str("pick_list", pl.PickListNumber).
				Str("item_id", item.ID.String()).
				Int("quantity", qty).
				Msg("failed to roll back pick item after consume failure")
		}
		return nil, fmt.Errorf("consume stock: %w", err)
	}

	from := item.LocationID
	s.movements.Record(ctx, &models.MovementRecord{
		ProductID:        item.ProductID,
		FromLocationID:   &from,
		Kind:             models.MovementPick,
		Quantity:         qty,
		PreviousQuantity: change.PreviousQuantity,
		NewQuantity:      change.NewQuantity,
		Reference:        pl.PickListNumber,
	})

	s.logger.Debug().
		Str("pick_list", pl.PickListNumber).
		Str("location", item.LocationCode).
		Int("picked", qty).
		Int("remaining", item.Remaining()).
		Msg("item picked")

	return &models.ScanResult{
		PickListID:       pl.ID,
		Item:             item,
		PickedNow:        qty,
		Remaining:        item.Remaining(),
		PreviousQuantity: change.PreviousQuantity,
		NewQuantity:      change.NewQuantity,
		ListComplete:     pl.IsComplete(),
	}, nil
}

func (s *pickingService) PickRemaining(ctx context.Context, pickListID, itemID uuid.UUID, barcode, expectedLocation string) (*models.ScanResult, error) {
	return s.ScanPick(ctx, ScanRequest{
		PickListID:       pickListID,
		ItemID:           itemID,
		Barcode:          barcode,
		ExpectedLocation: expectedLocation,
		PickAll:          true,
	})
}

// QuickScan picks from the first unpicked item whose product carries the barcode
func (s *pickingService) QuickScan(ctx context.Context, pickListID uuid.UUID, barcode string, quantity int) (*models.ScanResult, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, fmt.Errorf("%w: barcode is required", ErrInvalidInput)
	}

	var result *models.ScanResult
	err := s.ledger.WithLock(ctx, ledger.PickListKey(pickListID), func() error {
		pl, err := s.load(ctx, pickListID)
		if err != nil {
			return err
		}
		if pl.IsClosed() {
			return fmt.Errorf("%w: pick list %s is %s", ErrInvalidTransition, pl.PickListNumber, pl.Status)
		}

		product, err := s.productRepo.GetByBarcode(ctx, barcode)
		if err != nil {
			return mapNotFound(err, &ScanError{Reason: ErrNoUnpickedItem, Scanned: barcode})
		}
		for _, item := range pl.Items {
			if item.ProductID == product.ID && !item.IsPicked() {
				result, err = s.pick(ctx, pl, item, ScanRequest{PickListID: pl.ID, ItemID: item.ID, Barcode: barcode, Quantity: quantity})
				return err
			}
		}
		return &ScanError{Reason: ErrNoUnpickedItem, Scanned: barcode}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *pickingService) StartPicking(ctx context.Context, pickListID uuid.UUID) (*models.PickList, error) {
	var pl *models.PickList
	err := s.ledger.WithLock(ctx, ledger.PickListKey(pickListID), func() error {
		var err error
		pl, err = s.load(ctx, pickListID)
		if err != nil {
			return err
		}
		if pl.Status != models.PickListPending {
			return fmt.Errorf("%w: cannot start pick list in status %s", ErrInvalidTransition, pl.Status)
		}
		now := s.now().UTC()
		pl.Status = models.PickListInProgress
		pl.StartedAt = &now
		if err := s.pickListRepo.UpdateStatus(ctx, pl); err != nil {
			return err
		}
		return s.setOrderStatus(ctx, pl, models.OrderPicking)
	})
	if err != nil {
		return nil, err
	}
	return pl, nil
}

func (s *pickingService) CompletePicking(ctx context.Context, pickListID uuid.UUID) (*models.PickList, error) {
	var pl *models.PickList
	err := s.ledger.WithLock(ctx, ledger.PickListKey(pickListID), func() error {
		var err error
		pl, err = s.load(ctx, pickListID)
		if err != nil {
			return err
		}
		if pl.Status != models.PickListInProgress {
			return fmt.Errorf("%w: cannot complete pick list in status %s", ErrInvalidTransition, pl.Status)
		}
		if !pl.IsComplete() {
			return fmt.Errorf("%w: %s is %.2f%% picked", ErrPickListIncomplete, pl.PickListNumber, pl.Progress())
		}
		now := s.now().UTC()
		pl.Status = models.PickListCompleted
		pl.CompletedAt = &now
		if err := s.pickListRepo.UpdateStatus(ctx, pl); err != nil {
			return err
		}
		return s.setOrderStatus(ctx, pl, models.OrderPicked)
	})
	if err != nil {
		return nil, err
	}
	return pl, nil
}

// CancelPickList hands back every outstanding reservation and returns the order to pending.
// Items are flagged as released one by one, so a retry after a partial failure
// never releases the same reservation twice.
func (s *pickingService) CancelPickList(ctx context.Context, pickListID uuid.UUID) (*models.CancelResult, error) {
	var result *models.CancelResult
	err := s.ledger.WithLock(ctx, ledger.PickListKey(pickListID), func() error {
		pl, err := s.load(ctx, pickListID)
		if err != nil {
			return err
		}
		if pl.IsClosed() {
			return fmt.Errorf("%w: cannot cancel pick list in status %s", ErrInvalidTransition, pl.Status)
		}

		result = &models.CancelResult{PickList: pl}
		for _, item := range pl.Items {
			if item.ReservationReleased {
				continue
			}
			if outstanding := item.Remaining(); outstanding > 0 {
				if _, err := s.ledger.Release(ctx, item.ProductID, item.LocationID, outstanding); err != nil {
					return fmt.Errorf("release reservation at %s: %w", item.LocationCode, err)
				}
				result.ReleasedQuantity += outstanding
				result.ReleasedItems++
			}
			item.ReservationReleased = true
			if err := s.pickListRepo.UpdateItem(ctx, item); err != nil {
				return fmt.Errorf("save pick item: %w", err)
			}
		}

		now := s.now().UTC()
		pl.Status = models.PickListCancelled
		pl.CancelledAt = &now
		if err := s.pickListRepo.UpdateStatus(ctx, pl); err != nil {
			return err
		}
		return s.setOrderStatus(ctx, pl, models.OrderPending)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("pick_list", result.PickList.PickListNumber).
		Int("released_quantity", result.ReleasedQuantity).
		Msg("pick list cancelled")
	return result, nil
}

func (s *pickingService) setOrderStatus(ctx context.Context, pl *models.PickList, status models.OrderStatus) error {
	if err := s.orderRepo.UpdateStatus(ctx, pl.OrderID, status); err != nil {
		return fmt.Errorf("move order %s to %s: %w", pl.OrderID, status, err)
	}
	return nil
}

func (s *pickingService) Progress(ctx context.Context, pickListID uuid.UUID) (*models.PickProgress, error) {
	pl, err := s.load(ctx, pickListID)
	if err != nil {
		return nil, err
	}

	p := &models.PickProgress{
		PickListID:      pl.ID,
		PickListNumber:  pl.PickListNumber,
		Status:          pl.Status,
		TotalItems:      len(pl.Items),
		ProgressPercent: pl.Progress(),
		IsComplete:      pl.IsComplete(),
	}
	for _, item := range pl.Items {
		p.TotalQuantity += item.RequestedQuantity
		p.PickedQuantity += item.PickedQuantity
		if item.IsPicked() {
			p.PickedItems++
		}
	}
	p.RemainingItems = p.TotalItems - p.PickedItems
	p.RemainingQuantity = p.TotalQuantity - p.PickedQuantity
	return p, nil
}
