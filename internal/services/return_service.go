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

type CreateReturnInput struct {
	Reason          string     `json:"reason"`
	OriginalOrderID *uuid.UUID `json:"original_order_id,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

// ReturnItemInput adds one returned product. Restockable defaults from the condition.
type ReturnItemInput struct {
	ProductID           uuid.UUID            `json:"product_id"`
	Quantity            int                  `json:"quantity"`
	Condition           models.ItemCondition `json:"condition"`
	Restockable         *bool                `json:"restockable,omitempty"`
	AllocatedLocationID *uuid.UUID           `json:"allocated_location_id,omitempty"`
	Notes               *string              `json:"notes,omitempty"`
}

// ReturnService runs customer returns from receipt through inspection to restocking.
type ReturnService interface {
	CreateReturn(ctx context.Context, input CreateReturnInput) (*models.ProductReturn, error)
	AddItem(ctx context.Context, returnID uuid.UUID, input ReturnItemInput) (*models.ReturnItem, error)
	StartInspection(ctx context.Context, returnID uuid.UUID) (*models.ProductReturn, error)
	SetItemRestockable(ctx context.Context, returnID, itemID uuid.UUID, restockable bool, locationID *uuid.UUID) (*models.ReturnItem, error)
	CompleteAndRestock(ctx context.Context, returnID uuid.UUID) (*models.RestockReport, error)
	RejectReturn(ctx context.Context, returnID uuid.UUID, notes string) (*models.ProductReturn, error)
	GetReturn(ctx context.Context, returnID uuid.UUID) (*models.ProductReturn, error)
	ListReturns(ctx context.Context, status *models.ReturnStatus, limit, offset int) ([]*models.ProductReturn, error)
}

type returnService struct {
	returnRepo   repositories.ReturnRepository
	orderRepo    repositories.OrderRepository
	productRepo  repositories.ProductRepository
	locationRepo repositories.LocationRepository
	allocator    AllocationService
	ledger       *ledger.Ledger
	now          func() time.Time
	logger       zerolog.Logger
}

func NewReturnService(returnRepo repositories.ReturnRepository, orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository, locationRepo repositories.LocationRepository,
	allocator AllocationService, stockLedger *ledger.Ledger, logger zerolog.Logger) ReturnService {
	return &returnService{
		returnRepo:   returnRepo,
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		allocator:    allocator,
		ledger:       stockLedger,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *returnService) CreateReturn(ctx context.Context, input CreateReturnInput) (*models.ProductReturn, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	if input.OriginalOrderID != nil {
		if _, err := s.orderRepo.GetByID(ctx, *input.OriginalOrderID); err != nil {
			return nil, mapNotFound(err, ErrOrderNotFound)
		}
	}

	now := s.now().UTC()
	ret := &models.ProductReturn{
		ID:              uuid.New(),
		ReturnNumber:    models.NewReturnNumber(now),
		OriginalOrderID: input.OriginalOrderID,
		Reason:          reason,
		Status:          models.ReturnPending,
		Notes:           input.Notes,
		CreatedAt:       now,
	}
	if err := s.returnRepo.Create(ctx, ret); err != nil {
		return nil, fmt.Errorf("create return: %w", err)
	}
	return ret, nil
}

func (s *returnService) AddItem(ctx context.Context, returnID uuid.UUID, input ReturnItemInput) (*models.ReturnItem, error) {
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if input.Condition == "" {
		input.Condition = models.ConditionGood
	}
	if !input.Condition.Valid() {
		return nil, fmt.Errorf("%w: unknown condition %q", ErrInvalidInput, input.Condition)
	}
	if _, err := s.productRepo.GetByID(ctx, input.ProductID); err != nil {
		return nil, mapNotFound(err, ErrProductNotFound)
	}
	if input.AllocatedLocationID != nil {
		if _, err := s.locationRepo.GetByID(ctx, *input.AllocatedLocationID); err != nil {
			return nil, mapNotFound(err, ErrLocationNotFound)
		}
	}

	var item *models.ReturnItem
	err := s.ledger.WithLock(ctx, ledger.ReturnKey(returnID), func() error {
		ret, err := s.load(ctx, returnID)
		if err != nil {
			return err
		}
		if !ret.IsOpen() {
			return fmt.Errorf("%w: return %s is %s", ErrInvalidTransition, ret.ReturnNumber, ret.Status)
		}

		restockable := input.Condition.Restockable()
		if input.Restockable != nil {
			restockable = *input.Restockable
		}
		item = &models.ReturnItem{
			ID:                  uuid.New(),
			ReturnID:            ret.ID,
			ProductID:           input.ProductID,
			Quantity:            input.Quantity,
			Condition:           input.Condition,
			Restockable:         restockable,
			AllocatedLocationID: input.AllocatedLocationID,
			Notes:               input.Notes,
		}
		return s.returnRepo.AddItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *returnService) StartInspection(ctx context.Context, returnID uuid.UUID) (*models.ProductReturn, error) {
	var ret *models.ProductReturn
	err := s.ledger.WithLock(ctx, ledger.ReturnKey(returnID), func() error {
		var err error
		ret, err = s.load(ctx, returnID)
		if err != nil {
			return err
		}
		if ret.Status != models.ReturnPending {
			return fmt.Errorf("%w: inspection needs a pending return, %s is %s", ErrInvalidTransition, ret.ReturnNumber, ret.Status)
		}
		ret.Status = models.ReturnInspecting
		return s.returnRepo.UpdateStatus(ctx, ret)
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// SetItemRestockable records the inspection verdict for one item, optionally pinning
// the location it should be shelved on.
func (s *returnService) SetItemRestockable(ctx context.Context, returnID, itemID uuid.UUID, restockable bool, locationID *uuid.UUID) (*models.ReturnItem, error) {
	if locationID != nil {
		if _, err := s.locationRepo.GetByID(ctx, *locationID); err != nil {
			return nil, mapNotFound(err, ErrLocationNotFound)
		}
	}

	var item *models.ReturnItem
	err := s.ledger.WithLock(ctx, ledger.ReturnKey(returnID), func() error {
		ret, err := s.load(ctx, returnID)
		if err != nil {
			return err
		}
		if !ret.IsOpen() {
			return fmt.Errorf("%w: return %s is %s", ErrInvalidTransition, ret.ReturnNumber, ret.Status)
		}
		item = ret.FindItem(itemID)
		if item == nil {
			return ErrReturnItemNotFound
		}
		item.Restockable = restockable
		if locationID != nil {
			item.AllocatedLocationID = locationID
		}
		return s.returnRepo.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// CompleteAndRestock shelves every restockable item that is not yet back in stock and
// completes the return. An item that cannot be placed is reported and skipped.
func (s *returnService) CompleteAndRestock(ctx context.Context, returnID uuid.UUID) (*models.RestockReport, error) {
	var report *models.RestockReport
	err := s.ledger.WithLock(ctx, ledger.ReturnKey(returnID), func() error {
		ret, err := s.load(ctx, returnID)
		if err != nil {
			return err
		}
		if !ret.IsOpen() {
			return fmt.Errorf("%w: return %s is %s", ErrInvalidTransition, ret.ReturnNumber, ret.Status)
		}

		report = &models.RestockReport{Return: ret}
		for _, item := range ret.Items {
			if !item.NeedsRestock() {
				report.Skipped++
				continue
			}
			outcome := s.restockItem(ctx, ret, item)
			if outcome.Success {
				report.Restocked++
			} else {
				report.Failed++
			}
			report.Outcomes = append(report.Outcomes, outcome)
		}

		now := s.now().UTC()
		ret.Status = models.ReturnCompleted
		ret.CompletedAt = &now
		return s.returnRepo.UpdateStatus(ctx, ret)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("return", report.Return.ReturnNumber).
		Int("restocked", report.Restocked).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("return completed")
	return report, nil
}

func (s *returnService) restockItem(ctx context.Context, ret *models.ProductReturn, item *models.ReturnItem) models.RestockOutcome {
	outcome := models.RestockOutcome{ItemID: item.ID, ProductID: item.ProductID, Quantity: item.Quantity}

	req := models.PlacementRequest{
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Kind:      models.MovementReturn,
		Reference: ret.ReturnNumber,
	}
	var (
		placed *models.AllocationResult
		err    error
	)
	if item.AllocatedLocationID != nil {
		placed, err = s.allocator.PlaceSpecific(ctx, req, *item.AllocatedLocationID)
	} else {
		placed, err = s.allocator.PlaceIncoming(ctx, req)
	}
	if err != nil {
		msg := err.Error()
		outcome.Error = &msg
		s.logger.Warn().Err(err).Str("return", ret.ReturnNumber).Str("product_id", item.ProductID.String()).Msg("restock failed for return item")
		return outcome
	}

	locationID := placed.LocationID
	item.Restocked = true
	item.AllocatedLocationID = &locationID
	if err := s.returnRepo.UpdateItem(ctx, item); err != nil {
		s.logger.Error().Err(err).Str("return", ret.ReturnNumber).Str("item_id", item.ID.String()).Msg("stock placed but return item not marked restocked")
	}

	outcome.Success = true
	outcome.LocationID = &locationID
	outcome.LocationCode = placed.LocationCode
	outcome.PreviousQuantity = placed.PreviousQuantity
	outcome.NewQuantity = placed.NewQuantity
	return outcome
}

func (s *returnService) RejectReturn(ctx context.Context, returnID uuid.UUID, notes string) (*models.ProductReturn, error) {
	var ret *models.ProductReturn
	err := s.ledger.WithLock(ctx, ledger.ReturnKey(returnID), func() error {
		var err error
		ret, err = s.load(ctx, returnID)
		if err != nil {
			return err
		}
		if !ret.IsOpen() {
			return fmt.Errorf("%w: return %s is %s", ErrInvalidTransition, ret.ReturnNumber, ret.Status)
		}
		if notes = strings.TrimSpace(notes); notes != "" {
			combined := "Rejection: " + notes
			if ret.Notes != nil && *ret.Notes != "" {
				combined = *ret.Notes + "\n" + combined
			}
			ret.Notes = &combined
		}
		now := s.now().UTC()
		ret.Status = models.ReturnRejected
		ret.CompletedAt = &now
		return s.returnRepo.UpdateStatus(ctx, ret)
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *returnService) GetReturn(ctx context.Context, returnID uuid.UUID) (*models.ProductReturn, error) {
	return s.load(ctx, returnID)
}

func (s *returnService) ListReturns(ctx context.Context, status *models.ReturnStatus, limit, offset int) ([]*models.ProductReturn, error) {
	return s.returnRepo.List(ctx, status, limit, offset)
}

func (s *returnService) load(ctx context.Context, id uuid.UUID) (*models.ProductReturn, error) {
	ret, err := s.returnRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrReturnNotFound)
	}
	return ret, nil
}
