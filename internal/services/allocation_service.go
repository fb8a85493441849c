package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stockflow/internal/ledger"
	"stockflow/internal/models"
	"stockflow/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AllocationService decides where incoming stock is shelved and where outgoing stock is taken from.
type AllocationService interface {
	PlaceIncoming(ctx context.Context, req models.PlacementRequest) (*models.AllocationResult, error)
	PlaceSpecific(ctx context.Context, req models.PlacementRequest, locationID uuid.UUID) (*models.AllocationResult, error)
	PlanWithdrawal(ctx context.Context, productID uuid.UUID, quantity int) (*models.WithdrawalPlan, error)
	SuggestLocation(ctx context.Context, productID uuid.UUID, quantity int) (*models.LocationSuggestion, error)

	// Goods receipt
	AllocateBatch(ctx context.Context, requests []models.PlacementRequest) (*models.BatchResult, error)
}

type allocationService struct {
	productRepo  repositories.ProductRepository
	locationRepo repositories.LocationRepository
	ledger       *ledger.Ledger
	movements    MovementLog
	now          func() time.Time
	logger       zerolog.Logger
}

func NewAllocationService(productRepo repositories.ProductRepository, locationRepo repositories.LocationRepository,
	stockLedger *ledger.Ledger, movements MovementLog, logger zerolog.Logger) AllocationService {
	return &allocationService{
		productRepo:  productRepo,
		locationRepo: locationRepo,
		ledger:       stockLedger,
		movements:    movements,
		now:          time.Now,
		logger:       logger,
	}
}

type rankedLocation struct {
	location *models.Location
	free     int
	held     int // quantity of the product already at this location
}

func (s *allocationService) validatePlacement(ctx context.Context, req *models.PlacementRequest) error {
	if req.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if req.Kind == "" {
		req.Kind = models.MovementReceipt
	}
	if !req.Kind.Valid() {
		return fmt.Errorf("%w: unknown movement kind %q", ErrInvalidInput, req.Kind)
	}
	if _, err := s.productRepo.GetByID(ctx, req.ProductID); err != nil {
		return mapNotFound(err, ErrProductNotFound)
	}
	return nil
}

// PlaceIncoming prefers consolidating onto a location that already holds the product,
// then falls back to the active location with the most free capacity. It never splits.
func (s *allocationService) PlaceIncoming(ctx context.Context, req models.PlacementRequest) (*models.AllocationResult, error) {
	if err := s.validatePlacement(ctx, &req); err != nil {
		return nil, err
	}

	holders, err := s.existingHolders(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	for _, loc := range holders {
		result, _, err := s.tryPlace(ctx, loc.location, req)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}

	ranked, err := s.rankByFreeCapacity(ctx)
	if err != nil {
		return nil, err
	}
	for _, candidate := range ranked {
		if candidate.free < req.Quantity {
			break
		}
		result, _, err := s.tryPlace(ctx, candidate.location, req)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}

	return nil, fmt.Errorf("%w: %d units of product %s", ErrNoLocationAvailable, req.Quantity, req.ProductID)
}

func (s *allocationService) PlaceSpecific(ctx context.Context, req models.PlacementRequest, locationID uuid.UUID) (*models.AllocationResult, error) {
	if err := s.validatePlacement(ctx, &req); err != nil {
		return nil, err
	}
	loc, err := s.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		return nil, mapNotFound(err, ErrLocationNotFound)
	}
	if !loc.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrLocationInactive, loc.Code)
	}

	result, free, err := s.tryPlace(ctx, loc, req)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &CapacityError{LocationID: loc.ID, Available: free, Requested: req.Quantity}
	}
	return result, nil
}

// tryPlace re-checks capacity and adds the stock while holding the location lock.
// A nil result with nil error means the location no longer has room.
func (s *allocationService) tryPlace(ctx context.Context, loc *models.Location, req models.PlacementRequest) (*models.AllocationResult, int, error) {
	var result *models.AllocationResult
	free := 0

	err := s.ledger.WithLock(ctx, ledger.LocationKey(loc.ID), func() error {
		occupancy, err := s.ledger.Occupancy(ctx, loc.ID)
		if err != nil {
			return err
		}
		free = loc.AvailableCapacity(occupancy)
		if free < req.Quantity {
			return nil
		}

		change, err := s.ledger.Add(ctx, req.ProductID, loc.ID, req.Quantity)
		if err != nil {
			return err
		}

		locationID := loc.ID
		movement := s.movements.Record(ctx, &models.MovementRecord{
			ProductID:        req.ProductID,
			ToLocationID:     &locationID,
			Kind:             req.Kind,
			Quantity:         req.Quantity,
			PreviousQuantity: change.PreviousQuantity,
			NewQuantity:      change.NewQuantity,
			Reference:        req.Reference,
		})

		action := models.ActionAddedToExisting
		if change.Created {
			action = models.ActionCreatedNew
		}
		result = &models.AllocationResult{
			Success:          true,
			Action:           action,
			ProductID:        req.ProductID,
			LocationID:       loc.ID,
			LocationCode:     loc.Code,
			LocationLabel:    loc.FullLocation(),
			PreviousQuantity: change.PreviousQuantity,
			AddedQuantity:    req.Quantity,
			NewQuantity:      change.NewQuantity,
			MovementID:       movement.ID,
		}
		free -= req.Quantity
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if result != nil {
		s.logger.Debug().
			Str("product_id", req.ProductID.String()).
			Str("location", loc.Code).
			Int("quantity", req.Quantity).
			Str("kind", string(req.Kind)).
			Msg("stock placed")
	}
	return result, free, nil
}

// existingHolders returns active locations already holding the product, by code
func (s *allocationService) existingHolders(ctx context.Context, productID uuid.UUID) ([]rankedLocation, error) {
	entries, err := s.ledger.EntriesForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	held := make(map[uuid.UUID]int, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		held[e.LocationID] = e.Quantity
		ids = append(ids, e.LocationID)
	}

	locations, err := s.locationRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var holders []rankedLocation
	for _, loc := range locations {
		if _, ok := held[loc.ID]; !ok || !loc.IsActive {
			continue
		}
		occupancy, err := s.ledger.Occupancy(ctx, loc.ID)
		if err != nil {
			return nil, err
		}
		holders = append(holders, rankedLocation{location: loc, free: loc.AvailableCapacity(occupancy), held: held[loc.ID]})
	}
	sort.SliceStable(holders, func(i, j int) bool {
		return holders[i].location.Code < holders[j].location.Code
	})
	return holders, nil
}

// rankByFreeCapacity orders active locations by free capacity descending, code ascending
func (s *allocationService) rankByFreeCapacity(ctx context.Context) ([]rankedLocation, error) {
	locations, err := s.locationRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]rankedLocation, 0, len(locations))
	for _, loc := range locations {
		occupancy, err := s.ledger.Occupancy(ctx, loc.ID)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, rankedLocation{location: loc, free: loc.AvailableCapacity(occupancy)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].free != ranked[j].free {
			return ranked[i].free > ranked[j].free
		}
		return ranked[i].location.Code < ranked[j].location.Code
	})
	return ranked, nil
}

func (s *allocationService) SuggestLocation(ctx context.Context, productID uuid.UUID, quantity int) (*models.LocationSuggestion, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		return nil, mapNotFound(err, ErrProductNotFound)
	}

	holders, err := s.existingHolders(ctx, productID)
	if err != nil {
		return nil, err
	}
	for _, h := range holders {
		if h.free >= quantity {
			return &models.LocationSuggestion{
				Location:          h.location,
				Reason:            models.ReasonExistingLocation,
				AvailableCapacity: h.free,
				CurrentQuantity:   h.held,
			}, nil
		}
	}

	ranked, err := s.rankByFreeCapacity(ctx)
	if err != nil {
		return nil, err
	}
	if len(ranked) > 0 && ranked[0].free >= quantity {
		return &models.LocationSuggestion{
			Location:          ranked[0].location,
			Reason:            models.ReasonBestAvailable,
			AvailableCapacity: ranked[0].free,
		}, nil
	}
	return nil, fmt.Errorf("%w: %d units of product %s", ErrNoLocationAvailable, quantity, productID)
}

func (s *allocationService) PlanWithdrawal(ctx context.Context, productID uuid.UUID, quantity int) (*models.WithdrawalPlan, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		return nil, mapNotFound(err, ErrProductNotFound)
	}
	return s.planWithdrawal(ctx, productID, quantity)
}

// planWithdrawal drains locations greedily in walking order. The plan is short
// when available stock does not cover quantity.
func (s *allocationService) planWithdrawal(ctx context.Context, productID uuid.UUID, quantity int) (*models.WithdrawalPlan, error) {
	plan := &models.WithdrawalPlan{ProductID: productID, Requested: quantity}

	entries, err := s.ledger.EntriesForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	available := make(map[uuid.UUID]int, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		if e.Available() > 0 {
			available[e.LocationID] = e.Available()
			ids = append(ids, e.LocationID)
		}
	}

	locations, err := s.locationRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(locations, func(i, j int) bool {
		return models.CompareCoordinates(locations[i], locations[j]) < 0
	})

	remaining := quantity
	for _, loc := range locations {
		if remaining == 0 {
			break
		}
		take := min(remaining, available[loc.ID])
		if take <= 0 {
			continue
		}
		plan.Legs = append(plan.Legs, models.WithdrawalLeg{
			LocationID:    loc.ID,
			LocationCode:  loc.Code,
			LocationLabel: loc.FullLocation(),
			Aisle:         loc.Aisle,
			Rack:          loc.Rack,
			Level:         loc.Level,
			Quantity:      take,
		})
		remaining -= take
	}

	plan.Planned = quantity - remaining
	plan.Shortfall = remaining
	return plan, nil
}

func (s *allocationService) AllocateBatch(ctx context.Context, requests []models.PlacementRequest) (*models.BatchResult, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: no lines to allocate", ErrInvalidInput)
	}

	batch := models.NewBatchResult(len(requests), s.now())
	for i, req := range requests {
		item := models.BatchItem{ItemIndex: i, ItemID: req.ProductID.String()}
		result, err := s.PlaceIncoming(ctx, req)
		if err != nil {
			s.logger.Warn().Err(err).Int("line", i).Str("product_id", req.ProductID.String()).Msg("batch allocation line failed")
			batch.Fail(item, err)
			continue
		}
		item.Allocation = result
		batch.Succeed(item)
	}
	batch.Finish(s.now())

	s.logger.Info().
		Str("operation_id", batch.OperationID).
		Int("processed", batch.ProcessedItems).
		Int("failed", batch.FailedItems).
		Msg("batch allocation finished")
	return batch, nil
}
