package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"stockflow/internal/caching"
	"stockflow/internal/ledger"
	"stockflow/internal/models"
	"stockflow/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type AdjustStockInput struct {
	ProductID   uuid.UUID `json:"product_id"`
	LocationID  uuid.UUID `json:"location_id"`
	NewQuantity int       `json:"new_quantity"`
	Reason      string    `json:"reason"`
}

type TransferStockInput struct {
	ProductID      uuid.UUID `json:"product_id"`
	FromLocationID uuid.UUID `json:"from_location_id"`
	ToLocationID   uuid.UUID `json:"to_location_id"`
	Quantity       int       `json:"quantity"`
	Reference      string    `json:"reference"`
}

// StockService serves ledger snapshots and manual stock corrections.
type StockService interface {
	ProductStock(ctx context.Context, productID uuid.UUID) (*models.ProductStockSnapshot, error)
	LocationStock(ctx context.Context, locationID uuid.UUID) (*models.LocationStockSnapshot, error)
	AdjustStock(ctx context.Context, input AdjustStockInput) (*models.AdjustmentResult, error)
	TransferStock(ctx context.Context, input TransferStockInput) (*models.TransferResult, error)
	Movements(ctx context.Context, filter models.MovementFilter) ([]*models.MovementRecord, error)
	DailyMovementSummary(ctx context.Context, from, to time.Time) ([]*models.DailyMovementSummary, error)
}

type stockService struct {
	productRepo  repositories.ProductRepository
	locationRepo repositories.LocationRepository
	ledger       *ledger.Ledger
	movements    MovementLog
	cache        caching.CacheService
	cacheTTL     time.Duration
	now          func() time.Time
	logger       zerolog.Logger

	// generations counts ledger changes per product so a snapshot built across a
	// change is never written back to the cache
	genMu       sync.Mutex
	generations map[uuid.UUID]uint64
}

// NewStockService registers a ledger observer that drops the cached snapshot of any
// product whose stock changes.
func NewStockService(productRepo repositories.ProductRepository, locationRepo repositories.LocationRepository,
	stockLedger *ledger.Ledger, movements MovementLog, cache caching.CacheService, cacheTTL time.Duration, logger zerolog.Logger) StockService {
	s := &stockService{
		productRepo:  productRepo,
		locationRepo: locationRepo,
		ledger:       stockLedger,
		movements:    movements,
		cache:        cache,
		cacheTTL:     cacheTTL,
		now:          time.Now,
		logger:       logger,
		generations:  make(map[uuid.UUID]uint64),
	}
	stockLedger.AddObserver(s.invalidate)
	return s
}

func (s *stockService) generation(productID uuid.UUID) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[productID]
}

func (s *stockService) invalidate(ctx context.Context, entry models.LedgerEntry) {
	s.genMu.Lock()
	s.generations[entry.ProductID]++
	s.genMu.Unlock()
	if err := s.cache.DeleteProductStock(ctx, entry.ProductID); err != nil {
		s.logger.Warn().Err(err).Str("product_id", entry.ProductID.String()).Msg("failed to invalidate stock cache")
	}
}

func (s *stockService) ProductStock(ctx context.Context, productID uuid.UUID) (*models.ProductStockSnapshot, error) {
	gen := s.generation(productID)
	if cached, err := s.cache.GetProductStock(ctx, productID); err != nil {
		s.logger.Warn().Err(err).Str("product_id", productID.String()).Msg("stock cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, mapNotFound(err, ErrProductNotFound)
	}
	entries, err := s.ledger.EntriesForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	locations, err := s.locationsByID(ctx, entries)
	if err != nil {
		return nil, err
	}

	snapshot := &models.ProductStockSnapshot{
		ProductID:     product.ID,
		SKU:           product.SKU,
		MinStockLevel: product.MinStockLevel,
		GeneratedAt:   s.now().UTC(),
	}
	for _, e := range entries {
		line := stockLine(e, locations[e.LocationID])
		snapshot.Locations = append(snapshot.Locations, line)
		snapshot.TotalQuantity += e.Quantity
		snapshot.TotalReserved += e.ReservedQuantity
	}
	sort.Slice(snapshot.Locations, func(i, j int) bool {
		return snapshot.Locations[i].LocationCode < snapshot.Locations[j].LocationCode
	})
	snapshot.TotalAvailable = snapshot.TotalQuantity - snapshot.TotalReserved
	snapshot.IsLowStock = product.IsLowStock(snapshot.TotalQuantity)

	s.fillCache(ctx, snapshot, gen)
	return snapshot, nil
}

// fillCache stores a snapshot built at generation gen. A change that lands before the
// write skips it; one that lands during the write deletes the entry again.
func (s *stockService) fillCache(ctx context.Context, snapshot *models.ProductStockSnapshot, gen uint64) {
	log := s.logger.With().Str("product_id", snapshot.ProductID.String()).Logger()
	if s.generation(snapshot.ProductID) != gen {
		log.Debug().Msg("stock changed while building snapshot, not caching")
		return
	}
	if err := s.cache.SetProductStock(ctx, snapshot, s.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("stock cache write failed")
		return
	}
	if s.generation(snapshot.ProductID) != gen {
		if err := s.cache.DeleteProductStock(ctx, snapshot.ProductID); err != nil {
			log.Warn().Err(err).Msg("failed to invalidate stock cache")
		}
	}
}

func (s *stockService) locationsByID(ctx context.Context, entries []*models.LedgerEntry) (map[uuid.UUID]*models.Location, error) {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.LocationID)
	}
	locations, err := s.locationRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Location, len(locations))
	for _, loc := range locations {
		byID[loc.ID] = loc
	}
	return byID, nil
}

func stockLine(e *models.LedgerEntry, loc *models.Location) models.LocationStockLine {
	line := models.LocationStockLine{
		ProductID:  e.ProductID,
		LocationID: e.LocationID,
		Quantity:   e.Quantity,
		Reserved:   e.ReservedQuantity,
		Available:  e.Available(),
		UpdatedAt:  e.UpdatedAt,
	}
	if loc != nil {
		line.LocationCode = loc.Code
		line.LocationLabel = loc.FullLocation()
	}
	return line
}

func (s *stockService) LocationStock(ctx context.Context, locationID uuid.UUID) (*models.LocationStockSnapshot, error) {
	loc, err := s.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		return nil, mapNotFound(err, ErrLocationNotFound)
	}
	entries, err := s.ledger.EntriesAtLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	snapshot := &models.LocationStockSnapshot{Location: loc}
	for _, e := range entries {
		snapshot.Lines = append(snapshot.Lines, stockLine(e, loc))
		snapshot.Occupancy += e.Quantity
	}
	snapshot.AvailableCapacity = loc.AvailableCapacity(snapshot.Occupancy)
	return snapshot, nil
}

// AdjustStock overwrites the counted quantity at a location. Capacity is not enforced
// since the count reflects what is physically on the shelf.
func (s *stockService) AdjustStock(ctx context.Context, input AdjustStockInput) (*models.AdjustmentResult, error) {
	if input.NewQuantity < 0 {
		return nil, fmt.Errorf("%w: new quantity cannot be negative", ErrInvalidQuantity)
	}
	if _, err := s.productRepo.GetByID(ctx, input.ProductID); err != nil {
		return nil, mapNotFound(err, ErrProductNotFound)
	}
	if _, err := s.locationRepo.GetByID(ctx, input.LocationID); err != nil {
		return nil, mapNotFound(err, ErrLocationNotFound)
	}

	var change ledger.Change
	err := s.ledger.WithLock(ctx, ledger.LocationKey(input.LocationID), func() error {
		var err error
		change, err = s.ledger.SetAbsolute(ctx, input.ProductID, input.LocationID, input.NewQuantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	diff := change.Difference()
	if diff != 0 {
		locationID := input.LocationID
		movement := &models.MovementRecord{
			ProductID:        input.ProductID,
			Kind:             models.MovementAdjustment,
			Quantity:         abs(diff),
			PreviousQuantity: change.PreviousQuantity,
			NewQuantity:      change.NewQuantity,
			Reference:        "adjustment",
		}
		if diff > 0 {
			movement.ToLocationID = &locationID
		} else {
			movement.FromLocationID = &locationID
		}
		if reason := strings.TrimSpace(input.Reason); reason != "" {
			movement.Notes = &reason
		}
		s.movements.Record(ctx, movement)
	}

	s.logger.Info().
		Str("product_id", input.ProductID.String()).
		Str("location_id", input.LocationID.String()).
		Int("previous", change.PreviousQuantity).
		Int("new", change.NewQuantity).
		Msg("stock adjusted")

	return &models.AdjustmentResult{
		ProductID:        input.ProductID,
		LocationID:       input.LocationID,
		PreviousQuantity: change.PreviousQuantity,
		NewQuantity:      change.NewQuantity,
		Difference:       diff,
		ReservedClamped:  change.NewReserved < change.PreviousReserved,
	}, nil
}

// TransferStock moves unreserved stock between two shelves. The destination lock is
// held across the capacity check, the source withdrawal and the destination add.
func (s *stockService) TransferStock(ctx context.Context, input TransferStockInput) (*models.TransferResult, error) {
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if input.FromLocationID == input.ToLocationID {
		return nil, fmt.Errorf("%w: source and destination are the same location", ErrInvalidInput)
	}
	if _, err := s.productRepo.GetByID(ctx, input.ProductID); err != nil {
		return nil, mapNotFound(err, ErrProductNotFound)
	}
	from, err := s.locationRepo.GetByID(ctx, input.FromLocationID)
	if err != nil {
		return nil, mapNotFound(err, ErrLocationNotFound)
	}
	to, err := s.locationRepo.GetByID(ctx, input.ToLocationID)
	if err != nil {
		return nil, mapNotFound(err, ErrLocationNotFound)
	}
	if !to.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrLocationInactive, to.Code)
	}

	result := &models.TransferResult{
		ProductID:      input.ProductID,
		FromLocationID: from.ID,
		ToLocationID:   to.ID,
		Quantity:       input.Quantity,
	}
	err = s.ledger.WithLock(ctx, ledger.LocationKey(to.ID), func() error {
		occupancy, err := s.ledger.Occupancy(ctx, to.ID)
		if err != nil {
			return err
		}
		if free := to.AvailableCapacity(occupancy); free < input.Quantity {
			return &CapacityError{LocationID: to.ID, Available: free, Requested: input.Quantity}
		}

		out, err := s.ledger.Withdraw(ctx, input.ProductID, from.ID, input.Quantity)
		switch {
		case errors.Is(err, ledger.ErrInsufficientStock), errors.Is(err, ledger.ErrEntryNotFound):
			return fmt.Errorf("%w at %s: %v", ErrInsufficientStock, from.Code, err)
		case err != nil:
			return err
		}

		in, err := s.ledger.Add(ctx, input.ProductID, to.ID, input.Quantity)
		if err != nil {
			if _, undoErr := s.ledger.Add(ctx, input.ProductID, from.ID, input.Quantity); undoErr != nil {
				s.logger.Error().Err(undoErr).Str("product_id", input.ProductID.String()).Str("location", from.Code).
					Int("quantity", input.Quantity).Msg("failed to put back stock after aborted transfer")
			}
			return err
		}

		result.FromPreviousQuantity = out.PreviousQuantity
		result.FromNewQuantity = out.NewQuantity
		result.ToPreviousQuantity = in.PreviousQuantity
		result.ToNewQuantity = in.NewQuantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	fromID, toID := from.ID, to.ID
	s.movements.Record(ctx, &models.MovementRecord{
		ProductID:        input.ProductID,
		FromLocationID:   &fromID,
		ToLocationID:     &toID,
		Kind:             models.MovementTransfer,
		Quantity:         input.Quantity,
		PreviousQuantity: result.FromPreviousQuantity,
		NewQuantity:      result.FromNewQuantity,
		Reference:        input.Reference,
	})
	return result, nil
}

func (s *stockService) Movements(ctx context.Context, filter models.MovementFilter) ([]*models.MovementRecord, error) {
	if filter.Kind != nil && !filter.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown movement kind %q", ErrInvalidInput, *filter.Kind)
	}
	return s.movements.List(ctx, filter)
}

func (s *stockService) DailyMovementSummary(ctx context.Context, from, to time.Time) ([]*models.DailyMovementSummary, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("%w: range end must be after start", ErrInvalidInput)
	}
	return s.movements.DailySummary(ctx, from, to)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
