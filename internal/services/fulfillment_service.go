package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"stockflow/internal/ledger"
	"stockflow/internal/models"
	"stockflow/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxReservationPasses bounds re-planning when concurrent planners win a reservation race
const maxReservationPasses = 3

// FulfillmentService turns pending orders into reserved pick lists.
type FulfillmentService interface {
	GeneratePickList(ctx context.Context, orderID uuid.UUID) (*models.PlanResult, error)
	GeneratePickListsBatch(ctx context.Context, orderIDs []uuid.UUID) (*models.BatchResult, error)
	GetPickList(ctx context.Context, id uuid.UUID) (*models.PickList, error)
	GetPickListByNumber(ctx context.Context, number string) (*models.PickList, error)
	ListPickLists(ctx context.Context, status *models.PickListStatus, limit, offset int) ([]*models.PickList, error)
	PickingPath(ctx context.Context, id uuid.UUID) ([]*models.PickPlanItem, error)
}

type fulfillmentService struct {
	orderRepo    repositories.OrderRepository
	pickListRepo repositories.PickListRepository
	allocator    AllocationService
	ledger       *ledger.Ledger
	now          func() time.Time
	logger       zerolog.Logger
}

func NewFulfillmentService(orderRepo repositories.OrderRepository, pickListRepo repositories.PickListRepository,
	allocator AllocationService, stockLedger *ledger.Ledger, logger zerolog.Logger) FulfillmentService {
	return &fulfillmentService{
		orderRepo:    orderRepo,
		pickListRepo: pickListRepo,
		allocator:    allocator,
		ledger:       stockLedger,
		now:          time.Now,
		logger:       logger,
	}
}

// GeneratePickList reserves stock for every line of a pending order and records
// the reservations as a pick list. Lines that cannot be covered are reported as
// unmet; when nothing at all could be reserved no pick list is created and the
// order stays pending.
func (s *fulfillmentService) GeneratePickList(ctx context.Context, orderID uuid.UUID) (*models.PlanResult, error) {
	var result *models.PlanResult
	err := s.ledger.WithLock(ctx, ledger.OrderKey(orderID), func() error {
		order, err := s.orderRepo.GetByID(ctx, orderID)
		if err != nil {
			return mapNotFound(err, ErrOrderNotFound)
		}

		existing, err := s.pickListRepo.GetActiveByOrderID(ctx, orderID)
		switch {
		case err == nil && existing != nil:
			s.reconcileOrderStatus(ctx, order, existing)
			return fmt.Errorf("%w: %s", ErrPickListExists, existing.PickListNumber)
		case err != nil && !errors.Is(err, repositories.ErrNotFound):
			return err
		}

		if order.Status != models.OrderPending {
			return fmt.Errorf("%w: order %s is %s", ErrInvalidTransition, order.OrderNumber, order.Status)
		}
		if len(order.Items) == 0 {
			return fmt.Errorf("%w: order %s has no lines", ErrInvalidInput, order.OrderNumber)
		}

		result, err = s.planOrder(ctx, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *fulfillmentService) planOrder(ctx context.Context, order *models.Order) (*models.PlanResult, error) {
	now := s.now().UTC()
	pickList := &models.PickList{
		ID:             uuid.New(),
		PickListNumber: models.NewPickListNumber(now),
		OrderID:        order.ID,
		Status:         models.PickListPending,
		CreatedAt:      now,
	}
	result := &models.PlanResult{}

	for _, line := range order.Items {
		items, err := s.reserveLine(ctx, line.ProductID, line.Quantity)
		pickList.Items = append(pickList.Items, items...)
		if err != nil {
			s.releaseAll(ctx, pickList.Items)
			return nil, fmt.Errorf("plan order %s: %w", order.OrderNumber, err)
		}

		reserved := 0
		for _, item := range items {
			reserved += item.RequestedQuantity
		}
		lp := models.LinePlan{
			ProductID: line.ProductID,
			Requested: line.Quantity,
			Reserved:  reserved,
			Unmet:     line.Quantity - reserved,
		}
		result.Lines = append(result.Lines, lp)
		result.TotalUnmet += lp.Unmet
	}

	if len(pickList.Items) == 0 {
		s.logger.Warn().Str("order", order.OrderNumber).Int("unmet", result.TotalUnmet).Msg("no stock available for order, pick list not created")
		return result, nil
	}

	for i, item := range pickList.Items {
		item.PickListID = pickList.ID
		item.Sequence = i + 1
	}

	if err := s.pickListRepo.Create(ctx, pickList); err != nil {
		s.releaseAll(ctx, pickList.Items)
		return nil, fmt.Errorf("create pick list: %w", err)
	}
	if err := s.orderRepo.UpdateStatus(ctx, order.ID, models.OrderProcessing); err != nil {
		// the pick list is saved and holds its reservations; the next generate call repairs the order
		s.logger.Error().Err(err).
			Str("order", order.OrderNumber).
			Str("pick_list", pickList.PickListNumber).
			Msg("pick list saved but order status update failed")
		return nil, fmt.Errorf("update order status for pick list %s: %w", pickList.PickListNumber, err)
	}
	result.PickList = pickList

	s.logger.Info().
		Str("order", order.OrderNumber).
		Str("pick_list", pickList.PickListNumber).
		Int("items", len(pickList.Items)).
		Int("unmet", result.TotalUnmet).
		Msg("pick list generated")
	return result, nil
}

// reconcileOrderStatus moves a pending order on to match its open pick list. This
// happens when a status write failed after the pick list was saved.
func (s *fulfillmentService) reconcileOrderStatus(ctx context.Context, order *models.Order, pl *models.PickList) {
	if order.Status != models.OrderPending {
		return
	}
	var target models.OrderStatus
	switch pl.Status {
	case models.PickListPending:
		target = models.OrderProcessing
	case models.PickListInProgress:
		target = models.OrderPicking
	default:
		return
	}
	log := s.logger.With().Str("order", order.OrderNumber).Str("pick_list", pl.PickListNumber).Str("status", string(target)).Logger()
	if err := s.orderRepo.UpdateStatus(ctx, order.ID, target); err != nil {
		log.Error().Err(err).Msg("failed to reconcile order status with open pick list")
		return
	}
	order.Status = target
	log.Warn().Msg("order status reconciled with open pick list")
}

// reserveLine plans and reserves one order line. A leg whose reservation is lost to a
// concurrent planner is skipped and the remainder planned again on the next pass.
func (s *fulfillmentService) reserveLine(ctx context.Context, productID uuid.UUID, quantity int) ([]*models.PickPlanItem, error) {
	var items []*models.PickPlanItem
	byLocation := make(map[uuid.UUID]*models.PickPlanItem)
	remaining := quantity

	for pass := 0; pass < maxReservationPasses && remaining > 0; pass++ {
		plan, err := s.allocator.PlanWithdrawal(ctx, productID, remaining)
		if err != nil {
			return items, err
		}

		contended := false
		for _, leg := range plan.Legs {
			ok, err := s.ledger.Reserve(ctx, productID, leg.LocationID, leg.Quantity)
			if err != nil {
				return items, err
			}
			if !ok {
				contended = true
				continue
			}
			remaining -= leg.Quantity

			if item, seen := byLocation[leg.LocationID]; seen {
				item.RequestedQuantity += leg.Quantity
				continue
			}
			item := &models.PickPlanItem{
				ID:                uuid.New(),
				ProductID:         productID,
				LocationID:        leg.LocationID,
				LocationCode:      leg.LocationCode,
				LocationLabel:     leg.LocationLabel,
				Aisle:             leg.Aisle,
				Rack:              leg.Rack,
				Level:             leg.Level,
				RequestedQuantity: leg.Quantity,
				State:             models.PickItemPending,
			}
			byLocation[leg.LocationID] = item
			items = append(items, item)
		}
		if !contended {
			break
		}
		s.logger.Debug().Str("product_id", productID.String()).Int("pass", pass+1).Int("remaining", remaining).Msg("reservation contended, re-planning")
	}
	return items, nil
}

// releaseAll hands back reservations taken by an aborted planning run
func (s *fulfillmentService) releaseAll(ctx context.Context, items []*models.PickPlanItem) {
	for _, item := range items {
		if _, err := s.ledger.Release(ctx, item.ProductID, item.LocationID, item.RequestedQuantity); err != nil {
			s.logger.Error().Err(err).
				Str("product_id", item.ProductID.String()).
				Str("location", item.LocationCode).
				Int("quantity", item.RequestedQuantity).
				Msg("failed to release reservation of aborted plan")
		}
	}
}

// GeneratePickListsBatch plans the given orders, or every pending order in submission
// order when none are given. Each order succeeds or fails on its own.
func (s *fulfillmentService) GeneratePickListsBatch(ctx context.Context, orderIDs []uuid.UUID) (*models.BatchResult, error) {
	if len(orderIDs) == 0 {
		pending, err := s.orderRepo.ListByStatus(ctx, models.OrderPending, 500)
		if err != nil {
			return nil, err
		}
		for _, o := range pending {
			orderIDs = append(orderIDs, o.ID)
		}
	}

	batch := models.NewBatchResult(len(orderIDs), s.now())
	for i, id := range orderIDs {
		item := models.BatchItem{ItemIndex: i, ItemID: id.String()}
		plan, err := s.GeneratePickList(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("order_id", id.String()).Msg("batch planning failed for order")
			batch.Fail(item, err)
			continue
		}
		item.Plan = plan
		batch.Succeed(item)
	}
	batch.Finish(s.now())
	return batch, nil
}

func (s *fulfillmentService) GetPickList(ctx context.Context, id uuid.UUID) (*models.PickList, error) {
	pl, err := s.pickListRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrPickListNotFound)
	}
	return pl, nil
}

func (s *fulfillmentService) GetPickListByNumber(ctx context.Context, number string) (*models.PickList, error) {
	pl, err := s.pickListRepo.GetByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, mapNotFound(err, ErrPickListNotFound)
	}
	return pl, nil
}

func (s *fulfillmentService) ListPickLists(ctx context.Context, status *models.PickListStatus, limit, offset int) ([]*models.PickList, error) {
	return s.pickListRepo.List(ctx, status, limit, offset)
}

// PickingPath returns the list's items in walking order: aisle, rack, level.
func (s *fulfillmentService) PickingPath(ctx context.Context, id uuid.UUID) ([]*models.PickPlanItem, error) {
	pl, err := s.GetPickList(ctx, id)
	if err != nil {
		return nil, err
	}
	path := make([]*models.PickPlanItem, len(pl.Items))
	copy(path, pl.Items)
	sort.SliceStable(path, func(i, j int) bool {
		a, b := path[i], path[j]
		if a.Aisle != b.Aisle {
			return a.Aisle < b.Aisle
		}
		if a.Rack != b.Rack {
			return a.Rack < b.Rack
		}
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		return a.Sequence < b.Sequence
	})
	return path, nil
}
