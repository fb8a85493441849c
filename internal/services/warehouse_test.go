package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"stockflow/internal/ledger"
	"stockflow/internal/models"
	"stockflow/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// warehouse wires the real ledger and movement log to mocked catalog repositories
type warehouse struct {
	t         *testing.T
	ctx       context.Context
	products  *MockProductRepository
	locations *MockLocationRepository
	orders    *MockOrderRepository
	pickLists *MockPickListRepository
	ledger    *ledger.Ledger
	moveRepo  *repositories.MemoryMovementRepository
	movements MovementLog
	allocator AllocationService
	byID      map[uuid.UUID]*models.Location
}

func newWarehouse(t *testing.T) *warehouse {
	w := &warehouse{
		t:         t,
		ctx:       context.Background(),
		products:  new(MockProductRepository),
		locations: new(MockLocationRepository),
		orders:    new(MockOrderRepository),
		pickLists: new(MockPickListRepository),
		moveRepo:  repositories.NewMemoryMovementRepository(),
		byID:      make(map[uuid.UUID]*models.Location),
	}
	w.ledger = ledger.New(ledger.NewMemoryStore(), ledger.NewKeyedMutex(), ledger.WithLockTimeout(2*time.Second))
	w.movements = NewMovementLog(w.moveRepo, zerolog.Nop())
	w.allocator = NewAllocationService(w.products, w.locations, w.ledger, w.movements, zerolog.Nop())

	w.locations.On("GetByIDs", mock.Anything, mock.Anything).Return(func(ids []uuid.UUID) []*models.Location {
		var out []*models.Location
		for _, id := range ids {
			if loc, ok := w.byID[id]; ok {
				out = append(out, loc)
			}
		}
		return out
	}, nil).Maybe()
	w.locations.On("ListActive", mock.Anything).Return(func() []*models.Location {
		var out []*models.Location
		for _, loc := range w.byID {
			if loc.IsActive {
				out = append(out, loc)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
		return out
	}, nil).Maybe()
	return w
}

func (w *warehouse) addProduct(sku, barcode string, minStock int) *models.Product {
	p := &models.Product{ID: uuid.New(), SKU: sku, Name: sku, Barcode: barcode, MinStockLevel: minStock}
	w.products.On("GetByID", mock.Anything, p.ID).Return(p, nil).Maybe()
	w.products.On("GetByBarcode", mock.Anything, barcode).Return(p, nil).Maybe()
	return p
}

func (w *warehouse) addLocation(code, aisle, rack, level string, capacity int) *models.Location {
	loc := &models.Location{ID: uuid.New(), Code: code, Aisle: aisle, Rack: rack, Level: level, MaxCapacity: capacity, IsActive: true}
	w.byID[loc.ID] = loc
	w.locations.On("GetByID", mock.Anything, loc.ID).Return(loc, nil).Maybe()
	return loc
}

func (w *warehouse) stock(p *models.Product, loc *models.Location, qty int) {
	_, err := w.ledger.Add(w.ctx, p.ID, loc.ID, qty)
	require.NoError(w.t, err)
}

func (w *warehouse) reserve(p *models.Product, loc *models.Location, qty int) {
	ok, err := w.ledger.Reserve(w.ctx, p.ID, loc.ID, qty)
	require.NoError(w.t, err)
	require.True(w.t, ok)
}

func (w *warehouse) entry(p *models.Product, loc *models.Location) models.LedgerEntry {
	e, err := w.ledger.GetEntry(w.ctx, p.ID, loc.ID)
	require.NoError(w.t, err)
	if e == nil {
		return models.LedgerEntry{ProductID: p.ID, LocationID: loc.ID}
	}
	return *e
}

func (w *warehouse) occupancy(loc *models.Location) int {
	n, err := w.ledger.Occupancy(w.ctx, loc.ID)
	require.NoError(w.t, err)
	return n
}

func (w *warehouse) movementsOf(kind models.MovementKind) []*models.MovementRecord {
	list, err := w.moveRepo.List(w.ctx, models.MovementFilter{Kind: &kind, Limit: 500})
	require.NoError(w.t, err)
	return list
}

// pendingOrder registers a pending order with one line per product/quantity pair
func (w *warehouse) pendingOrder(lines map[*models.Product]int) *models.Order {
	order := &models.Order{ID: uuid.New(), OrderNumber: "SO-" + uuid.NewString()[:8], Status: models.OrderPending, CreatedAt: time.Now()}
	n := 1
	for p, qty := range lines {
		order.Items = append(order.Items, &models.OrderItem{ID: uuid.New(), OrderID: order.ID, LineNo: n, ProductID: p.ID, Quantity: qty})
		n++
	}
	w.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil).Maybe()
	return order
}

// pickItem builds a pick list item at loc
func pickItem(p *models.Product, loc *models.Location, requested, picked int) *models.PickPlanItem {
	item := &models.PickPlanItem{
		ID:                uuid.New(),
		ProductID:         p.ID,
		LocationID:        loc.ID,
		LocationCode:      loc.Code,
		LocationLabel:     loc.FullLocation(),
		Aisle:             loc.Aisle,
		Rack:              loc.Rack,
		Level:             loc.Level,
		RequestedQuantity: requested,
		State:             models.PickItemPending,
	}
	if picked > 0 {
		item.RecordPick(picked, "seed", time.Now())
	}
	return item
}

// pickList registers a pick list for orderID whose repository writes always succeed
func (w *warehouse) pickList(orderID uuid.UUID, status models.PickListStatus, items ...*models.PickPlanItem) *models.PickList {
	pl := &models.PickList{
		ID:             uuid.New(),
		PickListNumber: models.NewPickListNumber(time.Now()),
		OrderID:        orderID,
		Status:         status,
		Items:          items,
		CreatedAt:      time.Now(),
	}
	for i, item := range items {
		item.PickListID = pl.ID
		item.Sequence = i + 1
	}
	w.pickLists.On("GetByID", mock.Anything, pl.ID).Return(pl, nil).Maybe()
	return pl
}
