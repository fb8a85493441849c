package services

import (
	"errors"
	"sync"
	"testing"

	"stockflow/internal/models"
	"stockflow/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type FulfillmentServiceTestSuite struct {
	suite.Suite
	w       *warehouse
	service FulfillmentService
	product *models.Product
	near    *models.Location
	far     *models.Location
}

func (suite *FulfillmentServiceTestSuite) SetupTest() {
	suite.w = newWarehouse(suite.T())
	suite.service = NewFulfillmentService(suite.w.orders, suite.w.pickLists, suite.w.allocator, suite.w.ledger, zerolog.Nop())
	suite.product = suite.w.addProduct("SKU-1", "4006381333931", 0)
	suite.near = suite.w.addLocation("A-01", "A", "01", "1", 100)
	suite.far = suite.w.addLocation("B-01", "B", "01", "1", 100)
	suite.w.stock(suite.product, suite.near, 20)
	suite.w.stock(suite.product, suite.far, 15)
}

func TestFulfillmentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(FulfillmentServiceTestSuite))
}

func (suite *FulfillmentServiceTestSuite) expectFreshOrder(order *models.Order) {
	suite.w.pickLists.On("GetActiveByOrderID", mock.Anything, order.ID).Return(nil, repositories.ErrNotFound)
}

func (suite *FulfillmentServiceTestSuite) TestGeneratePickList_ReservesAcrossLocations() {
	w := suite.w
	order := w.pendingOrder(map[*models.Product]int{suite.product: 25})
	suite.expectFreshOrder(order)
	w.pickLists.On("Create", mock.Anything, mock.AnythingOfType("*models.PickList")).Return(nil).Once()
	w.orders.On("UpdateStatus", mock.Anything, order.ID, models.OrderProcessing).Return(nil).Once()

	result, err := suite.service.GeneratePickList(w.ctx, order.ID)
	require.NoError(suite.T(), err)

	pl := result.PickList
	require.NotNil(suite.T(), pl)
	assert.Equal(suite.T(), models.PickListPending, pl.Status)
	assert.Regexp(suite.T(), `^PL-\d{8}-[0-9A-F]{6}$`, pl.PickListNumber)
	require.Len(suite.T(), pl.Items, 2)
	assert.Equal(suite.T(), suite.near.ID, pl.Items[0].LocationID)
	assert.Equal(suite.T(), 20, pl.Items[0].RequestedQuantity)
	assert.Equal(suite.T(), 1, pl.Items[0].Sequence)
	assert.Equal(suite.T(), suite.far.ID, pl.Items[1].LocationID)
	assert.Equal(suite.T(), 5, pl.Items[1].RequestedQuantity)
	assert.Equal(suite.T(), "A-01-1", pl.Items[0].LocationLabel)
	assert.True(suite.T(), result.FullyReserved())

	assert.Equal(suite.T(), 20, w.entry(suite.product, suite.near).ReservedQuantity)
	assert.Equal(suite.T(), 5, w.entry(suite.product, suite.far).ReservedQuantity)
	// reservations do not move stock
	assert.Equal(suite.T(), 0, w.moveRepo.Len())

	w.pickLists.AssertExpectations(suite.T())
	w.orders.AssertExpectations(suite.T())
}

func (suite *FulfillmentServiceTestSuite) TestGeneratePickList_ReportsUnmetQuantity() {
	w := suite.w
	order := w.pendingOrder(map[*models.Product]int{suite.product: 50})
	suite.expectFreshOrder(order)
	w.pickLists.On("Create", mock.Anything, mock.Anything).Return(nil)
	w.orders.On("UpdateStatus", mock.Anything, order.ID, models.OrderProcessing).Return(nil)

	result, err := suite.service.GeneratePickList(w.ctx, order.ID)
	require.NoError(suite.T(), err)

	require.Len(suite.T(), result.Lines, 1)
	assert.Equal(suite.T(), 35, result.Lines[0].Reserved)
	assert.Equal(suite.T(), 15, result.Lines[0].Unmet)
	assert.Equal(suite.T(), 15, result.TotalUnmet)
	assert.False(suite.T(), result.FullyReserved())
}

func (suite *FulfillmentServiceTestSuite) TestGeneratePickList_NothingAvailableLeavesOrderPending() {
	w := suite.w
	empty := w.addProduct("SKU-EMPTY", "0000000000000", 0)
	order := w.pendingOrder(map[*models.Product]int{empty: 3})
	suite.expectFreshOrder(order)

	result, err := suite.service.GeneratePickList(w.ctx, order.ID)
	require.NoError(suite.T(), err)

	assert.Nil(suite.T(), result.PickList)
	assert.Equal(suite.T(), 3, result.TotalUnmet)
	w.pickLists.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
	w.orders.AssertNotCalled(suite.T(), "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *FulfillmentServiceTestSuite) TestGeneratePickList_RejectsExistingList() {
	w := suite.w
	order := w.pendingOrder(map[*models.Product]int{suite.product: 5})
	w.pickLists.On("GetActiveByOrderID", mock.Anything, order.ID).Return(&models.PickList{ID: uuid.New(), PickListNumber: "PL-1"}, nil)

	_, err := suite.service.GeneratePickList(w.ctx, order.ID)
	assert.ErrorIs(suite.T(), err, ErrPickListExists)
	assert.Equal(suite.T(), 0, w.entry(suite.product, suite.near).ReservedQuantity)
}

func (suite *FulfillmentServiceTestSuite) TestGeneratePickList_RequiresPendingOrder() {
	w := suite.w
	order := w.pendingOrder(map[*models.Product]int{suite.product: 5})
	order.Status = models.OrderShipped
	suite.expectFreshOrder(order)

	_, err := suite.service.GeneratePickList(w.ctx, order.ID)
	assert.ErrorIs(suite.T(), err, ErrInvalidTransition)
}

func (suite *FulfillmentServiceTestSuite) TestGeneratePickList_UnknownOrder() {
	w := suite.w
	missing := uuid.New()
	w.orders.On("GetByID", mock.Anything, missing).Return(nil, repositories.ErrNotFound)

	_, err := suite.service.GeneratePickList(w.ctx, missing)
	assert.ErrorIs(suite.T(), err, ErrOrderNotFound)
}

func (suite *FulfillmentServiceTestSuite) TestGeneratePickList_ReleasesReservationsWhenSaveFails() {
	w := suite.w
	order := w.pendingOrder(map[*models.Product]int{suite.product: 25})
	suite.expectFreshOrder(order)
	w.pickLists.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, err := suite.service.GeneratePickList(w.ctx, order.ID)
	require.Error(suite.T(), err)

	assert.Equal(suite.T(), 0, w.entry(suite.product, suite.near).ReservedQuantity)
	assert.Equal(suite.T(), 0, w.entry(suite.product, suite.far).ReservedQuantity)
	w.orders.AssertNotCalled(suite.T(), "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *FulfillmentServiceTestSuite) TestGeneratePickList_OrderStatusFailureIsRepairedOnRetry() {
	w := suite.w
	order := w.pendingOrder(map[*models.Product]int{suite.product: 5})
	var saved *models.PickList
	w.pickLists.On("GetActiveByOrderID", mock.Anything, order.ID).Return(nil, repositories.ErrNotFound).Once()
	w.pickLists.On("Create", mock.Anything, mock.AnythingOfType("*models.PickList")).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*models.PickList)
	}).Return(nil).Once()
	w.orders.On("UpdateStatus", mock.Anything, order.ID, models.OrderProcessing).Return(errors.New("connection reset")).Once()

	_, err := suite.service.GeneratePickList(w.ctx, order.ID)
	require.Error(suite.T(), err)
	require.NotNil(suite.T(), saved)
	assert.Contains(suite.T(), err.Error(), saved.PickListNumber)
	// the saved list keeps its reservations
	assert.Equal(suite.T(), 5, w.entry(suite.product, suite.near).ReservedQuantity)

	w.pickLists.On("GetActiveByOrderID", mock.Anything, order.ID).Return(saved, nil)
	w.orders.On("UpdateStatus", mock.Anything, order.ID, models.OrderProcessing).Return(nil).Once()

	_, err = suite.service.GeneratePickList(w.ctx, order.ID)
	assert.ErrorIs(suite.T(), err, ErrPickListExists)
	assert.Equal(suite.T(), models.OrderProcessing, order.Status)
	assert.Equal(suite.T(), 5, w.entry(suite.product, suite.near).ReservedQuantity)
	w.orders.AssertExpectations(suite.T())
}

func (suite *FulfillmentServiceTestSuite) TestGeneratePickList_ConcurrentOrdersNeverOverReserve() {
	w := suite.w
	first := w.pendingOrder(map[*models.Product]int{suite.product: 30})
	second := w.pendingOrder(map[*models.Product]int{suite.product: 30})
	suite.expectFreshOrder(first)
	suite.expectFreshOrder(second)
	w.pickLists.On("Create", mock.Anything, mock.Anything).Return(nil)
	w.orders.On("UpdateStatus", mock.Anything, mock.Anything, models.OrderProcessing).Return(nil)

	var wg sync.WaitGroup
	results := make([]*models.PlanResult, 2)
	for i, order := range []*models.Order{first, second} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			res, err := suite.service.GeneratePickList(w.ctx, id)
			if assert.NoError(suite.T(), err) {
				results[i] = res
			}
		}(i, order.ID)
	}
	wg.Wait()

	reserved := 0
	for _, res := range results {
		require.NotNil(suite.T(), res)
		reserved += res.Lines[0].Reserved
	}
	assert.LessOrEqual(suite.T(), reserved, 35)
	assert.Equal(suite.T(), 60-reserved, results[0].TotalUnmet+results[1].TotalUnmet)

	near, far := w.entry(suite.product, suite.near), w.entry(suite.product, suite.far)
	assert.Equal(suite.T(), reserved, near.ReservedQuantity+far.ReservedQuantity)
	assert.LessOrEqual(suite.T(), near.ReservedQuantity, near.Quantity)
	assert.LessOrEqual(suite.T(), far.ReservedQuantity, far.Quantity)
}

func (suite *FulfillmentServiceTestSuite) TestGeneratePickListsBatch_AllPendingInOrder() {
	w := suite.w
	ok := w.pendingOrder(map[*models.Product]int{suite.product: 10})
	blocked := w.pendingOrder(map[*models.Product]int{suite.product: 10})
	suite.expectFreshOrder(ok)
	w.pickLists.On("GetActiveByOrderID", mock.Anything, blocked.ID).Return(&models.PickList{ID: uuid.New()}, nil)
	w.orders.On("ListByStatus", mock.Anything, models.OrderPending, 500).Return([]*models.Order{ok, blocked}, nil)
	w.pickLists.On("Create", mock.Anything, mock.Anything).Return(nil)
	w.orders.On("UpdateStatus", mock.Anything, ok.ID, models.OrderProcessing).Return(nil)

	batch, err := suite.service.GeneratePickListsBatch(w.ctx, nil)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 2, batch.TotalItems)
	assert.Equal(suite.T(), models.BatchPartial, batch.Status)
	assert.Equal(suite.T(), ok.ID.String(), batch.Items[0].ItemID)
	assert.NotNil(suite.T(), batch.Items[0].Plan)
	assert.Equal(suite.T(), "failed", batch.Items[1].Status)
}

func (suite *FulfillmentServiceTestSuite) TestPickingPath_WalkingOrder() {
	w := suite.w
	c := w.addLocation("C-01", "C", "01", "2", 100)
	a2 := w.addLocation("A-02", "A", "02", "1", 100)
	pl := w.pickList(uuid.New(), models.PickListPending,
		pickItem(suite.product, c, 1, 0),
		pickItem(suite.product, suite.far, 1, 0),
		pickItem(suite.product, a2, 1, 0),
		pickItem(suite.product, suite.near, 1, 0),
	)

	path, err := suite.service.PickingPath(w.ctx, pl.ID)
	require.NoError(suite.T(), err)

	var codes []string
	for _, item := range path {
		codes = append(codes, item.LocationCode)
	}
	assert.Equal(suite.T(), []string{"A-01", "A-02", "B-01", "C-01"}, codes)
	// the stored list keeps its own order
	assert.Equal(suite.T(), "C-01", pl.Items[0].LocationCode)
}

func (suite *FulfillmentServiceTestSuite) TestGetPickList_NotFound() {
	w := suite.w
	missing := uuid.New()
	w.pickLists.On("GetByID", mock.Anything, missing).Return(nil, repositories.ErrNotFound)
	w.pickLists.On("GetByNumber", mock.Anything, "PL-NOPE").Return(nil, repositories.ErrNotFound)

	_, err := suite.service.GetPickList(w.ctx, missing)
	assert.ErrorIs(suite.T(), err, ErrPickListNotFound)
	_, err = suite.service.GetPickListByNumber(w.ctx, " PL-NOPE ")
	assert.ErrorIs(suite.T(), err, ErrPickListNotFound)
}
