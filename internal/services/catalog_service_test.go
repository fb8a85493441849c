package services

import (
	"context"
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

type CatalogServiceTestSuite struct {
	suite.Suite
	products  *MockProductRepository
	locations *MockLocationRepository
	orders    *MockOrderRepository
	service   CatalogService
	ctx       context.Context
}

func (suite *CatalogServiceTestSuite) SetupTest() {
	suite.products = new(MockProductRepository)
	suite.locations = new(MockLocationRepository)
	suite.orders = new(MockOrderRepository)
	suite.service = NewCatalogService(suite.products, suite.locations, suite.orders, zerolog.Nop())
	suite.ctx = context.Background()
}

func TestCatalogServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceTestSuite))
}

func (suite *CatalogServiceTestSuite) TestCreateProduct() {
	suite.products.On("GetByBarcode", suite.ctx, "4006381333931").Return(nil, repositories.ErrNotFound)
	suite.products.On("Create", suite.ctx, mock.AnythingOfType("*models.Product")).Return(nil)

	product := &models.Product{SKU: " SKU-1 ", Name: "Widget", Barcode: "4006381333931", MinStockLevel: 5}
	err := suite.service.CreateProduct(suite.ctx, product)

	require.NoError(suite.T(), err)
	assert.NotEqual(suite.T(), uuid.Nil, product.ID)
	assert.Equal(suite.T(), "SKU-1", product.SKU)
	suite.products.AssertExpectations(suite.T())
}

func (suite *CatalogServiceTestSuite) TestCreateProduct_DuplicateBarcode() {
	existing := &models.Product{ID: uuid.New(), Barcode: "111"}
	suite.products.On("GetByBarcode", suite.ctx, "111").Return(existing, nil)

	err := suite.service.CreateProduct(suite.ctx, &models.Product{SKU: "SKU-2", Name: "Gadget", Barcode: "111"})

	assert.ErrorIs(suite.T(), err, ErrDuplicate)
	suite.products.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}

func (suite *CatalogServiceTestSuite) TestCreateProduct_Validation() {
	err := suite.service.CreateProduct(suite.ctx, &models.Product{SKU: "SKU-1", Name: "", Barcode: "111"})
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)

	err = suite.service.CreateProduct(suite.ctx, &models.Product{SKU: "SKU-1", Name: "Widget", Barcode: "111", MinStockLevel: -1})
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)
}

func (suite *CatalogServiceTestSuite) TestCreateLocation_DefaultCapacity() {
	suite.locations.On("Create", suite.ctx, mock.AnythingOfType("*models.Location")).Return(nil)

	loc := &models.Location{Code: "A-01", Aisle: "A", Rack: "01", Level: "1"}
	require.NoError(suite.T(), suite.service.CreateLocation(suite.ctx, loc))
	assert.Equal(suite.T(), models.DefaultLocationCapacity, loc.MaxCapacity)

	err := suite.service.CreateLocation(suite.ctx, &models.Location{Code: "A-02", Aisle: "A", Rack: "02"})
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)
}

func (suite *CatalogServiceTestSuite) TestUpdateLocation() {
	loc := &models.Location{ID: uuid.New(), Code: "A-01", MaxCapacity: 100, IsActive: true}
	suite.locations.On("GetByID", suite.ctx, loc.ID).Return(loc, nil)
	suite.locations.On("Update", suite.ctx, loc).Return(nil)

	capacity, active := 40, false
	got, err := suite.service.UpdateLocation(suite.ctx, loc.ID, LocationUpdate{MaxCapacity: &capacity, IsActive: &active})

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 40, got.MaxCapacity)
	assert.False(suite.T(), got.IsActive)

	negative := -1
	_, err = suite.service.UpdateLocation(suite.ctx, loc.ID, LocationUpdate{MaxCapacity: &negative})
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)
}

func (suite *CatalogServiceTestSuite) TestCreateOrder() {
	product := &models.Product{ID: uuid.New()}
	suite.products.On("GetByID", suite.ctx, product.ID).Return(product, nil)
	suite.orders.On("Create", suite.ctx, mock.AnythingOfType("*models.Order")).Return(nil)

	order, err := suite.service.CreateOrder(suite.ctx, CreateOrderInput{
		CustomerName: "Acme",
		Lines:        []CreateOrderLine{{ProductID: product.ID, Quantity: 3}},
	})

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OrderPending, order.Status)
	assert.Regexp(suite.T(), `^SO-\d{8}-[0-9A-F]{6}$`, order.OrderNumber)
	require.Len(suite.T(), order.Items, 1)
	assert.Equal(suite.T(), 3, order.Items[0].Quantity)
}

func (suite *CatalogServiceTestSuite) TestCreateOrder_Rejections() {
	missing := uuid.New()
	suite.products.On("GetByID", suite.ctx, missing).Return(nil, repositories.ErrNotFound)

	_, err := suite.service.CreateOrder(suite.ctx, CreateOrderInput{CustomerName: "Acme"})
	assert.ErrorIs(suite.T(), err, ErrInvalidInput)

	_, err = suite.service.CreateOrder(suite.ctx, CreateOrderInput{CustomerName: "Acme", Lines: []CreateOrderLine{{ProductID: missing, Quantity: 0}}})
	assert.ErrorIs(suite.T(), err, ErrInvalidQuantity)

	_, err = suite.service.CreateOrder(suite.ctx, CreateOrderInput{CustomerName: "Acme", Lines: []CreateOrderLine{{ProductID: missing, Quantity: 1}}})
	assert.ErrorIs(suite.T(), err, ErrProductNotFound)

	suite.orders.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything)
}
