package services

import (
	"context"
	"io"
	"time"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock repositories and services

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	args := m.Called(ctx, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Product), args.Error(1)
}

type MockLocationRepository struct {
	mock.Mock
}

func (m *MockLocationRepository) Create(ctx context.Context, location *models.Location) error {
	args := m.Called(ctx, location)
	return args.Error(0)
}

func (m *MockLocationRepository) Update(ctx context.Context, location *models.Location) error {
	args := m.Called(ctx, location)
	return args.Error(0)
}

func (m *MockLocationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationRepository) GetByCode(ctx context.Context, code string) (*models.Location, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

// GetByIDs accepts either a fixed slice or a func(ids) slice as its first return value
func (m *MockLocationRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Location, error) {
	args := m.Called(ctx, ids)
	if rf, ok := args.Get(0).(func([]uuid.UUID) []*models.Location); ok {
		return rf(ids), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Location), args.Error(1)
}

func (m *MockLocationRepository) ListActive(ctx context.Context) ([]*models.Location, error) {
	args := m.Called(ctx)
	if rf, ok := args.Get(0).(func() []*models.Location); ok {
		return rf(), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Location), args.Error(1)
}

func (m *MockLocationRepository) List(ctx context.Context, limit, offset int) ([]*models.Location, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Location), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByStatus(ctx context.Context, status models.OrderStatus, limit int) ([]*models.Order, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockPickListRepository struct {
	mock.Mock
}

func (m *MockPickListRepository) Create(ctx context.Context, pickList *models.PickList) error {
	args := m.Called(ctx, pickList)
	return args.Error(0)
}

func (m *MockPickListRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PickList, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PickList), args.Error(1)
}

func (m *MockPickListRepository) GetByNumber(ctx context.Context, number string) (*models.PickList, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PickList), args.Error(1)
}

func (m *MockPickListRepository) GetActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PickList, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PickList), args.Error(1)
}

func (m *MockPickListRepository) List(ctx context.Context, status *models.PickListStatus, limit, offset int) ([]*models.PickList, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PickList), args.Error(1)
}

func (m *MockPickListRepository) UpdateStatus(ctx context.Context, pickList *models.PickList) error {
	args := m.Called(ctx, pickList)
	return args.Error(0)
}

func (m *MockPickListRepository) UpdateItem(ctx context.Context, item *models.PickPlanItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

type MockReturnRepository struct {
	mock.Mock
}

func (m *MockReturnRepository) Create(ctx context.Context, ret *models.ProductReturn) error {
	args := m.Called(ctx, ret)
	return args.Error(0)
}

func (m *MockReturnRepository) AddItem(ctx context.Context, item *models.ReturnItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockReturnRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProductReturn, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductReturn), args.Error(1)
}

func (m *MockReturnRepository) List(ctx context.Context, status *models.ReturnStatus, limit, offset int) ([]*models.ProductReturn, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ProductReturn), args.Error(1)
}

func (m *MockReturnRepository) UpdateStatus(ctx context.Context, ret *models.ProductReturn) error {
	args := m.Called(ctx, ret)
	return args.Error(0)
}

func (m *MockReturnRepository) UpdateItem(ctx context.Context, item *models.ReturnItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) Create(ctx context.Context, alert *models.LowStockAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.LowStockAlert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LowStockAlert), args.Error(1)
}

// GetOpenByProduct also accepts a func(productID) (alert, error) as its only return value
func (m *MockAlertRepository) GetOpenByProduct(ctx context.Context, productID uuid.UUID) (*models.LowStockAlert, error) {
	args := m.Called(ctx, productID)
	if rf, ok := args.Get(0).(func(uuid.UUID) (*models.LowStockAlert, error)); ok {
		return rf(productID)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LowStockAlert), args.Error(1)
}

func (m *MockAlertRepository) Update(ctx context.Context, alert *models.LowStockAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertRepository) List(ctx context.Context, status *models.AlertStatus, severity *models.AlertSeverity, limit, offset int) ([]*models.LowStockAlert, error) {
	args := m.Called(ctx, status, severity, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LowStockAlert), args.Error(1)
}

func (m *MockAlertRepository) CountOpenBySeverity(ctx context.Context) (map[models.AlertSeverity]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.AlertSeverity]int), args.Error(1)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) GetProductStock(ctx context.Context, productID uuid.UUID) (*models.ProductStockSnapshot, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductStockSnapshot), args.Error(1)
}

func (m *MockCacheService) SetProductStock(ctx context.Context, snapshot *models.ProductStockSnapshot, ttl time.Duration) error {
	args := m.Called(ctx, snapshot, ttl)
	return args.Error(0)
}

func (m *MockCacheService) DeleteProductStock(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

func (m *MockCacheService) PublishAlert(ctx context.Context, alert *models.LowStockAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockReportStorage struct {
	mock.Mock
}

func (m *MockReportStorage) UploadReport(ctx context.Context, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	args := m.Called(ctx, objectName, reader, objectSize, contentType)
	return args.Error(0)
}

func (m *MockReportStorage) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockReportStorage) EnsureBucketExists(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockReceiptRepository struct {
	mock.Mock
}

func (m *MockReceiptRepository) Create(ctx context.Context, receipt *models.GoodsReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockReceiptRepository) AddItem(ctx context.Context, item *models.GoodsReceiptItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockReceiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GoodsReceipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GoodsReceipt), args.Error(1)
}

func (m *MockReceiptRepository) List(ctx context.Context, status *models.ReceiptStatus, limit, offset int) ([]*models.GoodsReceipt, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GoodsReceipt), args.Error(1)
}

func (m *MockReceiptRepository) UpdateStatus(ctx context.Context, receipt *models.GoodsReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockReceiptRepository) UpdateItem(ctx context.Context, item *models.GoodsReceiptItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockReceiptRepository) CountByStatus(ctx context.Context) (map[models.ReceiptStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.ReceiptStatus]int), args.Error(1)
}
