package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockflow/internal/common"
	"stockflow/internal/jobs/background"
	"stockflow/internal/ledger"
	"stockflow/internal/models"
	"stockflow/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPickingService struct {
	mock.Mock
}

func (m *MockPickingService) ScanPick(ctx context.Context, req services.ScanRequest) (*models.ScanResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScanResult), args.Error(1)
}

func (m *MockPickingService) PickRemaining(ctx context.Context, pickListID, itemID uuid.UUID, barcode, expectedLocation string) (*models.ScanResult, error) {
	args := m.Called(ctx, pickListID, itemID, barcode, expectedLocation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScanResult), args.Error(1)
}

func (m *MockPickingService) QuickScan(ctx context.Context, pickListID uuid.UUID, barcode string, quantity int) (*models.ScanResult, error) {
	args := m.Called(ctx, pickListID, barcode, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScanResult), args.Error(1)
}

func (m *MockPickingService) StartPicking(ctx context.Context, pickListID uuid.UUID) (*models.PickList, error) {
	args := m.Called(ctx, pickListID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PickList), args.Error(1)
}

func (m *MockPickingService) CompletePicking(ctx context.Context, pickListID uuid.UUID) (*models.PickList, error) {
	args := m.Called(ctx, pickListID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PickList), args.Error(1)
}

func (m *MockPickingService) CancelPickList(ctx context.Context, pickListID uuid.UUID) (*models.CancelResult, error) {
	args := m.Called(ctx, pickListID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CancelResult), args.Error(1)
}

func (m *MockPickingService) Progress(ctx context.Context, pickListID uuid.UUID) (*models.PickProgress, error) {
	args := m.Called(ctx, pickListID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PickProgress), args.Error(1)
}

type MockAllocationService struct {
	mock.Mock
}

func (m *MockAllocationService) PlaceIncoming(ctx context.Context, req models.PlacementRequest) (*models.AllocationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AllocationResult), args.Error(1)
}

func (m *MockAllocationService) PlaceSpecific(ctx context.Context, req models.PlacementRequest, locationID uuid.UUID) (*models.AllocationResult, error) {
	args := m.Called(ctx, req, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AllocationResult), args.Error(1)
}

func (m *MockAllocationService) PlanWithdrawal(ctx context.Context, productID uuid.UUID, quantity int) (*models.WithdrawalPlan, error) {
	args := m.Called(ctx, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WithdrawalPlan), args.Error(1)
}

func (m *MockAllocationService) SuggestLocation(ctx context.Context, productID uuid.UUID, quantity int) (*models.LocationSuggestion, error) {
	args := m.Called(ctx, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LocationSuggestion), args.Error(1)
}

func (m *MockAllocationService) AllocateBatch(ctx context.Context, requests []models.PlacementRequest) (*models.BatchResult, error) {
	args := m.Called(ctx, requests)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BatchResult), args.Error(1)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) common.ErrorResponse {
	t.Helper()
	var body common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", fmt.Errorf("%w: sku is required", services.ErrInvalidInput), http.StatusBadRequest, "CLIENT_ERROR"},
		{"ledger validation", ledger.ErrInvalidQuantity, http.StatusBadRequest, "CLIENT_ERROR"},
		{"not found", services.ErrPickListNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped not found", fmt.Errorf("load: %w", services.ErrOrderNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"transition", services.ErrInvalidTransition, http.StatusConflict, "CONFLICT"},
		{"duplicate", services.ErrDuplicate, http.StatusConflict, "CONFLICT"},
		{"capacity", &services.CapacityError{LocationID: uuid.New(), Available: 3, Requested: 10}, http.StatusConflict, "CONFLICT"},
		{"scan", &services.ScanError{Reason: services.ErrLocationMismatch, Expected: "A-01-1", Scanned: "B-02-1"}, http.StatusConflict, "CONFLICT"},
		{"insufficient stock", fmt.Errorf("consume stock: %w", ledger.ErrInsufficientStock), http.StatusConflict, "CONFLICT"},
		{"lock timeout", fmt.Errorf("%w: entry:x", ledger.ErrLockTimeout), http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			e.GET("/", func(c echo.Context) error { return respondError(c, zerolog.Nop(), tt.err) })

			rec := doJSON(e, http.MethodGet, "/", "")

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Error.Code)
		})
	}
}

func TestRespondError_Details(t *testing.T) {
	locationID := uuid.New()
	e := newTestEcho()
	e.GET("/capacity", func(c echo.Context) error {
		return respondError(c, zerolog.Nop(), &services.CapacityError{LocationID: locationID, Available: 3, Requested: 10})
	})
	e.GET("/scan", func(c echo.Context) error {
		return respondError(c, zerolog.Nop(), &services.ScanError{Reason: services.ErrBarcodeMismatch, Expected: "111", Scanned: "222"})
	})

	body := decodeError(t, doJSON(e, http.MethodGet, "/capacity", ""))
	assert.Equal(t, locationID.String(), body.Error.Details["location_id"])
	assert.Equal(t, "3", body.Error.Details["available"])
	assert.Equal(t, "10", body.Error.Details["requested"])

	body = decodeError(t, doJSON(e, http.MethodGet, "/scan", ""))
	assert.Equal(t, services.ErrBarcodeMismatch.Error(), body.Error.Message)
	assert.Equal(t, "111", body.Error.Details["expected"])
	assert.Equal(t, "222", body.Error.Details["scanned"])
}

func pickingEcho(picking services.PickingService) *echo.Echo {
	e := newTestEcho()
	api := &API{
		PickLists:  NewPickListHandlers(nil, picking, zerolog.Nop()),
		Catalog:    &CatalogHandlers{},
		Allocation: &AllocationHandlers{},
		Stock:      &StockHandlers{},
		Returns:    &ReturnHandlers{},
		Receipts:   &ReceiptHandlers{},
		Alerts:     &AlertHandlers{},
		Reports:    &ReportHandlers{},
	}
	api.Register(e.Group("/v1"))
	return e
}

func TestScanItem_PassesRequestThrough(t *testing.T) {
	picking := new(MockPickingService)
	pickListID, itemID := uuid.New(), uuid.New()
	expected := services.ScanRequest{
		PickListID:       pickListID,
		ItemID:           itemID,
		Barcode:          "4006381333931",
		Quantity:         2,
		ExpectedLocation: "A-01-2",
	}
	picking.On("ScanPick", mock.Anything, expected).Return(&models.ScanResult{PickListID: pickListID, PickedNow: 2, Remaining: 3}, nil)

	rec := doJSON(pickingEcho(picking), http.MethodPost,
		fmt.Sprintf("/v1/pick-lists/%s/items/%s/scan", pickListID, itemID),
		`{"barcode":"4006381333931","quantity":2,"expected_location":"A-01-2"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var result models.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.PickedNow)
	assert.Equal(t, 3, result.Remaining)
	picking.AssertExpectations(t)
}

func TestScanItem_Validation(t *testing.T) {
	picking := new(MockPickingService)
	e := pickingEcho(picking)

	rec := doJSON(e, http.MethodPost, "/v1/pick-lists/not-a-uuid/items/"+uuid.NewString()+"/scan", `{"barcode":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, fmt.Sprintf("/v1/pick-lists/%s/items/%s/scan", uuid.New(), uuid.New()), `{"barcode":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Error.Code)

	picking.AssertNotCalled(t, "ScanPick", mock.Anything, mock.Anything)
}

func TestCancelPickList_SecondCancelConflicts(t *testing.T) {
	picking := new(MockPickingService)
	id := uuid.New()
	picking.On("CancelPickList", mock.Anything, id).Return(&models.CancelResult{ReleasedQuantity: 6, ReleasedItems: 1}, nil).Once()
	picking.On("CancelPickList", mock.Anything, id).Return(nil, fmt.Errorf("%w: pick list is cancelled", services.ErrInvalidTransition)).Once()
	e := pickingEcho(picking)

	rec := doJSON(e, http.MethodPost, "/v1/pick-lists/"+id.String()+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"released_quantity":6`)

	rec = doJSON(e, http.MethodPost, "/v1/pick-lists/"+id.String()+"/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPlaceSpecific_CapacityConflict(t *testing.T) {
	allocator := new(MockAllocationService)
	productID, locationID := uuid.New(), uuid.New()
	req := models.PlacementRequest{ProductID: productID, Quantity: 40}
	allocator.On("PlaceSpecific", mock.Anything, req, locationID).
		Return(nil, &services.CapacityError{LocationID: locationID, Available: 25, Requested: 40})

	e := newTestEcho()
	h := NewAllocationHandlers(allocator, zerolog.Nop())
	e.POST("/allocations/specific", h.PlaceSpecific)

	rec := doJSON(e, http.MethodPost, "/allocations/specific",
		fmt.Sprintf(`{"product_id":"%s","quantity":40,"location_id":"%s"}`, productID, locationID))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "25", decodeError(t, rec).Error.Details["available"])
	allocator.AssertExpectations(t)
}

func TestPlaceIncoming_RequiresProduct(t *testing.T) {
	allocator := new(MockAllocationService)
	e := newTestEcho()
	e.POST("/allocations", NewAllocationHandlers(allocator, zerolog.Nop()).PlaceIncoming)

	rec := doJSON(e, http.MethodPost, "/allocations", `{"quantity":5}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	allocator.AssertNotCalled(t, "PlaceIncoming", mock.Anything, mock.Anything)
}

func TestReportHandlers_Unconfigured(t *testing.T) {
	e := newTestEcho()
	e.POST("/reports/movements", NewReportHandlers(nil, zerolog.Nop()).ExportMovements)

	rec := doJSON(e, http.MethodPost, "/reports/movements", `{}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandlers(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	e := newTestEcho()
	healthy := NewHealthHandlers(ok, ok, nil, "test")
	degraded := NewHealthHandlers(down, ok, func(context.Context) error { return nil }, "test")
	e.GET("/healthy", healthy.HealthCheck)
	e.GET("/degraded", degraded.HealthCheck)
	e.GET("/ready", degraded.ReadinessCheck)
	e.GET("/detailed", degraded.DetailedHealthCheck)

	rec := doJSON(e, http.MethodGet, "/healthy", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.NotContains(t, status.Services, "storage")

	rec = doJSON(e, http.MethodGet, "/degraded", "")
	assert.Equal(t, http.StatusPartialContent, rec.Code)

	rec = doJSON(e, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(e, http.MethodGet, "/detailed", "")
	assert.Contains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, rec.Body.String(), `"storage"`)
}

type fakeJobs struct {
	triggered []string
}

func (f *fakeJobs) RunNow(name string) error {
	if name != "low-stock-sweep" {
		return fmt.Errorf("%w: %q", background.ErrUnknownJob, name)
	}
	f.triggered = append(f.triggered, name)
	return nil
}

func (f *fakeJobs) NextRuns() map[string]time.Time {
	return map[string]time.Time{"low-stock-sweep": time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
}

func TestJobHandlers(t *testing.T) {
	jobs := &fakeJobs{}
	e := newTestEcho()
	NewJobHandlers(jobs).Register(e.Group("/v1"))

	rec := doJSON(e, http.MethodPost, "/v1/jobs/low-stock-sweep/run", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"low-stock-sweep"}, jobs.triggered)

	rec = doJSON(e, http.MethodPost, "/v1/jobs/nope/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/jobs", "")
	assert.Contains(t, rec.Body.String(), "2026-10-15T12:00:00Z")
}

type MockReceiptService struct {
	mock.Mock
}

func (m *MockReceiptService) CreateReceipt(ctx context.Context, input services.CreateReceiptInput) (*models.GoodsReceipt, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GoodsReceipt), args.Error(1)
}

func (m *MockReceiptService) AddItem(ctx context.Context, receiptID uuid.UUID, input services.ReceiptItemInput) (*models.GoodsReceiptItem, error) {
	args := m.Called(ctx, receiptID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GoodsReceiptItem), args.Error(1)
}

func (m *MockReceiptService) StartProcessing(ctx context.Context, receiptID uuid.UUID) (*models.GoodsReceipt, error) {
	args := m.Called(ctx, receiptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GoodsReceipt), args.Error(1)
}

func (m *MockReceiptService) ScanItem(ctx context.Context, req services.ReceiptScanRequest) (*models.ReceiptScanResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReceiptScanResult), args.Error(1)
}

func (m *MockReceiptService) CompleteReceipt(ctx context.Context, receiptID uuid.UUID) (*models.ReceiptCompletion, error) {
	args := m.Called(ctx, receiptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReceiptCompletion), args.Error(1)
}

func (m *MockReceiptService) CancelReceipt(ctx context.Context, receiptID uuid.UUID) (*models.GoodsReceipt, error) {
	args := m.Called(ctx, receiptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GoodsReceipt), args.Error(1)
}

func (m *MockReceiptService) GetReceipt(ctx context.Context, receiptID uuid.UUID) (*models.GoodsReceipt, error) {
	args := m.Called(ctx, receiptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GoodsReceipt), args.Error(1)
}

func (m *MockReceiptService) ListReceipts(ctx context.Context, status *models.ReceiptStatus, limit, offset int) ([]*models.GoodsReceipt, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GoodsReceipt), args.Error(1)
}

func (m *MockReceiptService) Stats(ctx context.Context) (*models.ReceiptStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReceiptStats), args.Error(1)
}

func receiptEcho(receipts services.ReceiptService) *echo.Echo {
	e := newTestEcho()
	api := &API{
		Receipts:   NewReceiptHandlers(receipts, zerolog.Nop()),
		PickLists:  &PickListHandlers{},
		Catalog:    &CatalogHandlers{},
		Allocation: &AllocationHandlers{},
		Stock:      &StockHandlers{},
		Returns:    &ReturnHandlers{},
		Alerts:     &AlertHandlers{},
		Reports:    &ReportHandlers{},
	}
	api.Register(e.Group("/v1"))
	return e
}

func TestReceiveScan_PassesRequestThrough(t *testing.T) {
	receipts := new(MockReceiptService)
	receiptID, itemID := uuid.New(), uuid.New()
	expected := services.ReceiptScanRequest{ReceiptID: receiptID, ItemID: itemID, Barcode: "4006381333931", Quantity: 4}
	receipts.On("ScanItem", mock.Anything, expected).
		Return(&models.ReceiptScanResult{ReceiptID: receiptID, ScannedNow: 4, Status: models.ReceiveStatusOverReceived, Discrepancy: 2}, nil)

	rec := doJSON(receiptEcho(receipts), http.MethodPost,
		fmt.Sprintf("/v1/receipts/%s/items/%s/scan", receiptID, itemID),
		`{"barcode":"4006381333931","quantity":4}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var result models.ReceiptScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.ReceiveStatusOverReceived, result.Status)
	assert.Equal(t, 2, result.Discrepancy)
	receipts.AssertExpectations(t)
}

func TestReceiveScan_Validation(t *testing.T) {
	receipts := new(MockReceiptService)
	e := receiptEcho(receipts)

	rec := doJSON(e, http.MethodPost, fmt.Sprintf("/v1/receipts/%s/items/%s/scan", uuid.New(), uuid.New()), `{"barcode":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec).Error.Code)

	rec = doJSON(e, http.MethodPost, "/v1/receipts/"+uuid.NewString()+"/items", `{"sku":"SKU-1","expected_quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/receipts?status=shipped", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	receipts.AssertNotCalled(t, "ScanItem", mock.Anything, mock.Anything)
	receipts.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything)
	receipts.AssertNotCalled(t, "ListReceipts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReceiptRoutes_ErrorMapping(t *testing.T) {
	receipts := new(MockReceiptService)
	missing, closed := uuid.New(), uuid.New()
	receipts.On("GetReceipt", mock.Anything, missing).Return(nil, services.ErrReceiptNotFound)
	receipts.On("CompleteReceipt", mock.Anything, closed).
		Return(nil, fmt.Errorf("%w: cannot complete goods receipt in status completed", services.ErrInvalidTransition))
	e := receiptEcho(receipts)

	rec := doJSON(e, http.MethodGet, "/v1/receipts/"+missing.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/receipts/"+closed.String()+"/complete", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReceiptLists_FilterByStatus(t *testing.T) {
	receipts := new(MockReceiptService)
	pending := models.ReceiptPending
	receipts.On("ListReceipts", mock.Anything, &pending, mock.Anything, mock.Anything).
		Return([]*models.GoodsReceipt{{ReceiptNumber: "GR-20261015-ABC123", Status: pending}}, nil)
	receipts.On("Stats", mock.Anything).Return(&models.ReceiptStats{Total: 3, Pending: 1}, nil)
	e := receiptEcho(receipts)

	rec := doJSON(e, http.MethodGet, "/v1/receipts/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "GR-20261015-ABC123")

	rec = doJSON(e, http.MethodGet, "/v1/receipts?status=pending", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/receipts/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":3`)
	receipts.AssertNumberOfCalls(t, "ListReceipts", 2)
}
