package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockflow/internal/models"
	"stockflow/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type CreateOrderLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type CreateOrderInput struct {
	OrderNumber  string            `json:"order_number"`
	CustomerName string            `json:"customer_name"`
	Notes        *string           `json:"notes,omitempty"`
	Lines        []CreateOrderLine `json:"lines"`
}

// LocationUpdate changes the mutable attributes of a location. Nil fields are left as they are.
type LocationUpdate struct {
	MaxCapacity *int  `json:"max_capacity,omitempty"`
	IsActive    *bool `json:"is_active,omitempty"`
}

// CatalogService maintains the reference data the ledger works against:
// products, storage locations and customer orders.
type CatalogService interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error)

	CreateLocation(ctx context.Context, location *models.Location) error
	UpdateLocation(ctx context.Context, id uuid.UUID, update LocationUpdate) (*models.Location, error)
	GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error)
	ListLocations(ctx context.Context, limit, offset int) ([]*models.Location, error)

	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type catalogService struct {
	productRepo  repositories.ProductRepository
	locationRepo repositories.LocationRepository
	orderRepo    repositories.OrderRepository
	now          func() time.Time
	logger       zerolog.Logger
}

func NewCatalogService(productRepo repositories.ProductRepository, locationRepo repositories.LocationRepository,
	orderRepo repositories.OrderRepository, logger zerolog.Logger) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		locationRepo: locationRepo,
		orderRepo:    orderRepo,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *catalogService) CreateProduct(ctx context.Context, product *models.Product) error {
	product.SKU = strings.TrimSpace(product.SKU)
	product.Name = strings.TrimSpace(product.Name)
	product.Barcode = strings.TrimSpace(product.Barcode)
	if product.SKU == "" || product.Name == "" || product.Barcode == "" {
		return fmt.Errorf("%w: sku, name and barcode are required", ErrInvalidInput)
	}
	if product.MinStockLevel < 0 {
		return fmt.Errorf("%w: min stock level cannot be negative", ErrInvalidInput)
	}

	// Check for barcode duplicates
	if _, err := s.productRepo.GetByBarcode(ctx, product.Barcode); err == nil {
		return fmt.Errorf("%w: barcode %s already belongs to another product", ErrDuplicate, product.Barcode)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	product.ID = uuid.New()
	return s.productRepo.Create(ctx, product)
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrProductNotFound)
	}
	return product, nil
}

func (s *catalogService) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	product, err := s.productRepo.GetByBarcode(ctx, strings.TrimSpace(barcode))
	if err != nil {
		return nil, mapNotFound(err, ErrProductNotFound)
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	return s.productRepo.List(ctx, limit, offset)
}

func (s *catalogService) CreateLocation(ctx context.Context, location *models.Location) error {
	location.Code = strings.TrimSpace(location.Code)
	if location.Code == "" || location.Aisle == "" || location.Rack == "" || location.Level == "" {
		return fmt.Errorf("%w: code, aisle, rack and level are required", ErrInvalidInput)
	}
	if location.MaxCapacity < 0 {
		return fmt.Errorf("%w: capacity cannot be negative", ErrInvalidInput)
	}
	if location.MaxCapacity == 0 {
		location.MaxCapacity = models.DefaultLocationCapacity
	}
	location.ID = uuid.New()
	return s.locationRepo.Create(ctx, location)
}

func (s *catalogService) UpdateLocation(ctx context.Context, id uuid.UUID, update LocationUpdate) (*models.Location, error) {
	location, err := s.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.MaxCapacity != nil {
		if *update.MaxCapacity < 0 {
			return nil, fmt.Errorf("%w: capacity cannot be negative", ErrInvalidInput)
		}
		location.MaxCapacity = *update.MaxCapacity
	}
	if update.IsActive != nil {
		location.IsActive = *update.IsActive
	}
	if err := s.locationRepo.Update(ctx, location); err != nil {
		return nil, mapNotFound(err, ErrLocationNotFound)
	}
	return location, nil
}

func (s *catalogService) GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	location, err := s.locationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrLocationNotFound)
	}
	return location, nil
}

func (s *catalogService) ListLocations(ctx context.Context, limit, offset int) ([]*models.Location, error) {
	return s.locationRepo.List(ctx, limit, offset)
}

func (s *catalogService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if len(input.Lines) == 0 {
		return nil, fmt.Errorf("%w: order must have at least one line", ErrInvalidInput)
	}
	customer := strings.TrimSpace(input.CustomerName)
	if customer == "" {
		return nil, fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}

	order := &models.Order{
		ID:           uuid.New(),
		OrderNumber:  strings.TrimSpace(input.OrderNumber),
		CustomerName: customer,
		Status:       models.OrderPending,
		Notes:        input.Notes,
	}
	if order.OrderNumber == "" {
		order.OrderNumber = models.NewOrderNumber(s.now().UTC())
	}

	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if _, err := s.productRepo.GetByID(ctx, line.ProductID); err != nil {
			return nil, mapNotFound(err, ErrProductNotFound)
		}
		order.Items = append(order.Items, &models.OrderItem{
			ID:        uuid.New(),
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}
	s.logger.Info().Str("order", order.OrderNumber).Int("lines", len(order.Items)).Int("units", order.TotalQuantity()).Msg("order received")
	return order, nil
}

func (s *catalogService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrOrderNotFound)
	}
	return order, nil
}
