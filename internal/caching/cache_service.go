package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockflow/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "stockflow:"

// AlertChannel carries newly raised low-stock alerts as JSON
const AlertChannel = keyPrefix + "alerts"

type CacheService interface {
	// Stock snapshot caching
	GetProductStock(ctx context.Context, productID uuid.UUID) (*models.ProductStockSnapshot, error)
	SetProductStock(ctx context.Context, snapshot *models.ProductStockSnapshot, ttl time.Duration) error
	DeleteProductStock(ctx context.Context, productID uuid.UUID) error

	// Notifications
	PublishAlert(ctx context.Context, alert *models.LowStockAlert) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client redis.UniversalClient
	logger zerolog.Logger
}

// NewRedisClient builds a client from an address that may carry a redis:// or rediss:// scheme.
func NewRedisClient(addr, password string, db int, logger zerolog.Logger) *redis.Client {
	parsedAddr := addr
	if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
		parsedAddr = hostPort
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", parsedAddr).Msg("redis ping failed on initialization")
	} else {
		logger.Debug().Str("addr", parsedAddr).Msg("redis connection established")
	}
	return client
}

func NewRedisCacheService(client redis.UniversalClient, logger zerolog.Logger) CacheService {
	return &redisCacheService{client: client, logger: logger}
}

func productStockKey(productID uuid.UUID) string {
	return fmt.Sprintf("%sstock:%s", keyPrefix, productID.String())
}

func (r *redisCacheService) GetProductStock(ctx context.Context, productID uuid.UUID) (*models.ProductStockSnapshot, error) {
	data, err := r.client.Get(ctx, productStockKey(productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var snapshot models.ProductStockSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *redisCacheService) SetProductStock(ctx context.Context, snapshot *models.ProductStockSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, productStockKey(snapshot.ProductID), data, ttl).Err()
}

func (r *redisCacheService) DeleteProductStock(ctx context.Context, productID uuid.UUID) error {
	return r.client.Del(ctx, productStockKey(productID)).Err()
}

func (r *redisCacheService) PublishAlert(ctx context.Context, alert *models.LowStockAlert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	receivers, err := r.client.Publish(ctx, AlertChannel, data).Result()
	if err != nil {
		return err
	}
	r.logger.Debug().Str("alert_id", alert.ID.String()).Int64("receivers", receivers).Msg("low stock alert published")
	return nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// noopCacheService is used when no Redis address is configured
type noopCacheService struct{}

func NewNoopCacheService() CacheService {
	return noopCacheService{}
}

func (noopCacheService) GetProductStock(context.Context, uuid.UUID) (*models.ProductStockSnapshot, error) {
	return nil, nil
}

func (noopCacheService) SetProductStock(context.Context, *models.ProductStockSnapshot, time.Duration) error {
	return nil
}

func (noopCacheService) DeleteProductStock(context.Context, uuid.UUID) error { return nil }

func (noopCacheService) PublishAlert(context.Context, *models.LowStockAlert) error { return nil }

func (noopCacheService) Ping(context.Context) error { return nil }
