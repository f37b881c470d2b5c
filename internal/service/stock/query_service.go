package stock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/redis/go-redis/v9"

	"stockwatch/internal/model"
	"stockwatch/internal/repository"
	"stockwatch/pkg/log"
)

// ErrSnapshotNotFound no stock exists for the (product, warehouse) pair
var ErrSnapshotNotFound = errors.New("stock snapshot not found")

// QueryService resolves the current aggregate stock snapshot for a
// (product, warehouse) pair.
type QueryService interface {
	// GetSnapshot returns the current snapshot or ErrSnapshotNotFound
	GetSnapshot(ctx context.Context, productID, warehouseID string) (*model.StockSnapshot, error)

	// Invalidate drops cached snapshots so the next lookup recomputes
	Invalidate(ctx context.Context, productID, warehouseID string) error
}

// storeQueryService multi-level snapshot lookup: local cache, then
// Redis, then recompute from unit rows in the store.
type storeQueryService struct {
	units      repository.UnitRepository
	redis      redis.Cmdable
	localCache *bigcache.BigCache
	redisTTL   time.Duration
}

// NewStoreQueryService creates a store-backed query service. The Redis
// client is optional; with a nil client only the local cache layer is
// used in front of the store.
func NewStoreQueryService(units repository.UnitRepository, redisClient redis.Cmdable) (QueryService, error) {
	localCache, err := bigcache.New(context.Background(), bigcache.DefaultConfig(time.Minute))
	if err != nil {
		return nil, fmt.Errorf("failed to create local cache: %w", err)
	}

	return &storeQueryService{
		units:      units,
		redis:      redisClient,
		localCache: localCache,
		redisTTL:   30 * time.Second,
	}, nil
}

// GetSnapshot resolves the snapshot through the cache hierarchy
func (s *storeQueryService) GetSnapshot(ctx context.Context, productID, warehouseID string) (*model.StockSnapshot, error) {
	key := snapshotKey(productID, warehouseID)

	if data, err := s.localCache.Get(key); err == nil {
		var snapshot model.StockSnapshot
		if err := json.Unmarshal(data, &snapshot); err == nil {
			return &snapshot, nil
		}
	}

	if s.redis != nil {
		data, err := s.redis.Get(ctx, key).Bytes()
		if err == nil {
			var snapshot model.StockSnapshot
			if err := json.Unmarshal(data, &snapshot); err == nil {
				s.cacheLocal(key, data)
				return &snapshot, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.WithFields(map[string]interface{}{
				"product_id":   productID,
				"warehouse_id": warehouseID,
				"error":        err.Error(),
			}).Warn("Redis snapshot lookup failed, falling back to store")
		}
	}

	return s.recompute(ctx, productID, warehouseID)
}

// Invalidate drops the cached snapshot from every cache layer
func (s *storeQueryService) Invalidate(ctx context.Context, productID, warehouseID string) error {
	key := snapshotKey(productID, warehouseID)

	// bigcache returns an error for missing entries; that is fine here
	_ = s.localCache.Delete(key)

	if s.redis != nil {
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to invalidate redis snapshot: %w", err)
		}
	}
	return nil
}

// recompute derives the snapshot from unit rows and refills the caches
func (s *storeQueryService) recompute(ctx context.Context, productID, warehouseID string) (*model.StockSnapshot, error) {
	units, err := s.units.ListByProductAndWarehouse(ctx, productID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock units: %w", err)
	}

	if len(units) == 0 {
		return nil, ErrSnapshotNotFound
	}

	snapshot := Calculate(units).Snapshot(productID, warehouseID)

	productName, warehouseName, err := s.units.LookupNames(ctx, productID, warehouseID)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"product_id":   productID,
			"warehouse_id": warehouseID,
			"error":        err.Error(),
		}).Warn("Name lookup failed, keeping raw IDs")
	} else {
		snapshot.ProductName = productName
		snapshot.WarehouseName = warehouseName
	}

	key := snapshotKey(productID, warehouseID)
	if data, err := json.Marshal(&snapshot); err == nil {
		s.cacheLocal(key, data)
		if s.redis != nil {
			if err := s.redis.Set(ctx, key, data, s.redisTTL).Err(); err != nil {
				log.WithFields(map[string]interface{}{
					"key":   key,
					"error": err.Error(),
				}).Warn("Failed to cache snapshot in Redis")
			}
		}
	}

	return &snapshot, nil
}

func (s *storeQueryService) cacheLocal(key string, data []byte) {
	if err := s.localCache.Set(key, data); err != nil {
		log.WithFields(map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		}).Debug("Failed to cache snapshot locally")
	}
}

func snapshotKey(productID, warehouseID string) string {
	return fmt.Sprintf("snapshot:{%s}:{%s}", warehouseID, productID)
}
