package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	listingKeyPrefix = "property:listing:"
	searchKeyPrefix  = "property:search:"
	generationKey    = "property:search:generation"
)

// ListingCache implements domain.ListingCache on Redis. Search pages are keyed
// by a generation counter; bumping it orphans every cached page at once and
// the TTL reclaims them.
type ListingCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string, db int, log *logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Error("Failed to connect to Redis", zap.String("address", addr), zap.Error(err))
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	log.Info("Successfully connected to Redis", zap.String("address", addr))
	return rdb, nil
}

func NewListingCache(client redis.Cmdable, ttl time.Duration, log *logger.Logger) *ListingCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ListingCache{client: client, ttl: ttl, logger: log.Named("ListingCache")}
}

func (c *ListingCache) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	var l domain.Listing
	if err := c.get(ctx, listingKey(id), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *ListingCache) SetListing(ctx context.Context, listing *domain.Listing) error {
	return c.set(ctx, listingKey(listing.ID), listing)
}

func (c *ListingCache) DeleteListing(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, listingKey(id)).Err(); err != nil {
		c.logger.Error("Redis Del failed", zap.String("listing_id", id), zap.Error(err))
		return fmt.Errorf("delete cached listing %s: %w", id, err)
	}
	return nil
}

func (c *ListingCache) GetSearch(ctx context.Context, key string) ([]*domain.ListingView, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, err
	}
	var views []*domain.ListingView
	if err := c.get(ctx, searchKey(gen, key), &views); err != nil {
		return nil, err
	}
	return views, nil
}

func (c *ListingCache) SetSearch(ctx context.Context, key string, views []*domain.ListingView) error {
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}
	return c.set(ctx, searchKey(gen, key), views)
}

func (c *ListingCache) InvalidateSearches(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.Error("Redis Incr failed", zap.String("key", generationKey), zap.Error(err))
		return fmt.Errorf("bump search generation: %w", err)
	}
	return nil
}

func (c *ListingCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read search generation: %w", err)
	}
	return gen, nil
}

func (c *ListingCache) get(ctx context.Context, key string, dst any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ErrCacheMiss
	}
	if err != nil {
		c.logger.Error("Redis Get failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("Dropping undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key).Err()
		return domain.ErrCacheMiss
	}
	return nil
}

func (c *ListingCache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("Redis Set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func listingKey(id string) string { return listingKeyPrefix + id }

func searchKey(gen int64, key string) string {
	return fmt.Sprintf("%s%d:%s", searchKeyPrefix, gen, key)
}
