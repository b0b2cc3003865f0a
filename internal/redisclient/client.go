package redisclient

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const stockTTL = 10 * time.Minute

// Client caches stock snapshots. The relational store is the source of
// truth; the ledger refreshes the cache after every committed mutation and
// readers fall back to the store on a miss.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID int64, variantID *int64) string {
	if variantID != nil {
		return fmt.Sprintf("stock:variant:%d", *variantID)
	}
	return fmt.Sprintf("stock:product:%d", productID)
}

// SetStock writes a committed snapshot into the cache.
func (c *Client) SetStock(ctx context.Context, productID int64, variantID *int64, stock int) error {
	return c.rdb.Set(ctx, stockKey(productID, variantID), stock, stockTTL).Err()
}

// GetStock reads a cached snapshot. The second return value is false on a
// cache miss.
func (c *Client) GetStock(ctx context.Context, productID int64, variantID *int64) (int, bool, error) {
	val, err := c.rdb.Get(ctx, stockKey(productID, variantID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read stock cache: %w", err)
	}

	stock, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt stock cache entry %q: %w", val, err)
	}
	return stock, true, nil
}

// InvalidateStock drops a cached snapshot.
func (c *Client) InvalidateStock(ctx context.Context, productID int64, variantID *int64) error {
	return c.rdb.Del(ctx, stockKey(productID, variantID)).Err()
}
