package question

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPoolTTL      = 10 * time.Minute
	defaultExclusionTTL = time.Minute
)

// Cache provides Redis-backed caching of exam pools and per-user exclusion
// lists to offload the database on match starts.
type Cache struct {
	client       *redis.Client
	poolTTL      time.Duration
	exclusionTTL time.Duration
}

var _ BankCache = (*Cache)(nil)

func NewCache(client *redis.Client, poolTTL time.Duration) *Cache {
	if poolTTL <= 0 {
		poolTTL = defaultPoolTTL
	}
	return &Cache{client: client, poolTTL: poolTTL, exclusionTTL: defaultExclusionTTL}
}

func poolKey(examNo int) string {
	return fmt.Sprintf("bank:exam:%d", examNo)
}

func exclusionKey(userID uuid.UUID) string {
	return fmt.Sprintf("bank:flags:%s", userID.String())
}

func (c *Cache) GetPool(ctx context.Context, examNo int) ([]BankQuestion, error) {
	data, err := c.client.Get(ctx, poolKey(examNo)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var pool []BankQuestion
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func (c *Cache) SetPool(ctx context.Context, examNo int, pool []BankQuestion) error {
	data, err := json.Marshal(pool)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, poolKey(examNo), data, c.poolTTL).Err()
}

func (c *Cache) GetExclusions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	data, err := c.client.Get(ctx, exclusionKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *Cache) SetExclusions(ctx context.Context, userID uuid.UUID, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, exclusionKey(userID), data, c.exclusionTTL).Err()
}
