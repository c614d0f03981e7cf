package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	reportVersionKey = "puja:report:version"
	reportKeyPrefix  = "puja:report"
)

// ReportCache 报表读缓存
//
// 每次账本或会员写入都递增版本号，旧版本的 key 不再被读到，靠 TTL 自然过期。
// client 为 nil 时所有操作都是空操作。
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ReportCache{client: client, ttl: ttl}
}

func (c *ReportCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Bump 使所有已缓存的报表失效
func (c *ReportCache) Bump(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Incr(ctx, reportVersionKey).Err()
}

// Key 返回当前版本下的缓存 key
func (c *ReportCache) Key(ctx context.Context, name string) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	version, err := c.client.Get(ctx, reportVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("%s:v%d:%s", reportKeyPrefix, version, name), nil
}

// Get 命中时把缓存反序列化到 dest 并返回 true
func (c *ReportCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() || key == "" {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *ReportCache) Set(ctx context.Context, key string, value interface{}) error {
	if !c.Enabled() || key == "" {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}
