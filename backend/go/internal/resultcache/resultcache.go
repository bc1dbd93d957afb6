package resultcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"scale/backend/go/internal/models"

	"github.com/go-redis/redis/v8"
)

// Entry 是缓存在 Redis 中的终态任务结果。
type Entry struct {
	Status     models.TaskStatus `json:"status"`
	ResultText string            `json:"result_text"`
}

// Cache 在 Redis 中缓存任务的终态结果。
// Worker 在任务到达终态时写入，Gateway 的轮询先查缓存再查数据库，
// 这样高频轮询不会全部落到 MySQL 上。缓存永远只包含终态，
// 因此读到的内容不会与数据库产生可见的不一致。
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New 创建一个结果缓存。ttl 控制终态结果的保留时长。
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func key(taskID uint) string {
	return fmt.Sprintf("task_result:%d", taskID)
}

// Set 写入一个终态结果。非终态状态会被拒绝。
func (c *Cache) Set(ctx context.Context, taskID uint, status models.TaskStatus, resultText string) error {
	if !status.Terminal() {
		return fmt.Errorf("拒绝缓存非终态状态 %q", status)
	}
	data, err := json.Marshal(Entry{Status: status, ResultText: resultText})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(taskID), data, c.ttl).Err()
}

// Get 读取缓存的终态结果。缓存未命中时返回 (nil, nil)。
func (c *Cache) Get(ctx context.Context, taskID uint) (*Entry, error) {
	data, err := c.rdb.Get(ctx, key(taskID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
