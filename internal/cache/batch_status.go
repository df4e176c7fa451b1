package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/invitebatch/internal/model"
)

// BatchStatusCache 缓存终态批次快照；终态不会再变化，所以无需失效
type BatchStatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBatchStatusCache client 为 nil 时所有操作都是空操作
func NewBatchStatusCache(client *redis.Client, ttl time.Duration) *BatchStatusCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &BatchStatusCache{client: client, ttl: ttl}
}

func batchKey(id string) string { return fmt.Sprintf("invite:batch:%s", id) }

// Get 命中返回快照；未命中或 redis 不可用都视为 miss
func (c *BatchStatusCache) Get(ctx context.Context, id string) (*model.InviteBatch, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, batchKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var b model.InviteBatch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, false
	}
	return &b, true
}

// Set 只写入终态批次
func (c *BatchStatusCache) Set(ctx context.Context, b *model.InviteBatch) error {
	if c == nil || c.client == nil || b == nil || !b.Status.IsTerminal() {
		return nil
	}
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, batchKey(b.ID), payload, c.ttl).Err()
}

// Ping 用于健康检查
func (c *BatchStatusCache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("redis not configured")
	}
	return c.client.Ping(ctx).Err()
}
