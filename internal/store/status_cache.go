package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"jobcenter/internal/domain"

	"go.uber.org/zap"
)

// StatusCache 工单状态轮询缓存
// 平板端 1-2 秒一次的状态轮询不值得每次都打到 Postgres；
// 缓存在迁移提交后刷新，TTL 兜底过期。缓存任何故障都降级为直读 DB。
type StatusCache struct {
	kv     KV
	ttl    time.Duration
	logger *zap.Logger
}

func NewStatusCache(kv KV, ttl time.Duration, logger *zap.Logger) *StatusCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatusCache{kv: kv, ttl: ttl, logger: logger}
}

func statusKey(operationID int64) string {
	return fmt.Sprintf("jobcenter:operation:%d:status", operationID)
}

// GetStatus 命中返回 (status, true)，未命中或出错返回 (0, false)
func (c *StatusCache) GetStatus(ctx context.Context, operationID int64) (domain.OpStatus, bool) {
	val, err := c.kv.Get(ctx, statusKey(operationID))
	if err != nil {
		if err != ErrMiss {
			c.logger.Warn("status cache read failed", zap.Int64("operation_id", operationID), zap.Error(err))
		}
		return 0, false
	}
	code, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return domain.OpStatus(code), true
}

// SetStatus 写入缓存，失败只记日志
func (c *StatusCache) SetStatus(ctx context.Context, operationID int64, status domain.OpStatus) {
	if err := c.kv.Set(ctx, statusKey(operationID), strconv.Itoa(int(status)), c.ttl); err != nil {
		c.logger.Warn("status cache write failed", zap.Int64("operation_id", operationID), zap.Error(err))
	}
}
