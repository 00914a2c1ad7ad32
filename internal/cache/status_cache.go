package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"vital-guardian/internal/config"
	"vital-guardian/internal/models"
)

// StatusCache Redis 状态缓存管理器
// 镜像最新融合快照和活跃告警，供 HTTP API 和外部进程读取，不暴露引擎内部状态
type StatusCache struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewStatusCache 创建状态缓存管理器
func NewStatusCache(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *StatusCache {
	return &StatusCache{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// statusKey 最新快照缓存键
func (c *StatusCache) statusKey() string {
	return c.config.Cache.StatusKeyPrefix + "latest"
}

// alertKey 活跃告警缓存键
func (c *StatusCache) alertKey() string {
	return c.config.Cache.AlertKeyPrefix + "active"
}

// UpdateSnapshot 写入最新融合快照（带 TTL）
func (c *StatusCache) UpdateSnapshot(ctx context.Context, snapshot models.Snapshot) error {
	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	ttl := time.Duration(c.config.Cache.StatusTTL) * time.Second
	if err := c.redisClient.Set(ctx, c.statusKey(), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot cache: %w", err)
	}

	return nil
}

// GetSnapshot 读取最新融合快照（不存在时返回 nil）
func (c *StatusCache) GetSnapshot(ctx context.Context) (*models.Snapshot, error) {
	val, err := c.redisClient.Get(ctx, c.statusKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot cache: %w", err)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

// SetActiveAlert 写入活跃告警（带 TTL）
func (c *StatusCache) SetActiveAlert(ctx context.Context, session models.EscalationSession) error {
	jsonData, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	ttl := time.Duration(c.config.Cache.AlertTTL) * time.Second
	if err := c.redisClient.Set(ctx, c.alertKey(), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set alert cache: %w", err)
	}

	return nil
}

// ClearActiveAlert 清除活跃告警
func (c *StatusCache) ClearActiveAlert(ctx context.Context) error {
	if err := c.redisClient.Del(ctx, c.alertKey()).Err(); err != nil {
		return fmt.Errorf("failed to clear alert cache: %w", err)
	}
	return nil
}

// GetActiveAlert 读取活跃告警（不存在时返回 nil）
func (c *StatusCache) GetActiveAlert(ctx context.Context) (*models.EscalationSession, error) {
	val, err := c.redisClient.Get(ctx, c.alertKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get alert cache: %w", err)
	}

	var session models.EscalationSession
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
	}

	return &session, nil
}
