// Package redisregistry 提供 ConnectionRegistry 接口的 Redis 实现。
// 每条连接两个 key：记录 hash 和订阅集合，都带租约 TTL，
// 到期由 Redis 被动回收 (无需清扫任务)。
package redisregistry

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/NTitterton/agorusta/internal/domain"
	"github.com/NTitterton/agorusta/internal/repository"
)

// RedisConnectionRegistry 是 ConnectionRegistry 接口的 Redis 实现
type RedisConnectionRegistry struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisConnectionRegistry 创建 RedisConnectionRegistry 实例
func NewRedisConnectionRegistry(client *redis.Client, keyPrefix string) *RedisConnectionRegistry {
	if client == nil {
		panic("redis client cannot be nil for RedisConnectionRegistry")
	}
	if keyPrefix == "" {
		keyPrefix = "ag:"
	}
	return &RedisConnectionRegistry{client: client, keyPrefix: keyPrefix}
}

// --- Key Generation Helpers ---

func (r *RedisConnectionRegistry) connKey(connectionID string) string {
	return fmt.Sprintf("%sconn:%s", r.keyPrefix, connectionID)
}

func (r *RedisConnectionRegistry) subsKey(connectionID string) string {
	return fmt.Sprintf("%sconn:%s:subs", r.keyPrefix, connectionID)
}

// --- ConnectionRegistry Interface Implementation ---

func (r *RedisConnectionRegistry) Connect(ctx context.Context, connectionID, userID string) error {
	now := time.Now()
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, r.connKey(connectionID),
		"user_id", userID,
		"created_at", strconv.FormatInt(now.UnixMilli(), 10),
	)
	pipe.Expire(ctx, r.connKey(connectionID), domain.ConnectionLeaseTTL)
	// 重复 Connect 重置记录：清掉可能残留的旧订阅集合
	pipe.Del(ctx, r.subsKey(connectionID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: connect %s: %w", connectionID, err)
	}
	return nil
}

func (r *RedisConnectionRegistry) Disconnect(ctx context.Context, connectionID string) error {
	if err := r.client.Del(ctx, r.connKey(connectionID), r.subsKey(connectionID)).Err(); err != nil {
		return fmt.Errorf("redis: disconnect %s: %w", connectionID, err)
	}
	return nil
}

func (r *RedisConnectionRegistry) Subscribe(ctx context.Context, connectionID, conversationID string) error {
	if err := r.requireConnection(ctx, connectionID); err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, r.subsKey(connectionID), conversationID) // SAdd 天然幂等
	pipe.Expire(ctx, r.subsKey(connectionID), domain.ConnectionLeaseTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: subscribe %s to %s: %w", connectionID, conversationID, err)
	}
	return nil
}

func (r *RedisConnectionRegistry) Unsubscribe(ctx context.Context, connectionID, conversationID string) error {
	if err := r.requireConnection(ctx, connectionID); err != nil {
		return err
	}
	if err := r.client.SRem(ctx, r.subsKey(connectionID), conversationID).Err(); err != nil {
		return fmt.Errorf("redis: unsubscribe %s from %s: %w", connectionID, conversationID, err)
	}
	return nil
}

// FindSubscribers 扫描全部连接 key 并按订阅集合过滤。
// 这是对全体连接的线性扫描，按会话 ID 建倒排索引才能上量，
// 但语义契约 (尽力而为、容忍陈旧记录) 只依赖本接口而非扫描本身。
func (r *RedisConnectionRegistry) FindSubscribers(ctx context.Context, conversationID string) ([]domain.Connection, error) {
	var result []domain.Connection
	var cursor uint64
	pattern := r.keyPrefix + "conn:*"
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 256).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: scan connections: %w", err)
		}
		for _, key := range keys {
			if strings.HasSuffix(key, ":subs") {
				continue
			}
			connectionID := strings.TrimPrefix(key, r.keyPrefix+"conn:")
			member, err := r.client.SIsMember(ctx, r.subsKey(connectionID), conversationID).Result()
			if err != nil {
				logrus.WithError(err).WithField("connection_id", connectionID).
					Warn("Registry: failed to check subscription membership, skipping connection")
				continue
			}
			if !member {
				continue
			}
			conn, err := r.loadConnection(ctx, connectionID)
			if err != nil {
				// hash 可能刚被 TTL 回收；跳过即可
				logrus.WithError(err).WithField("connection_id", connectionID).
					Debug("Registry: connection record vanished during scan")
				continue
			}
			result = append(result, *conn)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return result, nil
}

// --- 私有辅助函数 ---

func (r *RedisConnectionRegistry) requireConnection(ctx context.Context, connectionID string) error {
	exists, err := r.client.Exists(ctx, r.connKey(connectionID)).Result()
	if err != nil {
		return fmt.Errorf("redis: check connection %s: %w", connectionID, err)
	}
	if exists == 0 {
		return repository.ErrConnectionNotFound
	}
	return nil
}

func (r *RedisConnectionRegistry) loadConnection(ctx context.Context, connectionID string) (*domain.Connection, error) {
	fields, err := r.client.HGetAll(ctx, r.connKey(connectionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load connection %s: %w", connectionID, err)
	}
	if len(fields) == 0 {
		return nil, repository.ErrConnectionNotFound
	}
	channels, err := r.client.SMembers(ctx, r.subsKey(connectionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load subscriptions for %s: %w", connectionID, err)
	}
	conn := &domain.Connection{
		ID:       connectionID,
		UserID:   fields["user_id"],
		Channels: channels,
	}
	if ms, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		conn.CreatedAt = time.UnixMilli(ms)
	}
	return conn, nil
}
