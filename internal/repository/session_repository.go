// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"docqa-go/internal/model"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// MaxSessionTurns 是每个会话保留的最近轮数。
	MaxSessionTurns = 20
	sessionTTL      = 7 * 24 * time.Hour
)

// SessionRepository 定义了会话历史记录的操作接口。
type SessionRepository interface {
	GetTurns(ctx context.Context, sessionID string) ([]model.SessionTurn, error)
	AppendTurn(ctx context.Context, sessionID string, turn model.SessionTurn) error
	DeleteSession(ctx context.Context, sessionID string) error
}

type redisSessionRepository struct {
	redisClient *redis.Client
}

// NewSessionRepository 创建一个新的 SessionRepository 实例。
func NewSessionRepository(redisClient *redis.Client) SessionRepository {
	return &redisSessionRepository{redisClient: redisClient}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:turns", sessionID)
}

// GetTurns 从 Redis 列表获取会话历史，不存在时返回空列表。
func (r *redisSessionRepository) GetTurns(ctx context.Context, sessionID string) ([]model.SessionTurn, error) {
	items, err := r.redisClient.LRange(ctx, sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session turns: %w", err)
	}
	turns := make([]model.SessionTurn, 0, len(items))
	for _, item := range items {
		var turn model.SessionTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// AppendTurn 追加一轮对话，只保留最近 MaxSessionTurns 轮，并刷新过期时间。
// 三个命令在同一个 MULTI/EXEC 中执行，并发追加不会互相覆盖。
func (r *redisSessionRepository) AppendTurn(ctx context.Context, sessionID string, turn model.SessionTurn) error {
	jsonData, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal session turn: %w", err)
	}
	key := sessionKey(sessionID)
	_, err = r.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, jsonData)
		pipe.LTrim(ctx, key, -MaxSessionTurns, -1)
		pipe.Expire(ctx, key, sessionTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append session turn: %w", err)
	}
	return nil
}

// DeleteSession 删除整个会话。
func (r *redisSessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	return r.redisClient.Del(ctx, sessionKey(sessionID)).Err()
}
