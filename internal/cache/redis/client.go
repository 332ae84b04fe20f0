package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/userpulse/backend/pkg/logger"
)

// Client caches reasoning responses so repeated batch analyses of identical
// summaries skip the external call.
type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetResponse(ctx context.Context, promptHash string, content string, ttl time.Duration) error {
	err := c.client.Set(ctx, fmt.Sprintf("reasoning:%s", promptHash), content, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set response cache: %w", err)
	}

	logger.Debug("Reasoning response cached", zap.String("prompt_hash", promptHash), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetResponse(ctx context.Context, promptHash string) (string, bool, error) {
	content, err := c.client.Get(ctx, fmt.Sprintf("reasoning:%s", promptHash)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get response cache: %w", err)
	}

	logger.Debug("Reasoning response cache hit", zap.String("prompt_hash", promptHash))
	return content, true, nil
}

func (c *Client) InvalidateResponses(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "reasoning:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Reasoning response cache invalidated")
	return nil
}
