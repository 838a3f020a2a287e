package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ikkim/cartsync/config"
	"github.com/ikkim/cartsync/internal/app/model"
	"github.com/ikkim/cartsync/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 2 * time.Second

// RedisStore is the snapshot backend for hosts that already run a
// local redis (kiosk and embedded deployments). Same contract as
// FileStore: best effort, never an error to the caller.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg *config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis snapshot store connected", map[string]interface{}{
		"addr": cfg.Addr(),
		"db":   cfg.DB,
	})
	return &RedisStore{client: client}, nil
}

func redisKey(key string) string {
	return "cartsync:snapshot:" + key
}

func (s *RedisStore) Load(key string) []model.LineItem {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Failed to read snapshot from redis, starting empty", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return []model.LineItem{}
	}

	var items []model.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Warn("Corrupt snapshot in redis, starting empty", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return []model.LineItem{}
	}
	if items == nil {
		items = []model.LineItem{}
	}
	return items
}

func (s *RedisStore) Save(key string, items []model.LineItem) {
	if items == nil {
		items = []model.LineItem{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		logger.Error("Failed to encode snapshot", err, map[string]interface{}{
			"key": key,
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Set(ctx, redisKey(key), data, 0).Err(); err != nil {
		logger.Error("Failed to write snapshot to redis", err, map[string]interface{}{
			"key": key,
		})
	}
}

// Close closes the underlying redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
