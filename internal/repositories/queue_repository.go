package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// JobQueueRepositoryInterface — очередь батч-заданий синхронизации.
// В режиме оркестрации продюсер кладёт задания сюда, а воркеры
// разбирают их независимо от цикла выборки.
type JobQueueRepositoryInterface interface {
	Enqueue(ctx context.Context, queue string, payload interface{}) error
	// Dequeue блокируется до timeout; по истечении возвращает (nil, nil).
	Dequeue(ctx context.Context, queue string, timeout time.Duration) ([]byte, error)
	Length(ctx context.Context, queue string) (int64, error)
}

// RedisJobQueueRepository - реализация очереди на Redis-списке.
type RedisJobQueueRepository struct {
	client *redis.Client
}

func NewRedisJobQueueRepository(client *redis.Client) JobQueueRepositoryInterface {
	return &RedisJobQueueRepository{client: client}
}

func (r *RedisJobQueueRepository) Enqueue(ctx context.Context, queue string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации задания для очереди %s: %w", queue, err)
	}
	return r.client.LPush(ctx, queue, raw).Err()
}

func (r *RedisJobQueueRepository) Dequeue(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	result, err := r.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка чтения из очереди %s: %w", queue, err)
	}
	// BRPop возвращает пару [имя очереди, значение].
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

func (r *RedisJobQueueRepository) Length(ctx context.Context, queue string) (int64, error) {
	return r.client.LLen(ctx, queue).Result()
}
