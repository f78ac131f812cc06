package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/sales-ledger/internal/core/domain"
)

const (
	commitKeyPrefix       = "sale:"
	defaultIdempotencyTTL = 24 * time.Hour
)

// RedisAdapter stores commit records so request ids stay claimed across
// processes and restarts.
type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &RedisAdapter{client: client, ttl: ttl}
}

func (r *RedisAdapter) Claim(ctx context.Context, requestID string) (bool, error) {
	payload, err := json.Marshal(domain.CommitRecord{RequestID: requestID, State: domain.CommitClaimed})
	if err != nil {
		return false, err
	}
	ok, err := r.client.SetNX(ctx, commitKeyPrefix+requestID, payload, r.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisAdapter) Get(ctx context.Context, requestID string) (*domain.CommitRecord, error) {
	payload, err := r.client.Get(ctx, commitKeyPrefix+requestID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec domain.CommitRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode commit record %s: %w", requestID, err)
	}
	return &rec, nil
}

func (r *RedisAdapter) Save(ctx context.Context, record domain.CommitRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, commitKeyPrefix+record.RequestID, payload, redis.KeepTTL).Err()
}

func (r *RedisAdapter) Release(ctx context.Context, requestID string) error {
	return r.client.Del(ctx, commitKeyPrefix+requestID).Err()
}
