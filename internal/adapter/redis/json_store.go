package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/change-analysis-service/internal/repository"
)

// setJSON stores v under key with SETEX.
func setJSON(ctx context.Context, client *redis.Client, key string, v any, expiry time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return client.SetEx(ctx, key, b, expiry).Err()
}

// getJSON loads key into v, mapping a missing key to repository.ErrNotFound.
func getJSON(ctx context.Context, client *redis.Client, key string, v any) error {
	b, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
