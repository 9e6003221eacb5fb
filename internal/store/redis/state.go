package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/citylaw/docket/internal/domain"
)

// StateKey namespaces a single-use OAuth state value.
func StateKey(state string) string {
	return "sso:state:" + state
}

// PutState stores value under state until ttl elapses.
func (ps *PubSub) PutState(ctx context.Context, state, value string, ttl time.Duration) error {
	if err := ps.client.Set(ctx, StateKey(state), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis.PubSub.PutState: %w", err)
	}
	return nil
}

// TakeState returns and deletes the value stored under state, so a state
// can be redeemed once. Unknown or expired states yield domain.ErrNotFound.
func (ps *PubSub) TakeState(ctx context.Context, state string) (string, error) {
	value, err := ps.client.GetDel(ctx, StateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("redis.PubSub.TakeState: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("redis.PubSub.TakeState: %w", err)
	}
	return value, nil
}
