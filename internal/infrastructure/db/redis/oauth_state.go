package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statePrefix = "oauth_state:"

// StateStore keeps pending OAuth state values until the callback consumes them.
type StateStore struct {
	client *redis.Client
}

func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

func (s *StateStore) Save(ctx context.Context, state, intent string, ttl time.Duration) error {
	if err := s.client.Set(ctx, statePrefix+state, intent, ttl).Err(); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// Consume reads and deletes state in one GETDEL, so a state value is accepted at most once.
func (s *StateStore) Consume(ctx context.Context, state string) (string, bool, error) {
	intent, err := s.client.GetDel(ctx, statePrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("consume oauth state: %w", err)
	}
	return intent, true, nil
}
