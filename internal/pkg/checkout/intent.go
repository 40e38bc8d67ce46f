package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cardforgehq/cardforge/internal/pkg/apperr"
)

const intentKeyPrefix = "checkout_session_"

// Intents older than this are abandoned carts; the provider's checkout
// sessions expire within 24h anyway.
const intentTTL = 48 * time.Hour

// Intent is the pending-purchase record stashed between session creation and
// the provider's completion webhook.
type Intent struct {
	UserID      string `json:"userId"`
	Credits     int    `json:"credits"`
	AmountCents int64  `json:"amountCents"`
}

// IntentStore persists checkout intents keyed by the provider session id.
// Consume removes the intent atomically so a redelivered webhook cannot apply
// the same purchase twice.
type IntentStore interface {
	Put(ctx context.Context, sessionID string, intent Intent) error
	Consume(ctx context.Context, sessionID string) (*Intent, error)
}

type redisIntentStore struct {
	client *redis.Client
}

// NewIntentStore creates a Redis-backed intent store.
func NewIntentStore(client *redis.Client) IntentStore {
	return &redisIntentStore{client: client}
}

func (s *redisIntentStore) Put(ctx context.Context, sessionID string, intent Intent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, intentKeyPrefix+sessionID, payload, intentTTL).Err(); err != nil {
		return fmt.Errorf("%w: intent store: %v", apperr.ErrUpstreamUnavailable, err)
	}
	return nil
}

// Consume reads and deletes the intent in one server-side step (GETDEL). The
// second consumer of the same session id gets ErrIntentNotFound.
func (s *redisIntentStore) Consume(ctx context.Context, sessionID string) (*Intent, error) {
	payload, err := s.client.GetDel(ctx, intentKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: session %s", apperr.ErrIntentNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: intent store: %v", apperr.ErrUpstreamUnavailable, err)
	}

	var intent Intent
	if err := json.Unmarshal([]byte(payload), &intent); err != nil {
		return nil, fmt.Errorf("corrupt intent for session %s: %w", sessionID, err)
	}
	return &intent, nil
}
