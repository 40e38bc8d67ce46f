package credits

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cardforgehq/cardforge/internal/pkg/apperr"
)

// DefaultBalance is the starting balance a user receives on first read.
const DefaultBalance = 25

const keyPrefix = "credits:"

// spendScript decrements the balance only when it covers the amount, so the
// check and the write are a single atomic step on the server. Returns the new
// balance, or -1 when the balance is insufficient.
var spendScript = redis.NewScript(`
local bal = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
if bal < amount then
	return -1
end
return redis.call('DECRBY', KEYS[1], amount)
`)

// Ledger is the per-user credit balance store. All mutations go through Redis
// atomic primitives (SETNX, INCRBY, EVAL); there is no read-modify-write on
// the client side, so concurrent callers cannot lose updates.
type Ledger struct {
	client *redis.Client
}

// NewLedger creates a ledger on top of an injected Redis client.
func NewLedger(client *redis.Client) *Ledger {
	return &Ledger{client: client}
}

func key(userID string) string {
	return keyPrefix + userID
}

// GetBalance returns the current balance, initializing it to DefaultBalance
// on first read. SETNX makes the initialization idempotent under concurrent
// first reads.
func (l *Ledger) GetBalance(ctx context.Context, userID string) (int64, error) {
	if err := l.client.SetNX(ctx, key(userID), DefaultBalance, 0).Err(); err != nil {
		return 0, fmt.Errorf("%w: credit ledger: %v", apperr.ErrUpstreamUnavailable, err)
	}

	balance, err := l.client.Get(ctx, key(userID)).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: credit ledger: %v", apperr.ErrUpstreamUnavailable, err)
	}
	return balance, nil
}

// Add credits the balance by n and returns the new value. The key is created
// at n when absent (INCRBY semantics).
func (l *Ledger) Add(ctx context.Context, userID string, n int64) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: credit amount must be positive", apperr.ErrInvalidRequest)
	}

	balance, err := l.client.IncrBy(ctx, key(userID), n).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: credit ledger: %v", apperr.ErrUpstreamUnavailable, err)
	}
	return balance, nil
}

// Spend debits n credits and returns the remaining balance. The balance is
// lazily initialized first, so a brand-new user can spend from the default
// allowance. Returns ErrInsufficientCredits when the balance does not cover n.
func (l *Ledger) Spend(ctx context.Context, userID string, n int64) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: spend amount must be positive", apperr.ErrInvalidRequest)
	}

	if err := l.client.SetNX(ctx, key(userID), DefaultBalance, 0).Err(); err != nil {
		return 0, fmt.Errorf("%w: credit ledger: %v", apperr.ErrUpstreamUnavailable, err)
	}

	balance, err := spendScript.Run(ctx, l.client, []string{key(userID)}, n).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: credit ledger: %v", apperr.ErrUpstreamUnavailable, err)
	}
	if balance < 0 {
		return 0, apperr.ErrInsufficientCredits
	}
	return balance, nil
}
