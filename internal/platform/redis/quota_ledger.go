package redis

import (
	"context"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/scry-forge/internal/platform/logger"
	"github.com/phrazzld/scry-forge/internal/store"
)

// DefaultKeyPrefix namespaces quota balance keys.
const DefaultKeyPrefix = "forge:quota:"

// Both scripts return -1 for a missing key so that unknown accounts are
// distinguishable from empty ones.
var (
	decrementScript = goredis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  return -1
end
if tonumber(v) <= 0 then
  return 0
end
redis.call('DECR', KEYS[1])
return 1
`)

	incrementScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
redis.call('INCR', KEYS[1])
return 1
`)
)

// QuotaLedger implements store.QuotaLedger with one integer key per account.
// The conditional decrement runs as a Lua script, so it is atomic on the server.
type QuotaLedger struct {
	client goredis.UniversalClient
	prefix string
}

var _ store.QuotaLedger = (*QuotaLedger)(nil)

// NewQuotaLedger creates a ledger using DefaultKeyPrefix.
func NewQuotaLedger(client goredis.UniversalClient) *QuotaLedger {
	return &QuotaLedger{client: client, prefix: DefaultKeyPrefix}
}

func (l *QuotaLedger) key(accountID uuid.UUID) string {
	return l.prefix + accountID.String()
}

// DecrementIfPositive implements store.QuotaLedger.
func (l *QuotaLedger) DecrementIfPositive(ctx context.Context, accountID uuid.UUID) (bool, error) {
	n, err := decrementScript.Run(ctx, l.client, []string{l.key(accountID)}).Int()
	if err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "failed to decrement quota",
			"account_id", accountID, "error", err)
		return false, store.NewStoreError("quota", "decrement", "script failed", err)
	}
	switch n {
	case -1:
		return false, store.ErrAccountNotFound
	case 0:
		return false, nil
	default:
		return true, nil
	}
}

// Increment implements store.QuotaLedger.
func (l *QuotaLedger) Increment(ctx context.Context, accountID uuid.UUID) error {
	n, err := incrementScript.Run(ctx, l.client, []string{l.key(accountID)}).Int()
	if err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "failed to increment quota",
			"account_id", accountID, "error", err)
		return store.NewStoreError("quota", "increment", "script failed", err)
	}
	if n == -1 {
		return store.ErrAccountNotFound
	}
	return nil
}

// SetBalance creates or overwrites the balance of an account.
func (l *QuotaLedger) SetBalance(ctx context.Context, accountID uuid.UUID, balance int) error {
	if balance < 0 {
		return store.NewStoreError("quota", "set", "balance must not be negative", store.ErrInvalidEntity)
	}
	if err := l.client.Set(ctx, l.key(accountID), balance, 0).Err(); err != nil {
		return store.NewStoreError("quota", "set", "SET failed", err)
	}
	return nil
}

// Balance returns the current balance of an account.
func (l *QuotaLedger) Balance(ctx context.Context, accountID uuid.UUID) (int, error) {
	n, err := l.client.Get(ctx, l.key(accountID)).Int()
	if err == goredis.Nil {
		return 0, store.ErrAccountNotFound
	}
	if err != nil {
		return 0, store.NewStoreError("quota", "get", "GET failed", err)
	}
	return n, nil
}
