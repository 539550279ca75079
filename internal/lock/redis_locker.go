// Package lock serializes work on a single invoice.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fatura/internal/domain"
	"fatura/internal/port"
)

const defaultKeyPrefix = "fatura:invoice-lock:"

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a port.InvoiceLocker shared across server instances.
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisLocker connects to redis and checks the connection.
func NewRedisLocker(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *zap.Logger) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisLockerWithClient(client, ttl, logger), nil
}

// NewRedisLockerWithClient wraps an existing client.
func NewRedisLockerWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, keyPrefix: defaultKeyPrefix, ttl: ttl, logger: logger}
}

// Acquire takes the lock with SET NX PX. The lock expires after the TTL
// even if release is never called.
func (l *RedisLocker) Acquire(ctx context.Context, invoiceID uuid.UUID) (func(), error) {
	key := l.keyPrefix + invoiceID.String()
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock.Acquire: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvoiceLocked
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("lock.Release: failed to release invoice lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// Close closes the redis client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

var _ port.InvoiceLocker = (*RedisLocker)(nil)
