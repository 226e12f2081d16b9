package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLocked is returned when another worker holds the record lock
var ErrLocked = errors.New("record is locked by another translation")

const keyPrefix = "translate:lock:"

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker gives at most one concurrent translation per Salesforce record
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker creates a locker whose locks expire after ttl
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		logger: logger.Named("lock"),
	}
}

// Key returns the redis key guarding a record of a connection
func Key(connectionID, recordID string) string {
	return keyPrefix + connectionID + ":" + recordID
}

// Acquire takes the lock or returns ErrLocked. The returned release func is safe to call once.
func (l *RedisLocker) Acquire(ctx context.Context, connectionID, recordID string) (func(context.Context) error, error) {
	key := Key(connectionID, recordID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	l.logger.Debug("Lock acquired", zap.String("key", key))

	release := func(ctx context.Context) error {
		released, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		if released == 0 {
			l.logger.Warn("Lock expired before release", zap.String("key", key))
		}
		return nil
	}
	return release, nil
}
