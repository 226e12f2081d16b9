package lock

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "translate:lock:conn-1:801000000000001", Key("conn-1", "801000000000001"))
}

func TestAcquire_UnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	locker := NewRedisLocker(client, time.Minute, zap.NewNop())
	release, err := locker.Acquire(context.Background(), "conn-1", "801000000000001")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
	assert.Nil(t, release)
}
