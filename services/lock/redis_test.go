package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rollcall/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// requires a redis server: TEST_REDIS_ADDR=localhost:6379 go test ./services/lock
func TestRedis_Lock(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	conf := &core.Config{Redis: core.RedisConfig{Enabled: true, Addr: addr}}
	client, err := NewRedisClient(ctx, conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client, nopLogger{})
	key := "rollcall:test:" + uuid.New().String()
	t.Cleanup(func() { client.Del(ctx, key) })

	unlock, err := l.Lock(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = l.Lock(ctx, key, time.Minute)
	assert.Equal(t, core.ErrLocked, err)

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	unlock()
	unlock, err = l.Lock(ctx, key, time.Minute)
	require.NoError(t, err)

	// a stale holder does not release a lock taken over after expiry
	client.Set(ctx, key, "someone else", time.Minute)
	unlock()
	_, err = l.Lock(ctx, key, time.Minute)
	assert.Equal(t, core.ErrLocked, err)
}
