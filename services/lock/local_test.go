package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/rollcall/core"
)

func TestLocal_Lock(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	unlock, err := l.Lock(ctx, "job", time.Minute)
	require.NoError(t, err)

	_, err = l.Lock(ctx, "job", time.Minute)
	assert.Equal(t, core.ErrLocked, err)

	// other keys are independent
	unlockOther, err := l.Lock(ctx, "other-job", time.Minute)
	require.NoError(t, err)
	unlockOther()

	unlock()
	unlock, err = l.Lock(ctx, "job", time.Minute)
	require.NoError(t, err)
	unlock()
}

func TestLocal_Lock_expired(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()

	now := time.Now()
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	staleUnlock, err := l.Lock(ctx, "job", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	unlock, err := l.Lock(ctx, "job", time.Second)
	require.NoError(t, err, "an expired lock can be taken over")

	// the stale holder must not release the new lock
	staleUnlock()
	_, err = l.Lock(ctx, "job", time.Second)
	assert.Equal(t, core.ErrLocked, err)

	unlock()
	_, err = l.Lock(ctx, "job", time.Second)
	assert.NoError(t, err)
}
