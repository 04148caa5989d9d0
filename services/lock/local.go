package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/group"
)

type held struct {
	token     string
	expiresAt time.Time
}

// Local hands out locks within the current process. Use Redis when several replicas run the jobs.
type Local struct {
	mu    sync.Mutex
	locks map[string]held
}

var _ group.Locker = (*Local)(nil) // interface compliance check

func NewLocal() *Local {
	return &Local{locks: make(map[string]held)}
}

// mockable
var nowFunc = time.Now

func (l *Local) Lock(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := nowFunc()
	if h, ok := l.locks[key]; ok && now.Before(h.expiresAt) {
		return nil, core.ErrLocked
	}
	token := uuid.New().String()
	l.locks[key] = held{token: token, expiresAt: now.Add(ttl)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		// the lock may have expired and been taken by someone else meanwhile
		if h, ok := l.locks[key]; ok && h.token == token {
			delete(l.locks, key)
		}
	}, nil
}
