package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"circlo/internal/app/middleware"
)

// Locker is a per-key mutex for single-node deployments. Waiting honours
// context cancellation and the optional Wait bound.
type Locker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	Wait  time.Duration
}

func NewLocker(wait time.Duration) *Locker {
	return &Locker{slots: make(map[string]chan struct{}), Wait: wait}
}

func (l *Locker) Acquire(ctx context.Context, key string) (middleware.Lock, error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	if l.Wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Wait)
		defer cancel()
	}
	select {
	case slot <- struct{}{}:
		return &keyLock{slot: slot}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", middleware.ErrLockTimeout, key, ctx.Err())
	}
}

type keyLock struct {
	once sync.Once
	slot chan struct{}
}

func (k *keyLock) Release(ctx context.Context) error {
	k.once.Do(func() { <-k.slot })
	return nil
}

var _ middleware.Locker = (*Locker)(nil)
