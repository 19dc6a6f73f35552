package middleware

import (
	"context"
	"errors"
	"log/slog"

	"circlo/internal/app/commands"
)

// ErrLockTimeout is returned when a resource lock cannot be taken in time.
var ErrLockTimeout = errors.New("middleware: resource lock not acquired")

// LockedCommand names the resource a command must hold exclusively while it
// runs, e.g. "item:<id>" for booking creation.
type LockedCommand interface {
	commands.Command
	LockKey() string
}

type Lock interface {
	Release(ctx context.Context) error
}

type Locker interface {
	Acquire(ctx context.Context, key string) (Lock, error)
}

// ResourceLock serializes commands that share a lock key. It must wrap both
// Idempotency and Transaction: the lock is held until after commit and the
// idempotency record is saved, so a concurrent retry sees that record.
func ResourceLock(locker Locker, logger *slog.Logger) CommandMiddleware {
	if locker == nil {
		panic("middleware: locker required")
	}
	return func(next commands.Bus) commands.Bus {
		return dispatchFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			locked, ok := cmd.(LockedCommand)
			if !ok || locked.LockKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			lock, err := locker.Acquire(ctx, locked.LockKey())
			if err != nil {
				return nil, err
			}
			defer func() {
				// release must outlive a cancelled request context
				if err := lock.Release(context.WithoutCancel(ctx)); err != nil && logger != nil {
					logger.Warn("lock release failed", "key", locked.LockKey(), "error", err)
				}
			}()
			return next.Dispatch(ctx, cmd)
		})
	}
}
