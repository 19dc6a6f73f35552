package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"circlo/internal/app/middleware"
)

// Client is the part of go-redis the locker needs.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd
	goredis.Scripter
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another node is never released by us.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var ErrLockLost = errors.New("redis: lock expired before release")

// Locker is a multi-node resource lock built on SET NX PX with a random token.
type Locker struct {
	client Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
	wait   time.Duration
}

func NewLocker(client Client, prefix string, ttl, wait time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = ttl
	}
	return &Locker{client: client, prefix: prefix, ttl: ttl, retry: 25 * time.Millisecond, wait: wait}
}

func (l *Locker) Acquire(ctx context.Context, key string) (middleware.Lock, error) {
	name := l.prefix + key
	token := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, name, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("redis: acquire %s: %w", name, err)
		}
		if ok {
			return &tokenLock{client: l.client, key: name, token: token}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", middleware.ErrLockTimeout, key)
		case <-ticker.C:
		}
	}
}

type tokenLock struct {
	client Client
	key    string
	token  string
}

func (t *tokenLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, t.client, []string{t.key}, t.token).Int64()
	if err != nil {
		return fmt.Errorf("redis: release %s: %w", t.key, err)
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

// NewClient builds a go-redis client for the lock.
func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func Ping(ctx context.Context, client *goredis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

var _ middleware.Locker = (*Locker)(nil)
