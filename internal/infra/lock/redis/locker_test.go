package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"circlo/internal/app/middleware"
)

// fakeRedis emulates SET NX and the token-checked release script.
type fakeRedis struct {
	mu   sync.Mutex
	keys map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{keys: map[string]string{}}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.keys[key]; taken {
		return goredis.NewBoolResult(false, nil)
	}
	f.keys[key] = value.(string)
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeRedis) release(keys []string, args ...any) *goredis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[keys[0]] == args[0].(string) {
		delete(f.keys, keys[0])
		return goredis.NewCmdResult(int64(1), nil)
	}
	return goredis.NewCmdResult(int64(0), nil)
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...any) *goredis.Cmd {
	return f.release(keys, args...)
}

func (f *fakeRedis) EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *goredis.Cmd {
	return f.release(keys, args...)
}

func (f *fakeRedis) EvalRO(ctx context.Context, script string, keys []string, args ...any) *goredis.Cmd {
	return f.release(keys, args...)
}

func (f *fakeRedis) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...any) *goredis.Cmd {
	return f.release(keys, args...)
}

func (f *fakeRedis) ScriptExists(ctx context.Context, hashes ...string) *goredis.BoolSliceCmd {
	return goredis.NewBoolSliceResult([]bool{true}, nil)
}

func (f *fakeRedis) ScriptLoad(ctx context.Context, script string) *goredis.StringCmd {
	return goredis.NewStringResult("sha", nil)
}

func TestLockerExcludesSecondHolder(t *testing.T) {
	client := newFakeRedis()
	locker := NewLocker(client, "circlo:lock:", time.Second, 60*time.Millisecond)
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "item:camera-1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "item:camera-1")
	require.ErrorIs(t, err, middleware.ErrLockTimeout)

	other, err := locker.Acquire(ctx, "item:tent-7")
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))
	again, err := locker.Acquire(ctx, "item:camera-1")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestReleaseDoesNotDropForeignLock(t *testing.T) {
	client := newFakeRedis()
	locker := NewLocker(client, "", time.Second, 50*time.Millisecond)
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "booking:bk-1")
	require.NoError(t, err)

	// simulate expiry and takeover by another node
	client.mu.Lock()
	client.keys["booking:bk-1"] = "someone-else"
	client.mu.Unlock()

	require.ErrorIs(t, lock.Release(ctx), ErrLockLost)
	client.mu.Lock()
	defer client.mu.Unlock()
	require.Equal(t, "someone-else", client.keys["booking:bk-1"])
}
