package middleware_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"circlo/internal/app/commands"
	"circlo/internal/app/middleware"
	"circlo/internal/app/outbox"
	"circlo/internal/app/queries"
	"circlo/internal/app/uow"
	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
	domainpayment "circlo/internal/domain/payment"
	"circlo/internal/infra/storage/memory"
)

type result struct {
	Value string `json:"value"`
}

type testCommand struct {
	Actor string
	Idem  string
	Lock  string
}

func (testCommand) Key() string              { return "test.command" }
func (c testCommand) ActorID() string        { return c.Actor }
func (c testCommand) IdempotencyKey() string { return c.Idem }
func (c testCommand) LockKey() string        { return c.Lock }
func (testCommand) ResultPrototype() any     { return &result{} }

type plainCommand struct{}

func (plainCommand) Key() string { return "test.plain" }

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

type queryBusFunc func(ctx context.Context, q queries.Query) (any, error)

func (f queryBusFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}

type testQuery struct{ Actor string }

func (testQuery) Key() string       { return "test.query" }
func (q testQuery) ActorID() string { return q.Actor }

func TestChainCommandsAppliesOutermostFirst(t *testing.T) {
	var order []string
	mark := func(name string) middleware.CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				order = append(order, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	base := busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		order = append(order, "handler")
		return nil, nil
	})
	bus := middleware.ChainCommands(base, mark("a"), mark("b"), mark("c"))
	_, err := bus.Dispatch(context.Background(), plainCommand{})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c", "handler"}, order)
}

func TestIdempotencyReplaysPerActor(t *testing.T) {
	var calls atomic.Int32
	base := busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		n := calls.Add(1)
		return &result{Value: string(rune('a' + n - 1))}, nil
	})
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil, nil))
	ctx := context.Background()

	first, err := bus.Dispatch(ctx, testCommand{Actor: "u1", Idem: "k"})
	require.NoError(t, err)
	again, err := bus.Dispatch(ctx, testCommand{Actor: "u1", Idem: "k"})
	require.NoError(t, err)
	require.Equal(t, first, again)
	require.Equal(t, int32(1), calls.Load())

	other, err := bus.Dispatch(ctx, testCommand{Actor: "u2", Idem: "k"})
	require.NoError(t, err)
	require.Equal(t, &result{Value: "b"}, other)

	_, err = bus.Dispatch(ctx, testCommand{Actor: "u1"})
	require.NoError(t, err)
	_, err = bus.Dispatch(ctx, testCommand{Actor: "u1"})
	require.NoError(t, err)
	require.Equal(t, int32(4), calls.Load())
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")
	base := busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return &result{Value: "ok"}, nil
	})
	bus := middleware.ChainCommands(base, middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil, nil))

	_, err := bus.Dispatch(context.Background(), testCommand{Actor: "u1", Idem: "k"})
	require.ErrorIs(t, err, boom)
	res, err := bus.Dispatch(context.Background(), testCommand{Actor: "u1", Idem: "k"})
	require.NoError(t, err)
	require.Equal(t, &result{Value: "ok"}, res)
}

func TestResourceLockSerializesSameKey(t *testing.T) {
	var inside, peak atomic.Int32
	base := busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		n := inside.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inside.Add(-1)
		return nil, nil
	})
	bus := middleware.ChainCommands(base, middleware.ResourceLock(memory.NewLocker(5*time.Second), nil))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := bus.Dispatch(context.Background(), testCommand{Actor: "u", Lock: "item:1"}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), peak.Load())
}

func TestResourceLockTimesOut(t *testing.T) {
	locker := memory.NewLocker(20 * time.Millisecond)
	held, err := locker.Acquire(context.Background(), "item:1")
	require.NoError(t, err)
	defer held.Release(context.Background())

	called := false
	base := busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		called = true
		return nil, nil
	})
	bus := middleware.ChainCommands(base, middleware.ResourceLock(locker, nil))
	_, err = bus.Dispatch(context.Background(), testCommand{Actor: "u", Lock: "item:1"})
	require.ErrorIs(t, err, middleware.ErrLockTimeout)
	require.False(t, called)

	_, err = bus.Dispatch(context.Background(), testCommand{Actor: "u", Lock: "item:2"})
	require.NoError(t, err)
	require.True(t, called)
}

type countingFactory struct {
	begins, commits, rollbacks int
	commitErr                  error
}

func (f *countingFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	f.begins++
	return &countingUnit{factory: f}, nil
}

type countingUnit struct {
	factory *countingFactory
}

func (u *countingUnit) Items() domaincatalog.Repository    { return nil }
func (u *countingUnit) Bookings() domainbooking.Repository { return nil }
func (u *countingUnit) Orders() domainpayment.Repository   { return nil }
func (u *countingUnit) Outbox() outbox.Outbox              { return nil }

func (u *countingUnit) Commit(ctx context.Context) error {
	if u.factory.commitErr != nil {
		return u.factory.commitErr
	}
	u.factory.commits++
	return nil
}

func (u *countingUnit) Rollback(ctx context.Context) error {
	u.factory.rollbacks++
	return nil
}

func TestTransactionCommitsOrRollsBack(t *testing.T) {
	factory := &countingFactory{}
	fail := errors.New("handler failed")
	var sawUnit bool
	base := busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		_, sawUnit = uow.FromContext(ctx)
		if cmd.(testCommand).Actor == "bad" {
			return nil, fail
		}
		return "ok", nil
	})
	bus := middleware.ChainCommands(base, middleware.Transaction(factory, nil))

	res, err := bus.Dispatch(context.Background(), testCommand{Actor: "good"})
	require.NoError(t, err)
	require.Equal(t, "ok", res)
	require.True(t, sawUnit)
	require.Equal(t, 1, factory.commits)
	require.Zero(t, factory.rollbacks)

	_, err = bus.Dispatch(context.Background(), testCommand{Actor: "bad"})
	require.ErrorIs(t, err, fail)
	require.Equal(t, 1, factory.commits)
	require.Equal(t, 1, factory.rollbacks)

	factory.commitErr = domainbooking.ErrConcurrentModification
	_, err = bus.Dispatch(context.Background(), testCommand{Actor: "good"})
	require.ErrorIs(t, err, domainbooking.ErrConcurrentModification)
	require.Equal(t, 2, factory.rollbacks)
	require.Equal(t, 3, factory.begins)
}

type flushCounter struct{ n int }

func (f *flushCounter) Flush(ctx context.Context) error {
	f.n++
	return nil
}

func TestOutboxFlushOnlyAfterSuccess(t *testing.T) {
	flusher := &flushCounter{}
	base := busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		if cmd.(testCommand).Actor == "bad" {
			return nil, errors.New("nope")
		}
		return nil, nil
	})
	bus := middleware.ChainCommands(base, middleware.OutboxFlush(flusher, nil))

	_, err := bus.Dispatch(context.Background(), testCommand{Actor: "bad"})
	require.Error(t, err)
	require.Zero(t, flusher.n)
	_, err = bus.Dispatch(context.Background(), testCommand{Actor: "good"})
	require.NoError(t, err)
	require.Equal(t, 1, flusher.n)
}

func TestRequirePrincipal(t *testing.T) {
	base := busFunc(func(ctx context.Context, cmd commands.Command) (any, error) { return "ok", nil })
	bus := middleware.ChainCommands(base, middleware.Authorization(middleware.RequirePrincipal))

	_, err := bus.Dispatch(context.Background(), testCommand{})
	require.ErrorIs(t, err, middleware.ErrUnauthenticated)
	_, err = bus.Dispatch(context.Background(), testCommand{Actor: "u"})
	require.NoError(t, err)
	_, err = bus.Dispatch(context.Background(), plainCommand{})
	require.NoError(t, err)

	qbus := middleware.ChainQueries(queryBusFunc(func(ctx context.Context, q queries.Query) (any, error) { return "ok", nil }),
		middleware.QueryAuthorization(middleware.RequirePrincipal))
	_, err = qbus.Ask(context.Background(), testQuery{})
	require.ErrorIs(t, err, middleware.ErrUnauthenticated)
	_, err = qbus.Ask(context.Background(), testQuery{Actor: "u"})
	require.NoError(t, err)
}

type rejectAll struct{}

func (rejectAll) Validate(ctx context.Context, message any) error {
	return middleware.ErrValidation
}

func TestValidationStopsDispatch(t *testing.T) {
	called := false
	base := busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		called = true
		return nil, nil
	})
	bus := middleware.ChainCommands(base, middleware.Validation(rejectAll{}))
	_, err := bus.Dispatch(context.Background(), plainCommand{})
	require.ErrorIs(t, err, middleware.ErrValidation)
	require.False(t, called)

	qbus := middleware.ChainQueries(queryBusFunc(func(ctx context.Context, q queries.Query) (any, error) {
		called = true
		return nil, nil
	}), middleware.QueryValidation(rejectAll{}))
	_, err = qbus.Ask(context.Background(), testQuery{Actor: "u"})
	require.ErrorIs(t, err, middleware.ErrValidation)
	require.False(t, called)
}
