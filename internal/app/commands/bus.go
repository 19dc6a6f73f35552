package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Command is a write intent. Its Key selects exactly one handler.
type Command interface {
	Key() string
}

type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

type HandlerFunc[C Command, R any] func(ctx context.Context, cmd C) (R, error)

func (f HandlerFunc[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	return f(ctx, cmd)
}

// Bus is what middleware wraps and transports call.
type Bus interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

var (
	ErrHandlerNotFound  = errors.New("commands: no handler for command")
	ErrDuplicateHandler = errors.New("commands: command already has a handler")
	ErrInvalidCommand   = errors.New("commands: command type does not match handler")
	ErrResultType       = errors.New("commands: unexpected result type")
	ErrNilBus           = errors.New("commands: nil bus")
)

type route func(ctx context.Context, cmd Command) (any, error)

// Router is the innermost bus. Handlers are registered at startup; Dispatch
// is safe for concurrent use.
type Router struct {
	mu     sync.RWMutex
	routes map[string]route
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]route)}
}

// Register binds handler to the key of the zero value of C.
func Register[C Command, R any](r *Router, handler Handler[C, R]) error {
	if r == nil {
		return ErrNilBus
	}
	var zero C
	key := zero.Key()
	if key == "" {
		return fmt.Errorf("commands: %T has an empty key", zero)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.routes[key]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, key)
	}
	r.routes[key] = func(ctx context.Context, raw Command) (any, error) {
		cmd, ok := raw.(C)
		if !ok {
			return nil, fmt.Errorf("%w: %s got %T", ErrInvalidCommand, key, raw)
		}
		return handler.Handle(ctx, cmd)
	}
	return nil
}

func (r *Router) Dispatch(ctx context.Context, cmd Command) (any, error) {
	r.mu.RLock()
	fn, ok := r.routes[cmd.Key()]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, cmd.Key())
	}
	return fn(ctx, cmd)
}

// Keys lists the registered command keys in order.
func (r *Router) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dispatch sends cmd through bus and asserts the result type. A nil result
// yields the zero R.
func Dispatch[C Command, R any](ctx context.Context, bus Bus, cmd C) (R, error) {
	var zero R
	if bus == nil {
		return zero, ErrNilBus
	}
	res, err := bus.Dispatch(ctx, cmd)
	if err != nil || res == nil {
		return zero, err
	}
	value, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, want %T", ErrResultType, cmd.Key(), res, zero)
	}
	return value, nil
}
