package queries

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Query is a read request. Query handlers never write.
type Query interface {
	Key() string
}

type Handler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}

type HandlerFunc[Q Query, R any] func(ctx context.Context, query Q) (R, error)

func (f HandlerFunc[Q, R]) Handle(ctx context.Context, query Q) (R, error) {
	return f(ctx, query)
}

type Bus interface {
	Ask(ctx context.Context, query Query) (any, error)
}

var (
	ErrHandlerNotFound  = errors.New("queries: no handler for query")
	ErrDuplicateHandler = errors.New("queries: query already has a handler")
	ErrInvalidQuery     = errors.New("queries: query type does not match handler")
	ErrResultType       = errors.New("queries: unexpected result type")
	ErrNilBus           = errors.New("queries: nil bus")
)

type route func(ctx context.Context, q Query) (any, error)

// Router is the innermost query bus.
type Router struct {
	mu     sync.RWMutex
	routes map[string]route
}

func NewRouter() *Router {
	return &Router{routes: make(map[string]route)}
}

// Register binds handler to the key of the zero value of Q.
func Register[Q Query, R any](r *Router, handler Handler[Q, R]) error {
	if r == nil {
		return ErrNilBus
	}
	var zero Q
	key := zero.Key()
	if key == "" {
		return fmt.Errorf("queries: %T has an empty key", zero)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.routes[key]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, key)
	}
	r.routes[key] = func(ctx context.Context, raw Query) (any, error) {
		q, ok := raw.(Q)
		if !ok {
			return nil, fmt.Errorf("%w: %s got %T", ErrInvalidQuery, key, raw)
		}
		return handler.Handle(ctx, q)
	}
	return nil
}

func (r *Router) Ask(ctx context.Context, query Query) (any, error) {
	r.mu.RLock()
	fn, ok := r.routes[query.Key()]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, query.Key())
	}
	return fn(ctx, query)
}

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

// Ask runs query through bus and asserts the result type.
func Ask[Q Query, R any](ctx context.Context, bus Bus, query Q) (R, error) {
	var zero R
	if bus == nil {
		return zero, ErrNilBus
	}
	res, err := bus.Ask(ctx, query)
	if err != nil || res == nil {
		return zero, err
	}
	value, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T, want %T", ErrResultType, query.Key(), res, zero)
	}
	return value, nil
}
