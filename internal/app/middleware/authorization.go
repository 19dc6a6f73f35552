package middleware

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned for actor-scoped messages without a principal.
var ErrUnauthenticated = errors.New("middleware: principal required")

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

type AuthorizerFunc func(ctx context.Context, message any) error

func (f AuthorizerFunc) Authorize(ctx context.Context, message any) error {
	return f(ctx, message)
}

// RequirePrincipal only checks that an actor-scoped message names its actor.
// Who may do what is decided by the aggregates.
var RequirePrincipal = AuthorizerFunc(func(_ context.Context, message any) error {
	if scoped, ok := message.(ActorScoped); ok && scoped.ActorID() == "" {
		return ErrUnauthenticated
	}
	return nil
})

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return guardCommands(a.Authorize)
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return guardQueries(a.Authorize)
}
