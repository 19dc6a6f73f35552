package uow

import (
	"context"
	"errors"

	"circlo/internal/app/outbox"
	domainbooking "circlo/internal/domain/booking"
	domaincatalog "circlo/internal/domain/catalog"
	domainpayment "circlo/internal/domain/payment"
)

var ErrUnitOfWorkMissing = errors.New("uow: no unit of work and no factory to start one")

// UnitOfWork groups the repositories one command touches. Nothing written
// through it, outbox records included, is visible to others before Commit.
type UnitOfWork interface {
	Items() domaincatalog.Repository
	Bookings() domainbooking.Repository
	Orders() domainpayment.Repository
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	// Rollback after Commit is a no-op.
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that carry driver state (a mongo
// session, a pgx transaction) in the context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

type unitKey struct{}

// Attach puts the unit, and any driver state it carries, into ctx. Handlers
// further down the chain join it through FromContext.
func Attach(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return context.WithValue(ctx, unitKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(unitKey{}).(UnitOfWork)
	return unit, ok
}
